package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// BotUserIDPrefix marks seat occupants that are server-driven agents. Bot
// user ids never collide with Nakama user ids, which are plain UUIDs.
const BotUserIDPrefix = "bot:"

type BotIdentity struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Strategy    string `json:"strategy"` // "random" or "ducker"
}

var (
	botIdentities     []BotIdentity
	botDisplayNameMap map[string]string
	botStrategyMap    map[string]string
	loadOnce          sync.Once
	loadErr           error
)

var defaultNames = []string{"Ace", "Birdie", "Chip", "Dealer", "Echo", "Flush", "Gambit", "Hoyle"}

// LoadIdentities loads the bot profiles from the given path. Missing or
// malformed files are reported but not fatal; GetBotIdentity falls back to
// generated identities.
func LoadIdentities(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read bot identities: %w", err)
			return
		}

		var identities []BotIdentity
		if err := json.Unmarshal(data, &identities); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal bot identities: %w", err)
			return
		}

		for _, identity := range identities {
			if identity.UserID == "" {
				continue
			}
			registerIdentity(identity)
		}
	})
	return loadErr
}

func registerIdentity(identity BotIdentity) {
	if botDisplayNameMap == nil {
		botDisplayNameMap = make(map[string]string)
		botStrategyMap = make(map[string]string)
	}
	botIdentities = append(botIdentities, identity)
	botDisplayNameMap[identity.UserID] = identity.DisplayName
	botStrategyMap[identity.UserID] = identity.Strategy
}

// GetBotIdentity returns the i-th configured bot identity, generating a fresh
// one when the roster is exhausted or no roster was loaded.
func GetBotIdentity(i int) BotIdentity {
	if i >= 0 && i < len(botIdentities) {
		return botIdentities[i]
	}

	name := defaultNames[((i%len(defaultNames))+len(defaultNames))%len(defaultNames)]
	identity := BotIdentity{
		UserID:      BotUserIDPrefix + uuid.NewString(),
		Username:    name,
		DisplayName: name,
		Strategy:    StrategyRandom,
	}
	registerIdentity(identity)
	return identity
}

// IsBot reports whether the given user id represents a bot seat.
func IsBot(userID string) bool {
	return len(userID) >= len(BotUserIDPrefix) && userID[:len(BotUserIDPrefix)] == BotUserIDPrefix
}

// GetBotDisplayName returns the display name for a bot user id, or "" when
// the id is unknown.
func GetBotDisplayName(userID string) string {
	return botDisplayNameMap[userID]
}
