package onboarding

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/InnerAnythings/hearts-server/internal/ports"
)

// Result captures non-fatal onboarding outcomes.
type Result struct {
	// DisplayName is the generated name applied to the new account.
	DisplayName string
	// ProfileUpdateErr is set when the profile update failed but onboarding continued.
	ProfileUpdateErr error
}

// Service handles post-auth onboarding for new users.
type Service struct {
	accounts  ports.AccountPort
	economy   ports.EconomyPort
	bonusGold int64
	rng       *rand.Rand
}

// NewService constructs an onboarding service with required ports.
// accounts/economy must be non-nil; bonusGold of zero disables the wallet
// grant; rng may be nil to use a time-seeded default.
func NewService(accounts ports.AccountPort, economy ports.EconomyPort, bonusGold int64, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		accounts:  accounts,
		economy:   economy,
		bonusGold: bonusGold,
		rng:       rng,
	}
}

// OnboardNewUser initializes profile and wallet for a newly created account.
// Returns a Result with any non-fatal issues and an error if the welcome
// bonus cannot be granted.
func (s *Service) OnboardNewUser(ctx context.Context, userID string) (Result, error) {
	if s.accounts == nil || s.economy == nil {
		return Result{}, fmt.Errorf("onboarding service not configured")
	}

	result := Result{DisplayName: s.generateFriendlyName()}
	if err := s.accounts.UpdateProfile(ctx, userID, result.DisplayName, result.DisplayName); err != nil {
		// Profile updates are best-effort; wallet grants are more important.
		result.ProfileUpdateErr = err
	}

	if s.bonusGold <= 0 {
		return result, nil
	}

	updates := []ports.WalletUpdate{
		{
			UserID: userID,
			Amount: s.bonusGold,
			Metadata: map[string]interface{}{
				"reason": "welcome_bonus",
			},
		},
	}
	if err := s.economy.UpdateBalances(ctx, updates); err != nil {
		return result, fmt.Errorf("failed to grant welcome bonus: %w", err)
	}

	return result, nil
}

func (s *Service) generateFriendlyName() string {
	adjectives := []string{"Happy", "Shiny", "Brave", "Clever", "Swift", "Calm", "Mighty", "Witty", "Sly", "Wild"}
	nouns := []string{"Panda", "Tiger", "Eagle", "Dolphin", "Wolf", "Otter", "Falcon", "Bear", "Fox", "Lion"}

	adj := adjectives[s.rng.Intn(len(adjectives))]
	noun := nouns[s.rng.Intn(len(nouns))]
	num := s.rng.Intn(9000) + 1000

	return fmt.Sprintf("%s%s%d", adj, noun, num)
}
