package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type GameConfig struct {
	// EndScore is the total at which the game ends (lowest score wins).
	EndScore int `json:"end_score"`
	// TrickDelaySeconds configures how long a finished trick stays on screen
	// before the next trick starts.
	TrickDelaySeconds int `json:"trick_delay_seconds"`
	// RoundDelaySeconds configures how long the round scoreboard stays on
	// screen before the next round is dealt.
	RoundDelaySeconds int `json:"round_delay_seconds"`

	BotsEnabled bool `json:"bots_enabled"`
	// BotMinDelaySeconds and BotMaxDelaySeconds bound the simulated thinking
	// time before a bot acts.
	BotMinDelaySeconds int `json:"bot_min_delay_seconds"`
	BotMaxDelaySeconds int `json:"bot_max_delay_seconds"`
	// BotAutoFillDelaySeconds configures how many seconds to wait before
	// filling empty seats in a human lobby with bots.
	BotAutoFillDelaySeconds int `json:"bot_auto_fill_delay_seconds"`

	WelcomeBonusGold int64 `json:"welcome_bonus_gold"`
	WinnerRewardGold int64 `json:"winner_reward_gold"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// GetEndScore returns the configured end score, or the standard 100 if no
// config has been loaded or the value is missing.
func GetEndScore() int {
	if cfg == nil || cfg.EndScore <= 0 {
		return 100
	}
	return cfg.EndScore
}

// GetTrickDelaySeconds returns the pause after each trick resolves.
func GetTrickDelaySeconds() int {
	if cfg == nil || cfg.TrickDelaySeconds <= 0 {
		return 2
	}
	return cfg.TrickDelaySeconds
}

// GetRoundDelaySeconds returns the pause after each round is scored.
func GetRoundDelaySeconds() int {
	if cfg == nil || cfg.RoundDelaySeconds <= 0 {
		return 5
	}
	return cfg.RoundDelaySeconds
}

// GetBotDelayBounds returns the min and max simulated thinking time for bots.
func GetBotDelayBounds() (min, max int) {
	min, max = 1, 3
	if cfg == nil {
		return min, max
	}
	if cfg.BotMinDelaySeconds > 0 {
		min = cfg.BotMinDelaySeconds
	}
	if cfg.BotMaxDelaySeconds >= min {
		max = cfg.BotMaxDelaySeconds
	}
	if max < min {
		max = min
	}
	return min, max
}

// GetBotAutoFillDelaySeconds returns the lobby wait before bots fill empty
// seats. A zero or missing value disables auto-fill.
func GetBotAutoFillDelaySeconds() int {
	if cfg == nil {
		return 0
	}
	return cfg.BotAutoFillDelaySeconds
}

// GetWelcomeBonusGold returns the gold granted to newly created accounts.
func GetWelcomeBonusGold() int64 {
	if cfg == nil || cfg.WelcomeBonusGold < 0 {
		return 0
	}
	return cfg.WelcomeBonusGold
}

// GetWinnerRewardGold returns the gold granted to each winner at game over.
func GetWinnerRewardGold() int64 {
	if cfg == nil || cfg.WinnerRewardGold < 0 {
		return 0
	}
	return cfg.WinnerRewardGold
}
