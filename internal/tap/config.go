package tap

import (
	"errors"
	"fmt"

	"uc_coin/internal/progression"
)

// Default tap economy
const (
	DEFAULT_BASE_RATE   = 1.0  // UC per tap at level 1 / rank 1
	DEFAULT_LEVEL_BONUS = 0.1  // +10% per level above 1
	DEFAULT_RANK_BONUS  = 0.05 // +5% per rank above 1

	DEFAULT_CRIT_CHANCE    = 0.05
	DEFAULT_CRIT_MULT      = 2.0
	DEFAULT_JACKPOT_CHANCE = 0.005
	DEFAULT_JACKPOT_MULT   = 10.0

	DEFAULT_COMBO_THRESHOLD = 10  // combo bonus kicks in at 10 consecutive taps
	DEFAULT_COMBO_STEP      = 0.1 // +10% per full threshold of combo
	DEFAULT_COMBO_MAX_MULT  = 2.0

	DEFAULT_XP_RATE = 1.0 // XP per UC earned
)

// Config holds the tap tuning knobs.
type Config struct {
	BaseRate   float64 `json:"base_rate"`
	LevelBonus float64 `json:"level_bonus"`
	RankBonus  float64 `json:"rank_bonus"`

	CriticalChance     float64 `json:"critical_chance"`
	CriticalMultiplier float64 `json:"critical_multiplier"`
	JackpotChance      float64 `json:"jackpot_chance"`
	JackpotMultiplier  float64 `json:"jackpot_multiplier"`

	ComboThreshold     int64   `json:"combo_threshold"`
	ComboStep          float64 `json:"combo_step"`
	ComboMaxMultiplier float64 `json:"combo_max_multiplier"`

	XPRate float64 `json:"xp_rate"`

	Levels progression.LevelCurve `json:"levels"`
	Ranks  progression.RankTable  `json:"-"`
}

func DefaultConfig() Config {
	return Config{
		BaseRate:           DEFAULT_BASE_RATE,
		LevelBonus:         DEFAULT_LEVEL_BONUS,
		RankBonus:          DEFAULT_RANK_BONUS,
		CriticalChance:     DEFAULT_CRIT_CHANCE,
		CriticalMultiplier: DEFAULT_CRIT_MULT,
		JackpotChance:      DEFAULT_JACKPOT_CHANCE,
		JackpotMultiplier:  DEFAULT_JACKPOT_MULT,
		ComboThreshold:     DEFAULT_COMBO_THRESHOLD,
		ComboStep:          DEFAULT_COMBO_STEP,
		ComboMaxMultiplier: DEFAULT_COMBO_MAX_MULT,
		XPRate:             DEFAULT_XP_RATE,
		Levels:             progression.DefaultLevelCurve,
		Ranks:              progression.DefaultRanks,
	}
}

var ErrInvalidConfig = errors.New("invalid tap config")

func (c Config) Validate() error {
	switch {
	case c.BaseRate <= 0:
		return fmt.Errorf("%w: base rate must be > 0", ErrInvalidConfig)
	case c.LevelBonus < 0 || c.RankBonus < 0:
		return fmt.Errorf("%w: level/rank bonus must be >= 0", ErrInvalidConfig)
	case c.CriticalChance < 0 || c.JackpotChance < 0 || c.CriticalChance+c.JackpotChance > 1:
		return fmt.Errorf("%w: chances must be >= 0 and sum to <= 1", ErrInvalidConfig)
	case c.JackpotChance > c.CriticalChance:
		return fmt.Errorf("%w: jackpot must be rarer than critical", ErrInvalidConfig)
	case c.CriticalMultiplier <= 1:
		return fmt.Errorf("%w: critical multiplier must be > 1", ErrInvalidConfig)
	case c.JackpotMultiplier <= c.CriticalMultiplier:
		return fmt.Errorf("%w: jackpot multiplier must exceed critical multiplier", ErrInvalidConfig)
	case c.ComboThreshold < 1:
		return fmt.Errorf("%w: combo threshold must be >= 1", ErrInvalidConfig)
	case c.ComboStep < 0 || c.ComboMaxMultiplier < 1:
		return fmt.Errorf("%w: combo step must be >= 0 and cap >= 1", ErrInvalidConfig)
	case c.XPRate <= 0:
		return fmt.Errorf("%w: xp rate must be > 0", ErrInvalidConfig)
	case c.Levels.BaseXP < 1:
		return fmt.Errorf("%w: level base xp must be >= 1", ErrInvalidConfig)
	}
	return nil
}
