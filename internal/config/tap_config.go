package config

import (
	"uc_coin/internal/progression"
	"uc_coin/internal/tap"
)

// loadTapConfig overlays TAP_* and LEVEL_* variables on the tap defaults.
func loadTapConfig() tap.Config {
	def := tap.DefaultConfig()
	return tap.Config{
		BaseRate:   envFloat64("TAP_BASE_RATE", def.BaseRate),
		LevelBonus: envFloat64("TAP_LEVEL_BONUS", def.LevelBonus),
		RankBonus:  envFloat64("TAP_RANK_BONUS", def.RankBonus),

		CriticalChance:     envFloat64("TAP_CRIT_CHANCE", def.CriticalChance),
		CriticalMultiplier: envFloat64("TAP_CRIT_MULT", def.CriticalMultiplier),
		JackpotChance:      envFloat64("TAP_JACKPOT_CHANCE", def.JackpotChance),
		JackpotMultiplier:  envFloat64("TAP_JACKPOT_MULT", def.JackpotMultiplier),

		ComboThreshold:     envInt64("TAP_COMBO_THRESHOLD", def.ComboThreshold),
		ComboStep:          envFloat64("TAP_COMBO_STEP", def.ComboStep),
		ComboMaxMultiplier: envFloat64("TAP_COMBO_MAX_MULT", def.ComboMaxMultiplier),

		XPRate: envFloat64("TAP_XP_RATE", def.XPRate),

		Levels: progression.LevelCurve{
			BaseXP:   envFloat64("LEVEL_BASE_XP", def.Levels.BaseXP),
			Exponent: envFloat64("LEVEL_EXPONENT", def.Levels.Exponent),
		},
		Ranks: def.Ranks,
	}
}
