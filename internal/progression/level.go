package progression

import "math"

// LevelCurve describes how much XP each level costs:
// leaving level L takes round(BaseXP * L^Exponent) XP.
type LevelCurve struct {
	BaseXP   float64 `json:"base_xp"`
	Exponent float64 `json:"exponent"`
}

// DefaultLevelCurve is the curve the game ships with.
var DefaultLevelCurve = LevelCurve{BaseXP: 100, Exponent: 1.5}

// Level is a user's position on the XP curve.
type Level struct {
	Level     int64 `json:"level"`
	CurrentXP int64 `json:"current_xp"`
	XPForNext int64 `json:"xp_for_next"`
}

// Progress is the share of the current level already earned, in percent.
func (l Level) Progress() float64 {
	if l.XPForNext <= 0 {
		return 0
	}
	return float64(l.CurrentXP) / float64(l.XPForNext) * 100
}

// CalculateLevel maps cumulative XP to a level on the default curve.
func CalculateLevel(xp int64) Level {
	return DefaultLevelCurve.Calculate(xp)
}

// Step returns the XP needed to go from level to level+1. Always >= 1.
func (c LevelCurve) Step(level int64) int64 {
	base := c.BaseXP
	if base < 1 {
		base = 1
	}
	exp := c.Exponent
	if exp < 0 {
		exp = 0
	}
	v := math.Round(base * math.Pow(float64(level), exp))
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	if v < 1 {
		return 1
	}
	return int64(v)
}

// Calculate walks the curve until the remaining XP no longer covers the next
// step. Negative XP is treated as zero.
func (c LevelCurve) Calculate(xp int64) Level {
	if xp < 0 {
		xp = 0
	}
	level := int64(1)
	var cumulative int64
	for {
		step := c.Step(level)
		if xp-cumulative < step {
			return Level{
				Level:     level,
				CurrentXP: xp - cumulative,
				XPForNext: step,
			}
		}
		cumulative += step
		level++
	}
}

// Threshold returns the cumulative XP at which level starts.
func (c LevelCurve) Threshold(level int64) int64 {
	var cumulative int64
	for l := int64(1); l < level; l++ {
		step := c.Step(l)
		if cumulative > math.MaxInt64-step {
			return math.MaxInt64
		}
		cumulative += step
	}
	return cumulative
}
