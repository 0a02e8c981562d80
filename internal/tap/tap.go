package tap

import (
	"errors"
	"math"
	"math/rand/v2"

	"uc_coin/internal/progression"
	"uc_coin/internal/types"
)

var ErrEnergyExhausted = errors.New("energy exhausted")

type RewardType string

const (
	RewardNormal   RewardType = "normal"
	RewardCritical RewardType = "critical"
	RewardJackpot  RewardType = "jackpot"
)

// Rand is the source used to classify taps. Float64 returns a value in [0, 1).
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Engine computes tap outcomes. It keeps no per-user state; the caller owns
// the User and must serialize taps for the same user.
type Engine struct {
	cfg Config
	rng Rand
}

type Result struct {
	User   types.User        `json:"user"`
	Earned int64             `json:"earned"`
	Type   RewardType        `json:"type"`
	XP     int64             `json:"xp"`
	Level  progression.Level `json:"level"`
	Rank   progression.Rank  `json:"rank"`
}

// New creates an engine. A nil rng falls back to the process-wide source,
// which is safe for concurrent use.
func New(cfg Config, rng Rand) *Engine {
	if rng == nil {
		rng = globalRand{}
	}
	if len(cfg.Ranks) == 0 {
		cfg.Ranks = progression.DefaultRanks
	}
	return &Engine{cfg: cfg, rng: rng}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Tap spends one energy and returns the rewarded user. On ErrEnergyExhausted
// the returned Result is empty and u is untouched.
func (e *Engine) Tap(u types.User) (Result, error) {
	if u.TapsLeft <= 0 {
		return Result{}, ErrEnergyExhausted
	}

	level := e.cfg.Levels.Calculate(u.XP)
	rank := e.cfg.Ranks.Calculate(u.TotalEarned)

	u.TapsLeft--
	u.Combo++

	kind, kindMul := e.classify()
	amount := e.baseReward(level.Level, int64(rank.Rank)) * kindMul * e.comboMultiplier(u.Combo)

	earned := int64(1)
	if r := math.Round(amount); r > 1 {
		earned = int64(r)
	}

	xp := e.xpFor(earned)
	u = u.Credit(earned)
	u.XP += xp

	return Result{
		User:   u,
		Earned: earned,
		Type:   kind,
		XP:     xp,
		Level:  e.cfg.Levels.Calculate(u.XP),
		Rank:   e.cfg.Ranks.Calculate(u.TotalEarned),
	}, nil
}

func (e *Engine) baseReward(level, rank int64) float64 {
	return e.cfg.BaseRate *
		(1 + e.cfg.LevelBonus*float64(level-1)) *
		(1 + e.cfg.RankBonus*float64(rank-1))
}

func (e *Engine) classify() (RewardType, float64) {
	r := e.rng.Float64()
	switch {
	case r < e.cfg.JackpotChance:
		return RewardJackpot, e.cfg.JackpotMultiplier
	case r < e.cfg.JackpotChance+e.cfg.CriticalChance:
		return RewardCritical, e.cfg.CriticalMultiplier
	default:
		return RewardNormal, 1
	}
}

// comboMultiplier grows by ComboStep for every full ComboThreshold taps,
// capped at ComboMaxMultiplier.
func (e *Engine) comboMultiplier(combo int64) float64 {
	if e.cfg.ComboThreshold <= 0 || combo < e.cfg.ComboThreshold {
		return 1
	}
	m := 1 + e.cfg.ComboStep*float64(combo/e.cfg.ComboThreshold)
	if m > e.cfg.ComboMaxMultiplier {
		m = e.cfg.ComboMaxMultiplier
	}
	if m < 1 {
		m = 1
	}
	return m
}

func (e *Engine) xpFor(earned int64) int64 {
	xp := int64(math.Floor(float64(earned) * e.cfg.XPRate))
	if xp < 1 {
		xp = 1
	}
	return xp
}
