package session

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"uc_coin/internal/cache"
	"uc_coin/internal/leaderboard"
	"uc_coin/internal/mission"
	"uc_coin/internal/monitoring"
	"uc_coin/internal/numfmt"
	"uc_coin/internal/progression"
	"uc_coin/internal/tap"
	"uc_coin/internal/types"
)

var (
	ErrInvalidUser    = errors.New("bad user_id")
	ErrUnknownMission = errors.New("unknown mission")
	ErrRateLimited    = errors.New("too many attempts")
	ErrWelcomeClaimed = errors.New("welcome bonus already claimed")
)

const (
	DEFAULT_ENERGY_LIMIT      = 1000
	DEFAULT_REGEN_PER_SEC     = 1.0
	DEFAULT_COMBO_WINDOW      = 3 * time.Second
	DEFAULT_WELCOME_BONUS     = 500
	DEFAULT_LEDGER_SIZE       = 50
	DEFAULT_LEADERBOARD_LIMIT = 100
)

// Verifier reports how far a user has progressed on a mission outside the
// game (channel membership, time on a page).
type Verifier interface {
	Progress(ctx context.Context, userID int64, m types.Mission, startedAt, now time.Time) (int64, error)
}

type Config struct {
	EnergyLimit       int64
	EnergyRegenPerSec float64
	ComboWindow       time.Duration
	WelcomeBonus      int64
	LedgerSize        int
}

func DefaultConfig() Config {
	return Config{
		EnergyLimit:       DEFAULT_ENERGY_LIMIT,
		EnergyRegenPerSec: DEFAULT_REGEN_PER_SEC,
		ComboWindow:       DEFAULT_COMBO_WINDOW,
		WelcomeBonus:      DEFAULT_WELCOME_BONUS,
		LedgerSize:        DEFAULT_LEDGER_SIZE,
	}
}

// Engine owns every user record in memory and serializes all mutations of a
// single user behind that user's mutex.
type Engine struct {
	cfg     Config
	taps    *tap.Engine
	catalog mission.Catalog

	verifier     Verifier
	promoLimiter cache.Limiter
	metrics      *monitoring.Metrics

	mu    sync.RWMutex
	users map[int64]*userState
}

type userState struct {
	mu sync.Mutex

	user           types.User
	energy         float64
	energyAt       time.Time
	lastTapAt      time.Time
	welcomeClaimed bool

	missions  map[string]types.UserMission
	startedAt map[string]time.Time
	ledger    []LedgerEntry
}

func New(cfg Config, taps *tap.Engine, catalog mission.Catalog) *Engine {
	if cfg.EnergyLimit <= 0 {
		cfg.EnergyLimit = DEFAULT_ENERGY_LIMIT
	}
	if cfg.EnergyRegenPerSec < 0 {
		cfg.EnergyRegenPerSec = 0
	}
	if cfg.LedgerSize <= 0 {
		cfg.LedgerSize = DEFAULT_LEDGER_SIZE
	}
	if taps == nil {
		taps = tap.New(tap.DefaultConfig(), nil)
	}
	if catalog == nil {
		catalog = mission.Catalog{}
	}
	return &Engine{
		cfg:     cfg,
		taps:    taps,
		catalog: catalog,
		users:   map[int64]*userState{},
	}
}

func (e *Engine) WithVerifier(v Verifier) *Engine {
	e.verifier = v
	return e
}

func (e *Engine) WithPromoLimiter(l cache.Limiter) *Engine {
	e.promoLimiter = l
	return e
}

func (e *Engine) WithMetrics(m *monitoring.Metrics) *Engine {
	e.metrics = m
	return e
}

func (e *Engine) Catalog() mission.Catalog {
	return e.catalog
}

func (e *Engine) state(userID int64, now time.Time) (*userState, error) {
	if userID <= 0 {
		return nil, ErrInvalidUser
	}

	e.mu.RLock()
	st := e.users[userID]
	e.mu.RUnlock()
	if st != nil {
		return st, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if st = e.users[userID]; st != nil {
		return st, nil
	}
	st = &userState{
		user:      types.NewUser(userID, e.cfg.EnergyLimit),
		energy:    float64(e.cfg.EnergyLimit),
		energyAt:  now,
		missions:  map[string]types.UserMission{},
		startedAt: map[string]time.Time{},
	}
	e.users[userID] = st
	e.metrics.SetCachedUsers(len(e.users))
	return st, nil
}

// Tap regenerates energy, applies combo decay and runs one tap.
func (e *Engine) Tap(ctx context.Context, userID int64, now time.Time) (tap.Result, error) {
	if err := ctx.Err(); err != nil {
		return tap.Result{}, err
	}
	now = normalizeNow(now)
	st, err := e.state(userID, now)
	if err != nil {
		return tap.Result{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	e.regen(st, now)
	if e.comboExpired(st, now) {
		st.user.Combo = 0
	}

	res, err := e.taps.Tap(st.user)
	if err != nil {
		e.metrics.RecordTapRejected("no_energy")
		return tap.Result{}, err
	}
	st.user = res.User
	st.energy--
	if st.energy < 0 {
		st.energy = 0
	}
	st.lastTapAt = now
	e.record(st, "tap", string(res.Type), res.Earned, now)
	e.metrics.RecordTap(string(res.Type), res.Earned)

	res.User = st.user
	return res, nil
}

// ClaimWelcomeBonus credits the one-time first launch bonus.
func (e *Engine) ClaimWelcomeBonus(ctx context.Context, userID int64, now time.Time) (types.User, error) {
	if err := ctx.Err(); err != nil {
		return types.User{}, err
	}
	now = normalizeNow(now)
	st, err := e.state(userID, now)
	if err != nil {
		return types.User{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	e.regen(st, now)
	if st.welcomeClaimed {
		return st.user, ErrWelcomeClaimed
	}
	st.welcomeClaimed = true
	if e.cfg.WelcomeBonus == 0 {
		return st.user, nil
	}
	st.user = st.user.Credit(e.cfg.WelcomeBonus)
	e.record(st, "welcome", "", e.cfg.WelcomeBonus, now)
	e.metrics.RecordCredit("welcome", e.cfg.WelcomeBonus)
	log.Printf("🎁 Welcome bonus %d UC credited to user %d", e.cfg.WelcomeBonus, userID)
	return st.user, nil
}

// SettingsPatch updates only the toggles that are set.
type SettingsPatch struct {
	Sound         *bool `json:"sound"`
	Vibration     *bool `json:"vibration"`
	Notifications *bool `json:"notifications"`
}

func (e *Engine) UpdateSettings(ctx context.Context, userID int64, patch SettingsPatch, now time.Time) (types.Settings, error) {
	if err := ctx.Err(); err != nil {
		return types.Settings{}, err
	}
	st, err := e.state(userID, normalizeNow(now))
	if err != nil {
		return types.Settings{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if patch.Sound != nil {
		st.user.Settings.Sound = *patch.Sound
	}
	if patch.Vibration != nil {
		st.user.Settings.Vibration = *patch.Vibration
	}
	if patch.Notifications != nil {
		st.user.Settings.Notifications = *patch.Notifications
	}
	return st.user.Settings, nil
}

// UpdateProfile stores the display name shown on the leaderboard. Empty
// values keep the current name.
func (e *Engine) UpdateProfile(ctx context.Context, userID int64, firstName, lastName string, now time.Time) (types.User, error) {
	if err := ctx.Err(); err != nil {
		return types.User{}, err
	}
	st, err := e.state(userID, normalizeNow(now))
	if err != nil {
		return types.User{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if v := strings.TrimSpace(firstName); v != "" {
		st.user.FirstName = v
	}
	if v := strings.TrimSpace(lastName); v != "" {
		st.user.LastName = v
	}
	return st.user, nil
}

// View is a user with everything derived from it that a client displays.
type View struct {
	User             types.User        `json:"user"`
	Level            progression.Level `json:"level"`
	LevelProgress    float64           `json:"levelProgress"`
	Rank             progression.Rank  `json:"rank"`
	NextRank         *progression.Tier `json:"nextRank,omitempty"`
	BalanceFormatted string            `json:"balanceFormatted"`
	EarnedFormatted  string            `json:"earnedFormatted"`
	EnergyPercent    int64             `json:"energyPercent"`
	WelcomeClaimed   bool              `json:"welcomeClaimed"`
	ActiveMissions   int               `json:"activeMissions"`
	Position         int               `json:"position"`
}

// Snapshot returns the user with energy regenerated up to now. Unknown users
// are created with a full tank.
func (e *Engine) Snapshot(userID int64, now time.Time) (View, error) {
	now = normalizeNow(now)
	st, err := e.state(userID, now)
	if err != nil {
		return View{}, err
	}

	st.mu.Lock()
	e.regen(st, now)
	u := st.user
	if e.comboExpired(st, now) {
		u.Combo = 0
	}
	welcome := st.welcomeClaimed
	active := mission.ActiveCount(mission.List(e.catalog, st.missions, mission.Filter{}))
	st.mu.Unlock()

	cfg := e.taps.Config()
	level := cfg.Levels.Calculate(u.XP)
	rank := cfg.Ranks.Calculate(u.TotalEarned)
	v := View{
		User:             u,
		Level:            level,
		LevelProgress:    level.Progress(),
		Rank:             rank,
		BalanceFormatted: numfmt.Format(u.Balance),
		EarnedFormatted:  numfmt.Format(u.TotalEarned),
		EnergyPercent:    u.EnergyPercent(),
		WelcomeClaimed:   welcome,
		ActiveMissions:   active,
		Position:         e.Position(userID),
	}
	if next, ok := cfg.Ranks.Next(rank); ok {
		v.NextRank = &next
	}
	return v, nil
}

// Leaderboard ranks every known user by lifetime earnings.
func (e *Engine) Leaderboard(limit int) []leaderboard.Entry {
	if limit <= 0 {
		limit = DEFAULT_LEADERBOARD_LIMIT
	}
	return leaderboard.Build(e.allUsers(), e.taps.Config().Ranks, limit)
}

func (e *Engine) Position(userID int64) int {
	return leaderboard.Position(e.allUsers(), userID)
}

func (e *Engine) allUsers() []types.User {
	e.mu.RLock()
	states := make([]*userState, 0, len(e.users))
	for _, st := range e.users {
		states = append(states, st)
	}
	e.mu.RUnlock()

	out := make([]types.User, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		out = append(out, st.user)
		st.mu.Unlock()
	}
	return out
}

func (e *Engine) Stats() map[string]any {
	e.mu.RLock()
	states := make([]*userState, 0, len(e.users))
	for _, st := range e.users {
		states = append(states, st)
	}
	e.mu.RUnlock()

	ledger := 0
	for _, st := range states {
		st.mu.Lock()
		ledger += len(st.ledger)
		st.mu.Unlock()
	}
	return map[string]any{
		"cached_users":   len(states),
		"ledger_entries": ledger,
		"missions":       len(e.catalog),
		"regen_per_sec":  e.cfg.EnergyRegenPerSec,
		"combo_window_s": e.cfg.ComboWindow.Seconds(),
	}
}

// regen refills energy for the time since the last update. The fractional
// part is carried in st.energy; TapsLeft exposes the whole taps.
func (e *Engine) regen(st *userState, now time.Time) {
	eMax := float64(st.user.EnergyLimit)
	st.energy = regenEnergy(st.energy, eMax, e.cfg.EnergyRegenPerSec, st.energyAt, now)
	if now.After(st.energyAt) {
		st.energyAt = now
	}
	st.user.TapsLeft = int64(math.Floor(st.energy))
}

func regenEnergy(current, eMax, regenPerSec float64, updatedAt, now time.Time) float64 {
	if eMax <= 0 {
		return 0
	}
	if current < 0 {
		current = 0
	}
	dt := now.Sub(updatedAt).Seconds()
	if dt > 0 {
		current += dt * regenPerSec
	}
	if current > eMax {
		current = eMax
	}
	return current
}

// comboExpired reports whether the gap since the last tap exceeds the combo window.
func (e *Engine) comboExpired(st *userState, now time.Time) bool {
	return e.cfg.ComboWindow > 0 && !st.lastTapAt.IsZero() && now.Sub(st.lastTapAt) > e.cfg.ComboWindow
}

func normalizeNow(now time.Time) time.Time {
	if now.IsZero() {
		return time.Now().UTC()
	}
	return now.UTC()
}
