package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"uc_coin/internal/mission"
	"uc_coin/internal/types"
)

// MissionView is a mission as a client sees it, with the user's progress.
type MissionView struct {
	Mission      types.PublicMission `json:"mission"`
	Progress     types.UserMission   `json:"progress"`
	State        mission.State       `json:"state"`
	DisplayCount int64               `json:"displayCount"`
	Percent      int64               `json:"percent"`
}

func viewOf(m types.Mission, um types.UserMission) MissionView {
	entry := mission.Entry{Mission: m, Progress: um, State: mission.StateOf(um)}
	return MissionView{
		Mission:      m.Public(),
		Progress:     um,
		State:        entry.State,
		DisplayCount: um.DisplayCount(m.Required()),
		Percent:      entry.Percent(),
	}
}

// Missions lists the catalog for a user, incomplete first.
func (e *Engine) Missions(userID int64, f mission.Filter) ([]MissionView, int, error) {
	st, err := e.state(userID, normalizeNow(time.Time{}))
	if err != nil {
		return nil, 0, err
	}

	st.mu.Lock()
	entries := mission.List(e.catalog, st.missions, f)
	st.mu.Unlock()

	out := make([]MissionView, len(entries))
	for i, entry := range entries {
		out[i] = viewOf(entry.Mission, entry.Progress)
	}
	return out, mission.ActiveCount(entries), nil
}

func (e *Engine) StartMission(ctx context.Context, userID int64, missionID string, now time.Time) (MissionView, error) {
	if err := ctx.Err(); err != nil {
		return MissionView{}, err
	}
	now = normalizeNow(now)
	m, st, err := e.lookup(userID, missionID, now)
	if err != nil {
		return MissionView{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	um, err := mission.Start(m, st.missions[missionID])
	e.metrics.RecordMission("start", resultLabel(err))
	if err != nil {
		return viewOf(m, um), err
	}
	st.missions[missionID] = um
	st.startedAt[missionID] = now
	return viewOf(m, um), nil
}

// VerifyMission asks the verifier for the user's progress and completes the
// mission once the required count is reached. Partial progress is kept.
func (e *Engine) VerifyMission(ctx context.Context, userID int64, missionID string, now time.Time) (MissionView, error) {
	if err := ctx.Err(); err != nil {
		return MissionView{}, err
	}
	now = normalizeNow(now)
	m, st, err := e.lookup(userID, missionID, now)
	if err != nil {
		return MissionView{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	um := st.missions[missionID]
	var observed int64
	if mission.StateOf(um) == mission.StateStarted && m.Type != types.MissionPromoCode && e.verifier != nil {
		observed, err = e.verifier.Progress(ctx, userID, m, st.startedAt[missionID], now)
		if err != nil {
			e.metrics.RecordMission("verify", "error")
			log.Printf("❌ Verify mission %s for user %d: %v", missionID, userID, err)
			return viewOf(m, um), fmt.Errorf("verify mission %s: %w", missionID, err)
		}
	}

	um, err = mission.Verify(m, um, observed)
	e.metrics.RecordMission("verify", resultLabel(err))
	if err == nil || errors.Is(err, mission.ErrNotYetEligible) {
		st.missions[missionID] = um
	}
	return viewOf(m, um), err
}

// SubmitPromoCode checks the attempt limiter before comparing the code.
func (e *Engine) SubmitPromoCode(ctx context.Context, userID int64, missionID, code string, now time.Time) (MissionView, error) {
	if err := ctx.Err(); err != nil {
		return MissionView{}, err
	}
	now = normalizeNow(now)
	m, st, err := e.lookup(userID, missionID, now)
	if err != nil {
		return MissionView{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	um := st.missions[missionID]
	if e.promoLimiter != nil {
		key := "promo:" + strconv.FormatInt(userID, 10) + ":" + missionID
		ok, err := e.promoLimiter.Allow(ctx, key)
		if err != nil {
			return viewOf(m, um), fmt.Errorf("promo limiter: %w", err)
		}
		if !ok {
			e.metrics.RecordMission("promo", resultLabel(ErrRateLimited))
			return viewOf(m, um), ErrRateLimited
		}
	}

	um, err = mission.SubmitPromoCode(m, um, code)
	e.metrics.RecordMission("promo", resultLabel(err))
	if err != nil {
		return viewOf(m, um), err
	}
	st.missions[missionID] = um
	return viewOf(m, um), nil
}

type ClaimResult struct {
	Mission MissionView `json:"mission"`
	Reward  int64       `json:"reward"`
	User    types.User  `json:"user"`
}

// ClaimMission credits a completed mission's reward exactly once.
func (e *Engine) ClaimMission(ctx context.Context, userID int64, missionID string, now time.Time) (ClaimResult, error) {
	if err := ctx.Err(); err != nil {
		return ClaimResult{}, err
	}
	now = normalizeNow(now)
	m, st, err := e.lookup(userID, missionID, now)
	if err != nil {
		return ClaimResult{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	e.regen(st, now)
	um, u, err := mission.Claim(m, st.missions[missionID], st.user)
	e.metrics.RecordMission("claim", resultLabel(err))
	if err != nil {
		return ClaimResult{Mission: viewOf(m, um), User: st.user}, err
	}
	st.missions[missionID] = um
	st.user = u
	e.record(st, "mission", missionID, m.Reward, now)
	e.metrics.RecordCredit("mission", m.Reward)
	log.Printf("✅ Mission %s claimed by user %d: +%d UC", missionID, userID, m.Reward)

	return ClaimResult{Mission: viewOf(m, um), Reward: m.Reward, User: u}, nil
}

func (e *Engine) lookup(userID int64, missionID string, now time.Time) (types.Mission, *userState, error) {
	m, ok := e.catalog.Get(missionID)
	if !ok {
		return types.Mission{}, nil, ErrUnknownMission
	}
	st, err := e.state(userID, now)
	if err != nil {
		return types.Mission{}, nil, err
	}
	return m, st, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, mission.ErrNotYetEligible):
		return "not_eligible"
	case errors.Is(err, mission.ErrIncorrectCode):
		return "incorrect_code"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "rejected"
	}
}
