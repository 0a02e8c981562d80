package mission

import (
	"errors"

	"uc_coin/internal/types"
)

var (
	ErrAlreadyStarted   = errors.New("mission already started")
	ErrNotYetEligible   = errors.New("mission not yet eligible")
	ErrIncorrectCode    = errors.New("incorrect code")
	ErrAlreadyClaimed   = errors.New("mission reward already claimed")
	ErrNotStarted       = errors.New("mission not started")
	ErrNotCompleted     = errors.New("mission not completed")
	ErrAlreadyCompleted = errors.New("mission already completed")
	ErrWrongMissionType = errors.New("operation not supported for mission type")
	ErrMissionInactive  = errors.New("mission inactive")
)

type State string

const (
	StateNotStarted State = "not_started"
	StateStarted    State = "started"
	StateCompleted  State = "completed"
	StateClaimed    State = "claimed"
)

// StateOf reads the lifecycle state from the progress flags.
func StateOf(um types.UserMission) State {
	switch {
	case um.Claimed:
		return StateClaimed
	case um.Completed:
		return StateCompleted
	case um.Started:
		return StateStarted
	default:
		return StateNotStarted
	}
}

// Start moves a mission from NotStarted to Started. Progress of an already
// started mission is never reset.
func Start(m types.Mission, um types.UserMission) (types.UserMission, error) {
	if StateOf(um) != StateNotStarted {
		return um, ErrAlreadyStarted
	}
	if !m.Active {
		return um, ErrMissionInactive
	}
	um.Started = true
	return um, nil
}

// Verify folds an externally observed progress count into um and completes
// the mission once it reaches RequiredCount. On ErrNotYetEligible the
// returned record carries the updated count and may be persisted.
func Verify(m types.Mission, um types.UserMission, observed int64) (types.UserMission, error) {
	if m.Type == types.MissionPromoCode {
		return um, ErrWrongMissionType
	}
	if err := requireStarted(um); err != nil {
		return um, err
	}
	if observed > um.CurrentCount {
		um.CurrentCount = observed
	}
	if um.CurrentCount < m.Required() {
		return um, ErrNotYetEligible
	}
	um.Completed = true
	return um, nil
}

// SubmitPromoCode completes a started promo_code mission when code matches.
func SubmitPromoCode(m types.Mission, um types.UserMission, code string) (types.UserMission, error) {
	if m.Type != types.MissionPromoCode {
		return um, ErrWrongMissionType
	}
	if err := requireStarted(um); err != nil {
		return um, err
	}
	if !MatchCode(m, code) {
		return um, ErrIncorrectCode
	}
	um.Completed = true
	if um.CurrentCount < m.Required() {
		um.CurrentCount = m.Required()
	}
	return um, nil
}

// Claim marks a completed mission as claimed and credits its reward once.
func Claim(m types.Mission, um types.UserMission, u types.User) (types.UserMission, types.User, error) {
	switch StateOf(um) {
	case StateClaimed:
		return um, u, ErrAlreadyClaimed
	case StateCompleted:
	default:
		return um, u, ErrNotCompleted
	}
	um.Claimed = true
	return um, u.Credit(m.Reward), nil
}

func requireStarted(um types.UserMission) error {
	switch StateOf(um) {
	case StateNotStarted:
		return ErrNotStarted
	case StateStarted:
		return nil
	default:
		return ErrAlreadyCompleted
	}
}
