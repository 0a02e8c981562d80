package session

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntry records one credit to a user's balance.
type LedgerEntry struct {
	ID      string    `json:"id"`
	Source  string    `json:"source"`
	Ref     string    `json:"ref,omitempty"`
	Amount  int64     `json:"amount"`
	Balance int64     `json:"balance"`
	At      time.Time `json:"at"`
}

// record appends a credit and keeps only the newest LedgerSize entries.
// Caller holds st.mu.
func (e *Engine) record(st *userState, source, ref string, amount int64, now time.Time) {
	st.ledger = append(st.ledger, LedgerEntry{
		ID:      uuid.NewString(),
		Source:  source,
		Ref:     ref,
		Amount:  amount,
		Balance: st.user.Balance,
		At:      now,
	})
	if over := len(st.ledger) - e.cfg.LedgerSize; over > 0 {
		st.ledger = append(st.ledger[:0], st.ledger[over:]...)
	}
}

// Ledger returns the user's recent credits, newest first.
func (e *Engine) Ledger(userID int64) ([]LedgerEntry, error) {
	if userID <= 0 {
		return nil, ErrInvalidUser
	}
	e.mu.RLock()
	st := e.users[userID]
	e.mu.RUnlock()
	if st == nil {
		return []LedgerEntry{}, nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]LedgerEntry, len(st.ledger))
	for i, entry := range st.ledger {
		out[len(st.ledger)-1-i] = entry
	}
	return out, nil
}
