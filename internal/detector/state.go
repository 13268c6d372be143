package detector

import (
	"time"

	"fraudstream/internal/domain"
)

// UserState is everything the detector remembers about one user.
type UserState struct {
	History  []domain.Transaction
	last     domain.Transaction
	hasLast  bool
	maxValue float64
}

// Last returns the most recently processed transaction for the user.
func (u *UserState) Last() (domain.Transaction, bool) {
	return u.last, u.hasLast
}

// MaxValue is the largest value in History. Only meaningful when History is
// not empty.
func (u *UserState) MaxValue() float64 { return u.maxValue }

func (u *UserState) append(tx domain.Transaction, cutoff int64, bounded bool) {
	u.History = append(u.History, tx)
	u.last, u.hasLast = tx, true
	if len(u.History) == 1 || tx.Value > u.maxValue {
		u.maxValue = tx.Value
	}
	if !bounded {
		return
	}

	drop := 0
	for drop < len(u.History)-1 && u.History[drop].Timestamp < cutoff {
		drop++
	}
	if drop == 0 {
		return
	}
	u.History = append(u.History[:0:0], u.History[drop:]...)
	u.maxValue = u.History[0].Value
	for _, h := range u.History[1:] {
		if h.Value > u.maxValue {
			u.maxValue = h.Value
		}
	}
}

// StateStore owns per-user history for one detector. It is not safe for
// concurrent use: a single processing loop reads and writes it.
type StateStore struct {
	users     map[int64]*UserState
	retention int64
}

// NewStateStore returns an empty store. A positive retention drops history
// entries older than the newest transaction's timestamp minus retention;
// zero keeps everything.
func NewStateStore(retention time.Duration) *StateStore {
	return &StateStore{
		users:     make(map[int64]*UserState),
		retention: int64(retention / time.Second),
	}
}

func (s *StateStore) GetOrCreate(userID int64) *UserState {
	st, ok := s.users[userID]
	if !ok {
		st = &UserState{}
		s.users[userID] = st
	}
	return st
}

// Append records tx as the user's latest transaction.
func (s *StateStore) Append(tx domain.Transaction) {
	s.GetOrCreate(tx.UserID).append(tx, tx.Timestamp-s.retention, s.retention > 0)
}

// Users is the number of users with state.
func (s *StateStore) Users() int { return len(s.users) }
