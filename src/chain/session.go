package chain

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the closed set of lifecycle states a Session can be
// in. A tagged variant, not an inheritance hierarchy, per DESIGN NOTES.
type SessionState int

const (
	StateInitialized SessionState = iota
	StateInProgress
	StateModified
	StateReinitialized
	StateCompleted
	StateError
)

func (s SessionState) String() string {
	switch s {
	case StateInitialized:
		return "Initialized"
	case StateInProgress:
		return "InProgress"
	case StateModified:
		return "Modified"
	case StateReinitialized:
		return "Reinitialized"
	case StateCompleted:
		return "Completed"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// MarshalJSON renders the state using its canonical name.
func (s SessionState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Event is a lifecycle transition trigger (see StateMachine).
type Event int

const (
	EventCreated Event = iota
	EventRead
	EventPatched
	EventReplaced
	EventTerminated
)

// Session is the per-client record owned exclusively by SessionStore.
type Session struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Parameters  SimulationParameters
	CurrentStep int
	TotalSteps  int
	State       SessionState
}

// clone returns a deep-enough copy for safe handoff to callers: the
// Session is a value object once returned, per the spec's ownership
// rule ("returned values are owned by the caller after the manager
// returns").
func (s *Session) clone() *Session {
	cp := *s
	return &cp
}

// active reports whether the session still counts toward the store
// (spec.md §3: "a session is active iff state not in {Completed,
// Error} AND now - updated_at < ttl").
func (s *Session) active(now time.Time, ttl time.Duration) bool {
	if s.State == StateCompleted || s.State == StateError {
		return false
	}
	return now.Sub(s.UpdatedAt) < ttl
}
