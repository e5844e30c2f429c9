package engine

import "fmt"

// InvalidTransitionError indicates a phase edge that the task state
// machine does not define.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// ConflictError indicates the operation was already applied or the
// entity is in a state that makes it a no-op repeat.
type ConflictError struct {
	Reason string
}

func (e ConflictError) Error() string {
	return e.Reason
}

// QuotaExceededError indicates a layanan cannot cover a reservation.
type QuotaExceededError struct {
	LayananID string
	Requested int64
	Available int64
}

func (e QuotaExceededError) Error() string {
	return fmt.Sprintf("layanan %s has %d units available, %d requested", e.LayananID, e.Available, e.Requested)
}

// ValidationError indicates malformed or out-of-range input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
