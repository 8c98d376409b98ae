package domain

import "strings"

// Status values a risk can hold.
const (
	StatusActive      = "active"
	StatusMitigated   = "mitigated"
	StatusAccepted    = "accepted"
	StatusTransferred = "transferred"
	StatusAvoided     = "avoided"
	StatusClosed      = "closed"
	StatusMonitoring  = "monitoring"
)

// statusTransitions is the fixed adjacency table of allowed moves.
var statusTransitions = map[string][]string{
	StatusActive:      {StatusMitigated, StatusAccepted, StatusTransferred, StatusAvoided, StatusMonitoring, StatusClosed},
	StatusMonitoring:  {StatusActive, StatusMitigated, StatusAccepted, StatusClosed},
	StatusMitigated:   {StatusClosed, StatusMonitoring, StatusActive},
	StatusAccepted:    {StatusClosed, StatusMonitoring},
	StatusTransferred: {StatusClosed, StatusMonitoring},
	StatusAvoided:     {StatusClosed},
	StatusClosed:      {StatusActive},
}

// Status is the immutable lifecycle value object. The zero value is invalid;
// construct through NewStatus.
type Status struct {
	value string
}

// NewStatus normalizes case and whitespace and rejects unknown values.
func NewStatus(value string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if _, ok := statusTransitions[normalized]; !ok {
		return Status{}, NewValidationError("invalid risk status",
			FieldError{Field: "status", Message: "unknown status value", Value: value})
	}
	return Status{value: normalized}, nil
}

// MustStatus is a test/reconstitution helper that panics on invalid input.
func MustStatus(value string) Status {
	s, err := NewStatus(value)
	if err != nil {
		panic(err)
	}
	return s
}

// StatusValues returns the fixed status set.
func StatusValues() []string {
	return []string{
		StatusActive, StatusMitigated, StatusAccepted, StatusTransferred,
		StatusAvoided, StatusClosed, StatusMonitoring,
	}
}

func (s Status) String() string { return s.value }

// IsActive reports whether the status is "active".
func (s Status) IsActive() bool { return s.value == StatusActive }

// IsClosed reports whether the status is "closed".
func (s Status) IsClosed() bool { return s.value == StatusClosed }

// IsResolved reports whether the risk has reached any resolved status.
func (s Status) IsResolved() bool {
	switch s.value {
	case StatusMitigated, StatusAccepted, StatusTransferred, StatusAvoided, StatusClosed:
		return true
	}
	return false
}

// CanTransitionTo evaluates the move against the fixed adjacency table.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range statusTransitions[s.value] {
		if allowed == target.value {
			return true
		}
	}
	return false
}

// Equal compares statuses by value.
func (s Status) Equal(other Status) bool { return s.value == other.value }
