package domain

import (
	"time"

	"github.com/google/uuid"
)

// Domain event types raised by the Risk aggregate.
const (
	EventRiskCreated       = "risk.created"
	EventRiskUpdated       = "risk.updated"
	EventRiskStatusChanged = "risk.status_changed"
	EventRiskDeleted       = "risk.deleted"
	EventRiskReviewOverdue = "risk.review_overdue"
)

// Event is an immutable record of a state change inside an aggregate. It is
// buffered by the aggregate that raised it, drained by the repository after a
// successful save, and handed to the event bus for dispatch.
type Event struct {
	EventID     string      `json:"event_id"`
	EventType   string      `json:"event_type"`
	AggregateID string      `json:"aggregate_id"`
	OccurredOn  time.Time   `json:"occurred_on"`
	Payload     interface{} `json:"payload"`
}

// NewEvent stamps a fresh event with a unique id and the current time.
func NewEvent(eventType, aggregateID string, payload interface{}) Event {
	return Event{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		AggregateID: aggregateID,
		OccurredOn:  time.Now().UTC(),
		Payload:     payload,
	}
}

// RiskCreatedPayload captures the payload for risk.created events.
type RiskCreatedPayload struct {
	RiskID         string `json:"risk_id"`
	Title          string `json:"title"`
	Category       string `json:"category"`
	Score          int    `json:"score"`
	Level          string `json:"level"`
	Status         string `json:"status"`
	OrganizationID int64  `json:"organization_id"`
	OwnerID        int64  `json:"owner_id"`
	CreatedBy      int64  `json:"created_by"`
}

// RiskUpdatedPayload captures the payload for risk.updated events. For score
// updates the old/new probability, impact, and score are recorded; for detail
// updates only ChangedFields is set.
type RiskUpdatedPayload struct {
	RiskID         string   `json:"risk_id"`
	ChangedFields  []string `json:"changed_fields"`
	OldProbability int      `json:"old_probability,omitempty"`
	NewProbability int      `json:"new_probability,omitempty"`
	OldImpact      int      `json:"old_impact,omitempty"`
	NewImpact      int      `json:"new_impact,omitempty"`
	OldScore       int      `json:"old_score,omitempty"`
	NewScore       int      `json:"new_score,omitempty"`
}

// RiskStatusChangedPayload captures the payload for risk.status_changed events.
type RiskStatusChangedPayload struct {
	RiskID     string `json:"risk_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	Reason     string `json:"reason,omitempty"`
	Score      int    `json:"score"`
	Critical   bool   `json:"critical"`
}

// RiskDeletedPayload captures a snapshot of key fields at deletion time.
type RiskDeletedPayload struct {
	RiskID         string `json:"risk_id"`
	Title          string `json:"title"`
	Category       string `json:"category"`
	Status         string `json:"status"`
	Score          int    `json:"score"`
	Level          string `json:"level"`
	OrganizationID int64  `json:"organization_id"`
}

// RiskReviewOverduePayload captures the payload for risk.review_overdue events.
type RiskReviewOverduePayload struct {
	RiskID     string    `json:"risk_id"`
	Title      string    `json:"title"`
	Level      string    `json:"level"`
	ReviewDate time.Time `json:"review_date"`
}
