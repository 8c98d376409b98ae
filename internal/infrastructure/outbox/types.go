package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is one journaled domain event. The journal is an append-only audit
// trail of everything the event bus published.
type Entry struct {
	ID          string          `json:"id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredOn  time.Time       `json:"occurred_on"`
	Payload     json.RawMessage `json:"payload"`
	RecordedAt  time.Time       `json:"recorded_at"`

	bucketKey []byte
}

func (e *Entry) normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredOn.IsZero() {
		e.OccurredOn = time.Now()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
}
