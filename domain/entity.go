package domain

import "time"

// Entity carries the identity and timestamps shared by persisted aggregates.
// ID is the numeric storage surrogate and stays 0 until the repository
// assigns one on first save.
type Entity struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsPersisted reports whether the entity has been assigned a storage id.
func (e *Entity) IsPersisted() bool {
	return e != nil && e.ID > 0
}

// Touch bumps the update timestamp, initializing the creation timestamp on
// first use.
func (e *Entity) Touch() {
	if e == nil {
		return
	}
	e.UpdatedAt = time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = e.UpdatedAt
	}
}

// recorder buffers domain events raised by an aggregate until the repository
// drains them for publication.
type recorder struct {
	events []Event
}

func (r *recorder) record(event Event) {
	r.events = append(r.events, event)
}

// drain returns the buffered events and clears the buffer. A second drain
// with no intervening mutation returns nil.
func (r *recorder) drain() []Event {
	events := r.events
	r.events = nil
	return events
}
