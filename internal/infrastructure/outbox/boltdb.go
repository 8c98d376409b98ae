package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/riskops/backend/domain"
)

// Journal wraps BoltDB to persist a durable trail of published domain events.
// Appends are best-effort from the caller's point of view: a journal failure
// must never fail the write that produced the event.
type Journal struct {
	db     *bolt.DB
	bucket []byte
}

// Open initializes the BoltDB file and ensures the bucket exists.
func Open(path string, bucket string) (*Journal, error) {
	if bucket == "" {
		bucket = "events"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{
		db:     db,
		bucket: []byte(bucket),
	}, nil
}

// Append journals a single domain event under a time-ordered key.
func (j *Journal) Append(event domain.Event) error {
	if j == nil || j.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}
	entry := Entry{
		ID:          event.EventID,
		EventType:   event.EventType,
		AggregateID: event.AggregateID,
		OccurredOn:  event.OccurredOn,
		Payload:     payload,
	}
	entry.normalize()
	entry.bucketKey = []byte(buildKey(entry))

	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(j.bucket).Put(entry.bucketKey, raw)
	})
}

// Handler adapts the journal to an event bus subscriber, so every published
// event gets journaled regardless of its type.
func (j *Journal) Handler() func(context.Context, domain.Event) error {
	return func(_ context.Context, event domain.Event) error {
		return j.Append(event)
	}
}

// ReadBatch returns up to limit entries in recording order without removing
// them.
func (j *Journal) ReadBatch(limit int) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	var entries []Entry
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(j.bucket).Cursor()
		for k, v := c.First(); k != nil && len(entries) < limit; k, v = c.Next() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			entry.bucketKey = append([]byte(nil), k...)
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

// Prune removes entries recorded before the given timestamp.
func (j *Journal) Prune(olderThan time.Time) error {
	if j == nil || j.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return j.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(j.bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			if entry.RecordedAt.Before(olderThan) {
				if err := c.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Size returns the number of journaled entries.
func (j *Journal) Size() (int, error) {
	if j == nil || j.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := j.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(j.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Close closes the Bolt database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Stats exposes Bolt statistics for monitoring endpoints.
func (j *Journal) Stats() bolt.Stats {
	if j == nil || j.db == nil {
		return bolt.Stats{}
	}
	return j.db.Stats()
}

func buildKey(entry Entry) string {
	return fmt.Sprintf("%020d_%s", entry.RecordedAt.UnixNano(), entry.ID)
}
