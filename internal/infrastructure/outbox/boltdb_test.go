package outbox

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskops/backend/domain"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	journal, err := Open(filepath.Join(t.TempDir(), "events.db"), "events")
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })
	return journal
}

func TestAppendAndReadBatch(t *testing.T) {
	journal := openTestJournal(t)

	first := domain.NewEvent(domain.EventRiskCreated, "RISK-001", domain.RiskCreatedPayload{RiskID: "RISK-001", Score: 12})
	second := domain.NewEvent(domain.EventRiskStatusChanged, "RISK-001", nil)
	require.NoError(t, journal.Append(first))
	require.NoError(t, journal.Append(second))

	size, err := journal.Size()
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	entries, err := journal.ReadBatch(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.EventID, entries[0].ID)
	assert.Equal(t, domain.EventRiskCreated, entries[0].EventType)
	assert.Equal(t, "RISK-001", entries[0].AggregateID)
	assert.Contains(t, string(entries[0].Payload), `"score":12`)
	assert.Equal(t, second.EventID, entries[1].ID)
}

func TestReadBatchHonorsLimit(t *testing.T) {
	journal := openTestJournal(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, journal.Append(domain.NewEvent(domain.EventRiskUpdated, "RISK-001", nil)))
	}

	entries, err := journal.ReadBatch(3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestPrune(t *testing.T) {
	journal := openTestJournal(t)
	require.NoError(t, journal.Append(domain.NewEvent(domain.EventRiskCreated, "RISK-001", nil)))
	require.NoError(t, journal.Append(domain.NewEvent(domain.EventRiskDeleted, "RISK-001", nil)))

	// Nothing is older than an hour ago.
	require.NoError(t, journal.Prune(time.Now().Add(-time.Hour)))
	size, err := journal.Size()
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	require.NoError(t, journal.Prune(time.Now().Add(time.Hour)))
	size, err = journal.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestHandlerAppends(t *testing.T) {
	journal := openTestJournal(t)
	handler := journal.Handler()

	require.NoError(t, handler(context.Background(), domain.NewEvent(domain.EventRiskReviewOverdue, "RISK-009", nil)))
	size, err := journal.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestClosedJournal(t *testing.T) {
	journal := openTestJournal(t)
	require.NoError(t, journal.Close())

	err := journal.Append(domain.NewEvent(domain.EventRiskCreated, "RISK-001", nil))
	assert.Error(t, err)
}
