package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskops/backend/domain"
	"github.com/riskops/backend/eventbus"
	"github.com/riskops/backend/repository"
)

func newRisk(t *testing.T, riskID, title string, probability, impact int, opts ...func(*domain.NewRiskInput)) *domain.Risk {
	t.Helper()
	input := domain.NewRiskInput{
		RiskID:         riskID,
		Title:          title,
		Description:    "description of " + title,
		Category:       "operational",
		Probability:    probability,
		Impact:         impact,
		OrganizationID: 1,
		OwnerID:        1,
		CreatedBy:      1,
	}
	for _, opt := range opts {
		opt(&input)
	}
	risk, err := domain.NewRisk(input)
	require.NoError(t, err)
	return risk
}

func TestSaveAssignsIDAndPublishes(t *testing.T) {
	bus := eventbus.New(nil)
	var published []domain.Event
	bus.SubscribeAll("collector", 0, func(ctx context.Context, e domain.Event) error {
		published = append(published, e)
		return nil
	})
	repo := NewRiskRepository(bus, nil)

	risk := newRisk(t, "RISK-001", "First", 2, 2)
	require.NoError(t, repo.Save(context.Background(), risk))

	assert.True(t, risk.IsPersisted())
	require.Len(t, published, 1)
	assert.Equal(t, domain.EventRiskCreated, published[0].EventType)

	// A second save publishes nothing: the buffer was already drained.
	require.NoError(t, repo.Save(context.Background(), risk))
	assert.Len(t, published, 1)
}

func TestFindByID(t *testing.T) {
	repo := NewRiskRepository(nil, nil)
	risk := newRisk(t, "RISK-001", "First", 2, 2)
	require.NoError(t, repo.Save(context.Background(), risk))

	found, err := repo.FindByID(context.Background(), risk.ID)
	require.NoError(t, err)
	assert.Equal(t, "RISK-001", found.RiskID())

	_, err = repo.FindByID(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestListPagination(t *testing.T) {
	repo := NewRiskRepository(nil, nil)
	ctx := context.Background()
	for i := 1; i <= 25; i++ {
		risk := newRisk(t, fmt.Sprintf("RISK-%03d", i), fmt.Sprintf("Risk %02d", i), 2, 2)
		require.NoError(t, repo.Save(ctx, risk))
	}

	result, err := repo.List(ctx, repository.ListQuery{
		Sort: repository.Sort{Field: repository.SortByTitle},
		Page: repository.Page{Number: 2, Limit: 10},
	})
	require.NoError(t, err)

	assert.Equal(t, 25, result.Total)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 10, result.Limit)
	assert.Equal(t, 3, result.TotalPages)
	assert.True(t, result.HasNext)
	assert.True(t, result.HasPrevious)
	require.Len(t, result.Items, 10)
	assert.Equal(t, "Risk 11", result.Items[0].Title())
	assert.Equal(t, "Risk 20", result.Items[9].Title())

	// Defaults: page 1, limit 20, and the limit cap.
	result, err = repo.List(ctx, repository.ListQuery{Page: repository.Page{Number: 0, Limit: 0}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.Limit)
	assert.False(t, result.HasPrevious)

	result, err = repo.List(ctx, repository.ListQuery{Page: repository.Page{Number: 1, Limit: 500}})
	require.NoError(t, err)
	assert.Equal(t, repository.MaxLimit, result.Limit)
	assert.Len(t, result.Items, 25)
}

func TestListPageBeyondEnd(t *testing.T) {
	repo := NewRiskRepository(nil, nil)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.Save(ctx, newRisk(t, fmt.Sprintf("RISK-%03d", i), fmt.Sprintf("Risk %d", i), 2, 2)))
	}

	result, err := repo.List(ctx, repository.ListQuery{Page: repository.Page{Number: 5, Limit: 10}})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, 3, result.Total)
	assert.False(t, result.HasNext)
}

func TestListFilters(t *testing.T) {
	repo := NewRiskRepository(nil, nil)
	ctx := context.Background()

	low := newRisk(t, "RISK-001", "Low legal", 1, 3, func(in *domain.NewRiskInput) {
		in.Category = "legal"
		in.Tags = []string{"contract"}
	})
	medium := newRisk(t, "RISK-002", "Medium ops", 2, 4)
	high := newRisk(t, "RISK-003", "High cyber", 3, 4, func(in *domain.NewRiskInput) {
		in.Category = "cybersecurity"
		in.OwnerID = 2
	})
	critical := newRisk(t, "RISK-004", "Critical cyber", 4, 5, func(in *domain.NewRiskInput) {
		in.Category = "cybersecurity"
		in.OrganizationID = 2
	})
	for _, r := range []*domain.Risk{low, medium, high, critical} {
		require.NoError(t, repo.Save(ctx, r))
	}
	require.NoError(t, repo.UpdateStatusBulk(ctx, []int64{medium.ID}, "monitoring", ""))

	tests := []struct {
		name   string
		filter repository.Filter
		want   []string
	}{
		{"by level", repository.Filter{RiskLevels: []string{"high", "critical"}}, []string{"RISK-003", "RISK-004"}},
		{"by status", repository.Filter{Statuses: []string{"monitoring"}}, []string{"RISK-002"}},
		{"by category", repository.Filter{Categories: []string{"cybersecurity"}}, []string{"RISK-003", "RISK-004"}},
		{"by tag", repository.Filter{Tags: []string{"CONTRACT"}}, []string{"RISK-001"}},
		{"by owner", repository.Filter{OwnerID: ptr(int64(2))}, []string{"RISK-003"}},
		{"by organization", repository.Filter{OrganizationID: ptr(int64(2))}, []string{"RISK-004"}},
		{"by search", repository.Filter{SearchText: "cyber"}, []string{"RISK-003", "RISK-004"}},
		{"fields combine with AND", repository.Filter{Categories: []string{"cybersecurity"}, OrganizationID: ptr(int64(1))}, []string{"RISK-003"}},
		{"no match", repository.Filter{Statuses: []string{"closed"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(ctx, repository.ListQuery{Filter: tt.filter})
			require.NoError(t, err)
			var got []string
			for _, r := range result.Items {
				got = append(got, r.RiskID())
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestListSortByScoreDescending(t *testing.T) {
	repo := NewRiskRepository(nil, nil)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, newRisk(t, "RISK-001", "A", 1, 3)))
	require.NoError(t, repo.Save(ctx, newRisk(t, "RISK-002", "B", 4, 5)))
	require.NoError(t, repo.Save(ctx, newRisk(t, "RISK-003", "C", 2, 4)))

	result, err := repo.List(ctx, repository.ListQuery{
		Sort: repository.Sort{Field: repository.SortByScore, Descending: true},
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	assert.Equal(t, "RISK-002", result.Items[0].RiskID())
	assert.Equal(t, "RISK-003", result.Items[1].RiskID())
	assert.Equal(t, "RISK-001", result.Items[2].RiskID())
}

func TestGetStatistics(t *testing.T) {
	repo := NewRiskRepository(nil, nil)
	ctx := context.Background()

	// Scores 3, 8, 12, 20: one risk per level.
	require.NoError(t, repo.Save(ctx, newRisk(t, "RISK-001", "Low", 1, 3)))
	require.NoError(t, repo.Save(ctx, newRisk(t, "RISK-002", "Medium", 2, 4)))
	require.NoError(t, repo.Save(ctx, newRisk(t, "RISK-003", "High", 3, 4, func(in *domain.NewRiskInput) {
		in.Category = "financial"
	})))
	require.NoError(t, repo.Save(ctx, newRisk(t, "RISK-004", "Critical", 4, 5)))
	require.NoError(t, repo.UpdateStatusBulk(ctx, []int64{1}, "closed", ""))

	// One overdue review, reconstituted because review dates only schedule forward.
	overdue := newRisk(t, "RISK-005", "Overdue", 1, 2)
	state := overdue.State()
	past := time.Now().Add(-24 * time.Hour)
	state.ReviewDate = &past
	require.NoError(t, repo.Save(ctx, domain.ReconstituteRisk(state)))

	stats, err := repo.GetStatistics(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 4, stats.ByStatus[domain.StatusActive])
	assert.Equal(t, 1, stats.ByStatus[domain.StatusClosed])
	assert.Equal(t, 4, stats.ByCategory["operational"])
	assert.Equal(t, 1, stats.ByCategory["financial"])
	assert.Equal(t, 2, stats.ByLevel["low"])
	assert.Equal(t, 1, stats.ByLevel["medium"])
	assert.Equal(t, 1, stats.ByLevel["high"])
	assert.Equal(t, 1, stats.ByLevel["critical"])
	assert.Equal(t, 4, stats.Active)
	assert.Equal(t, 1, stats.Closed)
	assert.Equal(t, 1, stats.OverdueReviews)
	assert.InDelta(t, 9.0, stats.AverageScore, 0.001)
}

func TestGetStatisticsScopedToOrganization(t *testing.T) {
	repo := NewRiskRepository(nil, nil)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, newRisk(t, "RISK-001", "Org one", 2, 2)))
	require.NoError(t, repo.Save(ctx, newRisk(t, "RISK-002", "Org two", 4, 5, func(in *domain.NewRiskInput) {
		in.OrganizationID = 2
	})))

	stats, err := repo.GetStatistics(ctx, ptr(int64(2)))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.ByLevel["critical"])
	assert.InDelta(t, 20.0, stats.AverageScore, 0.001)
}

func TestFindOverdueReviews(t *testing.T) {
	repo := NewRiskRepository(nil, nil)
	ctx := context.Background()

	current := newRisk(t, "RISK-001", "Scheduled", 2, 2)
	require.NoError(t, current.ScheduleReview(time.Now().Add(48*time.Hour)))
	require.NoError(t, repo.Save(ctx, current))

	overdue := newRisk(t, "RISK-002", "Overdue", 2, 2)
	state := overdue.State()
	past := time.Now().Add(-time.Hour)
	state.ReviewDate = &past
	require.NoError(t, repo.Save(ctx, domain.ReconstituteRisk(state)))

	found, err := repo.FindOverdueReviews(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "RISK-002", found[0].RiskID())
}

func TestNextRiskIDNumber(t *testing.T) {
	repo := NewRiskRepository(nil, nil)
	ctx := context.Background()

	n, err := repo.NextRiskIDNumber(ctx, "RISK")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.Save(ctx, newRisk(t, "RISK-007", "Seventh", 2, 2)))
	require.NoError(t, repo.Save(ctx, newRisk(t, "SEC-099", "Other prefix", 2, 2)))

	n, err = repo.NextRiskIDNumber(ctx, "RISK")
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	n, err = repo.NextRiskIDNumber(ctx, "SEC")
	require.NoError(t, err)
	assert.Equal(t, 100, n)
}

func TestDeleteRequiresExistingRow(t *testing.T) {
	bus := eventbus.New(nil)
	var published []domain.Event
	bus.SubscribeAll("collector", 0, func(ctx context.Context, e domain.Event) error {
		published = append(published, e)
		return nil
	})
	repo := NewRiskRepository(bus, nil)
	ctx := context.Background()

	risk := newRisk(t, "RISK-001", "Deletable", 2, 2)
	require.NoError(t, repo.Save(ctx, risk))
	published = nil

	require.NoError(t, risk.PrepareForDeletion())
	require.NoError(t, repo.Delete(ctx, risk))
	require.Len(t, published, 1)
	assert.Equal(t, domain.EventRiskDeleted, published[0].EventType)

	_, err := repo.FindByID(ctx, risk.ID)
	assert.True(t, domain.IsNotFound(err))

	err = repo.Delete(ctx, risk)
	assert.True(t, domain.IsNotFound(err))
}

func TestDeleteManyAbortsOnGuardedRisk(t *testing.T) {
	repo := NewRiskRepository(nil, nil)
	ctx := context.Background()

	deletable := newRisk(t, "RISK-001", "Minor", 2, 2)
	guarded := newRisk(t, "RISK-002", "Critical active", 5, 5)
	require.NoError(t, repo.Save(ctx, deletable))
	require.NoError(t, repo.Save(ctx, guarded))

	err := repo.DeleteMany(ctx, []int64{deletable.ID, guarded.ID})
	require.Error(t, err)
	assert.True(t, domain.IsDomainRule(err, domain.RuleRiskNotDeletable))

	// The guarded risk survives; the earlier item was already removed.
	_, err = repo.FindByID(ctx, guarded.ID)
	require.NoError(t, err)
	_, err = repo.FindByID(ctx, deletable.ID)
	assert.True(t, domain.IsNotFound(err))
}

func TestUpdateStatusBulk(t *testing.T) {
	repo := NewRiskRepository(nil, nil)
	ctx := context.Background()

	first := newRisk(t, "RISK-001", "First", 2, 2)
	second := newRisk(t, "RISK-002", "Second", 2, 3)
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))

	require.NoError(t, repo.UpdateStatusBulk(ctx, []int64{first.ID, second.ID}, "monitoring", "batch review"))

	for _, id := range []int64{first.ID, second.ID} {
		found, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "monitoring", found.Status().String())
	}

	err := repo.UpdateStatusBulk(ctx, []int64{first.ID}, "avoided", "")
	require.Error(t, err)
	assert.True(t, domain.IsDomainRule(err, domain.RuleInvalidStatusTransition))
}

func ptr[T any](v T) *T { return &v }
