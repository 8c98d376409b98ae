package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRiskInput() NewRiskInput {
	return NewRiskInput{
		RiskID:         "RISK-001",
		Title:          "Data center outage",
		Description:    "Primary data center loses power during peak hours",
		Category:       "operational",
		Probability:    5,
		Impact:         5,
		OrganizationID: 1,
		OwnerID:        2,
		CreatedBy:      3,
		Tags:           []string{"Infra", "infra", " POWER "},
	}
}

func TestNewRisk(t *testing.T) {
	risk, err := NewRisk(validRiskInput())
	require.NoError(t, err)

	assert.Equal(t, "RISK-001", risk.RiskID())
	assert.Equal(t, StatusActive, risk.Status().String())
	assert.Equal(t, 25, risk.Score().Value())
	assert.True(t, risk.Score().IsCritical())
	assert.Equal(t, DefaultRiskType, risk.RiskType())
	assert.Equal(t, []string{"infra", "power"}, risk.Tags())
	assert.False(t, risk.IsPersisted())

	events := risk.PullDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventRiskCreated, events[0].EventType)
	payload, ok := events[0].Payload.(RiskCreatedPayload)
	require.True(t, ok)
	assert.Equal(t, 25, payload.Score)
	assert.Equal(t, "critical", payload.Level)

	// The buffer drains exactly once.
	assert.Empty(t, risk.PullDomainEvents())
}

func TestNewRiskValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NewRiskInput)
	}{
		{"bad risk id", func(in *NewRiskInput) { in.RiskID = "risk_1" }},
		{"empty title", func(in *NewRiskInput) { in.Title = "   " }},
		{"empty description", func(in *NewRiskInput) { in.Description = "" }},
		{"unknown category", func(in *NewRiskInput) { in.Category = "unknown" }},
		{"probability out of range", func(in *NewRiskInput) { in.Probability = 9 }},
		{"missing organization", func(in *NewRiskInput) { in.OrganizationID = 0 }},
		{"missing owner", func(in *NewRiskInput) { in.OwnerID = -1 }},
		{"bad metadata", func(in *NewRiskInput) {
			in.Metadata = map[string]interface{}{"ch": make(chan int)}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validRiskInput()
			tt.mutate(&input)
			_, err := NewRisk(input)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestChangeStatus(t *testing.T) {
	risk, err := NewRisk(validRiskInput())
	require.NoError(t, err)
	risk.PullDomainEvents()

	require.NoError(t, risk.ChangeStatus("monitoring", "under watch"))
	assert.Equal(t, StatusMonitoring, risk.Status().String())

	events := risk.PullDomainEvents()
	require.Len(t, events, 1)
	payload, ok := events[0].Payload.(RiskStatusChangedPayload)
	require.True(t, ok)
	assert.Equal(t, StatusActive, payload.FromStatus)
	assert.Equal(t, StatusMonitoring, payload.ToStatus)
	assert.Equal(t, "under watch", payload.Reason)
	assert.True(t, payload.Critical)

	// Monitoring cannot move to avoided.
	err = risk.ChangeStatus("avoided", "")
	require.Error(t, err)
	assert.True(t, IsDomainRule(err, RuleInvalidStatusTransition))
	assert.Equal(t, StatusMonitoring, risk.Status().String())
	assert.Empty(t, risk.PullDomainEvents())
}

func TestChangeStatusMitigationPlanRequired(t *testing.T) {
	input := validRiskInput()
	risk, err := NewRisk(input)
	require.NoError(t, err)

	err = risk.ChangeStatus("closed", "done")
	require.Error(t, err)
	assert.True(t, IsDomainRule(err, RuleMitigationPlanRequired))

	plan := "Failover to secondary site"
	require.NoError(t, risk.UpdateDetails(UpdateDetailsInput{MitigationPlan: &plan}))
	require.NoError(t, risk.ChangeStatus("closed", "done"))
	assert.True(t, risk.Status().IsClosed())
}

func TestChangeStatusNonCriticalCloses(t *testing.T) {
	input := validRiskInput()
	input.Probability = 2
	input.Impact = 3
	risk, err := NewRisk(input)
	require.NoError(t, err)

	require.NoError(t, risk.ChangeStatus("closed", ""))
	assert.True(t, risk.Status().IsClosed())

	// Closed risks can only reopen.
	require.NoError(t, risk.ChangeStatus("active", "recurred"))
	assert.True(t, risk.Status().IsActive())
}

func TestUpdateScore(t *testing.T) {
	input := validRiskInput()
	input.Probability = 2
	input.Impact = 2
	risk, err := NewRisk(input)
	require.NoError(t, err)
	risk.PullDomainEvents()

	require.NoError(t, risk.UpdateScore(4, 5))
	events := risk.PullDomainEvents()
	require.Len(t, events, 1)
	payload, ok := events[0].Payload.(RiskUpdatedPayload)
	require.True(t, ok)
	assert.Equal(t, []string{"score"}, payload.ChangedFields)
	assert.Equal(t, 4, payload.OldScore)
	assert.Equal(t, 20, payload.NewScore)

	// Same values are a no-op, no event.
	require.NoError(t, risk.UpdateScore(4, 5))
	assert.Empty(t, risk.PullDomainEvents())
}

func TestUpdateDetails(t *testing.T) {
	risk, err := NewRisk(validRiskInput())
	require.NoError(t, err)
	risk.PullDomainEvents()

	title := "Data center outage (extended)"
	category := "technology"
	require.NoError(t, risk.UpdateDetails(UpdateDetailsInput{Title: &title, Category: &category}))

	events := risk.PullDomainEvents()
	require.Len(t, events, 1)
	payload := events[0].Payload.(RiskUpdatedPayload)
	assert.ElementsMatch(t, []string{"title", "category"}, payload.ChangedFields)

	// Re-applying the same values raises no event.
	require.NoError(t, risk.UpdateDetails(UpdateDetailsInput{Title: &title}))
	assert.Empty(t, risk.PullDomainEvents())

	bad := ""
	err = risk.UpdateDetails(UpdateDetailsInput{Title: &bad})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, title, risk.Title())
}

func TestAssignTo(t *testing.T) {
	risk, err := NewRisk(validRiskInput())
	require.NoError(t, err)

	require.Error(t, risk.AssignTo(0))
	require.NoError(t, risk.AssignTo(2))
	assert.Equal(t, int64(2), risk.OwnerID())
	require.NoError(t, risk.AssignTo(7))
	assert.Equal(t, int64(7), risk.OwnerID())
}

func TestScheduleReview(t *testing.T) {
	risk, err := NewRisk(validRiskInput())
	require.NoError(t, err)

	err = risk.ScheduleReview(time.Now().Add(-time.Hour))
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	future := time.Now().Add(48 * time.Hour)
	require.NoError(t, risk.ScheduleReview(future))
	require.NotNil(t, risk.ReviewDate())
	assert.WithinDuration(t, future.UTC(), *risk.ReviewDate(), time.Second)
}

func TestMarkAsReviewed(t *testing.T) {
	tests := []struct {
		name        string
		probability int
		impact      int
		days        int
	}{
		{"critical every 30 days", 5, 5, 30},
		{"high every 60 days", 3, 4, 60},
		{"low every 90 days", 1, 2, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validRiskInput()
			input.Probability = tt.probability
			input.Impact = tt.impact
			risk, err := NewRisk(input)
			require.NoError(t, err)

			risk.MarkAsReviewed()
			require.NotNil(t, risk.LastReviewDate())
			require.NotNil(t, risk.ReviewDate())
			expected := time.Now().UTC().AddDate(0, 0, tt.days)
			assert.WithinDuration(t, expected, *risk.ReviewDate(), time.Minute)
		})
	}
}

func TestTags(t *testing.T) {
	risk, err := NewRisk(validRiskInput())
	require.NoError(t, err)

	risk.AddTag(" Network ")
	risk.AddTag("network")
	assert.Equal(t, []string{"infra", "power", "network"}, risk.Tags())

	risk.RemoveTag("POWER")
	assert.Equal(t, []string{"infra", "network"}, risk.Tags())

	risk.RemoveTag("absent")
	assert.Equal(t, []string{"infra", "network"}, risk.Tags())
}

func TestDeletionGuard(t *testing.T) {
	// Critical and active: not deletable.
	critical, err := NewRisk(validRiskInput())
	require.NoError(t, err)
	critical.PullDomainEvents()
	assert.False(t, critical.CanBeDeleted())

	err = critical.PrepareForDeletion()
	require.Error(t, err)
	assert.True(t, IsDomainRule(err, RuleRiskNotDeletable))
	assert.Empty(t, critical.PullDomainEvents())

	// Critical but monitoring: deletable.
	require.NoError(t, critical.ChangeStatus("monitoring", ""))
	assert.True(t, critical.CanBeDeleted())

	// Non-critical active: deletable, deletion event carries a snapshot.
	input := validRiskInput()
	input.Probability = 2
	input.Impact = 2
	minor, err := NewRisk(input)
	require.NoError(t, err)
	minor.PullDomainEvents()

	require.NoError(t, minor.PrepareForDeletion())
	events := minor.PullDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventRiskDeleted, events[0].EventType)
	payload := events[0].Payload.(RiskDeletedPayload)
	assert.Equal(t, "RISK-001", payload.RiskID)
	assert.Equal(t, 4, payload.Score)
}

func TestReconstituteRoundTrip(t *testing.T) {
	risk, err := NewRisk(validRiskInput())
	require.NoError(t, err)
	risk.SetID(42)
	risk.PullDomainEvents()

	state := risk.State()
	rebuilt := ReconstituteRisk(state)

	assert.Equal(t, state, rebuilt.State())
	assert.Empty(t, rebuilt.PullDomainEvents())
}

func TestReconstituteDefaultsRiskType(t *testing.T) {
	state := RiskState{
		ID: 1, RiskID: "RISK-002", Title: "t", Description: "d",
		Category: "legal", Probability: 2, Impact: 2, Status: StatusActive,
		OrganizationID: 1, OwnerID: 1, CreatedBy: 1,
	}
	rebuilt := ReconstituteRisk(state)
	assert.Equal(t, DefaultRiskType, rebuilt.RiskType())
}
