package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskops/backend/domain"
)

func TestRowStateRoundTrip(t *testing.T) {
	review := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	last := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	state := domain.RiskState{
		ID:              7,
		RiskID:          "RISK-007",
		Title:           "Key person dependency",
		Description:     "Single engineer holds all deployment knowledge",
		Category:        "human_resources",
		Probability:     3,
		Impact:          4,
		Status:          domain.StatusMonitoring,
		OrganizationID:  1,
		OwnerID:         2,
		CreatedBy:       3,
		RiskType:        "business",
		MitigationPlan:  "Cross-train the platform team",
		ContingencyPlan: "Contract external support",
		ReviewDate:      &review,
		LastReviewDate:  &last,
		Tags:            []string{"people", "bus-factor"},
		Metadata: map[string]interface{}{
			"severity_reviewed": true,
			"escalation_level":  float64(2),
			"contacts":          []interface{}{"alice", "bob"},
		},
		CreatedAt: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC),
	}

	row, err := rowFromState(state)
	require.NoError(t, err)
	back, err := row.toState()
	require.NoError(t, err)

	assert.Equal(t, state, back)
}

func TestRowFromStateEmptyCollections(t *testing.T) {
	state := domain.RiskState{
		ID: 1, RiskID: "RISK-001", Title: "t", Description: "d",
		Category: "legal", Probability: 1, Impact: 1, Status: domain.StatusActive,
		OrganizationID: 1, OwnerID: 1, CreatedBy: 1, RiskType: "business",
	}

	row, err := rowFromState(state)
	require.NoError(t, err)
	assert.Nil(t, row.Tags)
	assert.Nil(t, row.Metadata)

	back, err := row.toState()
	require.NoError(t, err)
	assert.Nil(t, back.Tags)
	assert.Nil(t, back.Metadata)
}

func TestToStateRejectsMalformedJSON(t *testing.T) {
	row := riskRow{Tags: []byte("{not json")}
	_, err := row.toState()
	require.Error(t, err)
}
