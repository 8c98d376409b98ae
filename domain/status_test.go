package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStatus(t *testing.T) {
	s, err := NewStatus("  Active ")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, s.String())

	_, err = NewStatus("escalated")
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = NewStatus("")
	require.Error(t, err)
}

func TestStatusTransitionTable(t *testing.T) {
	allowed := map[string][]string{
		StatusActive:      {StatusMitigated, StatusAccepted, StatusTransferred, StatusAvoided, StatusMonitoring, StatusClosed},
		StatusMonitoring:  {StatusActive, StatusMitigated, StatusAccepted, StatusClosed},
		StatusMitigated:   {StatusClosed, StatusMonitoring, StatusActive},
		StatusAccepted:    {StatusClosed, StatusMonitoring},
		StatusTransferred: {StatusClosed, StatusMonitoring},
		StatusAvoided:     {StatusClosed},
		StatusClosed:      {StatusActive},
	}

	for _, from := range StatusValues() {
		for _, to := range StatusValues() {
			want := false
			for _, target := range allowed[from] {
				if target == to {
					want = true
					break
				}
			}
			got := MustStatus(from).CanTransitionTo(MustStatus(to))
			assert.Equal(t, want, got, "%s -> %s", from, to)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, MustStatus(StatusActive).IsActive())
	assert.False(t, MustStatus(StatusActive).IsResolved())
	assert.True(t, MustStatus(StatusClosed).IsClosed())
	assert.True(t, MustStatus(StatusClosed).IsResolved())
	assert.True(t, MustStatus(StatusMitigated).IsResolved())
	assert.True(t, MustStatus(StatusAvoided).IsResolved())
	assert.False(t, MustStatus(StatusMonitoring).IsResolved())
}

func TestStatusSelfTransitionRejected(t *testing.T) {
	for _, value := range StatusValues() {
		s := MustStatus(value)
		assert.False(t, s.CanTransitionTo(s), "self transition %s", value)
	}
}
