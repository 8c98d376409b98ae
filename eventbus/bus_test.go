package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskops/backend/domain"
)

func TestPublishPriorityOrder(t *testing.T) {
	bus := New(nil)
	var calls []string

	bus.Subscribe("risk.created", "low", 1, func(ctx context.Context, e domain.Event) error {
		calls = append(calls, "low")
		return nil
	})
	bus.Subscribe("risk.created", "high", 10, func(ctx context.Context, e domain.Event) error {
		calls = append(calls, "high")
		return nil
	})
	bus.Subscribe("risk.created", "mid", 5, func(ctx context.Context, e domain.Event) error {
		calls = append(calls, "mid")
		return nil
	})
	bus.SubscribeAll("wildcard", 100, func(ctx context.Context, e domain.Event) error {
		calls = append(calls, "wildcard")
		return nil
	})

	bus.Publish(context.Background(), domain.NewEvent("risk.created", "RISK-001", nil))

	// Type handlers run before wildcard handlers regardless of priority.
	assert.Equal(t, []string{"high", "mid", "low", "wildcard"}, calls)
}

func TestPublishContinuesAfterHandlerFailure(t *testing.T) {
	bus := New(nil)
	var calls []string

	bus.Subscribe("risk.updated", "failing", 10, func(ctx context.Context, e domain.Event) error {
		calls = append(calls, "failing")
		return errors.New("boom")
	})
	bus.Subscribe("risk.updated", "second", 1, func(ctx context.Context, e domain.Event) error {
		calls = append(calls, "second")
		return nil
	})

	bus.Publish(context.Background(), domain.NewEvent("risk.updated", "RISK-001", nil))
	assert.Equal(t, []string{"failing", "second"}, calls)
}

func TestPublishAllKeepsEventOrder(t *testing.T) {
	bus := New(nil)
	var seen []string

	bus.SubscribeAll("collector", 0, func(ctx context.Context, e domain.Event) error {
		seen = append(seen, e.EventType)
		return nil
	})

	bus.PublishAll(context.Background(), []domain.Event{
		domain.NewEvent("risk.created", "RISK-001", nil),
		domain.NewEvent("risk.status_changed", "RISK-001", nil),
		domain.NewEvent("risk.deleted", "RISK-001", nil),
	})

	assert.Equal(t, []string{"risk.created", "risk.status_changed", "risk.deleted"}, seen)
}

func TestPublishUnmatchedTypeOnlyHitsWildcard(t *testing.T) {
	bus := New(nil)
	typed, wildcard := 0, 0

	bus.Subscribe("risk.created", "typed", 0, func(ctx context.Context, e domain.Event) error {
		typed++
		return nil
	})
	bus.SubscribeAll("wildcard", 0, func(ctx context.Context, e domain.Event) error {
		wildcard++
		return nil
	})

	bus.Publish(context.Background(), domain.NewEvent("risk.review_overdue", "RISK-002", nil))
	assert.Equal(t, 0, typed)
	assert.Equal(t, 1, wildcard)
}

func TestClear(t *testing.T) {
	bus := New(nil)
	count := 0

	bus.Subscribe("risk.created", "typed", 0, func(ctx context.Context, e domain.Event) error {
		count++
		return nil
	})
	bus.SubscribeAll("wildcard", 0, func(ctx context.Context, e domain.Event) error {
		count++
		return nil
	})
	bus.Clear()

	bus.Publish(context.Background(), domain.NewEvent("risk.created", "RISK-001", nil))
	require.Zero(t, count)
}
