package mq

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsumer(h Handler) *Consumer {
	return NewConsumer(nil, slog.New(slog.DiscardHandler), ConsumerConfig{
		Queue:   QueueAlertsStuckState,
		Handler: h,
	})
}

func TestNewMessage_RoundTrip(t *testing.T) {
	entity := uuid.New()
	msg, err := NewMessage(MessageTypeStuckState, StuckStatePayload{
		StateID:        200,
		AssociatedType: "payment",
		EntityID:       &entity,
		ThresholdDays:  2,
	})
	require.NoError(t, err)

	body, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, MessageTypeStuckState, decoded.Type)

	payload, err := ParsePayload[StuckStatePayload](&decoded)
	require.NoError(t, err)
	assert.Equal(t, 200, payload.StateID)
	assert.Equal(t, entity, *payload.EntityID)
}

func TestConsumer_Dispatch(t *testing.T) {
	msg, err := NewMessage(MessageTypeStepCompleted, StepCompletedPayload{Step: "MaxWeeklyBenefitStep"})
	require.NoError(t, err)
	body, err := json.Marshal(msg)
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("ack on success", func(t *testing.T) {
		var got string
		c := newTestConsumer(func(ctx context.Context, m *Message) error {
			p, err := ParsePayload[StepCompletedPayload](m)
			got = p.Step
			return err
		})
		ack, _ := c.dispatch(ctx, body)
		assert.True(t, ack)
		assert.Equal(t, "MaxWeeklyBenefitStep", got)
	})

	t.Run("requeue on transient error", func(t *testing.T) {
		c := newTestConsumer(func(ctx context.Context, m *Message) error {
			return errors.New("downstream unavailable")
		})
		ack, requeue := c.dispatch(ctx, body)
		assert.False(t, ack)
		assert.True(t, requeue)
	})

	t.Run("discard without requeue", func(t *testing.T) {
		c := newTestConsumer(func(ctx context.Context, m *Message) error {
			_, err := ParsePayload[[]int](m)
			return err
		})
		ack, requeue := c.dispatch(ctx, body)
		assert.False(t, ack)
		assert.False(t, requeue)
	})

	t.Run("malformed body goes to DLQ", func(t *testing.T) {
		c := newTestConsumer(func(ctx context.Context, m *Message) error { return nil })
		ack, requeue := c.dispatch(ctx, []byte("{"))
		assert.False(t, ack)
		assert.False(t, requeue)
	})
}

func TestTopology_AlertsDeadLetter(t *testing.T) {
	bindings := topology()
	require.Len(t, bindings, 3)
	assert.Equal(t, QueueAlertsStuckState, bindings[0].queue)
	assert.Equal(t, string(ExchangeDLQ), bindings[0].args["x-dead-letter-exchange"])
}
