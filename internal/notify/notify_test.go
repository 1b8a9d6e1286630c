package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Claimflow/internal/mq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandlers() (*Handlers, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(slog.New(slog.NewJSONHandler(&buf, nil))), &buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &rec))
	return rec
}

func TestStuckState(t *testing.T) {
	h, buf := newTestHandlers()
	entityID := uuid.New()
	checked := time.Date(2021, 1, 8, 9, 0, 0, 0, time.UTC)

	msg, err := mq.NewMessage(mq.MessageTypeStuckState, mq.StuckStatePayload{
		StateLogID:     uuid.New(),
		StateID:        200,
		AssociatedType: "payment",
		EntityID:       &entityID,
		ThresholdDays:  2,
		EnteredAt:      checked.Add(-72 * time.Hour),
		CheckedAt:      checked,
	})
	require.NoError(t, err)

	require.NoError(t, h.StuckState(context.Background(), msg))

	rec := lastRecord(t, buf)
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, entityID.String(), rec["entity_id"])
	assert.EqualValues(t, 200, rec["state_id"])
}

func TestStepCompleted(t *testing.T) {
	tests := []struct {
		name      string
		payload   mq.StepCompletedPayload
		wantLevel string
	}{
		{"success", mq.StepCompletedPayload{Step: "MaxWeeklyBenefitStep", Status: "success"}, "INFO"},
		{"failure", mq.StepCompletedPayload{Step: "MaxWeeklyBenefitStep", Status: "error", Error: "boom"}, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, buf := newTestHandlers()
			msg, err := mq.NewMessage(mq.MessageTypeStepCompleted, tt.payload)
			require.NoError(t, err)

			require.NoError(t, h.StepCompleted(context.Background(), msg))
			assert.Equal(t, tt.wantLevel, lastRecord(t, buf)["level"])
		})
	}
}

func TestMalformedPayloadIsDiscarded(t *testing.T) {
	h, _ := newTestHandlers()
	msg := &mq.Message{ID: "1", Type: mq.MessageTypeStuckState, Payload: json.RawMessage(`"not an object"`)}

	err := h.StuckState(context.Background(), msg)
	assert.ErrorIs(t, err, mq.ErrDiscard)
}

func TestConsumers(t *testing.T) {
	h, _ := newTestHandlers()
	consumers := h.Consumers()
	require.Len(t, consumers, 2)
	assert.Equal(t, mq.QueueAlertsStuckState, consumers[0].Queue)
	assert.Equal(t, mq.QueueStepsCompleted, consumers[1].Queue)
}
