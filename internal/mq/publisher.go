package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType: тип события.
type MessageType string

const (
	MessageTypeStuckState    MessageType = "state.stuck"
	MessageTypeStepCompleted MessageType = "step.completed"
)

// Message: конверт события.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// StuckStatePayload: сущность стоит в state дольше порога.
type StuckStatePayload struct {
	StateLogID     uuid.UUID  `json:"state_log_id"`
	StateID        int        `json:"state_id"`
	StateName      string     `json:"state_description"`
	AssociatedType string     `json:"associated_type"`
	EntityID       *uuid.UUID `json:"entity_id,omitempty"`
	ThresholdDays  int        `json:"threshold_days"`
	EnteredAt      time.Time  `json:"entered_at"`
	CheckedAt      time.Time  `json:"checked_at"`
}

// StepCompletedPayload: итог одного запуска шага.
type StepCompletedPayload struct {
	Step        string         `json:"step"`
	ImportLogID int64          `json:"import_log_id"`
	Status      string         `json:"status"`
	Metrics     map[string]int `json:"metrics,omitempty"`
	DurationMS  int64          `json:"duration_ms"`
	Error       string         `json:"error,omitempty"`
}

// Publisher публикует события claimflow.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// NewMessage упаковывает payload в конверт.
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   body,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Publish отправляет сообщение. Сообщения persistent.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx,
			string(exchange),
			string(routingKey),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishStuckState публикует алерт о застрявшей сущности.
// Потребитель: claimflow-notifier.
func (p *Publisher) PublishStuckState(ctx context.Context, payload StuckStatePayload) error {
	msg, err := NewMessage(MessageTypeStuckState, payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeAlerts, RoutingKeyStuckState, msg)
}

// PublishStepCompleted публикует итог запуска шага.
func (p *Publisher) PublishStepCompleted(ctx context.Context, payload StepCompletedPayload) error {
	msg, err := NewMessage(MessageTypeStepCompleted, payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeSteps, RoutingKeyCompleted, msg)
}
