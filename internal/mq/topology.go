package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange: имя обменника.
type Exchange string

// Queue: имя очереди.
type Queue string

// RoutingKey: ключ маршрутизации.
type RoutingKey string

const (
	ExchangeAlerts Exchange = "claimflow.alerts"
	ExchangeSteps  Exchange = "claimflow.steps"
	ExchangeDLQ    Exchange = "claimflow.dlq"
)

const (
	QueueAlertsStuckState Queue = "alerts.stuck_state"
	QueueStepsCompleted   Queue = "steps.completed"
	QueueDLQAlerts        Queue = "dlq.alerts"
)

const (
	RoutingKeyStuckState RoutingKey = "stuck_state"
	RoutingKeyCompleted  RoutingKey = "completed"
	RoutingKeyDLQAlerts  RoutingKey = "alerts"
)

// binding: очередь, её обменник и аргументы.
type binding struct {
	queue      Queue
	exchange   Exchange
	routingKey RoutingKey
	args       amqp.Table
}

// topology возвращает объявления очередей модуля.
//
//	claimflow.alerts (direct)
//	└── alerts.stuck_state [stuck_state], DLQ: dlq.alerts
//	claimflow.steps (direct)
//	└── steps.completed [completed]
//	claimflow.dlq (direct)
//	└── dlq.alerts [alerts]
func topology() []binding {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQAlerts),
	}
	return []binding{
		{QueueAlertsStuckState, ExchangeAlerts, RoutingKeyStuckState, dlqArgs},
		{QueueStepsCompleted, ExchangeSteps, RoutingKeyCompleted, nil},
		{QueueDLQAlerts, ExchangeDLQ, RoutingKeyDLQAlerts, nil},
	}
}

// SetupTopology объявляет обменники, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range []Exchange{ExchangeAlerts, ExchangeSteps, ExchangeDLQ} {
			err := ch.ExchangeDeclare(
				string(ex), // name
				"direct",   // type
				true,       // durable
				false,      // auto-deleted
				false,      // internal
				false,      // no-wait
				nil,        // arguments
			)
			if err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex, err)
			}
		}

		for _, b := range topology() {
			_, err := ch.QueueDeclare(
				string(b.queue), // name
				true,            // durable
				false,           // delete when unused
				false,           // exclusive
				false,           // no-wait
				b.args,          // arguments
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}

			err = ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil)
			if err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}
		return nil
	})
}
