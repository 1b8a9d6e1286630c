// Package mq: RabbitMQ-транспорт событий claimflow.
//
// Структура:
//   - connection.go: соединение с переподключением
//   - topology.go: exchanges, queues, bindings
//   - publisher.go: публикация событий
//   - consumer.go: чтение очереди
//
// События:
//   - state.stuck: сущность стоит в state дольше порога (StuckStateCheckStep)
//   - step.completed: итог запуска шага (steps.Runner)
package mq
