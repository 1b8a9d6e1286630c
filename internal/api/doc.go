// Package api содержит HTTP API статуса конвейера (только чтение).
//
// Структура:
//   - handler.go: Handler с DI (движок state_log, import_log, logger)
//   - routes.go: регистрация маршрутов
//   - middleware.go: middleware (logging, recovery)
//   - response.go: унифицированные JSON-ответы и обработка ошибок
//   - dto.go: Data Transfer Objects
//   - flow_handler.go: каталог /flows
//   - state_handler.go: /states (счётчики, застрявшие)
//   - entity_handler.go: /entities (текущая запись, история)
//   - import_log_handler.go: /import-logs
package api
