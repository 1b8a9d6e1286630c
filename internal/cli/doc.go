// Package cli реализует инструмент командной строки claimflow.
//
// # Обзор
//
// CLI: клиентская утилита для status API. Работает через HTTP и не
// импортирует внутренние пакеты системы.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для status API. Инкапсулирует HTTP-запросы, парсинг
// ответов (DataResponse, ListResponse, ErrorResponse) и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	counts, err := client.StateCounts()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - таблицы (text/tabwriter) по умолчанию
//   - JSON с флагом --json
//
// Данные выводятся в stdout, сообщения в stderr:
// claimflow state counts --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - flow: list, show
//   - state: counts, stuck
//   - entity: latest, history
//   - import-log: list, show
//
// Каждая группа создаётся фабричной функцией (NewFlowCmd и т.д.),
// принимающей clientFn и outputFn: замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
