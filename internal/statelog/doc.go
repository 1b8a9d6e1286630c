// Package statelog ведёт журнал переходов сущностей по flows.
//
// Две таблицы:
//   - state_log: неизменяемые записи "сущность достигла state"
//   - latest_state_log: указатель на текущую запись для пары (entity, flow)
//
// Engine: единственный код, который изменяет latest_state_log.
// История пары восстанавливается обходом state_log.prev_state_log_id.
//
// Переходы не проверяются: движок записывает любой переданный state,
// допустимость перехода решает шаг.
package statelog
