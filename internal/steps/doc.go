// Package steps: пакетные стадии конвейера и их обвязка.
//
// # Контракт
//
// Step.RunStep выбирает все сущности, стоящие в исходном state, и для
// каждой пишет ровно одну запись state_log. Границы коммитов задаёт шаг:
//
//	err := run.InTx(ctx, func(ctx context.Context, u steps.Unit) error {
//	    _, err := u.Engine.CreateFinishedStateLog(ctx, entity, next, outcome, nil)
//	    return err
//	})
//
// Закоммиченные пакеты остаются при сбое следующих, поэтому повторный
// запуск шага продолжает работу с того места, где она прервалась.
//
// Run.ProcessItem оборачивает единицу работы в Engine.ProcessState:
// транзакция откатывается, а запись о сбое пишется вне неё.
//
// # Runner
//
// Runner.Run создаёт import_log, привязывает его к движку, запускает
// шаг и сохраняет метрики Run.Increment в import_log.report. Метрики
// также уходят в Prometheus, итог запуска в очередь steps.completed.
//
// # Шаги
//
//   - ClaimStateBackfillStep: начальный CLAIM_IMPORTED для заявлений без истории
//   - MaxWeeklyBenefitStep: проверка лимита недельного пособия (paycap)
//   - StuckStateCheckStep: алерты о застрявших сущностях и веха проверки
package steps
