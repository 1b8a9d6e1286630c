// Package scheduler запускает проход конвейера claimflow по расписанию.
//
// Структура:
//   - scheduler.go: цикл Run и один проход Tick
//   - cron.go: парсинг cron-выражений
//   - lock.go: выбор лидера через pg_try_advisory_lock
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Runner: runner,
//	    Steps:  pipeline,
//	    Cron:   cfg.Pipeline.Cron,
//	    Lock:   scheduler.NewAdvisoryLock(pool, cfg.Pipeline.LockKey),
//	    Logger: logger,
//	})
//	if err != nil {
//	    return err
//	}
//	return sched.Run(ctx)
//
// Проход выполняет только реплика, взявшая блокировку. Остальные
// пропускают тик.
package scheduler
