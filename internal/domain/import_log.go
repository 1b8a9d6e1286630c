package domain

import "time"

// ImportLog: метаданные одного запуска шага или загрузки файла.
//
// Шаги ссылаются на ImportLog из state_log.import_log_id, чтобы
// каждую запись можно было привязать к конкретному пакету.
type ImportLog struct {
	// ID: bigserial, 0 пока запись не сохранена.
	ID int64 `json:"import_log_id"`

	// Source: имя шага или источника (например, "MaxWeeklyBenefitStep").
	Source string `json:"source"`

	// ImportType: категория запуска ("step", "backfill").
	ImportType string `json:"import_type"`

	Status ImportLogStatus `json:"status"`

	// Report: метрики шага и текст ошибки.
	Report map[string]any `json:"report,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Duration возвращает продолжительность запуска.
// Возвращает 0, если запуск ещё не завершён.
func (l *ImportLog) Duration() time.Duration {
	if l.CompletedAt == nil {
		return 0
	}
	return l.CompletedAt.Sub(l.StartedAt)
}

// IsFinished возвращает true, если запуск завершён (в любом статусе).
func (l *ImportLog) IsFinished() bool {
	return l.Status.IsTerminal()
}

// MarkSucceeded переводит запуск в статус success с отчётом.
func (l *ImportLog) MarkSucceeded(report map[string]any) {
	now := time.Now()
	l.Status = ImportLogStatusSuccess
	l.CompletedAt = &now
	l.Report = report
}

// MarkFailed переводит запуск в статус error, сохраняя текст ошибки в отчёте.
func (l *ImportLog) MarkFailed(report map[string]any, err string) {
	now := time.Now()
	l.Status = ImportLogStatusError
	l.CompletedAt = &now
	if report == nil {
		report = make(map[string]any)
	}
	report["message"] = err
	l.Report = report
}
