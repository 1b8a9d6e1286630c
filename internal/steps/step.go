package steps

import (
	"context"
	"errors"
)

// Ошибки шагов.
var (
	// ErrStepNotFound: шаг не найден в реестре.
	ErrStepNotFound = errors.New("step not found")

	// ErrInvalidConfig: невалидная конфигурация шага.
	ErrInvalidConfig = errors.New("invalid step config")
)

// Step: одна пакетная стадия конвейера.
//
// RunStep выбирает все сущности, стоящие в исходном state, и для каждой
// пишет ровно одну новую запись state_log (успех или ошибка). Повторный
// запуск безопасен: уже переведённые сущности в выборку не попадают.
type Step interface {
	// Name: имя шага в реестре, import_log.source и метриках.
	Name() string

	// RunStep выполняет один проход. Границы коммитов шаг задаёт
	// сам через Run.InTx.
	RunStep(ctx context.Context, run *Run) error
}
