package statelog

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/shaiso/Claimflow/internal/domain"
)

// ProcessState выполняет fn для entity. Если fn вернула ошибку или
// запаниковала, в state_log пишется переход обратно в prior с outcome,
// называющим тип ошибки, после чего ошибка возвращается без изменений
// (паника пробрасывается дальше).
//
// Запись о сбое делается через e. Чтобы она пережила откат транзакции
// fn, e не должен быть привязан к этой транзакции: см. steps.Run.ProcessItem.
func (e *Engine) ProcessState(
	ctx context.Context,
	prior domain.State,
	entity Entity,
	fn func(ctx context.Context) error,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, werr := e.RecordFailure(ctx, prior, entity, panicError{value: r}); werr != nil {
				e.logger.ErrorContext(ctx, "record failure after panic", "error", werr)
			}
			panic(r)
		}
	}()

	if err = fn(ctx); err != nil {
		if _, werr := e.RecordFailure(ctx, prior, entity, err); werr != nil {
			e.logger.ErrorContext(ctx, "record failure", "error", werr, "cause", err)
		}
		return err
	}
	return nil
}

// RecordFailure пишет переход entity в prior с outcome
// "Hit exception: <тип ошибки>".
func (e *Engine) RecordFailure(ctx context.Context, prior domain.State, entity Entity, cause error) (*domain.StateLog, error) {
	outcome := domain.BuildOutcome(
		"Hit exception: "+ErrorTypeName(cause),
		nil,
		map[string]any{"error": cause.Error()},
	)
	return e.CreateFinishedStateLog(ctx, entity, prior, outcome, nil)
}

// ErrorTypeName возвращает имя типа первой ошибки цепочки, объявленной
// вне пакетов errors и fmt. Если таких нет (errors.New, обёрнутая через
// %w), возвращается текст самой внутренней ошибки: обычно это сентинел.
// Для паники: тип значения, переданного в panic.
func ErrorTypeName(err error) string {
	var p panicError
	if errors.As(err, &p) {
		return fmt.Sprintf("%T", p.value)
	}
	inner := err
	for e := err; e != nil; e = errors.Unwrap(e) {
		if !isPlainError(e) {
			return fmt.Sprintf("%T", e)
		}
		inner = e
	}
	return inner.Error()
}

// isPlainError: безымянная ошибка или обёртка из errors/fmt.
func isPlainError(err error) bool {
	t := reflect.TypeOf(err)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.PkgPath() {
	case "errors", "fmt":
		return true
	}
	return false
}

// panicError оборачивает значение паники для записи в outcome.
type panicError struct {
	value any
}

func (p panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}
