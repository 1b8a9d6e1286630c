package statelog

import "errors"

var (
	// ErrEntityNotPersisted: у сущности нет ID (ещё не сохранена).
	ErrEntityNotPersisted = errors.New("entity is not persisted")

	// ErrConcurrentTransition: указатель latest_state_log изменился
	// между чтением и записью.
	ErrConcurrentTransition = errors.New("concurrent transition for entity and flow")

	// ErrUnknownState: state отсутствует в каталоге.
	ErrUnknownState = errors.New("unknown state")

	// ErrUnknownAssociatedType: тип сущности не поддерживается.
	ErrUnknownAssociatedType = errors.New("unknown associated type")
)
