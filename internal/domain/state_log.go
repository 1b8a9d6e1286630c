package domain

import (
	"time"

	"github.com/google/uuid"
)

// AssociatedType: дискриминатор state_log.associated_type.
type AssociatedType string

const (
	AssociatedTypeClaim         AssociatedType = "claim"
	AssociatedTypeEmployee      AssociatedType = "employee"
	AssociatedTypePayment       AssociatedType = "payment"
	AssociatedTypeReferenceFile AssociatedType = "reference_file"

	// AssociatedTypeNone используется для вех flow без конкретной сущности.
	AssociatedTypeNone AssociatedType = "none"
)

// String возвращает строковое представление AssociatedType.
func (t AssociatedType) String() string {
	return string(t)
}

// ParseAssociatedType парсит строку в AssociatedType.
// Второй результат false, если тип неизвестен.
func ParseAssociatedType(s string) (AssociatedType, bool) {
	switch AssociatedType(s) {
	case AssociatedTypeClaim, AssociatedTypeEmployee, AssociatedTypePayment,
		AssociatedTypeReferenceFile, AssociatedTypeNone:
		return AssociatedType(s), true
	default:
		return "", false
	}
}

// StateLog: неизменяемая запись "сущность достигла end_state в это время
// с таким outcome".
//
// Записи только добавляются. PrevStateLogID указывает на запись, которая
// была latest для той же пары (entity, flow) непосредственно перед этой,
// так что история восстанавливается обходом по ID без отдельной таблицы.
type StateLog struct {
	ID uuid.UUID `json:"state_log_id"`

	EndStateID int     `json:"end_state_id"`
	Outcome    Outcome `json:"outcome"`

	// StartedAt может быть nil, если шаг не передал время начала.
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   time.Time  `json:"ended_at"`

	AssociatedType AssociatedType `json:"associated_type"`

	// Заполнено не более одного из четырёх полей.
	ClaimID         *uuid.UUID `json:"claim_id,omitempty"`
	EmployeeID      *uuid.UUID `json:"employee_id,omitempty"`
	PaymentID       *uuid.UUID `json:"payment_id,omitempty"`
	ReferenceFileID *uuid.UUID `json:"reference_file_id,omitempty"`

	PrevStateLogID *uuid.UUID `json:"prev_state_log_id,omitempty"`
	ImportLogID    *int64     `json:"import_log_id,omitempty"`
}

// EndState возвращает State из каталога.
func (l *StateLog) EndState() (State, bool) {
	return StateByID(l.EndStateID)
}

// EntityID возвращает ID связанной сущности (nil для вех без сущности).
func (l *StateLog) EntityID() *uuid.UUID {
	switch {
	case l.ClaimID != nil:
		return l.ClaimID
	case l.EmployeeID != nil:
		return l.EmployeeID
	case l.PaymentID != nil:
		return l.PaymentID
	case l.ReferenceFileID != nil:
		return l.ReferenceFileID
	default:
		return nil
	}
}

// LatestStateLog: указатель "текущая позиция" для одной пары (entity, flow).
//
// Создаётся при первом переходе и дальше только перенаправляется
// на новый StateLog.
type LatestStateLog struct {
	ID         uuid.UUID `json:"latest_state_log_id"`
	StateLogID uuid.UUID `json:"state_log_id"`
	FlowID     int       `json:"flow_id"`

	ClaimID         *uuid.UUID `json:"claim_id,omitempty"`
	EmployeeID      *uuid.UUID `json:"employee_id,omitempty"`
	PaymentID       *uuid.UUID `json:"payment_id,omitempty"`
	ReferenceFileID *uuid.UUID `json:"reference_file_id,omitempty"`
}

// StateCount: число latest-указателей, стоящих в end_state.
type StateCount struct {
	State State `json:"state"`
	Count int   `json:"count"`
}
