package statelog

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Claimflow/internal/domain"
)

// Entity: сущность, к которой привязывается запись state_log.
//
// Набор вариантов закрыт (ClaimEntity, EmployeeEntity, PaymentEntity,
// ReferenceFileEntity): неэкспортируемые методы не дают реализовать
// интерфейс вне пакета.
type Entity interface {
	// Type возвращает значение state_log.associated_type.
	Type() domain.AssociatedType

	// Key возвращает ID сущности или ErrEntityNotPersisted.
	Key() (uuid.UUID, error)

	// column: колонка сущности в state_log и latest_state_log.
	column() string

	// attach проставляет ID сущности в набор ссылок записи.
	attach(r *refs, id uuid.UUID)
}

// refs: четыре nullable-ссылки на сущности, общие для обеих таблиц.
type refs struct {
	claim         *uuid.UUID
	employee      *uuid.UUID
	payment       *uuid.UUID
	referenceFile *uuid.UUID
}

func (r refs) toStateLog(l *domain.StateLog) {
	l.ClaimID = r.claim
	l.EmployeeID = r.employee
	l.PaymentID = r.payment
	l.ReferenceFileID = r.referenceFile
}

func refsOf(l *domain.StateLog) refs {
	return refs{
		claim:         l.ClaimID,
		employee:      l.EmployeeID,
		payment:       l.PaymentID,
		referenceFile: l.ReferenceFileID,
	}
}

// ClaimEntity: заявление.
type ClaimEntity struct {
	Claim *domain.Claim
}

// ForClaim возвращает Entity для заявления.
func ForClaim(c *domain.Claim) ClaimEntity { return ClaimEntity{Claim: c} }

func (ClaimEntity) Type() domain.AssociatedType { return domain.AssociatedTypeClaim }

func (e ClaimEntity) Key() (uuid.UUID, error) {
	if e.Claim == nil || e.Claim.ID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: claim", ErrEntityNotPersisted)
	}
	return e.Claim.ID, nil
}

func (ClaimEntity) column() string { return "claim_id" }

func (ClaimEntity) attach(r *refs, id uuid.UUID) { r.claim = &id }

// EmployeeEntity: сотрудник.
type EmployeeEntity struct {
	Employee *domain.Employee
}

// ForEmployee возвращает Entity для сотрудника.
func ForEmployee(e *domain.Employee) EmployeeEntity { return EmployeeEntity{Employee: e} }

func (EmployeeEntity) Type() domain.AssociatedType { return domain.AssociatedTypeEmployee }

func (e EmployeeEntity) Key() (uuid.UUID, error) {
	if e.Employee == nil || e.Employee.ID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: employee", ErrEntityNotPersisted)
	}
	return e.Employee.ID, nil
}

func (EmployeeEntity) column() string { return "employee_id" }

func (EmployeeEntity) attach(r *refs, id uuid.UUID) { r.employee = &id }

// PaymentEntity: платёж.
type PaymentEntity struct {
	Payment *domain.Payment
}

// ForPayment возвращает Entity для платежа.
func ForPayment(p *domain.Payment) PaymentEntity { return PaymentEntity{Payment: p} }

func (PaymentEntity) Type() domain.AssociatedType { return domain.AssociatedTypePayment }

func (e PaymentEntity) Key() (uuid.UUID, error) {
	if e.Payment == nil || e.Payment.ID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: payment", ErrEntityNotPersisted)
	}
	return e.Payment.ID, nil
}

func (PaymentEntity) column() string { return "payment_id" }

func (PaymentEntity) attach(r *refs, id uuid.UUID) { r.payment = &id }

// ReferenceFileEntity: файл конвейера.
type ReferenceFileEntity struct {
	ReferenceFile *domain.ReferenceFile
}

// ForReferenceFile возвращает Entity для файла.
func ForReferenceFile(f *domain.ReferenceFile) ReferenceFileEntity {
	return ReferenceFileEntity{ReferenceFile: f}
}

func (ReferenceFileEntity) Type() domain.AssociatedType { return domain.AssociatedTypeReferenceFile }

func (e ReferenceFileEntity) Key() (uuid.UUID, error) {
	if e.ReferenceFile == nil || e.ReferenceFile.ID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: reference file", ErrEntityNotPersisted)
	}
	return e.ReferenceFile.ID, nil
}

func (ReferenceFileEntity) column() string { return "reference_file_id" }

func (ReferenceFileEntity) attach(r *refs, id uuid.UUID) { r.referenceFile = &id }

// NewEntity строит Entity по типу и ID, когда самой сущности нет
// под рукой (HTTP API, CLI).
func NewEntity(t domain.AssociatedType, id uuid.UUID) (Entity, error) {
	switch t {
	case domain.AssociatedTypeClaim:
		return ForClaim(&domain.Claim{ID: id}), nil
	case domain.AssociatedTypeEmployee:
		return ForEmployee(&domain.Employee{ID: id}), nil
	case domain.AssociatedTypePayment:
		return ForPayment(&domain.Payment{ID: id}), nil
	case domain.AssociatedTypeReferenceFile:
		return ForReferenceFile(&domain.ReferenceFile{ID: id}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAssociatedType, t)
	}
}
