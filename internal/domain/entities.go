package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Сущности ниже принадлежат другим частям системы (извлечение из FINEOS,
// DOR, формирование файлов для банка). Ядро читает только их ID и хранит
// ссылки на них в state_log. Поля сверх ID нужны шагам этого модуля.

// Employee: сотрудник (заявитель).
type Employee struct {
	// ID равен uuid.Nil, пока запись не сохранена.
	ID uuid.UUID `json:"employee_id"`

	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Claim: заявление на пособие.
type Claim struct {
	ID uuid.UUID `json:"claim_id"`

	EmployeeID      *uuid.UUID `json:"employee_id,omitempty"`
	FineosAbsenceID string     `json:"fineos_absence_id,omitempty"`

	// ImportLogID: пакет загрузки, в котором пришло заявление.
	ImportLogID *int64 `json:"import_log_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Payment: платёж по заявлению за период.
type Payment struct {
	ID uuid.UUID `json:"payment_id"`

	ClaimID    *uuid.UUID `json:"claim_id,omitempty"`
	EmployeeID uuid.UUID  `json:"employee_id"`

	Amount decimal.Decimal `json:"amount"`

	// PeriodStart и PeriodEnd: границы оплачиваемого периода (даты, UTC).
	PeriodStart time.Time `json:"period_start_date"`
	PeriodEnd   time.Time `json:"period_end_date"`

	CreatedAt time.Time `json:"created_at"`
}

// PayPeriod: оплачиваемый период.
type PayPeriod struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// Period возвращает период платежа.
func (p *Payment) Period() PayPeriod {
	return PayPeriod{Start: p.PeriodStart, End: p.PeriodEnd}
}

// String форматирует период как "2021-01-01 - 2021-01-07".
func (p PayPeriod) String() string {
	return p.Start.Format(time.DateOnly) + " - " + p.End.Format(time.DateOnly)
}

// ReferenceFile: файл, полученный или отправленный конвейером.
type ReferenceFile struct {
	ID uuid.UUID `json:"reference_file_id"`

	FileLocation      string `json:"file_location"`
	ReferenceFileType string `json:"reference_file_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
