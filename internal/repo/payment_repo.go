package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Claimflow/internal/domain"
	"github.com/shopspring/decimal"
)

// PaymentRepo: таблица payment.
type PaymentRepo struct {
	db DBTX
}

// NewPaymentRepo создаёт новый PaymentRepo.
func NewPaymentRepo(db DBTX) *PaymentRepo {
	return &PaymentRepo{db: db}
}

const paymentColumns = `payment_id, claim_id, employee_id, amount, period_start_date, period_end_date, created_at`

// Create сохраняет платёж. Пустой ID заменяется на новый UUID.
func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO payment (payment_id, claim_id, employee_id, amount, period_start_date, period_end_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, p.ID, p.ClaimID, p.EmployeeID, p.Amount, p.PeriodStart, p.PeriodEnd).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID возвращает платёж по ID.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payment WHERE payment_id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment by id: %w", err)
	}
	return p, nil
}

// ListByIDs возвращает платежи с указанными ID, упорядоченные
// по (employee_id, period_start_date, created_at, payment_id).
func (r *PaymentRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Payment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payment
		WHERE payment_id = ANY($1::uuid[])
		ORDER BY employee_id, period_start_date, created_at, payment_id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// SumPriorPayments суммирует платежи сотрудника за период, чей текущий
// state в flow платежей входит в states. Платежи из exclude не учитываются.
func (r *PaymentRepo) SumPriorPayments(
	ctx context.Context,
	employeeID uuid.UUID,
	period domain.PayPeriod,
	states []domain.State,
	exclude []uuid.UUID,
) (decimal.Decimal, error) {
	if exclude == nil {
		exclude = []uuid.UUID{}
	}

	var sum decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(p.amount), 0)
		FROM payment p
		JOIN latest_state_log l ON l.payment_id = p.payment_id AND l.flow_id = $4
		JOIN state_log s ON s.state_log_id = l.state_log_id
		WHERE p.employee_id = $1
		  AND p.period_start_date = $2
		  AND p.period_end_date = $3
		  AND s.end_state_id = ANY($5::int[])
		  AND NOT (p.payment_id = ANY($6::uuid[]))
	`,
		employeeID,
		period.Start,
		period.End,
		domain.FlowDelegatedPayment.ID,
		domain.StateIDs(states),
		exclude,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum prior payments: %w", err)
	}
	return sum, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID,
		&p.ClaimID,
		&p.EmployeeID,
		&p.Amount,
		&p.PeriodStart,
		&p.PeriodEnd,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
