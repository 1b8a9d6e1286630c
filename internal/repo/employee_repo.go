package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Claimflow/internal/domain"
)

// EmployeeRepo: таблица employee.
type EmployeeRepo struct {
	db DBTX
}

// NewEmployeeRepo создаёт новый EmployeeRepo.
func NewEmployeeRepo(db DBTX) *EmployeeRepo {
	return &EmployeeRepo{db: db}
}

// Create сохраняет сотрудника. Пустой ID заменяется на новый UUID.
func (r *EmployeeRepo) Create(ctx context.Context, e *domain.Employee) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO employee (employee_id, first_name, last_name)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, e.ID, nullString(e.FirstName), nullString(e.LastName)).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert employee: %w", err)
	}
	return nil
}

// GetByID возвращает сотрудника по ID.
func (r *EmployeeRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Employee, error) {
	var (
		e               domain.Employee
		first, lastName *string
	)
	err := r.db.QueryRow(ctx, `
		SELECT employee_id, first_name, last_name, created_at
		FROM employee
		WHERE employee_id = $1
	`, id).Scan(&e.ID, &first, &lastName, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get employee by id: %w", err)
	}
	e.FirstName = derefString(first)
	e.LastName = derefString(lastName)
	return &e, nil
}

// nullString возвращает nil для пустой строки.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
