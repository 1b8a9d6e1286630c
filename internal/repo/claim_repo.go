package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Claimflow/internal/domain"
)

// ClaimRepo: таблица claim.
type ClaimRepo struct {
	db DBTX
}

// NewClaimRepo создаёт новый ClaimRepo.
func NewClaimRepo(db DBTX) *ClaimRepo {
	return &ClaimRepo{db: db}
}

// Create сохраняет заявление. Пустой ID заменяется на новый UUID.
func (r *ClaimRepo) Create(ctx context.Context, c *domain.Claim) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO claim (claim_id, employee_id, fineos_absence_id, import_log_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, c.ID, c.EmployeeID, nullString(c.FineosAbsenceID), c.ImportLogID).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

// GetByID возвращает заявление по ID.
func (r *ClaimRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	query := `
		SELECT claim_id, employee_id, fineos_absence_id, import_log_id, created_at
		FROM claim
		WHERE claim_id = $1
	`
	c, err := scanClaim(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get claim by id: %w", err)
	}
	return c, nil
}

// ListWithoutLatestInFlow возвращает заявления, у которых нет
// latest_state_log в указанном flow. Порядок: по created_at, затем по ID,
// чтобы пакеты повторного запуска шли в том же порядке.
func (r *ClaimRepo) ListWithoutLatestInFlow(ctx context.Context, flowID, limit int) ([]domain.Claim, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.claim_id, c.employee_id, c.fineos_absence_id, c.import_log_id, c.created_at
		FROM claim c
		WHERE NOT EXISTS (
			SELECT 1 FROM latest_state_log l
			WHERE l.claim_id = c.claim_id AND l.flow_id = $1
		)
		ORDER BY c.created_at, c.claim_id
		LIMIT $2
	`, flowID, limit)
	if err != nil {
		return nil, fmt.Errorf("list claims without latest: %w", err)
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

func scanClaim(row pgx.Row) (*domain.Claim, error) {
	var (
		c         domain.Claim
		absenceID *string
	)
	if err := row.Scan(&c.ID, &c.EmployeeID, &absenceID, &c.ImportLogID, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.FineosAbsenceID = derefString(absenceID)
	return &c, nil
}
