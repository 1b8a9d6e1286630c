package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Claimflow/internal/domain"
)

// ReferenceFileRepo: таблица reference_file.
type ReferenceFileRepo struct {
	db DBTX
}

// NewReferenceFileRepo создаёт новый ReferenceFileRepo.
func NewReferenceFileRepo(db DBTX) *ReferenceFileRepo {
	return &ReferenceFileRepo{db: db}
}

// Create сохраняет файл. Повторный file_location даёт ErrAlreadyExists.
func (r *ReferenceFileRepo) Create(ctx context.Context, f *domain.ReferenceFile) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO reference_file (reference_file_id, file_location, reference_file_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (file_location) DO NOTHING
		RETURNING created_at
	`, f.ID, f.FileLocation, nullString(f.ReferenceFileType)).Scan(&f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert reference file: %w", err)
	}
	return nil
}

// GetByLocation возвращает файл по пути.
func (r *ReferenceFileRepo) GetByLocation(ctx context.Context, location string) (*domain.ReferenceFile, error) {
	var (
		f        domain.ReferenceFile
		fileType *string
	)
	err := r.db.QueryRow(ctx, `
		SELECT reference_file_id, file_location, reference_file_type, created_at
		FROM reference_file
		WHERE file_location = $1
	`, location).Scan(&f.ID, &f.FileLocation, &fileType, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reference file: %w", err)
	}
	f.ReferenceFileType = derefString(fileType)
	return &f, nil
}
