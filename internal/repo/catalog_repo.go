package repo

import (
	"context"
	"fmt"

	"github.com/shaiso/Claimflow/internal/domain"
)

// CatalogRepo: таблицы flow и state.
type CatalogRepo struct {
	db DBTX
}

// NewCatalogRepo создаёт новый CatalogRepo.
func NewCatalogRepo(db DBTX) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// Sync записывает каталог из кода в БД.
//
// Каталог закрыт и перечислен в domain, поэтому Sync только добавляет
// строки и обновляет описания. Удалённые из кода states в БД остаются:
// на них ссылаются старые state_log.
func (r *CatalogRepo) Sync(ctx context.Context) error {
	for _, f := range domain.AllFlows() {
		_, err := r.db.Exec(ctx, `
			INSERT INTO flow (flow_id, flow_description)
			VALUES ($1, $2)
			ON CONFLICT (flow_id) DO UPDATE SET flow_description = EXCLUDED.flow_description
		`, f.ID, f.Description)
		if err != nil {
			return fmt.Errorf("sync flow %d: %w", f.ID, err)
		}
	}

	for _, s := range domain.AllStates() {
		_, err := r.db.Exec(ctx, `
			INSERT INTO state (state_id, flow_id, state_description)
			VALUES ($1, $2, $3)
			ON CONFLICT (state_id) DO UPDATE
			SET flow_id = EXCLUDED.flow_id, state_description = EXCLUDED.state_description
		`, s.ID, s.FlowID, s.Description)
		if err != nil {
			return fmt.Errorf("sync state %d: %w", s.ID, err)
		}
	}
	return nil
}
