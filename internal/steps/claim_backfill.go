package steps

import (
	"context"
	"fmt"

	"github.com/shaiso/Claimflow/internal/domain"
	"github.com/shaiso/Claimflow/internal/repo"
	"github.com/shaiso/Claimflow/internal/statelog"
)

const (
	MetricClaimBackfilledCount     = "claim_state_backfilled_count"
	MetricClaimWithoutImportLog    = "claim_without_import_log_count"
	MetricBackfillCommittedBatches = "committed_batch_count"
)

// ClaimStateBackfillStep даёт заявлениям без истории в flow проверки
// заявлений начальный переход CLAIM_IMPORTED.
//
// Коммит после каждых batchSize заявлений: при сбое уже закоммиченные
// пакеты остаются, а повторный запуск продолжит с оставшихся.
type ClaimStateBackfillStep struct {
	batchSize int
}

// NewClaimStateBackfillStep создаёт шаг.
func NewClaimStateBackfillStep(batchSize int) (*ClaimStateBackfillStep, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, batchSize)
	}
	return &ClaimStateBackfillStep{batchSize: batchSize}, nil
}

func (s *ClaimStateBackfillStep) Name() string { return "ClaimStateBackfillStep" }

func (s *ClaimStateBackfillStep) RunStep(ctx context.Context, run *Run) error {
	claims := repo.NewClaimRepo(run.DB())

	for {
		batch, err := claims.ListWithoutLatestInFlow(ctx, domain.FlowDelegatedClaimValidation.ID, s.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		if err := s.backfill(ctx, run, batch); err != nil {
			return err
		}
		run.Increment(MetricBackfillCommittedBatches)

		if len(batch) < s.batchSize {
			return nil
		}
	}
}

func (s *ClaimStateBackfillStep) backfill(ctx context.Context, run *Run, batch []domain.Claim) error {
	err := run.InTx(ctx, func(ctx context.Context, u Unit) error {
		for i := range batch {
			outcome := domain.BuildOutcome("Backfilled initial claim state", nil, nil)
			_, err := u.Engine.CreateFinishedStateLog(ctx, statelog.ForClaim(&batch[i]),
				domain.StateClaimImported, outcome, nil)
			if err != nil {
				return fmt.Errorf("backfill claim %s: %w", batch[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Метрики только для закоммиченного пакета.
	for _, c := range batch {
		if c.ImportLogID == nil {
			run.Increment(MetricClaimWithoutImportLog)
			run.Increment(MetricClaimBackfilledCount)
			continue
		}
		run.IncrementBatch(*c.ImportLogID, MetricClaimBackfilledCount)
	}
	return nil
}
