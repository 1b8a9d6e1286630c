//go:build integration

package statelog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Claimflow/internal/domain"
	"github.com/shaiso/Claimflow/internal/repo"
	"github.com/shaiso/Claimflow/internal/repo/pgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2021, 1, 8, 9, 0, 0, 0, time.UTC)}
}

func createClaim(t *testing.T, pool *pgxpool.Pool) *domain.Claim {
	t.Helper()
	c := &domain.Claim{FineosAbsenceID: "NTN-" + uuid.NewString()[:8]}
	require.NoError(t, repo.NewClaimRepo(pool).Create(context.Background(), c))
	return c
}

func countLatest(t *testing.T, pool *pgxpool.Pool, claimID uuid.UUID, flowID int) int {
	t.Helper()
	var n int
	err := pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM latest_state_log WHERE claim_id = $1 AND flow_id = $2`,
		claimID, flowID).Scan(&n)
	require.NoError(t, err)
	return n
}

// milestonePointers возвращает state_log_id указателей вех flow.
func milestonePointers(t *testing.T, pool *pgxpool.Pool, flowID int) []uuid.UUID {
	t.Helper()
	rows, err := pool.Query(context.Background(), `
		SELECT state_log_id FROM latest_state_log
		WHERE flow_id = $1
		  AND claim_id IS NULL AND employee_id IS NULL
		  AND payment_id IS NULL AND reference_file_id IS NULL
	`, flowID)
	require.NoError(t, err)
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	require.NoError(t, err)
	return ids
}

func TestIntegration_Engine(t *testing.T) {
	pool := pgtest.NewPool(t)
	ctx := context.Background()

	t.Run("first transition creates latest pointer", func(t *testing.T) {
		clock := newClock()
		e := New(pool, WithClock(clock.Now))
		claim := createClaim(t, pool)

		created, err := e.CreateFinishedStateLog(ctx, ForClaim(claim), domain.StateClaimImported,
			domain.BuildOutcome("imported", nil, nil), nil)
		require.NoError(t, err)
		assert.Nil(t, created.PrevStateLogID)

		latest, err := e.GetLatestStateLogInFlow(ctx, ForClaim(claim), domain.FlowDelegatedClaimValidation)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, created.ID, latest.ID)
		assert.Equal(t, domain.StateClaimImported.ID, latest.EndStateID)
		assert.Equal(t, "imported", latest.Outcome.Message)
		assert.Equal(t, domain.AssociatedTypeClaim, latest.AssociatedType)

		elapsed, err := e.GetTimeInCurrentState(ctx, latest, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, time.Duration(0), elapsed)

		// Другой flow пуст: это не ошибка.
		none, err := e.GetLatestStateLogInFlow(ctx, ForClaim(claim), domain.FlowDelegatedPayment)
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("second transition repoints and links prev", func(t *testing.T) {
		e := New(pool)
		claim := createClaim(t, pool)

		first, err := e.CreateFinishedStateLog(ctx, ForClaim(claim), domain.StateClaimImported,
			domain.BuildOutcome("imported", nil, nil), nil)
		require.NoError(t, err)
		second, err := e.CreateFinishedStateLog(ctx, ForClaim(claim), domain.StateDelegatedClaimValidated,
			domain.BuildOutcome("validated", nil, nil), nil)
		require.NoError(t, err)

		assert.Equal(t, 1, countLatest(t, pool, claim.ID, domain.FlowDelegatedClaimValidation.ID))
		require.NotNil(t, second.PrevStateLogID)
		assert.Equal(t, first.ID, *second.PrevStateLogID)

		latest, err := e.GetLatestStateLogInFlow(ctx, ForClaim(claim), domain.FlowDelegatedClaimValidation)
		require.NoError(t, err)
		assert.Equal(t, second.ID, latest.ID)

		inOld, err := e.GetLatestStateLogInEndState(ctx, ForClaim(claim), domain.StateClaimImported)
		require.NoError(t, err)
		assert.Nil(t, inOld)

		history, err := e.GetHistory(ctx, ForClaim(claim), domain.FlowDelegatedClaimValidation)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, second.ID, history[0].ID)
		assert.Equal(t, first.ID, history[1].ID)

		been, err := e.HasBeenInEndState(ctx, ForClaim(claim), domain.StateClaimImported)
		require.NoError(t, err)
		assert.True(t, been)

		never, err := e.HasBeenInEndState(ctx, ForClaim(claim), domain.StateDelegatedClaimAddToClaimExtractErrorReport)
		require.NoError(t, err)
		assert.False(t, never)
	})

	t.Run("time in state measured from earliest row of a run", func(t *testing.T) {
		clock := newClock()
		e := New(pool, WithClock(clock.Now))
		claim := createClaim(t, pool)
		outcome := domain.BuildOutcome("retry", nil, nil)

		t1 := clock.Now()
		_, err := e.CreateFinishedStateLog(ctx, ForClaim(claim), domain.StateDelegatedClaimExtractedFromFineos, outcome, nil)
		require.NoError(t, err)
		clock.Advance(time.Hour)
		_, err = e.CreateFinishedStateLog(ctx, ForClaim(claim), domain.StateDelegatedClaimExtractedFromFineos, outcome, nil)
		require.NoError(t, err)
		clock.Advance(time.Hour)
		third, err := e.CreateFinishedStateLog(ctx, ForClaim(claim), domain.StateDelegatedClaimExtractedFromFineos, outcome, nil)
		require.NoError(t, err)

		clock.Advance(time.Hour)
		t4 := clock.Now()
		fourth, err := e.CreateFinishedStateLog(ctx, ForClaim(claim), domain.StateDelegatedClaimValidated, outcome, nil)
		require.NoError(t, err)

		measure := t4.Add(30 * time.Minute)

		atT, err := e.GetTimeInCurrentState(ctx, fourth, measure)
		require.NoError(t, err)
		assert.Equal(t, measure.Sub(t4), atT)

		atRun, err := e.GetTimeInCurrentState(ctx, third, measure)
		require.NoError(t, err)
		assert.Equal(t, measure.Sub(t1), atRun)
	})

	t.Run("stuck check uses time in state", func(t *testing.T) {
		clock := newClock()
		e := New(pool, WithClock(clock.Now))
		old := createClaim(t, pool)
		fresh := createClaim(t, pool)
		state := domain.StateDelegatedClaimAddToClaimExtractErrorReport

		_, err := e.CreateFinishedStateLog(ctx, ForClaim(old), state, domain.BuildOutcome("err", nil, nil), nil)
		require.NoError(t, err)
		clock.Advance(72 * time.Hour)
		_, err = e.CreateFinishedStateLog(ctx, ForClaim(fresh), state, domain.BuildOutcome("err", nil, nil), nil)
		require.NoError(t, err)

		stuck, err := e.GetStateLogsStuckInState(ctx, domain.AssociatedTypeClaim, state, 2, clock.Now())
		require.NoError(t, err)
		require.Len(t, stuck, 1)
		assert.Equal(t, old.ID, *stuck[0].ClaimID)

		all, err := e.GetAllLatestStateLogsInEndState(ctx, domain.AssociatedTypeClaim, state)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		noPayments, err := e.GetAllLatestStateLogsInEndState(ctx, domain.AssociatedTypePayment, state)
		require.NoError(t, err)
		assert.Empty(t, noPayments)
	})

	t.Run("state counts match latest pointers", func(t *testing.T) {
		e := New(pool)

		counts, err := e.GetStateCounts(ctx)
		require.NoError(t, err)

		var fromDB int
		require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM latest_state_log`).Scan(&fromDB))

		total := 0
		for _, c := range counts {
			total += c.Count
			rows, err := e.GetAllLatestStateLogsRegardlessOfAssociatedClass(ctx, c.State)
			require.NoError(t, err)
			assert.Len(t, rows, c.Count, "state %d", c.State.ID)
		}
		assert.Equal(t, fromDB, total)
	})

	t.Run("unpersisted entity is rejected", func(t *testing.T) {
		e := New(pool)
		_, err := e.CreateFinishedStateLog(ctx, ForClaim(&domain.Claim{}), domain.StateClaimImported,
			domain.BuildOutcome("x", nil, nil), nil)
		assert.ErrorIs(t, err, ErrEntityNotPersisted)
	})

	t.Run("stale pointer is not repointed", func(t *testing.T) {
		e := New(pool)
		claim := createClaim(t, pool)

		first, err := e.CreateFinishedStateLog(ctx, ForClaim(claim), domain.StateClaimImported,
			domain.BuildOutcome("imported", nil, nil), nil)
		require.NoError(t, err)

		ptr, err := findLatestPointer(ctx, pool, "claim_id", claim.ID, domain.FlowDelegatedClaimValidation.ID)
		require.NoError(t, err)
		require.NotNil(t, ptr)

		_, err = e.CreateFinishedStateLog(ctx, ForClaim(claim), domain.StateDelegatedClaimValidated,
			domain.BuildOutcome("validated", nil, nil), nil)
		require.NoError(t, err)

		// Писатель, прочитавший указатель до второго перехода, проигрывает.
		require.Equal(t, first.ID, ptr.stateLogID)
		ok, err := repointLatest(ctx, pool, ptr, first.ID, domain.FlowDelegatedClaimValidation.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		// Вторая вставка указателя для той же пары упирается в уникальный индекс.
		dup := &domain.StateLog{ID: first.ID, ClaimID: &claim.ID}
		inserted, err := insertLatest(ctx, pool, dup, domain.FlowDelegatedClaimValidation.ID)
		require.NoError(t, err)
		assert.False(t, inserted)
		assert.Equal(t, 1, countLatest(t, pool, claim.ID, domain.FlowDelegatedClaimValidation.ID))
	})

	t.Run("unassociated milestones chain through explicit prev", func(t *testing.T) {
		e := New(pool)
		state := domain.StateOperationsStuckStateCheckCompleted

		first, err := e.CreateStateLogWithoutAssociatedModel(ctx, state, domain.AssociatedTypeNone,
			domain.BuildOutcome("check 1", nil, nil), nil)
		require.NoError(t, err)
		second, err := e.CreateStateLogWithoutAssociatedModel(ctx, state, domain.AssociatedTypeNone,
			domain.BuildOutcome("check 2", nil, nil), first)
		require.NoError(t, err)

		require.NotNil(t, second.PrevStateLogID)
		assert.Equal(t, first.ID, *second.PrevStateLogID)

		latest, err := e.GetAllLatestStateLogsInEndState(ctx, domain.AssociatedTypeNone, state)
		require.NoError(t, err)
		require.Len(t, latest, 1)
		assert.Equal(t, second.ID, latest[0].ID)
	})

	t.Run("stale milestone prev is rejected", func(t *testing.T) {
		e := New(pool)
		none := domain.AssociatedTypeNone

		a, err := e.CreateStateLogWithoutAssociatedModel(ctx, domain.StateReferenceFileReceived, none,
			domain.BuildOutcome("received", nil, nil), nil)
		require.NoError(t, err)
		b, err := e.CreateStateLogWithoutAssociatedModel(ctx, domain.StateReferenceFileProcessed, none,
			domain.BuildOutcome("processed", nil, nil), a)
		require.NoError(t, err)

		_, err = e.CreateStateLogWithoutAssociatedModel(ctx, domain.StateReferenceFileErrored, none,
			domain.BuildOutcome("errored", nil, nil), a)
		require.ErrorIs(t, err, ErrConcurrentTransition)

		assert.Equal(t, []uuid.UUID{b.ID}, milestonePointers(t, pool, domain.FlowReferenceFile.ID))
		errored, err := e.GetAllLatestStateLogsInEndState(ctx, none, domain.StateReferenceFileErrored)
		require.NoError(t, err)
		assert.Empty(t, errored)
	})

	t.Run("milestone repoint moves pointer to the new flow", func(t *testing.T) {
		e := New(pool)
		none := domain.AssociatedTypeNone

		first, err := e.CreateStateLogWithoutAssociatedModel(ctx, domain.StateDelegatedClaimantExtractedFromFineos, none,
			domain.BuildOutcome("extracted", nil, nil), nil)
		require.NoError(t, err)
		next, err := e.CreateStateLogWithoutAssociatedModel(ctx, domain.StateDelegatedClaimAddToClaimExtractErrorReport, none,
			domain.BuildOutcome("reported", nil, nil), first)
		require.NoError(t, err)

		assert.Empty(t, milestonePointers(t, pool, domain.FlowDelegatedClaimant.ID))
		assert.Equal(t, []uuid.UUID{next.ID}, milestonePointers(t, pool, domain.FlowDelegatedClaimValidation.ID))
	})

	t.Run("created row matches what is read back", func(t *testing.T) {
		at := time.Date(2021, 1, 8, 9, 0, 0, 123456789, time.UTC)
		started := at.Add(-time.Second)
		e := New(pool, WithClock(func() time.Time { return at }))
		claim := createClaim(t, pool)

		created, err := e.CreateFinishedStateLog(ctx, ForClaim(claim), domain.StateClaimImported,
			domain.BuildOutcome("imported", nil, nil), &started)
		require.NoError(t, err)

		got, err := e.GetStateLog(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, created.EndedAt, got.EndedAt)
		require.NotNil(t, got.StartedAt)
		assert.Equal(t, *created.StartedAt, *got.StartedAt)
	})

	t.Run("failure record survives rollback", func(t *testing.T) {
		clock := newClock()
		e := New(pool, WithClock(clock.Now))
		claim := createClaim(t, pool)
		cause := errors.New("fineos timeout")

		_, err := e.CreateFinishedStateLog(ctx, ForClaim(claim), domain.StateDelegatedClaimExtractedFromFineos,
			domain.BuildOutcome("extracted", nil, nil), nil)
		require.NoError(t, err)
		clock.Advance(time.Minute)

		err = e.ProcessState(ctx, domain.StateDelegatedClaimExtractedFromFineos, ForClaim(claim),
			func(ctx context.Context) error {
				return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
					_, err := e.WithTx(tx).CreateFinishedStateLog(ctx, ForClaim(claim),
						domain.StateDelegatedClaimValidated, domain.BuildOutcome("validated", nil, nil), nil)
					if err != nil {
						return err
					}
					return cause
				})
			})
		assert.Same(t, cause, err)

		latest, err := e.GetLatestStateLogInFlow(ctx, ForClaim(claim), domain.FlowDelegatedClaimValidation)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, domain.StateDelegatedClaimExtractedFromFineos.ID, latest.EndStateID)
		assert.Equal(t, "Hit exception: fineos timeout", latest.Outcome.Message)
		assert.Equal(t, "fineos timeout", latest.Outcome.Extra["error"])

		validated, err := e.HasBeenInEndState(ctx, ForClaim(claim), domain.StateDelegatedClaimValidated)
		require.NoError(t, err)
		assert.False(t, validated)
	})

	t.Run("import log stamped on new rows", func(t *testing.T) {
		l := &domain.ImportLog{Source: "test", ImportType: "step"}
		require.NoError(t, repo.NewImportLogRepo(pool).Create(ctx, l))

		e := New(pool).WithImportLog(l.ID)
		claim := createClaim(t, pool)

		created, err := e.CreateFinishedStateLog(ctx, ForClaim(claim), domain.StateClaimImported,
			domain.BuildOutcome("imported", nil, nil), nil)
		require.NoError(t, err)

		got, err := e.GetStateLog(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ImportLogID)
		assert.Equal(t, l.ID, *got.ImportLogID)

		missing, err := e.GetStateLog(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}
