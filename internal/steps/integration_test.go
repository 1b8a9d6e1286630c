//go:build integration

package steps

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Claimflow/internal/domain"
	"github.com/shaiso/Claimflow/internal/mq"
	"github.com/shaiso/Claimflow/internal/repo"
	"github.com/shaiso/Claimflow/internal/repo/pgtest"
	"github.com/shaiso/Claimflow/internal/statelog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var week = domain.PayPeriod{
	Start: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2021, 1, 7, 0, 0, 0, 0, time.UTC),
}

type fixture struct {
	t      *testing.T
	pool   *pgxpool.Pool
	now    time.Time
	engine *statelog.Engine
}

func newFixture(t *testing.T) *fixture {
	pool := pgtest.NewPool(t)
	f := &fixture{t: t, pool: pool, now: time.Date(2021, 1, 8, 9, 0, 0, 0, time.UTC)}
	f.engine = statelog.New(pool, statelog.WithClock(f.clock))
	return f
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) runner() *Runner {
	return NewRunner(RunnerConfig{
		DB:            f.pool,
		ImportLogs:    repo.NewImportLogRepo(f.pool),
		Logger:        slog.New(slog.DiscardHandler),
		EngineOptions: []statelog.Option{statelog.WithClock(f.clock)},
	})
}

func (f *fixture) employee() *domain.Employee {
	f.t.Helper()
	e := &domain.Employee{FirstName: "Jane", LastName: "Doe"}
	require.NoError(f.t, repo.NewEmployeeRepo(f.pool).Create(context.Background(), e))
	return e
}

// payment создаёт платёж и ставит его в state.
func (f *fixture) payment(emp *domain.Employee, amount string, state domain.State) *domain.Payment {
	f.t.Helper()
	ctx := context.Background()

	p := &domain.Payment{
		EmployeeID:  emp.ID,
		Amount:      decimal.RequireFromString(amount),
		PeriodStart: week.Start,
		PeriodEnd:   week.End,
	}
	require.NoError(f.t, repo.NewPaymentRepo(f.pool).Create(ctx, p))

	_, err := f.engine.CreateFinishedStateLog(ctx, statelog.ForPayment(p), state,
		domain.BuildOutcome("staged", nil, nil), nil)
	require.NoError(f.t, err)
	return p
}

func (f *fixture) paymentState(p *domain.Payment) *domain.StateLog {
	f.t.Helper()
	l, err := f.engine.GetLatestStateLogInFlow(context.Background(), statelog.ForPayment(p), domain.FlowDelegatedPayment)
	require.NoError(f.t, err)
	require.NotNil(f.t, l)
	return l
}

func TestIntegration_MaxWeeklyBenefitStep(t *testing.T) {
	ctx := context.Background()
	step := NewMaxWeeklyBenefitStep(StaticCap{Amount: decimal.RequireFromString("850.00")})
	ready := domain.StatePaymentReadyForMaxWeeklyBenefitAmountValidation

	t.Run("sum equal to cap passes, extra cent is rejected", func(t *testing.T) {
		f := newFixture(t)
		emp := f.employee()
		first := f.payment(emp, "425.00", ready)
		second := f.payment(emp, "425.00", ready)
		cent := f.payment(emp, "0.01", ready)

		il, err := f.runner().Run(ctx, step)
		require.NoError(t, err)

		passed := domain.StatePaymentMaxWeeklyBenefitAmountValidationPassed.ID
		assert.Equal(t, passed, f.paymentState(first).EndStateID)
		assert.Equal(t, passed, f.paymentState(second).EndStateID)

		rejected := f.paymentState(cent)
		assert.Equal(t, domain.StatePaymentFailedMaxWeeklyBenefitAmountValidation.ID, rejected.EndStateID)
		require.NotNil(t, rejected.Outcome.ValidationContainer)
		assert.Equal(t, cent.ID.String(), rejected.Outcome.ValidationContainer.RecordKey)
		require.Len(t, rejected.Outcome.ValidationContainer.ValidationIssues, 1)
		assert.Equal(t, domain.ValidationReasonPaymentExceedsMaxWeeklyBenefits,
			rejected.Outcome.ValidationContainer.ValidationIssues[0].Reason)

		require.NotNil(t, rejected.ImportLogID)
		assert.Equal(t, il.ID, *rejected.ImportLogID)

		saved, err := repo.NewImportLogRepo(f.pool).GetByID(ctx, il.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ImportLogStatusSuccess, saved.Status)
		metrics, ok := saved.Report["metrics"].(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, 2, metrics[MetricPassedCount])
		assert.EqualValues(t, 1, metrics[MetricFailedCount])
		assert.EqualValues(t, 85000, metrics[MetricPassedAmount])
	})

	t.Run("prior payments count against the cap", func(t *testing.T) {
		f := newFixture(t)
		emp := f.employee()
		f.payment(emp, "800.00", domain.StateDelegatedPaymentComplete)
		// Перезапускаемые платежи не учитываются.
		f.payment(emp, "500.00", domain.StateDelegatedPaymentRejectedRestartable)

		small := f.payment(emp, "50.00", ready)
		large := f.payment(emp, "60.00", ready)

		_, err := f.runner().Run(ctx, step)
		require.NoError(t, err)

		assert.Equal(t, domain.StatePaymentMaxWeeklyBenefitAmountValidationPassed.ID, f.paymentState(small).EndStateID)
		assert.Equal(t, domain.StatePaymentFailedMaxWeeklyBenefitAmountValidation.ID, f.paymentState(large).EndStateID)
	})

	t.Run("cap lookup failure is recorded for the group", func(t *testing.T) {
		f := newFixture(t)
		emp := f.employee()
		p := f.payment(emp, "100.00", ready)

		failing := NewMaxWeeklyBenefitStep(capFunc(func() (decimal.Decimal, error) {
			return decimal.Zero, errors.New("wage data unavailable")
		}))
		_, err := f.runner().Run(ctx, failing)
		require.Error(t, err)

		latest := f.paymentState(p)
		assert.Equal(t, ready.ID, latest.EndStateID)
		assert.Equal(t, "Hit exception: wage data unavailable", latest.Outcome.Message)
	})
}

type capFunc func() (decimal.Decimal, error)

func (f capFunc) MaxWeeklyBenefit(context.Context, uuid.UUID, domain.PayPeriod) (decimal.Decimal, error) {
	return f()
}

func TestIntegration_ClaimStateBackfillStep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	imports := repo.NewImportLogRepo(f.pool)
	source := &domain.ImportLog{Source: "ClaimExtract", ImportType: "extract"}
	require.NoError(t, imports.Create(ctx, source))

	claims := repo.NewClaimRepo(f.pool)
	var created []*domain.Claim
	for i := 0; i < 5; i++ {
		c := &domain.Claim{FineosAbsenceID: "NTN-" + uuid.NewString()[:8]}
		if i%2 == 0 {
			c.ImportLogID = &source.ID
		}
		require.NoError(t, claims.Create(ctx, c))
		created = append(created, c)
	}

	// Заявление с историей не трогается.
	_, err := f.engine.CreateFinishedStateLog(ctx, statelog.ForClaim(created[0]),
		domain.StateDelegatedClaimValidated, domain.BuildOutcome("validated", nil, nil), nil)
	require.NoError(t, err)

	step, err := NewClaimStateBackfillStep(2)
	require.NoError(t, err)

	il, err := f.runner().Run(ctx, step)
	require.NoError(t, err)

	for i, c := range created {
		latest, err := f.engine.GetLatestStateLogInFlow(ctx, statelog.ForClaim(c), domain.FlowDelegatedClaimValidation)
		require.NoError(t, err)
		require.NotNil(t, latest, "claim %d", i)
		if i == 0 {
			assert.Equal(t, domain.StateDelegatedClaimValidated.ID, latest.EndStateID)
			continue
		}
		assert.Equal(t, domain.StateClaimImported.ID, latest.EndStateID)
	}

	saved, err := imports.GetByID(ctx, il.ID)
	require.NoError(t, err)
	metrics := saved.Report["metrics"].(map[string]any)
	assert.EqualValues(t, 4, metrics[MetricClaimBackfilledCount])
	assert.EqualValues(t, 2, metrics[MetricClaimWithoutImportLog])
	assert.EqualValues(t, 2, metrics[MetricBackfillCommittedBatches])

	// Повторный запуск ничего не делает.
	_, err = f.runner().Run(ctx, step)
	require.NoError(t, err)
	remaining, err := claims.ListWithoutLatestInFlow(ctx, domain.FlowDelegatedClaimValidation.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

type recordingAlerts struct {
	mu       sync.Mutex
	payloads []mq.StuckStatePayload
}

func (a *recordingAlerts) PublishStuckState(_ context.Context, p mq.StuckStatePayload) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.payloads = append(a.payloads, p)
	return nil
}

func TestIntegration_StuckStateCheckStep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ready := domain.StatePaymentReadyForMaxWeeklyBenefitAmountValidation

	emp := f.employee()
	old := f.payment(emp, "10.00", ready)
	f.now = f.now.Add(72 * time.Hour)
	f.payment(emp, "20.00", ready)

	alerts := &recordingAlerts{}
	step := NewStuckStateCheckStep([]StuckCheck{
		{Class: domain.AssociatedTypePayment, State: ready, Days: 2},
	}, alerts)

	_, err := f.runner().Run(ctx, step)
	require.NoError(t, err)

	require.Len(t, alerts.payloads, 1)
	alert := alerts.payloads[0]
	require.NotNil(t, alert.EntityID)
	assert.Equal(t, old.ID, *alert.EntityID)
	assert.Equal(t, ready.ID, alert.StateID)
	assert.Equal(t, 2, alert.ThresholdDays)
	assert.WithinDuration(t, f.now.Add(-72*time.Hour), alert.EnteredAt, time.Second)

	first, err := f.engine.GetAllLatestStateLogsInEndState(ctx,
		domain.AssociatedTypeNone, domain.StateOperationsStuckStateCheckCompleted)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.EqualValues(t, 1, first[0].Outcome.Extra["stuck_count"])

	// Вторая веха ссылается на первую.
	f.now = f.now.Add(time.Hour)
	_, err = f.runner().Run(ctx, step)
	require.NoError(t, err)

	second, err := f.engine.GetAllLatestStateLogsInEndState(ctx,
		domain.AssociatedTypeNone, domain.StateOperationsStuckStateCheckCompleted)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.NotNil(t, second[0].PrevStateLogID)
	assert.Equal(t, first[0].ID, *second[0].PrevStateLogID)
}

func TestIntegration_ProcessItemSurvivesRollback(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ready := domain.StatePaymentReadyForMaxWeeklyBenefitAmountValidation

	p := f.payment(f.employee(), "10.00", ready)
	boom := errors.New("downstream failed")

	step := funcStep{name: "FlakyStep", fn: func(ctx context.Context, run *Run) error {
		return run.ProcessItem(ctx, ready, statelog.ForPayment(p), func(ctx context.Context, u Unit) error {
			_, err := u.Engine.CreateFinishedStateLog(ctx, statelog.ForPayment(p),
				domain.StatePaymentMaxWeeklyBenefitAmountValidationPassed, domain.BuildOutcome("passed", nil, nil), nil)
			require.NoError(t, err)
			return boom
		})
	}}

	_, err := f.runner().Run(ctx, step)
	require.ErrorIs(t, err, boom)

	history, err := f.engine.GetHistory(ctx, statelog.ForPayment(p), domain.FlowDelegatedPayment)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ready.ID, history[0].EndStateID)
	assert.Equal(t, "Hit exception: downstream failed", history[0].Outcome.Message)
	assert.Equal(t, "downstream failed", history[0].Outcome.Extra["error"])
	assert.Equal(t, ready.ID, history[1].EndStateID)
}
