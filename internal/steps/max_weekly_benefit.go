package steps

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Claimflow/internal/domain"
	"github.com/shaiso/Claimflow/internal/paycap"
	"github.com/shaiso/Claimflow/internal/repo"
	"github.com/shaiso/Claimflow/internal/statelog"
	"github.com/shopspring/decimal"
)

// CapProvider возвращает максимальное недельное пособие сотрудника
// за период. Расчёт по зарплате и году пособия живёт вне модуля.
type CapProvider interface {
	MaxWeeklyBenefit(ctx context.Context, employeeID uuid.UUID, period domain.PayPeriod) (decimal.Decimal, error)
}

// StaticCap: один лимит для всех сотрудников и периодов.
type StaticCap struct {
	Amount decimal.Decimal
}

func (c StaticCap) MaxWeeklyBenefit(context.Context, uuid.UUID, domain.PayPeriod) (decimal.Decimal, error) {
	return c.Amount, nil
}

// Метрики MaxWeeklyBenefitStep.
const (
	MetricPaymentCount     = "payment_count"
	MetricPeriodGroupCount = "period_group_count"
	MetricPassedCount      = "passed_count"
	MetricFailedCount      = "failed_count"
	MetricPassedAmount     = "passed_amount_cents"
	MetricGroupErrorCount  = "group_error_count"
)

// MaxWeeklyBenefitStep проверяет, что выплаты сотруднику за период не
// превышают максимальное недельное пособие.
//
// Платежи в PAYMENT_READY_FOR_MAX_WEEKLY_BENEFIT_AMOUNT_VALIDATION
// группируются по (сотрудник, период). Для группы берётся лимит и сумма
// уже выплаченного (платежи этого периода в невозобновляемых states,
// кроме текущего пакета); paycap.Decide выбирает лучшее подмножество.
// Принятые платежи идут в ..._PASSED, остальные в ..._FAILED с
// validation_container. Одна транзакция на группу.
type MaxWeeklyBenefitStep struct {
	caps CapProvider
}

// NewMaxWeeklyBenefitStep создаёт шаг.
func NewMaxWeeklyBenefitStep(caps CapProvider) *MaxWeeklyBenefitStep {
	return &MaxWeeklyBenefitStep{caps: caps}
}

func (s *MaxWeeklyBenefitStep) Name() string { return "MaxWeeklyBenefitStep" }

func (s *MaxWeeklyBenefitStep) RunStep(ctx context.Context, run *Run) error {
	ready, err := run.Engine().GetAllLatestStateLogsInEndState(ctx,
		domain.AssociatedTypePayment, domain.StatePaymentReadyForMaxWeeklyBenefitAmountValidation)
	if err != nil {
		return err
	}

	ids := make([]uuid.UUID, 0, len(ready))
	for _, l := range ready {
		if l.PaymentID != nil {
			ids = append(ids, *l.PaymentID)
		}
	}

	payments, err := repo.NewPaymentRepo(run.DB()).ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	run.Increment(MetricPaymentCount, len(payments))

	for _, g := range groupByEmployeePeriod(payments) {
		run.Increment(MetricPeriodGroupCount)

		if err := s.processGroup(ctx, run, g, ids); err != nil {
			run.Increment(MetricGroupErrorCount)
			s.recordGroupFailure(ctx, run, g, err)
			return err
		}
	}
	return nil
}

// periodGroup: платежи одного сотрудника за один период.
type periodGroup struct {
	employeeID uuid.UUID
	period     domain.PayPeriod
	payments   []domain.Payment
}

// groupByEmployeePeriod сохраняет порядок платежей внутри группы:
// от него зависит выбор при равных суммах.
func groupByEmployeePeriod(payments []domain.Payment) []periodGroup {
	type key struct {
		employee   uuid.UUID
		start, end string
	}

	var (
		groups []periodGroup
		index  = make(map[key]int)
	)
	for _, p := range payments {
		period := p.Period()
		k := key{p.EmployeeID, period.Start.Format("2006-01-02"), period.End.Format("2006-01-02")}

		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, periodGroup{employeeID: p.EmployeeID, period: period})
		}
		groups[i].payments = append(groups[i].payments, p)
	}
	return groups
}

func (s *MaxWeeklyBenefitStep) processGroup(ctx context.Context, run *Run, g periodGroup, batch []uuid.UUID) error {
	limit, err := s.caps.MaxWeeklyBenefit(ctx, g.employeeID, g.period)
	if err != nil {
		return fmt.Errorf("max weekly benefit for %s %s: %w", g.employeeID, g.period, err)
	}

	var passed, failed int
	var passedAmount decimal.Decimal

	err = run.InTx(ctx, func(ctx context.Context, u Unit) error {
		prior, err := repo.NewPaymentRepo(u.Tx).SumPriorPayments(ctx,
			g.employeeID, g.period, domain.NonRestartablePaymentStates, batch)
		if err != nil {
			return err
		}

		candidates := make([]paycap.Candidate, len(g.payments))
		for i, p := range g.payments {
			candidates[i] = paycap.Candidate{Key: p.ID.String(), Amount: p.Amount}
		}
		decision := paycap.Decide(limit, prior, candidates)

		byKey := make(map[string]*domain.Payment, len(g.payments))
		for i := range g.payments {
			byKey[g.payments[i].ID.String()] = &g.payments[i]
		}

		for _, c := range decision.Accepted {
			outcome := domain.BuildOutcome("Payment passed max weekly benefit amount validation", nil,
				map[string]any{
					"maximum_weekly_benefit_amount": limit.StringFixed(2),
					"prior_payment_amount":          prior.StringFixed(2),
				})
			_, err := u.Engine.CreateFinishedStateLog(ctx, statelog.ForPayment(byKey[c.Key]),
				domain.StatePaymentMaxWeeklyBenefitAmountValidationPassed, outcome, nil)
			if err != nil {
				return err
			}
			passed++
			passedAmount = passedAmount.Add(c.Amount)
		}

		for _, rej := range decision.Rejected {
			container := domain.NewValidationContainer(rej.Key)
			container.AddIssue(domain.ValidationReasonPaymentExceedsMaxWeeklyBenefits, rej.Message, "amount")
			outcome := domain.BuildOutcome("Payment failed max weekly benefit amount validation", container, nil)

			_, err := u.Engine.CreateFinishedStateLog(ctx, statelog.ForPayment(byKey[rej.Key]),
				domain.StatePaymentFailedMaxWeeklyBenefitAmountValidation, outcome, nil)
			if err != nil {
				return err
			}
			failed++
		}
		return nil
	})
	if err != nil {
		return err
	}

	run.Increment(MetricPassedCount, passed)
	run.Increment(MetricFailedCount, failed)
	run.Increment(MetricPassedAmount, int(passedAmount.Shift(2).IntPart()))
	return nil
}

// recordGroupFailure пишет сбой группы вне откатившейся транзакции.
func (s *MaxWeeklyBenefitStep) recordGroupFailure(ctx context.Context, run *Run, g periodGroup, cause error) {
	for i := range g.payments {
		_, err := run.Engine().RecordFailure(ctx,
			domain.StatePaymentReadyForMaxWeeklyBenefitAmountValidation,
			statelog.ForPayment(&g.payments[i]), cause)
		if err != nil {
			run.Logger().ErrorContext(ctx, "record payment failure",
				"payment_id", g.payments[i].ID, "error", err, "cause", cause)
		}
	}
}

