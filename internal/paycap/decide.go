package paycap

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Candidate: платёж текущего пакета.
type Candidate struct {
	// Key идентифицирует платёж (обычно payment_id).
	Key    string
	Amount decimal.Decimal
}

// Rejection: отклонённый кандидат и причина.
type Rejection struct {
	Candidate
	Message string
}

// Decision: разбиение кандидатов на принятые и отклонённые.
// Оба списка сохраняют исходный порядок кандидатов.
type Decision struct {
	Accepted []Candidate
	Rejected []Rejection

	// Total: выплаченное ранее плюс сумма принятых.
	Total decimal.Decimal
}

// AcceptedAmount возвращает сумму принятых кандидатов.
func (d Decision) AcceptedAmount() decimal.Decimal {
	return Sum(d.Accepted)
}

// Sum складывает суммы кандидатов.
func Sum(candidates []Candidate) decimal.Decimal {
	total := decimal.Zero
	for _, c := range candidates {
		total = total.Add(c.Amount)
	}
	return total
}

// Decide выбирает лучшее подмножество кандидатов.
//
// Если всё помещается в лимит, принимаются все без перебора. Если не
// помещается ничего (в том числе когда prior уже больше лимита),
// отклоняются все.
func Decide(limit, prior decimal.Decimal, candidates []Candidate) Decision {
	if prior.Add(Sum(candidates)).LessThanOrEqual(limit) {
		accepted := make([]Candidate, len(candidates))
		copy(accepted, candidates)
		return Decision{
			Accepted: accepted,
			Total:    prior.Add(Sum(candidates)),
		}
	}

	best := bestCombination(limit, prior, candidates)

	chosen := make(map[int]bool, len(best))
	for _, i := range best {
		chosen[i] = true
	}

	d := Decision{Total: prior}
	for i, c := range candidates {
		if chosen[i] {
			d.Accepted = append(d.Accepted, c)
			d.Total = d.Total.Add(c.Amount)
		}
	}

	for i, c := range candidates {
		if chosen[i] {
			continue
		}
		d.Rejected = append(d.Rejected, Rejection{
			Candidate: c,
			Message:   rejectionMessage(limit, prior, d.Accepted),
		})
	}
	return d
}

// bestCombination возвращает индексы лучшего сочетания или nil,
// если ни одно сочетание не помещается в лимит.
func bestCombination(limit, prior decimal.Decimal, candidates []Candidate) []int {
	var (
		best    []int
		bestSum decimal.Decimal
		found   bool
	)

	n := len(candidates)
	for size := 1; size <= n; size++ {
		forEachCombination(n, size, func(idx []int) {
			total := prior
			for _, i := range idx {
				total = total.Add(candidates[i].Amount)
			}
			if total.GreaterThan(limit) {
				return
			}
			if !found || total.GreaterThan(bestSum) {
				found = true
				bestSum = total
				best = append(best[:0:0], idx...)
			}
		})
	}
	return best
}

// forEachCombination вызывает fn для каждого сочетания из n по k
// в лексикографическом порядке индексов. Срез idx переиспользуется.
func forEachCombination(n, k int, fn func(idx []int)) {
	if k <= 0 || k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		fn(idx)

		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

func rejectionMessage(limit, prior decimal.Decimal, accepted []Candidate) string {
	amounts := make([]string, len(accepted))
	for i, c := range accepted {
		amounts[i] = c.Amount.StringFixed(2)
	}
	acceptedText := "none"
	if len(amounts) > 0 {
		acceptedText = strings.Join(amounts, ", ")
	}
	return fmt.Sprintf(
		"Payment would exceed the maximum weekly benefit amount of %s. Prior payments for the period: %s. Accepted payments: %s",
		limit.StringFixed(2), prior.StringFixed(2), acceptedText,
	)
}
