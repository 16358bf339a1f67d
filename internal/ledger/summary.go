package ledger

import (
	"github.com/shopspring/decimal"

	"goaltrack/internal/core"
)

// Goal is a fixed savings target with a deadline month.
type Goal struct {
	Title    string
	Amount   decimal.Decimal
	Deadline core.Month
}

// Summarize measures savings in records against goal as of reference.
// A zero reference means the first day of the current month.
func Summarize(records []core.MonthlyRecord, goal Goal, reference core.Month) core.GoalSummary {
	if reference.IsZero() {
		reference = core.CurrentMonth()
	}
	reference = core.MonthOf(reference.Time)

	accumulated := decimal.Zero
	planned := decimal.Zero
	for _, r := range records {
		switch {
		case !r.Month.After(reference.Time):
			accumulated = accumulated.Add(r.Savings)
		case !r.Month.After(goal.Deadline.Time):
			planned = planned.Add(r.Savings)
		}
	}

	shortfall := goal.Amount.Sub(accumulated.Add(planned))
	if shortfall.IsNegative() {
		shortfall = decimal.Zero
	}

	return core.GoalSummary{
		Title:         goal.Title,
		Goal:          goal.Amount,
		Deadline:      goal.Deadline,
		Reference:     reference,
		Accumulated:   accumulated,
		PlannedFuture: planned,
		Remaining:     goal.Amount.Sub(accumulated),
		Shortfall:     shortfall,
		ProgressRatio: progress(accumulated, goal.Amount),
	}
}

func progress(accumulated, goal decimal.Decimal) float64 {
	if goal.IsZero() {
		return 0
	}
	ratio := accumulated.Div(goal).InexactFloat64()
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	}
	return ratio
}
