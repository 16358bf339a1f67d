package core

import "github.com/shopspring/decimal"

// GoalSummary is the progress of the ledger against a savings goal.
type GoalSummary struct {
	Title         string
	Goal          decimal.Decimal
	Deadline      Month
	Reference     Month
	Accumulated   decimal.Decimal
	PlannedFuture decimal.Decimal
	Remaining     decimal.Decimal // may be negative once the goal is exceeded
	Shortfall     decimal.Decimal // never negative
	ProgressRatio float64         // in [0,1]
}

// Warning reports whether current plans miss the goal by the deadline.
func (s GoalSummary) Warning() bool {
	return s.Shortfall.IsPositive()
}

// YearGroup holds the ledger rows of one calendar year.
type YearGroup struct {
	Year    int
	Records []MonthlyRecord
}
