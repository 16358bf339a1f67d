// Package ledger implements the savings ledger engine: derived balances,
// running savings totals, month-keyed upserts of transactions and progress
// against a savings goal.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"goaltrack/internal/core"
)

// Recalc returns a copy of records sorted by month with Balance and
// TotalSaved filled in. The input slice is left untouched.
func Recalc(records []core.MonthlyRecord) []core.MonthlyRecord {
	out := make([]core.MonthlyRecord, len(records))
	copy(out, records)
	sortByMonth(out)

	running := decimal.Zero
	for i := range out {
		out[i].Balance = Balance(out[i])
		running = running.Add(out[i].Savings)
		out[i].TotalSaved = running
	}
	return out
}

// Balance is income − expenses − installments − autoloan + debt_return − savings.
func Balance(r core.MonthlyRecord) decimal.Decimal {
	return r.Income.
		Sub(r.Expenses).
		Sub(r.Installments).
		Sub(r.Autoloan).
		Add(r.DebtReturn).
		Sub(r.Savings)
}

func sortByMonth(records []core.MonthlyRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Month.Before(records[j].Month.Time)
	})
}

// YearGroups splits records by calendar year. Every year between the first
// and last month is present, possibly with no records.
func YearGroups(records []core.MonthlyRecord) []core.YearGroup {
	if len(records) == 0 {
		return nil
	}
	sorted := Recalc(records)
	minYear := sorted[0].Month.Year()
	maxYear := sorted[len(sorted)-1].Month.Year()

	groups := make([]core.YearGroup, 0, maxYear-minYear+1)
	i := 0
	for y := minYear; y <= maxYear; y++ {
		g := core.YearGroup{Year: y, Records: []core.MonthlyRecord{}}
		for i < len(sorted) && sorted[i].Month.Year() == y {
			g.Records = append(g.Records, sorted[i])
			i++
		}
		groups = append(groups, g)
	}
	return groups
}

// MonthOptions lists the existing months as mm.yyyy labels in ascending order.
func MonthOptions(records []core.MonthlyRecord) []string {
	sorted := make([]core.MonthlyRecord, len(records))
	copy(sorted, records)
	sortByMonth(sorted)

	seen := make(map[core.Month]struct{}, len(sorted))
	out := make([]string, 0, len(sorted))
	for _, r := range sorted {
		if _, ok := seen[r.Month]; ok {
			continue
		}
		seen[r.Month] = struct{}{}
		out = append(out, r.Month.Label())
	}
	return out
}
