package http

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"goaltrack/internal/core"
	"goaltrack/internal/metrics"
	"goaltrack/internal/services"
)

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// num renders a decimal as a JSON number without float rounding.
func num(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

type recordView struct {
	Month        string      `json:"month"`
	Label        string      `json:"label"`
	Income       json.Number `json:"income"`
	Expenses     json.Number `json:"expenses"`
	Installments json.Number `json:"installments"`
	Autoloan     json.Number `json:"autoloan"`
	Savings      json.Number `json:"savings"`
	DebtReturn   json.Number `json:"debt_return"`
	Comment      string      `json:"comment"`
	Balance      json.Number `json:"balance"`
	TotalSaved   json.Number `json:"total_saved"`
}

type summaryView struct {
	Title         string      `json:"title"`
	Goal          json.Number `json:"goal"`
	Deadline      string      `json:"deadline"`
	Reference     string      `json:"reference"`
	Accumulated   json.Number `json:"accumulated"`
	PlannedFuture json.Number `json:"planned_future"`
	Remaining     json.Number `json:"remaining"`
	Shortfall     json.Number `json:"shortfall"`
	ProgressRatio float64     `json:"progress_ratio"`
	Warning       bool        `json:"warning"`
}

type yearView struct {
	Year    int          `json:"year"`
	Records []recordView `json:"records"`
}

type ledgerView struct {
	Records      []recordView `json:"records"`
	Summary      summaryView  `json:"summary"`
	Years        []yearView   `json:"years"`
	MonthOptions []string     `json:"month_options"`
}

func newRecordView(r core.MonthlyRecord) recordView {
	return recordView{
		Month:        r.Month.String(),
		Label:        r.Month.Label(),
		Income:       num(r.Income),
		Expenses:     num(r.Expenses),
		Installments: num(r.Installments),
		Autoloan:     num(r.Autoloan),
		Savings:      num(r.Savings),
		DebtReturn:   num(r.DebtReturn),
		Comment:      r.Comment,
		Balance:      num(r.Balance),
		TotalSaved:   num(r.TotalSaved),
	}
}

func newRecordViews(records []core.MonthlyRecord) []recordView {
	out := make([]recordView, 0, len(records))
	for _, r := range records {
		out = append(out, newRecordView(r))
	}
	return out
}

func newLedgerView(s services.LedgerSnapshot) ledgerView {
	years := make([]yearView, 0, len(s.Years))
	for _, y := range s.Years {
		years = append(years, yearView{Year: y.Year, Records: newRecordViews(y.Records)})
	}
	options := s.MonthOptions
	if options == nil {
		options = []string{}
	}
	sum := s.Summary
	return ledgerView{
		Records: newRecordViews(s.Records),
		Summary: summaryView{
			Title:         sum.Title,
			Goal:          num(sum.Goal),
			Deadline:      sum.Deadline.String(),
			Reference:     sum.Reference.String(),
			Accumulated:   num(sum.Accumulated),
			PlannedFuture: num(sum.PlannedFuture),
			Remaining:     num(sum.Remaining),
			Shortfall:     num(sum.Shortfall),
			ProgressRatio: sum.ProgressRatio,
			Warning:       sum.Warning(),
		},
		Years:        years,
		MonthOptions: options,
	}
}

type sourcesView struct {
	Sources []string `json:"sources"`
}

type uploadView struct {
	Source  string          `json:"source"`
	Options metrics.Options `json:"options"`
}

type statusView struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}
