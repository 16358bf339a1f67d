package ledger

import (
	"fmt"

	"goaltrack/internal/core"
)

const commentGlue = " | "

// Ledger holds one record per month and applies transactions as upserts.
type Ledger struct {
	byMonth map[core.Month]*core.MonthlyRecord
}

// NewLedger indexes records by month. Records sharing a month are merged:
// amounts are summed and comments joined.
func NewLedger(records []core.MonthlyRecord) *Ledger {
	l := &Ledger{byMonth: make(map[core.Month]*core.MonthlyRecord, len(records))}
	for _, r := range records {
		r.Month = core.MonthOf(r.Month.Time)
		existing, ok := l.byMonth[r.Month]
		if !ok {
			rec := r
			l.byMonth[r.Month] = &rec
			continue
		}
		for _, c := range core.Categories() {
			existing.SetAmount(c, existing.Amount(c).Add(r.Amount(c)))
		}
		existing.Comment = joinComment(existing.Comment, r.Comment)
	}
	return l
}

// Len returns the number of months in the ledger.
func (l *Ledger) Len() int {
	return len(l.byMonth)
}

// Get returns the record for the month containing m.
func (l *Ledger) Get(m core.Month) (core.MonthlyRecord, bool) {
	r, ok := l.byMonth[core.MonthOf(m.Time)]
	if !ok {
		return core.MonthlyRecord{}, false
	}
	return *r, true
}

// Apply adds the transaction amount to its month, creating the month when
// it does not exist yet.
func (l *Ledger) Apply(tx core.Transaction) error {
	tx.Month = core.MonthOf(tx.Month.Time)
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("apply transaction: %w", err)
	}

	tag := commentTag(tx)
	rec, ok := l.byMonth[tx.Month]
	if !ok {
		rec = &core.MonthlyRecord{Month: tx.Month, Comment: tag}
		rec.SetAmount(tx.Category, tx.Amount)
		l.byMonth[tx.Month] = rec
		return nil
	}

	rec.SetAmount(tx.Category, rec.Amount(tx.Category).Add(tx.Amount))
	if tx.Comment != "" {
		rec.Comment = joinComment(rec.Comment, tag)
	}
	return nil
}

// Records returns the ledger ordered by month with derived fields computed.
func (l *Ledger) Records() []core.MonthlyRecord {
	out := make([]core.MonthlyRecord, 0, len(l.byMonth))
	for _, r := range l.byMonth {
		out = append(out, *r)
	}
	return Recalc(out)
}

// AppendTransaction applies tx to records and returns the updated, sorted
// and recalculated ledger. records is not modified.
func AppendTransaction(records []core.MonthlyRecord, tx core.Transaction) ([]core.MonthlyRecord, error) {
	l := NewLedger(records)
	if err := l.Apply(tx); err != nil {
		return nil, err
	}
	return l.Records(), nil
}

// commentTag renders "+<Label>: <amount>₽ (<comment>)"; the parenthesised
// part is omitted for an empty comment.
func commentTag(tx core.Transaction) string {
	tag := fmt.Sprintf("+%s: %s₽", tx.Category.Label(), core.WholeRubles(tx.Amount))
	if tx.Comment != "" {
		tag += " (" + tx.Comment + ")"
	}
	return tag
}

func joinComment(base, add string) string {
	switch {
	case add == "":
		return base
	case base == "":
		return add
	}
	return base + commentGlue + add
}
