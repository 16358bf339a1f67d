package storage

import (
	"context"
	"log/slog"
	"strings"

	"goaltrack/internal/core"
	"goaltrack/internal/ledger"
)

const (
	ColMonth      = "month"
	ColComment    = "comment"
	ColBalance    = "balance"
	ColTotalSaved = "total_saved"
)

// Header returns the column names written by EncodeLedger. balance and
// total_saved are informational and ignored by DecodeLedger.
func Header() []string {
	cols := []string{ColMonth}
	for _, c := range core.Categories() {
		cols = append(cols, string(c))
	}
	return append(cols, ColComment, ColBalance, ColTotalSaved)
}

// DecodeLedger turns a header row plus data rows into ledger records.
// Missing numeric columns and malformed numeric cells read as zero, a
// missing comment column as "". Rows without a parsable month cannot be
// keyed and are skipped. Rows sharing a month are merged.
func DecodeLedger(ctx context.Context, header []string, rows [][]string) []core.MonthlyRecord {
	index := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := make([]core.MonthlyRecord, 0, len(rows))
	for n, row := range rows {
		if isBlank(row) {
			continue
		}
		month, err := core.ParseMonth(cell(row, ColMonth))
		if err != nil {
			slog.WarnContext(ctx, "Skipping ledger row without a valid month",
				"row", n+2, "value", cell(row, ColMonth), "error", err)
			continue
		}
		rec := core.MonthlyRecord{Month: month, Comment: strings.TrimSpace(cell(row, ColComment))}
		for _, c := range core.Categories() {
			v, ok := core.ParseStoredAmount(cell(row, string(c)))
			if !ok {
				slog.WarnContext(ctx, "Malformed ledger amount, using 0",
					"row", n+2, "month", month.String(), "column", string(c), "value", cell(row, string(c)))
			}
			rec.SetAmount(c, v)
		}
		records = append(records, rec)
	}
	return ledger.NewLedger(records).Records()
}

// EncodeLedger renders records as rows matching Header, sorted by month and
// with derived columns recalculated.
func EncodeLedger(records []core.MonthlyRecord) [][]string {
	sorted := ledger.Recalc(records)
	rows := make([][]string, 0, len(sorted))
	for _, r := range sorted {
		row := []string{r.Month.StorageString()}
		for _, c := range core.Categories() {
			row = append(row, r.Amount(c).String())
		}
		row = append(row, r.Comment, r.Balance.String(), r.TotalSaved.String())
		rows = append(rows, row)
	}
	return rows
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
