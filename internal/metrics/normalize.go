package metrics

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultCategory  = "NA"
	DefaultValue     = 0.0
	DefaultConverted = 0
)

// field binds a canonical column name to the coercion that writes it into a
// Record. Coercions receive "" for a missing column and fall back to the
// field default for anything they cannot parse.
type field struct {
	name   string
	assign func(r *Record, cell string, today time.Time)
}

// schema is applied in order to every row.
var schema = []field{
	{name: "date", assign: func(r *Record, cell string, today time.Time) { r.Date = coerceDate(cell, today) }},
	{name: "region", assign: func(r *Record, cell string, _ time.Time) { r.Region = coerceCategory(cell) }},
	{name: "product", assign: func(r *Record, cell string, _ time.Time) { r.Product = coerceCategory(cell) }},
	{name: "value", assign: func(r *Record, cell string, _ time.Time) { r.Value = coerceFloat(cell) }},
	{name: "converted", assign: func(r *Record, cell string, _ time.Time) { r.Converted = coerceInt(cell) }},
}

// Normalize maps raw onto the five-field schema. Column names match case
// insensitively and the first matching column wins; missing columns and
// unparsable cells take the field defaults. Dates default to the calendar
// day of now. The result is sorted by date and Normalize never fails.
func Normalize(raw RawTable, now time.Time) []Record {
	today := truncateDay(now)

	index := make([]int, len(schema))
	for i, f := range schema {
		index[i] = -1
		for j, col := range raw.Columns {
			if strings.EqualFold(strings.TrimSpace(col), f.name) {
				index[i] = j
				break
			}
		}
	}

	out := make([]Record, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		var r Record
		for i, f := range schema {
			cell := ""
			if j := index[i]; j >= 0 && j < len(row) {
				cell = row[j]
			}
			f.assign(&r, cell, today)
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339,
	time.RFC3339Nano,
	"2006/01/02",
	"02-01-2006",
	"02.01.2006",
	"01/02/2006",
}

func coerceDate(cell string, def time.Time) time.Time {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return def
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return truncateDay(t)
		}
	}
	return def
}

func coerceCategory(cell string) string {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "nan") {
		return DefaultCategory
	}
	return cell
}

func coerceFloat(cell string) float64 {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return DefaultValue
	}
	if strings.Contains(cell, ",") && !strings.Contains(cell, ".") {
		cell = strings.ReplaceAll(cell, ",", ".")
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultValue
	}
	return v
}

func coerceInt(cell string) int {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return DefaultConverted
	}
	if v, err := strconv.Atoi(cell); err == nil {
		return v
	}
	// Fractions truncate toward zero.
	if v, err := strconv.ParseFloat(cell, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return int(math.Trunc(v))
	}
	if b, err := strconv.ParseBool(cell); err == nil {
		if b {
			return 1
		}
		return 0
	}
	return DefaultConverted
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
