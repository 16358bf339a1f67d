// Package metrics normalizes arbitrary event tables onto a fixed schema and
// aggregates them by time period and category for the metrics dashboard.
package metrics

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

const (
	GroupRegion  GroupField = "region"
	GroupProduct GroupField = "product"
)

type (
	// Granularity is the width of the time bucket used by Aggregate.
	Granularity string

	// GroupField is a categorical field records can be grouped by.
	GroupField string

	// RawTable is an already-loaded table with a header row.
	RawTable struct {
		Columns []string
		Rows    [][]string
	}

	// Record is one normalized event. Date carries no time of day.
	Record struct {
		Date      time.Time `json:"date"`
		Region    string    `json:"region"`
		Product   string    `json:"product"`
		Value     float64   `json:"value"`
		Converted int       `json:"converted"`
	}

	// Bucket holds statistics for one group in one period. Region and
	// Product are empty unless the aggregation grouped by them.
	Bucket struct {
		Region        string    `json:"region,omitempty"`
		Product       string    `json:"product,omitempty"`
		Period        time.Time `json:"period"`
		MeanValue     float64   `json:"mean_value"`
		SumValue      float64   `json:"sum_value"`
		MeanConverted float64   `json:"mean_converted"`
		Count         int       `json:"count"`
	}
)

var (
	// ErrNoData marks a filter selection that matched no records. It is a
	// valid outcome, not a processing failure.
	ErrNoData = errors.New("no data for the selected filters")

	ErrInvalidGranularity = errors.New("invalid period granularity")
	ErrInvalidGroupField  = errors.New("invalid group-by field")
)

// ParseGranularity accepts daily/weekly/monthly and the D, W-MON, MS aliases.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "d", "day", "daily":
		return Daily, nil
	case "w", "w-mon", "week", "weekly":
		return Weekly, nil
	case "ms", "m", "month", "monthly":
		return Monthly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
}

// PeriodStart maps t to the first instant of its containing period.
// Weeks start on Monday.
func (g Granularity) PeriodStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch g {
	case Weekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case Monthly:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return day
}

// ParseGroupBy validates and de-duplicates group-by fields, keeping order.
func ParseGroupBy(fields []string) ([]GroupField, error) {
	out := make([]GroupField, 0, len(fields))
	seen := map[GroupField]bool{}
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		gf := GroupField(f)
		if gf != GroupRegion && gf != GroupProduct {
			return nil, fmt.Errorf("%w: %q", ErrInvalidGroupField, f)
		}
		if seen[gf] {
			continue
		}
		seen[gf] = true
		out = append(out, gf)
	}
	return out, nil
}

// groupKey is the categorical part of an aggregation key.
type groupKey struct {
	region  string
	product string
}

func keyOf(region, product string, groupBy []GroupField) groupKey {
	var k groupKey
	for _, f := range groupBy {
		switch f {
		case GroupRegion:
			k.region = region
		case GroupProduct:
			k.product = product
		}
	}
	return k
}

func (k groupKey) less(o groupKey) bool {
	if k.region != o.region {
		return k.region < o.region
	}
	return k.product < o.product
}
