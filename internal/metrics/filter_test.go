package metrics

import (
	"errors"
	"testing"
	"time"
)

func filterFixture() []Record {
	return []Record{
		{Date: day(2025, 1, 1), Region: "EU", Product: "A", Value: 1},
		{Date: day(2025, 1, 5), Region: "EU", Product: "B", Value: 2},
		{Date: day(2025, 1, 10), Region: "US", Product: "A", Value: 3},
		{Date: day(2025, 1, 20), Region: "APAC", Product: "C", Value: 4},
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     []float64
	}{
		{
			name:     "inclusive date bounds",
			criteria: NewCriteria([]string{"EU", "US"}, []string{"A", "B"}, day(2025, 1, 1), day(2025, 1, 10)),
			want:     []float64{1, 2, 3},
		},
		{
			name:     "bounds with time of day",
			criteria: NewCriteria([]string{"EU", "US"}, []string{"A", "B"}, time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC), time.Date(2025, 1, 5, 1, 0, 0, 0, time.UTC)),
			want:     []float64{2},
		},
		{
			name:     "category membership",
			criteria: NewCriteria([]string{"EU"}, []string{"A"}, time.Time{}, time.Time{}),
			want:     []float64{1},
		},
		{
			name:     "open range",
			criteria: NewCriteria([]string{"EU", "US", "APAC"}, []string{"A", "B", "C"}, time.Time{}, time.Time{}),
			want:     []float64{1, 2, 3, 4},
		},
		{
			name:     "empty regions excludes everything",
			criteria: NewCriteria(nil, []string{"A", "B", "C"}, time.Time{}, time.Time{}),
			want:     nil,
		},
		{
			name:     "empty products excludes everything",
			criteria: NewCriteria([]string{"EU"}, []string{}, time.Time{}, time.Time{}),
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Filter(filterFixture(), tt.criteria)
			if len(res.Records) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(res.Records), len(tt.want))
			}
			for i, r := range res.Records {
				if r.Value != tt.want[i] {
					t.Fatalf("record %d value %v, want %v", i, r.Value, tt.want[i])
				}
			}
			if res.Empty != (len(tt.want) == 0) {
				t.Fatalf("Empty = %v", res.Empty)
			}
			if res.Empty && !errors.Is(res.Err(), ErrNoData) {
				t.Fatalf("empty result should report ErrNoData")
			}
			if !res.Empty && res.Err() != nil {
				t.Fatalf("unexpected error %v", res.Err())
			}
		})
	}
}

func TestDatasetOptions(t *testing.T) {
	opts := DatasetOptions(filterFixture())
	if len(opts.Regions) != 3 || opts.Regions[0] != "APAC" {
		t.Fatalf("unexpected regions %v", opts.Regions)
	}
	if len(opts.Products) != 3 {
		t.Fatalf("unexpected products %v", opts.Products)
	}
	if !opts.From.Equal(day(2025, 1, 1)) || !opts.To.Equal(day(2025, 1, 20)) {
		t.Fatalf("unexpected span %v..%v", opts.From, opts.To)
	}
	if res := Filter(filterFixture(), opts.AllOf()); len(res.Records) != 4 {
		t.Fatalf("AllOf should select everything, got %d", len(res.Records))
	}
}

func TestRun(t *testing.T) {
	records := filterFixture()
	rep := Run(records, Query{
		Criteria:    NewCriteria([]string{"EU"}, []string{"A", "B"}, time.Time{}, time.Time{}),
		Granularity: Monthly,
		GroupBy:     []GroupField{GroupRegion},
	})
	if rep.Empty || rep.Matched != 2 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if len(rep.Buckets) != 1 || rep.Buckets[0].SumValue != 3 || rep.Buckets[0].MeanValue != 1.5 {
		t.Fatalf("unexpected buckets %+v", rep.Buckets)
	}
	if len(rep.Latest) != 1 {
		t.Fatalf("unexpected latest %+v", rep.Latest)
	}

	empty := Run(records, Query{Criteria: NewCriteria([]string{"MARS"}, []string{"A"}, time.Time{}, time.Time{}), Granularity: Daily})
	if !empty.Empty || empty.Buckets == nil || len(empty.Buckets) != 0 {
		t.Fatalf("expected empty report with non-nil slices, got %+v", empty)
	}
}
