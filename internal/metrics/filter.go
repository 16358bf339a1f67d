package metrics

import (
	"sort"
	"time"
)

// Criteria selects records by category membership and an inclusive date
// range. A nil or empty set excludes everything; a zero From or To leaves
// that end of the range open.
type Criteria struct {
	Regions  map[string]struct{}
	Products map[string]struct{}
	From     time.Time
	To       time.Time
}

// NewCriteria builds Criteria from plain slices.
func NewCriteria(regions, products []string, from, to time.Time) Criteria {
	return Criteria{
		Regions:  toSet(regions),
		Products: toSet(products),
		From:     from,
		To:       to,
	}
}

// Result is the outcome of Filter. Empty is a valid terminal state.
type Result struct {
	Records []Record
	Empty   bool
}

// Err returns ErrNoData for an empty result.
func (r Result) Err() error {
	if r.Empty {
		return ErrNoData
	}
	return nil
}

// Filter keeps records whose region and product are selected and whose date
// falls within [From, To].
func Filter(records []Record, c Criteria) Result {
	if len(c.Regions) == 0 || len(c.Products) == 0 {
		return Result{Records: []Record{}, Empty: true}
	}
	from, to := c.From, c.To
	if !from.IsZero() {
		from = truncateDay(from)
	}
	if !to.IsZero() {
		to = truncateDay(to)
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if _, ok := c.Regions[r.Region]; !ok {
			continue
		}
		if _, ok := c.Products[r.Product]; !ok {
			continue
		}
		day := truncateDay(r.Date)
		if !from.IsZero() && day.Before(from) {
			continue
		}
		if !to.IsZero() && day.After(to) {
			continue
		}
		out = append(out, r)
	}
	return Result{Records: out, Empty: len(out) == 0}
}

// Options describes the selectable values of a dataset.
type Options struct {
	Regions  []string  `json:"regions"`
	Products []string  `json:"products"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
}

// DatasetOptions returns the distinct regions and products (sorted) and the
// date span of records.
func DatasetOptions(records []Record) Options {
	regions := map[string]struct{}{}
	products := map[string]struct{}{}
	var opts Options
	for i, r := range records {
		regions[r.Region] = struct{}{}
		products[r.Product] = struct{}{}
		if i == 0 || r.Date.Before(opts.From) {
			opts.From = r.Date
		}
		if i == 0 || r.Date.After(opts.To) {
			opts.To = r.Date
		}
	}
	opts.Regions = sortedKeys(regions)
	opts.Products = sortedKeys(products)
	return opts
}

// AllOf returns Criteria selecting every record described by o.
func (o Options) AllOf() Criteria {
	return NewCriteria(o.Regions, o.Products, o.From, o.To)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
