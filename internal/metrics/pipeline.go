package metrics

// Query is one dashboard interaction: filters, period width and grouping.
type Query struct {
	Criteria    Criteria
	Granularity Granularity
	GroupBy     []GroupField
}

// Report is the full output of one pipeline run. Buckets feed the chart,
// Latest the summary table.
type Report struct {
	Matched int      `json:"matched"`
	Empty   bool     `json:"empty"`
	Buckets []Bucket `json:"buckets"`
	Latest  []Bucket `json:"latest"`
}

// Run filters, aggregates and snapshots records for q.
func Run(records []Record, q Query) Report {
	res := Filter(records, q.Criteria)
	if res.Empty {
		return Report{Empty: true, Buckets: []Bucket{}, Latest: []Bucket{}}
	}
	buckets := Aggregate(res.Records, q.Granularity, q.GroupBy)
	return Report{
		Matched: len(res.Records),
		Buckets: buckets,
		Latest:  Latest(buckets, q.GroupBy),
	}
}
