package metrics

import (
	"sort"
	"time"
)

type bucketKey struct {
	group  groupKey
	period time.Time
}

type accumulator struct {
	values    []float64
	converted int
}

// Aggregate buckets records by period start and the requested group fields
// and computes mean and sum of value plus the mean of converted per bucket.
// Output is sorted by group then period and does not depend on input order.
func Aggregate(records []Record, g Granularity, groupBy []GroupField) []Bucket {
	acc := make(map[bucketKey]*accumulator)
	for _, r := range records {
		k := bucketKey{
			group:  keyOf(r.Region, r.Product, groupBy),
			period: g.PeriodStart(r.Date),
		}
		a, ok := acc[k]
		if !ok {
			a = &accumulator{}
			acc[k] = a
		}
		a.values = append(a.values, r.Value)
		a.converted += r.Converted
	}

	out := make([]Bucket, 0, len(acc))
	for k, a := range acc {
		// Summing in sorted order keeps float results independent of input order.
		sort.Float64s(a.values)
		sum := 0.0
		for _, v := range a.values {
			sum += v
		}
		n := float64(len(a.values))
		out = append(out, Bucket{
			Region:        k.group.region,
			Product:       k.group.product,
			Period:        k.period,
			MeanValue:     sum / n,
			SumValue:      sum,
			MeanConverted: float64(a.converted) / n,
			Count:         len(a.values),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		ki := groupKey{out[i].Region, out[i].Product}
		kj := groupKey{out[j].Region, out[j].Product}
		if ki != kj {
			return ki.less(kj)
		}
		return out[i].Period.Before(out[j].Period)
	})
	return out
}
