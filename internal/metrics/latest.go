package metrics

import "sort"

// Latest keeps, for every distinct group, the bucket with the greatest
// period start. With no group fields the whole input is a single group.
func Latest(buckets []Bucket, groupBy []GroupField) []Bucket {
	latest := make(map[groupKey]Bucket)
	for _, b := range buckets {
		k := keyOf(b.Region, b.Product, groupBy)
		if cur, ok := latest[k]; !ok || b.Period.After(cur.Period) {
			latest[k] = b
		}
	}

	out := make([]Bucket, 0, len(latest))
	for _, b := range latest {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return keyOf(out[i].Region, out[i].Product, groupBy).less(keyOf(out[j].Region, out[j].Product, groupBy))
	})
	return out
}
