// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// transaction bodies sent as JSON or form data, and metrics query strings.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"goaltrack/internal/core"
	"goaltrack/internal/metrics"
)

// maxFormBytes bounds transaction request bodies.
const maxFormBytes = 64 << 10

var errEmptyBody = errors.New("empty request body")

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body of r once, up to maxFormBytes.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxFormBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data. JSON is chosen by
// content type or by a leading brace.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.err = errEmptyBody
		return p.err
	}

	if strings.HasPrefix(p.contentType, "application/json") || trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("invalid JSON body: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	if p.err != nil {
		p.err = fmt.Errorf("invalid form body: %w", p.err)
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseTransaction builds a transaction from month, category, amount and
// comment fields. The returned error wraps a core validation error.
func ParseTransaction(p *RequestBodyParser) (core.Transaction, error) {
	month, err := core.ParseMonth(p.Get("month"))
	if err != nil {
		return core.Transaction{}, err
	}
	category, err := core.ParseCategory(p.Get("category"))
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		Month:    month,
		Category: category,
		Amount:   amount,
		Comment:  p.Get("comment"),
	}
	return tx, tx.Validate()
}

// MetricsParams are the query parameters of a metrics request before they
// are resolved against a dataset.
type MetricsParams struct {
	Source   string
	Regions  []string
	Products []string
	From     time.Time
	To       time.Time
	Period   metrics.Granularity
	GroupBy  []metrics.GroupField
}

// ParseMetricsParams reads source, region, product, from, to, period and
// group_by. List parameters may repeat or be comma separated. A nil list
// means the parameter was absent.
func ParseMetricsParams(q url.Values) (MetricsParams, error) {
	p := MetricsParams{
		Source:   sanitizeInput(q.Get("source")),
		Regions:  listParam(q, "region"),
		Products: listParam(q, "product"),
	}

	var err error
	if p.From, err = dateParam(q, "from"); err != nil {
		return MetricsParams{}, err
	}
	if p.To, err = dateParam(q, "to"); err != nil {
		return MetricsParams{}, err
	}
	if p.Period, err = metrics.ParseGranularity(q.Get("period")); err != nil {
		return MetricsParams{}, err
	}
	if p.GroupBy, err = metrics.ParseGroupBy(listParam(q, "group_by")); err != nil {
		return MetricsParams{}, err
	}
	return p, nil
}

// Query resolves absent filters to everything in opts.
func (p MetricsParams) Query(opts metrics.Options) metrics.Query {
	regions, products := p.Regions, p.Products
	if regions == nil {
		regions = opts.Regions
	}
	if products == nil {
		products = opts.Products
	}
	return metrics.Query{
		Criteria:    metrics.NewCriteria(regions, products, p.From, p.To),
		Granularity: p.Period,
		GroupBy:     p.GroupBy,
	}
}

// listParam returns nil when key is absent and an empty, non-nil slice when
// it is present but blank, so "region=" selects nothing.
func listParam(q url.Values, key string) []string {
	raw, ok := q[key]
	if !ok {
		return nil
	}
	out := []string{}
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = sanitizeInput(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func dateParam(q url.Values, key string) (time.Time, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD, got %q", errBadParam, key, v)
	}
	return t, nil
}

var errBadParam = errors.New("invalid query parameter")
