package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"goaltrack/internal/core"
	"goaltrack/internal/metrics"
)

func newParser(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return NewRequestBodyParser(httptest.NewRecorder(), req)
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantJSON    bool
		want        map[string]string
		wantErr     bool
	}{
		{
			name:        "json body",
			contentType: "application/json",
			body:        `{"month":"2025-01","amount":12.50,"comment":"  hi\u0007 "}`,
			wantJSON:    true,
			want:        map[string]string{"month": "2025-01", "amount": "12.50", "comment": "hi", "missing": ""},
		},
		{
			name:     "json detected without content type",
			body:     `  {"category":"savings"}`,
			wantJSON: true,
			want:     map[string]string{"category": "savings"},
		},
		{
			name:        "form body",
			contentType: "application/x-www-form-urlencoded",
			body:        "month=2025-02&amount=1+000",
			want:        map[string]string{"month": "2025-02", "amount": "1 000"},
		},
		{
			name:        "broken json",
			contentType: "application/json",
			body:        `{"month"`,
			wantErr:     true,
		},
		{
			name:    "empty",
			body:    "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, tt.contentType, tt.body)
			err := p.Parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if p.Parse() == nil {
					t.Fatal("second Parse must return the same error")
				}
				return
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
			for k, want := range tt.want {
				if got := p.Get(k); got != want {
					t.Errorf("Get(%q) = %q, want %q", k, got, want)
				}
			}
		})
	}
}

func TestRequestBodyParserTooLarge(t *testing.T) {
	p := newParser(t, "application/json", `{"comment":"`+strings.Repeat("x", maxFormBytes)+`"}`)
	var tooLarge *http.MaxBytesError
	if err := p.Parse(); !errors.As(err, &tooLarge) {
		t.Fatalf("expected MaxBytesError, got %v", err)
	}
}

func TestParseTransaction(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"valid", `{"month":"15.03.2025","category":"Debt_Return","amount":"1 500,25"}`, nil},
		{"missing month", `{"category":"income","amount":"1"}`, core.ErrInvalidMonth},
		{"bad category", `{"month":"2025-03","category":"food","amount":"1"}`, core.ErrInvalidCategory},
		{"bad amount", `{"month":"2025-03","category":"income","amount":"abc"}`, core.ErrInvalidAmount},
		{"negative", `{"month":"2025-03","category":"income","amount":-3}`, core.ErrNegativeAmount},
		{"long comment", `{"month":"2025-03","category":"income","amount":"1","comment":"` + strings.Repeat("c", 501) + `"}`, core.ErrCommentTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, "application/json", tt.body)
			if err := p.Parse(); err != nil {
				t.Fatalf("parse: %v", err)
			}
			tx, err := ParseTransaction(p)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if errorStatus(err) != http.StatusUnprocessableEntity {
					t.Fatalf("status for %v = %d", err, errorStatus(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if !tx.Month.Equal(core.NewMonth(2025, 3).Time) || tx.Category != core.DebtReturn || tx.Amount.String() != "1500.25" {
				t.Fatalf("unexpected transaction %+v", tx)
			}
		})
	}
}

func TestParseMetricsParams(t *testing.T) {
	q := url.Values{
		"source":   {"events.csv"},
		"region":   {"EU,US", "APAC"},
		"from":     {"2025-01-01"},
		"period":   {"W-MON"},
		"group_by": {"product,region"},
	}
	p, err := ParseMetricsParams(q)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if p.Source != "events.csv" || strings.Join(p.Regions, "|") != "EU|US|APAC" || p.Products != nil {
		t.Fatalf("unexpected params %+v", p)
	}
	if !p.From.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) || !p.To.IsZero() {
		t.Fatalf("unexpected range %v..%v", p.From, p.To)
	}
	if p.Period != metrics.Weekly || len(p.GroupBy) != 2 || p.GroupBy[0] != metrics.GroupProduct {
		t.Fatalf("unexpected period/group %v %v", p.Period, p.GroupBy)
	}

	opts := metrics.Options{Regions: []string{"EU"}, Products: []string{"A", "B"}}
	query := p.Query(opts)
	records := []metrics.Record{
		{Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), Region: "US", Product: "B", Value: 1},
		{Date: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), Region: "US", Product: "A", Value: 1},
	}
	if res := metrics.Filter(records, query.Criteria); len(res.Records) != 1 {
		t.Fatalf("absent products should fall back to all options, got %+v", res)
	}

	for _, bad := range []url.Values{
		{"from": {"2025/01/01"}},
		{"to": {"yesterday"}},
		{"period": {"yearly"}},
		{"group_by": {"city"}},
	} {
		if _, err := ParseMetricsParams(bad); err == nil {
			t.Errorf("expected error for %v", bad)
		}
	}
}
