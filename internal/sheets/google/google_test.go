package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"

	"goaltrack/internal/core"
)

// fakeSheets implements the three values endpoints used by Client. Writes
// overwrite rows from the top and clears drop rows from the range start.
type fakeSheets struct {
	mu          sync.Mutex
	values      [][]interface{}
	cleared     int
	lastRaw     string
	failUpdates bool
}

var clearStartRow = regexp.MustCompile(`![A-Z]+(\d+):`)

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
		f.cleared++
		from := 0
		if m := clearStartRow.FindStringSubmatch(r.URL.Path); m != nil {
			from, _ = strconv.Atoi(m[1])
			from--
		}
		if from < len(f.values) {
			f.values = f.values[:from]
		}
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPut:
		if f.failUpdates {
			http.Error(w, `{"error":{"code":500,"message":"backend error"}}`, http.StatusInternalServerError)
			return
		}
		f.lastRaw = r.URL.Query().Get("valueInputOption")
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for i, row := range body.Values {
			if i < len(f.values) {
				f.values[i] = row
			} else {
				f.values = append(f.values, row)
			}
		}
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"majorDimension": "ROWS", "values": f.values})
	default:
		http.Error(w, "unexpected request", http.StatusNotFound)
	}
}

func newFakeClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), "sheet-id", "",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	_, err := NewFromEnv(context.Background())
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	clearAuthEnv(t)
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "service account") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestNewFromEnv_UnreadableCredentialsFile(t *testing.T) {
	clearAuthEnv(t)
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", t.TempDir()+string(os.PathSeparator)+"missing.json")
	if _, err := NewFromEnv(context.Background()); err == nil {
		t.Fatal("expected error for missing credentials file")
	}
}

func TestClientEmptySheet(t *testing.T) {
	c := newFakeClient(t, &fakeSheets{})
	if c.SheetName() != DefaultSheetName {
		t.Fatalf("unexpected sheet %q", c.SheetName())
	}
	got, err := c.Load(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty ledger, got %v err=%v", got, err)
	}
}

func TestClientSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSheets{values: [][]interface{}{{"stale"}}}
	c := newFakeClient(t, fake)

	records := []core.MonthlyRecord{
		{Month: core.NewMonth(2025, 2), Savings: decimal.NewFromInt(200), Comment: "feb"},
		{Month: core.NewMonth(2025, 1), Income: decimal.NewFromInt(1000), Savings: decimal.NewFromInt(100)},
	}
	if err := c.Save(ctx, records); err != nil {
		t.Fatalf("save: %v", err)
	}
	if fake.cleared != 1 || fake.lastRaw != "RAW" {
		t.Fatalf("expected RAW update then tail clear, cleared=%d option=%q", fake.cleared, fake.lastRaw)
	}
	if len(fake.values) != 3 || fake.values[1][0] != "01-01-2025" {
		t.Fatalf("unexpected written rows %v", fake.values)
	}

	got, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[1].Comment != "feb" || !got[1].TotalSaved.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("unexpected records %+v", got)
	}
}

func TestClientSaveShrinksLedger(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSheets{}
	c := newFakeClient(t, fake)

	three := []core.MonthlyRecord{
		{Month: core.NewMonth(2025, 1), Savings: decimal.NewFromInt(100)},
		{Month: core.NewMonth(2025, 2), Savings: decimal.NewFromInt(200)},
		{Month: core.NewMonth(2025, 3), Savings: decimal.NewFromInt(300)},
	}
	if err := c.Save(ctx, three); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := c.Save(ctx, three[:1]); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || !got[0].Month.Equal(core.NewMonth(2025, 1).Time) {
		t.Fatalf("stale rows left behind: %+v", got)
	}
}

func TestClientFailedSaveKeepsExistingLedger(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSheets{}
	c := newFakeClient(t, fake)

	existing := []core.MonthlyRecord{
		{Month: core.NewMonth(2025, 1), Income: decimal.NewFromInt(1000), Savings: decimal.NewFromInt(100)},
	}
	if err := c.Save(ctx, existing); err != nil {
		t.Fatalf("save: %v", err)
	}

	fake.mu.Lock()
	fake.failUpdates = true
	fake.mu.Unlock()
	next := append(existing, core.MonthlyRecord{Month: core.NewMonth(2025, 2), Savings: decimal.NewFromInt(50)})
	if err := c.Save(ctx, next); err == nil {
		t.Fatal("expected write error")
	}

	got, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || !got[0].Savings.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("failed save lost the ledger: %+v", got)
	}
}
