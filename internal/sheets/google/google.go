package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"goaltrack/internal/core"
	"goaltrack/internal/storage"
)

// DefaultSheetName is the tab holding the ledger mirror.
const DefaultSheetName = "Plans"

// Client mirrors the ledger into a single sheet tab, one row per month with
// the same columns as the CSV ledger.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ storage.LedgerStore = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Plans")
// Auth: an OAuth client plus saved user token, or a service account
// (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS).
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	return NewWithEnvCredentials(ctx, spreadsheetID, os.Getenv("GOOGLE_SHEET_NAME"))
}

// NewWithEnvCredentials creates a client for an explicit spreadsheet and
// tab, taking only the credentials from the environment.
func NewWithEnvCredentials(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	opts, err := authOptionsFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	return New(ctx, spreadsheetID, sheetName, opts...)
}

// New creates a client for spreadsheetID. Options are passed to the Sheets
// service unchanged.
func New(ctx context.Context, spreadsheetID, sheetName string, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets ledger mirror ready", "spreadsheet_id", spreadsheetID, "sheet", sheetName)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

func (c *Client) SheetName() string { return c.sheetName }

// dataRange covers the ledger columns of the tab.
func (c *Client) dataRange() string {
	return fmt.Sprintf("%s!A:%s", c.sheetName, columnLetter(len(storage.Header())))
}

// Load reads the mirror tab. An empty tab is an empty ledger.
func (c *Client) Load(ctx context.Context) ([]core.MonthlyRecord, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.dataRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", c.sheetName, err)
	}
	if len(resp.Values) == 0 {
		return []core.MonthlyRecord{}, nil
	}
	rows := make([][]string, 0, len(resp.Values)-1)
	for _, v := range resp.Values[1:] {
		rows = append(rows, toStrings(v))
	}
	return storage.DecodeLedger(ctx, toStrings(resp.Values[0]), rows), nil
}

// Save writes the header plus one row per month over the top of the tab,
// then clears whatever rows the previous ledger left below them. A failed
// write leaves the old rows in place.
func (c *Client) Save(ctx context.Context, records []core.MonthlyRecord) error {
	values := [][]interface{}{toValues(storage.Header())}
	for _, row := range storage.EncodeLedger(records) {
		values = append(values, toValues(row))
	}
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.sheetName+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write sheet %s: %w", c.sheetName, err)
	}

	tail := c.rowsFrom(len(values) + 1)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, tail, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear stale rows %s: %w", tail, err)
	}
	slog.DebugContext(ctx, "Ledger mirrored to sheet", "sheet", c.sheetName, "rows", len(values)-1)
	return nil
}

// rowsFrom covers the ledger columns from the 1-based row to the end.
func (c *Client) rowsFrom(row int) string {
	return fmt.Sprintf("%s!A%d:%s", c.sheetName, row, columnLetter(len(storage.Header())))
}
