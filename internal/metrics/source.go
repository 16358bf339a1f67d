package metrics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// ReadCSV reads a header row followed by data rows. Ragged rows are padded
// or kept as-is; normalization deals with missing cells.
func ReadCSV(r io.Reader) (RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return RawTable{}, nil
	}
	if err != nil {
		return RawTable{}, fmt.Errorf("read CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return RawTable{}, fmt.Errorf("read CSV rows: %w", err)
	}
	for i, row := range rows {
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			rows[i] = padded
		}
	}
	return RawTable{Columns: header, Rows: rows}, nil
}

// SynthConfig controls the demo dataset produced by Synthesize.
type SynthConfig struct {
	Start        time.Time
	Days         int
	Regions      []string
	Products     []string
	EventsPerDay int
	Seed         int64
}

// DefaultSynthConfig returns a 90-day dataset ending today.
func DefaultSynthConfig(now time.Time) SynthConfig {
	return SynthConfig{
		Start:        truncateDay(now).AddDate(0, 0, -89),
		Days:         90,
		Regions:      []string{"EU", "US", "APAC"},
		Products:     []string{"Basic", "Pro", "Enterprise"},
		EventsPerDay: 4,
		Seed:         1,
	}
}

// Synthesize generates an event table with date, region, product, value and
// converted columns. The same config always yields the same table.
func Synthesize(cfg SynthConfig) RawTable {
	if cfg.Days <= 0 || len(cfg.Regions) == 0 || len(cfg.Products) == 0 || cfg.EventsPerDay <= 0 {
		return RawTable{Columns: schemaColumns()}
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	start := truncateDay(cfg.Start)

	table := RawTable{Columns: schemaColumns()}
	for day := 0; day < cfg.Days; day++ {
		date := start.AddDate(0, 0, day)
		trend := 1 + float64(day)/float64(cfg.Days)
		for ri, region := range cfg.Regions {
			for pi, product := range cfg.Products {
				base := 50 * float64(pi+1) * (1 + 0.25*float64(ri))
				rate := 0.05 + 0.05*float64(pi)
				for e := 0; e < cfg.EventsPerDay; e++ {
					value := base * trend * (0.75 + rng.Float64()/2)
					converted := 0
					if rng.Float64() < rate {
						converted = 1
					}
					table.Rows = append(table.Rows, []string{
						date.Format("2006-01-02"),
						region,
						product,
						strconv.FormatFloat(value, 'f', 2, 64),
						strconv.Itoa(converted),
					})
				}
			}
		}
	}
	return table
}

// WriteCSV writes table as CSV with its header row.
func WriteCSV(w io.Writer, table RawTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return fmt.Errorf("write CSV rows: %w", err)
	}
	return nil
}

func schemaColumns() []string {
	cols := make([]string, len(schema))
	for i, f := range schema {
		cols[i] = f.name
	}
	return cols
}
