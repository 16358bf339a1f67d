// Command metrics-synth writes a synthetic event table as CSV, suitable for
// METRICS_DATA_DIR or the upload endpoint.
package main

import (
	"bufio"
	"flag"
	"io"
	"os"
	"strings"
	"time"

	"goaltrack/internal/cli"
	applog "goaltrack/internal/log"
	"goaltrack/internal/metrics"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLoggerTo(os.Stderr, applog.ComponentMetrics)

	cfg := metrics.DefaultSynthConfig(time.Now())
	defaultDays := cfg.Days
	out := flag.String("o", "", "output file (default stdout)")
	flag.IntVar(&cfg.Days, "days", cfg.Days, "number of days ending today")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	flag.IntVar(&cfg.EventsPerDay, "events", cfg.EventsPerDay, "events per day for each region and product")
	regions := flag.String("regions", strings.Join(cfg.Regions, ","), "comma separated regions")
	products := flag.String("products", strings.Join(cfg.Products, ","), "comma separated products")
	flag.Parse()

	// Keep the window ending today.
	cfg.Start = cfg.Start.AddDate(0, 0, defaultDays-cfg.Days)
	cfg.Regions = splitList(*regions)
	cfg.Products = splitList(*products)

	table := metrics.Synthesize(cfg)

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			logger.Error("Failed to create output file", applog.FieldError, err, "path", *out)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)
	if err := metrics.WriteCSV(bw, table); err != nil {
		logger.Error("Failed to write CSV", applog.FieldError, err)
		os.Exit(1)
	}
	if err := bw.Flush(); err != nil {
		logger.Error("Failed to flush output", applog.FieldError, err)
		os.Exit(1)
	}
	if *out != "" {
		logger.Info("Wrote synthetic events", "path", *out, applog.FieldRecords, len(table.Rows))
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
