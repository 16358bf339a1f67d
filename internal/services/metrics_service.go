package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"goaltrack/internal/cache"
	applog "goaltrack/internal/log"
	"goaltrack/internal/metrics"
)

// SyntheticSource names the generated demo dataset. It is also used when
// no source is given.
const SyntheticSource = "synthetic"

const uploadPrefix = "upload-"

// MaxUploads bounds the uploaded tables kept in memory. The oldest upload
// is dropped when a new one would exceed it.
const MaxUploads = 32

var (
	ErrUnknownSource = errors.New("unknown metrics source")
	ErrInvalidSource = errors.New("invalid metrics source name")
)

// MetricsService resolves a source name to normalized records and runs
// the metrics pipeline over them. Sources are the synthetic dataset, CSV
// files in the data directory and tables uploaded at runtime. Normalized
// datasets are cached per source.
type MetricsService struct {
	dataDir string
	loader  *cache.Loader[[]metrics.Record]
	now     func() time.Time

	mu          sync.RWMutex
	uploads     map[string]metrics.RawTable
	uploadOrder []string
	maxUploads  int
}

func NewMetricsService(dataDir string, loader *cache.Loader[[]metrics.Record]) *MetricsService {
	return &MetricsService{
		dataDir: dataDir,
		loader:  loader,
		now:     time.Now,
		uploads:    make(map[string]metrics.RawTable),
		maxUploads: MaxUploads,
	}
}

// Dataset returns the normalized records of source, sorted by date.
func (s *MetricsService) Dataset(ctx context.Context, source string) ([]metrics.Record, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		source = SyntheticSource
	}
	if err := validateSourceName(source); err != nil {
		return nil, err
	}
	return s.loader.Get(ctx, source, func(ctx context.Context) ([]metrics.Record, error) {
		table, err := s.rawTable(source)
		if err != nil {
			return nil, err
		}
		records := metrics.Normalize(table, s.now())
		slog.InfoContext(ctx, "Metrics source loaded",
			applog.FieldComponent, applog.ComponentMetrics,
			applog.FieldSource, source,
			applog.FieldRecords, len(records))
		return records, nil
	})
}

func (s *MetricsService) rawTable(source string) (metrics.RawTable, error) {
	if source == SyntheticSource {
		return metrics.Synthesize(metrics.DefaultSynthConfig(s.now())), nil
	}
	if strings.HasPrefix(source, uploadPrefix) {
		s.mu.RLock()
		table, ok := s.uploads[source]
		s.mu.RUnlock()
		if !ok {
			return metrics.RawTable{}, fmt.Errorf("%w: %s", ErrUnknownSource, source)
		}
		return table, nil
	}

	f, err := os.Open(filepath.Join(s.dataDir, source))
	if errors.Is(err, fs.ErrNotExist) {
		return metrics.RawTable{}, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	if err != nil {
		return metrics.RawTable{}, fmt.Errorf("open %s: %w", source, err)
	}
	defer f.Close()
	return metrics.ReadCSV(f)
}

// Options lists the regions, products and date span of a source.
func (s *MetricsService) Options(ctx context.Context, source string) (metrics.Options, error) {
	records, err := s.Dataset(ctx, source)
	if err != nil {
		return metrics.Options{}, err
	}
	return metrics.DatasetOptions(records), nil
}

// Query runs filter, aggregation and latest-snapshot over a source.
func (s *MetricsService) Query(ctx context.Context, source string, q metrics.Query) (metrics.Report, error) {
	records, err := s.Dataset(ctx, source)
	if err != nil {
		return metrics.Report{}, err
	}
	report := metrics.Run(records, q)
	slog.DebugContext(ctx, "Metrics query",
		applog.FieldSource, source,
		applog.FieldGranularity, string(q.Granularity),
		applog.FieldMatched, report.Matched,
		applog.FieldBuckets, len(report.Buckets))
	return report, nil
}

// Upload parses a CSV table and registers it under a new source id.
func (s *MetricsService) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	table, err := metrics.ReadCSV(r)
	if err != nil {
		return "", fmt.Errorf("parse upload %q: %w", name, err)
	}
	id := uploadPrefix + uuid.NewString()

	s.mu.Lock()
	s.uploads[id] = table
	s.uploadOrder = append(s.uploadOrder, id)
	var evicted []string
	for len(s.uploadOrder) > s.maxUploads {
		oldest := s.uploadOrder[0]
		s.uploadOrder = s.uploadOrder[1:]
		delete(s.uploads, oldest)
		evicted = append(evicted, oldest)
	}
	s.mu.Unlock()

	for _, old := range evicted {
		s.loader.Invalidate(old)
		slog.InfoContext(ctx, "Evicted oldest uploaded table", applog.FieldSource, old)
	}

	slog.InfoContext(ctx, "Metrics table uploaded",
		applog.FieldComponent, applog.ComponentMetrics,
		applog.FieldOperation, applog.OpUpload,
		applog.FieldSource, id,
		"name", name,
		"rows", len(table.Rows))
	return id, nil
}

// Invalidate drops the cached dataset of source so the next read reloads
// it. An uploaded table has nothing to reload from and is removed.
func (s *MetricsService) Invalidate(source string) {
	if strings.HasPrefix(source, uploadPrefix) {
		s.mu.Lock()
		if _, ok := s.uploads[source]; ok {
			delete(s.uploads, source)
			s.uploadOrder = slices.DeleteFunc(s.uploadOrder, func(id string) bool { return id == source })
		}
		s.mu.Unlock()
	}
	s.loader.Invalidate(source)
}

// Sources lists the synthetic dataset, CSV files in the data directory and
// uploaded tables.
func (s *MetricsService) Sources() ([]string, error) {
	out := []string{SyntheticSource}

	entries, err := os.ReadDir(s.dataDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("list %s: %w", s.dataDir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			out = append(out, e.Name())
		}
	}

	s.mu.RLock()
	uploads := make([]string, 0, len(s.uploads))
	for id := range s.uploads {
		uploads = append(uploads, id)
	}
	s.mu.RUnlock()
	sort.Strings(uploads)
	return append(out, uploads...), nil
}

// validateSourceName rejects names that could escape the data directory.
func validateSourceName(name string) error {
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidSource, name)
	}
	return nil
}
