package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"goaltrack/internal/core"
)

func TestStoreSaveAndLoadAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := New(core.MonthlyRecord{Month: core.NewMonth(2025, 2), Savings: decimal.NewFromInt(5)})

	got, err := s.Load(ctx)
	if err != nil || len(got) != 1 {
		t.Fatalf("unexpected load: %v err=%v", got, err)
	}
	got[0].Savings = decimal.NewFromInt(999)

	again, _ := s.Load(ctx)
	if !again[0].Savings.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("mutating a loaded slice must not change the store")
	}

	err = s.Save(ctx, []core.MonthlyRecord{
		{Month: core.NewMonth(2025, 3), Savings: decimal.NewFromInt(1)},
		{Month: core.NewMonth(2025, 1), Savings: decimal.NewFromInt(2)},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	saved, _ := s.Load(ctx)
	if len(saved) != 2 || !saved[0].Month.Equal(core.NewMonth(2025, 1).Time) {
		t.Fatalf("expected sorted replacement, got %+v", saved)
	}
	if !saved[1].TotalSaved.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("derived fields should be recalculated, got %s", saved[1].TotalSaved)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFromFile(ctx, filepath.Join(dir, "missing.csv"))
	if err != nil {
		t.Fatalf("missing seed should not fail: %v", err)
	}
	if got, _ := s.Load(ctx); len(got) != 0 {
		t.Fatalf("expected empty store, got %d records", len(got))
	}

	seed := "month,income,savings,comment\n01-01-2025,1000,100,first\n01-01-2025,0,50,dup\n"
	path := filepath.Join(dir, "plans.csv")
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err = NewFromFile(ctx, path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, _ := s.Load(ctx)
	if len(got) != 1 || !got[0].Savings.Equal(decimal.NewFromInt(150)) || got[0].Comment != "first | dup" {
		t.Fatalf("unexpected seeded records %+v", got)
	}
}
