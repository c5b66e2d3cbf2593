package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/telcofield/prb-survey/internal/amos"
	"github.com/telcofield/prb-survey/internal/storage"
)

type fakeStore struct {
	runs     []storage.Run
	readings []storage.Reading
}

func (s *fakeStore) CreateRun(context.Context, string, string, any) (int64, error) { return 0, nil }

func (s *fakeStore) StoreReadings(context.Context, int64, int, []amos.PRBReading) error { return nil }

func (s *fakeStore) Runs(context.Context) ([]storage.Run, error) { return s.runs, nil }

func (s *fakeStore) ReadingsForRun(context.Context, int64) ([]storage.Reading, error) {
	return s.readings, nil
}

func (s *fakeStore) Close() error { return nil }

func powerPtr(v float64) *float64 { return &v }

func TestListRuns(t *testing.T) {
	store := &fakeStore{runs: []storage.Run{
		{ID: 1, StartedAt: time.Now().Add(-time.Hour), ElementID: "136001", Manager: "EM_EAST"},
		{ID: 2, StartedAt: time.Now(), ElementID: "136002", Manager: "EM_WEST"},
	}}

	var out strings.Builder
	if err := listRuns(context.Background(), store, &out); err != nil {
		t.Fatalf("listRuns returned error: %v", err)
	}

	got := out.String()
	for _, want := range []string{"RUN", "136001", "EM_EAST", "136002", "1 hour ago"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestListRunsEmpty(t *testing.T) {
	var out strings.Builder
	if err := listRuns(context.Background(), &fakeStore{}, &out); err != nil {
		t.Fatalf("listRuns returned error: %v", err)
	}
	if !strings.Contains(out.String(), "no runs archived") {
		t.Errorf("output = %q", out.String())
	}
}

func TestPrintRun(t *testing.T) {
	store := &fakeStore{readings: []storage.Reading{
		{RunID: 1, SectorCarrier: "12C1", Cell: "CELL_A_1", Report: 3, PRBIndex: 5,
			RawPower: 131072, PowerDBm: powerPtr(-101.28), Branch: "2", Port: "B", RRU: "RRU-7", NumSamples: 8100},
		{RunID: 1, SectorCarrier: "12C1", Cell: "CELL_A_1", Report: 3, PRBIndex: 6,
			RawPower: 262144, PowerDBm: powerPtr(-98.27), Branch: "2", Port: "B", RRU: "RRU-7", NumSamples: 8100},
		{RunID: 1, SectorCarrier: "12C1", Cell: "CELL_A_1", Report: 10, PRBIndex: 5,
			RawPower: 65536, PowerDBm: powerPtr(-130.0), Branch: "3", Port: "A", RRU: "RRU-7", NumSamples: 8100},
	}}

	t.Run("calibrated readings grouped per chain", func(t *testing.T) {
		var out strings.Builder
		err := printRun(context.Background(), store, &Config{RunID: 1}, &out)
		if err != nil {
			t.Fatalf("printRun returned error: %v", err)
		}

		got := out.String()
		for _, want := range []string{
			"# 12C1 CELL_A_1 RRU-7/2/B (report 3, 8,100 samples)",
			"# 12C1 CELL_A_1 RRU-7/3/A (report 10, 8,100 samples)",
			"-101.28 dBm",
			"-98.27 dBm",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("output missing %q:\n%s", want, got)
			}
		}
	})

	t.Run("clamped to chart bounds", func(t *testing.T) {
		var out strings.Builder
		floor, ceiling := -125.0, -95.0
		config := &Config{RunID: 1, Floor: &floor, Ceiling: &ceiling}
		if err := printRun(context.Background(), store, config, &out); err != nil {
			t.Fatalf("printRun returned error: %v", err)
		}
		if !strings.Contains(out.String(), "-125.00 dBm") {
			t.Errorf("below-floor reading not clamped:\n%s", out.String())
		}
	})

	t.Run("raw counters", func(t *testing.T) {
		var out strings.Builder
		if err := printRun(context.Background(), store, &Config{RunID: 1, RawOnly: true}, &out); err != nil {
			t.Fatalf("printRun returned error: %v", err)
		}
		if !strings.Contains(out.String(), "131,072") {
			t.Errorf("raw counter missing:\n%s", out.String())
		}
	})
}

func TestPrintRunEmpty(t *testing.T) {
	var out strings.Builder
	if err := printRun(context.Background(), &fakeStore{}, &Config{RunID: 7}, &out); err != nil {
		t.Fatalf("printRun returned error: %v", err)
	}
	if !strings.Contains(out.String(), "run 7 has no readings") {
		t.Errorf("output = %q", out.String())
	}
}
