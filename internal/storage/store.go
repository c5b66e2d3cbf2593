package storage

import (
	"context"

	_ "github.com/mattn/go-sqlite3"
	"github.com/telcofield/prb-survey/internal/amos"
)

// Store provides an interface for archiving PRB interference survey results.
// It records one row per analysis run and the calibrated readings produced
// for each surveyed antenna chain. All write operations are atomic.
type Store interface {
	// CreateRun records the start of an analysis run against an element and
	// returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - elementID: 6-digit element identifier the run targets
	//   - manager: Element manager name the session was routed through
	//   - config: Optional run configuration. Can be string, []byte, or JSON-serializable object
	CreateRun(ctx context.Context, elementID, manager string, config any) (runID int64, err error)

	// StoreReadings persists the calibrated readings for one target of a run
	// in a single transaction. sampleCount is the tick count the calibration
	// was derived from.
	StoreReadings(ctx context.Context, runID int64, sampleCount int, readings []amos.PRBReading) error

	// Runs returns all archived runs ordered by start time ascending.
	Runs(ctx context.Context) ([]Run, error)

	// ReadingsForRun returns every reading archived for a run, ordered by
	// sector carrier, branch, port and PRB index.
	ReadingsForRun(ctx context.Context, runID int64) ([]Reading, error)

	// Close releases all database connections and resources. It is safe to
	// call Close multiple times.
	Close() error
}
