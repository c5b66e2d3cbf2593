package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/telcofield/prb-survey/internal/amos"
	"github.com/telcofield/prb-survey/internal/element"
	"github.com/telcofield/prb-survey/internal/power"
	"github.com/telcofield/prb-survey/internal/session"
	"github.com/telcofield/prb-survey/internal/storage"
)

const (
	defaultChartFloor   = -125.0 // dBm
	defaultChartCeiling = -95.0  // dBm

	defaultCommandTimeout = 120 * time.Second

	remoteLogDirFormat = "/home/shared/%s/prb_survey"
)

// Job describes one analysis run. Either Targets names specific
// (sector carrier, cell) pairs, or WholeElement surveys every cell found on
// the element.
type Job struct {
	ElementID    string
	Manager      string // element manager name, recorded with the run
	Targets      []Target
	WholeElement bool
}

// WithChartBounds sets the calibration floor and ceiling in dBm.
func WithChartBounds(floor, ceiling float64) func(*Analyzer) {
	return func(a *Analyzer) {
		a.floor = floor
		a.ceiling = ceiling
	}
}

// WithCommandTimeout sets the prompt wait timeout for remote commands. The
// survey macro can run for minutes on large elements.
func WithCommandTimeout(d time.Duration) func(*Analyzer) {
	return func(a *Analyzer) {
		a.commandTimeout = d
	}
}

// WithStore sets the run archive the analyzer persists results to.
func WithStore(store storage.Store) func(*Analyzer) {
	return func(a *Analyzer) {
		a.store = store
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) func(*Analyzer) {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// withClock overrides the capture-file seed clock in tests.
func withClock(now func() time.Time) func(*Analyzer) {
	return func(a *Analyzer) {
		a.now = now
	}
}

// Analyzer runs the full survey pipeline over one session: build and execute
// the survey command, fetch the log capture, parse readings per target,
// calibrate them against the sampling window and group them per antenna
// chain. The session is owned exclusively by the analyzer for the duration of
// a run.
type Analyzer struct {
	session *session.Session
	parser  *amos.Parser
	timing  *amos.SectorTiming
	store   storage.Store
	logger  *slog.Logger

	floor          float64
	ceiling        float64
	commandTimeout time.Duration
	now            func() time.Time
}

// NewAnalyzer creates an Analyzer over an established session.
func NewAnalyzer(sess *session.Session, options ...func(*Analyzer)) *Analyzer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a := Analyzer{
		session:        sess,
		logger:         logger,
		floor:          defaultChartFloor,
		ceiling:        defaultChartCeiling,
		commandTimeout: defaultCommandTimeout,
		now:            time.Now,
	}

	for _, option := range options {
		option(&a)
	}

	a.parser = amos.NewParser(a.logger)
	a.timing = amos.NewSectorTiming(a.logger)

	return &a
}

// Bounds returns the configured chart floor and ceiling in dBm.
func (a *Analyzer) Bounds() (floor, ceiling float64) {
	return a.floor, a.ceiling
}

// runCache holds the capture fetched for the current run. It is created
// fresh at run start and discarded with the run; captures are never reused
// across runs or elements.
type runCache struct {
	logPath string
	content string
}

// Run executes one analysis run. Connection-level failures abort the run and
// are returned as errors; per-target parse and calibration problems are
// recorded on the individual TargetResult and the batch continues.
func (a *Analyzer) Run(ctx context.Context, job Job) (*Report, error) {
	if _, err := element.ParseEnbID(job.ElementID); err != nil {
		return nil, err
	}

	a.timing.Reset()
	report := &Report{ElementID: job.ElementID}

	cache, err := a.capture(ctx, job)
	if err != nil {
		if errors.Is(err, session.ErrEmptyLog) {
			a.logger.Warn("capture is empty, nothing to parse", slog.String("element", job.ElementID))
			return report, nil
		}
		return nil, err
	}

	targets := job.Targets
	if job.WholeElement {
		cells := a.parser.AvailableCells(cache.content)
		if len(cells) == 0 {
			a.logger.Warn("no cells found on element", slog.String("element", job.ElementID))
			return report, nil
		}
		targets = make([]Target, 0, len(cells))
		for _, cell := range cells {
			targets = append(targets, Target{SectorCarrier: amos.Wildcard, Cell: cell})
		}
	}

	// The run record is created only once the target list is known, so a
	// capture that yields nothing leaves no orphan row in the archive.
	var runID int64
	if a.store != nil {
		if runID, err = a.store.CreateRun(ctx, job.ElementID, job.Manager, targets); err != nil {
			return nil, fmt.Errorf("creating run record: %w", err)
		}
	}

	for _, target := range targets {
		if target.SectorCarrier != amos.Wildcard {
			report.Results = append(report.Results, a.processTarget(ctx, cache, runID, target))
			continue
		}

		carriers := a.parser.AvailableSectorCarriers(cache.content, target.Cell)
		if len(carriers) == 0 {
			report.Results = append(report.Results, TargetResult{
				Target: target,
				Err:    fmt.Errorf("no sector carriers bound to cell %s", target.Cell),
			})
			continue
		}
		for _, sc := range carriers {
			concrete := Target{SectorCarrier: sc, Cell: target.Cell}
			report.Results = append(report.Results, a.processTarget(ctx, cache, runID, concrete))
		}
	}

	return report, nil
}

// capture runs the survey macro on the element and fetches the cleaned log
// content. All failures here are connection-level: without a capture there is
// nothing any target can do.
func (a *Analyzer) capture(ctx context.Context, job Job) (*runCache, error) {
	user, err := a.session.RemoteUser(ctx, a.commandTimeout)
	if err != nil {
		return nil, fmt.Errorf("detecting remote user: %w", err)
	}

	dir := fmt.Sprintf(remoteLogDirFormat, user)
	if err = a.session.EnsureLogDir(ctx, dir, a.commandTimeout); err != nil {
		return nil, fmt.Errorf("preparing capture directory: %w", err)
	}

	var cells []string
	if !job.WholeElement {
		seen := make(map[string]bool)
		for _, t := range job.Targets {
			if !seen[t.Cell] {
				seen[t.Cell] = true
				cells = append(cells, t.Cell)
			}
		}
	}

	cmd := amos.BuildCommand(amos.CommandTarget{
		ElementID:   job.ElementID,
		CapturePath: fmt.Sprintf("%s/%s.log", dir, a.now().Format("20060102150405")),
		Cells:       cells,
	})

	a.logger.Info("executing survey command", slog.String("element", job.ElementID))
	output, err := a.session.Run(ctx, cmd, a.commandTimeout)
	if err != nil {
		return nil, fmt.Errorf("executing survey command: %w", err)
	}

	path, ok := amos.LogfilePath(output)
	if !ok {
		return nil, fmt.Errorf("no capture path in command output for %s", job.ElementID)
	}
	a.logger.Debug("capture created", slog.String("path", path))

	content, err := a.session.FetchLog(ctx, path, a.commandTimeout)
	if err != nil {
		if errors.Is(err, session.ErrEmptyLog) {
			return nil, err
		}
		return nil, fmt.Errorf("fetching capture %s: %w", path, err)
	}

	return &runCache{logPath: path, content: content}, nil
}

// processTarget parses, calibrates and groups the readings for one concrete
// target. Failures are recorded on the result, never propagated.
func (a *Analyzer) processTarget(ctx context.Context, cache *runCache, runID int64, target Target) TargetResult {
	result := TargetResult{Target: target}

	result.Readings = a.parser.Parse(cache.content, target.SectorCarrier, target.Cell)
	if len(result.Readings) == 0 {
		a.logger.Warn("no readings extracted",
			slog.String("sectorCarrier", target.SectorCarrier), slog.String("cell", target.Cell))
	}

	a.timing.ExtractStopfileTime(cache.content, target.SectorCarrier)
	result.SampleCount = a.timing.SampleCount(target.SectorCarrier)
	if result.SampleCount == 0 {
		result.Err = fmt.Errorf("unusable sample count for %s-%s", target.SectorCarrier, target.Cell)
		return result
	}

	for i := range result.Readings {
		r := &result.Readings[i]
		r.PowerDBm = power.Calibrated(float64(r.RawPower), result.SampleCount, a.floor)
		r.Calibrated = true
		if r.PowerDBm == a.floor && r.RawPower > 0 {
			a.logger.Debug("reading clamped to chart floor",
				slog.String("sectorCarrier", target.SectorCarrier),
				slog.Int("prb", r.PRBIndex), slog.Int64("raw", r.RawPower))
		}
	}

	result.Groups, result.GroupOrder = GroupReadings(result.Readings)

	if a.store != nil {
		if err := a.store.StoreReadings(ctx, runID, result.SampleCount, result.Readings); err != nil {
			result.Err = fmt.Errorf("archiving readings: %w", err)
		}
	}

	return result
}
