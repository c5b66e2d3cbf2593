package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/telcofield/prb-survey/internal/analysis"
	"github.com/telcofield/prb-survey/internal/element"
	"github.com/telcofield/prb-survey/internal/session"
	"github.com/telcofield/prb-survey/internal/storage"
)

const (
	defaultDataDir = "data"
	dbFileFormat   = "prb_survey_%s.sqlite"
)

// Run executes one survey against the configured element: resolve the element
// manager, open the interactive shell, log in through the menu, run the
// analysis and archive the results.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	resolver := element.NewResolver(config.Managers, config.Element.PreferredManager)

	manager, neid, err := resolver.Resolve(config.Element.ID, config.Element.PrimaryPath)
	if err != nil {
		return fmt.Errorf("resolving element manager: %w", err)
	}
	logger.Info("element manager resolved",
		slog.String("element", config.Element.ID),
		slog.String("manager", manager),
		slog.Int("neid", neid))

	transport, err := session.DialShell(session.ShellConfig{
		Addr:     fmt.Sprintf("%s:%d", config.Connection.Host, config.Connection.Port),
		Username: config.Connection.Username,
		Password: config.Connection.Password,
	})
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", config.Connection.Host, err)
	}

	sess := session.New(transport, session.WithLogger(logger))
	defer func() {
		if cErr := sess.Close(); cErr != nil {
			logger.Warn(fmt.Sprintf("failed to close session: %s", cErr.Error()))
		}
	}()

	if err = sess.Login(ctx, neid, config.Timeouts.Prompt()); err != nil {
		return fmt.Errorf("logging in to manager %s: %w", manager, err)
	}

	options := []func(*analysis.Analyzer){
		analysis.WithLogger(logger),
		analysis.WithChartBounds(config.Calibration.FloorDBm, config.Calibration.CeilingDBm),
		analysis.WithCommandTimeout(config.Timeouts.Command()),
	}

	if !config.Storage.Disabled {
		store, sErr := createStorage(config.Storage)
		if sErr != nil {
			return fmt.Errorf("creating run archive: %w", sErr)
		}
		defer func() {
			if cErr := store.Close(); cErr != nil {
				logger.Warn(fmt.Sprintf("failed to close run archive: %s", cErr.Error()))
			}
		}()

		options = append(options, analysis.WithStore(store))
	}

	analyzer := analysis.NewAnalyzer(sess, options...)

	report, err := analyzer.Run(ctx, analysis.Job{
		ElementID:    config.Element.ID,
		Manager:      manager,
		Targets:      config.Targets,
		WholeElement: config.Element.WholeElement,
	})
	if err != nil {
		return fmt.Errorf("running survey: %w", err)
	}

	summarize(report, logger)

	if !report.OK() {
		return fmt.Errorf("survey of element %s completed with failures", config.Element.ID)
	}
	return nil
}

func summarize(report *analysis.Report, logger *slog.Logger) {
	var total int
	for _, result := range report.Results {
		if result.Err != nil {
			logger.Error("target failed",
				slog.String("sectorCarrier", result.Target.SectorCarrier),
				slog.String("cell", result.Target.Cell),
				slog.String("error", result.Err.Error()))
			continue
		}

		total += len(result.Readings)
		logger.Info("target surveyed",
			slog.String("sectorCarrier", result.Target.SectorCarrier),
			slog.String("cell", result.Target.Cell),
			slog.Int("chains", len(result.GroupOrder)),
			slog.Int("readings", len(result.Readings)),
			slog.String("samples", humanize.Comma(int64(result.SampleCount))))
	}

	logger.Info("survey complete",
		slog.String("element", report.ElementID),
		slog.Int("targets", len(report.Results)),
		slog.String("readings", humanize.Comma(int64(total))))
}

// createStorage opens a timestamped run archive in the configured data
// directory, creating the directory if required.
func createStorage(config StorageConfig) (*storage.SqliteStore, error) {
	dir := config.DataDirectory
	if dir == "" {
		dir = defaultDataDir
	}

	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("checking data directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	dbPath := filepath.Join(dir, fmt.Sprintf(dbFileFormat, time.Now().Format("20060102_150405")))
	return storage.NewSqliteStore(dbPath), nil
}
