package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/telcofield/prb-survey/internal/power"
	"github.com/telcofield/prb-survey/internal/storage"
)

// Run reports on a survey archive: with no run selected it lists the archived
// runs, otherwise it prints every reading of the selected run grouped per
// antenna chain.
func Run(ctx context.Context, config *Config, out io.Writer) (err error) {
	store := storage.NewSqliteStore(config.DBPath)
	defer func() {
		if cErr := store.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	if config.ListOnly {
		return listRuns(ctx, store, out)
	}
	return printRun(ctx, store, config, out)
}

func listRuns(ctx context.Context, store storage.Store, out io.Writer) error {
	runs, err := store.Runs(ctx)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs archived")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tELEMENT\tMANAGER")
	for _, run := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			run.ID, humanize.Time(run.StartedAt), run.ElementID, run.Manager)
	}
	return w.Flush()
}

func printRun(ctx context.Context, store storage.Store, config *Config, out io.Writer) error {
	readings, err := store.ReadingsForRun(ctx, config.RunID)
	if err != nil {
		return fmt.Errorf("loading readings for run %d: %w", config.RunID, err)
	}
	if len(readings) == 0 {
		fmt.Fprintf(out, "run %d has no readings\n", config.RunID)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	var chain string
	for _, r := range readings {
		current := fmt.Sprintf("%s %s %s/%s/%s", r.SectorCarrier, r.Cell, r.RRU, r.Branch, r.Port)
		if current != chain {
			if chain != "" {
				fmt.Fprintln(w)
			}
			chain = current
			fmt.Fprintf(w, "# %s (report %d, %s samples)\n", current, r.Report, humanize.Comma(int64(r.NumSamples)))
			fmt.Fprintln(w, "PRB\tPOWER")
		}

		fmt.Fprintf(w, "%d\t%s\n", r.PRBIndex, formatPower(r, config))
	}
	return w.Flush()
}

func formatPower(r storage.Reading, config *Config) string {
	if config.RawOnly || r.PowerDBm == nil {
		return humanize.Comma(r.RawPower)
	}

	value := *r.PowerDBm
	if config.Floor != nil && config.Ceiling != nil {
		value = power.Clamp(value, *config.Floor, *config.Ceiling)
	}
	return fmt.Sprintf("%.2f dBm", value)
}
