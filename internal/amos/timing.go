package amos

import (
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

const (
	// ropMinutes is the Reporting Output Period: the counter window recycles
	// every 15 minutes.
	ropMinutes = 15

	// sampleTickMs is the interval between underlying hardware samples.
	sampleTickMs = 40
)

// stopfilePattern matches the sampling-window end marker: 6-digit date,
// wall-clock time and a signed 4-digit zone offset, e.g. 250109-08:35:24-0600.
var stopfilePattern = regexp.MustCompile(`^(\d{6}-\d{2}:\d{2}:\d{2}[+-]\d{4})`)

var stopfileFields = regexp.MustCompile(`^\d{6}-(\d{2}):(\d{2}):(\d{2})[+-]\d{4}$`)

// SectorTiming tracks the stopfile timestamp per sector carrier for one
// analysis run. It is reset at the start of each run; timings never carry
// across runs.
type SectorTiming struct {
	logger *slog.Logger
	times  map[string]string
}

// NewSectorTiming creates an empty timing table writing diagnostics to logger.
func NewSectorTiming(logger *slog.Logger) *SectorTiming {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SectorTiming{logger: logger, times: make(map[string]string)}
}

// Reset clears all stored timings.
func (t *SectorTiming) Reset() {
	clear(t.times)
}

// ExtractStopfileTime scans the lines following the sector carrier's section
// header for the first stopfile timestamp, stores it keyed by sectorID and
// returns it. Returns false when the capture holds no timestamp for the
// sector.
func (t *SectorTiming) ExtractStopfileTime(text, sectorID string) (string, bool) {
	marker := "SectorCarrier=" + sectorID + ","
	inSection := false
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, marker) {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		if m := stopfilePattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			t.times[sectorID] = m[1]
			return m[1], true
		}
	}
	t.logger.Warn("no stopfile timestamp for sector carrier", slog.String("sectorCarrier", sectorID))
	return "", false
}

// SampleCount derives the number of 40ms sample ticks accumulated in the
// current reporting window from the stored stopfile timestamp. The minute
// component is taken modulo the 15-minute window so the count is anchored to
// the window regardless of wall-clock hour. Returns 0 when no timestamp is
// stored for the sector, which downstream treats as "unusable".
func (t *SectorTiming) SampleCount(sectorID string) int {
	stamp, ok := t.times[sectorID]
	if !ok {
		return 0
	}

	m := stopfileFields.FindStringSubmatch(stamp)
	if m == nil {
		t.logger.Warn("malformed stopfile timestamp", slog.String("sectorCarrier", sectorID), slog.String("timestamp", stamp))
		return 0
	}

	minute, _ := strconv.Atoi(m[2])
	second, _ := strconv.Atoi(m[3])

	return ((minute%ropMinutes)*60 + second) * 1000 / sampleTickMs
}
