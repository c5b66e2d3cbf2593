package storage

import (
	"database/sql"

	"github.com/telcofield/prb-survey/internal/amos"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func toReadingData(runID int64, sampleCount int, r amos.PRBReading) *readingData {
	var power sql.NullFloat64
	if r.Calibrated {
		power.Float64 = r.PowerDBm
		power.Valid = true
	}

	return &readingData{
		RunID:         runID,
		SectorCarrier: r.SectorCarrier,
		Cell:          r.Cell,
		FrequencyTag:  r.FrequencyTag,
		Report:        r.Interference,
		PRBIndex:      r.PRBIndex,
		RawPower:      r.RawPower,
		PowerDBm:      power,
		Branch:        r.Branch,
		Port:          r.Port,
		RRU:           r.RRU,
		NumSamples:    sampleCount,
	}
}
