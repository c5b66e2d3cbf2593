package storage

import (
	"database/sql"
	"time"
)

// Run represents one archived analysis run.
type Run struct {
	ID        int64
	StartedAt time.Time
	ElementID string
	Manager   string
	Config    *string
}

// Reading is one archived PRB interference reading.
type Reading struct {
	ID            int64
	RunID         int64
	SectorCarrier string
	Cell          string
	FrequencyTag  string
	Report        int
	PRBIndex      int
	RawPower      int64
	PowerDBm      *float64
	Branch        string
	Port          string
	RRU           string
	NumSamples    int
}

type runData struct {
	ID        int64
	StartedAt time.Time
	ElementID string
	Manager   sql.NullString
	Config    sql.NullString
}

type readingData struct {
	ID            int64
	RunID         int64
	SectorCarrier string
	Cell          string
	FrequencyTag  string
	Report        int
	PRBIndex      int
	RawPower      int64
	PowerDBm      sql.NullFloat64
	Branch        string
	Port          string
	RRU           string
	NumSamples    int
}
