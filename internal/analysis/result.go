package analysis

import "github.com/telcofield/prb-survey/internal/amos"

// Target selects one sector carrier on one cell. SectorCarrier may be
// amos.Wildcard to survey every carrier bound to the cell.
type Target struct {
	SectorCarrier string `yaml:"sectorCarrier"`
	Cell          string `yaml:"cell"`
}

// TargetResult is the outcome for a single concrete (sector carrier, cell)
// pair. Err is set when the target failed; other targets in the batch are
// unaffected.
type TargetResult struct {
	Target      Target
	SampleCount int
	Readings    []amos.PRBReading
	Groups      map[GroupKey][]amos.PRBReading
	GroupOrder  []GroupKey
	Err         error
}

// Report is the outcome of one analysis run: one result per concrete target,
// in processing order. Individual failures are inspectable per target; OK
// collapses them into the legacy run-level flag.
type Report struct {
	ElementID string
	Results   []TargetResult
}

// OK reports whether the run produced at least one result and no target
// failed.
func (r *Report) OK() bool {
	if len(r.Results) == 0 {
		return false
	}
	for _, res := range r.Results {
		if res.Err != nil {
			return false
		}
	}
	return true
}
