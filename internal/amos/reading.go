package amos

import "fmt"

// PRBReading represents the measured uplink interference power for a single
// Physical Resource Block on one antenna branch. A reading starts out with the
// raw hardware counter only; the analysis layer fills in PowerDBm once the
// sample count for the sector carrier is known and sets Calibrated. Keeping the
// raw counter and the calibrated value in separate fields makes accidental
// double-calibration impossible.
type PRBReading struct {
	Report        string  // Counter name, e.g. "pmRadioRecInterferencePwrBrPrb5"
	PRBIndex      int     // PRB index within the carrier bandwidth
	RawPower      int64   // Raw fixed-point interference counter
	PowerDBm      float64 // Calibrated power, valid only when Calibrated is true
	Calibrated    bool
	RRU           string // Remote radio unit, e.g. "RRU-7"
	Branch        string // RfBranch id within the antenna unit group
	Port          string // RfPort letter on the RRU
	Cell          string // Owning EUtranCellFDD id
	SectorCarrier string
	FrequencyTag  string // Carrier frequency label; no capture field produces one, callers with a band plan set it
	Interference  int    // PmUlInterferenceReport id the reading came from
}

// Chain identifies the physical antenna chain the reading was taken on.
func (r PRBReading) Chain() string {
	return fmt.Sprintf("%s/%s/%s", r.RRU, r.Branch, r.Port)
}

// topologyMap holds the transient per-parse state used to join raw counter
// lines with the branch and port reference hops. It is rebuilt on every Parse
// call and never survives a parse pass.
type topologyMap struct {
	antennaGroup   string
	rru            string
	branchToPort   map[string]string
	reportToBranch map[string]string
	samples        map[string][]rawSample
}

type rawSample struct {
	prb   int
	power int64
}

func newTopologyMap() *topologyMap {
	return &topologyMap{
		branchToPort:   make(map[string]string),
		reportToBranch: make(map[string]string),
		samples:        make(map[string][]rawSample),
	}
}
