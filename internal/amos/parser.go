package amos

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Wildcard selects every sector carrier bound to the target cell.
const Wildcard = "*"

var (
	prbPattern = regexp.MustCompile(
		`SectorCarrier=(\w+),PmUlInterferenceReport=(\d+)\s+pmRadioRecInterferencePwrBrPrb(\d+)\s+(\d+)`)

	branchPattern = regexp.MustCompile(
		`SectorCarrier=(\w+),PmUlInterferenceReport=(\d+)\s+rfBranchRxRef\s+AntennaUnitGroup=(\w+),RfBranch=(\d+)`)

	// Port reference patterns in the order they are tried. Older radios
	// report as FieldReplaceableUnit=RRU-<n>, newer hardware revisions use
	// the bare RU prefix.
	portPatterns = []portPattern{
		{prefix: "RRU-", re: regexp.MustCompile(
			`AntennaUnitGroup=(\w+),RfBranch=(\d+)\s+rfPortRef\s+FieldReplaceableUnit=RRU-([\w]+),RfPort=([A-Z])`)},
		{prefix: "RU-", re: regexp.MustCompile(
			`AntennaUnitGroup=(\w+),RfBranch=(\d+)\s+rfPortRef\s+FieldReplaceableUnit=RU-([\w]+),RfPort=([A-Z])`)},
	}

	scRefPattern = regexp.MustCompile(`SectorCarrier=(\w+)`)

	cellHeaderPattern = regexp.MustCompile(`EUtranCellFDD=([\w-]+)\s+sectorCarrierRef`)
)

type portPattern struct {
	prefix string
	re     *regexp.Regexp
}

// cellBindingPattern matches the cell header line followed by its continuation
// lines listing the bound sector carrier references. The block is terminated
// by the first line that is not a ">>>" continuation.
func cellBindingPattern(cell string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(
		`(?s)EUtranCellFDD=%s\s+sectorCarrierRef.*?\[.*?\].*?\n((?:\s*>>>\s*sectorCarrierRef\s*=\s*ENodeBFunction=\d+,SectorCarrier=\w+\n?)*)`,
		regexp.QuoteMeta(cell)))
}

// Parser reconstructs antenna topology and raw PRB interference samples from
// a cleaned AMOS log capture. A Parser is stateless across calls; all
// intermediate topology state lives for a single Parse invocation.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a Parser writing diagnostics to logger. A nil logger
// discards them.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Parser{logger: logger}
}

// Parse extracts one PRBReading per (report, PRB index) sample found for the
// target sector carrier, joined through the report -> branch -> port reference
// hops. sectorCarrier may be Wildcard to accept every carrier in the capture.
//
// Binding validation is advisory: when the target carrier is not among the
// carriers bound to the cell a warning is logged but extraction still runs.
// Readings whose branch or port cannot be resolved are dropped with a warning;
// neither condition fails the parse.
func (p *Parser) Parse(text, sectorCarrier, cell string) []PRBReading {
	topo := newTopologyMap()

	// Step 1+2: topology binding and advisory validation.
	bound := p.boundSectorCarriers(text, cell)
	if len(bound) == 0 {
		p.logger.Warn("no sector-carrier binding found for cell", slog.String("cell", cell))
	} else if sectorCarrier != Wildcard && !contains(bound, sectorCarrier) {
		p.logger.Warn("target sector carrier not bound to cell",
			slog.String("sectorCarrier", sectorCarrier),
			slog.String("cell", cell),
			slog.String("bound", strings.Join(bound, ",")))
	}

	// Step 3: raw sample collection.
	for _, m := range prbPattern.FindAllStringSubmatch(text, -1) {
		sc, report, prbStr, powerStr := m[1], m[2], m[3], m[4]
		if sectorCarrier != Wildcard && sc != sectorCarrier {
			continue
		}
		prb, err := strconv.Atoi(prbStr)
		if err != nil {
			continue
		}
		power, err := strconv.ParseInt(powerStr, 10, 64)
		if err != nil {
			continue
		}
		topo.samples[report] = append(topo.samples[report], rawSample{prb: prb, power: power})
	}

	// Step 4: report -> branch resolution.
	for _, m := range branchPattern.FindAllStringSubmatch(text, -1) {
		sc, report, group, branch := m[1], m[2], m[3], m[4]
		if sectorCarrier != Wildcard && sc != sectorCarrier {
			continue
		}
		topo.antennaGroup = group
		topo.reportToBranch[report] = branch
	}

	// Step 5: branch -> port/RRU resolution, first matching naming variant
	// wins. Only entries for the antenna unit group seen in step 4 count.
	for _, pat := range portPatterns {
		for _, m := range pat.re.FindAllStringSubmatch(text, -1) {
			group, branch, rru, port := m[1], m[2], m[3], m[4]
			if group != topo.antennaGroup {
				continue
			}
			topo.rru = pat.prefix + rru
			topo.branchToPort[branch] = port
		}
		if len(topo.branchToPort) > 0 {
			break
		}
	}

	// Step 6: join samples with the resolved chain.
	reports := make([]string, 0, len(topo.samples))
	for report := range topo.samples {
		reports = append(reports, report)
	}
	sort.Slice(reports, func(i, j int) bool {
		a, _ := strconv.Atoi(reports[i])
		b, _ := strconv.Atoi(reports[j])
		return a < b
	})

	var readings []PRBReading
	for _, report := range reports {
		branch, ok := topo.reportToBranch[report]
		if !ok {
			p.logger.Warn("dropping report with unresolved branch",
				slog.String("sectorCarrier", sectorCarrier), slog.String("report", report))
			continue
		}
		port, ok := topo.branchToPort[branch]
		if !ok {
			p.logger.Warn("dropping report with unresolved port",
				slog.String("sectorCarrier", sectorCarrier),
				slog.String("report", report), slog.String("branch", branch))
			continue
		}

		reportID, _ := strconv.Atoi(report)
		for _, s := range topo.samples[report] {
			readings = append(readings, PRBReading{
				Report:        fmt.Sprintf("pmRadioRecInterferencePwrBrPrb%d", s.prb),
				PRBIndex:      s.prb,
				RawPower:      s.power,
				RRU:           topo.rru,
				Branch:        branch,
				Port:          port,
				Cell:          cell,
				SectorCarrier: sectorCarrier,
				Interference:  reportID,
			})
		}
	}

	p.logger.Debug("parse complete",
		slog.String("sectorCarrier", sectorCarrier),
		slog.String("cell", cell),
		slog.Int("reports", len(topo.samples)),
		slog.Int("readings", len(readings)))

	return readings
}

// AvailableSectorCarriers returns the sector carriers bound to cell in the
// capture, in document order. Used to expand a Wildcard target into concrete
// carriers before parsing.
func (p *Parser) AvailableSectorCarriers(text, cell string) []string {
	return p.boundSectorCarriers(text, cell)
}

// AvailableCells scans a whole-element capture for every cell id that carries
// a sector carrier binding. Duplicate headers are reported once and collapsed.
func (p *Parser) AvailableCells(text string) []string {
	var cells []string
	seen := make(map[string]bool)
	duplicates := 0
	for _, m := range cellHeaderPattern.FindAllStringSubmatch(text, -1) {
		if seen[m[1]] {
			duplicates++
			continue
		}
		seen[m[1]] = true
		cells = append(cells, m[1])
	}
	if duplicates > 0 {
		p.logger.Warn("duplicate cell headers in capture", slog.Int("count", duplicates))
	}
	return cells
}

func (p *Parser) boundSectorCarriers(text, cell string) []string {
	m := cellBindingPattern(cell).FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	var carriers []string
	seen := make(map[string]bool)
	duplicates := 0
	for _, ref := range scRefPattern.FindAllStringSubmatch(m[1], -1) {
		if seen[ref[1]] {
			duplicates++
			continue
		}
		seen[ref[1]] = true
		carriers = append(carriers, ref[1])
	}
	if duplicates > 0 {
		p.logger.Warn("duplicate sector-carrier references for cell",
			slog.String("cell", cell), slog.Int("count", duplicates))
	}
	return carriers
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
