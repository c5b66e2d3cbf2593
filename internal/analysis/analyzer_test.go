package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/telcofield/prb-survey/internal/amos"
	"github.com/telcofield/prb-survey/internal/session"
	"github.com/telcofield/prb-survey/internal/storage"
)

var errFailed = errors.New("target failed")

const (
	testElementID = "136001"
	testUser      = "user1"
	bashPrompt    = testUser + "@scp-1-scripting:~$"
	capturePath   = "/home/shared/" + testUser + "/prb_survey/20250109083000.log"
)

const surveyCapture = `EUtranCellFDD=CELL_A_1 sectorCarrierRef [2]
 >>> sectorCarrierRef = ENodeBFunction=1,SectorCarrier=12C1
 >>> sectorCarrierRef = ENodeBFunction=1,SectorCarrier=12C2
SectorCarrier=12C1,PmUlInterferenceReport=3 pmRadioRecInterferencePwrBrPrb5 131072
SectorCarrier=12C1,PmUlInterferenceReport=3 pmRadioRecInterferencePwrBrPrb6 262144
SectorCarrier=12C1,PmUlInterferenceReport=10 pmRadioRecInterferencePwrBrPrb5 65536
SectorCarrier=12C2,PmUlInterferenceReport=1 pmRadioRecInterferencePwrBrPrb0 4096
SectorCarrier=12C1,PmUlInterferenceReport=3 rfBranchRxRef AntennaUnitGroup=A1,RfBranch=2
SectorCarrier=12C1,PmUlInterferenceReport=10 rfBranchRxRef AntennaUnitGroup=A1,RfBranch=1
AntennaUnitGroup=A1,RfBranch=2 rfPortRef FieldReplaceableUnit=RRU-7,RfPort=B
AntennaUnitGroup=A1,RfBranch=1 rfPortRef FieldReplaceableUnit=RRU-7,RfPort=A
250109-08:35:24-0600`

// scriptedTransport responds to each sent line with a canned chunk of shell
// output, emulating the remote scripting host end to end.
type scriptedTransport struct {
	mu      sync.Mutex
	pending bytes.Buffer
	script  map[string]string
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{script: make(map[string]string)}
}

func (t *scriptedTransport) respond(sent, with string) {
	t.script[sent] = with
}

func (t *scriptedTransport) Send(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if response, ok := t.script[text]; ok {
		t.pending.WriteString(response)
		return nil
	}
	return fmt.Errorf("unexpected command: %q", text)
}

func (t *scriptedTransport) DataAvailable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending.Len() > 0
}

func (t *scriptedTransport) Receive(max int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.pending.Len()
	if n > max {
		n = max
	}
	chunk := make([]byte, n)
	_, _ = t.pending.Read(chunk)
	return chunk, nil
}

func (t *scriptedTransport) Close() error { return nil }

// scriptSurvey wires the full command exchange of one run: user detection,
// capture directory probe, the survey macro and the capture fetch.
func scriptSurvey(t *scriptedTransport, cells []string, capture string) {
	t.respond("\n", "\n"+bashPrompt)
	t.respond(`test -d /home/shared/`+testUser+`/prb_survey && echo "EXISTS_YEP" || echo "NOT_EXISTS"`+"\n",
		"EXISTS_YEP\n"+bashPrompt)

	cmd := amos.BuildCommand(amos.CommandTarget{
		ElementID:   testElementID,
		CapturePath: capturePath,
		Cells:       cells,
	})
	t.respond(cmd+"\n", "running...\n$logfile = "+capturePath+"\n"+bashPrompt)

	fetch := "cat " + capturePath + "\n"
	if capture == "" {
		t.respond(fetch, fetch+bashPrompt)
		return
	}
	t.respond(fetch, fetch+capture+"\n"+bashPrompt)
}

type storedBatch struct {
	runID       int64
	sampleCount int
	readings    []amos.PRBReading
}

type fakeStore struct {
	runs    int
	element string
	manager string
	batches []storedBatch

	createErr error
	storeErr  error
}

func (s *fakeStore) CreateRun(_ context.Context, elementID, manager string, _ any) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	s.runs++
	s.element = elementID
	s.manager = manager
	return int64(s.runs), nil
}

func (s *fakeStore) StoreReadings(_ context.Context, runID int64, sampleCount int, readings []amos.PRBReading) error {
	if s.storeErr != nil {
		return s.storeErr
	}
	s.batches = append(s.batches, storedBatch{runID: runID, sampleCount: sampleCount, readings: readings})
	return nil
}

func (s *fakeStore) Runs(context.Context) ([]storage.Run, error) { return nil, nil }

func (s *fakeStore) ReadingsForRun(context.Context, int64) ([]storage.Reading, error) {
	return nil, nil
}

func (s *fakeStore) Close() error { return nil }

func newTestAnalyzer(transport session.Transport, options ...func(*Analyzer)) *Analyzer {
	sess := session.New(transport,
		session.WithPollInterval(time.Millisecond),
		session.WithSettleDelay(time.Millisecond),
		session.WithGraceWindow(10*time.Millisecond))

	options = append(options, withClock(func() time.Time {
		return time.Date(2025, 1, 9, 8, 30, 0, 0, time.UTC)
	}))
	return NewAnalyzer(sess, options...)
}

func TestRunSingleTarget(t *testing.T) {
	transport := newScriptedTransport()
	scriptSurvey(transport, []string{"CELL_A_1"}, surveyCapture)

	store := &fakeStore{}
	analyzer := newTestAnalyzer(transport, WithStore(store))

	report, err := analyzer.Run(context.Background(), Job{
		ElementID: testElementID,
		Manager:   "EM_EAST",
		Targets:   []Target{{SectorCarrier: "12C1", Cell: "CELL_A_1"}},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !report.OK() {
		t.Fatalf("report not OK: %+v", report.Results)
	}
	if len(report.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(report.Results))
	}

	result := report.Results[0]
	if result.SampleCount != 8100 {
		t.Errorf("SampleCount = %d, want 8100", result.SampleCount)
	}
	if len(result.Readings) != 3 {
		t.Fatalf("got %d readings, want 3", len(result.Readings))
	}
	floor, _ := analyzer.Bounds()
	for _, r := range result.Readings {
		if !r.Calibrated {
			t.Errorf("reading %s prb %d not calibrated", r.Chain(), r.PRBIndex)
		}
		if r.PowerDBm <= floor || r.PowerDBm >= 0 {
			t.Errorf("reading %s prb %d power = %.2f dBm, out of plausible range", r.Chain(), r.PRBIndex, r.PowerDBm)
		}
	}
	if len(result.GroupOrder) != 2 {
		t.Errorf("got %d chains, want 2", len(result.GroupOrder))
	}

	if store.runs != 1 || store.element != testElementID || store.manager != "EM_EAST" {
		t.Errorf("archived run = (%d, %s, %s)", store.runs, store.element, store.manager)
	}
	if len(store.batches) != 1 || store.batches[0].runID != 1 || store.batches[0].sampleCount != 8100 {
		t.Errorf("archived batches = %+v", store.batches)
	}
}

func TestRunWildcardTarget(t *testing.T) {
	transport := newScriptedTransport()
	scriptSurvey(transport, []string{"CELL_A_1"}, surveyCapture)

	analyzer := newTestAnalyzer(transport)

	report, err := analyzer.Run(context.Background(), Job{
		ElementID: testElementID,
		Targets:   []Target{{SectorCarrier: amos.Wildcard, Cell: "CELL_A_1"}},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("got %d results, want one per bound carrier", len(report.Results))
	}
	if report.Results[0].Target.SectorCarrier != "12C1" || report.Results[1].Target.SectorCarrier != "12C2" {
		t.Errorf("expanded carriers = %s, %s",
			report.Results[0].Target.SectorCarrier, report.Results[1].Target.SectorCarrier)
	}
}

func TestRunWholeElement(t *testing.T) {
	transport := newScriptedTransport()
	scriptSurvey(transport, nil, surveyCapture)

	store := &fakeStore{}
	analyzer := newTestAnalyzer(transport, WithStore(store))

	report, err := analyzer.Run(context.Background(), Job{
		ElementID:    testElementID,
		WholeElement: true,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !report.OK() {
		t.Fatalf("report not OK: %+v", report.Results)
	}
	if len(report.Results) != 2 {
		t.Fatalf("got %d results, want one per carrier of the discovered cell", len(report.Results))
	}
	for _, result := range report.Results {
		if result.Target.Cell != "CELL_A_1" {
			t.Errorf("target cell = %s, want CELL_A_1", result.Target.Cell)
		}
	}
	if report.Results[0].Target.SectorCarrier != "12C1" || report.Results[1].Target.SectorCarrier != "12C2" {
		t.Errorf("expanded carriers = %s, %s",
			report.Results[0].Target.SectorCarrier, report.Results[1].Target.SectorCarrier)
	}
	if store.runs != 1 {
		t.Errorf("archived %d runs, want 1", store.runs)
	}
}

func TestRunWholeElementNoCells(t *testing.T) {
	transport := newScriptedTransport()
	scriptSurvey(transport, nil, "log noise without any cell headers\nmore noise")

	store := &fakeStore{}
	analyzer := newTestAnalyzer(transport, WithStore(store))

	report, err := analyzer.Run(context.Background(), Job{
		ElementID:    testElementID,
		WholeElement: true,
	})
	if err != nil {
		t.Fatalf("Run returned error for cell-less capture: %v", err)
	}
	if report.OK() {
		t.Error("report without cells is OK")
	}
	if len(report.Results) != 0 {
		t.Errorf("got %d results, want 0", len(report.Results))
	}
	if store.runs != 0 {
		t.Errorf("archived %d runs for a cell-less capture, want none", store.runs)
	}
}

func TestRunWildcardUnboundCell(t *testing.T) {
	transport := newScriptedTransport()
	scriptSurvey(transport, []string{"NOPE"}, surveyCapture)

	analyzer := newTestAnalyzer(transport)

	report, err := analyzer.Run(context.Background(), Job{
		ElementID: testElementID,
		Targets:   []Target{{SectorCarrier: amos.Wildcard, Cell: "NOPE"}},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.OK() {
		t.Error("report with unbound wildcard cell is OK")
	}
	if len(report.Results) != 1 || report.Results[0].Err == nil {
		t.Errorf("results = %+v, want one failed target", report.Results)
	}
}

func TestRunEmptyCapture(t *testing.T) {
	transport := newScriptedTransport()
	scriptSurvey(transport, []string{"CELL_A_1"}, "")

	analyzer := newTestAnalyzer(transport)

	report, err := analyzer.Run(context.Background(), Job{
		ElementID: testElementID,
		Targets:   []Target{{SectorCarrier: "12C1", Cell: "CELL_A_1"}},
	})
	if err != nil {
		t.Fatalf("Run returned error for empty capture: %v", err)
	}
	if len(report.Results) != 0 {
		t.Errorf("got %d results for empty capture, want 0", len(report.Results))
	}
	if report.OK() {
		t.Error("empty report is OK")
	}
}

func TestRunMissingSampleWindow(t *testing.T) {
	// Capture without a stopfile timestamp: readings stay raw and the target
	// is marked failed.
	capture := `EUtranCellFDD=C1 sectorCarrierRef [1]
 >>> sectorCarrierRef = ENodeBFunction=1,SectorCarrier=S1
SectorCarrier=S1,PmUlInterferenceReport=0 pmRadioRecInterferencePwrBrPrb1 512
SectorCarrier=S1,PmUlInterferenceReport=0 rfBranchRxRef AntennaUnitGroup=A1,RfBranch=4
AntennaUnitGroup=A1,RfBranch=4 rfPortRef FieldReplaceableUnit=RRU-1,RfPort=A`

	transport := newScriptedTransport()
	scriptSurvey(transport, []string{"C1"}, capture)

	analyzer := newTestAnalyzer(transport)

	report, err := analyzer.Run(context.Background(), Job{
		ElementID: testElementID,
		Targets:   []Target{{SectorCarrier: "S1", Cell: "C1"}},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.OK() {
		t.Error("report without a sample window is OK")
	}
	result := report.Results[0]
	if result.Err == nil {
		t.Fatal("target without a sample window did not fail")
	}
	if len(result.Readings) != 1 || result.Readings[0].Calibrated {
		t.Errorf("readings = %+v, want one raw reading", result.Readings)
	}
}

func TestRunInvalidElementID(t *testing.T) {
	analyzer := newTestAnalyzer(newScriptedTransport())
	if _, err := analyzer.Run(context.Background(), Job{ElementID: "12ab"}); err == nil {
		t.Error("Run with malformed element id did not fail")
	}
}

func TestRunStoreFailure(t *testing.T) {
	transport := newScriptedTransport()
	scriptSurvey(transport, []string{"CELL_A_1"}, surveyCapture)

	store := &fakeStore{storeErr: errFailed}
	analyzer := newTestAnalyzer(transport, WithStore(store))

	report, err := analyzer.Run(context.Background(), Job{
		ElementID: testElementID,
		Targets:   []Target{{SectorCarrier: "12C1", Cell: "CELL_A_1"}},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.OK() {
		t.Error("report is OK although archiving failed")
	}
	if !errors.Is(report.Results[0].Err, errFailed) {
		t.Errorf("result error = %v, want wrapped store failure", report.Results[0].Err)
	}
}
