package analysis

import (
	"testing"

	"github.com/telcofield/prb-survey/internal/amos"
)

func TestGroupReadings(t *testing.T) {
	readings := []amos.PRBReading{
		{Branch: "2", Port: "B", PRBIndex: 7},
		{Branch: "1", Port: "A", PRBIndex: 5},
		{Branch: "2", Port: "B", PRBIndex: 3},
		{Branch: "1", Port: "B", PRBIndex: 0},
		{Branch: "1", Port: "A", PRBIndex: 1},
	}

	groups, keys := GroupReadings(readings)

	wantKeys := []GroupKey{
		{Branch: "1", Port: "A"},
		{Branch: "1", Port: "B"},
		{Branch: "2", Port: "B"},
	}
	if len(keys) != len(wantKeys) {
		t.Fatalf("got %d groups, want %d", len(keys), len(wantKeys))
	}
	for i, want := range wantKeys {
		if keys[i] != want {
			t.Errorf("keys[%d] = %v, want %v", i, keys[i], want)
		}
	}

	group := groups[GroupKey{Branch: "1", Port: "A"}]
	if len(group) != 2 || group[0].PRBIndex != 1 || group[1].PRBIndex != 5 {
		t.Errorf("group 1/A PRB order = %v", []int{group[0].PRBIndex, group[1].PRBIndex})
	}
}

func TestGroupReadingsBranchOrder(t *testing.T) {
	readings := []amos.PRBReading{
		{Branch: "10", Port: "A", PRBIndex: 0},
		{Branch: "2", Port: "A", PRBIndex: 0},
	}

	_, keys := GroupReadings(readings)
	if keys[0].Branch != "2" || keys[1].Branch != "10" {
		t.Errorf("branch order = [%s %s], want numeric [2 10]", keys[0].Branch, keys[1].Branch)
	}
}

func TestGroupReadingsEmpty(t *testing.T) {
	groups, keys := GroupReadings(nil)
	if len(groups) != 0 || len(keys) != 0 {
		t.Errorf("got %d groups and %d keys for no readings", len(groups), len(keys))
	}
}

func TestReportOK(t *testing.T) {
	t.Run("no results", func(t *testing.T) {
		r := Report{ElementID: "136001"}
		if r.OK() {
			t.Error("empty report is OK")
		}
	})

	t.Run("all results clean", func(t *testing.T) {
		r := Report{Results: []TargetResult{{}, {}}}
		if !r.OK() {
			t.Error("clean report is not OK")
		}
	})

	t.Run("one failed target", func(t *testing.T) {
		r := Report{Results: []TargetResult{{}, {Err: errFailed}}}
		if r.OK() {
			t.Error("report with a failed target is OK")
		}
	})
}
