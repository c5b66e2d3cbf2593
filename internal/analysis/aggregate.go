package analysis

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/telcofield/prb-survey/internal/amos"
)

// GroupKey identifies one antenna chain: readings are presented per
// (branch, port) pair. Keys are stable across repeated runs within a session.
type GroupKey struct {
	Branch string
	Port   string
}

func (k GroupKey) String() string {
	return fmt.Sprintf("branch %s port %s", k.Branch, k.Port)
}

// GroupReadings groups finalized readings by antenna chain and orders each
// group by PRB index ascending, as required for stable axis presentation by
// the renderer. The returned key slice gives a deterministic group order:
// branch first, then port.
func GroupReadings(readings []amos.PRBReading) (map[GroupKey][]amos.PRBReading, []GroupKey) {
	groups := make(map[GroupKey][]amos.PRBReading)
	for _, r := range readings {
		key := GroupKey{Branch: r.Branch, Port: r.Port}
		groups[key] = append(groups[key], r)
	}

	keys := make([]GroupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
		sort.Slice(groups[key], func(i, j int) bool {
			return groups[key][i].PRBIndex < groups[key][j].PRBIndex
		})
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Branch != keys[j].Branch {
			return branchLess(keys[i].Branch, keys[j].Branch)
		}
		return keys[i].Port < keys[j].Port
	})

	return groups, keys
}

// branchLess orders branch ids numerically so branch 10 sorts after branch 2.
// Non-numeric ids fall back to lexicographic order.
func branchLess(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	if aErr == nil && bErr == nil {
		return ai < bi
	}
	return a < b
}
