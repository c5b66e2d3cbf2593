package amos

import (
	"fmt"
	"strings"
)

// logfileToken is printed by the macro once the capture is closed. The value
// after the token is the remote path of the capture file.
const logfileToken = "$logfile = "

// CommandTarget parameterises a survey command. The zero filter surveys every
// operational cell on the element; naming cells restricts the loop to those.
type CommandTarget struct {
	ElementID   string   // 6-digit element id the amos client connects to
	CapturePath string   // Remote path the log capture is written to
	Cells       []string // Optional cell name filter, empty means all cells
	AnyState    bool     // Include cells regardless of operational state
}

// BuildCommand assembles the single-line AMOS macro that walks every sector
// carrier bound to the matched cells and dumps, for each one, the per-PRB
// interference counters, the branch reference for each interference report,
// the port reference for each branch, and the owning cell id. The macro opens
// a named log capture around the loop and prints the capture path with the
// "$logfile = " token so the caller can find it in free-form shell output.
//
// The returned string is exactly one line; the caller terminates it with a
// line break when sending. Reference variables use the \$ sigil required
// inside the double-quoted macro body.
func BuildCommand(t CommandTarget) string {
	cellMatch := "eutrancellfdd.*"
	if len(t.Cells) > 0 {
		escaped := make([]string, len(t.Cells))
		for i, c := range t.Cells {
			escaped[i] = escapeMacro(c)
		}
		cellMatch = fmt.Sprintf("eutrancellfdd=(%s)$", strings.Join(escaped, "|"))
	}

	match := fmt.Sprintf("ma active_cells %s operationalstate 1", cellMatch)
	if t.AnyState {
		match = fmt.Sprintf("ma active_cells %s", cellMatch)
	}

	return fmt.Sprintf(
		`amos %s "l+ %s; `+
			`func ref_loop; get \$mo sectorcarrierref > \$seccarref; `+
			`\$splitref = split(\$seccarref); for \$j = 6 to \$split_last; \$seccarref = \$splitref[\$j]; `+
			`pget \$seccarref,PmUlInterferenceReport=.* pmradiorecinterferencepwrbrprb [^0]; `+
			`get \$seccarref,PmUlInterferenceReport=.* rfbranchrxref; get rfbranch rfportref; `+
			`get \$mo EUtranCellFDDId; done; endfunc; `+
			`lt all; mr active_cells; %s; `+
			`for \$mo in active_cells; ref_loop; done; mr active_cells; l-; pv logfile$;"`,
		t.ElementID, escapeMacro(t.CapturePath), match)
}

// LogfilePath scans command output for the capture path token. The token must
// appear at the start of a line; everything else in the output is free-form.
func LogfilePath(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, logfileToken) {
			return strings.TrimSpace(line[len(logfileToken):]), true
		}
	}
	return "", false
}

// escapeMacro applies the quoting rules of the macro language to a value
// embedded in the double-quoted command body: literal $ must carry the
// backslash sigil and embedded double quotes must be escaped.
func escapeMacro(s string) string {
	s = strings.ReplaceAll(s, `$`, `\$`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
