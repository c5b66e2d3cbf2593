// Package element validates network element identifiers and resolves the
// scripting host NEID that fronts a given element's market.
package element

import (
	"fmt"
	"strconv"
)

// enbIDLength is the fixed width of an element identifier. The first three
// digits encode the market.
const enbIDLength = 6

// Markets in this band are served by two element managers and cannot be
// resolved without an explicit choice from the caller.
const (
	ambiguousMarketLow  = 14
	ambiguousMarketHigh = 19
)

// InvalidIdentifierError reports a malformed element id or a market code that
// cannot be resolved to an element manager.
type InvalidIdentifierError struct {
	ID     string
	Reason string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid element identifier %q: %s", e.ID, e.Reason)
}

// Manager describes one element manager instance: its scripting host NEIDs
// for the primary and secondary paths and the markets it serves.
type Manager struct {
	Name          string `yaml:"name"`
	NeidPrimary   int    `yaml:"neidPrimary"`
	NeidSecondary int    `yaml:"neidSecondary"`
	Markets       []int  `yaml:"markets"`
}

// Resolver maps element identifiers to element managers. The manager table is
// supplied by configuration; preferred names the manager to use for markets
// in the ambiguous band, where the table alone cannot decide.
type Resolver struct {
	managers  []Manager
	preferred string
}

// NewResolver creates a Resolver over the given manager table.
func NewResolver(managers []Manager, preferred string) *Resolver {
	return &Resolver{managers: managers, preferred: preferred}
}

// ParseEnbID validates the element identifier shape: exactly six digits.
func ParseEnbID(id string) (string, error) {
	if len(id) != enbIDLength {
		return "", &InvalidIdentifierError{ID: id, Reason: fmt.Sprintf("must be %d digits", enbIDLength)}
	}
	// Atoi would let a leading sign through; only bare digits are valid.
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", &InvalidIdentifierError{ID: id, Reason: "must be numeric"}
		}
	}
	return id, nil
}

// Market extracts the market code from an element identifier. Codes are
// reused across the 300 and 600 bands, so both fold back into the base range.
func Market(id string) (int, error) {
	if _, err := ParseEnbID(id); err != nil {
		return 0, err
	}

	market, err := strconv.Atoi(id[:3])
	if err != nil {
		return 0, &InvalidIdentifierError{ID: id, Reason: "malformed market code"}
	}

	switch {
	case market >= 300 && market < 600:
		market -= 300
	case market >= 600 && market < 900:
		market -= 600
	}
	return market, nil
}

// Resolve returns the element manager name and NEID serving the element.
// primary selects between the manager's primary and secondary scripting
// paths. Markets in the ambiguous band resolve through the preferred manager
// name; without one the identifier is unresolvable.
func (r *Resolver) Resolve(id string, primary bool) (string, int, error) {
	market, err := Market(id)
	if err != nil {
		return "", 0, err
	}

	if market >= ambiguousMarketLow && market <= ambiguousMarketHigh {
		if r.preferred == "" {
			return "", 0, &InvalidIdentifierError{
				ID:     id,
				Reason: fmt.Sprintf("market %d is served by multiple managers and no preferred manager is configured", market),
			}
		}
		for _, m := range r.managers {
			if m.Name == r.preferred {
				return m.Name, neid(m, primary), nil
			}
		}
		return "", 0, &InvalidIdentifierError{
			ID:     id,
			Reason: fmt.Sprintf("preferred manager %q is not in the manager table", r.preferred),
		}
	}

	for _, m := range r.managers {
		for _, served := range m.Markets {
			if served == market {
				return m.Name, neid(m, primary), nil
			}
		}
	}

	// Unknown markets fall through to a direct NEID equal to the market
	// code, which is how unmapped lab elements are reached.
	return "DEFAULT", market, nil
}

func neid(m Manager, primary bool) int {
	if primary {
		return m.NeidPrimary
	}
	return m.NeidSecondary
}
