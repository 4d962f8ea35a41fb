package validate

import "fmt"

const (
	// Drops are only judged once a source holds more than this many items.
	SafetyMinExisting = 20
	SafetyMaxDropPct  = 50
)

// BlockedError is returned when an import would wipe or halve a source's
// inventory. It is not configurable.
type BlockedError struct {
	Existing  int
	Attempted int
	Reason    string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("import blocked: %s (existing %d items, new file has %d)", e.Reason, e.Existing, e.Attempted)
}

// SafetyNet refuses an empty result for a source that holds items, and a
// drop of more than half when the source holds more than SafetyMinExisting.
func SafetyNet(existing, attempted int) error {
	if existing > 0 && attempted == 0 {
		return &BlockedError{Existing: existing, Attempted: attempted, Reason: "new file produced no items"}
	}
	if existing > SafetyMinExisting && attempted*100 < existing*(100-SafetyMaxDropPct) {
		drop := 100 - attempted*100/existing
		return &BlockedError{Existing: existing, Attempted: attempted, Reason: fmt.Sprintf("item count dropped %d%%", drop)}
	}
	return nil
}
