package clinic

import (
	"fmt"
	"sort"
	"time"
)

// The booking grid is fixed: half-hour slots from 09:00 through 16:30.
// HH:MM labels sort lexicographically in chronological order, which the
// ledger ordering relies on.

const (
	gridStartHour = 9
	gridEndHour   = 17
	dayFormat     = "2006-01-02"
)

var slotGrid = buildSlotGrid()

func buildSlotGrid() []string {
	grid := make([]string, 0, (gridEndHour-gridStartHour)*2)
	for h := gridStartHour; h < gridEndHour; h++ {
		grid = append(grid, fmt.Sprintf("%02d:00", h), fmt.Sprintf("%02d:30", h))
	}
	return grid
}

// SlotGrid returns a copy of the full bookable grid.
func SlotGrid() []string {
	grid := make([]string, len(slotGrid))
	copy(grid, slotGrid)
	return grid
}

// ValidSlot reports whether label is one of the grid labels.
func ValidSlot(label string) bool {
	for _, s := range slotGrid {
		if s == label {
			return true
		}
	}
	return false
}

// ValidDate reports whether day is a well-formed YYYY-MM-DD date.
func ValidDate(day string) bool {
	_, err := time.Parse(dayFormat, day)
	return err == nil
}

// NormalizeSlots deduplicates the input and returns it sorted ascending.
// Labels outside the grid are rejected with ErrInvalidSlot.
func NormalizeSlots(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !ValidSlot(s) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSlot, s)
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}
