package envinfo

import (
	"fmt"
	"strings"
)

// =============================================================================
// ENVIRONMENT SNAPSHOTS
// =============================================================================

// Snapshot captures the machine state relevant to space reclamation.
// All values are megabytes.
type Snapshot struct {
	TotalSystemMemory     float64 `json:"total_system_memory"`
	AvailableSystemMemory float64 `json:"available_system_memory"`
	RunningMemory         float64 `json:"running_memory"`
	TotalStorage          float64 `json:"total_storage"`
	AvailableStorage      float64 `json:"available_storage"`
}

// Diff returns the field-wise difference s minus other. It is deliberately
// non-commutative: callers pick the direction.
func (s Snapshot) Diff(other Snapshot) Snapshot {
	return Snapshot{
		TotalSystemMemory:     s.TotalSystemMemory - other.TotalSystemMemory,
		AvailableSystemMemory: s.AvailableSystemMemory - other.AvailableSystemMemory,
		RunningMemory:         s.RunningMemory - other.RunningMemory,
		TotalStorage:          s.TotalStorage - other.TotalStorage,
		AvailableStorage:      s.AvailableStorage - other.AvailableStorage,
	}
}

// TotalFilesDeleted compares a baseline snapshot against a fresh one taken
// after a candidate program ran. delta is baseline available storage minus
// fresh available storage; freed reports delta > 0.
func (s Snapshot) TotalFilesDeleted(fresh Snapshot) (delta float64, freed bool) {
	delta = s.AvailableStorage - fresh.AvailableStorage
	return delta, delta > 0
}

// String renders the snapshot for prompt embedding.
func (s Snapshot) String() string {
	return fmt.Sprintf(
		"total system memory: %.0f MB\navailable system memory: %.0f MB\nrunning memory: %.0f MB\ntotal storage: %.0f MB\navailable storage: %.0f MB",
		s.TotalSystemMemory, s.AvailableSystemMemory, s.RunningMemory, s.TotalStorage, s.AvailableStorage,
	)
}

// History keeps the most recent snapshots for prompt context.
type History struct {
	snaps []Snapshot
	max   int
}

// NewHistory returns a history that retains the max most recent snapshots.
func NewHistory(max int) *History {
	if max <= 0 {
		max = 5
	}
	return &History{max: max}
}

// Push records a snapshot, evicting the oldest past capacity.
func (h *History) Push(s Snapshot) {
	h.snaps = append(h.snaps, s)
	if len(h.snaps) > h.max {
		h.snaps = h.snaps[len(h.snaps)-h.max:]
	}
}

// Latest returns the most recent snapshot, if any.
func (h *History) Latest() (Snapshot, bool) {
	if len(h.snaps) == 0 {
		return Snapshot{}, false
	}
	return h.snaps[len(h.snaps)-1], true
}

// Render formats the retained snapshots oldest-first.
func (h *History) Render() string {
	if len(h.snaps) == 0 {
		return "(no snapshots taken yet)"
	}
	parts := make([]string, len(h.snaps))
	for i, s := range h.snaps {
		parts[i] = fmt.Sprintf("snapshot %d:\n%s", i+1, s)
	}
	return strings.Join(parts, "\n\n")
}
