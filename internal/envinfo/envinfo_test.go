package envinfo

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const freeOutput = `              total        used        free      shared  buff/cache   available
Mem:          15986        4521        8123         412        3341       10702
Swap:          2047           0        2047`

const dfOutput = `Filesystem     1M-blocks   Used Available Use% Mounted on
/dev/sda1         114336  83211     25282  77% /`

func TestParseMemory(t *testing.T) {
	total, available, running, err := ParseMemory(freeOutput)
	if err != nil {
		t.Fatalf("ParseMemory: %v", err)
	}
	if total != 15986 || available != 10702 {
		t.Errorf("got total=%v available=%v, want 15986/10702", total, available)
	}
	if running != 15986-10702 {
		t.Errorf("running = %v, want %v", running, 15986-10702)
	}
}

func TestParseStorage(t *testing.T) {
	total, available, err := ParseStorage(dfOutput)
	if err != nil {
		t.Fatalf("ParseStorage: %v", err)
	}
	if total != 114336 || available != 25282 {
		t.Errorf("got total=%v available=%v, want 114336/25282", total, available)
	}
}

func TestParseSnapshot(t *testing.T) {
	snap, err := ParseSnapshot(freeOutput, dfOutput)
	if err != nil {
		t.Fatalf("ParseSnapshot: %v", err)
	}

	want := Snapshot{
		TotalSystemMemory:     15986,
		AvailableSystemMemory: 10702,
		RunningMemory:         5284,
		TotalStorage:          114336,
		AvailableStorage:      25282,
	}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		mem  string
		df   string
	}{
		{"empty memory output", "", dfOutput},
		{"single line memory", "total used free", dfOutput},
		{"garbled memory row", "header\nMem: a b c d e f g", dfOutput},
		{"truncated df row", freeOutput, "Filesystem\n/dev/sda1 100"},
		{"non-numeric df", freeOutput, "Filesystem 1M-blocks Used Available\n/dev/sda1 x y z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSnapshot(tt.mem, tt.df); err == nil {
				t.Error("expected parse error, got nil")
			}
		})
	}
}

func TestDiffIsNonCommutative(t *testing.T) {
	a := Snapshot{TotalSystemMemory: 100, AvailableSystemMemory: 60, RunningMemory: 40, TotalStorage: 500, AvailableStorage: 200}
	b := Snapshot{TotalSystemMemory: 100, AvailableSystemMemory: 50, RunningMemory: 50, TotalStorage: 500, AvailableStorage: 150}

	ab := a.Diff(b)
	ba := b.Diff(a)
	if ab.AvailableStorage != 50 {
		t.Errorf("a.Diff(b).AvailableStorage = %v, want 50", ab.AvailableStorage)
	}
	if ba.AvailableStorage != -50 {
		t.Errorf("b.Diff(a).AvailableStorage = %v, want -50", ba.AvailableStorage)
	}
}

func TestTotalFilesDeleted(t *testing.T) {
	tests := []struct {
		name      string
		old, new  float64
		wantDelta float64
		wantFreed bool
	}{
		{"available dropped", 500, 300, 200, true},
		{"available grew", 300, 500, -200, false},
		{"no change", 400, 400, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := Snapshot{AvailableStorage: tt.old}
			fresh := Snapshot{AvailableStorage: tt.new}
			delta, freed := old.TotalFilesDeleted(fresh)
			if delta != tt.wantDelta || freed != tt.wantFreed {
				t.Errorf("got (%v, %v), want (%v, %v)", delta, freed, tt.wantDelta, tt.wantFreed)
			}
		})
	}
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(2)
	h.Push(Snapshot{AvailableStorage: 1})
	h.Push(Snapshot{AvailableStorage: 2})
	h.Push(Snapshot{AvailableStorage: 3})

	latest, ok := h.Latest()
	if !ok || latest.AvailableStorage != 3 {
		t.Fatalf("Latest = %+v, %v", latest, ok)
	}
	rendered := h.Render()
	if strings.Contains(rendered, "available storage: 1 MB") {
		t.Error("oldest snapshot not evicted")
	}
	if !strings.Contains(rendered, "snapshot 2:") {
		t.Errorf("render missing snapshot label:\n%s", rendered)
	}
}
