package sandbox

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const freeOutput = `              total        used        free      shared  buff/cache   available
Mem:           8000        3000        2000         100        3000        5000`

const dfOutput = `Filesystem     1M-blocks   Used Available Use% Mounted on
/dev/sda1         100000  60000     40000  60% /`

func TestInspectorSnapshot(t *testing.T) {
	runner := &MockRunner{
		ExecFunc: func(ctx context.Context, argv ...string) (int, string, error) {
			switch argv[0] {
			case "free":
				return 0, freeOutput, nil
			case "df":
				return 0, dfOutput, nil
			}
			return 1, "", nil
		},
	}

	snap, err := NewInspector(runner).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.TotalSystemMemory != 8000 || snap.AvailableStorage != 40000 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestInspectorSnapshotFailureIsIntrospectionError(t *testing.T) {
	tests := []struct {
		name   string
		runner *MockRunner
	}{
		{
			name: "command error",
			runner: &MockRunner{
				ExecFunc: func(ctx context.Context, argv ...string) (int, string, error) {
					return 0, "", errors.New("container gone")
				},
			},
		},
		{
			name: "nonzero exit",
			runner: &MockRunner{
				ExecFunc: func(ctx context.Context, argv ...string) (int, string, error) {
					return 127, "sh: free: not found", nil
				},
			},
		},
		{
			name: "unparsable output",
			runner: &MockRunner{
				ExecFunc: func(ctx context.Context, argv ...string) (int, string, error) {
					return 0, "not a table", nil
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInspector(tt.runner).Snapshot(context.Background())
			var ie *IntrospectionError
			if !errors.As(err, &ie) {
				t.Fatalf("error = %v, want *IntrospectionError", err)
			}
		})
	}
}

func TestInspectorSpecialCollectsFailuresInline(t *testing.T) {
	runner := &MockRunner{
		ExecFunc: func(ctx context.Context, argv ...string) (int, string, error) {
			if argv[0] == "du" {
				return 0, "42M\t/var/log", nil
			}
			return 2, "denied", nil
		},
	}

	out := NewInspector(runner).Special(context.Background(), []string{"du -sh /var/log", "ls /root"})
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if !strings.Contains(out[0], "42M") {
		t.Errorf("out[0] = %q", out[0])
	}
	if !strings.Contains(out[1], "error") {
		t.Errorf("out[1] should report the failure inline: %q", out[1])
	}
}
