package sandbox

import (
	"context"
	"fmt"
	"strings"

	"reclaim/internal/envinfo"
	"reclaim/internal/logging"
)

// Inspector observes the sandbox environment through a Runner. Every failure
// is an *IntrospectionError; callers treat those as fatal.
type Inspector struct {
	runner Runner
}

// NewInspector returns an inspector bound to a runner.
func NewInspector(runner Runner) *Inspector {
	return &Inspector{runner: runner}
}

// Snapshot takes a full environment snapshot by running the memory and
// storage commands inside the sandbox.
func (in *Inspector) Snapshot(ctx context.Context) (envinfo.Snapshot, error) {
	memOut, err := in.capture(ctx, envinfo.MemoryCommand)
	if err != nil {
		return envinfo.Snapshot{}, &IntrospectionError{Op: envinfo.MemoryCommand, Err: err}
	}
	stOut, err := in.capture(ctx, envinfo.StorageCommand)
	if err != nil {
		return envinfo.Snapshot{}, &IntrospectionError{Op: envinfo.StorageCommand, Err: err}
	}

	snap, err := envinfo.ParseSnapshot(memOut, stOut)
	if err != nil {
		return envinfo.Snapshot{}, &IntrospectionError{Op: "parse", Err: err}
	}

	logging.Get(logging.CategorySandbox).Debugw("environment snapshot",
		"available_storage_mb", snap.AvailableStorage,
		"available_memory_mb", snap.AvailableSystemMemory)
	return snap, nil
}

// Special runs caller-supplied read-only inspection commands and returns
// their labeled outputs for prompt context. A failing command is reported
// inline rather than aborting the whole batch.
func (in *Inspector) Special(ctx context.Context, commands []string) []string {
	out := make([]string, 0, len(commands))
	for _, c := range commands {
		text, err := in.capture(ctx, c)
		if err != nil {
			out = append(out, fmt.Sprintf("$ %s\n(error: %v)", c, err))
			continue
		}
		out = append(out, fmt.Sprintf("$ %s\n%s", c, strings.TrimRight(text, "\n")))
	}
	return out
}

func (in *Inspector) capture(ctx context.Context, command string) (string, error) {
	argv := strings.Fields(command)
	exitCode, output, err := in.runner.Exec(ctx, argv...)
	if err != nil {
		return "", err
	}
	if exitCode != 0 {
		return "", fmt.Errorf("%q exited %d: %s", command, exitCode, strings.TrimSpace(output))
	}
	return output, nil
}
