// Package sandbox runs untrusted generated programs inside a docker
// container and inspects the container's resource state.
package sandbox

import (
	"context"
	"fmt"
)

// ExecResult is what a program run yields. ReflectedCode is the program text
// read back out of the sandbox after upload; callers compare it against what
// they submitted to detect transport corruption.
type ExecResult struct {
	ExitCode      int
	Output        string
	ReflectedCode string
}

// Runner is the execution collaborator. Implementations must honor the
// context deadline and kill whatever they started when it fires.
type Runner interface {
	// RunProgram uploads code into the sandbox and executes it.
	RunProgram(ctx context.Context, code string) (ExecResult, error)

	// Exec runs a single command inside the sandbox and returns its exit
	// code and combined output.
	Exec(ctx context.Context, argv ...string) (int, string, error)
}

// ErrTimeout reports that a program exceeded the sandbox wall-clock limit
// and was forcibly killed.
var ErrTimeout = fmt.Errorf("sandbox: program timed out")

// IntrospectionError wraps a failure to observe the sandbox environment.
// It is fatal: a run that cannot measure its environment cannot decide
// whether anything was freed, so callers abort rather than retry.
type IntrospectionError struct {
	Op  string
	Err error
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("introspection failed during %s: %v", e.Op, e.Err)
}

func (e *IntrospectionError) Unwrap() error {
	return e.Err
}
