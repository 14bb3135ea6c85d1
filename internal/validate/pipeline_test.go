package validate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"reclaim/internal/sandbox"
	"reclaim/internal/transcript"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockRunner struct {
	RunProgramFunc func(ctx context.Context, code string) (sandbox.ExecResult, error)
}

func (m *mockRunner) RunProgram(ctx context.Context, code string) (sandbox.ExecResult, error) {
	if m.RunProgramFunc != nil {
		return m.RunProgramFunc(ctx, code)
	}
	return sandbox.ExecResult{ExitCode: 0, Output: "done", ReflectedCode: code}, nil
}

func (m *mockRunner) Exec(ctx context.Context, argv ...string) (int, string, error) {
	return 0, "", nil
}

const goodProgram = `package main

import "fmt"

func main() {
	fmt.Println("removed 10 files")
}
`

func TestValidateSyntaxFailure(t *testing.T) {
	tr := transcript.New()
	p := New(&mockRunner{})

	res, err := p.Validate(context.Background(), tr, "package main\n\nfunc main( {oops")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.OK || res.Outcome != transcript.OutcomeASTFail || res.Stage != StageSyntax {
		t.Errorf("result = %+v", res)
	}
	assertAttemptRegenPair(t, tr, transcript.OutcomeASTFail, "the Go parser")
}

func TestValidateCompileFailure(t *testing.T) {
	tr := transcript.New()
	p := New(&mockRunner{})

	code := "package main\n\nfunc main() {\n\tundefinedIdentifier()\n}\n"
	res, err := p.Validate(context.Background(), tr, code)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.OK || res.Outcome != transcript.OutcomeCompileFail || res.Stage != StageCompile {
		t.Errorf("result = %+v", res)
	}
	assertAttemptRegenPair(t, tr, transcript.OutcomeCompileFail, "the Go interpreter")
}

func TestValidateSandboxExitFailure(t *testing.T) {
	tr := transcript.New()
	p := New(&mockRunner{
		RunProgramFunc: func(ctx context.Context, code string) (sandbox.ExecResult, error) {
			return sandbox.ExecResult{ExitCode: 1, Output: "permission denied", ReflectedCode: code}, nil
		},
	})

	res, err := p.Validate(context.Background(), tr, goodProgram)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.OK || res.Outcome != transcript.OutcomeContainerFail {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(res.Err, "permission denied") {
		t.Errorf("sandbox output not surfaced: %q", res.Err)
	}
	assertAttemptRegenPair(t, tr, transcript.OutcomeContainerFail, "the sandbox")
}

func TestValidateEmptyOutputIsContainerFail(t *testing.T) {
	tr := transcript.New()
	p := New(&mockRunner{
		RunProgramFunc: func(ctx context.Context, code string) (sandbox.ExecResult, error) {
			return sandbox.ExecResult{ExitCode: 0, Output: "  \n", ReflectedCode: code}, nil
		},
	})

	res, err := p.Validate(context.Background(), tr, goodProgram)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.OK || res.Outcome != transcript.OutcomeContainerFail {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(res.Err, "no output") {
		t.Errorf("Err = %q", res.Err)
	}
}

func TestValidateTimeoutIsContainerFail(t *testing.T) {
	tr := transcript.New()
	p := New(&mockRunner{
		RunProgramFunc: func(ctx context.Context, code string) (sandbox.ExecResult, error) {
			return sandbox.ExecResult{ExitCode: -1, Output: "partial", ReflectedCode: code}, sandbox.ErrTimeout
		},
	})

	res, err := p.Validate(context.Background(), tr, goodProgram)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.OK || res.Outcome != transcript.OutcomeContainerFail {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(res.Err, "timed out") {
		t.Errorf("Err = %q", res.Err)
	}
}

func TestValidateTransportCorruption(t *testing.T) {
	tr := transcript.New()
	p := New(&mockRunner{
		RunProgramFunc: func(ctx context.Context, code string) (sandbox.ExecResult, error) {
			return sandbox.ExecResult{ExitCode: 1, Output: "syntax error", ReflectedCode: code + "\n// garbage"}, nil
		},
	})

	_, err := p.Validate(context.Background(), tr, goodProgram)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *TransportError", err)
	}
	if tr.Len() != 0 {
		t.Errorf("transcript written on transport corruption: %d entries", tr.Len())
	}
}

func TestValidateSuccess(t *testing.T) {
	tr := transcript.New()
	p := New(&mockRunner{
		RunProgramFunc: func(ctx context.Context, code string) (sandbox.ExecResult, error) {
			return sandbox.ExecResult{ExitCode: 0, Output: "removed 10 files", ReflectedCode: code}, nil
		},
	})

	res, err := p.Validate(context.Background(), tr, goodProgram)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !res.OK || res.Output != "removed 10 files" {
		t.Errorf("result = %+v", res)
	}
	if tr.Len() != 0 {
		t.Errorf("transcript written on success: %d entries", tr.Len())
	}
}

func assertAttemptRegenPair(t *testing.T, tr *transcript.Transcript, outcome transcript.Outcome, runContext string) {
	t.Helper()
	entries := tr.Entries()
	if len(entries) != 2 {
		t.Fatalf("transcript has %d entries, want attempt+regen pair", len(entries))
	}
	attempt, regen := entries[0], entries[1]
	if attempt.Role != transcript.RoleAssistant || attempt.Tag.Kind != transcript.KindCodeAttempt || attempt.Tag.Outcome != outcome {
		t.Errorf("attempt entry = %+v", attempt.Tag)
	}
	if regen.Role != transcript.RoleUser || regen.Tag.Kind != transcript.KindRegenRequest {
		t.Errorf("regen entry = %+v", regen.Tag)
	}
	if !strings.Contains(regen.Content, runContext) {
		t.Errorf("regen does not name %q:\n%s", runContext, regen.Content)
	}
}
