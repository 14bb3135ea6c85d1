// Package validate gates candidate programs through syntax, compile, and
// sandbox stages before their effect is measured.
package validate

import (
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"reclaim/internal/logging"
	"reclaim/internal/prompts"
	"reclaim/internal/sandbox"
	"reclaim/internal/transcript"
)

// Stage names, used in results and log lines.
const (
	StageSyntax  = "syntax"
	StageCompile = "compile"
	StageSandbox = "sandbox"
)

// Run contexts embedded in regeneration requests so the model knows what
// rejected its program.
const (
	contextParser      = "the Go parser"
	contextInterpreter = "the Go interpreter"
	contextSandbox     = "the sandbox"
)

// Result is the pipeline verdict for one candidate program. Classified
// failures are results, not errors.
type Result struct {
	OK      bool
	Outcome transcript.Outcome
	Stage   string
	Output  string
	Err     string
}

// TransportError reports that the sandbox ran a different program than the
// one submitted while the run failed. It is distinct from every stage
// classification and aborts the session.
type TransportError struct {
	Diff string
}

func (e *TransportError) Error() string {
	return "program corrupted in transit to sandbox:\n" + e.Diff
}

// Pipeline validates candidate programs. Each failed stage appends the
// tagged attempt plus a regeneration request to the transcript, so the next
// generation sees exactly what went wrong.
type Pipeline struct {
	runner sandbox.Runner
}

// New returns a pipeline executing in the given sandbox.
func New(runner sandbox.Runner) *Pipeline {
	return &Pipeline{runner: runner}
}

// Validate runs the stages in order and stops at the first failure.
// The returned error is non-nil only for transport corruption or
// infrastructure failures; everything else is a classified Result.
func (p *Pipeline) Validate(ctx context.Context, tr *transcript.Transcript, code string) (Result, error) {
	log := logging.Get(logging.CategoryValidate)

	if errText := checkSyntax(code); errText != "" {
		log.Infow("stage failed", "stage", StageSyntax, "error", errText)
		return p.reject(tr, code, transcript.OutcomeASTFail, StageSyntax, errText, contextParser), nil
	}

	if errText := checkCompile(code); errText != "" {
		log.Infow("stage failed", "stage", StageCompile, "error", errText)
		return p.reject(tr, code, transcript.OutcomeCompileFail, StageCompile, errText, contextInterpreter), nil
	}

	res, err := p.runner.RunProgram(ctx, code)
	switch {
	case errors.Is(err, sandbox.ErrTimeout):
		log.Infow("stage failed", "stage", StageSandbox, "error", "timed out")
		errText := fmt.Sprintf("the program timed out and was killed\npartial output:\n%s", res.Output)
		return p.reject(tr, code, transcript.OutcomeContainerFail, StageSandbox, errText, contextSandbox), nil
	case err != nil:
		return Result{}, fmt.Errorf("validate: sandbox run: %w", err)
	}

	if res.ExitCode != 0 {
		if res.ReflectedCode != "" && res.ReflectedCode != code {
			diff := cmp.Diff(code, res.ReflectedCode)
			return Result{}, &TransportError{Diff: diff}
		}
		log.Infow("stage failed", "stage", StageSandbox, "exit_code", res.ExitCode)
		errText := fmt.Sprintf("the program exited with code %d\noutput:\n%s", res.ExitCode, res.Output)
		return p.reject(tr, code, transcript.OutcomeContainerFail, StageSandbox, errText, contextSandbox), nil
	}

	if strings.TrimSpace(res.Output) == "" {
		// Exit 0 with nothing printed: the program ran but reported
		// nothing, which the agent cannot act on.
		log.Infow("stage failed", "stage", StageSandbox, "error", "no output")
		errText := "the program exited 0 but produced no output; print a summary of what was done"
		return p.reject(tr, code, transcript.OutcomeContainerFail, StageSandbox, errText, contextSandbox), nil
	}

	return Result{OK: true, Stage: StageSandbox, Output: res.Output}, nil
}

func (p *Pipeline) reject(tr *transcript.Transcript, code string, outcome transcript.Outcome, stage, errText, runContext string) Result {
	tr.Append(prompts.CodeAttempt(code, outcome))
	tr.Append(prompts.Regen(errText, runContext))
	return Result{Outcome: outcome, Stage: stage, Err: errText}
}

func checkSyntax(code string) string {
	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, "candidate.go", code, parser.ParseComments); err != nil {
		return err.Error()
	}
	return ""
}

func checkCompile(code string) string {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return err.Error()
	}
	if _, err := i.Compile(code); err != nil {
		return err.Error()
	}
	return ""
}
