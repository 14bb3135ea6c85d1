// Package orchestrator drives the generate/validate/execute/measure loop
// over a sandbox and a completion backend.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"reclaim/internal/envinfo"
	"reclaim/internal/genner"
	"reclaim/internal/logging"
	"reclaim/internal/prompts"
	"reclaim/internal/sandbox"
	"reclaim/internal/session"
	"reclaim/internal/transcript"
	"reclaim/internal/validate"
)

// Config bounds and shapes an exploration run.
type Config struct {
	// MaxStrategyAttempts bounds retries of the strategy-list request.
	MaxStrategyAttempts int
	// MaxCodeAttempts bounds candidate programs per strategy.
	MaxCodeAttempts int
	// StrategyCount is how many strategies one run asks for.
	StrategyCount int
	// WorkPath is the in-sandbox directory the agent may touch.
	WorkPath string
	// SpecialCommands are extra read-only inspection commands whose output
	// is embedded in the exploration prompt.
	SpecialCommands []string
	// HistorySize is how many environment snapshots prompts retain.
	HistorySize int
}

// DefaultConfig returns the run defaults.
func DefaultConfig() Config {
	return Config{
		MaxStrategyAttempts: 3,
		MaxCodeAttempts:     5,
		StrategyCount:       3,
		WorkPath:            "/workspace",
		HistorySize:         5,
	}
}

// ErrStrategiesExhausted reports that no usable strategy list came back
// within the attempt bound.
var ErrStrategiesExhausted = errors.New("orchestrator: strategy attempts exhausted")

// Orchestrator owns one sandbox and one completion backend and turns them
// into exploration runs.
type Orchestrator struct {
	cfg       Config
	gen       genner.Genner
	inspector *sandbox.Inspector
	pipeline  *validate.Pipeline
	history   *envinfo.History
}

// New wires an orchestrator. The backend and runner are injected; nothing
// here reaches for globals.
func New(cfg Config, gen genner.Genner, runner sandbox.Runner) *Orchestrator {
	if cfg.MaxStrategyAttempts <= 0 {
		cfg.MaxStrategyAttempts = 3
	}
	if cfg.MaxCodeAttempts <= 0 {
		cfg.MaxCodeAttempts = 5
	}
	if cfg.StrategyCount <= 0 {
		cfg.StrategyCount = 3
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 5
	}
	return &Orchestrator{
		cfg:       cfg,
		gen:       gen,
		inspector: sandbox.NewInspector(runner),
		pipeline:  validate.New(runner),
		history:   envinfo.NewHistory(cfg.HistorySize),
	}
}

// Run performs one exploration: ask for strategies, then for each strategy
// run the bounded code loop. previous lists strategies already tried in
// earlier runs so the model does not repeat them.
//
// On a fatal mid-run error the record built so far is returned alongside the
// error, so callers can persist partial evidence.
func (o *Orchestrator) Run(ctx context.Context, previous []string) (*session.Record, error) {
	log := logging.Get(logging.CategoryOrchestrator)
	rec := session.NewRecord()

	base := transcript.New()
	base.Append(prompts.System(o.cfg.WorkPath))

	snap, err := o.inspector.Snapshot(ctx)
	if err != nil {
		return rec, err
	}
	o.history.Push(snap)
	envSlot := base.AppendRefreshable(prompts.EnvInfo(o.history))

	if len(o.cfg.SpecialCommands) > 0 {
		outputs := o.inspector.Special(ctx, o.cfg.SpecialCommands)
		base.Append(prompts.SpecialEnvInfo(outputs))
	}

	strategies, err := o.exploreStrategies(ctx, base, previous)
	rec.Exploration = base.Entries()
	if err != nil {
		return rec, err
	}
	log.Infow("strategies selected", "count", len(strategies))

	for _, strat := range strategies {
		fresh, err := o.inspector.Snapshot(ctx)
		if err != nil {
			return rec, err
		}
		o.history.Push(fresh)
		if err := base.Refresh(envSlot, prompts.EnvInfoContent(o.history)); err != nil {
			return rec, fmt.Errorf("orchestrator: refresh env slot: %w", err)
		}

		exec, err := o.runStrategy(ctx, base.Clone(), strat)
		if err != nil {
			return rec, err
		}
		rec.Executions = append(rec.Executions, exec)
		rec.SpaceFreed += exec.SpaceFreed
		log.Infow("strategy finished",
			"strategy", strat, "succeeded", exec.Succeeded,
			"attempts", exec.Attempts, "space_freed_mb", exec.SpaceFreed)
	}

	return rec, nil
}

// exploreStrategies asks for a strategy list, retrying on unusable
// completions up to the strategy attempt bound.
func (o *Orchestrator) exploreStrategies(ctx context.Context, tr *transcript.Transcript, previous []string) ([]string, error) {
	log := logging.Get(logging.CategoryOrchestrator)
	tr.Append(prompts.StrategyRequest(o.cfg.StrategyCount, previous))

	for attempt := 1; attempt <= o.cfg.MaxStrategyAttempts; attempt++ {
		items, raw, err := o.gen.GenerateList(ctx, tr.Render())
		if err != nil {
			var genErr *genner.GenerationError
			if !errors.As(err, &genErr) {
				return nil, err
			}
			log.Warnw("strategy list unusable", "attempt", attempt, "error", err)
			tr.Append(prompts.StrategyReply(raw, transcript.OutcomeFailed))
			tr.Append(prompts.StrategyRegen([]string{genErr.Err.Error()}))
			continue
		}
		tr.Append(prompts.StrategyReply(raw, transcript.OutcomeSuccess))
		return items, nil
	}
	return nil, ErrStrategiesExhausted
}

// runStrategy runs the bounded code loop for one strategy on its own
// transcript clone. A failed run is a normal Execution with Succeeded
// false; only introspection and transport failures surface as errors.
func (o *Orchestrator) runStrategy(ctx context.Context, tr *transcript.Transcript, strategy string) (session.Execution, error) {
	log := logging.Get(logging.CategoryOrchestrator)

	exec := session.Execution{Strategy: strategy}
	baseline, err := o.inspector.Snapshot(ctx)
	if err != nil {
		return exec, err
	}

	tr.Append(prompts.CodeRequest(strategy))

	for attempt := 1; attempt <= o.cfg.MaxCodeAttempts; attempt++ {
		exec.Attempts = attempt

		code, _, err := o.gen.GenerateCode(ctx, tr.Render())
		if err != nil {
			var genErr *genner.GenerationError
			if !errors.As(err, &genErr) {
				exec.Transcript = tr.Entries()
				return exec, err
			}
			// Unusable completion: the attempt is spent but there is
			// nothing worth appending.
			log.Warnw("completion unusable", "strategy", strategy, "attempt", attempt, "error", err)
			continue
		}

		res, err := o.pipeline.Validate(ctx, tr, code)
		if err != nil {
			exec.Transcript = tr.Entries()
			return exec, err
		}
		if !res.OK {
			log.Infow("attempt rejected",
				"strategy", strategy, "attempt", attempt,
				"stage", res.Stage, "outcome", res.Outcome.String())
			continue
		}

		fresh, err := o.inspector.Snapshot(ctx)
		if err != nil {
			exec.Transcript = tr.Entries()
			return exec, err
		}

		delta, freed := baseline.TotalFilesDeleted(fresh)
		if !freed {
			log.Infow("attempt freed nothing", "strategy", strategy, "attempt", attempt, "delta_mb", delta)
			tr.Append(prompts.CodeAttempt(code, transcript.OutcomeDeletionFail))
			tr.Append(prompts.Regen(
				fmt.Sprintf("the program ran but available storage did not drop (delta %.0f MB); it must actually remove data", delta),
				"the environment check",
			))
			continue
		}

		tr.Append(prompts.CodeAttempt(code, transcript.OutcomeSuccess))
		o.history.Push(fresh)
		exec.SpaceFreed = delta
		exec.Succeeded = true
		exec.Transcript = tr.Entries()
		return exec, nil
	}

	exec.Transcript = tr.Entries()
	return exec, nil
}
