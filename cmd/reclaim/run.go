package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reclaim/internal/genner"
	"reclaim/internal/orchestrator"
	"reclaim/internal/sandbox"
	"reclaim/internal/session"
)

func newRunCmd() *cobra.Command {
	var runs int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run exploration against the sandbox container",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if cfg.LLM.APIKey == "" {
				return fmt.Errorf("no API key configured (set GEMINI_API_KEY or llm.api_key)")
			}

			gen, err := genner.NewGemini(ctx, genner.GeminiConfig{
				APIKey:      cfg.LLM.APIKey,
				Model:       cfg.LLM.Model,
				Temperature: cfg.LLM.Temperature,
			})
			if err != nil {
				return err
			}

			runner, err := sandbox.NewDocker(sandbox.DockerConfig{
				ContainerID: cfg.Sandbox.ContainerID,
				WorkDir:     cfg.Sandbox.WorkDir,
				RunTimeout:  cfg.Sandbox.RunTimeout.Std(),
				ExecTimeout: cfg.Sandbox.ExecTimeout.Std(),
			})
			if err != nil {
				return err
			}

			store, err := session.NewStore(cfg.Run.DataDir)
			if err != nil {
				return err
			}

			previous, err := triedStrategies(store)
			if err != nil {
				return err
			}

			o := orchestrator.New(orchestrator.Config{
				MaxStrategyAttempts: cfg.Run.MaxStrategyAttempts,
				MaxCodeAttempts:     cfg.Run.MaxCodeAttempts,
				StrategyCount:       cfg.Run.StrategyCount,
				WorkPath:            cfg.Run.WorkPath,
				SpecialCommands:     cfg.Run.SpecialCommands,
			}, gen, runner)

			for i := 0; i < runs; i++ {
				rec, runErr := o.Run(ctx, previous)
				if rec != nil && (len(rec.Executions) > 0 || len(rec.Exploration) > 0) {
					if _, err := store.Save(rec); err != nil {
						return err
					}
					for _, exec := range rec.Executions {
						previous = append(previous, exec.Strategy)
					}
				}
				if runErr != nil {
					return runErr
				}
				fmt.Printf("run %d/%d: %d strategies, %.0f MB freed\n",
					i+1, runs, len(rec.Executions), rec.SpaceFreed)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 1, "number of exploration runs")
	return cmd
}

// triedStrategies collects every strategy earlier runs already executed so
// new runs are asked to avoid them.
func triedStrategies(store *session.Store) ([]string, error) {
	records, err := store.LoadAll()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []string
	for _, rec := range records {
		for _, exec := range rec.Executions {
			if !seen[exec.Strategy] {
				seen[exec.Strategy] = true
				out = append(out, exec.Strategy)
			}
		}
	}
	return out, nil
}
