package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"reclaim/internal/miner"
	"reclaim/internal/session"
)

func newMineCmd() *cobra.Command {
	var (
		inputDir string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Mine persisted runs into preference pairs (JSONL)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputDir == "" {
				inputDir = cfg.Mining.InputDir
			}
			if output == "" {
				output = cfg.Mining.OutputFile
			}

			store, err := session.NewStore(inputDir)
			if err != nil {
				return err
			}
			records, err := store.LoadAll()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("no run records under %s", inputDir)
			}

			pairs, stats := miner.Mine(records)

			if dir := filepath.Dir(output); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
			}
			if err := miner.WriteFile(output, pairs); err != nil {
				return err
			}

			fmt.Printf("mined %d pairs from %d records (%d strategy, %d code, %d borrowed; %d sessions skipped, %d partials dropped)\n",
				stats.Emitted, stats.Records, stats.StrategyPairs, stats.CodePairs,
				stats.Borrowed, stats.SkippedSessions, stats.DroppedPartials)
			fmt.Println("wrote", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input", "", "directory of run records (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output JSONL path (default from config)")
	return cmd
}
