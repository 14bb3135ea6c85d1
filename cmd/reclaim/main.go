// Command reclaim runs the disk-space reclamation agent and mines its
// records into preference pairs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"reclaim/internal/config"
	"reclaim/internal/logging"
)

var (
	cfgPath string
	cfg     config.Config
)

func main() {
	root := &cobra.Command{
		Use:   "reclaim",
		Short: "LLM-driven disk space reclamation agent",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			return logging.Initialize(cfg.Logging.Level, cfg.Logging.File)
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config YAML")

	root.AddCommand(newRunCmd())
	root.AddCommand(newMineCmd())

	err := root.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
