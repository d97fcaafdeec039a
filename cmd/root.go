package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adscope/suggest-triage/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "suggest-triage",
	Short: "Search suggestion triage pipeline",
	Long:  "Classifies autocomplete suggestion candidates against a seed phrase: tail extraction, geo conflict resolution, weighted signal heuristics, embedding-based refinement and an optional LLM judge for the residual grey zone.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
