package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "hauntdb",
	Short: "Haunted places ingestion pipeline",
	Long:  "Scans public APIs and AI generation for reportedly haunted places, deduplicates against the directory, and merges sources into existing entries.",
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
