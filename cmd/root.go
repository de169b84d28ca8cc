package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urban-eco-lab/holcstat/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "holcstat",
	Short: "HOLC-grade environmental and biodiversity statistics",
	Long:  "Joins environmental-justice indicators, historical HOLC grading polygons, and biodiversity observations for one county, and reports descriptive statistics by grade.",
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
