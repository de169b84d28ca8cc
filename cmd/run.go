package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urban-eco-lab/holcstat/internal/config"
	"github.com/urban-eco-lab/holcstat/internal/join"
	"github.com/urban-eco-lab/holcstat/internal/pipeline"
	"github.com/urban-eco-lab/holcstat/internal/report"
)

var runOuterJoin bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the analysis pipeline and render the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := pipeline.Params{
			IndicatorsPath:   cfg.Data.IndicatorsPath,
			GradesPath:       cfg.Data.GradesPath,
			ObservationsPath: cfg.Data.ObservationsPath,
			StateCode:        cfg.Filter.StateCode,
			CountyName:       cfg.Filter.CountyName,
			ExcludeGEOIDs:    cfg.Filter.ExcludeGEOIDs,
			TargetEPSG:       cfg.Analysis.TargetEPSG,
			Indicators:       cfg.Analysis.Indicators,
		}
		if runOuterJoin {
			params.ObservationJoin = join.Left
		}

		labelOverrides := map[string]string{}
		if cfg.Filter.ProfilePath != "" {
			profile, err := config.LoadProfile(cfg.Filter.ProfilePath)
			if err != nil {
				return err
			}
			params.ExcludeGEOIDs = append(params.ExcludeGEOIDs, profile.ExcludeGEOIDs...)
			labelOverrides = profile.Labels
		}

		res, err := pipeline.Run(cmd.Context(), params)
		if err != nil {
			return err
		}

		labels := report.Labels(labelOverrides)
		if err := report.Write(cfg.Report.OutputDir, res, labels); err != nil {
			return err
		}

		// The table also goes to stdout so a run is inspectable without
		// opening the report directory.
		fmt.Println(report.FormatTable(res.Aggregates, res.Indicators, labels))

		zap.L().Info("run complete",
			zap.String("run_id", res.RunID.String()),
			zap.String("report_dir", cfg.Report.OutputDir),
		)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runOuterJoin, "outer-join", false,
		"keep grade areas with zero observations (count 0) instead of dropping them")
	rootCmd.AddCommand(runCmd)
}
