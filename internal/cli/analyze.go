package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trade-audit/internal/app"
)

var (
	analyzeInput    string
	analyzeFeatures string
	analyzeOutliers string
	analyzeReport   string
	analyzePersist  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full analytics pipeline over a trade log",
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeInput == "" {
			return fmt.Errorf("--input must be provided")
		}

		opts := app.AnalyzeOptions{
			InputPath:    analyzeInput,
			FeaturesPath: analyzeFeatures,
			OutliersPath: analyzeOutliers,
			ReportPath:   analyzeReport,
			Persist:      analyzePersist,
		}

		return getApp().Analyze(cmd.Context(), opts)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "", "Path to the trade log CSV")
	analyzeCmd.Flags().StringVar(&analyzeFeatures, "features", "", "Path to write the widened feature table CSV")
	analyzeCmd.Flags().StringVar(&analyzeOutliers, "outliers", "", "Path to write the outlier report CSV")
	analyzeCmd.Flags().StringVar(&analyzeReport, "report", "", "Path to write the metrics report (stdout when omitted)")
	analyzeCmd.Flags().BoolVar(&analyzePersist, "store", false, "Persist trades, outliers, and metrics to the database")
}
