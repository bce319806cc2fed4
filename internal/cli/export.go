package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trade-audit/internal/app"
)

var (
	exportInput     string
	exportCSVPath   string
	exportPNGPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the widened feature table as CSV and/or an equity PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportInput == "" {
			return fmt.Errorf("--input must be provided")
		}
		if exportCSVPath == "" && exportPNGPath == "" {
			return fmt.Errorf("at least one of --csv or --png must be provided")
		}

		opts := app.ExportOptions{
			InputPath: exportInput,
			CSVPath:   exportCSVPath,
			PNGPath:   exportPNGPath,
			MaxPoints: exportMaxPoints,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportInput, "input", "", "Path to the trade log CSV")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write the feature table CSV")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write the equity curve PNG")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum chart points (defaults to config)")
}
