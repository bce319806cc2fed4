package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trade-audit/internal/app"
)

var (
	reportInput  string
	reportOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compute portfolio metrics and render the text report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportInput == "" {
			return fmt.Errorf("--input must be provided")
		}

		opts := app.ReportOptions{
			InputPath:  reportInput,
			OutputPath: reportOutput,
		}

		return getApp().Report(cmd.Context(), opts)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportInput, "input", "", "Path to the trade log CSV")
	reportCmd.Flags().StringVar(&reportOutput, "output", "", "Path to write the report (stdout when omitted)")
}
