package cli

import (
	"github.com/spf13/cobra"

	"trade-audit/internal/app"
)

var (
	generateTrades int
	generateSeed   int64
	generateOutput string
	generateStart  string
	generateEnd    string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic trade log for testing and demos",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.GenerateOptions{
			Trades:     generateTrades,
			Seed:       generateSeed,
			OutputPath: generateOutput,
			Start:      generateStart,
			End:        generateEnd,
		}

		return getApp().Generate(cmd.Context(), opts)
	},
}

func init() {
	generateCmd.Flags().IntVar(&generateTrades, "trades", 0, "Number of trades to generate (defaults to config)")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 0, "Random seed (defaults to config)")
	generateCmd.Flags().StringVar(&generateOutput, "output", "trades.csv", "Path to write the generated CSV")
	generateCmd.Flags().StringVar(&generateStart, "start", "", "First trading day, YYYY-MM-DD (defaults to config)")
	generateCmd.Flags().StringVar(&generateEnd, "end", "", "Last trading day, YYYY-MM-DD (defaults to config)")
}
