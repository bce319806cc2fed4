package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recently stored trades.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show trades")
	}
	defer closeStore()

	trades, err := store.ListRecentTrades(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		fmt.Fprintln(os.Stdout, "no trades found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tTime (UTC)\tInstrument\tSetup\tSession\tOutcome\tPnL\tRisk\tR:R")

	for _, t := range trades {
		fmt.Fprintf(
			writer,
			"%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			t.Timestamp.UTC().Format(time.RFC3339),
			t.Instrument,
			t.SetupType,
			t.Session,
			t.Outcome,
			t.PnL.StringFixed(2),
			t.RiskAmount.StringFixed(2),
			t.RiskReward.String(),
		)
	}

	writer.Flush()
	return nil
}
