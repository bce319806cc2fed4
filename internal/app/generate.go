package app

import (
	"context"
	"errors"

	"trade-audit/internal/loader"
	"trade-audit/internal/simulator"
)

// Generate produces a synthetic trade log and writes it as CSV.
func (a *App) Generate(ctx context.Context, opts GenerateOptions) error {
	if opts.OutputPath == "" {
		return errors.New("--output must be provided")
	}

	cfg := a.Config.Simulator
	if opts.Trades > 0 {
		cfg.Trades = opts.Trades
	}
	if opts.Seed != 0 {
		cfg.Seed = opts.Seed
	}
	if opts.Start != "" {
		cfg.Start = opts.Start
	}
	if opts.End != "" {
		cfg.End = opts.End
	}

	trades, err := simulator.Generate(cfg, a.Logger)
	if err != nil {
		return err
	}

	if err := loader.WriteTrades(opts.OutputPath, trades); err != nil {
		return err
	}

	a.Logger.Info().Str("path", opts.OutputPath).Int("trades", len(trades)).Msg("trade log written")
	return nil
}
