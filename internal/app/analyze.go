package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"trade-audit/internal/features"
	"trade-audit/internal/loader"
	"trade-audit/internal/metrics"
	"trade-audit/internal/outliers"
	"trade-audit/internal/storage"
)

// Analyze runs the full pipeline: load, validate, widen, detect, aggregate,
// then write whichever outputs were requested.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) error {
	if opts.InputPath == "" {
		return errors.New("--input must be provided")
	}
	if opts.RunAt.IsZero() {
		opts.RunAt = time.Now().UTC()
	}

	tbl, err := a.buildTable(opts.InputPath)
	if err != nil {
		return err
	}

	scorer := outliers.NewIsolationForest(a.Config.Outliers.Contamination, a.Config.Outliers.Seed)
	detector := outliers.NewDetector(a.Config.Outliers, scorer, a.Logger)
	report, err := detector.Detect(tbl)
	if err != nil {
		return fmt.Errorf("detect outliers: %w", err)
	}

	bundle := metrics.Compute(tbl, a.Logger)

	if opts.FeaturesPath != "" {
		if err := loader.WriteFeatureTable(opts.FeaturesPath, tbl); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.FeaturesPath).Msg("feature table written")
	}

	if opts.OutliersPath != "" {
		if err := loader.WriteOutlierReport(opts.OutliersPath, tbl.Series(), report); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.OutliersPath).Int("flagged", len(report)).Msg("outlier report written")
	}

	if opts.ReportPath != "" {
		if err := a.writeReport(opts.ReportPath, bundle); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.ReportPath).Msg("metrics report written")
	}
	if opts.ReportPath == "" {
		renderBundle(os.Stdout, bundle)
	}

	if opts.Persist {
		if err := a.persistRun(ctx, tbl, report, bundle, opts.RunAt); err != nil {
			return err
		}
	}

	return nil
}

// persistRun stores the trade log, the run's outlier report, and a metrics
// snapshot. Requires a configured database.
func (a *App) persistRun(ctx context.Context, tbl *features.Table, report []outliers.Record, bundle metrics.Bundle, runAt time.Time) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot persist run")
	}
	defer closeStore()

	s := tbl.Series()
	rows := make([]storage.TradeRow, s.Len())
	for i := 0; i < s.Len(); i++ {
		t := s.At(i)
		rows[i] = storage.TradeRow{
			ID:          t.ID,
			Timestamp:   t.Timestamp,
			Outcome:     string(t.Outcome),
			PnL:         t.PnL,
			Balance:     t.Balance,
			PeakBalance: t.PeakBalance,
			RiskAmount:  t.RiskAmount,
			RiskReward:  t.RiskReward,
			SetupType:   t.SetupType,
			Session:     t.Session,
			Instrument:  t.Instrument,
		}
	}
	if err := store.UpsertTrades(ctx, rows); err != nil {
		return err
	}

	outlierRows := make([]storage.OutlierRow, len(report))
	for i, r := range report {
		outlierRows[i] = storage.OutlierRow{TradeID: r.TradeID, Kind: string(r.Kind), RunAt: runAt}
	}
	if err := store.ReplaceOutliers(ctx, runAt, outlierRows); err != nil {
		return err
	}

	encoded, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode metrics bundle: %w", err)
	}
	if _, err := store.InsertSnapshot(ctx, storage.MetricsSnapshot{
		RunAt:  runAt,
		Trades: s.Len(),
		Bundle: encoded,
	}); err != nil {
		return err
	}

	a.Logger.Info().Time("run_at", runAt).Int("trades", s.Len()).Int("outliers", len(report)).Msg("run persisted")
	return nil
}
