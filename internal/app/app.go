package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"trade-audit/internal/config"
	"trade-audit/internal/features"
	"trade-audit/internal/loader"
	"trade-audit/internal/series"
	"trade-audit/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// buildTable loads a trade log and widens it into the feature table. Every
// command that computes anything starts here.
func (a *App) buildTable(path string) (*features.Table, error) {
	trades, err := loader.ReadTrades(path)
	if err != nil {
		return nil, err
	}

	s, err := series.New(trades)
	if err != nil {
		return nil, fmt.Errorf("build event series: %w", err)
	}

	tbl, err := features.Build(s, a.Config.Features, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("build feature table: %w", err)
	}

	a.Logger.Info().Int("trades", s.Len()).Int("columns", len(tbl.Names())).Msg("feature table ready")
	return tbl, nil
}

// AnalyzeOptions hold parameters for the full pipeline run.
type AnalyzeOptions struct {
	InputPath    string
	FeaturesPath string
	OutliersPath string
	ReportPath   string
	Persist      bool
	RunAt        time.Time
}

// GenerateOptions configure the synthetic log generator.
type GenerateOptions struct {
	Trades     int
	Seed       int64
	OutputPath string
	Start      string
	End        string
}

// ExportOptions hold parameters for exporting the widened table.
type ExportOptions struct {
	InputPath string
	CSVPath   string
	PNGPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ReportOptions configure the metrics-only run.
type ReportOptions struct {
	InputPath  string
	OutputPath string
}
