package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertTradeSQL = `INSERT INTO trades (
        id,
        traded_at,
        outcome,
        pnl,
        balance,
        peak_balance,
        risk_amount,
        risk_reward_ratio,
        setup_type,
        session,
        instrument
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    )
    ON CONFLICT (id) DO UPDATE
    SET
        traded_at         = EXCLUDED.traded_at,
        outcome           = EXCLUDED.outcome,
        pnl               = EXCLUDED.pnl,
        balance           = EXCLUDED.balance,
        peak_balance      = EXCLUDED.peak_balance,
        risk_amount       = EXCLUDED.risk_amount,
        risk_reward_ratio = EXCLUDED.risk_reward_ratio,
        setup_type        = EXCLUDED.setup_type,
        session           = EXCLUDED.session,
        instrument        = EXCLUDED.instrument;`

	listRecentTradesSQL = `SELECT
        id,
        traded_at,
        outcome,
        pnl,
        balance,
        peak_balance,
        risk_amount,
        risk_reward_ratio,
        setup_type,
        session,
        instrument,
        created_at
    FROM trades
    ORDER BY id DESC
    LIMIT $1;`

	countTradesSQL = `SELECT COUNT(*) FROM trades;`

	deleteOutliersForRunSQL = `DELETE FROM outlier_reports WHERE run_at = $1;`

	insertOutlierSQL = `INSERT INTO outlier_reports (
        trade_id,
        kind,
        run_at
    ) VALUES (
        $1,$2,$3
    );`

	listOutliersForRunSQL = `SELECT
        trade_id,
        kind,
        run_at,
        created_at
    FROM outlier_reports
    WHERE run_at = $1
    ORDER BY trade_id, kind;`

	insertSnapshotSQL = `INSERT INTO metrics_snapshots (
        run_at,
        trade_count,
        bundle
    ) VALUES (
        $1,$2,$3
    )
    RETURNING id, run_at, trade_count, bundle, created_at;`

	listRecentSnapshotsSQL = `SELECT
        id,
        run_at,
        trade_count,
        bundle,
        created_at
    FROM metrics_snapshots
    ORDER BY run_at DESC
    LIMIT $1;`
)

// TradeStore defines persistence for raw trade rows.
type TradeStore interface {
	UpsertTrades(ctx context.Context, trades []TradeRow) error
	ListRecentTrades(ctx context.Context, limit int) ([]TradeRow, error)
	CountTrades(ctx context.Context) (int64, error)
}

// OutlierStore defines persistence for per-run outlier reports.
type OutlierStore interface {
	ReplaceOutliers(ctx context.Context, runAt time.Time, rows []OutlierRow) error
	ListOutliersForRun(ctx context.Context, runAt time.Time) ([]OutlierRow, error)
}

// SnapshotStore defines persistence for metrics snapshots.
type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, snapshot MetricsSnapshot) (MetricsSnapshot, error)
	ListRecentSnapshots(ctx context.Context, limit int) ([]MetricsSnapshot, error)
}

// Store aggregates access to trades, outlier reports, and snapshots.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertTrades persists the trade log in one batch.
func (s *Store) UpsertTrades(ctx context.Context, trades []TradeRow) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(upsertTradeSQL,
			t.ID,
			t.Timestamp,
			t.Outcome,
			t.PnL.String(),
			t.Balance.String(),
			t.PeakBalance.String(),
			t.RiskAmount.String(),
			t.RiskReward.String(),
			t.SetupType,
			t.Session,
			t.Instrument,
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for range trades {
		if _, execErr := results.Exec(); execErr != nil {
			return fmt.Errorf("upsert trade: %w", execErr)
		}
	}
	return nil
}

// ListRecentTrades lists the most recent trades ordered by descending id.
func (s *Store) ListRecentTrades(ctx context.Context, limit int) ([]TradeRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentTradesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent trades: %w", queryErr)
	}
	defer rows.Close()

	trades := make([]TradeRow, 0, limit)
	for rows.Next() {
		trade, scanErr := scanTradeRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		trades = append(trades, trade)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return trades, nil
}

// CountTrades counts stored trades.
func (s *Store) CountTrades(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countTradesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count trades: %w", scanErr)
	}
	return count, nil
}

// ReplaceOutliers swaps a run's outlier rows atomically: runs are never
// merged, so a rerun at the same timestamp fully replaces its predecessor.
func (s *Store) ReplaceOutliers(ctx context.Context, runAt time.Time, rows []OutlierRow) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin outlier replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, execErr := tx.Exec(ctx, deleteOutliersForRunSQL, runAt); execErr != nil {
		return fmt.Errorf("delete outliers for run: %w", execErr)
	}
	for _, row := range rows {
		if _, execErr := tx.Exec(ctx, insertOutlierSQL, row.TradeID, row.Kind, runAt); execErr != nil {
			return fmt.Errorf("insert outlier: %w", execErr)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit outlier replace: %w", err)
	}
	return nil
}

// ListOutliersForRun lists a run's report ordered by trade id then kind.
func (s *Store) ListOutliersForRun(ctx context.Context, runAt time.Time) ([]OutlierRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listOutliersForRunSQL, runAt)
	if queryErr != nil {
		return nil, fmt.Errorf("list outliers for run: %w", queryErr)
	}
	defer rows.Close()

	out := make([]OutlierRow, 0)
	for rows.Next() {
		var row OutlierRow
		if err := rows.Scan(&row.TradeID, &row.Kind, &row.RunAt, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// InsertSnapshot persists a metrics bundle for one run.
func (s *Store) InsertSnapshot(ctx context.Context, snapshot MetricsSnapshot) (MetricsSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return MetricsSnapshot{}, err
	}

	row := pool.QueryRow(ctx, insertSnapshotSQL,
		snapshot.RunAt,
		snapshot.Trades,
		[]byte(snapshot.Bundle),
	)

	var rec MetricsSnapshot
	var bundle json.RawMessage
	if scanErr := row.Scan(&rec.ID, &rec.RunAt, &rec.Trades, &bundle, &rec.CreatedAt); scanErr != nil {
		return MetricsSnapshot{}, fmt.Errorf("insert snapshot: %w", scanErr)
	}
	rec.Bundle = bundle
	return rec, nil
}

// ListRecentSnapshots lists the most recent metrics snapshots.
func (s *Store) ListRecentSnapshots(ctx context.Context, limit int) ([]MetricsSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSnapshotsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent snapshots: %w", queryErr)
	}
	defer rows.Close()

	snapshots := make([]MetricsSnapshot, 0, limit)
	for rows.Next() {
		var rec MetricsSnapshot
		var bundle json.RawMessage
		if err := rows.Scan(&rec.ID, &rec.RunAt, &rec.Trades, &bundle, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Bundle = bundle
		snapshots = append(snapshots, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

func scanTradeRow(rows pgx.Rows) (TradeRow, error) {
	var (
		trade     TradeRow
		pnl       string
		balance   string
		peak      string
		risk      string
		rr        string
		createdAt time.Time
	)

	if err := rows.Scan(
		&trade.ID,
		&trade.Timestamp,
		&trade.Outcome,
		&pnl,
		&balance,
		&peak,
		&risk,
		&rr,
		&trade.SetupType,
		&trade.Session,
		&trade.Instrument,
		&createdAt,
	); err != nil {
		return TradeRow{}, err
	}

	var convErr error
	if trade.PnL, convErr = decimal.NewFromString(pnl); convErr != nil {
		return TradeRow{}, fmt.Errorf("parse pnl: %w", convErr)
	}
	if trade.Balance, convErr = decimal.NewFromString(balance); convErr != nil {
		return TradeRow{}, fmt.Errorf("parse balance: %w", convErr)
	}
	if trade.PeakBalance, convErr = decimal.NewFromString(peak); convErr != nil {
		return TradeRow{}, fmt.Errorf("parse peak balance: %w", convErr)
	}
	if trade.RiskAmount, convErr = decimal.NewFromString(risk); convErr != nil {
		return TradeRow{}, fmt.Errorf("parse risk amount: %w", convErr)
	}
	if trade.RiskReward, convErr = decimal.NewFromString(rr); convErr != nil {
		return TradeRow{}, fmt.Errorf("parse risk reward: %w", convErr)
	}
	trade.CreatedAt = createdAt

	return trade, nil
}
