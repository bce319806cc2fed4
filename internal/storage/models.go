package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TradeRow is one persisted trade-log row.
type TradeRow struct {
	ID          int64
	Timestamp   time.Time
	Outcome     string
	PnL         decimal.Decimal
	Balance     decimal.Decimal
	PeakBalance decimal.Decimal
	RiskAmount  decimal.Decimal
	RiskReward  decimal.Decimal
	SetupType   string
	Session     string
	Instrument  string
	CreatedAt   time.Time
}

// OutlierRow is one flagged (trade, kind) pair from a detection run.
type OutlierRow struct {
	TradeID   int64
	Kind      string
	RunAt     time.Time
	CreatedAt time.Time
}

// MetricsSnapshot captures a whole metrics bundle for one analysis run.
type MetricsSnapshot struct {
	ID        int64
	RunAt     time.Time
	Trades    int
	Bundle    json.RawMessage
	CreatedAt time.Time
}
