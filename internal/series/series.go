package series

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Outcome is the recorded result of a trade.
type Outcome string

const (
	Win  Outcome = "Win"
	Loss Outcome = "Loss"
)

// Trade is one row of the event log.
type Trade struct {
	ID          int64
	Timestamp   time.Time
	Outcome     Outcome
	PnL         decimal.Decimal
	Balance     decimal.Decimal
	PeakBalance decimal.Decimal
	RiskAmount  decimal.Decimal
	RiskReward  decimal.Decimal
	SetupType   string
	Session     string
	Instrument  string
}

// IsWin reports whether the trade closed as a win.
func (t Trade) IsWin() bool {
	return t.Outcome == Win
}

// ValidationError reports why a trade log was rejected at construction.
type ValidationError struct {
	TradeID int64
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.TradeID != 0 {
		return fmt.Sprintf("series: trade %d: %s %s", e.TradeID, e.Field, e.Reason)
	}
	return fmt.Sprintf("series: %s %s", e.Field, e.Reason)
}

// Series is the validated, id-ordered trade log. It is immutable after New;
// every downstream engine reads it and writes elsewhere.
type Series struct {
	trades []Trade
}

// New validates and orders the raw trade rows. Sorting by ID is stable, so
// duplicate-free input keeps its load order for equal timestamps.
func New(trades []Trade) (*Series, error) {
	if len(trades) == 0 {
		return nil, &ValidationError{Field: "trades", Reason: "empty input"}
	}

	owned := make([]Trade, len(trades))
	copy(owned, trades)
	sort.SliceStable(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })

	seen := make(map[int64]struct{}, len(owned))
	for _, t := range owned {
		if _, dup := seen[t.ID]; dup {
			return nil, &ValidationError{TradeID: t.ID, Field: "id", Reason: "is duplicated"}
		}
		seen[t.ID] = struct{}{}

		if err := validate(t); err != nil {
			return nil, err
		}
	}

	return &Series{trades: owned}, nil
}

func validate(t Trade) error {
	switch {
	case t.Timestamp.IsZero():
		return &ValidationError{TradeID: t.ID, Field: "timestamp", Reason: "is required"}
	case t.Outcome != Win && t.Outcome != Loss:
		return &ValidationError{TradeID: t.ID, Field: "outcome", Reason: fmt.Sprintf("must be Win or Loss, got %q", t.Outcome)}
	case t.Instrument == "":
		return &ValidationError{TradeID: t.ID, Field: "instrument", Reason: "is required"}
	case t.SetupType == "":
		return &ValidationError{TradeID: t.ID, Field: "setup_type", Reason: "is required"}
	case t.Session == "":
		return &ValidationError{TradeID: t.ID, Field: "session", Reason: "is required"}
	case t.RiskAmount.Sign() <= 0:
		return &ValidationError{TradeID: t.ID, Field: "risk_amount", Reason: "must be positive"}
	}
	return nil
}

// Len returns the number of trades.
func (s *Series) Len() int {
	return len(s.trades)
}

// At returns the trade at position i (dense 0..n-1 after construction).
func (s *Series) At(i int) Trade {
	return s.trades[i]
}

// Trades returns a copy of the ordered rows; callers may mutate it freely.
func (s *Series) Trades() []Trade {
	out := make([]Trade, len(s.trades))
	copy(out, s.trades)
	return out
}

// PnL converts the pnl column to float64 for the analytics engines.
func (s *Series) PnL() []float64 {
	return s.floats(func(t Trade) float64 { return t.PnL.InexactFloat64() })
}

// Balances converts the running balance column to float64.
func (s *Series) Balances() []float64 {
	return s.floats(func(t Trade) float64 { return t.Balance.InexactFloat64() })
}

// PeakBalances converts the running peak balance column to float64.
func (s *Series) PeakBalances() []float64 {
	return s.floats(func(t Trade) float64 { return t.PeakBalance.InexactFloat64() })
}

// RiskAmounts converts the risk column to float64.
func (s *Series) RiskAmounts() []float64 {
	return s.floats(func(t Trade) float64 { return t.RiskAmount.InexactFloat64() })
}

// RiskRewards converts the risk:reward column to float64.
func (s *Series) RiskRewards() []float64 {
	return s.floats(func(t Trade) float64 { return t.RiskReward.InexactFloat64() })
}

// WinFlags returns 1 for wins and 0 for losses.
func (s *Series) WinFlags() []float64 {
	return s.floats(func(t Trade) float64 {
		if t.IsWin() {
			return 1
		}
		return 0
	})
}

func (s *Series) floats(get func(Trade) float64) []float64 {
	out := make([]float64, len(s.trades))
	for i, t := range s.trades {
		out[i] = get(t)
	}
	return out
}
