// Package loader reads trade logs from CSV and writes the pipeline outputs
// back out. The core never touches files itself; everything path-shaped
// lives here or in the app layer.
package loader

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"trade-audit/internal/features"
	"trade-audit/internal/outliers"
	"trade-audit/internal/series"
)

var tradeHeader = []string{
	"id", "timestamp", "instrument", "setup_type", "session",
	"risk_reward_ratio", "risk_amount", "outcome", "pnl", "balance", "peak_balance",
}

// timestamp layouts accepted on read, most specific first
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ReadTrades parses a trade-log CSV into raw trade rows. Column order is
// fixed by the header; validation beyond parsing belongs to series.New.
func ReadTrades(path string) ([]series.Trade, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read trade log: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("trade log %s has no data rows", path)
	}

	idx, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	trades := make([]series.Trade, 0, len(rows)-1)
	for line, row := range rows[1:] {
		trade, err := parseTrade(row, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+2, err)
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, required := range tradeHeader {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("trade log missing column %q", required)
		}
	}
	return idx, nil
}

func parseTrade(row []string, idx map[string]int) (series.Trade, error) {
	get := func(name string) string { return row[idx[name]] }

	id, err := strconv.ParseInt(get("id"), 10, 64)
	if err != nil {
		return series.Trade{}, fmt.Errorf("parse id %q: %w", get("id"), err)
	}

	ts, err := parseTime(get("timestamp"))
	if err != nil {
		return series.Trade{}, err
	}

	dec := func(name string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(get(name))
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse %s %q: %w", name, get(name), err)
		}
		return d, nil
	}

	pnl, err := dec("pnl")
	if err != nil {
		return series.Trade{}, err
	}
	balance, err := dec("balance")
	if err != nil {
		return series.Trade{}, err
	}
	peakBalance, err := dec("peak_balance")
	if err != nil {
		return series.Trade{}, err
	}
	risk, err := dec("risk_amount")
	if err != nil {
		return series.Trade{}, err
	}
	rr, err := dec("risk_reward_ratio")
	if err != nil {
		return series.Trade{}, err
	}

	return series.Trade{
		ID:          id,
		Timestamp:   ts,
		Outcome:     series.Outcome(get("outcome")),
		PnL:         pnl,
		Balance:     balance,
		PeakBalance: peakBalance,
		RiskAmount:  risk,
		RiskReward:  rr,
		SetupType:   get("setup_type"),
		Session:     get("session"),
		Instrument:  get("instrument"),
	}, nil
}

func parseTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: unsupported layout", value)
}

// WriteTrades persists raw trade rows in the format ReadTrades accepts.
func WriteTrades(path string, trades []series.Trade) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trade log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		record := []string{
			strconv.FormatInt(t.ID, 10),
			t.Timestamp.UTC().Format(time.RFC3339),
			t.Instrument,
			t.SetupType,
			t.Session,
			t.RiskReward.String(),
			t.RiskAmount.String(),
			string(t.Outcome),
			t.PnL.String(),
			t.Balance.String(),
			t.PeakBalance.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return writer.Error()
}

// WriteFeatureTable writes the widened table: base fields followed by every
// derived column in table order. NaN cells are written empty so spreadsheet
// tooling reads them as missing rather than zero.
func WriteFeatureTable(path string, tbl *features.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create feature table: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	names := tbl.Names()
	header := append(append([]string{}, tradeHeader...), names...)
	if err := writer.Write(header); err != nil {
		return err
	}

	s := tbl.Series()
	for i := 0; i < s.Len(); i++ {
		t := s.At(i)
		record := []string{
			strconv.FormatInt(t.ID, 10),
			t.Timestamp.UTC().Format(time.RFC3339),
			t.Instrument,
			t.SetupType,
			t.Session,
			t.RiskReward.String(),
			t.RiskAmount.String(),
			string(t.Outcome),
			t.PnL.String(),
			t.Balance.String(),
			t.PeakBalance.String(),
		}
		for _, name := range names {
			record = append(record, formatCell(tbl.MustColumn(name)[i]))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return writer.Error()
}

// WriteOutlierReport writes the deduplicated (trade id, kind) pairs enriched
// with the flagged trade's context fields.
func WriteOutlierReport(path string, s *series.Series, records []outliers.Record) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create outlier report: %w", err)
	}
	defer file.Close()

	byID := make(map[int64]series.Trade, s.Len())
	for i := 0; i < s.Len(); i++ {
		byID[s.At(i).ID] = s.At(i)
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"trade_id", "timestamp", "instrument", "setup_type", "session", "outcome", "pnl", "risk_amount", "risk_reward_ratio", "outlier_kind"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		t := byID[r.TradeID]
		record := []string{
			strconv.FormatInt(r.TradeID, 10),
			t.Timestamp.UTC().Format(time.RFC3339),
			t.Instrument,
			t.SetupType,
			t.Session,
			string(t.Outcome),
			t.PnL.String(),
			t.RiskAmount.String(),
			t.RiskReward.String(),
			string(r.Kind),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return writer.Error()
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
