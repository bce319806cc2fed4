package loader

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"trade-audit/internal/features"
	"trade-audit/internal/outliers"
	"trade-audit/internal/series"
)

func sampleTrades() []series.Trade {
	base := time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)
	mk := func(id int64, outcome series.Outcome, pnl, balance float64) series.Trade {
		return series.Trade{
			ID: id, Timestamp: base.Add(time.Duration(id-1) * 3 * time.Hour), Outcome: outcome,
			PnL:         decimal.NewFromFloat(pnl),
			Balance:     decimal.NewFromFloat(balance),
			PeakBalance: decimal.NewFromFloat(balance),
			RiskAmount:  decimal.NewFromInt(100),
			RiskReward:  decimal.NewFromFloat(2.5),
			SetupType:   "Breakout", Session: "London", Instrument: "EUR/USD",
		}
	}
	return []series.Trade{
		mk(1, series.Win, 250, 10250),
		mk(2, series.Loss, -100, 10150),
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	want := sampleTrades()

	if err := WriteTrades(path, want); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	got, err := ReadTrades(path)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("期望 %d 条, 实际 %d", len(want), len(got))
	}
	for i := range want {
		a, b := want[i], got[i]
		if a.ID != b.ID || !a.Timestamp.Equal(b.Timestamp) || a.Outcome != b.Outcome ||
			!a.PnL.Equal(b.PnL) || !a.Balance.Equal(b.Balance) || !a.RiskReward.Equal(b.RiskReward) ||
			a.SetupType != b.SetupType || a.Session != b.Session || a.Instrument != b.Instrument {
			t.Fatalf("位置 %d 往返不一致: %#v vs %#v", i, a, b)
		}
	}
}

func TestReadTradesAcceptsSpaceLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	content := "id,timestamp,instrument,setup_type,session,risk_reward_ratio,risk_amount,outcome,pnl,balance,peak_balance\n" +
		"1,2024-01-02 10:30:00,EUR/USD,Breakout,London,2,100,Win,200,10200,10200\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}

	got, err := ReadTrades(path)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	want := time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)
	if !got[0].Timestamp.Equal(want) {
		t.Fatalf("时间戳期望 %v, 实际 %v", want, got[0].Timestamp)
	}
}

func TestReadTradesRejectsMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	content := "id,timestamp\n1,2024-01-02 10:30:00\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}

	if _, err := ReadTrades(path); err == nil {
		t.Fatal("缺列应报错")
	}
}

func TestReadTradesRejectsBadRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	content := "id,timestamp,instrument,setup_type,session,risk_reward_ratio,risk_amount,outcome,pnl,balance,peak_balance\n" +
		"abc,2024-01-02 10:30:00,EUR/USD,Breakout,London,2,100,Win,200,10200,10200\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}

	if _, err := ReadTrades(path); err == nil {
		t.Fatal("非法 id 应报错")
	}
}

func TestWriteFeatureTable(t *testing.T) {
	s, err := series.New(sampleTrades())
	if err != nil {
		t.Fatalf("构造序列失败: %v", err)
	}
	tbl, err := features.Build(s, features.Defaults(), zerolog.Nop())
	if err != nil {
		t.Fatalf("构建特征表失败: %v", err)
	}

	path := filepath.Join(t.TempDir(), "features.csv")
	if err := WriteFeatureTable(path, tbl); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("打开失败: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("期望表头加 2 行, 实际 %d 行", len(rows))
	}
	wantCols := len(tradeHeader) + len(tbl.Names())
	if len(rows[0]) != wantCols {
		t.Fatalf("期望 %d 列, 实际 %d", wantCols, len(rows[0]))
	}

	// hours_since_last is NaN on the first row and must serialise empty
	colIdx := -1
	for i, name := range rows[0] {
		if name == "hours_since_last" {
			colIdx = i
		}
	}
	if colIdx < 0 {
		t.Fatal("缺少 hours_since_last 列")
	}
	if rows[1][colIdx] != "" {
		t.Fatalf("NaN 单元格应为空, 实际 %q", rows[1][colIdx])
	}
	if rows[2][colIdx] != "3" {
		t.Fatalf("期望 3, 实际 %q", rows[2][colIdx])
	}
}

func TestWriteOutlierReport(t *testing.T) {
	s, err := series.New(sampleTrades())
	if err != nil {
		t.Fatalf("构造序列失败: %v", err)
	}

	path := filepath.Join(t.TempDir(), "outliers.csv")
	records := []outliers.Record{
		{TradeID: 2, Kind: outliers.KindPnLIQR},
		{TradeID: 2, Kind: outliers.KindRapidFire},
	}
	if err := WriteOutlierReport(path, s, records); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("打开失败: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("期望表头加 2 行, 实际 %d 行", len(rows))
	}
	if rows[1][0] != "2" || rows[1][len(rows[1])-1] != "pnl_iqr" {
		t.Fatalf("报告行不正确: %v", rows[1])
	}
	if rows[2][len(rows[2])-1] != "rapid_fire" {
		t.Fatalf("报告行不正确: %v", rows[2])
	}
}

func TestFormatCell(t *testing.T) {
	cases := map[float64]string{
		1.5: "1.5",
		0:   "0",
	}
	for v, want := range cases {
		if got := formatCell(v); got != want {
			t.Fatalf("%v 期望 %q, 实际 %q", v, want, got)
		}
	}
}
