package metrics

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"trade-audit/internal/features"
	"trade-audit/internal/series"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// makeTable builds a feature table from outcomes, one trade per day starting
// Tuesday 2024-01-02 10:00 UTC. Wins pay 2R, losses lose 1R, R is 100.
func makeTable(t *testing.T, outcomes []series.Outcome) *features.Table {
	t.Helper()

	base := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	balance := 10000.0
	peak := balance

	trades := make([]series.Trade, len(outcomes))
	for i, o := range outcomes {
		pnl := -100.0
		if o == series.Win {
			pnl = 200
		}
		balance += pnl
		if balance > peak {
			peak = balance
		}
		trades[i] = series.Trade{
			ID:          int64(i + 1),
			Timestamp:   base.AddDate(0, 0, i),
			Outcome:     o,
			PnL:         decimal.NewFromFloat(pnl),
			Balance:     decimal.NewFromFloat(balance),
			PeakBalance: decimal.NewFromFloat(peak),
			RiskAmount:  decimal.NewFromInt(100),
			RiskReward:  decimal.NewFromInt(2),
			SetupType:   []string{"Breakout", "Reversal"}[i%2],
			Session:     "London",
			Instrument:  "EUR/USD",
		}
	}

	s, err := series.New(trades)
	if err != nil {
		t.Fatalf("构造序列失败: %v", err)
	}
	tbl, err := features.Build(s, features.Defaults(), testLogger())
	if err != nil {
		t.Fatalf("构建特征表失败: %v", err)
	}
	return tbl
}

func metric(t *testing.T, b Bundle, category, name string) float64 {
	t.Helper()
	m, ok := b[category]
	if !ok {
		t.Fatalf("缺少类别 %s", category)
	}
	v, ok := m[name]
	if !ok {
		t.Fatalf("类别 %s 缺少指标 %s", category, name)
	}
	return v
}

func assertMetric(t *testing.T, b Bundle, category, name string, want float64) {
	t.Helper()
	got := metric(t, b, category, name)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s.%s 期望 %v, 实际 %v", category, name, want, got)
	}
}

func TestBasicMetrics(t *testing.T) {
	tbl := makeTable(t, []series.Outcome{series.Win, series.Loss, series.Win, series.Loss})
	b := Compute(tbl, testLogger())

	assertMetric(t, b, "basic", "total_trades", 4)
	assertMetric(t, b, "basic", "wins", 2)
	assertMetric(t, b, "basic", "losses", 2)
	assertMetric(t, b, "basic", "win_rate_pct", 50)
	assertMetric(t, b, "basic", "total_pnl", 200)
	assertMetric(t, b, "basic", "avg_pnl", 50)
	assertMetric(t, b, "basic", "avg_win", 200)
	assertMetric(t, b, "basic", "avg_loss", -100)
	assertMetric(t, b, "basic", "profit_factor", 2)
	// 0.5*200 + 0.5*(-100)
	assertMetric(t, b, "basic", "expectancy", 50)
}

func TestProfitFactorUnboundedWithoutLosses(t *testing.T) {
	tbl := makeTable(t, []series.Outcome{series.Win, series.Win, series.Win})
	b := Compute(tbl, testLogger())

	if !math.IsInf(metric(t, b, "basic", "profit_factor"), 1) {
		t.Fatal("无亏损时利润因子应为 +Inf")
	}
	if !math.IsInf(metric(t, b, "efficiency", "win_loss_ratio"), 1) {
		t.Fatal("无亏损时盈亏比应为 +Inf")
	}
	// the kelly fraction degenerates to the bare win rate
	assertMetric(t, b, "efficiency", "kelly_criterion", 100)
	// expectancy falls back to the average win
	assertMetric(t, b, "basic", "expectancy", 200)
	if !math.IsNaN(metric(t, b, "basic", "avg_loss")) {
		t.Fatal("无亏损时平均亏损应为 NaN")
	}
}

func TestRiskMetrics(t *testing.T) {
	tbl := makeTable(t, []series.Outcome{series.Win, series.Win, series.Loss, series.Loss, series.Win})
	b := Compute(tbl, testLogger())

	// deepest point: balance 10200 against peak 10400
	assertMetric(t, b, "risk", "max_drawdown_pct", 200.0/10400*100)
	assertMetric(t, b, "risk", "max_consecutive_loss", 2)
	// VaR interpolates near the sorted tail of {-100,-100,200,200,200}
	assertMetric(t, b, "risk", "value_at_risk_95", -100)

	if metric(t, b, "risk", "sharpe_ratio") == 0 {
		t.Fatal("非零波动下夏普比率不应为 0")
	}
	// both losing days are -100, so downside deviation degenerates to 0
	assertMetric(t, b, "risk", "sortino_ratio", 0)
}

func TestConsistencyMetrics(t *testing.T) {
	tbl := makeTable(t, []series.Outcome{series.Win, series.Loss, series.Win, series.Loss})
	b := Compute(tbl, testLogger())

	assertMetric(t, b, "consistency", "total_days", 4)
	assertMetric(t, b, "consistency", "profitable_days", 2)
	assertMetric(t, b, "consistency", "profitable_day_pct", 50)
	assertMetric(t, b, "consistency", "total_months", 1)
	assertMetric(t, b, "consistency", "profitable_months", 1)

	// perfectly alternating outcomes: 4 runs against an expectation of 3
	z := metric(t, b, "consistency", "runs_test_z")
	if math.Abs(z-1.224744871391589) > 1e-9 {
		t.Fatalf("runs_test_z 期望 1.2247, 实际 %v", z)
	}
}

func TestRunsTestDegenerate(t *testing.T) {
	tbl := makeTable(t, []series.Outcome{series.Win, series.Win, series.Win})
	b := Compute(tbl, testLogger())

	// a single-category sequence has no alternation to test
	assertMetric(t, b, "consistency", "runs_test_z", 0)
}

func TestEfficiencyMetrics(t *testing.T) {
	tbl := makeTable(t, []series.Outcome{series.Win, series.Loss, series.Win, series.Loss})
	b := Compute(tbl, testLogger())

	assertMetric(t, b, "efficiency", "win_loss_ratio", 2)
	assertMetric(t, b, "efficiency", "avg_risk_reward", 2)
	assertMetric(t, b, "efficiency", "avg_rr_winners", 2)
	assertMetric(t, b, "efficiency", "edge", 50)
	assertMetric(t, b, "efficiency", "edge_pct", 50)
	// 0.5 - 0.5/2 = 0.25
	assertMetric(t, b, "efficiency", "kelly_criterion", 25)

	sqn := metric(t, b, "efficiency", "system_quality_num")
	want := 50.0 / math.Sqrt(90000.0/3.0) * 2
	if math.Abs(sqn-want) > 1e-9 {
		t.Fatalf("SQN 期望 %v, 实际 %v", want, sqn)
	}
}

func TestBehavioralMetrics(t *testing.T) {
	tbl := makeTable(t, []series.Outcome{series.Win, series.Loss, series.Win, series.Loss})
	b := Compute(tbl, testLogger())

	assertMetric(t, b, "behavioral", "avg_hours_between", 24)
	assertMetric(t, b, "behavioral", "revenge_trades", 0)
	assertMetric(t, b, "behavioral", "setup_changes", 3)
	assertMetric(t, b, "behavioral", "setup_change_pct", 75)
}

func TestComputeDeterministic(t *testing.T) {
	outcomes := make([]series.Outcome, 40)
	for i := range outcomes {
		outcomes[i] = series.Win
		if i%3 == 0 {
			outcomes[i] = series.Loss
		}
	}
	tbl := makeTable(t, outcomes)

	first := Compute(tbl, testLogger())
	second := Compute(tbl, testLogger())
	for _, category := range first.Categories() {
		for _, name := range first.Names(category) {
			a, b := first[category][name], second[category][name]
			if a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
				t.Fatalf("%s.%s 两次结果不同: %v vs %v", category, name, a, b)
			}
		}
	}
}

func TestBundleMarshalJSONSentinels(t *testing.T) {
	tbl := makeTable(t, []series.Outcome{series.Win, series.Win, series.Win})
	b := Compute(tbl, testLogger())

	encoded, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("带哨兵值的序列化不应报错: %v", err)
	}

	var decoded map[string]map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("反序列化失败: %v", err)
	}
	if got := decoded["basic"]["profit_factor"]; got != "inf" {
		t.Fatalf("+Inf 应编码为 \"inf\", 实际 %v", got)
	}
	if got := decoded["basic"]["avg_loss"]; got != nil {
		t.Fatalf("NaN 应编码为 null, 实际 %v", got)
	}
	if got := decoded["basic"]["total_trades"]; got != 3.0 {
		t.Fatalf("有限值应原样编码, 实际 %v", got)
	}
}

func TestBundleCategoriesOrder(t *testing.T) {
	tbl := makeTable(t, []series.Outcome{series.Win, series.Loss})
	b := Compute(tbl, testLogger())

	want := []string{"basic", "risk", "consistency", "efficiency", "behavioral"}
	got := b.Categories()
	if len(got) != len(want) {
		t.Fatalf("期望 %d 个类别, 实际 %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("位置 %d 期望 %s, 实际 %s", i, want[i], got[i])
		}
	}
}
