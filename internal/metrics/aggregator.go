// Package metrics computes the scalar, whole-series performance statistics.
// Values use float64 sentinels for degenerate inputs: +Inf where the ratio
// is genuinely unbounded (profit factor with no losses), 0 where a risk
// denominator vanishes (sharpe with zero deviation), NaN where the quantity
// is undefined (average win with no wins). Nothing here returns an error.
package metrics

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"trade-audit/internal/features"
	"trade-audit/internal/series"
	"trade-audit/internal/stats"
)

// annualisation and overtrading conventions
const (
	tradingDaysPerYear = 252
	calendarDays       = 365
	overtradePct       = 0.95
)

// Bundle maps category name to metric name to value. It is recomputed
// wholesale per run and never partially updated.
type Bundle map[string]map[string]float64

// Categories returns the category names in a fixed render order.
func (b Bundle) Categories() []string {
	known := []string{"basic", "risk", "consistency", "efficiency", "behavioral"}
	out := make([]string, 0, len(b))
	for _, c := range known {
		if _, ok := b[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// MarshalJSON encodes the bundle with JSON-safe sentinels: NaN becomes null,
// infinities become the strings "inf" and "-inf". encoding/json rejects
// non-finite numbers outright, and snapshots must round-trip through jsonb.
func (b Bundle) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string]any, len(b))
	for category, values := range b {
		encoded := make(map[string]any, len(values))
		for name, v := range values {
			switch {
			case math.IsNaN(v):
				encoded[name] = nil
			case math.IsInf(v, 1):
				encoded[name] = "inf"
			case math.IsInf(v, -1):
				encoded[name] = "-inf"
			default:
				encoded[name] = v
			}
		}
		out[category] = encoded
	}
	return json.Marshal(out)
}

// Names returns a category's metric names sorted for stable rendering.
func (b Bundle) Names(category string) []string {
	m := b[category]
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Compute aggregates every category from the finished feature table. It
// reads the table and series only; two runs over the same input produce
// identical bundles.
func Compute(tbl *features.Table, logger zerolog.Logger) Bundle {
	log := logger.With().Str("component", "metrics").Logger()

	s := tbl.Series()
	daily := dailyPnL(s)

	bundle := Bundle{
		"basic":       basicMetrics(s),
		"risk":        riskMetrics(s, daily),
		"consistency": consistencyMetrics(s, daily),
		"efficiency":  efficiencyMetrics(s),
		"behavioral":  behavioralMetrics(tbl, daily),
	}

	log.Debug().Int("categories", len(bundle)).Msg("metrics bundle computed")
	return bundle
}

func basicMetrics(s *series.Series) map[string]float64 {
	pnl := s.PnL()
	n := float64(s.Len())

	var wins, losses float64
	var winPnL, lossPnL []float64
	for i := 0; i < s.Len(); i++ {
		if s.At(i).IsWin() {
			wins++
			winPnL = append(winPnL, pnl[i])
		} else {
			losses++
			lossPnL = append(lossPnL, pnl[i])
		}
	}

	winRate := wins / n * 100
	avgWin := stats.Mean(winPnL)
	avgLoss := stats.Mean(lossPnL)

	profitFactor := math.Inf(1)
	if losses > 0 {
		profitFactor = math.Abs((wins * avgWin) / (losses * avgLoss))
	}

	expectancy := winRate/100*avgWin + (1-winRate/100)*avgLoss
	if wins == 0 {
		expectancy = avgLoss
	}
	if losses == 0 {
		expectancy = avgWin
	}

	return map[string]float64{
		"total_trades":  n,
		"wins":          wins,
		"losses":        losses,
		"win_rate_pct":  winRate,
		"total_pnl":     stats.Sum(pnl),
		"avg_pnl":       stats.Mean(pnl),
		"avg_win":       avgWin,
		"avg_loss":      avgLoss,
		"profit_factor": profitFactor,
		"expectancy":    expectancy,
	}
}

func riskMetrics(s *series.Series, daily []dayPnL) map[string]float64 {
	pnl := s.PnL()
	balance := s.Balances()
	peak := s.PeakBalances()

	var maxDD, ddSum float64
	var ddDays float64
	for i := range balance {
		if peak[i] <= 0 {
			continue
		}
		dd := (peak[i] - balance[i]) / peak[i] * 100
		if dd > maxDD {
			maxDD = dd
		}
		if dd > 0 {
			ddSum += dd
			ddDays++
		}
	}
	avgDD := 0.0
	if ddDays > 0 {
		avgDD = ddSum / ddDays
	}

	dailyVals := make([]float64, len(daily))
	var negatives []float64
	for i, d := range daily {
		dailyVals[i] = d.pnl
		if d.pnl < 0 {
			negatives = append(negatives, d.pnl)
		}
	}
	dailyMean := stats.Mean(dailyVals)
	dailyStd := stats.StdDev(dailyVals)

	sharpe := 0.0
	if dailyStd > 0 {
		sharpe = dailyMean / dailyStd * math.Sqrt(tradingDaysPerYear)
	}

	sortino := 0.0
	if downside := stats.StdDev(negatives); downside > 0 {
		sortino = dailyMean / downside * math.Sqrt(tradingDaysPerYear)
	}

	calmar := 0.0
	if capital := startingCapital(s); maxDD > 0 && capital > 0 {
		if days := elapsedDays(s); days > 0 {
			annualized := stats.Sum(pnl) / capital * (calendarDays / days)
			calmar = annualized / maxDD
		}
	}

	return map[string]float64{
		"max_drawdown_pct":     maxDD,
		"avg_drawdown_pct":     avgDD,
		"pnl_std":              stats.StdDev(pnl),
		"daily_pnl_std":        zeroIfNaN(dailyStd),
		"sharpe_ratio":         sharpe,
		"sortino_ratio":        sortino,
		"calmar_ratio":         calmar,
		"value_at_risk_95":     stats.Percentile(pnl, 0.05),
		"max_consecutive_loss": maxLossStreak(s),
	}
}

func consistencyMetrics(s *series.Series, daily []dayPnL) map[string]float64 {
	totalDays := float64(len(daily))
	dailyVals := make([]float64, len(daily))
	var profitableDays float64
	for i, d := range daily {
		dailyVals[i] = d.pnl
		if d.pnl > 0 {
			profitableDays++
		}
	}

	monthly := make(map[string]float64)
	var monthOrder []string
	for i := 0; i < s.Len(); i++ {
		key := s.At(i).Timestamp.UTC().Format("2006-01")
		if _, seen := monthly[key]; !seen {
			monthOrder = append(monthOrder, key)
		}
		monthly[key] += s.At(i).PnL.InexactFloat64()
	}
	totalMonths := float64(len(monthOrder))
	var profitableMonths float64
	for _, key := range monthOrder {
		if monthly[key] > 0 {
			profitableMonths++
		}
	}

	dailyMean := stats.Mean(dailyVals)
	var daysAboveAvg float64
	for _, v := range dailyVals {
		if v > dailyMean {
			daysAboveAvg++
		}
	}

	cv := math.Inf(1)
	if dailyMean != 0 {
		cv = zeroIfNaN(stats.StdDev(dailyVals)) / math.Abs(dailyMean)
	}

	return map[string]float64{
		"profitable_days":      profitableDays,
		"total_days":           totalDays,
		"profitable_day_pct":   profitableDays / totalDays * 100,
		"profitable_months":    profitableMonths,
		"total_months":         totalMonths,
		"profitable_month_pct": profitableMonths / totalMonths * 100,
		"consistency_score":    daysAboveAvg / totalDays * 100,
		"daily_pnl_cv":         cv,
		"runs_test_z":          runsTestZ(s),
	}
}

func efficiencyMetrics(s *series.Series) map[string]float64 {
	pnl := s.PnL()
	rr := s.RiskRewards()
	n := float64(s.Len())

	var wins float64
	var winPnL, lossPnL, winRR []float64
	for i := 0; i < s.Len(); i++ {
		if s.At(i).IsWin() {
			wins++
			winPnL = append(winPnL, pnl[i])
			winRR = append(winRR, rr[i])
		} else {
			lossPnL = append(lossPnL, pnl[i])
		}
	}
	winRate := wins / n
	avgWin := stats.Mean(winPnL)
	avgLoss := stats.Mean(lossPnL)

	tradesPerDay := 0.0
	if days := elapsedDays(s); days > 0 {
		tradesPerDay = n / days
	}

	winLossRatio := math.Inf(1)
	if absLoss := math.Abs(avgLoss); absLoss > 0 {
		winLossRatio = avgWin / absLoss
	}

	edge := winRate*avgWin + (1-winRate)*avgLoss
	if len(winPnL) == 0 {
		edge = avgLoss
	}
	if len(lossPnL) == 0 {
		edge = avgWin
	}
	edgePct := 0.0
	if avgLoss != 0 && !math.IsNaN(avgLoss) {
		edgePct = edge / math.Abs(avgLoss) * 100
	}

	// kelly tends to the bare win rate as the payoff ratio grows unbounded
	kelly := winRate * 100
	if !math.IsInf(winLossRatio, 0) && winLossRatio > 0 {
		kelly = (winRate - (1-winRate)/winLossRatio) * 100
	}

	sqn := 0.0
	if std := stats.StdDev(pnl); std > 0 {
		sqn = edge / std * math.Sqrt(n)
	}

	return map[string]float64{
		"trades_per_day":     tradesPerDay,
		"win_loss_ratio":     winLossRatio,
		"avg_risk_reward":    stats.Mean(rr),
		"avg_rr_winners":     stats.Mean(winRR),
		"edge":               edge,
		"edge_pct":           edgePct,
		"kelly_criterion":    kelly,
		"system_quality_num": sqn,
	}
}

func behavioralMetrics(tbl *features.Table, daily []dayPnL) map[string]float64 {
	n := float64(tbl.Len())

	gaps := stats.Finite(tbl.MustColumn("hours_since_last"))
	revenge := stats.Sum(tbl.MustColumn("revenge_trade"))
	escalation := stats.Sum(tbl.MustColumn("risk_escalation"))

	s := tbl.Series()
	var setupChanges float64
	for i := 1; i < s.Len(); i++ {
		if s.At(i).SetupType != s.At(i-1).SetupType {
			setupChanges++
		}
	}

	counts := make([]float64, len(daily))
	for i, d := range daily {
		counts[i] = d.trades
	}
	threshold := stats.Percentile(counts, overtradePct)
	var overtradeDays float64
	for _, c := range counts {
		if c > threshold {
			overtradeDays++
		}
	}

	return map[string]float64{
		"avg_hours_between":   stats.Mean(gaps),
		"revenge_trades":      revenge,
		"revenge_rate_pct":    revenge / n * 100,
		"risk_escalations":    escalation,
		"escalation_rate_pct": escalation / n * 100,
		"setup_changes":       setupChanges,
		"setup_change_pct":    setupChanges / n * 100,
		"overtrading_days":    overtradeDays,
	}
}

type dayPnL struct {
	day    string
	pnl    float64
	trades float64
}

// dailyPnL aggregates pnl by UTC calendar date, keeping chronological order.
func dailyPnL(s *series.Series) []dayPnL {
	sums := make(map[string]*dayPnL)
	var order []string
	for i := 0; i < s.Len(); i++ {
		key := s.At(i).Timestamp.UTC().Format("2006-01-02")
		d, seen := sums[key]
		if !seen {
			d = &dayPnL{day: key}
			sums[key] = d
			order = append(order, key)
		}
		d.pnl += s.At(i).PnL.InexactFloat64()
		d.trades++
	}
	out := make([]dayPnL, len(order))
	for i, key := range order {
		out[i] = *sums[key]
	}
	return out
}

// runsTestZ compares the observed outcome-alternation count against its
// expectation under a random ordering (two-category runs test). Returns 0
// when the variance degenerates.
func runsTestZ(s *series.Series) float64 {
	n := float64(s.Len())
	if n < 2 {
		return 0
	}

	var wins, losses float64
	runs := 1.0
	for i := 0; i < s.Len(); i++ {
		if s.At(i).IsWin() {
			wins++
		} else {
			losses++
		}
		if i > 0 && s.At(i).Outcome != s.At(i-1).Outcome {
			runs++
		}
	}
	if wins == 0 || losses == 0 {
		return 0
	}

	expected := 2*wins*losses/n + 1
	variance := (2 * wins * losses * (2*wins*losses - n)) / (n * n * (n - 1))
	if variance <= 0 {
		return 0
	}
	return (runs - expected) / math.Sqrt(variance)
}

func maxLossStreak(s *series.Series) float64 {
	maxStreak, current := 0, 0
	for i := 0; i < s.Len(); i++ {
		if !s.At(i).IsWin() {
			current++
			if current > maxStreak {
				maxStreak = current
			}
		} else {
			current = 0
		}
	}
	return float64(maxStreak)
}

func elapsedDays(s *series.Series) float64 {
	first := s.At(0).Timestamp
	last := s.At(s.Len() - 1).Timestamp
	return last.Sub(first).Hours() / 24
}

// startingCapital infers the account's opening balance from the first trade.
func startingCapital(s *series.Series) float64 {
	t := s.At(0)
	return t.Balance.Sub(t.PnL).InexactFloat64()
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
