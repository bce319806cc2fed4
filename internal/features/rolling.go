package features

import (
	"fmt"
	"math"

	"trade-audit/internal/series"
	"trade-audit/internal/stats"
)

// rollingColumns derives the momentum, volatility, and rolling-performance
// families. Windowed means and deviations slide running sums instead of
// re-scanning, so the whole producer stays O(n) per column.
func rollingColumns(s *series.Series, cfg Config) *columnSet {
	pnl := s.PnL()
	balance := s.Balances()
	peak := s.PeakBalances()
	risk := s.RiskAmounts()
	wins := s.WinFlags()
	n := s.Len()

	set := newColumnSet()

	for _, w := range cfg.MAWindows {
		set.add(fmt.Sprintf("ma_pnl_%d", w), rollingMean(pnl, w, 1))
		set.add(fmt.Sprintf("ma_balance_%d", w), rollingMean(balance, w, 1))
	}

	set.add(fmt.Sprintf("pnl_velocity_%d", cfg.VelocityWindow), velocity(pnl, cfg.VelocityWindow))
	set.add(fmt.Sprintf("balance_momentum_%d", cfg.MomentumLag), pctChange(balance, cfg.MomentumLag))

	cum := cumulative(pnl)
	set.add("cumulative_pnl", cum)
	set.add("pnl_acceleration", diff(diff(cum)))

	for _, w := range cfg.VolatilityWindows {
		set.add(fmt.Sprintf("pnl_volatility_%d", w), rollingStd(pnl, w, cfg.VolatilityMinP))
	}

	cvStd := rollingStd(pnl, cfg.CVWindow, cfg.CVMinPeriods)
	cvMean := rollingMean(pnl, cfg.CVWindow, cfg.CVMinPeriods)
	cv := make([]float64, n)
	for i := range cv {
		if math.IsNaN(cvStd[i]) || math.IsNaN(cvMean[i]) || cvMean[i] == 0 {
			cv[i] = math.NaN()
			continue
		}
		cv[i] = cvStd[i] / math.Abs(cvMean[i])
	}
	set.add(fmt.Sprintf("cv_%d", cfg.CVWindow), cv)

	drawdown := make([]float64, n)
	recovery := make([]float64, n)
	maeProxy := make([]float64, n)
	for i := 0; i < n; i++ {
		drawdown[i] = peak[i] - balance[i]
		if drawdown[i] > 0 {
			recovery[i] = pnl[i] / drawdown[i]
		}
		if wins[i] == 1 {
			maeProxy[i] = math.Abs(risk[i])
		} else {
			maeProxy[i] = math.Abs(pnl[i])
		}
	}
	set.add("drawdown", drawdown)
	set.add("recovery_rate", recovery)
	set.add("mae_proxy", maeProxy)

	shMean := rollingMean(pnl, cfg.SharpeWindow, cfg.SharpeMinPeriods)
	shStd := rollingStd(pnl, cfg.SharpeWindow, cfg.SharpeMinPeriods)
	sharpe := make([]float64, n)
	for i := range sharpe {
		if math.IsNaN(shMean[i]) || math.IsNaN(shStd[i]) || shStd[i] == 0 {
			sharpe[i] = math.NaN()
			continue
		}
		sharpe[i] = shMean[i] / shStd[i]
	}
	set.add(fmt.Sprintf("risk_adjusted_return_%d", cfg.SharpeWindow), sharpe)

	for _, w := range cfg.WinRateWindows {
		rate := rollingMean(wins, w, 1)
		for i := range rate {
			rate[i] *= 100
		}
		set.add(fmt.Sprintf("win_rate_%d", w), rate)
	}

	winPnL := make([]float64, n)
	lossPnL := make([]float64, n)
	lossFlags := make([]float64, n)
	for i := 0; i < n; i++ {
		if wins[i] == 1 {
			winPnL[i] = pnl[i]
		} else {
			lossPnL[i] = pnl[i]
			lossFlags[i] = 1
		}
	}

	for _, w := range cfg.ProfitFactorWindows {
		winSum := rollingSum(winPnL, w)
		lossSum := rollingSum(lossPnL, w)
		pf := make([]float64, n)
		for i := range pf {
			denom := math.Abs(lossSum[i])
			if denom == 0 {
				pf[i] = math.NaN()
				continue
			}
			pf[i] = winSum[i] / denom
		}
		set.add(fmt.Sprintf("profit_factor_%d", w), pf)
	}

	for _, w := range cfg.AvgWinLossWindows {
		winSum := rollingSum(winPnL, w)
		winCnt := rollingSum(wins, w)
		lossSum := rollingSum(lossPnL, w)
		lossCnt := rollingSum(lossFlags, w)
		ratio := make([]float64, n)
		for i := range ratio {
			if winCnt[i] == 0 || lossCnt[i] == 0 {
				ratio[i] = math.NaN()
				continue
			}
			avgWin := winSum[i] / winCnt[i]
			avgLoss := math.Abs(lossSum[i] / lossCnt[i])
			if avgLoss == 0 {
				ratio[i] = math.NaN()
				continue
			}
			ratio[i] = avgWin / avgLoss
		}
		set.add(fmt.Sprintf("avg_win_loss_ratio_%d", w), ratio)
	}

	set.add(fmt.Sprintf("expectancy_%d", cfg.ExpectancyWindow), rollingMean(pnl, cfg.ExpectancyWindow, 1))
	set.add("pnl_percentile", stats.PercentileRanks(pnl))

	return set
}

// rollingMean slides a trailing window of size w; positions with fewer than
// minPeriods points report NaN.
func rollingMean(xs []float64, w, minPeriods int) []float64 {
	out := make([]float64, len(xs))
	sum := 0.0
	for i := range xs {
		sum += xs[i]
		if i >= w {
			sum -= xs[i-w]
		}
		count := i + 1
		if count > w {
			count = w
		}
		if count < minPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(count)
	}
	return out
}

// rollingSum slides a trailing window of size w with min-period 1.
func rollingSum(xs []float64, w int) []float64 {
	out := make([]float64, len(xs))
	sum := 0.0
	for i := range xs {
		sum += xs[i]
		if i >= w {
			sum -= xs[i-w]
		}
		out[i] = sum
	}
	return out
}

// rollingStd is the sample standard deviation over a trailing window,
// NaN below minPeriods (floored at 2 since n-1 needs two points).
func rollingStd(xs []float64, w, minPeriods int) []float64 {
	if minPeriods < 2 {
		minPeriods = 2
	}
	out := make([]float64, len(xs))
	sum, sumSq := 0.0, 0.0
	for i := range xs {
		sum += xs[i]
		sumSq += xs[i] * xs[i]
		if i >= w {
			sum -= xs[i-w]
			sumSq -= xs[i-w] * xs[i-w]
		}
		count := i + 1
		if count > w {
			count = w
		}
		if count < minPeriods {
			out[i] = math.NaN()
			continue
		}
		n := float64(count)
		variance := (sumSq - sum*sum/n) / (n - 1)
		if variance < 0 {
			variance = 0
		}
		out[i] = math.Sqrt(variance)
	}
	return out
}

// velocity is (last-first)/count over the trailing window, 0 when the window
// holds fewer than two points.
func velocity(xs []float64, w int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		start := i - w + 1
		if start < 0 {
			start = 0
		}
		count := i - start + 1
		if count < 2 {
			out[i] = 0
			continue
		}
		out[i] = (xs[i] - xs[start]) / float64(count)
	}
	return out
}

// pctChange over a fixed lag, NaN before the lag fills or when the base is 0.
func pctChange(xs []float64, lag int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i < lag || xs[i-lag] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (xs[i] - xs[i-lag]) / xs[i-lag] * 100
	}
	return out
}

func cumulative(xs []float64) []float64 {
	out := make([]float64, len(xs))
	sum := 0.0
	for i, x := range xs {
		sum += x
		out[i] = sum
	}
	return out
}

// diff is the first difference with NaN at position 0.
func diff(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i == 0 || math.IsNaN(xs[i-1]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = xs[i] - xs[i-1]
	}
	return out
}
