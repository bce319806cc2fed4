package features

import (
	"fmt"

	"trade-audit/internal/series"
)

// streakColumns derives the streak family in one forward pass, except for the
// rolling max-streak columns which re-scan their trailing window per position
// (the window contents, not cumulative state, determine the answer).
func streakColumns(s *series.Series, cfg Config) *columnSet {
	n := s.Len()
	wins := s.WinFlags()
	pnl := s.PnL()

	streak := make([]float64, n)
	momentum := make([]float64, n)
	current := 0
	for i := 0; i < n; i++ {
		isWin := wins[i] == 1
		switch {
		case i == 0 || (wins[i] != wins[i-1]):
			if isWin {
				current = 1
			} else {
				current = -1
			}
		case isWin:
			current++
		default:
			current--
		}
		streak[i] = float64(current)
		momentum[i] = float64(current) * pnl[i]
	}

	lossFlags := make([]float64, n)
	for i, w := range wins {
		lossFlags[i] = 1 - w
	}

	set := newColumnSet()
	set.add("streak", streak)
	set.add(fmt.Sprintf("longest_win_streak_%d", cfg.StreakWindow), rollingMaxRun(wins, cfg.StreakWindow))
	set.add(fmt.Sprintf("longest_loss_streak_%d", cfg.StreakWindow), rollingMaxRun(lossFlags, cfg.StreakWindow))
	set.add("streak_momentum", momentum)
	set.add("trades_since_win", sinceLast(wins))
	set.add("trades_since_loss", sinceLast(lossFlags))
	return set
}

// rollingMaxRun returns, per position, the longest run of 1s inside the
// trailing window [max(0,i-w+1), i].
func rollingMaxRun(flags []float64, window int) []float64 {
	out := make([]float64, len(flags))
	for i := range flags {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		maxRun, run := 0, 0
		for j := start; j <= i; j++ {
			if flags[j] == 1 {
				run++
				if run > maxRun {
					maxRun = run
				}
			} else {
				run = 0
			}
		}
		out[i] = float64(maxRun)
	}
	return out
}

// sinceLast counts events since the indicator last fired: 0 at every firing
// position, previous+1 otherwise. With no prior hit the counter keeps
// incrementing from the series start, so position 0 without a hit reads 1.
func sinceLast(flags []float64) []float64 {
	out := make([]float64, len(flags))
	count := 0
	for i, f := range flags {
		if f == 1 {
			count = 0
		} else {
			count++
		}
		out[i] = float64(count)
	}
	return out
}
