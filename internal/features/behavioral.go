package features

import (
	"fmt"
	"math"
	"time"

	"trade-audit/internal/series"
)

// behavioralColumns derives the event-to-event timing, repetition, and
// calendar encodings. Calendar math uses the trade timestamps as recorded;
// day grouping is by UTC calendar date.
func behavioralColumns(s *series.Series, cfg Config) *columnSet {
	n := s.Len()

	perDay := make(map[string]float64, n)
	for i := 0; i < n; i++ {
		perDay[dayKey(s.At(i).Timestamp)]++
	}

	tradesPerDay := make([]float64, n)
	hoursSince := make([]float64, n)
	revenge := make([]float64, n)
	riskChange := make([]float64, n)
	escalation := make([]float64, n)
	sameSession := make([]float64, n)
	setupChanged := make([]float64, n)

	for i := 0; i < n; i++ {
		t := s.At(i)
		tradesPerDay[i] = perDay[dayKey(t.Timestamp)]

		if i == 0 {
			hoursSince[i] = math.NaN()
			riskChange[i] = math.NaN()
			continue
		}

		prev := s.At(i - 1)
		hoursSince[i] = t.Timestamp.Sub(prev.Timestamp).Hours()

		prevRisk := prev.RiskAmount.InexactFloat64()
		if prevRisk == 0 {
			riskChange[i] = math.NaN()
		} else {
			riskChange[i] = (t.RiskAmount.InexactFloat64() - prevRisk) / prevRisk * 100
		}

		if prev.Outcome == series.Loss && hoursSince[i] < cfg.RevengeGapHours {
			revenge[i] = 1
		}
		if prev.Outcome == series.Loss && riskChange[i] > cfg.RiskEscalationPct {
			escalation[i] = 1
		}
		if t.Session == prev.Session {
			sameSession[i] = 1
		}
		if t.SetupType != prev.SetupType {
			setupChanged[i] = 1
		}
	}

	set := newColumnSet()
	set.add("trades_per_day", tradesPerDay)
	set.add("hours_since_last", hoursSince)
	set.add("revenge_trade", revenge)
	set.add("risk_change_pct", riskChange)
	set.add("risk_escalation", escalation)
	set.add("same_session", sameSession)
	set.add(fmt.Sprintf("setup_changes_%d", cfg.SetupChangeWindow), rollingSum(setupChanged, cfg.SetupChangeWindow))

	addTemporal(set, s)
	return set
}

// addTemporal appends the cyclical and calendar-boundary encodings. Sin/cos
// pairs keep wrapping values adjacent in the encoded space (23:00 is close
// to 00:00), which a raw linear encoding would not.
func addTemporal(set *columnSet, s *series.Series) {
	n := s.Len()

	hour := make([]float64, n)
	hourSin := make([]float64, n)
	hourCos := make([]float64, n)
	weekday := make([]float64, n)
	weekdaySin := make([]float64, n)
	weekdayCos := make([]float64, n)
	monthSin := make([]float64, n)
	monthCos := make([]float64, n)
	isMonday := make([]float64, n)
	isFriday := make([]float64, n)
	monthStart := make([]float64, n)
	monthEnd := make([]float64, n)

	for i := 0; i < n; i++ {
		ts := s.At(i).Timestamp

		h := float64(ts.Hour())
		hour[i] = h
		hourSin[i] = math.Sin(2 * math.Pi * h / 24)
		hourCos[i] = math.Cos(2 * math.Pi * h / 24)

		// Monday=0 .. Sunday=6
		wd := float64((int(ts.Weekday()) + 6) % 7)
		weekday[i] = wd
		weekdaySin[i] = math.Sin(2 * math.Pi * wd / 7)
		weekdayCos[i] = math.Cos(2 * math.Pi * wd / 7)
		if wd == 0 {
			isMonday[i] = 1
		}
		if wd == 4 {
			isFriday[i] = 1
		}

		m := float64(ts.Month())
		monthSin[i] = math.Sin(2 * math.Pi * m / 12)
		monthCos[i] = math.Cos(2 * math.Pi * m / 12)

		day := ts.Day()
		if day <= 3 {
			monthStart[i] = 1
		}
		if day >= daysInMonth(ts)-2 {
			monthEnd[i] = 1
		}
	}

	set.add("hour", hour)
	set.add("hour_sin", hourSin)
	set.add("hour_cos", hourCos)
	set.add("weekday", weekday)
	set.add("weekday_sin", weekdaySin)
	set.add("weekday_cos", weekdayCos)
	set.add("month_sin", monthSin)
	set.add("month_cos", monthCos)
	set.add("is_monday", isMonday)
	set.add("is_friday", isFriday)
	set.add("is_month_start", monthStart)
	set.add("is_month_end", monthEnd)
}

func dayKey(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}

func daysInMonth(ts time.Time) int {
	first := time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, ts.Location())
	return first.AddDate(0, 1, -1).Day()
}
