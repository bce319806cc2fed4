// Package outliers flags anomalous trades in a finished feature table.
// Each detector group is an independent predicate; the report is the union
// of all groups, deduplicated by (trade id, kind) and deterministically
// ordered.
package outliers

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"trade-audit/internal/features"
	"trade-audit/internal/series"
	"trade-audit/internal/stats"
)

// Kind names one detector group.
type Kind string

const (
	KindPnLZScore        Kind = "pnl_zscore"
	KindPnLIQR           Kind = "pnl_iqr"
	KindRiskAmount       Kind = "risk_amount"
	KindRiskReward       Kind = "risk_reward"
	KindRiskEscalation   Kind = "risk_escalation"
	KindHighFrequencyDay Kind = "high_frequency_day"
	KindRapidFire        Kind = "rapid_fire"
	KindRevengeTrading   Kind = "revenge_trading"
	KindRepetitiveSetup  Kind = "repetitive_setup"
	KindUnusualHours     Kind = "unusual_hours"
	KindWeekendTrading   Kind = "weekend_trading"
	KindUnusualSession   Kind = "unusual_session"
	KindMultivariate     Kind = "multivariate_anomaly"
)

// Record is one flagged (trade, kind) pair. A trade may carry several kinds.
type Record struct {
	TradeID int64
	Kind    Kind
}

// Scorer labels each feature-matrix row as inlier (false) or outlier (true).
// The concrete algorithm is swappable; rows must map 1:1 to the input.
type Scorer interface {
	Score(matrix [][]float64) ([]bool, error)
}

// Detector runs every detection group over a feature table.
type Detector struct {
	cfg    Config
	scorer Scorer
	logger zerolog.Logger
}

// NewDetector wires thresholds and the multivariate scorer. A nil scorer
// disables the multivariate group only.
func NewDetector(cfg Config, scorer Scorer, logger zerolog.Logger) *Detector {
	return &Detector{
		cfg:    cfg.withDefaults(),
		scorer: scorer,
		logger: logger.With().Str("component", "outliers").Logger(),
	}
}

// Detect evaluates all groups and returns the deduplicated report sorted by
// trade id, then kind.
func (d *Detector) Detect(tbl *features.Table) ([]Record, error) {
	var records []Record
	records = append(records, d.pnlOutliers(tbl)...)
	records = append(records, d.riskOutliers(tbl)...)
	records = append(records, d.behavioralOutliers(tbl)...)
	records = append(records, d.temporalOutliers(tbl)...)

	multivariate, err := d.multivariateOutliers(tbl)
	if err != nil {
		return nil, err
	}
	records = append(records, multivariate...)

	records = dedupe(records)
	d.logger.Info().Int("flagged", len(records)).Msg("outlier detection complete")
	return records, nil
}

// pnlOutliers runs the z-score and IQR detectors over pnl. The two can
// disagree; both verdicts are reported, not reconciled.
func (d *Detector) pnlOutliers(tbl *features.Table) []Record {
	pnl := tbl.Series().PnL()
	var out []Record

	z := stats.ZScores(pnl)
	for i := range pnl {
		if math.Abs(z[i]) > d.cfg.PnLZScore {
			out = append(out, Record{tbl.Series().At(i).ID, KindPnLZScore})
		}
	}

	q1, q3, iqr := stats.Quartiles(pnl)
	lo := q1 - d.cfg.IQRMultiplier*iqr
	hi := q3 + d.cfg.IQRMultiplier*iqr
	for i, v := range pnl {
		if v < lo || v > hi {
			out = append(out, Record{tbl.Series().At(i).ID, KindPnLIQR})
		}
	}
	return out
}

func (d *Detector) riskOutliers(tbl *features.Table) []Record {
	s := tbl.Series()
	risk := s.RiskAmounts()
	rr := s.RiskRewards()
	var out []Record

	z := stats.ZScores(risk)
	for i := range risk {
		if math.Abs(z[i]) > d.cfg.RiskZScore {
			out = append(out, Record{s.At(i).ID, KindRiskAmount})
		}
	}

	lo := stats.Percentile(rr, d.cfg.RRLowerPct)
	hi := stats.Percentile(rr, d.cfg.RRUpperPct)
	for i, v := range rr {
		if v < lo || v > hi {
			out = append(out, Record{s.At(i).ID, KindRiskReward})
		}
	}

	change := tbl.MustColumn("risk_change_pct")
	for i, v := range change {
		if !math.IsNaN(v) && v > d.cfg.RiskEscalationPct {
			out = append(out, Record{s.At(i).ID, KindRiskEscalation})
		}
	}
	return out
}

func (d *Detector) behavioralOutliers(tbl *features.Table) []Record {
	s := tbl.Series()
	perDay := tbl.MustColumn("trades_per_day")
	gapHours := tbl.MustColumn("hours_since_last")
	var out []Record

	threshold := stats.Percentile(dailyCounts(s), d.cfg.HighFrequencyPct)
	for i, v := range perDay {
		if v > threshold {
			out = append(out, Record{s.At(i).ID, KindHighFrequencyDay})
		}
	}

	for i, h := range gapHours {
		if math.IsNaN(h) {
			continue
		}
		minutes := h * 60
		if minutes < d.cfg.RapidFireMinutes {
			out = append(out, Record{s.At(i).ID, KindRapidFire})
		}
		if minutes < d.cfg.RevengeMinutes && i > 0 && !s.At(i-1).IsWin() {
			out = append(out, Record{s.At(i).ID, KindRevengeTrading})
		}
	}

	run := 0
	for i := 0; i < s.Len(); i++ {
		if i > 0 && s.At(i).SetupType == s.At(i-1).SetupType {
			run++
		} else {
			run = 1
		}
		if run >= d.cfg.RepetitiveSetups {
			out = append(out, Record{s.At(i).ID, KindRepetitiveSetup})
		}
	}
	return out
}

func (d *Detector) temporalOutliers(tbl *features.Table) []Record {
	s := tbl.Series()
	hour := tbl.MustColumn("hour")
	weekday := tbl.MustColumn("weekday")
	var out []Record

	counts := make(map[float64]float64)
	for _, h := range hour {
		counts[h]++
	}
	freqs := make([]float64, 0, len(counts))
	for _, c := range counts {
		freqs = append(freqs, c)
	}
	rare := stats.Percentile(freqs, d.cfg.RareHourPct)
	for i, h := range hour {
		if counts[h] < rare {
			out = append(out, Record{s.At(i).ID, KindUnusualHours})
		}
	}

	// weekday uses Monday=0, so 5 and 6 are the weekend
	for i, wd := range weekday {
		if wd >= 5 {
			out = append(out, Record{s.At(i).ID, KindWeekendTrading})
		}
	}

	core := make(map[string]struct{}, len(d.cfg.CoreSessions))
	for _, sess := range d.cfg.CoreSessions {
		core[sess] = struct{}{}
	}
	for i := 0; i < s.Len(); i++ {
		if _, ok := core[s.At(i).Session]; !ok {
			out = append(out, Record{s.At(i).ID, KindUnusualSession})
		}
	}
	return out
}

// multivariateOutliers scores {pnl, risk, rr, hour, weekday} with the
// pluggable anomaly scorer. Rows with non-finite features are excluded from
// scoring rather than aborting the run.
func (d *Detector) multivariateOutliers(tbl *features.Table) ([]Record, error) {
	if d.scorer == nil {
		return nil, nil
	}

	s := tbl.Series()
	cols := [][]float64{
		s.PnL(),
		s.RiskAmounts(),
		s.RiskRewards(),
		tbl.MustColumn("hour"),
		tbl.MustColumn("weekday"),
	}

	var matrix [][]float64
	var rowIdx []int
	for i := 0; i < s.Len(); i++ {
		row := make([]float64, len(cols))
		finite := true
		for j, col := range cols {
			if math.IsNaN(col[i]) || math.IsInf(col[i], 0) {
				finite = false
				break
			}
			row[j] = col[i]
		}
		if !finite {
			continue
		}
		matrix = append(matrix, row)
		rowIdx = append(rowIdx, i)
	}
	if len(matrix) == 0 {
		return nil, nil
	}

	labels, err := d.scorer.Score(matrix)
	if err != nil {
		return nil, err
	}

	var out []Record
	for k, flagged := range labels {
		if flagged {
			out = append(out, Record{s.At(rowIdx[k]).ID, KindMultivariate})
		}
	}
	return out, nil
}

// dailyCounts returns one trade count per distinct UTC calendar day. The
// high-frequency percentile is taken over days, not over trades.
func dailyCounts(s *series.Series) []float64 {
	counts := make(map[string]float64)
	var order []string
	for i := 0; i < s.Len(); i++ {
		day := s.At(i).Timestamp.UTC().Format("2006-01-02")
		if _, seen := counts[day]; !seen {
			order = append(order, day)
		}
		counts[day]++
	}
	out := make([]float64, 0, len(order))
	for _, day := range order {
		out = append(out, counts[day])
	}
	return out
}

func dedupe(records []Record) []Record {
	type key struct {
		id   int64
		kind Kind
	}
	seen := make(map[key]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		k := key{r.TradeID, r.Kind}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TradeID != out[j].TradeID {
			return out[i].TradeID < out[j].TradeID
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
