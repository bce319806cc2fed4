// Package simulator produces plausible synthetic trade logs for exercising
// the analytics pipeline. Output is deterministic per seed.
package simulator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"trade-audit/internal/series"
)

// Config tunes the generator. Zero values fall back to Defaults.
type Config struct {
	Trades          int     `mapstructure:"trades"`
	Seed            int64   `mapstructure:"seed"`
	StartingBalance float64 `mapstructure:"starting_balance"`
	BaseRisk        float64 `mapstructure:"base_risk"`
	Start           string  `mapstructure:"start"`
	End             string  `mapstructure:"end"`
}

// Defaults mirror a three-year, 500-trade retail log.
func Defaults() Config {
	return Config{
		Trades:          500,
		Seed:            42,
		StartingBalance: 10000,
		BaseRisk:        100,
		Start:           "2023-01-01",
		End:             "2025-12-31",
	}
}

func (c Config) withDefaults() Config {
	d := Defaults()
	if c.Trades <= 0 {
		c.Trades = d.Trades
	}
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
	if c.StartingBalance <= 0 {
		c.StartingBalance = d.StartingBalance
	}
	if c.BaseRisk <= 0 {
		c.BaseRisk = d.BaseRisk
	}
	if c.Start == "" {
		c.Start = d.Start
	}
	if c.End == "" {
		c.End = d.End
	}
	return c
}

var (
	instruments = []string{"EUR/USD", "GBP/USD", "USD/JPY", "AUD/USD", "NZD/USD", "USD/CAD", "EUR/GBP", "XAU/USD", "NAS100", "SPX500"}
	setupTypes  = []string{"Breakout", "Reversal", "Trend Following", "Range Trading", "News Trading", "Scalping", "Swing"}
	rrChoices   = []float64{1.0, 1.5, 2.0, 2.5, 3.0}

	setupWinRates = map[string]float64{
		"Breakout":        0.48,
		"Reversal":        0.45,
		"Trend Following": 0.58,
		"Range Trading":   0.52,
		"News Trading":    0.40,
		"Scalping":        0.55,
		"Swing":           0.50,
	}

	sessionMultipliers = map[string]float64{
		"Sydney":          0.92,
		"Tokyo":           0.95,
		"London":          1.08,
		"New York":        1.05,
		"Overlap-EU-US":   1.12,
		"Overlap-Asia-EU": 1.03,
	}
)

// Generate builds a seeded synthetic trade log: session chosen by hour of
// day, per-setup win rates with session multipliers, mean reversion over the
// trailing ten outcomes, and a running balance/peak from the starting
// capital. Weekends are skipped.
func Generate(cfg Config, logger zerolog.Logger) ([]series.Trade, error) {
	cfg = cfg.withDefaults()
	log := logger.With().Str("component", "simulator").Logger()

	start, err := time.Parse("2006-01-02", cfg.Start)
	if err != nil {
		return nil, fmt.Errorf("parse start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", cfg.End)
	if err != nil {
		return nil, fmt.Errorf("parse end date: %w", err)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("start %s must precede end %s", cfg.Start, cfg.End)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	spanDays := end.Sub(start).Hours() / 24

	balance := cfg.StartingBalance
	peak := balance
	trades := make([]series.Trade, 0, cfg.Trades)

	for i := 0; i < cfg.Trades; i++ {
		day := start.AddDate(0, 0, int(float64(i)*spanDays/float64(cfg.Trades)))
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, 1)
		}

		hour := rng.Intn(24)
		minute := rng.Intn(60)
		session := sessionForHour(hour)
		setup := setupTypes[rng.Intn(len(setupTypes))]
		instrument := instruments[rng.Intn(len(instruments))]
		rr := rrChoices[rng.Intn(len(rrChoices))]
		risk := cfg.BaseRisk * (0.8 + rng.Float64()*0.4)

		winProb := setupWinRates[setup] * sessionMultipliers[session]
		if winProb > 0.75 {
			winProb = 0.75
		}

		// mean reversion against hot or cold runs
		if i > 10 {
			recentWins := 0
			for _, t := range trades[len(trades)-10:] {
				if t.IsWin() {
					recentWins++
				}
			}
			if recentWins > 7 {
				winProb *= 0.85
			} else if recentWins < 3 {
				winProb *= 1.15
			}
		}

		outcome := series.Loss
		pnl := -risk
		if rng.Float64() < winProb {
			outcome = series.Win
			pnl = risk * rr
		}

		balance += pnl
		if balance > peak {
			peak = balance
		}

		trades = append(trades, series.Trade{
			ID:          int64(i + 1),
			Timestamp:   time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC),
			Outcome:     outcome,
			PnL:         decimal.NewFromFloat(pnl).Round(2),
			Balance:     decimal.NewFromFloat(balance).Round(2),
			PeakBalance: decimal.NewFromFloat(peak).Round(2),
			RiskAmount:  decimal.NewFromFloat(risk).Round(2),
			RiskReward:  decimal.NewFromFloat(rr),
			SetupType:   setup,
			Session:     session,
			Instrument:  instrument,
		})
	}

	log.Info().Int("trades", len(trades)).Int64("seed", cfg.Seed).Msg("synthetic trade log generated")
	return trades, nil
}

func sessionForHour(hour int) string {
	switch {
	case hour >= 22 || hour < 6:
		return "Sydney"
	case hour < 9:
		return "Tokyo"
	case hour < 13:
		return "Overlap-Asia-EU"
	case hour < 16:
		return "London"
	case hour < 18:
		return "Overlap-EU-US"
	default:
		return "New York"
	}
}
