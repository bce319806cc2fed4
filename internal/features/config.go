package features

// Config sets the window sizes and behavioral thresholds for the feature
// producers. Zero values fall back to Defaults at build time.
type Config struct {
	StreakWindow        int   `mapstructure:"streak_window"`
	MAWindows           []int `mapstructure:"ma_windows"`
	VolatilityWindows   []int `mapstructure:"volatility_windows"`
	WinRateWindows      []int `mapstructure:"win_rate_windows"`
	ProfitFactorWindows []int `mapstructure:"profit_factor_windows"`
	AvgWinLossWindows   []int `mapstructure:"avg_win_loss_windows"`

	VelocityWindow   int `mapstructure:"velocity_window"`
	MomentumLag      int `mapstructure:"momentum_lag"`
	CVWindow         int `mapstructure:"cv_window"`
	CVMinPeriods     int `mapstructure:"cv_min_periods"`
	SharpeWindow     int `mapstructure:"sharpe_window"`
	SharpeMinPeriods int `mapstructure:"sharpe_min_periods"`
	ExpectancyWindow int `mapstructure:"expectancy_window"`

	SetupChangeWindow int     `mapstructure:"setup_change_window"`
	RevengeGapHours   float64 `mapstructure:"revenge_gap_hours"`
	RiskEscalationPct float64 `mapstructure:"risk_escalation_pct"`
	VolatilityMinP    int     `mapstructure:"volatility_min_periods"`
}

// Defaults mirror the documented window families.
func Defaults() Config {
	return Config{
		StreakWindow:        20,
		MAWindows:           []int{5, 10, 20, 50},
		VolatilityWindows:   []int{10, 20, 50},
		WinRateWindows:      []int{10, 20, 50},
		ProfitFactorWindows: []int{20, 50},
		AvgWinLossWindows:   []int{20},
		VelocityWindow:      5,
		MomentumLag:         10,
		CVWindow:            20,
		CVMinPeriods:        5,
		SharpeWindow:        20,
		SharpeMinPeriods:    5,
		ExpectancyWindow:    20,
		SetupChangeWindow:   10,
		RevengeGapHours:     1,
		RiskEscalationPct:   20,
		VolatilityMinP:      2,
	}
}

func (c Config) withDefaults() Config {
	d := Defaults()
	if c.StreakWindow <= 0 {
		c.StreakWindow = d.StreakWindow
	}
	if len(c.MAWindows) == 0 {
		c.MAWindows = d.MAWindows
	}
	if len(c.VolatilityWindows) == 0 {
		c.VolatilityWindows = d.VolatilityWindows
	}
	if len(c.WinRateWindows) == 0 {
		c.WinRateWindows = d.WinRateWindows
	}
	if len(c.ProfitFactorWindows) == 0 {
		c.ProfitFactorWindows = d.ProfitFactorWindows
	}
	if len(c.AvgWinLossWindows) == 0 {
		c.AvgWinLossWindows = d.AvgWinLossWindows
	}
	if c.VelocityWindow <= 0 {
		c.VelocityWindow = d.VelocityWindow
	}
	if c.MomentumLag <= 0 {
		c.MomentumLag = d.MomentumLag
	}
	if c.CVWindow <= 0 {
		c.CVWindow = d.CVWindow
	}
	if c.CVMinPeriods <= 0 {
		c.CVMinPeriods = d.CVMinPeriods
	}
	if c.SharpeWindow <= 0 {
		c.SharpeWindow = d.SharpeWindow
	}
	if c.SharpeMinPeriods <= 0 {
		c.SharpeMinPeriods = d.SharpeMinPeriods
	}
	if c.ExpectancyWindow <= 0 {
		c.ExpectancyWindow = d.ExpectancyWindow
	}
	if c.SetupChangeWindow <= 0 {
		c.SetupChangeWindow = d.SetupChangeWindow
	}
	if c.RevengeGapHours <= 0 {
		c.RevengeGapHours = d.RevengeGapHours
	}
	if c.RiskEscalationPct <= 0 {
		c.RiskEscalationPct = d.RiskEscalationPct
	}
	if c.VolatilityMinP <= 0 {
		c.VolatilityMinP = d.VolatilityMinP
	}
	return c
}
