package outliers

// Config holds every detector threshold. Zero values fall back to Defaults
// so a partially overridden config stays usable.
type Config struct {
	PnLZScore         float64  `mapstructure:"pnl_zscore"`
	RiskZScore        float64  `mapstructure:"risk_zscore"`
	IQRMultiplier     float64  `mapstructure:"iqr_multiplier"`
	RRLowerPct        float64  `mapstructure:"rr_lower_pct"`
	RRUpperPct        float64  `mapstructure:"rr_upper_pct"`
	RiskEscalationPct float64  `mapstructure:"risk_escalation_pct"`
	HighFrequencyPct  float64  `mapstructure:"high_frequency_pct"`
	RapidFireMinutes  float64  `mapstructure:"rapid_fire_minutes"`
	RevengeMinutes    float64  `mapstructure:"revenge_minutes"`
	RepetitiveSetups  int      `mapstructure:"repetitive_setups"`
	RareHourPct       float64  `mapstructure:"rare_hour_pct"`
	CoreSessions      []string `mapstructure:"core_sessions"`
	Contamination     float64  `mapstructure:"contamination"`
	Seed              int64    `mapstructure:"seed"`
}

// Defaults are the documented detection thresholds.
func Defaults() Config {
	return Config{
		PnLZScore:         3,
		RiskZScore:        2.5,
		IQRMultiplier:     1.5,
		RRLowerPct:        0.05,
		RRUpperPct:        0.95,
		RiskEscalationPct: 50,
		HighFrequencyPct:  0.95,
		RapidFireMinutes:  30,
		RevengeMinutes:    60,
		RepetitiveSetups:  5,
		RareHourPct:       0.25,
		CoreSessions:      []string{"London", "New York", "Overlap-EU-US"},
		Contamination:     0.05,
		Seed:              42,
	}
}

func (c Config) withDefaults() Config {
	d := Defaults()
	if c.PnLZScore <= 0 {
		c.PnLZScore = d.PnLZScore
	}
	if c.RiskZScore <= 0 {
		c.RiskZScore = d.RiskZScore
	}
	if c.IQRMultiplier <= 0 {
		c.IQRMultiplier = d.IQRMultiplier
	}
	if c.RRLowerPct <= 0 {
		c.RRLowerPct = d.RRLowerPct
	}
	if c.RRUpperPct <= 0 {
		c.RRUpperPct = d.RRUpperPct
	}
	if c.RiskEscalationPct <= 0 {
		c.RiskEscalationPct = d.RiskEscalationPct
	}
	if c.HighFrequencyPct <= 0 {
		c.HighFrequencyPct = d.HighFrequencyPct
	}
	if c.RapidFireMinutes <= 0 {
		c.RapidFireMinutes = d.RapidFireMinutes
	}
	if c.RevengeMinutes <= 0 {
		c.RevengeMinutes = d.RevengeMinutes
	}
	if c.RepetitiveSetups <= 0 {
		c.RepetitiveSetups = d.RepetitiveSetups
	}
	if c.RareHourPct <= 0 {
		c.RareHourPct = d.RareHourPct
	}
	if len(c.CoreSessions) == 0 {
		c.CoreSessions = d.CoreSessions
	}
	if c.Contamination <= 0 {
		c.Contamination = d.Contamination
	}
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
	return c
}
