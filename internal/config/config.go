package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"trade-audit/internal/features"
	"trade-audit/internal/logging"
	"trade-audit/internal/outliers"
	"trade-audit/internal/simulator"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig        `mapstructure:"app"`
	Logging   logging.Config   `mapstructure:"logging"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Features  features.Config  `mapstructure:"features"`
	Outliers  outliers.Config  `mapstructure:"outliers"`
	Simulator simulator.Config `mapstructure:"simulator"`
	Export    ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRADEAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tradeaudit")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	fd := features.Defaults()
	v.SetDefault("features.streak_window", fd.StreakWindow)
	v.SetDefault("features.ma_windows", fd.MAWindows)
	v.SetDefault("features.volatility_windows", fd.VolatilityWindows)
	v.SetDefault("features.win_rate_windows", fd.WinRateWindows)
	v.SetDefault("features.profit_factor_windows", fd.ProfitFactorWindows)
	v.SetDefault("features.avg_win_loss_windows", fd.AvgWinLossWindows)
	v.SetDefault("features.velocity_window", fd.VelocityWindow)
	v.SetDefault("features.momentum_lag", fd.MomentumLag)
	v.SetDefault("features.cv_window", fd.CVWindow)
	v.SetDefault("features.cv_min_periods", fd.CVMinPeriods)
	v.SetDefault("features.sharpe_window", fd.SharpeWindow)
	v.SetDefault("features.sharpe_min_periods", fd.SharpeMinPeriods)
	v.SetDefault("features.expectancy_window", fd.ExpectancyWindow)
	v.SetDefault("features.setup_change_window", fd.SetupChangeWindow)
	v.SetDefault("features.revenge_gap_hours", fd.RevengeGapHours)
	v.SetDefault("features.risk_escalation_pct", fd.RiskEscalationPct)
	v.SetDefault("features.volatility_min_periods", fd.VolatilityMinP)

	od := outliers.Defaults()
	v.SetDefault("outliers.pnl_zscore", od.PnLZScore)
	v.SetDefault("outliers.risk_zscore", od.RiskZScore)
	v.SetDefault("outliers.iqr_multiplier", od.IQRMultiplier)
	v.SetDefault("outliers.rr_lower_pct", od.RRLowerPct)
	v.SetDefault("outliers.rr_upper_pct", od.RRUpperPct)
	v.SetDefault("outliers.risk_escalation_pct", od.RiskEscalationPct)
	v.SetDefault("outliers.high_frequency_pct", od.HighFrequencyPct)
	v.SetDefault("outliers.rapid_fire_minutes", od.RapidFireMinutes)
	v.SetDefault("outliers.revenge_minutes", od.RevengeMinutes)
	v.SetDefault("outliers.repetitive_setups", od.RepetitiveSetups)
	v.SetDefault("outliers.rare_hour_pct", od.RareHourPct)
	v.SetDefault("outliers.core_sessions", od.CoreSessions)
	v.SetDefault("outliers.contamination", od.Contamination)
	v.SetDefault("outliers.seed", od.Seed)

	sd := simulator.Defaults()
	v.SetDefault("simulator.trades", sd.Trades)
	v.SetDefault("simulator.seed", sd.Seed)
	v.SetDefault("simulator.starting_balance", sd.StartingBalance)
	v.SetDefault("simulator.base_risk", sd.BaseRisk)
	v.SetDefault("simulator.start", sd.Start)
	v.SetDefault("simulator.end", sd.End)

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Outliers.Contamination <= 0 || c.Outliers.Contamination >= 1 {
		return fmt.Errorf("outliers.contamination must be within (0, 1)")
	}
	if c.Outliers.RRLowerPct >= c.Outliers.RRUpperPct {
		return fmt.Errorf("outliers.rr_lower_pct must be below outliers.rr_upper_pct")
	}
	if c.Simulator.Trades <= 0 {
		return fmt.Errorf("simulator.trades must be greater than zero")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
