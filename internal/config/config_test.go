package config

import (
	"os"
	"path/filepath"
	"testing"

	"trade-audit/internal/outliers"
	"trade-audit/internal/simulator"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("无配置文件时应回退默认值: %v", err)
	}

	if cfg.App.Name != "tradeaudit" {
		t.Fatalf("默认应用名不正确: %s", cfg.App.Name)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("默认日志级别不正确: %s", cfg.Logging.Level)
	}
	if cfg.Features.StreakWindow != 20 {
		t.Fatalf("默认连胜窗口不正确: %d", cfg.Features.StreakWindow)
	}
	if cfg.Outliers.Contamination != 0.05 {
		t.Fatalf("默认污染率不正确: %v", cfg.Outliers.Contamination)
	}
	if cfg.Simulator.Trades != 500 {
		t.Fatalf("默认交易数不正确: %d", cfg.Simulator.Trades)
	}
	if cfg.Export.MaxDataPoints != 100000 {
		t.Fatalf("默认导出点数不正确: %d", cfg.Export.MaxDataPoints)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  name: custom
logging:
  level: debug
features:
  streak_window: 30
outliers:
  contamination: 0.1
database:
  conn_max_lifetime: 45m
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}

	if cfg.App.Name != "custom" {
		t.Fatalf("应用名未覆盖: %s", cfg.App.Name)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("日志级别未覆盖: %s", cfg.Logging.Level)
	}
	if cfg.Features.StreakWindow != 30 {
		t.Fatalf("连胜窗口未覆盖: %d", cfg.Features.StreakWindow)
	}
	if cfg.Outliers.Contamination != 0.1 {
		t.Fatalf("污染率未覆盖: %v", cfg.Outliers.Contamination)
	}
	if got := cfg.Database.ConnMaxLifetime.Minutes(); got != 45 {
		t.Fatalf("连接生命周期未覆盖: %v", got)
	}
	// untouched sections keep their defaults
	if cfg.Simulator.Trades != 500 {
		t.Fatalf("默认交易数不应被影响: %d", cfg.Simulator.Trades)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		return &Config{
			Export:    ExportConfig{MaxDataPoints: 1000},
			Outliers:  outliers.Defaults(),
			Simulator: simulator.Defaults(),
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("默认配置应通过校验: %v", err)
	}

	cfg := base()
	cfg.Export.MaxDataPoints = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("非法导出点数应报错")
	}

	cfg = base()
	cfg.Outliers.Contamination = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("非法污染率应报错")
	}

	cfg = base()
	cfg.Outliers.RRLowerPct = 0.9
	cfg.Outliers.RRUpperPct = 0.1
	if err := cfg.Validate(); err == nil {
		t.Fatal("颠倒的百分位应报错")
	}

	cfg = base()
	cfg.Simulator.Trades = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("非法交易数应报错")
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 500}}
	if got := cfg.ResolveMaxPoints(0); got != 500 {
		t.Fatalf("无覆盖时应取配置值, 实际 %d", got)
	}
	if got := cfg.ResolveMaxPoints(42); got != 42 {
		t.Fatalf("覆盖值应优先, 实际 %d", got)
	}
}
