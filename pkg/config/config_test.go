package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	e := c.Engine
	if e.FastEMA != 9 || e.SlowEMA != 21 || e.ATRLen != 14 || e.ADXLen != 14 || !e.UseADX {
		t.Fatalf("unexpected periods: %+v", e)
	}
	if e.Confidence.Min != 60 || e.Confidence.Max != 90 {
		t.Fatalf("unexpected band: %+v", e.Confidence)
	}
	if e.Filter.MinGainPct != 3 || e.Filter.MinConfidence != 65 || e.Filter.FilteredFields != "keep" {
		t.Fatalf("unexpected filter: %+v", e.Filter)
	}
	if len(e.Fibonacci.Ratios) != 3 || e.Fibonacci.Ratios[1] != 0.618 {
		t.Fatalf("unexpected ratios: %v", e.Fibonacci.Ratios)
	}
	if c.Redis.PoolSize != 10 || c.Redis.L1TTL != 30*time.Second {
		t.Fatalf("unexpected redis: %+v", c.Redis)
	}
	if c.Modes.Swing.Timeframe != "4h" || c.Modes.Swing.TargetMultiplier != 1.2 || c.Modes.Swing.ConfidenceBase != 68 {
		t.Fatalf("unexpected swing: %+v", c.Modes.Swing)
	}
	if c.Modes.Positional.Timeframe != "1d" || c.Modes.Positional.TargetMultiplier != 2.0 || c.Modes.Positional.ChangeWindow != 2 {
		t.Fatalf("unexpected positional: %+v", c.Modes.Positional)
	}
	if len(c.Pairs) != len(DefaultPairs) {
		t.Fatalf("expected %d default pairs, got %d", len(DefaultPairs), len(c.Pairs))
	}
	if c.Scheduler.Interval != 15*time.Minute {
		t.Fatalf("unexpected interval %v", c.Scheduler.Interval)
	}
	if c.Candles.Throttle != 800*time.Millisecond {
		t.Fatalf("unexpected throttle %v", c.Candles.Throttle)
	}
}

func TestParseOverridesKeepOtherDefaults(t *testing.T) {
	doc := `
environment: prod
pairs: [BTC, ETH]
engine:
  target_strategy: swing_fibonacci
  use_adx: false
modes:
  swing:
    target_multiplier: 1.5
`
	c, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c.Engine.TargetStrategy != "swing_fibonacci" || c.Engine.UseADX {
		t.Fatalf("overrides not applied: %+v", c.Engine)
	}
	if c.Modes.Swing.TargetMultiplier != 1.5 || c.Modes.Swing.ConfidenceBase != 68 {
		t.Fatalf("unexpected swing: %+v", c.Modes.Swing)
	}
	if strings.Join(c.Pairs, ",") != "BTC,ETH" {
		t.Fatalf("unexpected pairs %v", c.Pairs)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"fast not shorter", "engine:\n  fast_ema: 21\n  slow_ema: 9\n"},
		{"band inverted", "engine:\n  confidence:\n    min: 95\n    max: 90\n"},
		{"unknown strategy", "engine:\n  target_strategy: moon\n"},
		{"unknown filter policy", "engine:\n  filter:\n    filtered_fields: drop\n"},
		{"gain bounds inverted", "modes:\n  swing:\n    min_gain_pct: 40\n"},
		{"bad timeframe", "modes:\n  positional:\n    timeframe: 3d\n"},
		{"kafka without brokers", "sinks:\n  kafka: true\n"},
		{"unknown exchange", "candles:\n  exchanges: [binance]\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Parse([]byte(tc.doc))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if err := c.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	env := map[string]string{
		"PAIRS":           "btc, eth ,,sol",
		"KAFKA_BROKERS":   "k1:9092,k2:9092",
		"SERVER_PORT":     "9090",
		"LOG_LEVEL":       "debug",
		"OPERATOR_SECRET": "s3cret",
	}
	if err := c.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if strings.Join(c.Pairs, "|") != "btc|eth|sol" {
		t.Fatalf("unexpected pairs %v", c.Pairs)
	}
	if len(c.Kafka.Brokers) != 2 || c.Server.Port != 9090 || c.Log.Level != "debug" || c.Server.OperatorSecret != "s3cret" {
		t.Fatalf("env not applied: %+v", c)
	}

	env["SERVER_PORT"] = "eighty"
	if err := c.applyEnv(func(k string) string { return env[k] }); err == nil {
		t.Fatalf("expected error for bad port")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("environment: test\npairs: [BTC]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Environment != "test" || len(c.Pairs) != 1 {
		t.Fatalf("unexpected config %+v", c)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
