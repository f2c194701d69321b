package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	yamlContent := []byte(`
storage:
  data_dir: "/tmp/barsim/data"
  sqlite_path: "/tmp/barsim/barsim.db"
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  base_url: "https://paper-api.alpaca.markets"
  data_url: "https://data.alpaca.markets"
logging:
  level: "info"
  format: "json"
gather:
  start_date: "2024-01-01"
  end_date: "2024-06-30"
  batch_size: 10000
  rate_limit_per_min: 200
symbol:
  id: "CU2405"
  minimum_tick_size: 0.01
  multiplier: 10
  margin_rate: 0.1
  commission_rate: 0.0002
  commission_fee: 1.5
  upper_limit: 0.1
  lower_limit: -0.1
simulation:
  symbol_id: "CU2405"
  timeframe: "15m"
  start_date: "2024-01-02"
  end_date: "2024-03-29"
  initial_equity: 100000
  spread_ticks: 1
  slippage_ticks: 1
  margin_requirement: 0.0
  strategy: "macd-cross"
`)

	tmpFile, err := os.CreateTemp("", "barsim-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(yamlContent); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}

	// Clear any environment overrides that might interfere.
	os.Unsetenv("ALPACA_API_KEY")
	os.Unsetenv("ALPACA_API_SECRET")
	os.Unsetenv("APCA_API_KEY_ID")
	os.Unsetenv("APCA_API_SECRET_KEY")
	os.Unsetenv("DATA_DIR")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/barsim/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/barsim/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/barsim/barsim.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/barsim/barsim.db")
	}

	// -- Alpaca --
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "test-key")
	}
	if cfg.Alpaca.APISecret != "test-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q", cfg.Alpaca.APISecret, "test-secret")
	}

	// -- Logging --
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}

	// -- Gather --
	if cfg.Gather.BatchSize != 10000 {
		t.Errorf("Gather.BatchSize = %d, want %d", cfg.Gather.BatchSize, 10000)
	}
	if cfg.Gather.RateLimitPerMin != 200 {
		t.Errorf("Gather.RateLimitPerMin = %d, want %d", cfg.Gather.RateLimitPerMin, 200)
	}

	// -- Symbol --
	if cfg.Symbol.ID != "CU2405" {
		t.Errorf("Symbol.ID = %q, want %q", cfg.Symbol.ID, "CU2405")
	}
	if cfg.Symbol.MinimumTickSize != 0.01 {
		t.Errorf("Symbol.MinimumTickSize = %f, want %f", cfg.Symbol.MinimumTickSize, 0.01)
	}
	if cfg.Symbol.Multiplier != 10 {
		t.Errorf("Symbol.Multiplier = %d, want %d", cfg.Symbol.Multiplier, 10)
	}

	// -- Simulation --
	if cfg.Simulation.Timeframe != "15m" {
		t.Errorf("Simulation.Timeframe = %q, want %q", cfg.Simulation.Timeframe, "15m")
	}
	if cfg.Simulation.InitialEquity != 100000 {
		t.Errorf("Simulation.InitialEquity = %f, want %f", cfg.Simulation.InitialEquity, 100000.0)
	}
	if cfg.Simulation.SpreadTicks != 1 {
		t.Errorf("Simulation.SpreadTicks = %d, want %d", cfg.Simulation.SpreadTicks, 1)
	}
	if cfg.Simulation.Strategy != "macd-cross" {
		t.Errorf("Simulation.Strategy = %q, want %q", cfg.Simulation.Strategy, "macd-cross")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() returned error: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	yamlContent := []byte(`
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
`)

	tmpFile, err := os.CreateTemp("", "barsim-config-env-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(yamlContent); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	tmpFile.Close()

	// Set environment overrides.
	os.Setenv("ALPACA_API_KEY", "env-key")
	os.Setenv("DATA_DIR", "/env/data")
	os.Unsetenv("APCA_API_KEY_ID")
	os.Unsetenv("APCA_API_SECRET_KEY")
	defer os.Unsetenv("ALPACA_API_KEY")
	defer os.Unsetenv("DATA_DIR")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
}

func TestValidateRejectsMissingSymbol(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted an empty config")
	}
}
