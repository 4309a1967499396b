package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Global: GlobalConfig{
			Endpoint:         "http://localhost:8899",
			WsEndpoint:       "ws://localhost:8900",
			KeeperPrivateKey: "keeper.json",
			AccountsEndpoint: "http://localhost:8080",
		},
		Filler: FillerConfig{
			BotId:         "filler",
			MarketIndexes: []uint16{0},
		},
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"endpoint", func(cfg *Config) { cfg.Global.Endpoint = "" }},
		{"wsEndpoint", func(cfg *Config) { cfg.Global.WsEndpoint = "" }},
		{"keeperPrivateKey", func(cfg *Config) { cfg.Global.KeeperPrivateKey = "" }},
		{"accountsEndpoint", func(cfg *Config) { cfg.Global.AccountsEndpoint = "" }},
		{"marketIndexes", func(cfg *Config) { cfg.Filler.MarketIndexes = nil }},
		{"jitoBlockEngineUrl", func(cfg *Config) { cfg.Global.UseJito = true }},
		{"priorityFeeMultiplier", func(cfg *Config) { cfg.Global.PriorityFeeMultiplier = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfig(t *testing.T) {
	raw := `
global:
  endpoint: http://localhost:8899
  wsEndpoint: ws://localhost:8900
  keeperPrivateKey: keeper.json
  accountsEndpoint: http://localhost:8080
  useJito: true
  jitoStrategy: hybrid
  jitoBlockEngineUrl: https://block-engine.example
  metricsPort: 9464
filler:
  botId: filler
  dryRun: true
  marketIndexes: [0, 1, 2]
  fillerPollingInterval: 6000
  confirmationTimeoutMs: 60000
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8899", cfg.Global.Endpoint)
	assert.True(t, cfg.Global.UseJito)
	assert.Equal(t, "hybrid", cfg.Global.JitoStrategy)
	assert.Equal(t, uint16(9464), cfg.Global.MetricsPort)
	assert.True(t, cfg.Filler.DryRun)
	assert.Equal(t, []uint16{0, 1, 2}, cfg.Filler.MarketIndexes)
	assert.Equal(t, uint64(6_000), cfg.Filler.FillerPollingInterval)
	assert.Equal(t, int64(60_000), cfg.Filler.ConfirmationTimeoutMs)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
