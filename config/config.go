package config

import (
	"os"

	"fillergo/priorityFee"

	"github.com/go-errors/errors"
	"gopkg.in/yaml.v3"
)

type GlobalConfig struct {
	Endpoint               string `yaml:"endpoint"`
	WsEndpoint             string `yaml:"wsEndpoint"`
	TxConfirmationEndpoint string `yaml:"txConfirmationEndpoint"`

	KeeperPrivateKey string `yaml:"keeperPrivateKey"`
	SubAccountId     uint16 `yaml:"subAccountId"`

	// companion account service serving user accounts and oracle prices
	AccountsEndpoint string `yaml:"accountsEndpoint"`

	PriorityFeeMethod           priorityFee.PriorityFeeMethod `yaml:"priorityFeeMethod"`
	DriftPriorityFeeEndpoint    string                        `yaml:"driftPriorityFeeEndpoint"`
	MaxPriorityFeeMicroLamports uint64                        `yaml:"maxPriorityFeeMicroLamports"`
	PriorityFeeMultiplier       float64                       `yaml:"priorityFeeMultiplier"`

	ResubTimeoutMs int64 `yaml:"resubTimeoutMs"`

	MetricsPort    uint16 `yaml:"metricsPort"`
	DisableMetrics bool   `yaml:"disableMetrics"`

	UseJito                  bool    `yaml:"useJito"`
	JitoStrategy             string  `yaml:"jitoStrategy"`
	JitoBlockEngineUrl       string  `yaml:"jitoBlockEngineUrl"`
	JitoTipStreamUrl         string  `yaml:"jitoTipStreamUrl"`
	JitoMinBundleTip         uint64  `yaml:"jitoMinBundleTip"`
	JitoMaxBundleTip         uint64  `yaml:"jitoMaxBundleTip"`
	JitoMaxBundleFailCount   uint64  `yaml:"jitoMaxBundleFailCount"`
	JitoTipMultiplier        float64 `yaml:"jitoTipMultiplier"`
	OnlySendDuringJitoLeader bool    `yaml:"onlySendDuringJitoLeader"`

	TxSkipPreflight bool `yaml:"txSkipPreflight"`
	TxMaxRetries    uint `yaml:"txMaxRetries"`

	// which bot to run, "filler" (default) or "jitMaker"
	BotType string `yaml:"botType"`
}

const (
	BotTypeFiller   = "filler"
	BotTypeJitMaker = "jitMaker"
)

type FillerConfig struct {
	BotId                 string   `yaml:"botId"`
	DryRun                bool     `yaml:"dryRun"`
	MarketIndexes         []uint16 `yaml:"marketIndexes"`
	FillerPollingInterval uint64   `yaml:"fillerPollingInterval"`
	RevertOnFailure       bool     `yaml:"revertOnFailure"`
	ConfirmationTimeoutMs int64    `yaml:"confirmationTimeoutMs"`
	MinGasBalanceToFill   float64  `yaml:"minGasBalanceToFill"`

	RebalanceSettledPnlThreshold float64 `yaml:"rebalanceSettledPnlThreshold"`
}

type JitMakerConfig struct {
	BotId             string   `yaml:"botId"`
	DryRun            bool     `yaml:"dryRun"`
	MarketIndexes     []uint16 `yaml:"marketIndexes"`
	SubAccountId      uint16   `yaml:"subAccountId"`
	SpreadBps         uint64   `yaml:"spreadBps"`
	MaxPositionBase   uint64   `yaml:"maxPositionBase"`
	PollingIntervalMs uint64   `yaml:"pollingIntervalMs"`
}

type Config struct {
	Global   GlobalConfig   `yaml:"global"`
	Filler   FillerConfig   `yaml:"filler"`
	JitMaker JitMakerConfig `yaml:"jitMaker"`
}

// LoadConfig reads and validates a yaml config file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, 1)
	}
	var cfg Config
	if err = yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, 1)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Global.Endpoint == "" {
		return errors.New("global.endpoint is required")
	}
	if c.Global.WsEndpoint == "" {
		return errors.New("global.wsEndpoint is required")
	}
	if c.Global.KeeperPrivateKey == "" {
		return errors.New("global.keeperPrivateKey is required")
	}
	if c.Global.AccountsEndpoint == "" {
		return errors.New("global.accountsEndpoint is required")
	}
	if c.Global.UseJito && c.Global.JitoBlockEngineUrl == "" {
		return errors.New("global.jitoBlockEngineUrl is required when useJito is set")
	}
	if c.Global.PriorityFeeMultiplier < 0 {
		return errors.New("global.priorityFeeMultiplier must not be negative")
	}
	switch c.Global.BotType {
	case "", BotTypeFiller:
		if !ValidMinimumGasAmount(c.Filler.MinGasBalanceToFill) {
			return errors.New("filler.minGasBalanceToFill must not be negative")
		}
		if c.Filler.RebalanceSettledPnlThreshold != 0 &&
			!ValidRebalanceSettledPnlThreshold(c.Filler.RebalanceSettledPnlThreshold) {
			return errors.New("filler.rebalanceSettledPnlThreshold must be at least 1")
		}
		if len(c.Filler.MarketIndexes) == 0 {
			return errors.New("filler.marketIndexes must name at least one market")
		}
	case BotTypeJitMaker:
		if len(c.JitMaker.MarketIndexes) == 0 {
			return errors.New("jitMaker.marketIndexes must name at least one market")
		}
	default:
		return errors.Errorf("unknown botType %q", c.Global.BotType)
	}
	return nil
}

func ValidMinimumGasAmount(amount float64) bool {
	return amount >= 0
}

func ValidRebalanceSettledPnlThreshold(threshold float64) bool {
	return threshold >= 1
}
