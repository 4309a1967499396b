package priorityFee

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"fillergo/lib/drift"

	"go.uber.org/zap"
)

const DEFAULT_PRIORITY_FEE_FREQUENCY_MS = int64(10_000)

const DEFAULT_LOOKBACK_DISTANCE = uint64(50)

// IPriorityFeeStrategy reduces a window of recent per-slot fee samples to a
// single micro-lamport price.
type IPriorityFeeStrategy interface {
	Calculate(samples []PriorityFeeSample) uint64
}

// PriorityFeeSample is one observed prioritization fee paid in a slot.
type PriorityFeeSample struct {
	Slot              uint64
	PrioritizationFee uint64
}

type PriorityFeeMethod string

const (
	PriorityFeeMethodSolana PriorityFeeMethod = "solana"
	PriorityFeeMethodDrift  PriorityFeeMethod = "drift"
)

type DriftMarketInfo struct {
	MarketType  drift.MarketType
	MarketIndex uint16
}

type PriorityFeeSubscriberConfig struct {
	// rpc connection, required for PriorityFeeMethodSolana
	Connection *rpc.Client
	// frequency to refresh priority fee samples, in milliseconds
	FrequencyMs int64
	// addresses the fill transactions will write lock
	Addresses []solana.PublicKey
	// markets to query when using PriorityFeeMethodDrift
	DriftMarkets []DriftMarketInfo
	// strategy used for GetCustomStrategyResult, defaults to average over slots
	CustomStrategy IPriorityFeeStrategy
	PriorityFeeMethod PriorityFeeMethod
	// lookback window in slots; samples older than newest-slot minus this
	// are discarded
	SlotsToCheck uint64
	// url for the cached drift fee endpoint, required for PriorityFeeMethodDrift
	DriftPriorityFeeEndpoint string
	// clamp applied after the multiplier; zero disables the clamp
	MaxFeeMicroLamports uint64
	// multiplier applied before the clamp, defaults to 1.0
	PriorityFeeMultiplier float64

	Percentile uint

	Logger *zap.Logger
}
