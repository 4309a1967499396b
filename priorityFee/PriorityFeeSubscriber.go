package priorityFee

import (
	"context"
	"sync"
	"time"

	"fillergo/utils"

	"github.com/gagliardetto/solana-go"
	"github.com/go-errors/errors"
	"github.com/go-resty/resty/v2"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// PriorityFeeSubscriber periodically samples recent prioritization fees for
// the addresses a filler write-locks and keeps the latest strategy results
// available for transaction building. Strategy results are refreshed
// atomically; readers never see a half-updated window.
type PriorityFeeSubscriber struct {
	connection            *rpc.Client
	restyClient           *resty.Client
	frequencyMs           int64
	addresses             solana.PublicKeySlice
	driftMarkets          []DriftMarketInfo
	customStrategy        IPriorityFeeStrategy
	averageStrategy       *AverageOverSlotsStrategy
	maxStrategy           *MaxOverSlotsStrategy
	priorityFeeMethod     PriorityFeeMethod
	lookbackDistance      uint64
	maxFeeMicroLamports   uint64
	priorityFeeMultiplier float64

	driftPriorityFeeEndpoint string

	latestPriorityFee        uint64
	lastCustomStrategyResult uint64
	lastAvgStrategyResult    uint64
	lastMaxStrategyResult    uint64
	lastSlotSeen             uint64
	percentile               uint

	logger  *zap.Logger
	cancel  context.CancelFunc
	wait    sync.WaitGroup
	mxState *sync.RWMutex
}

func CreatePriorityFeeSubscriber(config PriorityFeeSubscriberConfig) (*PriorityFeeSubscriber, error) {
	customStrategy := config.CustomStrategy
	if customStrategy == nil {
		customStrategy = &AverageOverSlotsStrategy{}
	}
	slotsToCheck := DEFAULT_LOOKBACK_DISTANCE
	if config.SlotsToCheck > 0 {
		slotsToCheck = config.SlotsToCheck
	}
	frequencyMs := DEFAULT_PRIORITY_FEE_FREQUENCY_MS
	if config.FrequencyMs > 0 {
		frequencyMs = config.FrequencyMs
	}

	subscriber := &PriorityFeeSubscriber{
		connection:            config.Connection,
		restyClient:           resty.New(),
		frequencyMs:           frequencyMs,
		addresses:             config.Addresses,
		driftMarkets:          config.DriftMarkets,
		customStrategy:        customStrategy,
		averageStrategy:       &AverageOverSlotsStrategy{},
		maxStrategy:           &MaxOverSlotsStrategy{},
		lookbackDistance:      slotsToCheck,
		priorityFeeMultiplier: utils.TT(config.PriorityFeeMultiplier > 0.0, config.PriorityFeeMultiplier, 1.0),
		priorityFeeMethod:     config.PriorityFeeMethod,
		maxFeeMicroLamports:   config.MaxFeeMicroLamports,
		percentile:            config.Percentile,
		logger:                config.Logger,
		mxState:               &sync.RWMutex{},
	}
	switch config.PriorityFeeMethod {
	case PriorityFeeMethodDrift:
		if config.DriftPriorityFeeEndpoint == "" {
			return nil, errors.New("drift priority fee endpoint must be provided to use the drift fee method")
		}
		subscriber.driftPriorityFeeEndpoint = config.DriftPriorityFeeEndpoint
	case PriorityFeeMethodSolana:
		if config.Connection == nil {
			return nil, errors.New("connection must be provided to use the solana priority fee API")
		}
	default:
		return nil, errors.Errorf("unknown priority fee method %s", config.PriorityFeeMethod)
	}
	return subscriber, nil
}

func (p *PriorityFeeSubscriber) Subscribe(ctx context.Context) {
	if p.cancel != nil {
		return
	}
	p.load(ctx)
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wait.Add(1)
	go func() {
		defer p.wait.Done()
		ticker := time.NewTicker(time.Millisecond * time.Duration(p.frequencyMs))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.load(ctx)
			}
		}
	}()
}

func (p *PriorityFeeSubscriber) Unsubscribe() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
		p.wait.Wait()
	}
}

func (p *PriorityFeeSubscriber) load(ctx context.Context) {
	switch p.priorityFeeMethod {
	case PriorityFeeMethodSolana:
		p.loadForSolana(ctx)
	case PriorityFeeMethodDrift:
		p.loadForDrift()
	}
}

func (p *PriorityFeeSubscriber) loadForSolana(ctx context.Context) {
	samples, err := FetchSolanaPriorityFee(
		ctx,
		p.connection,
		p.lookbackDistance,
		p.addresses,
		p.percentile,
	)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("failed to fetch prioritization fees", zap.Error(err))
		}
		return
	}
	if len(samples) == 0 {
		return
	}

	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.latestPriorityFee = samples[0].PrioritizationFee
	p.lastSlotSeen = samples[0].Slot
	p.lastAvgStrategyResult = p.averageStrategy.Calculate(samples)
	p.lastMaxStrategyResult = p.maxStrategy.Calculate(samples)
	p.lastCustomStrategyResult = p.customStrategy.Calculate(samples)
}

func (p *PriorityFeeSubscriber) loadForDrift() {
	if len(p.driftMarkets) == 0 {
		return
	}

	var marketTypes []string
	var marketIndexes []uint16
	for _, marketInfo := range p.driftMarkets {
		marketTypes = append(marketTypes, marketInfo.MarketType.String())
		marketIndexes = append(marketIndexes, marketInfo.MarketIndex)
	}
	feeSamples, err := FetchDriftPriorityFee(
		p.restyClient,
		p.driftPriorityFeeEndpoint,
		marketTypes,
		marketIndexes,
	)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("failed to fetch drift priority fees", zap.Error(err))
		}
		return
	}
	if len(feeSamples) == 0 {
		return
	}

	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.lastAvgStrategyResult = feeSamples[0].Medium
	p.lastMaxStrategyResult = feeSamples[0].UnsafeMax
	var samples []PriorityFeeSample
	for _, s := range feeSamples {
		samples = append(samples, PriorityFeeSample{Slot: 0, PrioritizationFee: s.Medium})
	}
	p.lastCustomStrategyResult = p.customStrategy.Calculate(samples)
}

func (p *PriorityFeeSubscriber) clamp(result uint64) uint64 {
	scaled := uint64(float64(result) * p.priorityFeeMultiplier)
	if p.maxFeeMicroLamports > 0 && scaled > p.maxFeeMicroLamports {
		return p.maxFeeMicroLamports
	}
	return scaled
}

func (p *PriorityFeeSubscriber) GetCustomStrategyResult() uint64 {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.clamp(p.lastCustomStrategyResult)
}

func (p *PriorityFeeSubscriber) GetRawCustomStrategyResult() uint64 {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.lastCustomStrategyResult
}

func (p *PriorityFeeSubscriber) GetAvgStrategyResult() uint64 {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.clamp(p.lastAvgStrategyResult)
}

func (p *PriorityFeeSubscriber) GetMaxStrategyResult() uint64 {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.clamp(p.lastMaxStrategyResult)
}

// GetPriorityFee is the per-transaction bid used by callers. It prefers the
// custom strategy when one is configured, otherwise the average reduction.
func (p *PriorityFeeSubscriber) GetPriorityFee() uint64 {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	if p.customStrategy != nil {
		return p.clamp(p.lastCustomStrategyResult)
	}
	return p.clamp(p.lastAvgStrategyResult)
}

func (p *PriorityFeeSubscriber) GetLastSlotSeen() uint64 {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.lastSlotSeen
}

// UpdateAddresses replaces the write-lock address set used for sampling.
func (p *PriorityFeeSubscriber) UpdateAddresses(addresses []solana.PublicKey) {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.addresses = addresses
}
