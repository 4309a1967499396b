package oracles

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	types "fillergo/oracles/types"

	"github.com/go-errors/errors"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

type oraclePriceJSON struct {
	MarketIndex uint16 `json:"marketIndex"`
	Price       string `json:"price"`
	Confidence  string `json:"confidence"`
	Slot        uint64 `json:"slot"`
}

type OracleMapConfig struct {
	Client            *resty.Client
	Endpoint          string
	UpdateFrequencyMs int64
	Logger            *zap.SugaredLogger
}

// OracleMap polls a price endpoint and serves the latest oracle price per
// perp market. Implements types.IOracleSource.
type OracleMap struct {
	client            *resty.Client
	endpoint          string
	updateFrequencyMs int64

	prices  map[uint16]*types.OraclePriceData
	mxState *sync.RWMutex

	cancel context.CancelFunc
	wait   sync.WaitGroup
	logger *zap.SugaredLogger
}

const defaultOracleUpdateFrequencyMs = int64(1_000)

func CreateOracleMap(config OracleMapConfig) *OracleMap {
	updateFrequencyMs := config.UpdateFrequencyMs
	if updateFrequencyMs <= 0 {
		updateFrequencyMs = defaultOracleUpdateFrequencyMs
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &OracleMap{
		client:            config.Client,
		endpoint:          config.Endpoint,
		updateFrequencyMs: updateFrequencyMs,
		prices:            make(map[uint16]*types.OraclePriceData),
		mxState:           &sync.RWMutex{},
		logger:            logger,
	}
}

func (p *OracleMap) Subscribe(ctx context.Context) error {
	if p.cancel != nil {
		return nil
	}
	if err := p.update(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wait.Add(1)
	go func() {
		defer p.wait.Done()
		ticker := time.NewTicker(time.Duration(p.updateFrequencyMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.update(ctx); err != nil {
					p.logger.Warnw("oracle price refresh failed", "error", err)
				}
			}
		}
	}()
	return nil
}

func (p *OracleMap) Unsubscribe() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.wait.Wait()
}

func (p *OracleMap) update(ctx context.Context) error {
	resp, err := p.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/oraclePrices", p.endpoint))
	if err != nil {
		return errors.Wrap(err, 1)
	}
	if !resp.IsSuccess() {
		return errors.Errorf("oraclePrices endpoint returned status %d", resp.StatusCode())
	}
	var payload []oraclePriceJSON
	if err = json.Unmarshal(resp.Body(), &payload); err != nil {
		return errors.Wrap(err, 1)
	}

	prices := make(map[uint16]*types.OraclePriceData, len(payload))
	for _, entry := range payload {
		price, ok := new(big.Int).SetString(entry.Price, 10)
		if !ok {
			continue
		}
		confidence, ok := new(big.Int).SetString(entry.Confidence, 10)
		if !ok {
			confidence = big.NewInt(0)
		}
		prices[entry.MarketIndex] = &types.OraclePriceData{
			Price:      price,
			Confidence: confidence,
			Slot:       entry.Slot,
		}
	}

	p.mxState.Lock()
	p.prices = prices
	p.mxState.Unlock()
	return nil
}

func (p *OracleMap) GetOraclePriceData(marketIndex uint16) *types.OraclePriceData {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.prices[marketIndex]
}
