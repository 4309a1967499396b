package blockhashSubscriber

import (
	"context"
	"sync"
	"time"

	"fillergo"
	"fillergo/event"
	"fillergo/utils"

	ag_solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

type BlockhashSubscriberConfig struct {
	Connection       *rpc.Client
	ResubTimeoutMs   *int64
	Commitment       *rpc.CommitmentType
	UpdateIntervalMs *int64
	EventEmitter     *event.EventEmitter
	Logger           *zap.Logger
}

// BlockhashSubscriber keeps a rolling cache of recent blockhashes so
// transaction builders can pick a slightly stale hash on purpose (an older
// hash expires sooner, which bounds how long a submitted transaction can
// stay pending).
type BlockhashSubscriber struct {
	connection *rpc.Client
	commitment rpc.CommitmentType

	currentSlot uint64

	updateIntervalMs  int64
	latestBlockHeight uint64
	blockhashes       []*rpc.LatestBlockhashResult

	eventEmitter *event.EventEmitter
	logger       *zap.Logger

	intervalId *time.Ticker
	cancel     context.CancelFunc
	mxState    *sync.RWMutex
}

func CreateBlockhashSubscriber(config BlockhashSubscriberConfig) *BlockhashSubscriber {
	return &BlockhashSubscriber{
		connection:       config.Connection,
		commitment:       utils.TTF(config.Commitment == nil, func() rpc.CommitmentType { return rpc.CommitmentConfirmed }, func() rpc.CommitmentType { return *config.Commitment }),
		eventEmitter:     utils.TT(config.EventEmitter == nil, fillergo.EventEmitter(), config.EventEmitter),
		logger:           config.Logger,
		updateIntervalMs: utils.TTF(config.UpdateIntervalMs == nil, func() int64 { return int64(1_000) }, func() int64 { return max(*config.UpdateIntervalMs, 400) }),
		mxState:          &sync.RWMutex{},
	}
}

func (p *BlockhashSubscriber) Subscribe(ctx context.Context) error {
	if p.intervalId != nil {
		return nil
	}
	err := p.Fetch(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.intervalId = time.NewTicker(time.Duration(p.updateIntervalMs) * time.Millisecond)
	go func() {
		for {
			select {
			case <-p.intervalId.C:
				p.updateBlockhash(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (p *BlockhashSubscriber) Unsubscribe() {
	if p.intervalId == nil {
		return
	}
	p.intervalId.Stop()
	p.intervalId = nil
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *BlockhashSubscriber) Fetch(ctx context.Context) error {
	slot, err := p.connection.GetSlot(ctx, p.commitment)
	if err != nil {
		return err
	}
	blockhash, err := p.connection.GetLatestBlockhash(ctx, p.commitment)
	if err != nil {
		return err
	}
	blockHeight, err := p.connection.GetBlockHeight(ctx, p.commitment)
	if err != nil {
		return err
	}

	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.currentSlot = slot
	p.latestBlockHeight = blockHeight
	p.blockhashes = append(p.blockhashes, blockhash.Value)
	return nil
}

func (p *BlockhashSubscriber) updateBlockhash(ctx context.Context) {
	blockhash, err := p.connection.GetLatestBlockhash(ctx, p.commitment)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("failed to fetch latest blockhash", zap.Error(err))
		}
		return
	}
	blockHeight, err := p.connection.GetBlockHeight(ctx, p.commitment)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("failed to fetch block height", zap.Error(err))
		}
		return
	}

	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.latestBlockHeight = blockHeight

	if len(p.blockhashes) > 0 &&
		blockhash.Value.Blockhash.Equals(p.blockhashes[len(p.blockhashes)-1].Blockhash) {
		return
	}
	p.blockhashes = append(p.blockhashes, blockhash.Value)
	p.pruneBlockhashes()
	p.eventEmitter.Emit(fillergo.EventNewBlockhash, blockhash.Value.Blockhash)
}

func (p *BlockhashSubscriber) pruneBlockhashes() {
	if p.latestBlockHeight == 0 {
		return
	}
	var live []*rpc.LatestBlockhashResult
	for _, blockhash := range p.blockhashes {
		if blockhash.LastValidBlockHeight > p.latestBlockHeight {
			live = append(live, blockhash)
		}
	}
	p.blockhashes = live
}

func (p *BlockhashSubscriber) GetBlockhashCacheSize() int {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return len(p.blockhashes)
}

func (p *BlockhashSubscriber) GetLatestBlockHeight() uint64 {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.latestBlockHeight
}

// GetLatestBlockhash returns the newest cached blockhash, or an older one
// when an offset is given. Offsets are clamped to the cache size.
func (p *BlockhashSubscriber) GetLatestBlockhash(offsets ...int) *rpc.LatestBlockhashResult {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	offset := utils.TTF(len(offsets) > 0, func() int { return offsets[0] }, func() int { return 0 })
	if len(p.blockhashes) == 0 {
		return nil
	}
	clampedOffset := max(0, min(len(p.blockhashes)-1, offset))
	return p.blockhashes[len(p.blockhashes)-1-clampedOffset]
}

func (p *BlockhashSubscriber) GetLatestBlockhashValue(offsets ...int) ag_solanago.Hash {
	result := p.GetLatestBlockhash(offsets...)
	if result == nil {
		return ag_solanago.Hash{}
	}
	return result.Blockhash
}

func (p *BlockhashSubscriber) GetSlot() uint64 {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.currentSlot
}
