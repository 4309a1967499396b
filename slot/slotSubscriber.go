package slot

import (
	"context"
	"sync"
	"time"

	"fillergo"
	"fillergo/utils"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"
)

type SlotSubscriberConfig struct {
	ResubTimeoutMs *int64
	Logger         *zap.Logger
}

// SlotSubscriber tracks the cluster's current slot over a websocket
// subscription. Observed slots are monotonic: stale notifications from a
// lagging connection never move the slot backwards. On EventNewSlot the
// latest slot is broadcast through the process event emitter.
type SlotSubscriber struct {
	currentSlot    uint64
	connection     *rpc.Client
	wsConnection   *ws.Client
	subscription   *ws.SlotSubscription
	resubTimeoutMs int64
	lastReceivedTs int64
	logger         *zap.Logger
	cancel         context.CancelFunc
	isSubscribed   bool
	mxState        *sync.RWMutex
}

func CreateSlotSubscriber(
	connection *rpc.Client,
	wsConnection *ws.Client,
	config SlotSubscriberConfig,
) *SlotSubscriber {
	return &SlotSubscriber{
		connection:     connection,
		wsConnection:   wsConnection,
		resubTimeoutMs: utils.TTF(config.ResubTimeoutMs == nil, func() int64 { return int64(10_000) }, func() int64 { return *config.ResubTimeoutMs }),
		logger:         config.Logger,
		mxState:        &sync.RWMutex{},
	}
}

func (p *SlotSubscriber) Subscribe(ctx context.Context) error {
	if p.isSubscribed {
		return nil
	}

	// seed with an rpc fetch so GetSlot is valid before the first
	// notification arrives
	initialSlot, err := p.connection.GetSlot(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return err
	}
	p.updateSlot(initialSlot)

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.isSubscribed = true

	go p.subscriptionLoop(ctx)
	go p.watchdogLoop(ctx)
	return nil
}

func (p *SlotSubscriber) subscriptionLoop(ctx context.Context) {
	retryPolicy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	for {
		if ctx.Err() != nil {
			return
		}
		err := backoff.Retry(func() error {
			sub, err := p.wsConnection.SlotSubscribe()
			if err != nil {
				return err
			}
			p.mxState.Lock()
			p.subscription = sub
			p.mxState.Unlock()
			return nil
		}, retryPolicy)
		if err != nil {
			return
		}

		for {
			result, err := p.subscription.Recv(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if p.logger != nil {
					p.logger.Warn("slot subscription dropped, resubscribing", zap.Error(err))
				}
				p.subscription.Unsubscribe()
				break
			}
			p.updateSlot(result.Slot)
		}
	}
}

// watchdogLoop forces a resubscribe when no notification arrives within
// the resub timeout.
func (p *SlotSubscriber) watchdogLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(p.resubTimeoutMs) * time.Millisecond / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.mxState.RLock()
			stale := time.Now().UnixMilli()-p.lastReceivedTs > p.resubTimeoutMs
			sub := p.subscription
			p.mxState.RUnlock()
			if stale && sub != nil {
				if p.logger != nil {
					p.logger.Warn("no slot updates received, forcing resubscribe",
						zap.Int64("timeoutMs", p.resubTimeoutMs))
				}
				sub.Unsubscribe()
			}
		case <-ctx.Done():
			return
		}
	}
}

func (p *SlotSubscriber) updateSlot(slot uint64) {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.lastReceivedTs = time.Now().UnixMilli()
	if slot <= p.currentSlot {
		return
	}
	p.currentSlot = slot
	fillergo.EventEmitter().Emit(fillergo.EventNewSlot, slot)
}

func (p *SlotSubscriber) GetSlot() uint64 {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.currentSlot
}

func (p *SlotSubscriber) Unsubscribe() {
	if !p.isSubscribed {
		return
	}
	p.isSubscribed = false
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mxState.Lock()
	if p.subscription != nil {
		p.subscription.Unsubscribe()
		p.subscription = nil
	}
	p.mxState.Unlock()
}
