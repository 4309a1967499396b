package jitter

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"fillergo/dlob"
	dlobtypes "fillergo/dlob/types"
	"fillergo/lib/drift"
	"fillergo/math"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

type PendingTask struct {
	timestamp int64
	callback  func()
}

// BaseJitter scans the user account map for orders still inside their
// auction window and schedules quote attempts against them. Each auction
// is picked up at most once; the seen-order set is cleared when the
// auction's fill attempt completes.
type BaseJitter struct {
	SlotSource          dlobtypes.ISlotSource
	UserAccountProvider dlob.IUserAccountProvider
	Logger              *zap.Logger

	PerpParams      map[uint16]*JitParams
	SpotParams      map[uint16]*JitParams
	SeenOrders      map[string]bool
	OnGoingAuctions map[string]bool
	UserFilter      UserFilter

	ComputeUnits      uint64
	ComputeUnitsPrice uint64

	ScanIntervalMs int64

	createTryFill func(taker *drift.User, takerKey solana.PublicKey, order *drift.Order, orderSignature string, onComplete func())

	pendingTasks []*PendingTask
	cancel       context.CancelFunc
	mxState      *sync.RWMutex
	mxWorker     *sync.RWMutex
}

func (p *BaseJitter) Subscribe() error {
	if p.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	scanInterval := p.ScanIntervalMs
	if scanInterval <= 0 {
		scanInterval = 100
	}

	go func() {
		scanTicker := time.NewTicker(time.Millisecond * time.Duration(scanInterval))
		workerTicker := time.NewTicker(time.Millisecond * 10)
		defer scanTicker.Stop()
		defer workerTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-scanTicker.C:
				p.scanForAuctions()
			case <-workerTicker.C:
				p.runWorkerPool()
			}
		}
	}()
	return nil
}

func (p *BaseJitter) Unsubscribe() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *BaseJitter) scanForAuctions() {
	slot := p.SlotSource.GetSlot()
	for userKey, taker := range p.UserAccountProvider.GetUserAccounts() {
		takerPubkey, err := solana.PublicKeyFromBase58(userKey)
		if err != nil {
			continue
		}
		for idx := range taker.Orders {
			order := &taker.Orders[idx]
			if order.Status != drift.OrderStatus_Open {
				continue
			}
			if !math.HasAuctionPrice(order, slot) {
				continue
			}
			if p.UserFilter != nil && p.UserFilter(taker, userKey, order) {
				continue
			}

			orderSignature := p.GetOrderSignature(userKey, order.OrderId)
			seenOrder, onGoingAuction := p.CheckOrder(orderSignature)
			if seenOrder || onGoingAuction {
				continue
			}
			p.SetSeenOrder(orderSignature)

			params := p.paramsForOrder(order)
			if params == nil {
				continue
			}
			if order.BaseAssetAmount <= order.BaseAssetAmountFilled {
				continue
			}

			p.SetOnGoingAuction(orderSignature)
			orderCopy := *order
			p.createTryFill(taker, takerPubkey, &orderCopy, orderSignature, func() {
				p.DeleteOnGoingAuction(orderSignature)
			})
		}
	}
}

func (p *BaseJitter) paramsForOrder(order *drift.Order) *JitParams {
	if order.MarketType == drift.MarketType_Perp {
		return p.GetPerpParams(order.MarketIndex)
	}
	return p.GetSpotParams(order.MarketIndex)
}

func (p *BaseJitter) addWorkerPool(delayMs int64, callback func()) {
	defer p.mxWorker.Unlock()
	p.mxWorker.Lock()
	p.pendingTasks = append(p.pendingTasks, &PendingTask{
		timestamp: time.Now().UnixMilli() + delayMs,
		callback:  callback,
	})
}

func (p *BaseJitter) runWorkerPool() {
	defer p.mxWorker.Unlock()
	p.mxWorker.Lock()
	p.pendingTasks = slices.DeleteFunc(p.pendingTasks, func(pendingTask *PendingTask) bool {
		if pendingTask.timestamp <= time.Now().UnixMilli() {
			go pendingTask.callback()
			return true
		}
		return false
	})
}

func (p *BaseJitter) CheckOrder(orderSignature string) (bool, bool) {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	_, seenOrder := p.SeenOrders[orderSignature]
	_, onGoingAuction := p.OnGoingAuctions[orderSignature]
	return seenOrder, onGoingAuction
}

func (p *BaseJitter) SetSeenOrder(orderSignature string) {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.SeenOrders[orderSignature] = true
}

func (p *BaseJitter) SetOnGoingAuction(orderSignature string) {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.OnGoingAuctions[orderSignature] = true
}

func (p *BaseJitter) DeleteOnGoingAuction(orderSignature string) {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	delete(p.OnGoingAuctions, orderSignature)
	delete(p.SeenOrders, orderSignature)
}

func (p *BaseJitter) GetOrderSignature(takerKey string, orderId uint32) string {
	return fmt.Sprintf("%s-%d", takerKey, orderId)
}

func (p *BaseJitter) UpdatePerpParams(marketIndex uint16, params *JitParams) {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.PerpParams[marketIndex] = params
}

func (p *BaseJitter) UpdateSpotParams(marketIndex uint16, params *JitParams) {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.SpotParams[marketIndex] = params
}

func (p *BaseJitter) GetPerpParams(marketIndex uint16) *JitParams {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	params, exists := p.PerpParams[marketIndex]
	if !exists {
		return nil
	}
	return params
}

func (p *BaseJitter) GetSpotParams(marketIndex uint16) *JitParams {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	params, exists := p.SpotParams[marketIndex]
	if !exists {
		return nil
	}
	return params
}

func (p *BaseJitter) SetUserFilter(userFilter UserFilter) {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.UserFilter = userFilter
}

func (p *BaseJitter) SetComputeUnits(computeUnits uint64) {
	p.ComputeUnits = computeUnits
}

func (p *BaseJitter) SetComputeUnitsPrice(computeUnitsPrice uint64) {
	p.ComputeUnitsPrice = computeUnitsPrice
}
