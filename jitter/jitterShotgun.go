package jitter

import (
	"strings"
	"sync"

	"fillergo"
	"fillergo/dlob"
	dlobtypes "fillergo/dlob/types"
	"fillergo/lib/drift"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

const retryDelayMs = int64(400)

// JitterShotgun fires a quote at every new auction as soon as it appears
// and keeps retrying once per slot-ish until the auction window closes.
type JitterShotgun struct {
	BaseJitter
	quoter IJitQuoter
}

func CreateJitterShotgun(
	slotSource dlobtypes.ISlotSource,
	userAccountProvider dlob.IUserAccountProvider,
	quoter IJitQuoter,
	logger *zap.Logger,
) *JitterShotgun {
	p := &JitterShotgun{
		BaseJitter: BaseJitter{
			SlotSource:          slotSource,
			UserAccountProvider: userAccountProvider,
			Logger:              logger,
			PerpParams:          make(map[uint16]*JitParams),
			SpotParams:          make(map[uint16]*JitParams),
			SeenOrders:          make(map[string]bool),
			OnGoingAuctions:     make(map[string]bool),
			mxState:             &sync.RWMutex{},
			mxWorker:            &sync.RWMutex{},
		},
		quoter: quoter,
	}
	p.createTryFill = p.CreateTryFill
	return p
}

func (p *JitterShotgun) CreateTryFill(
	taker *drift.User,
	takerKey solana.PublicKey,
	order *drift.Order,
	orderSignature string,
	onComplete func(),
) {
	var tryFill func(int)
	tryFill = func(retry int) {
		params := p.paramsForOrder(order)
		if params == nil {
			onComplete()
			return
		}

		if p.Logger != nil {
			p.Logger.Debug("quoting auction", zap.String("orderSignature", orderSignature), zap.Int("attempt", retry))
		}
		result, err := p.quoter.Quote(&QuoteParams{
			TakerKey:     takerKey,
			Taker:        taker,
			TakerOrderId: order.OrderId,
			MaxPosition:  params.MaxPosition,
			MinPosition:  params.MinPosition,
			Bid:          params.Bid,
			Ask:          params.Ask,
			SubAccountId: params.SubAccountId,
		}, &fillergo.TxParams{
			BaseTxParams: fillergo.BaseTxParams{
				ComputeUnits:      p.ComputeUnits,
				ComputeUnitsPrice: p.ComputeUnitsPrice,
			},
		})
		if err == nil {
			if p.Logger != nil {
				p.Logger.Info("sent quote tx",
					zap.String("orderSignature", orderSignature),
					zap.String("txSig", result.TxSig.String()))
			}
			p.addWorkerPool(retryDelayMs, onComplete)
			return
		}

		errMsg := err.Error()
		retryable := strings.Contains(errMsg, "0x1770") || // bid not crossed
			strings.Contains(errMsg, "0x1771") || // ask not crossed
			strings.Contains(errMsg, "0x1793") // oracle invalid
		if !retryable {
			if p.Logger != nil {
				p.Logger.Warn("quote failed", zap.String("orderSignature", orderSignature), zap.Error(err))
			}
			p.addWorkerPool(retryDelayMs, onComplete)
			return
		}

		if retry+1 < int(order.AuctionDuration) {
			p.addWorkerPool(retryDelayMs, func() {
				tryFill(retry + 1)
			})
		} else {
			onComplete()
		}
	}
	tryFill(0)
}
