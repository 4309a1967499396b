package jitmaker

import (
	"context"
	"math/big"
	"sync/atomic"
	"time"

	"fillergo"
	"fillergo/blockhashSubscriber"
	"fillergo/dlob"
	dlobtypes "fillergo/dlob/types"
	"fillergo/filler"
	"fillergo/jitter"
	"fillergo/lib/drift"
	oracles "fillergo/oracles/types"
	"fillergo/tx"
	"fillergo/types"
	"fillergo/utils"

	"go.uber.org/zap"
)

const (
	DEFAULT_JIT_INTERVAL_MS = uint64(1_000)
	JIT_COMPUTE_UNIT_LIMIT  = uint64(600_000)

	defaultSpreadBps = uint64(20)
	// markets whose oracle confidence exceeds this share of price are too
	// volatile to quote
	maxOracleConfidenceBps = int64(100)

	bpsDenominator = int64(10_000)
)

type JitMakerBotConfig struct {
	Name          string
	DryRun        bool
	MarketIndexes []uint16
	SubAccountId  uint16

	// half-spread around oracle in basis points
	SpreadBps uint64
	// inventory bound per market, base precision
	MaxPositionBase uint64

	SlotSource          dlobtypes.ISlotSource
	DLOBSource          dlobtypes.IDLOBSource
	OracleSource        oracles.IOracleSource
	UserAccountProvider dlob.IUserAccountProvider
	BlockhashSubscriber *blockhashSubscriber.BlockhashSubscriber
	PriorityFeeGetter   filler.IPriorityFeeGetter
	TxSender            tx.ITxSender
	Wallet              *fillergo.Wallet

	Logger *zap.SugaredLogger
}

// JitMakerBot quotes taker auctions. Each pass it re-derives the standing
// bid/ask offsets per market from the oracle and the top of the book, and
// the jitter fires those quotes at every auction it sees.
type JitMakerBot struct {
	name              string
	defaultIntervalMs uint64
	marketIndexes     []uint16
	subAccountId      uint16
	spreadBps         uint64
	maxPositionBase   uint64

	slotSource   dlobtypes.ISlotSource
	dlobSource   dlobtypes.IDLOBSource
	oracleSource oracles.IOracleSource
	priorityFees filler.IPriorityFeeGetter
	wallet       *fillergo.Wallet

	jitter *jitter.JitterShotgun

	lastTickTs        atomic.Int64
	runningIntervalMs atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.SugaredLogger
}

func CreateJitMakerBot(config JitMakerBotConfig) *JitMakerBot {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	quoter := CreateTxQuoter(TxQuoterConfig{
		SubAccountId:        config.SubAccountId,
		DryRun:              config.DryRun,
		OracleSource:        config.OracleSource,
		BlockhashSubscriber: config.BlockhashSubscriber,
		TxSender:            config.TxSender,
		Wallet:              config.Wallet,
		Logger:              logger,
	})

	p := &JitMakerBot{
		name:              utils.TT(config.Name != "", config.Name, "jitMaker"),
		defaultIntervalMs: DEFAULT_JIT_INTERVAL_MS,
		marketIndexes:     config.MarketIndexes,
		subAccountId:      config.SubAccountId,
		spreadBps:         utils.TT(config.SpreadBps > 0, config.SpreadBps, defaultSpreadBps),
		maxPositionBase:   config.MaxPositionBase,
		slotSource:        config.SlotSource,
		dlobSource:        config.DLOBSource,
		oracleSource:      config.OracleSource,
		priorityFees:      config.PriorityFeeGetter,
		wallet:            config.Wallet,
		jitter:            jitter.CreateJitterShotgun(config.SlotSource, config.UserAccountProvider, quoter, logger.Desugar()),
		logger:            logger,
	}

	// never quote our own auctions
	authority := config.Wallet.GetPublicKey()
	p.jitter.SetUserFilter(func(userAccount *drift.User, userKey string, order *drift.Order) bool {
		return userAccount.Authority.Equals(authority)
	})
	p.jitter.SetComputeUnits(JIT_COMPUTE_UNIT_LIMIT)
	return p
}

func (p *JitMakerBot) Init() error {
	if p.slotSource == nil || p.dlobSource == nil || p.oracleSource == nil {
		return types.NewGenericError("jit maker requires slot, dlob and oracle sources")
	}
	if p.wallet == nil {
		return types.NewGenericError("jit maker requires a wallet")
	}
	p.lastTickTs.Store(time.Now().UnixMilli())
	p.logger.Infow("jit maker initialized",
		"name", p.name,
		"markets", p.marketIndexes,
		"spreadBps", p.spreadBps,
	)
	return nil
}

func (p *JitMakerBot) Reset() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.jitter.Unsubscribe()
}

func (p *JitMakerBot) StartIntervalLoop(intervalMs uint64) {
	if intervalMs == 0 {
		intervalMs = p.defaultIntervalMs
	}
	p.runningIntervalMs.Store(intervalMs)
	p.ctx, p.cancel = context.WithCancel(context.Background())

	_ = p.jitter.Subscribe()

	go func(ctx context.Context) {
		ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.updateParams()
			}
		}
	}(p.ctx)

	p.logger.Infof("%s bot started, interval %d ms", p.name, intervalMs)
}

func (p *JitMakerBot) HealthCheck() bool {
	intervalMs := p.runningIntervalMs.Load()
	if intervalMs == 0 {
		intervalMs = p.defaultIntervalMs
	}
	window := int64(5 * intervalMs)
	if window < 10_000 {
		window = 10_000
	}
	healthy := time.Now().UnixMilli()-p.lastTickTs.Load() < window
	if !healthy {
		p.logger.Warnw("jit maker unhealthy", "lastTickTs", p.lastTickTs.Load())
	}
	return healthy
}

// updateParams re-derives the standing quote bounds for every market from
// the oracle and the current book, tightening the half-spread to the inside
// of the book when the book is tighter.
func (p *JitMakerBot) updateParams() {
	defer p.lastTickTs.Store(time.Now().UnixMilli())

	slot := p.slotSource.GetSlot()
	if slot == 0 {
		return
	}
	book, err := p.dlobSource.GetDLOB(slot)
	if err != nil {
		p.logger.Warnw("no book for params update", "slot", slot, "error", err)
		return
	}

	if p.priorityFees != nil {
		p.jitter.SetComputeUnitsPrice(p.priorityFees.GetPriorityFee())
	}

	for _, marketIndex := range p.marketIndexes {
		p.jitter.UpdatePerpParams(marketIndex, p.paramsForMarket(book, marketIndex, slot))
	}
}

func (p *JitMakerBot) paramsForMarket(book dlobtypes.IDLOB, marketIndex uint16, slot uint64) *jitter.JitParams {
	oraclePriceData := p.oracleSource.GetOraclePriceData(marketIndex)
	if oraclePriceData == nil || oraclePriceData.Price == nil || oraclePriceData.Price.Sign() <= 0 {
		return nil
	}
	if tooVolatile(oraclePriceData) {
		p.logger.Debugw("market too volatile to quote", "marketIndex", marketIndex)
		return nil
	}

	halfSpread := new(big.Int).Div(
		new(big.Int).Mul(oraclePriceData.Price, utils.BN(p.spreadBps)),
		utils.BN(bpsDenominator),
	)
	bidOffset := new(big.Int).Neg(halfSpread)
	askOffset := new(big.Int).Set(halfSpread)

	// never quote through the book: stay at or behind the best resting level
	if bestBid := book.GetBestBid(marketIndex, drift.MarketType_Perp, slot, oraclePriceData); bestBid != nil {
		bookBidOffset := new(big.Int).Sub(bestBid, oraclePriceData.Price)
		if bookBidOffset.Cmp(bidOffset) < 0 {
			bidOffset = bookBidOffset
		}
	}
	if bestAsk := book.GetBestAsk(marketIndex, drift.MarketType_Perp, slot, oraclePriceData); bestAsk != nil {
		bookAskOffset := new(big.Int).Sub(bestAsk, oraclePriceData.Price)
		if bookAskOffset.Cmp(askOffset) > 0 {
			askOffset = bookAskOffset
		}
	}

	maxPosition := utils.BN(p.maxPositionBase)
	subAccountId := p.subAccountId
	return &jitter.JitParams{
		Bid:          bidOffset,
		Ask:          askOffset,
		MinPosition:  new(big.Int).Neg(maxPosition),
		MaxPosition:  maxPosition,
		SubAccountId: &subAccountId,
	}
}

func tooVolatile(oraclePriceData *oracles.OraclePriceData) bool {
	if oraclePriceData.Confidence == nil || oraclePriceData.Confidence.Sign() == 0 {
		return false
	}
	confidenceBps := new(big.Int).Div(
		new(big.Int).Mul(oraclePriceData.Confidence, utils.BN(bpsDenominator)),
		oraclePriceData.Price,
	)
	return confidenceBps.Cmp(utils.BN(maxOracleConfidenceBps)) > 0
}
