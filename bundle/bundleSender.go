package bundle

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"fillergo/dlob/types"
	fillertypes "fillergo/types"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/go-errors/errors"
	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/mr-tron/base58"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultMinBundleTip       = uint64(10_000)
	defaultMaxBundleTip       = uint64(100_000)
	defaultMaxFailBundleCount = uint64(100)
	defaultTipMultiplier      = 3.0

	sentBundleCacheTTL = 5 * time.Minute
)

var lamportsPerSol = decimal.NewFromInt(int64(solana.LAMPORTS_PER_SOL))

// BundleSender submits signed transactions to the block engine as bundles
// with a tip transfer appended. Tip size follows the landed-tip percentile
// stream and ramps superlinearly with consecutive rejected bundles.
type BundleSender struct {
	blockEngineUrl string
	tipStreamUrl   string
	tipPayer       solana.PrivateKey
	strategy       fillertypes.JitoStrategy
	slotSource     types.ISlotSource
	restyClient    *resty.Client
	logger         *zap.Logger

	isSubscribed bool
	cancel       context.CancelFunc

	nextJitoLeader *JitoLeader
	lastTipStream  *TipStream
	bundleStats    BundleStats

	bundlesSent           uint64
	bundleResultsReceived uint64
	failBundleCount       uint64
	countLandedBundles    uint64
	countDroppedBundles   uint64

	// bundleIdToTx is populated immediately after sending; sentTxCache only
	// after a bundle result arrives, since results can come minutes late.
	bundleIdToTx *cache.Cache
	sentTxCache  *cache.Cache

	minBundleTip       uint64
	maxBundleTip       uint64
	maxFailBundleCount uint64
	tipMultiplier      float64

	mxState *sync.RWMutex
}

func CreateBundleSender(
	config BundleSenderConfig,
	slotSource types.ISlotSource,
	logger *zap.Logger,
) *BundleSender {
	p := &BundleSender{
		blockEngineUrl:     config.BlockEngineUrl,
		tipStreamUrl:       config.TipStreamUrl,
		tipPayer:           config.TipPayer,
		strategy:           config.Strategy,
		slotSource:         slotSource,
		restyClient:        resty.New(),
		logger:             logger,
		bundleIdToTx:       cache.New(sentBundleCacheTTL, sentBundleCacheTTL),
		sentTxCache:        cache.New(sentBundleCacheTTL, sentBundleCacheTTL),
		minBundleTip:       config.MinBundleTip,
		maxBundleTip:       config.MaxBundleTip,
		maxFailBundleCount: config.MaxFailBundleCount,
		tipMultiplier:      config.TipMultiplier,
		mxState:            &sync.RWMutex{},
	}
	if p.minBundleTip == 0 {
		p.minBundleTip = defaultMinBundleTip
	}
	if p.maxBundleTip == 0 {
		p.maxBundleTip = defaultMaxBundleTip
	}
	if p.maxFailBundleCount == 0 {
		p.maxFailBundleCount = defaultMaxFailBundleCount
	}
	if p.tipMultiplier <= 0 {
		p.tipMultiplier = defaultTipMultiplier
	}
	return p
}

func (p *BundleSender) Subscribe(ctx context.Context) error {
	if p.isSubscribed {
		return nil
	}
	p.isSubscribed = true
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	go p.tipStreamLoop(ctx)
	return nil
}

func (p *BundleSender) Unsubscribe() {
	if !p.isSubscribed {
		return
	}
	p.isSubscribed = false
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *BundleSender) tipStreamLoop(ctx context.Context) {
	retryPolicy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	for {
		if ctx.Err() != nil {
			return
		}
		var conn *websocket.Conn
		err := backoff.Retry(func() error {
			c, _, err := websocket.DefaultDialer.DialContext(ctx, p.tipStreamUrl, nil)
			if err != nil {
				return err
			}
			conn = c
			return nil
		}, retryPolicy)
		if err != nil {
			return
		}

		go func() {
			<-ctx.Done()
			conn.Close()
		}()

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if p.logger != nil {
					p.logger.Warn("tip stream dropped, reconnecting", zap.Error(err))
				}
				conn.Close()
				break
			}
			var tips []TipStream
			if err := json.Unmarshal(message, &tips); err != nil || len(tips) == 0 {
				continue
			}
			p.mxState.Lock()
			p.lastTipStream = &tips[0]
			p.mxState.Unlock()
		}
	}
}

// SlotsUntilNextLeader returns how many slots away the next connected
// leader is, or false when no schedule is known yet.
func (p *BundleSender) SlotsUntilNextLeader() (uint64, bool) {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	if p.nextJitoLeader == nil {
		return 0, false
	}
	currentSlot := p.slotSource.GetSlot()
	if p.nextJitoLeader.NextLeaderSlot <= currentSlot {
		return 0, true
	}
	return p.nextJitoLeader.NextLeaderSlot - currentSlot, true
}

func (p *BundleSender) UpdateLeaderSchedule(leader *JitoLeader) {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.nextJitoLeader = leader
}

func (p *BundleSender) Strategy() fillertypes.JitoStrategy {
	return p.strategy
}

// CalculateCurrentTipLamports sizes the tip from the 50th-percentile landed
// tip, ramped superlinearly with the rejected-bundle count and clamped to
// the configured bounds.
func (p *BundleSender) CalculateCurrentTipLamports() uint64 {
	defer p.mxState.RUnlock()
	p.mxState.RLock()

	baseTipSol := decimal.Zero
	if p.lastTipStream != nil {
		baseTipSol = decimal.NewFromFloat(p.lastTipStream.LandedTips50thPercentile)
	}
	baseTip := baseTipSol.Mul(lamportsPerSol)

	failRatio := float64(p.failBundleCount) / float64(p.maxFailBundleCount)
	ramp := decimal.NewFromFloat(1.0 + failRatio*failRatio*p.tipMultiplier)
	tip := baseTip.Mul(ramp).BigInt()

	if !tip.IsUint64() {
		return p.maxBundleTip
	}
	return min(p.maxBundleTip, max(p.minBundleTip, tip.Uint64()))
}

func (p *BundleSender) GetBundleStats() BundleStats {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.bundleStats
}

func (p *BundleSender) GetFailBundleCount() uint64 {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.failBundleCount
}

// RecordBundleResult adjusts the fail counter and stats from a block engine
// bundle result. Accepted bundles decay the fail count, bid rejections grow
// it; simulation failures don't count toward the tip ramp.
func (p *BundleSender) RecordBundleResult(bundleId string, accepted bool, rejectReason string) {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.bundleResultsReceived++
	if accepted {
		p.bundleStats.Accepted++
		if p.failBundleCount > 0 {
			p.failBundleCount--
		}
		if tx, exists := p.bundleIdToTx.Get(bundleId); exists {
			sent := tx.(*sentBundle)
			p.sentTxCache.SetDefault(sent.Tx, sent.Ts)
		}
		return
	}
	switch rejectReason {
	case "StateAuctionBidRejected":
		p.bundleStats.StateAuctionBidRejected++
		p.failBundleCount++
	case "WinningBatchBidRejected":
		p.bundleStats.WinningBatchBidRejected++
		p.failBundleCount++
	case "SimulationFailure":
		p.bundleStats.SimulationFailure++
	case "InternalError":
		p.bundleStats.InternalError++
	default:
		p.bundleStats.DroppedBundle++
	}
}

// SendTxs submits the signed transactions as one bundle, appending a tip
// transfer signed by the tip payer.
func (p *BundleSender) SendTxs(
	ctx context.Context,
	signedTxs []*solana.Transaction,
	recentBlockhash solana.Hash,
) (string, error) {
	if !p.isSubscribed && p.logger != nil {
		p.logger.Warn("sending bundle before tip stream subscription")
	}

	tipLamports := p.CalculateCurrentTipLamports()
	tipAccount := jitoTipAccounts[rand.Intn(len(jitoTipAccounts))]
	tipTx, err := p.buildTipTransaction(tipLamports, tipAccount, recentBlockhash)
	if err != nil {
		return "", err
	}

	var encodedTxs []string
	for _, signedTx := range append(signedTxs, tipTx) {
		rawTx, err := signedTx.MarshalBinary()
		if err != nil {
			return "", errors.Wrap(err, 1)
		}
		encodedTxs = append(encodedTxs, base58.Encode(rawTx))
	}

	request := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "sendBundle",
		"params":  []interface{}{encodedTxs},
	}
	resp, err := p.restyClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(request).
		Post(fmt.Sprintf("%s/api/v1/bundles", p.blockEngineUrl))
	if err != nil {
		return "", errors.Wrap(err, 1)
	}
	if !resp.IsSuccess() {
		return "", errors.Errorf("sendBundle returned status %d: %s", resp.StatusCode(), resp.String())
	}

	var result struct {
		Result string `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", errors.Wrap(err, 1)
	}
	if result.Error != nil {
		return "", errors.Errorf("sendBundle error: %s", result.Error.Message)
	}

	p.mxState.Lock()
	p.bundlesSent++
	p.mxState.Unlock()
	if len(signedTxs) > 0 && len(signedTxs[0].Signatures) > 0 {
		p.bundleIdToTx.SetDefault(result.Result, &sentBundle{
			Tx: signedTxs[0].Signatures[0].String(),
			Ts: time.Now().UnixMilli(),
		})
	}
	return result.Result, nil
}

func (p *BundleSender) buildTipTransaction(
	lamports uint64,
	tipAccount solana.PublicKey,
	recentBlockhash solana.Hash,
) (*solana.Transaction, error) {
	payer := p.tipPayer.PublicKey()
	transferIx := solana.NewInstruction(
		solana.SystemProgramID,
		solana.AccountMetaSlice{
			solana.Meta(payer).SIGNER().WRITE(),
			solana.Meta(tipAccount).WRITE(),
		},
		encodeTransfer(lamports),
	)
	tipTx, err := solana.NewTransaction(
		[]solana.Instruction{transferIx},
		recentBlockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return nil, errors.Wrap(err, 1)
	}
	_, err = tipTx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if payer.Equals(key) {
			return &p.tipPayer
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, 1)
	}
	return tipTx, nil
}

// system program transfer: u32 instruction index 2 then u64 lamports, LE
func encodeTransfer(lamports uint64) []byte {
	data := make([]byte, 12)
	data[0] = 2
	for i := 0; i < 8; i++ {
		data[4+i] = byte(lamports >> (8 * i))
	}
	return data
}
