package filler

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"fillergo"
	"fillergo/dlob"
	dlobtypes "fillergo/dlob/types"
	drift "fillergo/lib/drift"
	oracles "fillergo/oracles/types"
	txpkg "fillergo/tx"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOracleSource struct {
	price *big.Int
}

func (p *fakeOracleSource) GetOraclePriceData(marketIndex uint16) *oracles.OraclePriceData {
	return &oracles.OraclePriceData{Price: p.price, Slot: 100, Confidence: big.NewInt(0)}
}

// fakeBook serves canned candidates and records the slot selection ran at.
type fakeBook struct {
	slot         uint64
	fills        []*dlobtypes.NodeToFill
	triggers     []*dlobtypes.NodeToTrigger
	lastFindSlot uint64
}

func (p *fakeBook) GetSlot() uint64 {
	return p.slot
}

func (p *fakeBook) FindNodesToFill(
	marketIndex uint16,
	slot uint64,
	ts int64,
	marketType drift.MarketType,
	oraclePriceData *oracles.OraclePriceData,
	filterFcn dlobtypes.DLOBFilterFcn,
) []*dlobtypes.NodeToFill {
	p.lastFindSlot = slot
	var out []*dlobtypes.NodeToFill
	for _, node := range p.fills {
		if filterFcn != nil && !filterFcn(node.Node) {
			continue
		}
		out = append(out, node)
	}
	return out
}

func (p *fakeBook) FindNodesToTrigger(
	marketIndex uint16,
	marketType drift.MarketType,
	oraclePrice *big.Int,
) []*dlobtypes.NodeToTrigger {
	return p.triggers
}

func (p *fakeBook) GetBestBid(marketIndex uint16, marketType drift.MarketType, slot uint64, oraclePriceData *oracles.OraclePriceData) *big.Int {
	return nil
}

func (p *fakeBook) GetBestAsk(marketIndex uint16, marketType drift.MarketType, slot uint64, oraclePriceData *oracles.OraclePriceData) *big.Int {
	return nil
}

type fakeDLOBSource struct {
	book *fakeBook
	err  error
}

func (p *fakeDLOBSource) GetDLOB(slot uint64) (dlobtypes.IDLOB, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.book, nil
}

type fakeBlockhashes struct {
	hash solana.Hash
}

func (p *fakeBlockhashes) GetLatestBlockhash(offsets ...int) *rpc.LatestBlockhashResult {
	return &rpc.LatestBlockhashResult{Blockhash: p.hash, LastValidBlockHeight: 1}
}

// fakeTxSender signs nothing and sends nowhere; it hands out deterministic
// signatures and records what was sent.
type fakeTxSender struct {
	mx       sync.Mutex
	nextSig  byte
	sentSigs []solana.Signature
	statuses map[string]*rpc.SignatureStatusesResult
}

func (p *fakeTxSender) GetTransaction(
	ixs []solana.Instruction,
	lookupTableAccounts []addresslookuptable.KeyedAddressLookupTable,
	blockhash string,
	sign bool,
) (*solana.Transaction, error) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.nextSig++
	var sig solana.Signature
	sig[0] = p.nextSig
	return &solana.Transaction{Signatures: []solana.Signature{sig}}, nil
}

func (p *fakeTxSender) Send(
	ctx context.Context,
	tx *solana.Transaction,
	opts *fillergo.ConfirmOptions,
	preSigned bool,
	extraConfirmationOptions *txpkg.ExtraConfirmationOptions,
) (*txpkg.TxSigAndSlot, error) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.sentSigs = append(p.sentSigs, tx.Signatures[0])
	return &txpkg.TxSigAndSlot{TxSig: tx.Signatures[0]}, nil
}

func (p *fakeTxSender) SendRawTransaction(
	ctx context.Context,
	rawTransaction []byte,
	opts *fillergo.ConfirmOptions,
) (*txpkg.TxSigAndSlot, error) {
	return nil, errors.New("not used")
}

func (p *fakeTxSender) GetSignatureStatuses(
	ctx context.Context,
	sigs []solana.Signature,
) ([]*rpc.SignatureStatusesResult, error) {
	p.mx.Lock()
	defer p.mx.Unlock()
	out := make([]*rpc.SignatureStatusesResult, len(sigs))
	for i, sig := range sigs {
		out[i] = p.statuses[sig.String()]
	}
	return out, nil
}

func (p *fakeTxSender) GetTimeoutCount() uint64 {
	return 0
}

func (p *fakeTxSender) sentCount() int {
	p.mx.Lock()
	defer p.mx.Unlock()
	return len(p.sentSigs)
}

func (p *fakeTxSender) confirmAllSent() {
	p.mx.Lock()
	defer p.mx.Unlock()
	for _, sig := range p.sentSigs {
		p.statuses[sig.String()] = &rpc.SignatureStatusesResult{
			ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
		}
	}
}

func makeTriggerNode(orderId uint32, userAccount string) *dlobtypes.NodeToTrigger {
	order := &drift.Order{
		Status:       drift.OrderStatus_Open,
		OrderType:    drift.OrderType_TriggerMarket,
		MarketType:   drift.MarketType_Perp,
		OrderId:      orderId,
		MarketIndex:  0,
		TriggerPrice: 100,
	}
	return &dlobtypes.NodeToTrigger{
		Node: dlob.CreateNode(dlobtypes.NodeTypeTrigger, order, userAccount),
	}
}

func makeTickBot(t *testing.T, book *fakeBook, sender *fakeTxSender, timeoutMs int64) *FillerBot {
	t.Helper()
	wallet, err := fillergo.LoadWallet(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)

	bot := CreateFillerBot(FillerBotConfig{
		MarketIndexes:         []uint16{0},
		SlotSource:            &stubSlotSource{slot: 100},
		DLOBSource:            &fakeDLOBSource{book: book},
		OracleSource:          &fakeOracleSource{price: big.NewInt(100_000_000)},
		BlockhashSubscriber:   &fakeBlockhashes{hash: solana.Hash(solana.NewWallet().PublicKey())},
		TxSender:              sender,
		Wallet:                wallet,
		ConfirmationTimeoutMs: timeoutMs,
	})
	// keep the settle pass out of these ticks
	bot.lastSettlePnl.Store(time.Now().UnixMilli())
	return bot
}

func TestTickSelectsBuildsTracksAndConfirms(t *testing.T) {
	taker := solana.NewWallet().PublicKey().String()
	trigUser := solana.NewWallet().PublicKey().String()
	fillNode := makeNodeToFill(7, taker)
	book := &fakeBook{
		slot:     99, // the view lags the slot source on purpose
		fills:    []*dlobtypes.NodeToFill{fillNode},
		triggers: []*dlobtypes.NodeToTrigger{makeTriggerNode(9, trigUser)},
	}
	sender := &fakeTxSender{statuses: map[string]*rpc.SignatureStatusesResult{}}
	bot := makeTickBot(t, book, sender, 0)

	ctx := context.Background()
	bot.tryFill(ctx)

	assert.Equal(t, uint64(99), book.lastFindSlot, "selection must run at the view's slot")
	require.Equal(t, 2, sender.sentCount(), "one fill tx and one trigger tx")
	assert.Equal(t, 2, bot.pendingFills.Size())
	assert.True(t, bot.pendingFills.IsOrderPending(getNodeToFillSignature(fillNode)))
	assert.True(t, bot.pendingFills.IsOrderPending(dlob.GetOrderSignature(9, trigUser)),
		"the triggered order's identity is claimed while its tx is in flight")

	// both identities are in flight, the next tick sends nothing
	bot.tryFill(ctx)
	assert.Equal(t, 2, sender.sentCount())

	sender.confirmAllSent()
	bot.confirmPendingTxSigs(ctx)

	assert.Equal(t, 0, bot.pendingFills.Size())
	assert.True(t, bot.pendingFills.IsOrderPending(getNodeToFillSignature(fillNode)),
		"landed fills stay excluded until the book reflects them")

	bot.mxTriggeringNodes.RLock()
	triggering := len(bot.triggeringNodes)
	bot.mxTriggeringNodes.RUnlock()
	assert.Equal(t, 0, triggering, "resolved triggers leave no cooldown entries behind")
}

func TestTickExpiryReleasesCandidates(t *testing.T) {
	taker := solana.NewWallet().PublicKey().String()
	fillNode := makeNodeToFill(3, taker)
	book := &fakeBook{slot: 100, fills: []*dlobtypes.NodeToFill{fillNode}}
	sender := &fakeTxSender{statuses: map[string]*rpc.SignatureStatusesResult{}}
	bot := makeTickBot(t, book, sender, 1)

	ctx := context.Background()
	bot.tryFill(ctx)
	require.Equal(t, 1, sender.sentCount())

	// status stays unknown past the timeout, only elapsed time expires it
	time.Sleep(5 * time.Millisecond)
	bot.confirmPendingTxSigs(ctx)

	assert.False(t, bot.pendingFills.IsOrderPending(getNodeToFillSignature(fillNode)))

	bot.tryFill(ctx)
	assert.Equal(t, 2, sender.sentCount(), "expired candidate is selectable again")
}

func TestTickSkippedWhenViewUnavailable(t *testing.T) {
	sender := &fakeTxSender{statuses: map[string]*rpc.SignatureStatusesResult{}}
	bot := makeTickBot(t, &fakeBook{slot: 100}, sender, 0)
	bot.dlobSource = &fakeDLOBSource{err: errors.New("view not ready")}

	bot.tryFill(context.Background())

	assert.Equal(t, 0, sender.sentCount())
	assert.Equal(t, 0, bot.pendingFills.Size())
}
