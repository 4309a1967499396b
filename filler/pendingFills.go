package filler

import (
	"sync"
	"time"

	"fillergo/dlob"
	dlobtypes "fillergo/dlob/types"
	"fillergo/metrics"
	"fillergo/types"

	"github.com/gagliardetto/solana-go"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

type FillStatus int

const (
	FillStatusSubmitted FillStatus = iota
	FillStatusConfirmed
	FillStatusExpired
)

func (value FillStatus) String() string {
	switch value {
	case FillStatusSubmitted:
		return "submitted"
	case FillStatusConfirmed:
		return "confirmed"
	case FillStatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// PendingFill tracks one submitted transaction until its outcome is known.
type PendingFill struct {
	Ts          int64
	TxSig       solana.Signature
	NodesFilled []*dlobtypes.NodeToFill
	FillTxId    int64
	TxType      types.TxType
	Status      FillStatus
}

// PendingFillStore is the single piece of mutable shared state between the
// fill loop and the confirmation loop. An order reserved here cannot be
// reserved again until its transaction is confirmed or expires; reservation
// is a check-and-set under one lock, so overlapping ticks cannot both claim
// the same order.
type PendingFillStore struct {
	confirmationTimeoutMs int64

	pendingTxSigs *expirable.LRU[string, *PendingFill]
	// order signature -> tx signature for every Submitted entry
	activeOrders map[string]string
	// orders whose fill landed, kept excluded until the book drops them
	confirmedOrders *expirable.LRU[string, bool]

	mxState *sync.RWMutex
	logger  *zap.SugaredLogger
}

const pendingFillCacheSize = 10_000

func CreatePendingFillStore(confirmationTimeoutMs int64, logger *zap.SugaredLogger) *PendingFillStore {
	p := &PendingFillStore{
		confirmationTimeoutMs: confirmationTimeoutMs,
		activeOrders:          make(map[string]string),
		mxState:               &sync.RWMutex{},
		logger:                logger,
	}
	// the LRU ttl is a backstop well past the confirmation timeout; expiry
	// itself is decided by Reconcile, never by the cache
	p.pendingTxSigs = expirable.NewLRU[string, *PendingFill](
		pendingFillCacheSize,
		p.onEvicted,
		time.Duration(confirmationTimeoutMs)*time.Millisecond*3,
	)
	p.confirmedOrders = expirable.NewLRU[string, bool](
		pendingFillCacheSize,
		nil,
		time.Duration(confirmationTimeoutMs)*time.Millisecond,
	)
	return p
}

// onEvicted may run on the cache's cleanup goroutine, so it must not touch
// activeOrders; orphaned reservations are swept by ExpireStale instead.
func (p *PendingFillStore) onEvicted(txSig string, fill *PendingFill) {
	if fill.Status != FillStatusSubmitted {
		return
	}
	metrics.IncEvictedPendingTxSigs()
	if p.logger != nil {
		p.logger.Warnw("unresolved pending fill evicted", "txSig", txSig, "fillTxId", fill.FillTxId)
	}
}

func orderSignatures(nodes []*dlobtypes.NodeToFill) []string {
	var sigs []string
	for _, node := range nodes {
		order := node.Node.GetOrder()
		sigs = append(sigs, dlob.GetOrderSignature(order.OrderId, node.Node.GetUserAccount()))
		for _, makerNode := range node.MakerNodes {
			makerOrder := makerNode.GetOrder()
			sigs = append(sigs, dlob.GetOrderSignature(makerOrder.OrderId, makerNode.GetUserAccount()))
		}
	}
	return sigs
}

// IsOrderPending reports whether the order is referenced by a Submitted
// entry, or by a Confirmed one whose removal the book has not reflected yet.
func (p *PendingFillStore) IsOrderPending(orderSignature string) bool {
	defer p.mxState.RUnlock()
	p.mxState.RLock()

	if _, found := p.activeOrders[orderSignature]; found {
		return true
	}
	_, found := p.confirmedOrders.Get(orderSignature)
	return found
}

// Reserve claims the orders of the given nodes. Nodes referencing any
// already-claimed order are dropped; the rest are claimed atomically and
// returned. Reserved nodes must be handed to Register or Release.
func (p *PendingFillStore) Reserve(nodes []*dlobtypes.NodeToFill) []*dlobtypes.NodeToFill {
	defer p.mxState.Unlock()
	p.mxState.Lock()

	var reserved []*dlobtypes.NodeToFill
	for _, node := range nodes {
		sigs := orderSignatures([]*dlobtypes.NodeToFill{node})
		taken := false
		for _, sig := range sigs {
			if _, found := p.activeOrders[sig]; found {
				taken = true
				break
			}
			if _, found := p.confirmedOrders.Get(sig); found {
				taken = true
				break
			}
		}
		if taken {
			continue
		}
		for _, sig := range sigs {
			p.activeOrders[sig] = ""
		}
		reserved = append(reserved, node)
	}
	return reserved
}

// Register records a Submitted entry for a signed-and-sent transaction over
// previously reserved nodes.
func (p *PendingFillStore) Register(
	txSig solana.Signature,
	nodes []*dlobtypes.NodeToFill,
	fillTxId int64,
	txType types.TxType,
) {
	defer p.mxState.Unlock()
	p.mxState.Lock()

	key := txSig.String()
	for _, sig := range orderSignatures(nodes) {
		p.activeOrders[sig] = key
	}
	p.pendingTxSigs.Add(key, &PendingFill{
		Ts:          time.Now().UnixMilli(),
		TxSig:       txSig,
		NodesFilled: nodes,
		FillTxId:    fillTxId,
		TxType:      txType,
		Status:      FillStatusSubmitted,
	})
	metrics.SetPendingTxSigsSize(p.pendingTxSigs.Len())
}

// Release frees reserved orders whose submission never happened.
func (p *PendingFillStore) Release(nodes []*dlobtypes.NodeToFill) {
	defer p.mxState.Unlock()
	p.mxState.Lock()

	for _, sig := range orderSignatures(nodes) {
		delete(p.activeOrders, sig)
	}
}

// PendingSignatures returns the signatures of all Submitted entries.
func (p *PendingFillStore) PendingSignatures() []solana.Signature {
	defer p.mxState.RUnlock()
	p.mxState.RLock()

	var sigs []solana.Signature
	for _, key := range p.pendingTxSigs.Keys() {
		if fill, found := p.pendingTxSigs.Get(key); found && fill.Status == FillStatusSubmitted {
			sigs = append(sigs, fill.TxSig)
		}
	}
	return sigs
}

// Confirm transitions a Submitted entry to Confirmed. Its orders stay
// excluded from selection until the confirmed-order ttl lapses, by which
// point the book reflects the fill.
func (p *PendingFillStore) Confirm(txSig solana.Signature) *PendingFill {
	defer p.mxState.Unlock()
	p.mxState.Lock()

	key := txSig.String()
	fill, found := p.pendingTxSigs.Get(key)
	if !found || fill.Status != FillStatusSubmitted {
		return nil
	}
	resolved := *fill
	resolved.Status = FillStatusConfirmed
	for _, sig := range orderSignatures(fill.NodesFilled) {
		delete(p.activeOrders, sig)
		p.confirmedOrders.Add(sig, true)
	}
	p.pendingTxSigs.Remove(key)
	metrics.SetPendingTxSigsSize(p.pendingTxSigs.Len())
	return &resolved
}

// Fail removes an entry whose transaction landed but errored, releasing its
// orders immediately; the fill never happened, so the book state they carry
// is still live.
func (p *PendingFillStore) Fail(txSig solana.Signature) *PendingFill {
	defer p.mxState.Unlock()
	p.mxState.Lock()

	key := txSig.String()
	fill, found := p.pendingTxSigs.Get(key)
	if !found || fill.Status != FillStatusSubmitted {
		return nil
	}
	resolved := *fill
	resolved.Status = FillStatusExpired
	for _, sig := range orderSignatures(fill.NodesFilled) {
		delete(p.activeOrders, sig)
	}
	p.pendingTxSigs.Remove(key)
	metrics.SetPendingTxSigsSize(p.pendingTxSigs.Len())
	return &resolved
}

// ExpireStale transitions every Submitted entry older than the confirmation
// timeout to Expired and releases its orders for re-selection. Returns the
// expired entries.
func (p *PendingFillStore) ExpireStale(nowMs int64) []*PendingFill {
	defer p.mxState.Unlock()
	p.mxState.Lock()

	var expired []*PendingFill
	for _, key := range p.pendingTxSigs.Keys() {
		fill, found := p.pendingTxSigs.Get(key)
		if !found || fill.Status != FillStatusSubmitted {
			continue
		}
		if nowMs-fill.Ts <= p.confirmationTimeoutMs {
			continue
		}
		resolved := *fill
		resolved.Status = FillStatusExpired
		for _, sig := range orderSignatures(fill.NodesFilled) {
			delete(p.activeOrders, sig)
		}
		p.pendingTxSigs.Remove(key)
		expired = append(expired, &resolved)
	}
	// sweep reservations whose entry the cache evicted behind our back
	for sig, txSig := range p.activeOrders {
		if txSig == "" {
			continue
		}
		if _, found := p.pendingTxSigs.Get(txSig); !found {
			delete(p.activeOrders, sig)
		}
	}
	if len(expired) > 0 {
		metrics.SetPendingTxSigsSize(p.pendingTxSigs.Len())
	}
	return expired
}

func (p *PendingFillStore) Size() int {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.pendingTxSigs.Len()
}

func (p *PendingFillStore) Clear() {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.pendingTxSigs.Purge()
	p.confirmedOrders.Purge()
	p.activeOrders = make(map[string]string)
}
