package filler

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"fillergo/dlob"
	dlobtypes "fillergo/dlob/types"
	drift "fillergo/lib/drift"
	"fillergo/types"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeNodeToFill(orderId uint32, userAccount string, makers ...dlobtypes.IDLOBNode) *dlobtypes.NodeToFill {
	order := &drift.Order{
		Status:      drift.OrderStatus_Open,
		OrderType:   drift.OrderType_Limit,
		MarketType:  drift.MarketType_Perp,
		OrderId:     orderId,
		MarketIndex: 0,
	}
	return &dlobtypes.NodeToFill{
		Node:       dlob.CreateNode(dlobtypes.NodeTypeRestingLimit, order, userAccount),
		MakerNodes: makers,
	}
}

func makeMakerNode(orderId uint32, userAccount string) dlobtypes.IDLOBNode {
	order := &drift.Order{
		Status:      drift.OrderStatus_Open,
		OrderType:   drift.OrderType_Limit,
		MarketType:  drift.MarketType_Perp,
		OrderId:     orderId,
		MarketIndex: 0,
	}
	return dlob.CreateNode(dlobtypes.NodeTypeRestingLimit, order, userAccount)
}

func testTxSig(seed byte) solana.Signature {
	var sig solana.Signature
	sig[0] = seed
	return sig
}

func TestReserveClaimsDisjointOrders(t *testing.T) {
	store := CreatePendingFillStore(10_000, nil)

	nodeA := makeNodeToFill(1, "userA")
	nodeB := makeNodeToFill(2, "userB")

	reserved := store.Reserve([]*dlobtypes.NodeToFill{nodeA, nodeB})
	require.Len(t, reserved, 2)

	// both orders are now claimed, a second pass gets nothing
	again := store.Reserve([]*dlobtypes.NodeToFill{nodeA, nodeB})
	assert.Empty(t, again)

	assert.True(t, store.IsOrderPending(dlob.GetOrderSignature(1, "userA")))
	assert.True(t, store.IsOrderPending(dlob.GetOrderSignature(2, "userB")))
	assert.False(t, store.IsOrderPending(dlob.GetOrderSignature(3, "userC")))
}

func TestReserveRejectsNodeSharingMaker(t *testing.T) {
	store := CreatePendingFillStore(10_000, nil)

	maker := makeMakerNode(10, "maker")
	nodeA := makeNodeToFill(1, "userA", maker)
	store.Reserve([]*dlobtypes.NodeToFill{nodeA})

	// a different taker crossing the same maker order is not claimable
	nodeB := makeNodeToFill(2, "userB", makeMakerNode(10, "maker"))
	reserved := store.Reserve([]*dlobtypes.NodeToFill{nodeB})
	assert.Empty(t, reserved)
}

func TestReleaseFreesReservedOrders(t *testing.T) {
	store := CreatePendingFillStore(10_000, nil)

	node := makeNodeToFill(1, "userA")
	store.Reserve([]*dlobtypes.NodeToFill{node})
	store.Release([]*dlobtypes.NodeToFill{node})

	assert.False(t, store.IsOrderPending(dlob.GetOrderSignature(1, "userA")))
	reserved := store.Reserve([]*dlobtypes.NodeToFill{node})
	assert.Len(t, reserved, 1)
}

func TestConfirmKeepsOrdersExcluded(t *testing.T) {
	store := CreatePendingFillStore(10_000, nil)

	node := makeNodeToFill(1, "userA")
	store.Reserve([]*dlobtypes.NodeToFill{node})

	txSig := testTxSig(1)
	store.Register(txSig, []*dlobtypes.NodeToFill{node}, 1, types.TxTypeFill)
	require.Equal(t, 1, store.Size())
	require.Len(t, store.PendingSignatures(), 1)

	resolved := store.Confirm(txSig)
	require.NotNil(t, resolved)
	assert.Equal(t, FillStatusConfirmed, resolved.Status)
	assert.Equal(t, 0, store.Size())
	assert.Empty(t, store.PendingSignatures())

	// the book may still carry the order, so it stays excluded
	assert.True(t, store.IsOrderPending(dlob.GetOrderSignature(1, "userA")))
	assert.Empty(t, store.Reserve([]*dlobtypes.NodeToFill{node}))

	// confirming the same signature twice is a no-op
	assert.Nil(t, store.Confirm(txSig))
}

func TestFailReleasesOrdersImmediately(t *testing.T) {
	store := CreatePendingFillStore(10_000, nil)

	node := makeNodeToFill(1, "userA")
	store.Reserve([]*dlobtypes.NodeToFill{node})
	txSig := testTxSig(2)
	store.Register(txSig, []*dlobtypes.NodeToFill{node}, 1, types.TxTypeFill)

	resolved := store.Fail(txSig)
	require.NotNil(t, resolved)
	assert.Equal(t, 0, store.Size())
	assert.False(t, store.IsOrderPending(dlob.GetOrderSignature(1, "userA")))
	assert.Len(t, store.Reserve([]*dlobtypes.NodeToFill{node}), 1)
}

func TestExpireStaleHonorsTimeout(t *testing.T) {
	timeoutMs := int64(60_000)
	store := CreatePendingFillStore(timeoutMs, nil)

	node := makeNodeToFill(1, "userA")
	store.Reserve([]*dlobtypes.NodeToFill{node})
	txSig := testTxSig(3)
	store.Register(txSig, []*dlobtypes.NodeToFill{node}, 1, types.TxTypeFill)

	// at exactly the timeout boundary nothing expires
	expired := store.ExpireStale(time.Now().UnixMilli() + timeoutMs)
	assert.Empty(t, expired)
	assert.True(t, store.IsOrderPending(dlob.GetOrderSignature(1, "userA")))

	// past the boundary the entry expires and its order is selectable again
	expired = store.ExpireStale(time.Now().UnixMilli() + timeoutMs + 1)
	require.Len(t, expired, 1)
	assert.Equal(t, FillStatusExpired, expired[0].Status)
	assert.Equal(t, 0, store.Size())
	assert.False(t, store.IsOrderPending(dlob.GetOrderSignature(1, "userA")))
	assert.Len(t, store.Reserve([]*dlobtypes.NodeToFill{node}), 1)
}

func TestExpireStaleSkipsFreshEntries(t *testing.T) {
	timeoutMs := int64(60_000)
	store := CreatePendingFillStore(timeoutMs, nil)

	stale := makeNodeToFill(1, "userA")
	fresh := makeNodeToFill(2, "userB")
	store.Reserve([]*dlobtypes.NodeToFill{stale, fresh})
	store.Register(testTxSig(4), []*dlobtypes.NodeToFill{stale}, 1, types.TxTypeFill)
	store.Register(testTxSig(5), []*dlobtypes.NodeToFill{fresh}, 2, types.TxTypeFill)

	// bump only the first entry past the timeout by expiring against a clock
	// just beyond it; both were registered "now", so neither should expire yet
	expired := store.ExpireStale(time.Now().UnixMilli())
	assert.Empty(t, expired)
	assert.Equal(t, 2, store.Size())
}

func TestClearDropsEverything(t *testing.T) {
	store := CreatePendingFillStore(10_000, nil)

	node := makeNodeToFill(1, "userA")
	store.Reserve([]*dlobtypes.NodeToFill{node})
	store.Register(testTxSig(6), []*dlobtypes.NodeToFill{node}, 1, types.TxTypeFill)

	store.Clear()
	assert.Equal(t, 0, store.Size())
	assert.False(t, store.IsOrderPending(dlob.GetOrderSignature(1, "userA")))
}

func TestNoTwoSubmittedEntriesShareOrders(t *testing.T) {
	store := CreatePendingFillStore(10_000, nil)

	node := makeNodeToFill(1, "userA")
	first := store.Reserve([]*dlobtypes.NodeToFill{node})
	require.Len(t, first, 1)
	store.Register(testTxSig(7), first, 1, types.TxTypeFill)

	// while the first tx is in flight the same order cannot enter a second tx
	duplicate := makeNodeToFill(1, "userA")
	assert.Empty(t, store.Reserve([]*dlobtypes.NodeToFill{duplicate}))
}

// Many goroutines reserve and release overlapping random order sets over a
// deliberately tiny identity space. No order signature may ever be held by
// two reservations at once, whatever the interleaving.
func TestReserveKeepsClaimsDisjointAcrossInterleavings(t *testing.T) {
	store := CreatePendingFillStore(60_000, nil)

	users := []string{"userA", "userB", "userC", "userD"}
	const ordersPerUser = 6

	var mxClaims sync.Mutex
	claims := make(map[string]bool)

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 250; i++ {
				var nodes []*dlobtypes.NodeToFill
				for n := 0; n < 1+rng.Intn(3); n++ {
					nodes = append(nodes, makeNodeToFill(
						uint32(rng.Intn(ordersPerUser)),
						users[rng.Intn(len(users))],
					))
				}

				reserved := store.Reserve(nodes)

				mxClaims.Lock()
				for _, node := range reserved {
					sig := getNodeToFillSignature(node)
					if claims[sig] {
						t.Errorf("order %s reserved twice at once", sig)
					}
					claims[sig] = true
				}
				mxClaims.Unlock()

				// drop the shadow claim before the store releases the order,
				// otherwise another worker could legitimately re-reserve it
				// while the shadow entry is still set
				mxClaims.Lock()
				for _, node := range reserved {
					delete(claims, getNodeToFillSignature(node))
				}
				mxClaims.Unlock()
				store.Release(reserved)
			}
		}(int64(worker))
	}
	wg.Wait()

	assert.Equal(t, 0, store.Size())
}
