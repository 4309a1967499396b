package dlob

import (
	"math/big"
	"testing"

	"fillergo/dlob/types"
	"fillergo/lib/drift"
	"fillergo/utils"

	oracles "fillergo/oracles/types"

	"github.com/davecgh/go-spew/spew"
)

func makeOracle(price uint64) *oracles.OraclePriceData {
	return &oracles.OraclePriceData{
		Price:      utils.BN(price),
		Slot:       100,
		Confidence: big.NewInt(0),
	}
}

func makeLimitOrder(orderId uint32, direction drift.PositionDirection, price uint64, baseAmount uint64) *drift.Order {
	return &drift.Order{
		OrderId:         orderId,
		Slot:            50,
		MarketIndex:     0,
		MarketType:      drift.MarketType_Perp,
		OrderType:       drift.OrderType_Limit,
		Status:          drift.OrderStatus_Open,
		Direction:       direction,
		Price:           price,
		BaseAssetAmount: baseAmount,
	}
}

// go test --run TestFindCrossingRestingLimitOrders
func TestFindCrossingRestingLimitOrders(t *testing.T) {
	book := NewDLOB(100)
	ask := makeLimitOrder(1, drift.PositionDirection_Short, 100*drift.PRICE_PRECISION, 10)
	bid := makeLimitOrder(2, drift.PositionDirection_Long, 105*drift.PRICE_PRECISION, 10)
	bid.Slot = 60
	book.InsertOrder(ask, "userAsk")
	book.InsertOrder(bid, "userBid")

	nodes := book.FindNodesToFill(0, 100, 0, drift.MarketType_Perp, makeOracle(102*drift.PRICE_PRECISION), nil)
	if len(nodes) != 1 {
		t.Fatalf("expected one crossing pair, got %d: %s", len(nodes), spew.Sdump(nodes))
	}
	// the ask rested first, so the bid takes against it
	if nodes[0].Node.GetUserAccount() != "userBid" {
		t.Fatalf("expected bid to take, got taker %s", nodes[0].Node.GetUserAccount())
	}
	if len(nodes[0].MakerNodes) != 1 || nodes[0].MakerNodes[0].GetUserAccount() != "userAsk" {
		t.Fatalf("expected ask to make: %s", spew.Sdump(nodes[0]))
	}
}

// go test --run TestNonCrossingOrdersDoNotFill
func TestNonCrossingOrdersDoNotFill(t *testing.T) {
	book := NewDLOB(100)
	book.InsertOrder(makeLimitOrder(1, drift.PositionDirection_Short, 100*drift.PRICE_PRECISION, 10), "userAsk")
	book.InsertOrder(makeLimitOrder(2, drift.PositionDirection_Long, 95*drift.PRICE_PRECISION, 10), "userBid")

	nodes := book.FindNodesToFill(0, 100, 0, drift.MarketType_Perp, makeOracle(97*drift.PRICE_PRECISION), nil)
	if len(nodes) != 0 {
		t.Fatalf("expected no fills, got %s", spew.Sdump(nodes))
	}
}

// go test --run TestSameUserOrdersDoNotMatch
func TestSameUserOrdersDoNotMatch(t *testing.T) {
	book := NewDLOB(100)
	book.InsertOrder(makeLimitOrder(1, drift.PositionDirection_Short, 100*drift.PRICE_PRECISION, 10), "user")
	book.InsertOrder(makeLimitOrder(2, drift.PositionDirection_Long, 105*drift.PRICE_PRECISION, 10), "user")

	nodes := book.FindNodesToFill(0, 100, 0, drift.MarketType_Perp, makeOracle(102*drift.PRICE_PRECISION), nil)
	if len(nodes) != 0 {
		t.Fatalf("expected no self-match, got %s", spew.Sdump(nodes))
	}
}

// go test --run TestDetermineMakerAndTaker
func TestDetermineMakerAndTaker(t *testing.T) {
	book := NewDLOB(100)

	askOrder := makeLimitOrder(1, drift.PositionDirection_Short, 100, 10)
	bidOrder := makeLimitOrder(2, drift.PositionDirection_Long, 105, 10)
	askNode := CreateNode(types.NodeTypeRestingLimit, askOrder, "userAsk")
	bidNode := CreateNode(types.NodeTypeRestingLimit, bidOrder, "userBid")

	// both post-only cannot match at all
	askOrder.PostOnly = true
	bidOrder.PostOnly = true
	taker, maker := book.DetermineMakerAndTaker(askNode, bidNode)
	if taker != nil || maker != nil {
		t.Fatal("two post-only orders must not pair")
	}

	// a post-only order always makes
	askOrder.PostOnly = false
	taker, maker = book.DetermineMakerAndTaker(askNode, bidNode)
	if taker != askNode || maker != bidNode {
		t.Fatal("post-only bid must make")
	}
	askOrder.PostOnly = true
	bidOrder.PostOnly = false
	taker, maker = book.DetermineMakerAndTaker(askNode, bidNode)
	if taker != bidNode || maker != askNode {
		t.Fatal("post-only ask must make")
	}

	// neither post-only, the earlier auction end makes
	askOrder.PostOnly = false
	askOrder.Slot = 40
	bidOrder.Slot = 60
	taker, maker = book.DetermineMakerAndTaker(askNode, bidNode)
	if taker != bidNode || maker != askNode {
		t.Fatal("ask finishing its auction first must make")
	}
	askOrder.Slot = 80
	taker, maker = book.DetermineMakerAndTaker(askNode, bidNode)
	if taker != askNode || maker != bidNode {
		t.Fatal("bid finishing its auction first must make")
	}
}

// go test --run TestMergeNodesToFillDedupsTakers
func TestMergeNodesToFillDedupsTakers(t *testing.T) {
	book := NewDLOB(100)

	taker := CreateNode(types.NodeTypeRestingLimit, makeLimitOrder(1, drift.PositionDirection_Long, 105, 10), "taker")
	makerA := CreateNode(types.NodeTypeRestingLimit, makeLimitOrder(2, drift.PositionDirection_Short, 100, 5), "makerA")
	makerB := CreateNode(types.NodeTypeRestingLimit, makeLimitOrder(3, drift.PositionDirection_Short, 101, 5), "makerB")

	merged := book.MergeNodesToFill(
		[]*types.NodeToFill{{Node: taker, MakerNodes: []types.IDLOBNode{makerA}}},
		[]*types.NodeToFill{{Node: taker, MakerNodes: []types.IDLOBNode{makerB}}},
	)
	if len(merged) != 1 {
		t.Fatalf("expected one merged taker, got %d", len(merged))
	}
	if len(merged[0].MakerNodes) != 2 {
		t.Fatalf("expected both makers concatenated: %s", spew.Sdump(merged[0]))
	}
}

// go test --run TestRestingBidsSortedPriceDescending
func TestRestingBidsSortedPriceDescending(t *testing.T) {
	book := NewDLOB(100)
	book.InsertOrder(makeLimitOrder(1, drift.PositionDirection_Long, 95*drift.PRICE_PRECISION, 10), "userA")
	book.InsertOrder(makeLimitOrder(2, drift.PositionDirection_Long, 99*drift.PRICE_PRECISION, 10), "userB")
	book.InsertOrder(makeLimitOrder(3, drift.PositionDirection_Short, 101*drift.PRICE_PRECISION, 10), "userC")

	oracle := makeOracle(97 * drift.PRICE_PRECISION)
	bestBid := book.GetBestBid(0, drift.MarketType_Perp, 100, oracle)
	if bestBid == nil || bestBid.Cmp(utils.BN(uint64(99*drift.PRICE_PRECISION))) != 0 {
		t.Fatalf("expected best bid 99, got %v", bestBid)
	}
	bestAsk := book.GetBestAsk(0, drift.MarketType_Perp, 100, oracle)
	if bestAsk == nil || bestAsk.Cmp(utils.BN(uint64(101*drift.PRICE_PRECISION))) != 0 {
		t.Fatalf("expected best ask 101, got %v", bestAsk)
	}
}

// go test --run TestFindExpiredNodesToFill
func TestFindExpiredNodesToFill(t *testing.T) {
	book := NewDLOB(100)
	expiring := makeLimitOrder(1, drift.PositionDirection_Long, 95*drift.PRICE_PRECISION, 10)
	expiring.MaxTs = 1_000
	open := makeLimitOrder(2, drift.PositionDirection_Long, 94*drift.PRICE_PRECISION, 10)
	book.InsertOrder(expiring, "userA")
	book.InsertOrder(open, "userB")

	// not expired at the boundary
	nodes := book.FindExpiredNodesToFill(0, 1_000, drift.MarketType_Perp, nil)
	if len(nodes) != 0 {
		t.Fatalf("order must not expire at its max ts: %s", spew.Sdump(nodes))
	}

	nodes = book.FindExpiredNodesToFill(0, 1_001, drift.MarketType_Perp, nil)
	if len(nodes) != 1 {
		t.Fatalf("expected one expired order, got %d", len(nodes))
	}
	if nodes[0].Node.GetOrder().OrderId != 1 {
		t.Fatalf("wrong node expired: %s", spew.Sdump(nodes[0]))
	}
}

// go test --run TestFindNodesToTrigger
func TestFindNodesToTrigger(t *testing.T) {
	book := NewDLOB(100)

	above := &drift.Order{
		OrderId:          1,
		Slot:             50,
		MarketType:       drift.MarketType_Perp,
		OrderType:        drift.OrderType_TriggerMarket,
		Status:           drift.OrderStatus_Open,
		Direction:        drift.PositionDirection_Long,
		TriggerPrice:     100 * drift.PRICE_PRECISION,
		TriggerCondition: drift.OrderTriggerCondition_Above,
		BaseAssetAmount:  10,
	}
	below := &drift.Order{
		OrderId:          2,
		Slot:             50,
		MarketType:       drift.MarketType_Perp,
		OrderType:        drift.OrderType_TriggerMarket,
		Status:           drift.OrderStatus_Open,
		Direction:        drift.PositionDirection_Short,
		TriggerPrice:     90 * drift.PRICE_PRECISION,
		TriggerCondition: drift.OrderTriggerCondition_Below,
		BaseAssetAmount:  10,
	}
	book.InsertOrder(above, "userAbove")
	book.InsertOrder(below, "userBelow")

	// between the two trigger prices nothing fires
	triggers := book.FindNodesToTrigger(0, drift.MarketType_Perp, utils.BN(uint64(95*drift.PRICE_PRECISION)))
	if len(triggers) != 0 {
		t.Fatalf("expected no triggers, got %s", spew.Sdump(triggers))
	}

	triggers = book.FindNodesToTrigger(0, drift.MarketType_Perp, utils.BN(uint64(101*drift.PRICE_PRECISION)))
	if len(triggers) != 1 || triggers[0].Node.GetOrder().OrderId != 1 {
		t.Fatalf("expected the above-condition order to trigger: %s", spew.Sdump(triggers))
	}

	triggers = book.FindNodesToTrigger(0, drift.MarketType_Perp, utils.BN(uint64(89*drift.PRICE_PRECISION)))
	if len(triggers) != 1 || triggers[0].Node.GetOrder().OrderId != 2 {
		t.Fatalf("expected the below-condition order to trigger: %s", spew.Sdump(triggers))
	}
}

// go test --run TestFilterFcnVetoesNodes
func TestFilterFcnVetoesNodes(t *testing.T) {
	book := NewDLOB(100)
	book.InsertOrder(makeLimitOrder(1, drift.PositionDirection_Short, 100*drift.PRICE_PRECISION, 10), "userAsk")
	book.InsertOrder(makeLimitOrder(2, drift.PositionDirection_Long, 105*drift.PRICE_PRECISION, 10), "userBid")

	veto := func(node types.IDLOBNode) bool {
		return node.GetUserAccount() != "userBid"
	}
	nodes := book.FindNodesToFill(0, 100, 0, drift.MarketType_Perp, makeOracle(102*drift.PRICE_PRECISION), veto)
	if len(nodes) != 0 {
		t.Fatalf("vetoed bid must not fill: %s", spew.Sdump(nodes))
	}
}
