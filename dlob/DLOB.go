package dlob

import (
	"math/big"

	"fillergo/common"
	"fillergo/dlob/types"
	"fillergo/lib/drift"
	"fillergo/math"
	"fillergo/utils"

	oracles "fillergo/oracles/types"
)

type MarketNodeLists map[types.DLOBNodeType]map[types.DLOBNodeSubType]*NodeList

// DLOB is a point-in-time view of all resting orders, tagged with the slot
// it was built at. It is replaced wholesale each tick and never mutated by
// outside callers; matching bookkeeping (fill accounting during selection)
// stays inside the view and dies with it.
type DLOB struct {
	slot       uint64
	OrderLists map[drift.MarketType]map[uint16]MarketNodeLists
}

func NewDLOB(slot uint64) *DLOB {
	p := &DLOB{
		slot: slot,
		OrderLists: map[drift.MarketType]map[uint16]MarketNodeLists{
			drift.MarketType_Perp: make(map[uint16]MarketNodeLists),
			drift.MarketType_Spot: make(map[uint16]MarketNodeLists),
		},
	}
	return p
}

func (p *DLOB) GetSlot() uint64 {
	return p.slot
}

// InitFromUserMap folds every open order of every subscribed user account
// into the book. Orders are copied so later selection bookkeeping never
// touches provider state.
func (p *DLOB) InitFromUserMap(users map[string]*drift.User) {
	for userAccountKey, user := range users {
		for idx := range user.Orders {
			order := user.Orders[idx]
			if order.Status != drift.OrderStatus_Open {
				continue
			}
			p.InsertOrder(&order, userAccountKey)
		}
	}
}

func (p *DLOB) InsertOrder(order *drift.Order, userAccount string) {
	if order.Status != drift.OrderStatus_Open {
		return
	}
	if !math.IsLimitOrder(order) && !math.IsMarketOrder(order) {
		return
	}
	list := p.GetListForOrder(order, p.slot)
	if list != nil {
		orderCopy := *order
		list.Insert(&orderCopy, userAccount)
	}
}

func (p *DLOB) AddOrderList(marketType drift.MarketType, marketIndex uint16) MarketNodeLists {
	nodeLists := MarketNodeLists{
		types.NodeTypeRestingLimit: {
			types.NodeSubTypeAsk: CreateNodeList(types.NodeTypeRestingLimit, SortDirectionAsc),
			types.NodeSubTypeBid: CreateNodeList(types.NodeTypeRestingLimit, SortDirectionDesc),
		},
		types.NodeTypeFloatingLimit: {
			types.NodeSubTypeAsk: CreateNodeList(types.NodeTypeFloatingLimit, SortDirectionAsc),
			types.NodeSubTypeBid: CreateNodeList(types.NodeTypeFloatingLimit, SortDirectionDesc),
		},
		types.NodeTypeTakingLimit: {
			types.NodeSubTypeAsk: CreateNodeList(types.NodeTypeTakingLimit, SortDirectionAsc),
			types.NodeSubTypeBid: CreateNodeList(types.NodeTypeTakingLimit, SortDirectionAsc),
		},
		types.NodeTypeMarket: {
			types.NodeSubTypeAsk: CreateNodeList(types.NodeTypeMarket, SortDirectionAsc),
			types.NodeSubTypeBid: CreateNodeList(types.NodeTypeMarket, SortDirectionAsc),
		},
		types.NodeTypeTrigger: {
			types.NodeSubTypeAbove: CreateNodeList(types.NodeTypeTrigger, SortDirectionAsc),
			types.NodeSubTypeBelow: CreateNodeList(types.NodeTypeTrigger, SortDirectionDesc),
		},
	}
	p.OrderLists[marketType][marketIndex] = nodeLists
	return nodeLists
}

func (p *DLOB) GetListForOrder(order *drift.Order, slot uint64) *NodeList {
	isInactiveTriggerOrder := math.MustBeTriggered(order) && !math.IsTriggered(order)

	var nodeType types.DLOBNodeType
	var subType types.DLOBNodeSubType
	switch {
	case isInactiveTriggerOrder:
		nodeType = types.NodeTypeTrigger
		subType = utils.TT(order.TriggerCondition == drift.OrderTriggerCondition_Above,
			types.NodeSubTypeAbove, types.NodeSubTypeBelow)
	case math.IsMarketOrder(order):
		nodeType = types.NodeTypeMarket
		subType = utils.TT(order.Direction == drift.PositionDirection_Long,
			types.NodeSubTypeBid, types.NodeSubTypeAsk)
	case order.OraclePriceOffset != 0:
		nodeType = types.NodeTypeFloatingLimit
		subType = utils.TT(order.Direction == drift.PositionDirection_Long,
			types.NodeSubTypeBid, types.NodeSubTypeAsk)
	case math.IsRestingLimitOrder(order, slot):
		nodeType = types.NodeTypeRestingLimit
		subType = utils.TT(order.Direction == drift.PositionDirection_Long,
			types.NodeSubTypeBid, types.NodeSubTypeAsk)
	default:
		nodeType = types.NodeTypeTakingLimit
		subType = utils.TT(order.Direction == drift.PositionDirection_Long,
			types.NodeSubTypeBid, types.NodeSubTypeAsk)
	}

	nodeLists, exists := p.OrderLists[order.MarketType][order.MarketIndex]
	if !exists {
		nodeLists = p.AddOrderList(order.MarketType, order.MarketIndex)
	}
	return nodeLists[nodeType][subType]
}

type GeneratorItem struct {
	Next      types.IDLOBNode
	Done      bool
	Generator *common.Generator[types.IDLOBNode, int]
}

// GetBestNode merges multiple sorted node generators into one stream,
// repeatedly picking the best head per compareFn. Fully-filled nodes and
// nodes vetoed by filterFcn are skipped.
func (p *DLOB) GetBestNode(
	generatorList []*common.Generator[types.IDLOBNode, int],
	oraclePriceData *oracles.OraclePriceData,
	slot uint64,
	compareFn func(best types.IDLOBNode, current types.IDLOBNode, slot uint64, oraclePriceData *oracles.OraclePriceData) bool,
	filterFcn types.DLOBFilterFcn,
) *common.Generator[types.IDLOBNode, int] {
	return common.NewGenerator(func(yield common.YieldFn[types.IDLOBNode, int]) {
		idx := 0
		var generators []*GeneratorItem
		for _, generator := range generatorList {
			nextNode, _, done := generator.Next()
			generators = append(generators, &GeneratorItem{
				Next:      nextNode,
				Done:      done,
				Generator: generator,
			})
		}

		for {
			var bestGenerator *GeneratorItem
			for _, current := range generators {
				if current.Done {
					continue
				}
				if bestGenerator == nil || bestGenerator.Done ||
					!compareFn(bestGenerator.Next, current.Next, slot, oraclePriceData) {
					bestGenerator = current
				}
			}
			if bestGenerator == nil || bestGenerator.Done {
				return
			}

			node := bestGenerator.Next
			bestGenerator.Next, _, bestGenerator.Done = bestGenerator.Generator.Next()

			if orderNode, ok := node.(*OrderNode); ok && orderNode.IsBaseFilled() {
				continue
			}
			if filterFcn != nil && !filterFcn(node) {
				continue
			}
			if yield(node, idx) {
				return
			}
			idx++
		}
	})
}

func (p *DLOB) getNodeLists(marketType drift.MarketType, marketIndex uint16) MarketNodeLists {
	nodeLists, exists := p.OrderLists[marketType][marketIndex]
	if !exists {
		nodeLists = p.AddOrderList(marketType, marketIndex)
	}
	return nodeLists
}

func (p *DLOB) GetRestingLimitAsks(
	marketIndex uint16,
	slot uint64,
	marketType drift.MarketType,
	oraclePriceData *oracles.OraclePriceData,
	filterFcn types.DLOBFilterFcn,
) *common.Generator[types.IDLOBNode, int] {
	nodeLists := p.getNodeLists(marketType, marketIndex)
	generatorList := []*common.Generator[types.IDLOBNode, int]{
		nodeLists[types.NodeTypeRestingLimit][types.NodeSubTypeAsk].GetGenerator(),
		nodeLists[types.NodeTypeFloatingLimit][types.NodeSubTypeAsk].GetGenerator(),
	}
	return p.GetBestNode(
		generatorList,
		oraclePriceData,
		slot,
		func(bestNode types.IDLOBNode, currentNode types.IDLOBNode, slot uint64, oraclePriceData *oracles.OraclePriceData) bool {
			return bestNode.GetPrice(oraclePriceData, slot).Cmp(
				currentNode.GetPrice(oraclePriceData, slot),
			) < 0
		},
		filterFcn,
	)
}

func (p *DLOB) GetRestingLimitBids(
	marketIndex uint16,
	slot uint64,
	marketType drift.MarketType,
	oraclePriceData *oracles.OraclePriceData,
	filterFcn types.DLOBFilterFcn,
) *common.Generator[types.IDLOBNode, int] {
	nodeLists := p.getNodeLists(marketType, marketIndex)
	generatorList := []*common.Generator[types.IDLOBNode, int]{
		nodeLists[types.NodeTypeRestingLimit][types.NodeSubTypeBid].GetGenerator(),
		nodeLists[types.NodeTypeFloatingLimit][types.NodeSubTypeBid].GetGenerator(),
	}
	return p.GetBestNode(
		generatorList,
		oraclePriceData,
		slot,
		func(bestNode types.IDLOBNode, currentNode types.IDLOBNode, slot uint64, oraclePriceData *oracles.OraclePriceData) bool {
			return bestNode.GetPrice(oraclePriceData, slot).Cmp(
				currentNode.GetPrice(oraclePriceData, slot),
			) > 0
		},
		filterFcn,
	)
}

// GetTakingAsks and GetTakingBids yield market and still-in-auction limit
// orders, oldest slot first.
func (p *DLOB) GetTakingAsks(
	marketIndex uint16,
	marketType drift.MarketType,
	slot uint64,
	oraclePriceData *oracles.OraclePriceData,
	filterFcn types.DLOBFilterFcn,
) *common.Generator[types.IDLOBNode, int] {
	nodeLists := p.getNodeLists(marketType, marketIndex)
	generatorList := []*common.Generator[types.IDLOBNode, int]{
		nodeLists[types.NodeTypeMarket][types.NodeSubTypeAsk].GetGenerator(),
		nodeLists[types.NodeTypeTakingLimit][types.NodeSubTypeAsk].GetGenerator(),
	}
	return p.GetBestNode(generatorList, oraclePriceData, slot, compareBySlot, filterFcn)
}

func (p *DLOB) GetTakingBids(
	marketIndex uint16,
	marketType drift.MarketType,
	slot uint64,
	oraclePriceData *oracles.OraclePriceData,
	filterFcn types.DLOBFilterFcn,
) *common.Generator[types.IDLOBNode, int] {
	nodeLists := p.getNodeLists(marketType, marketIndex)
	generatorList := []*common.Generator[types.IDLOBNode, int]{
		nodeLists[types.NodeTypeMarket][types.NodeSubTypeBid].GetGenerator(),
		nodeLists[types.NodeTypeTakingLimit][types.NodeSubTypeBid].GetGenerator(),
	}
	return p.GetBestNode(generatorList, oraclePriceData, slot, compareBySlot, filterFcn)
}

func compareBySlot(bestNode types.IDLOBNode, currentNode types.IDLOBNode, slot uint64, oraclePriceData *oracles.OraclePriceData) bool {
	return bestNode.GetOrder().Slot < currentNode.GetOrder().Slot
}

func (p *DLOB) GetBestAsk(
	marketIndex uint16,
	marketType drift.MarketType,
	slot uint64,
	oraclePriceData *oracles.OraclePriceData,
) *big.Int {
	bestAsk, _, done := p.GetRestingLimitAsks(marketIndex, slot, marketType, oraclePriceData, nil).Next()
	if done || bestAsk == nil {
		return nil
	}
	return bestAsk.GetPrice(oraclePriceData, slot)
}

func (p *DLOB) GetBestBid(
	marketIndex uint16,
	marketType drift.MarketType,
	slot uint64,
	oraclePriceData *oracles.OraclePriceData,
) *big.Int {
	bestBid, _, done := p.GetRestingLimitBids(marketIndex, slot, marketType, oraclePriceData, nil).Next()
	if done || bestBid == nil {
		return nil
	}
	return bestBid.GetPrice(oraclePriceData, slot)
}

func (p *DLOB) FindNodesToFill(
	marketIndex uint16,
	slot uint64,
	ts int64,
	marketType drift.MarketType,
	oraclePriceData *oracles.OraclePriceData,
	filterFcn types.DLOBFilterFcn,
) []*types.NodeToFill {
	restingLimitOrderNodesToFill := p.FindRestingLimitOrderNodesToFill(
		marketIndex,
		slot,
		marketType,
		oraclePriceData,
		filterFcn,
	)
	takingOrderNodesToFill := p.FindTakingNodesToFill(
		marketIndex,
		slot,
		marketType,
		oraclePriceData,
		filterFcn,
	)
	expiredNodesToFill := p.FindExpiredNodesToFill(marketIndex, ts, marketType, filterFcn)

	return append(p.MergeNodesToFill(
		restingLimitOrderNodesToFill,
		takingOrderNodesToFill,
	), expiredNodesToFill...)
}

// MergeNodesToFill collapses duplicate taker nodes, concatenating their
// maker candidates.
func (p *DLOB) MergeNodesToFill(
	restingLimitOrderNodesToFill []*types.NodeToFill,
	takingOrderNodesToFill []*types.NodeToFill,
) []*types.NodeToFill {
	mergedNodesToFill := make(map[string]*types.NodeToFill)
	var ordering []string

	mergeNodesToFillHelper := func(nodesToFillArray []*types.NodeToFill) {
		for _, nodeToFill := range nodesToFillArray {
			nodeSignature := GetOrderSignature(nodeToFill.Node.GetOrder().OrderId, nodeToFill.Node.GetUserAccount())
			if _, exists := mergedNodesToFill[nodeSignature]; !exists {
				mergedNodesToFill[nodeSignature] = &types.NodeToFill{
					Node:       nodeToFill.Node,
					MakerNodes: make([]types.IDLOBNode, 0),
				}
				ordering = append(ordering, nodeSignature)
			}
			if len(nodeToFill.MakerNodes) > 0 {
				mergedNodesToFill[nodeSignature].MakerNodes = append(
					mergedNodesToFill[nodeSignature].MakerNodes,
					nodeToFill.MakerNodes...,
				)
			}
		}
	}
	mergeNodesToFillHelper(restingLimitOrderNodesToFill)
	mergeNodesToFillHelper(takingOrderNodesToFill)

	merged := make([]*types.NodeToFill, 0, len(ordering))
	for _, nodeSignature := range ordering {
		merged = append(merged, mergedNodesToFill[nodeSignature])
	}
	return merged
}

func (p *DLOB) FindRestingLimitOrderNodesToFill(
	marketIndex uint16,
	slot uint64,
	marketType drift.MarketType,
	oraclePriceData *oracles.OraclePriceData,
	filterFcn types.DLOBFilterFcn,
) []*types.NodeToFill {
	return p.FindCrossingRestingLimitOrders(marketIndex, slot, marketType, oraclePriceData, filterFcn)
}

func (p *DLOB) FindCrossingRestingLimitOrders(
	marketIndex uint16,
	slot uint64,
	marketType drift.MarketType,
	oraclePriceData *oracles.OraclePriceData,
	filterFcn types.DLOBFilterFcn,
) []*types.NodeToFill {
	nodesToFill := []*types.NodeToFill{}

	p.GetRestingLimitAsks(marketIndex, slot, marketType, oraclePriceData, filterFcn).
		Each(func(askNode types.IDLOBNode, key int) bool {
			done := false
			p.GetRestingLimitBids(marketIndex, slot, marketType, oraclePriceData, filterFcn).
				Each(func(bidNode types.IDLOBNode, key int) bool {
					bidPrice := bidNode.GetPrice(oraclePriceData, slot)
					askPrice := askNode.GetPrice(oraclePriceData, slot)

					// orders don't cross; bids are price-descending so
					// nothing further can cross either
					if bidPrice.Cmp(askPrice) < 0 {
						done = true
						return true
					}

					bidOrder := bidNode.GetOrder()
					askOrder := askNode.GetOrder()

					// can't match orders from the same user
					if bidNode.GetUserAccount() == askNode.GetUserAccount() {
						return false
					}

					takerNode, makerNode := p.DetermineMakerAndTaker(askNode, bidNode)
					if makerNode == nil || takerNode == nil {
						return false
					}

					bidBaseRemaining := bidOrder.BaseAssetAmount - bidOrder.BaseAssetAmountFilled
					askBaseRemaining := askOrder.BaseAssetAmount - askOrder.BaseAssetAmountFilled
					baseFilled := min(bidBaseRemaining, askBaseRemaining)

					newBidOrder := *bidOrder
					newBidOrder.BaseAssetAmountFilled = bidOrder.BaseAssetAmountFilled + baseFilled
					p.GetListForOrder(&newBidOrder, slot).Update(&newBidOrder, bidNode.GetUserAccount())

					newAskOrder := *askOrder
					newAskOrder.BaseAssetAmountFilled = askOrder.BaseAssetAmountFilled + baseFilled
					p.GetListForOrder(&newAskOrder, slot).Update(&newAskOrder, askNode.GetUserAccount())

					nodesToFill = append(nodesToFill, &types.NodeToFill{
						Node:       takerNode,
						MakerNodes: []types.IDLOBNode{makerNode},
					})

					// ask completely filled, move to the next ask
					return newAskOrder.BaseAssetAmount == newAskOrder.BaseAssetAmountFilled
				})
			return done
		})
	return nodesToFill
}

// DetermineMakerAndTaker returns (taker, maker). Post-only orders can only
// make; between two takeable orders the one whose auction completes sooner
// makes.
func (p *DLOB) DetermineMakerAndTaker(
	askNode types.IDLOBNode,
	bidNode types.IDLOBNode,
) (types.IDLOBNode, types.IDLOBNode) {
	askSlot := askNode.GetOrder().Slot + uint64(askNode.GetOrder().AuctionDuration)
	bidSlot := bidNode.GetOrder().Slot + uint64(bidNode.GetOrder().AuctionDuration)

	switch {
	case bidNode.GetOrder().PostOnly && askNode.GetOrder().PostOnly:
		return nil, nil
	case bidNode.GetOrder().PostOnly:
		return askNode, bidNode
	case askNode.GetOrder().PostOnly:
		return bidNode, askNode
	case askSlot <= bidSlot:
		return bidNode, askNode
	default:
		return askNode, bidNode
	}
}

func (p *DLOB) FindTakingNodesToFill(
	marketIndex uint16,
	slot uint64,
	marketType drift.MarketType,
	oraclePriceData *oracles.OraclePriceData,
	filterFcn types.DLOBFilterFcn,
) []*types.NodeToFill {
	var nodesToFill []*types.NodeToFill

	takingAsksCrossingBids := p.FindTakingNodesCrossingMakerNodes(
		marketIndex,
		slot,
		marketType,
		oraclePriceData,
		p.GetTakingAsks(marketIndex, marketType, slot, oraclePriceData, filterFcn),
		func(marketIndex uint16, slot uint64, marketType drift.MarketType, oraclePriceData *oracles.OraclePriceData) *common.Generator[types.IDLOBNode, int] {
			return p.GetRestingLimitBids(marketIndex, slot, marketType, oraclePriceData, filterFcn)
		},
		func(takerPrice *big.Int, makerPrice *big.Int) bool {
			return takerPrice == nil || takerPrice.Cmp(makerPrice) <= 0
		},
	)
	nodesToFill = append(nodesToFill, takingAsksCrossingBids...)

	takingBidsCrossingAsks := p.FindTakingNodesCrossingMakerNodes(
		marketIndex,
		slot,
		marketType,
		oraclePriceData,
		p.GetTakingBids(marketIndex, marketType, slot, oraclePriceData, filterFcn),
		func(marketIndex uint16, slot uint64, marketType drift.MarketType, oraclePriceData *oracles.OraclePriceData) *common.Generator[types.IDLOBNode, int] {
			return p.GetRestingLimitAsks(marketIndex, slot, marketType, oraclePriceData, filterFcn)
		},
		func(takerPrice *big.Int, makerPrice *big.Int) bool {
			return takerPrice == nil || takerPrice.Cmp(makerPrice) >= 0
		},
	)
	nodesToFill = append(nodesToFill, takingBidsCrossingAsks...)

	return nodesToFill
}

type MakerDLOBNodeGeneratorFn func(
	marketIndex uint16,
	slot uint64,
	marketType drift.MarketType,
	oraclePriceData *oracles.OraclePriceData,
) *common.Generator[types.IDLOBNode, int]

func (p *DLOB) FindTakingNodesCrossingMakerNodes(
	marketIndex uint16,
	slot uint64,
	marketType drift.MarketType,
	oraclePriceData *oracles.OraclePriceData,
	takerNodeGenerator *common.Generator[types.IDLOBNode, int],
	makerNodeGeneratorFn MakerDLOBNodeGeneratorFn,
	doesCross func(takerPrice *big.Int, makerPrice *big.Int) bool,
) []*types.NodeToFill {
	var nodesToFill []*types.NodeToFill

	takerNodeGenerator.Each(func(takerNode types.IDLOBNode, key int) bool {
		makerNodeGenerator := makerNodeGeneratorFn(marketIndex, slot, marketType, oraclePriceData)
		makerNodeGenerator.Each(func(makerNode types.IDLOBNode, key int) bool {
			if takerNode.GetUserAccount() == makerNode.GetUserAccount() {
				return false
			}
			makerPrice := makerNode.GetPrice(oraclePriceData, slot)
			takerPrice := takerNode.GetPrice(oraclePriceData, slot)

			if !doesCross(takerPrice, makerPrice) {
				// maker nodes are price-sorted, nothing further crosses
				return true
			}

			nodesToFill = append(nodesToFill, &types.NodeToFill{
				Node:       takerNode,
				MakerNodes: []types.IDLOBNode{makerNode},
			})

			makerOrder := makerNode.GetOrder()
			takerOrder := takerNode.GetOrder()

			makerBaseRemaining := makerOrder.BaseAssetAmount - makerOrder.BaseAssetAmountFilled
			takerBaseRemaining := takerOrder.BaseAssetAmount - takerOrder.BaseAssetAmountFilled
			baseFilled := min(makerBaseRemaining, takerBaseRemaining)

			newMakerOrder := *makerOrder
			newMakerOrder.BaseAssetAmountFilled = makerOrder.BaseAssetAmountFilled + baseFilled
			p.GetListForOrder(&newMakerOrder, slot).Update(&newMakerOrder, makerNode.GetUserAccount())

			newTakerOrder := *takerOrder
			newTakerOrder.BaseAssetAmountFilled = takerOrder.BaseAssetAmountFilled + baseFilled
			p.GetListForOrder(&newTakerOrder, slot).Update(&newTakerOrder, takerNode.GetUserAccount())

			return newTakerOrder.BaseAssetAmountFilled == newTakerOrder.BaseAssetAmount
		})
		return false
	})

	return nodesToFill
}

func (p *DLOB) FindExpiredNodesToFill(
	marketIndex uint16,
	ts int64,
	marketType drift.MarketType,
	filterFcn types.DLOBFilterFcn,
) []*types.NodeToFill {
	nodeLists, exists := p.OrderLists[marketType][marketIndex]
	if !exists {
		return []*types.NodeToFill{}
	}

	generators := []*common.Generator[types.IDLOBNode, int]{
		nodeLists[types.NodeTypeTakingLimit][types.NodeSubTypeBid].GetGenerator(),
		nodeLists[types.NodeTypeRestingLimit][types.NodeSubTypeBid].GetGenerator(),
		nodeLists[types.NodeTypeFloatingLimit][types.NodeSubTypeBid].GetGenerator(),
		nodeLists[types.NodeTypeMarket][types.NodeSubTypeBid].GetGenerator(),
		nodeLists[types.NodeTypeTakingLimit][types.NodeSubTypeAsk].GetGenerator(),
		nodeLists[types.NodeTypeRestingLimit][types.NodeSubTypeAsk].GetGenerator(),
		nodeLists[types.NodeTypeFloatingLimit][types.NodeSubTypeAsk].GetGenerator(),
		nodeLists[types.NodeTypeMarket][types.NodeSubTypeAsk].GetGenerator(),
	}

	var nodesToFill []*types.NodeToFill
	for _, generator := range generators {
		generator.Each(func(node types.IDLOBNode, key int) bool {
			if filterFcn != nil && !filterFcn(node) {
				return false
			}
			if math.IsOrderExpired(node.GetOrder(), ts) {
				nodesToFill = append(nodesToFill, &types.NodeToFill{
					Node:       node,
					MakerNodes: []types.IDLOBNode{},
				})
			}
			return false
		})
	}
	return nodesToFill
}

func (p *DLOB) FindNodesToTrigger(
	marketIndex uint16,
	marketType drift.MarketType,
	oraclePrice *big.Int,
) []*types.NodeToTrigger {
	nodeLists, exists := p.OrderLists[marketType][marketIndex]
	if !exists {
		return []*types.NodeToTrigger{}
	}

	var nodesToTrigger []*types.NodeToTrigger
	nodeLists[types.NodeTypeTrigger][types.NodeSubTypeAbove].GetGenerator().
		Each(func(node types.IDLOBNode, key int) bool {
			if oraclePrice.Cmp(utils.BN(node.GetOrder().TriggerPrice)) > 0 {
				if !node.IsHaveTrigger() {
					nodesToTrigger = append(nodesToTrigger, &types.NodeToTrigger{Node: node})
				}
				return false
			}
			// nodes are sorted ascending by trigger price, no further
			// triggers above
			return true
		})

	nodeLists[types.NodeTypeTrigger][types.NodeSubTypeBelow].GetGenerator().
		Each(func(node types.IDLOBNode, key int) bool {
			if oraclePrice.Cmp(utils.BN(node.GetOrder().TriggerPrice)) < 0 {
				if !node.IsHaveTrigger() {
					nodesToTrigger = append(nodesToTrigger, &types.NodeToTrigger{Node: node})
				}
				return false
			}
			return true
		})

	return nodesToTrigger
}
