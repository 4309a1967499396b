package dlob

import (
	"math/big"

	"fillergo/dlob/types"
	"fillergo/lib/drift"
	"fillergo/math"

	oracles "fillergo/oracles/types"
)

type OrderNode struct {
	Order       *drift.Order
	UserAccount string
	HaveFilled  bool
	HaveTrigger bool

	nodeType  types.DLOBNodeType
	sortValue int64
	next      *OrderNode
	previous  *OrderNode
}

func CreateNode(nodeType types.DLOBNodeType, order *drift.Order, userAccount string) *OrderNode {
	orderNode := &OrderNode{
		Order:       order,
		UserAccount: userAccount,
		nodeType:    nodeType,
	}
	orderNode.sortValue = orderNode.GetSortValue(order)
	return orderNode
}

func (p *OrderNode) GetSortValue(order *drift.Order) int64 {
	switch p.nodeType {
	case types.NodeTypeTakingLimit, types.NodeTypeMarket:
		return int64(order.Slot)
	case types.NodeTypeRestingLimit:
		return int64(order.Price)
	case types.NodeTypeFloatingLimit:
		return int64(order.OraclePriceOffset)
	case types.NodeTypeTrigger:
		return int64(order.TriggerPrice)
	}
	return 0
}

func (p *OrderNode) GetPrice(oraclePriceData *oracles.OraclePriceData, slot uint64) *big.Int {
	return math.GetLimitPrice(p.Order, oraclePriceData, slot)
}

func (p *OrderNode) GetOrder() *drift.Order {
	return p.Order
}

func (p *OrderNode) GetUserAccount() string {
	return p.UserAccount
}

func (p *OrderNode) IsHaveFilled() bool {
	return p.HaveFilled
}

func (p *OrderNode) IsHaveTrigger() bool {
	return p.HaveTrigger
}

func (p *OrderNode) SetTrigger(trigger bool) {
	p.HaveTrigger = trigger
}

func (p *OrderNode) IsBaseFilled() bool {
	return p.Order.BaseAssetAmountFilled == p.Order.BaseAssetAmount
}
