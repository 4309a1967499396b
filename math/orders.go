package math

import (
	"math/big"

	"fillergo/lib/drift"
	"fillergo/utils"

	oracles "fillergo/oracles/types"
)

func IsLimitOrder(order *drift.Order) bool {
	return order.OrderType == drift.OrderType_Limit || order.OrderType == drift.OrderType_TriggerLimit
}

func IsMarketOrder(order *drift.Order) bool {
	return order.OrderType == drift.OrderType_Market ||
		order.OrderType == drift.OrderType_TriggerMarket ||
		order.OrderType == drift.OrderType_Oracle
}

func MustBeTriggered(order *drift.Order) bool {
	return order.OrderType == drift.OrderType_TriggerMarket || order.OrderType == drift.OrderType_TriggerLimit
}

func IsTriggered(order *drift.Order) bool {
	return order.TriggerCondition == drift.OrderTriggerCondition_TriggeredAbove ||
		order.TriggerCondition == drift.OrderTriggerCondition_TriggeredBelow
}

func IsRestingLimitOrder(order *drift.Order, slot uint64) bool {
	if !IsLimitOrder(order) {
		return false
	}
	return order.PostOnly || IsAuctionComplete(order, slot)
}

func IsTakingOrder(order *drift.Order, slot uint64) bool {
	return IsMarketOrder(order) || !IsRestingLimitOrder(order, slot)
}

func IsOrderExpired(order *drift.Order, ts int64) bool {
	if MustBeTriggered(order) || order.Status != drift.OrderStatus_Open || order.MaxTs == 0 {
		return false
	}
	return ts > order.MaxTs
}

// GetLimitPrice resolves the effective limit price of an order at the given
// slot: auction price while the auction runs, oracle offset for floating
// orders, fixed price otherwise.
func GetLimitPrice(
	order *drift.Order,
	oraclePriceData *oracles.OraclePriceData,
	slot uint64,
) *big.Int {
	if HasAuctionPrice(order, slot) {
		return GetAuctionPrice(order, slot, oraclePriceData.Price)
	}
	if order.OraclePriceOffset != 0 {
		return utils.AddX(oraclePriceData.Price, utils.BN(order.OraclePriceOffset))
	}
	return utils.BN(order.Price)
}

func HasAuctionPrice(order *drift.Order, slot uint64) bool {
	return !IsAuctionComplete(order, slot) &&
		(order.AuctionStartPrice != 0 || order.AuctionEndPrice != 0)
}
