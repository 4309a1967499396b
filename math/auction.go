package math

import (
	"math/big"

	"fillergo/lib/drift"
	"fillergo/utils"
)

func IsAuctionComplete(order *drift.Order, slot uint64) bool {
	if order.AuctionDuration == 0 {
		return true
	}
	// the order's slot can run ahead of a lagging slot reading
	if slot <= order.Slot {
		return false
	}
	return slot-order.Slot > uint64(order.AuctionDuration)
}

func GetAuctionPrice(order *drift.Order, slot uint64, oraclePrice *big.Int) *big.Int {
	if order.OrderType == drift.OrderType_Oracle {
		return getAuctionPriceForOracleOffsetAuction(order, slot, oraclePrice)
	}
	return getAuctionPriceForFixedAuction(order, slot)
}

func getAuctionPriceForFixedAuction(order *drift.Order, slot uint64) *big.Int {
	slotsElapsed := slot - order.Slot

	deltaDenominator := uint64(order.AuctionDuration)
	deltaNumerator := min(slotsElapsed, deltaDenominator)
	if deltaDenominator == 0 {
		return utils.BN(order.AuctionEndPrice)
	}

	var priceDelta *big.Int
	if order.Direction == drift.PositionDirection_Long {
		priceDelta = utils.DivX(
			utils.MulX(utils.BN(order.AuctionEndPrice-order.AuctionStartPrice), utils.BN(deltaNumerator)),
			utils.BN(deltaDenominator),
		)
		return utils.AddX(utils.BN(order.AuctionStartPrice), priceDelta)
	}
	priceDelta = utils.DivX(
		utils.MulX(utils.BN(order.AuctionStartPrice-order.AuctionEndPrice), utils.BN(deltaNumerator)),
		utils.BN(deltaDenominator),
	)
	return utils.SubX(utils.BN(order.AuctionStartPrice), priceDelta)
}

func getAuctionPriceForOracleOffsetAuction(
	order *drift.Order,
	slot uint64,
	oraclePrice *big.Int,
) *big.Int {
	slotsElapsed := slot - order.Slot

	deltaDenominator := uint64(order.AuctionDuration)
	deltaNumerator := min(slotsElapsed, deltaDenominator)
	if deltaDenominator == 0 {
		return utils.AddX(oraclePrice, utils.BN(order.AuctionEndPrice))
	}

	var priceOffsetDelta *big.Int
	if order.Direction == drift.PositionDirection_Long {
		priceOffsetDelta = utils.DivX(
			utils.MulX(utils.BN(order.AuctionEndPrice-order.AuctionStartPrice), utils.BN(deltaNumerator)),
			utils.BN(deltaDenominator),
		)
		return utils.AddX(oraclePrice, utils.BN(order.AuctionStartPrice), priceOffsetDelta)
	}
	priceOffsetDelta = utils.DivX(
		utils.MulX(utils.BN(order.AuctionStartPrice-order.AuctionEndPrice), utils.BN(deltaNumerator)),
		utils.BN(deltaDenominator),
	)
	return utils.SubX(utils.AddX(oraclePrice, utils.BN(order.AuctionStartPrice)), priceOffsetDelta)
}
