// Package drift holds the subset of on-chain account state the bot reads.
// Only fields the fill pipeline touches are modelled; the program itself is
// an external collaborator.
package drift

import (
	"github.com/gagliardetto/solana-go"
)

type MarketType int

const (
	MarketType_Perp MarketType = iota
	MarketType_Spot
)

func (value MarketType) String() string {
	switch value {
	case MarketType_Perp:
		return "perp"
	case MarketType_Spot:
		return "spot"
	default:
		return "unknown"
	}
}

type PositionDirection int

const (
	PositionDirection_Long PositionDirection = iota
	PositionDirection_Short
)

type OrderStatus int

const (
	OrderStatus_Init OrderStatus = iota
	OrderStatus_Open
	OrderStatus_Filled
	OrderStatus_Canceled
)

type OrderType int

const (
	OrderType_Market OrderType = iota
	OrderType_Limit
	OrderType_TriggerMarket
	OrderType_TriggerLimit
	OrderType_Oracle
)

type OrderTriggerCondition int

const (
	OrderTriggerCondition_Above OrderTriggerCondition = iota
	OrderTriggerCondition_Below
	OrderTriggerCondition_TriggeredAbove
	OrderTriggerCondition_TriggeredBelow
)

type Order struct {
	OrderId               uint32
	Slot                  uint64
	MarketIndex           uint16
	MarketType            MarketType
	OrderType             OrderType
	Status                OrderStatus
	Direction             PositionDirection
	Price                 uint64
	OraclePriceOffset     int32
	BaseAssetAmount       uint64
	BaseAssetAmountFilled uint64
	TriggerPrice          uint64
	TriggerCondition      OrderTriggerCondition
	AuctionStartPrice     int64
	AuctionEndPrice       int64
	AuctionDuration       uint8
	MaxTs                 int64
	PostOnly              bool
}

type User struct {
	Authority solana.PublicKey
	Orders    []Order
}

// PostOnlyParam controls how the program treats a crossing post-only order.
type PostOnlyParam int

const (
	PostOnlyParam_None PostOnlyParam = iota
	PostOnlyParam_MustPostOnly
	PostOnlyParam_TryPostOnly
	PostOnlyParam_Slide
)

// OrderParams is the borsh payload of order-placing instructions.
type OrderParams struct {
	OrderType         OrderType
	MarketType        MarketType
	Direction         PositionDirection
	UserOrderId       uint8
	BaseAssetAmount   uint64
	Price             uint64
	MarketIndex       uint16
	ReduceOnly        bool
	PostOnly          PostOnlyParam
	ImmediateOrCancel bool
	MaxTs             *int64
	TriggerPrice      *uint64
	TriggerCondition  OrderTriggerCondition
	OraclePriceOffset *int32
	AuctionDuration   *uint8
	AuctionStartPrice *int64
	AuctionEndPrice   *int64
}

const QUOTE_SPOT_MARKET_INDEX = uint16(0)

// PRICE_PRECISION is the fixed-point scale of on-book prices.
const PRICE_PRECISION = uint64(1_000_000)
