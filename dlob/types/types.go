package types

import (
	"math/big"

	"fillergo/lib/drift"

	oracles "fillergo/oracles/types"
)

type DLOBNodeType int

const (
	NodeTypeTakingLimit DLOBNodeType = iota
	NodeTypeRestingLimit
	NodeTypeFloatingLimit
	NodeTypeMarket
	NodeTypeTrigger
)

func (value DLOBNodeType) String() string {
	switch value {
	case NodeTypeTrigger:
		return "trg"
	case NodeTypeMarket:
		return "mark"
	case NodeTypeFloatingLimit:
		return "fltLmt"
	case NodeTypeRestingLimit:
		return "rstLmt"
	case NodeTypeTakingLimit:
		return "takLmt"
	default:
		return "unknown"
	}
}

type DLOBNodeSubType int

const (
	NodeSubTypeAsk DLOBNodeSubType = iota
	NodeSubTypeBid
	NodeSubTypeAbove
	NodeSubTypeBelow
)

func (value DLOBNodeSubType) String() string {
	switch value {
	case NodeSubTypeAbove:
		return "above"
	case NodeSubTypeBelow:
		return "below"
	case NodeSubTypeBid:
		return "bid"
	case NodeSubTypeAsk:
		return "ask"
	default:
		return "unknownSubType"
	}
}

type IDLOBNode interface {
	GetPrice(oraclePriceData *oracles.OraclePriceData, slot uint64) *big.Int
	GetOrder() *drift.Order
	GetUserAccount() string
	IsHaveFilled() bool
	IsHaveTrigger() bool
	SetTrigger(bool)
}

// NodeToFill pairs a taker node with the maker nodes it crosses. MakerNodes
// empty means the node fills against fallback liquidity.
type NodeToFill struct {
	Node       IDLOBNode
	MakerNodes []IDLOBNode
}

type NodeToTrigger struct {
	Node IDLOBNode
}

// DLOBFilterFcn lets a caller veto nodes during selection. Returning false
// drops the node.
type DLOBFilterFcn func(node IDLOBNode) bool

type ISlotSource interface {
	GetSlot() uint64
}

// IDLOBSource produces an immutable view of the book at the given slot.
type IDLOBSource interface {
	GetDLOB(slot uint64) (IDLOB, error)
}

type IDLOB interface {
	GetSlot() uint64
	FindNodesToFill(
		marketIndex uint16,
		slot uint64,
		ts int64,
		marketType drift.MarketType,
		oraclePriceData *oracles.OraclePriceData,
		filterFcn DLOBFilterFcn,
	) []*NodeToFill
	FindNodesToTrigger(
		marketIndex uint16,
		marketType drift.MarketType,
		oraclePrice *big.Int,
	) []*NodeToTrigger
	GetBestBid(marketIndex uint16, marketType drift.MarketType, slot uint64, oraclePriceData *oracles.OraclePriceData) *big.Int
	GetBestAsk(marketIndex uint16, marketType drift.MarketType, slot uint64, oraclePriceData *oracles.OraclePriceData) *big.Int
}
