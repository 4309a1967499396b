package usermap

import (
	"fillergo/lib/drift"

	"github.com/gagliardetto/solana-go"
	"github.com/go-errors/errors"
)

func convertUser(entry *userJSON) (*drift.User, error) {
	authority, err := solana.PublicKeyFromBase58(entry.Authority)
	if err != nil {
		return nil, errors.Wrap(err, 1)
	}
	user := &drift.User{
		Authority: authority,
		Orders:    make([]drift.Order, 0, len(entry.Orders)),
	}
	for _, order := range entry.Orders {
		converted, err := convertOrder(&order)
		if err != nil {
			continue
		}
		user.Orders = append(user.Orders, *converted)
	}
	return user, nil
}

func convertOrder(order *userOrderJSON) (*drift.Order, error) {
	marketType, err := parseMarketType(order.MarketType)
	if err != nil {
		return nil, err
	}
	orderType, err := parseOrderType(order.OrderType)
	if err != nil {
		return nil, err
	}
	status, err := parseOrderStatus(order.Status)
	if err != nil {
		return nil, err
	}
	direction, err := parseDirection(order.Direction)
	if err != nil {
		return nil, err
	}
	triggerCondition, err := parseTriggerCondition(order.TriggerCondition)
	if err != nil {
		return nil, err
	}
	return &drift.Order{
		OrderId:               order.OrderId,
		Slot:                  order.Slot,
		MarketIndex:           order.MarketIndex,
		MarketType:            marketType,
		OrderType:             orderType,
		Status:                status,
		Direction:             direction,
		Price:                 order.Price,
		OraclePriceOffset:     order.OraclePriceOffset,
		BaseAssetAmount:       order.BaseAssetAmount,
		BaseAssetAmountFilled: order.BaseAssetAmountFilled,
		TriggerPrice:          order.TriggerPrice,
		TriggerCondition:      triggerCondition,
		AuctionStartPrice:     order.AuctionStartPrice,
		AuctionEndPrice:       order.AuctionEndPrice,
		AuctionDuration:       order.AuctionDuration,
		MaxTs:                 order.MaxTs,
		PostOnly:              order.PostOnly,
	}, nil
}

func parseMarketType(name string) (drift.MarketType, error) {
	switch name {
	case "perp":
		return drift.MarketType_Perp, nil
	case "spot":
		return drift.MarketType_Spot, nil
	default:
		return drift.MarketType_Perp, errors.Errorf("unknown market type %q", name)
	}
}

func parseOrderType(name string) (drift.OrderType, error) {
	switch name {
	case "market":
		return drift.OrderType_Market, nil
	case "limit":
		return drift.OrderType_Limit, nil
	case "triggerMarket":
		return drift.OrderType_TriggerMarket, nil
	case "triggerLimit":
		return drift.OrderType_TriggerLimit, nil
	case "oracle":
		return drift.OrderType_Oracle, nil
	default:
		return drift.OrderType_Market, errors.Errorf("unknown order type %q", name)
	}
}

func parseOrderStatus(name string) (drift.OrderStatus, error) {
	switch name {
	case "init":
		return drift.OrderStatus_Init, nil
	case "open":
		return drift.OrderStatus_Open, nil
	case "filled":
		return drift.OrderStatus_Filled, nil
	case "canceled":
		return drift.OrderStatus_Canceled, nil
	default:
		return drift.OrderStatus_Init, errors.Errorf("unknown order status %q", name)
	}
}

func parseDirection(name string) (drift.PositionDirection, error) {
	switch name {
	case "long":
		return drift.PositionDirection_Long, nil
	case "short":
		return drift.PositionDirection_Short, nil
	default:
		return drift.PositionDirection_Long, errors.Errorf("unknown direction %q", name)
	}
}

func parseTriggerCondition(name string) (drift.OrderTriggerCondition, error) {
	switch name {
	case "above":
		return drift.OrderTriggerCondition_Above, nil
	case "below":
		return drift.OrderTriggerCondition_Below, nil
	case "triggeredAbove":
		return drift.OrderTriggerCondition_TriggeredAbove, nil
	case "triggeredBelow":
		return drift.OrderTriggerCondition_TriggeredBelow, nil
	default:
		return drift.OrderTriggerCondition_Above, errors.Errorf("unknown trigger condition %q", name)
	}
}
