package usermap

import (
	"context"
	"testing"

	"fillergo/lib/drift"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	users map[string]*drift.User
	err   error
	calls int
}

func (p *stubFetcher) FetchUsers(ctx context.Context) (map[string]*drift.User, error) {
	p.calls++
	return p.users, p.err
}

func TestUserMapSubscribeLoadsInitialSnapshot(t *testing.T) {
	fetcher := &stubFetcher{
		users: map[string]*drift.User{
			"userA": {},
			"userB": {},
		},
	}
	userMap := CreateUserMap(UserMapConfig{Fetcher: fetcher})
	require.NoError(t, userMap.Subscribe(context.Background()))
	defer userMap.Unsubscribe()

	assert.Equal(t, 2, userMap.Size())
	_, found := userMap.Get("userA")
	assert.True(t, found)
	_, found = userMap.Get("userC")
	assert.False(t, found)
}

func TestUserMapSubscribeFailsOnFetchError(t *testing.T) {
	fetcher := &stubFetcher{err: assert.AnError}
	userMap := CreateUserMap(UserMapConfig{Fetcher: fetcher})
	assert.Error(t, userMap.Subscribe(context.Background()))
}

func TestConvertOrder(t *testing.T) {
	order, err := convertOrder(&userOrderJSON{
		OrderId:          7,
		Slot:             123,
		MarketIndex:      2,
		MarketType:       "perp",
		OrderType:        "limit",
		Status:           "open",
		Direction:        "long",
		Price:            1_000_000,
		BaseAssetAmount:  500,
		TriggerCondition: "above",
		PostOnly:         true,
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(7), order.OrderId)
	assert.Equal(t, drift.MarketType_Perp, order.MarketType)
	assert.Equal(t, drift.OrderType_Limit, order.OrderType)
	assert.Equal(t, drift.OrderStatus_Open, order.Status)
	assert.Equal(t, drift.PositionDirection_Long, order.Direction)
	assert.True(t, order.PostOnly)
}

func TestConvertOrderRejectsUnknownEnums(t *testing.T) {
	base := userOrderJSON{
		MarketType:       "perp",
		OrderType:        "limit",
		Status:           "open",
		Direction:        "long",
		TriggerCondition: "above",
	}

	bad := base
	bad.MarketType = "prediction"
	_, err := convertOrder(&bad)
	assert.Error(t, err)

	bad = base
	bad.OrderType = "iceberg"
	_, err = convertOrder(&bad)
	assert.Error(t, err)

	bad = base
	bad.Direction = "sideways"
	_, err = convertOrder(&bad)
	assert.Error(t, err)
}

func TestConvertUserSkipsMalformedOrders(t *testing.T) {
	user, err := convertUser(&userJSON{
		UserAccount: "userA",
		Authority:   "11111111111111111111111111111111",
		Orders: []userOrderJSON{
			{MarketType: "perp", OrderType: "limit", Status: "open", Direction: "long", TriggerCondition: "above", OrderId: 1},
			{MarketType: "bogus", OrderType: "limit", Status: "open", Direction: "long", TriggerCondition: "above", OrderId: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, user.Orders, 1)
	assert.Equal(t, uint32(1), user.Orders[0].OrderId)
}
