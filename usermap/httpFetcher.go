package usermap

import (
	"context"
	"encoding/json"
	"fmt"

	"fillergo/lib/drift"

	"github.com/go-errors/errors"
	"github.com/go-resty/resty/v2"
)

type userOrderJSON struct {
	OrderId               uint32 `json:"orderId"`
	Slot                  uint64 `json:"slot"`
	MarketIndex           uint16 `json:"marketIndex"`
	MarketType            string `json:"marketType"`
	OrderType             string `json:"orderType"`
	Status                string `json:"status"`
	Direction             string `json:"direction"`
	Price                 uint64 `json:"price,string"`
	OraclePriceOffset     int32  `json:"oraclePriceOffset"`
	BaseAssetAmount       uint64 `json:"baseAssetAmount,string"`
	BaseAssetAmountFilled uint64 `json:"baseAssetAmountFilled,string"`
	TriggerPrice          uint64 `json:"triggerPrice,string"`
	TriggerCondition      string `json:"triggerCondition"`
	AuctionStartPrice     int64  `json:"auctionStartPrice,string"`
	AuctionEndPrice       int64  `json:"auctionEndPrice,string"`
	AuctionDuration       uint8  `json:"auctionDuration"`
	MaxTs                 int64  `json:"maxTs,string"`
	PostOnly              bool   `json:"postOnly"`
	ReduceOnly            bool   `json:"reduceOnly"`
}

type userJSON struct {
	UserAccount string          `json:"userAccount"`
	Authority   string          `json:"authority"`
	Orders      []userOrderJSON `json:"orders"`
}

// HttpUserFetcher pulls open-order state from a companion account service
// that mirrors on-chain user accounts into JSON.
type HttpUserFetcher struct {
	client   *resty.Client
	endpoint string
}

func CreateHttpUserFetcher(client *resty.Client, endpoint string) *HttpUserFetcher {
	return &HttpUserFetcher{
		client:   client,
		endpoint: endpoint,
	}
}

func (p *HttpUserFetcher) FetchUsers(ctx context.Context) (map[string]*drift.User, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/users", p.endpoint))
	if err != nil {
		return nil, errors.Wrap(err, 1)
	}
	if !resp.IsSuccess() {
		return nil, errors.Errorf("users endpoint returned status %d", resp.StatusCode())
	}
	var payload []userJSON
	if err = json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, errors.Wrap(err, 1)
	}

	users := make(map[string]*drift.User, len(payload))
	for _, entry := range payload {
		user, err := convertUser(&entry)
		if err != nil {
			continue
		}
		users[entry.UserAccount] = user
	}
	return users, nil
}
