package priorityFee

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-errors/errors"
	"github.com/go-resty/resty/v2"
)

type DriftPriorityFeeLevels struct {
	Min         uint64 `json:"min"`
	Low         uint64 `json:"low"`
	Medium      uint64 `json:"medium"`
	High        uint64 `json:"high"`
	VeryHigh    uint64 `json:"veryHigh"`
	UnsafeMax   uint64 `json:"unsafeMax"`
	MarketType  string `json:"marketType"`
	MarketIndex uint16 `json:"marketIndex"`
}

type DriftPriorityFeeResponse []DriftPriorityFeeLevels

// FetchDriftPriorityFee queries the cached batch fee endpoint for the given
// markets.
func FetchDriftPriorityFee(
	client *resty.Client,
	url string,
	marketTypes []string,
	marketIndexes []uint16,
) (DriftPriorityFeeResponse, error) {
	var marketIndexStrings []string
	for _, marketIndex := range marketIndexes {
		marketIndexStrings = append(marketIndexStrings, fmt.Sprintf("%d", marketIndex))
	}
	resp, err := client.R().
		SetQueryParams(map[string]string{
			"marketType":  strings.Join(marketTypes, ","),
			"marketIndex": strings.Join(marketIndexStrings, ","),
		}).
		Get(fmt.Sprintf("%s/batchPriorityFees", url))
	if err != nil {
		return nil, errors.Wrap(err, 1)
	}
	if !resp.IsSuccess() {
		return nil, errors.Errorf("batchPriorityFees returned status %d", resp.StatusCode())
	}
	var response DriftPriorityFeeResponse
	err = json.Unmarshal(resp.Body(), &response)
	if err != nil {
		return nil, errors.Wrap(err, 1)
	}
	return response, nil
}
