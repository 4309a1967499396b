package priorityFee

import (
	"context"
	"slices"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// GetRecentPrioritizationFeesEx calls getRecentPrioritizationFees with an
// optional percentile extension. A node's prioritization-fee cache stores
// data from up to 150 blocks.
func GetRecentPrioritizationFeesEx(
	cl *rpc.Client,
	ctx context.Context,
	accounts solana.PublicKeySlice,
	percentile uint,
) (out []rpc.PriorizationFeeResult, err error) {
	params := []interface{}{accounts}
	if percentile > 0 {
		obj := rpc.M{}
		obj["percentile"] = percentile
		params = append(params, obj)
	}

	err = cl.RPCCallForInto(ctx, &out, "getRecentPrioritizationFees", params)
	return
}

// FetchSolanaPriorityFee fetches recent fees for the given write-locked
// addresses and keeps only samples within lookbackDistance slots of the
// newest observed slot. Results are newest slot first.
func FetchSolanaPriorityFee(
	ctx context.Context,
	connection *rpc.Client,
	lookbackDistance uint64,
	addresses solana.PublicKeySlice,
	percentile uint,
) ([]PriorityFeeSample, error) {
	response, err := GetRecentPrioritizationFeesEx(connection, ctx, addresses, percentile)
	if err != nil {
		return nil, err
	}
	if len(response) == 0 {
		return []PriorityFeeSample{}, nil
	}
	slices.SortFunc(response, func(a, b rpc.PriorizationFeeResult) int {
		if a.Slot < b.Slot {
			return 1
		}
		if a.Slot > b.Slot {
			return -1
		}
		return 0
	})

	cutoffSlot := uint64(0)
	if response[0].Slot > lookbackDistance {
		cutoffSlot = response[0].Slot - lookbackDistance
	}
	var descResults []PriorityFeeSample
	for _, result := range response {
		if result.Slot >= cutoffSlot {
			descResults = append(descResults, PriorityFeeSample{
				Slot:              result.Slot,
				PrioritizationFee: result.PrioritizationFee,
			})
		}
	}
	return descResults, nil
}

// FilterBySlotLookback keeps samples whose slot is at least the newest
// sample's slot minus the lookback distance.
func FilterBySlotLookback(samples []PriorityFeeSample, lookbackDistance uint64) []PriorityFeeSample {
	if len(samples) == 0 {
		return samples
	}
	maxSlot := uint64(0)
	for _, sample := range samples {
		if sample.Slot > maxSlot {
			maxSlot = sample.Slot
		}
	}
	cutoffSlot := uint64(0)
	if maxSlot > lookbackDistance {
		cutoffSlot = maxSlot - lookbackDistance
	}
	retained := make([]PriorityFeeSample, 0, len(samples))
	for _, sample := range samples {
		if sample.Slot >= cutoffSlot {
			retained = append(retained, sample)
		}
	}
	return retained
}
