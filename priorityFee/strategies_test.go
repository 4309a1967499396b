package priorityFee

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAverageOverSlotsStrategy(t *testing.T) {
	strategy := &AverageOverSlotsStrategy{}

	samples := []PriorityFeeSample{
		{Slot: 10, PrioritizationFee: 100},
		{Slot: 10, PrioritizationFee: 200},
	}
	assert.Equal(t, uint64(150), strategy.Calculate(samples))
	assert.Equal(t, uint64(0), strategy.Calculate(nil))
	assert.Equal(t, uint64(0), strategy.Calculate([]PriorityFeeSample{}))
}

func TestAverageOverSlotsStrategyTruncates(t *testing.T) {
	strategy := &AverageOverSlotsStrategy{}
	samples := []PriorityFeeSample{
		{Slot: 1, PrioritizationFee: 1},
		{Slot: 2, PrioritizationFee: 2},
	}
	assert.Equal(t, uint64(1), strategy.Calculate(samples))
}

func TestMaxOverSlotsStrategy(t *testing.T) {
	strategy := &MaxOverSlotsStrategy{}

	samples := []PriorityFeeSample{
		{Slot: 10, PrioritizationFee: 100},
		{Slot: 10, PrioritizationFee: 200},
	}
	assert.Equal(t, uint64(200), strategy.Calculate(samples))
	assert.Equal(t, uint64(0), strategy.Calculate(nil))
}

func TestFilterBySlotLookback(t *testing.T) {
	samples := []PriorityFeeSample{
		{Slot: 100, PrioritizationFee: 1},
		{Slot: 90, PrioritizationFee: 2},
		{Slot: 40, PrioritizationFee: 3},
	}
	retained := FilterBySlotLookback(samples, 50)
	assert.Len(t, retained, 2)
	for _, sample := range retained {
		assert.GreaterOrEqual(t, sample.Slot, uint64(50))
	}
}

func TestFilterBySlotLookbackSmallSlots(t *testing.T) {
	// max slot below the lookback distance must not underflow the cutoff
	samples := []PriorityFeeSample{
		{Slot: 5, PrioritizationFee: 1},
		{Slot: 3, PrioritizationFee: 2},
	}
	retained := FilterBySlotLookback(samples, 50)
	assert.Len(t, retained, 2)
}

func TestLookbackThenAverage(t *testing.T) {
	samples := []PriorityFeeSample{
		{Slot: 495, PrioritizationFee: 10},
		{Slot: 498, PrioritizationFee: 20},
		{Slot: 500, PrioritizationFee: 30},
	}
	retained := FilterBySlotLookback(samples, 10)
	assert.Len(t, retained, 3)

	strategy := &AverageOverSlotsStrategy{}
	assert.Equal(t, uint64(20), strategy.Calculate(retained))

	maxStrategy := &MaxOverSlotsStrategy{}
	assert.Equal(t, uint64(30), maxStrategy.Calculate(retained))
}
