package priorityFee

// AverageOverSlotsStrategy returns the arithmetic mean of all retained
// samples, rounded down. An empty window calculates to 0.
type AverageOverSlotsStrategy struct{}

func (p *AverageOverSlotsStrategy) Calculate(samples []PriorityFeeSample) uint64 {
	if len(samples) == 0 {
		return 0
	}
	runningSumFees := uint64(0)
	for _, sample := range samples {
		runningSumFees += sample.PrioritizationFee
	}
	return runningSumFees / uint64(len(samples))
}
