package priorityFee

// MaxOverSlotsStrategy returns the largest fee among all retained samples.
// An empty window calculates to 0.
type MaxOverSlotsStrategy struct{}

func (p *MaxOverSlotsStrategy) Calculate(samples []PriorityFeeSample) uint64 {
	if len(samples) == 0 {
		return 0
	}
	runningMaxFee := uint64(0)
	for _, sample := range samples {
		if runningMaxFee < sample.PrioritizationFee {
			runningMaxFee = sample.PrioritizationFee
		}
	}
	return runningMaxFee
}
