package bundle

import (
	"testing"

	fillertypes "fillergo/types"

	"github.com/stretchr/testify/assert"
)

type stubSlotSource struct {
	slot uint64
}

func (p *stubSlotSource) GetSlot() uint64 {
	return p.slot
}

func newTestSender(t *testing.T) *BundleSender {
	t.Helper()
	return CreateBundleSender(BundleSenderConfig{
		Strategy:           fillertypes.Hybrid,
		MinBundleTip:       10_000,
		MaxBundleTip:       100_000,
		MaxFailBundleCount: 100,
		TipMultiplier:      3.0,
	}, &stubSlotSource{slot: 1_000}, nil)
}

func TestTipClampsToMinWithoutTipStream(t *testing.T) {
	sender := newTestSender(t)
	assert.Equal(t, uint64(10_000), sender.CalculateCurrentTipLamports())
}

func TestTipRampsWithFailedBundles(t *testing.T) {
	sender := newTestSender(t)
	// 50th percentile landed tip of 20k lamports
	sender.lastTipStream = &TipStream{LandedTips50thPercentile: 0.00002}

	base := sender.CalculateCurrentTipLamports()
	assert.Equal(t, uint64(20_000), base)

	// half the fail budget ramps the tip by 1 + 0.25*multiplier
	sender.failBundleCount = 50
	assert.Equal(t, uint64(35_000), sender.CalculateCurrentTipLamports())

	// the full fail budget would quadruple the tip, clamped to the max
	sender.failBundleCount = 100
	assert.Equal(t, uint64(80_000), sender.CalculateCurrentTipLamports())

	sender.lastTipStream = &TipStream{LandedTips50thPercentile: 0.0002}
	assert.Equal(t, uint64(100_000), sender.CalculateCurrentTipLamports())
}

func TestRecordBundleResultAdjustsFailCount(t *testing.T) {
	sender := newTestSender(t)

	sender.RecordBundleResult("a", false, "StateAuctionBidRejected")
	sender.RecordBundleResult("b", false, "WinningBatchBidRejected")
	assert.Equal(t, uint64(2), sender.GetFailBundleCount())

	// simulation failures don't feed the tip ramp
	sender.RecordBundleResult("c", false, "SimulationFailure")
	assert.Equal(t, uint64(2), sender.GetFailBundleCount())

	sender.RecordBundleResult("d", true, "")
	assert.Equal(t, uint64(1), sender.GetFailBundleCount())

	stats := sender.GetBundleStats()
	assert.Equal(t, uint64(1), stats.Accepted)
	assert.Equal(t, uint64(1), stats.StateAuctionBidRejected)
	assert.Equal(t, uint64(1), stats.WinningBatchBidRejected)
	assert.Equal(t, uint64(1), stats.SimulationFailure)
}

func TestSlotsUntilNextLeader(t *testing.T) {
	slots := &stubSlotSource{slot: 1_000}
	sender := CreateBundleSender(BundleSenderConfig{Strategy: fillertypes.JitoOnly}, slots, nil)

	_, known := sender.SlotsUntilNextLeader()
	assert.False(t, known)

	sender.UpdateLeaderSchedule(&JitoLeader{NextLeaderSlot: 1_010})
	distance, known := sender.SlotsUntilNextLeader()
	assert.True(t, known)
	assert.Equal(t, uint64(10), distance)

	// leader slot already reached
	slots.slot = 1_020
	distance, known = sender.SlotsUntilNextLeader()
	assert.True(t, known)
	assert.Equal(t, uint64(0), distance)
}
