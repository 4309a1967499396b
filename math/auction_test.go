package math

import (
	"testing"

	"fillergo/lib/drift"

	"github.com/stretchr/testify/assert"
)

func TestIsAuctionComplete(t *testing.T) {
	order := &drift.Order{Slot: 100, AuctionDuration: 10}

	assert.False(t, IsAuctionComplete(order, 100), "auction starts at the order slot")
	assert.False(t, IsAuctionComplete(order, 110), "last slot of the window")
	assert.True(t, IsAuctionComplete(order, 111))

	assert.False(t, IsAuctionComplete(order, 95), "slot reading behind the order slot")

	zeroDuration := &drift.Order{Slot: 100, AuctionDuration: 0}
	assert.True(t, IsAuctionComplete(zeroDuration, 100))
}

func TestHasAuctionPriceNeedsAuctionBounds(t *testing.T) {
	order := &drift.Order{Slot: 100, AuctionDuration: 10, AuctionStartPrice: 95_000_000}
	assert.True(t, HasAuctionPrice(order, 105))

	noBounds := &drift.Order{Slot: 100, AuctionDuration: 10}
	assert.False(t, HasAuctionPrice(noBounds, 105))

	assert.False(t, HasAuctionPrice(order, 111), "auction window closed")
}
