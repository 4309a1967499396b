package jitmaker

import (
	"math/big"
	"testing"

	dlobtypes "fillergo/dlob/types"
	"fillergo/lib/drift"
	oracles "fillergo/oracles/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubOracleSource struct {
	prices map[uint16]*oracles.OraclePriceData
}

func (p *stubOracleSource) GetOraclePriceData(marketIndex uint16) *oracles.OraclePriceData {
	return p.prices[marketIndex]
}

// stubBook serves fixed best bid/ask levels.
type stubBook struct {
	bestBid *big.Int
	bestAsk *big.Int
}

func (p *stubBook) GetSlot() uint64 {
	return 100
}

func (p *stubBook) FindNodesToFill(
	marketIndex uint16,
	slot uint64,
	ts int64,
	marketType drift.MarketType,
	oraclePriceData *oracles.OraclePriceData,
	filterFcn dlobtypes.DLOBFilterFcn,
) []*dlobtypes.NodeToFill {
	return nil
}

func (p *stubBook) FindNodesToTrigger(
	marketIndex uint16,
	marketType drift.MarketType,
	oraclePrice *big.Int,
) []*dlobtypes.NodeToTrigger {
	return nil
}

func (p *stubBook) GetBestBid(marketIndex uint16, marketType drift.MarketType, slot uint64, oraclePriceData *oracles.OraclePriceData) *big.Int {
	return p.bestBid
}

func (p *stubBook) GetBestAsk(marketIndex uint16, marketType drift.MarketType, slot uint64, oraclePriceData *oracles.OraclePriceData) *big.Int {
	return p.bestAsk
}

func makeMakerBot(prices map[uint16]*oracles.OraclePriceData) *JitMakerBot {
	return &JitMakerBot{
		spreadBps:       20,
		maxPositionBase: 5_000_000,
		subAccountId:    2,
		oracleSource:    &stubOracleSource{prices: prices},
		logger:          zap.NewNop().Sugar(),
	}
}

func TestParamsForMarketSpreadAroundOracle(t *testing.T) {
	// 100 units at price precision, 20 bps half-spread -> 200_000 offsets
	bot := makeMakerBot(map[uint16]*oracles.OraclePriceData{
		0: {Price: big.NewInt(100_000_000), Slot: 100, Confidence: big.NewInt(0)},
	})

	params := bot.paramsForMarket(&stubBook{}, 0, 100)

	require.NotNil(t, params)
	assert.Equal(t, big.NewInt(-200_000), params.Bid)
	assert.Equal(t, big.NewInt(200_000), params.Ask)
	assert.Equal(t, big.NewInt(-5_000_000), params.MinPosition)
	assert.Equal(t, big.NewInt(5_000_000), params.MaxPosition)
	require.NotNil(t, params.SubAccountId)
	assert.Equal(t, uint16(2), *params.SubAccountId)
}

func TestParamsForMarketStaysBehindTheBook(t *testing.T) {
	bot := makeMakerBot(map[uint16]*oracles.OraclePriceData{
		0: {Price: big.NewInt(100_000_000), Slot: 100, Confidence: big.NewInt(0)},
	})
	book := &stubBook{
		bestBid: big.NewInt(99_700_000),  // 300_000 under oracle
		bestAsk: big.NewInt(100_500_000), // 500_000 over oracle
	}

	params := bot.paramsForMarket(book, 0, 100)

	require.NotNil(t, params)
	assert.Equal(t, big.NewInt(-300_000), params.Bid)
	assert.Equal(t, big.NewInt(500_000), params.Ask)
}

func TestParamsForMarketKeepsSpreadInsideTighterBook(t *testing.T) {
	bot := makeMakerBot(map[uint16]*oracles.OraclePriceData{
		0: {Price: big.NewInt(100_000_000), Slot: 100, Confidence: big.NewInt(0)},
	})
	book := &stubBook{
		bestBid: big.NewInt(99_900_000),
		bestAsk: big.NewInt(100_100_000),
	}

	params := bot.paramsForMarket(book, 0, 100)

	require.NotNil(t, params)
	assert.Equal(t, big.NewInt(-200_000), params.Bid)
	assert.Equal(t, big.NewInt(200_000), params.Ask)
}

func TestParamsForMarketSkipsVolatileAndMissingOracles(t *testing.T) {
	price := big.NewInt(100_000_000)
	volatileConfidence := new(big.Int).Div(new(big.Int).Mul(price, big.NewInt(101)), big.NewInt(10_000))
	calmConfidence := new(big.Int).Div(new(big.Int).Mul(price, big.NewInt(100)), big.NewInt(10_000))

	bot := makeMakerBot(map[uint16]*oracles.OraclePriceData{
		0: {Price: price, Slot: 100, Confidence: volatileConfidence},
		1: {Price: price, Slot: 100, Confidence: calmConfidence},
	})

	assert.Nil(t, bot.paramsForMarket(&stubBook{}, 0, 100), "confidence over 100 bps of price")
	assert.NotNil(t, bot.paramsForMarket(&stubBook{}, 1, 100), "confidence at exactly 100 bps is still quotable")
	assert.Nil(t, bot.paramsForMarket(&stubBook{}, 9, 100), "no oracle for market")
}
