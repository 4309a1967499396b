package types

import (
	"math/big"
)

type OraclePriceData struct {
	Price      *big.Int
	Slot       uint64
	Confidence *big.Int
}

type OraclePriceDataAndSlot struct {
	Data *OraclePriceData
	Slot uint64
}

// IOracleSource serves point-in-time oracle prices per market index.
type IOracleSource interface {
	GetOraclePriceData(marketIndex uint16) *OraclePriceData
}
