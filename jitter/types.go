package jitter

import (
	"math/big"

	"fillergo"
	"fillergo/lib/drift"
	"fillergo/tx"

	"github.com/gagliardetto/solana-go"
)

type UserFilter func(userAccount *drift.User, userKey string, order *drift.Order) bool

// JitParams are the standing quote bounds for one market. Bid and Ask are
// price offsets, Min/MaxPosition bound the inventory the maker will take.
type JitParams struct {
	Bid          *big.Int
	Ask          *big.Int
	MinPosition  *big.Int
	MaxPosition  *big.Int
	SubAccountId *uint16
}

// QuoteParams describes one auction the jitter wants to quote against.
type QuoteParams struct {
	TakerKey     solana.PublicKey
	Taker        *drift.User
	TakerOrderId uint32
	MaxPosition  *big.Int
	MinPosition  *big.Int
	Bid          *big.Int
	Ask          *big.Int
	SubAccountId *uint16
}

// IJitQuoter submits a quote transaction against a taker auction.
type IJitQuoter interface {
	Quote(params *QuoteParams, txParams *fillergo.TxParams) (*tx.TxSigAndSlot, error)
}

type IJitter interface {
	Subscribe() error
	Unsubscribe()
	UpdatePerpParams(marketIndex uint16, params *JitParams)
	UpdateSpotParams(marketIndex uint16, params *JitParams)
	SetUserFilter(userFilter UserFilter)
	SetComputeUnits(computeUnits uint64)
	SetComputeUnitsPrice(computeUnitsPrice uint64)
}
