package jitmaker

import (
	"context"
	"math/big"

	"fillergo"
	"fillergo/addresses"
	"fillergo/blockhashSubscriber"
	"fillergo/jitter"
	"fillergo/lib/drift"
	oracles "fillergo/oracles/types"
	"fillergo/tx"
	"fillergo/types"
	"fillergo/utils"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/go-errors/errors"
	"go.uber.org/zap"
)

type TxQuoterConfig struct {
	SubAccountId        uint16
	DryRun              bool
	OracleSource        oracles.IOracleSource
	BlockhashSubscriber *blockhashSubscriber.BlockhashSubscriber
	TxSender            tx.ITxSender
	Wallet              *fillergo.Wallet
	Logger              *zap.SugaredLogger
}

// TxQuoter turns one auction quote into a place_and_make_perp_order
// transaction: the quote is placed post-only and matched against the taker
// order in the same transaction, so a missed auction costs only the fee.
type TxQuoter struct {
	subAccountId uint16
	dryRun       bool

	oracleSource oracles.IOracleSource
	bhSubscriber *blockhashSubscriber.BlockhashSubscriber
	txSender     tx.ITxSender
	wallet       *fillergo.Wallet

	stateAccount solana.PublicKey
	userAccount  solana.PublicKey
	userStats    solana.PublicKey

	logger *zap.SugaredLogger
}

func CreateTxQuoter(config TxQuoterConfig) *TxQuoter {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	authority := config.Wallet.GetPublicKey()
	return &TxQuoter{
		subAccountId: config.SubAccountId,
		dryRun:       config.DryRun,
		oracleSource: config.OracleSource,
		bhSubscriber: config.BlockhashSubscriber,
		txSender:     config.TxSender,
		wallet:       config.Wallet,
		stateAccount: addresses.GetDriftStateAccountPublicKey(drift.ProgramID),
		userAccount:  addresses.GetUserAccountPublicKey(drift.ProgramID, authority, config.SubAccountId),
		userStats:    addresses.GetUserStatsAccountPublicKey(drift.ProgramID, authority),
		logger:       logger,
	}
}

func (p *TxQuoter) Quote(params *jitter.QuoteParams, txParams *fillergo.TxParams) (*tx.TxSigAndSlot, error) {
	var takerOrder *drift.Order
	for idx := range params.Taker.Orders {
		if params.Taker.Orders[idx].OrderId == params.TakerOrderId {
			takerOrder = &params.Taker.Orders[idx]
			break
		}
	}
	if takerOrder == nil {
		return nil, types.NewJitterError(errors.New("taker order no longer on the account"))
	}

	oraclePriceData := p.oracleSource.GetOraclePriceData(takerOrder.MarketIndex)
	if oraclePriceData == nil {
		return nil, types.NewJitterError(errors.New("no oracle price for market"))
	}

	// take the opposite side: quote the ask into a taker bid and vice versa
	direction := utils.TT(takerOrder.Direction == drift.PositionDirection_Long,
		drift.PositionDirection_Short, drift.PositionDirection_Long)
	offset := utils.TT(direction == drift.PositionDirection_Short, params.Ask, params.Bid)
	price := new(big.Int).Add(oraclePriceData.Price, offset)
	if price.Sign() <= 0 || !price.IsUint64() {
		return nil, types.NewJitterError(errors.New("quote price out of range"))
	}

	baseAmount := new(big.Int).SetUint64(takerOrder.BaseAssetAmount - takerOrder.BaseAssetAmountFilled)
	if params.MaxPosition != nil && baseAmount.Cmp(params.MaxPosition) > 0 {
		baseAmount = params.MaxPosition
	}
	if baseAmount.Sign() <= 0 || !baseAmount.IsUint64() {
		return nil, types.NewJitterError(errors.New("quote size out of range"))
	}

	orderParams := &drift.OrderParams{
		OrderType:         drift.OrderType_Limit,
		MarketType:        takerOrder.MarketType,
		Direction:         direction,
		BaseAssetAmount:   baseAmount.Uint64(),
		Price:             price.Uint64(),
		MarketIndex:       takerOrder.MarketIndex,
		PostOnly:          drift.PostOnlyParam_MustPostOnly,
		ImmediateOrCancel: true,
	}

	builder := drift.NewPlaceAndMakePerpOrderInstructionBuilder().
		SetStateAccount(p.stateAccount).
		SetUserAccount(p.userAccount).
		SetUserStatsAccount(p.userStats).
		SetTakerAccount(params.TakerKey).
		SetTakerStatsAccount(addresses.GetUserStatsAccountPublicKey(drift.ProgramID, params.Taker.Authority)).
		SetAuthorityAccount(p.wallet.GetPublicKey()).
		SetParams(orderParams).
		SetTakerOrderId(params.TakerOrderId)
	builder.Append(solana.Meta(addresses.GetPerpMarketPublicKey(drift.ProgramID, takerOrder.MarketIndex)).WRITE())

	ix, err := builder.ValidateAndBuild()
	if err != nil {
		return nil, types.NewSdkError(err)
	}

	var ixs []solana.Instruction
	if txParams != nil && txParams.ComputeUnits > 0 {
		ixs = append(ixs, computebudget.NewSetComputeUnitLimitInstructionBuilder().
			SetUnits(uint32(txParams.ComputeUnits)).Build())
	}
	if txParams != nil && txParams.ComputeUnitsPrice > 0 {
		ixs = append(ixs, computebudget.NewSetComputeUnitPriceInstructionBuilder().
			SetMicroLamports(txParams.ComputeUnitsPrice).Build())
	}
	ixs = append(ixs, ix)

	blockhash := p.bhSubscriber.GetLatestBlockhashValue()
	if blockhash.IsZero() {
		return nil, types.NewJitterError(errors.New("no blockhash available"))
	}
	transaction, err := p.txSender.GetTransaction(ixs, nil, blockhash.String(), true)
	if err != nil {
		return nil, types.NewSdkError(err)
	}

	if p.dryRun {
		p.logger.Infow("dry run, not sending quote tx",
			"market", takerOrder.MarketIndex, "takerOrderId", params.TakerOrderId)
		return &tx.TxSigAndSlot{TxSig: transaction.Signatures[0]}, nil
	}
	return p.txSender.Send(context.Background(), transaction, nil, true, nil)
}
