package tx

import (
	"context"
	"sync/atomic"

	"fillergo"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-errors/errors"
	"go.uber.org/zap"
)

// BaseTxSender signs with the filler wallet and submits through a single
// rpc connection. Submission is fire-and-forget: confirmation is the
// pending-signature tracker's job, not the sender's.
type BaseTxSender struct {
	connection   *rpc.Client
	wallet       *fillergo.Wallet
	opts         fillergo.ConfirmOptions
	timeoutCount atomic.Uint64
	logger       *zap.Logger
}

func CreateBaseTxSender(
	connection *rpc.Client,
	wallet *fillergo.Wallet,
	opts *fillergo.ConfirmOptions,
	logger *zap.Logger,
) *BaseTxSender {
	return &BaseTxSender{
		connection: connection,
		wallet:     wallet,
		opts:       *opts,
		logger:     logger,
	}
}

func (p *BaseTxSender) Send(
	ctx context.Context,
	tx *solana.Transaction,
	opts *fillergo.ConfirmOptions,
	preSigned bool,
	extraConfirmationOptions *ExtraConfirmationOptions,
) (*TxSigAndSlot, error) {
	if opts == nil {
		opts = &p.opts
	}
	signedTx := tx
	if !preSigned {
		signedTx = p.wallet.SignTransaction(tx)
	}
	if extraConfirmationOptions != nil && extraConfirmationOptions.OnSignedCb != nil {
		extraConfirmationOptions.OnSignedCb()
	}
	rawTx, err := signedTx.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, 1)
	}
	return p.SendRawTransaction(ctx, rawTx, opts)
}

func (p *BaseTxSender) GetTransaction(
	ixs []solana.Instruction,
	lookupTableAccounts []addresslookuptable.KeyedAddressLookupTable,
	blockhash string,
	sign bool,
) (*solana.Transaction, error) {
	addressTables := make(map[solana.PublicKey]solana.PublicKeySlice)
	for _, table := range lookupTableAccounts {
		addressTables[table.Key] = table.State.Addresses
	}
	hash, err := solana.HashFromBase58(blockhash)
	if err != nil {
		return nil, errors.Wrap(err, 1)
	}
	tx, err := solana.NewTransaction(
		ixs,
		hash,
		solana.TransactionPayer(p.wallet.GetPublicKey()),
		solana.TransactionAddressTables(addressTables),
	)
	if err != nil {
		return nil, errors.Wrap(err, 1)
	}
	if sign {
		tx = p.wallet.SignTransaction(tx)
	}
	return tx, nil
}

func (p *BaseTxSender) SendRawTransaction(
	ctx context.Context,
	rawTransaction []byte,
	opts *fillergo.ConfirmOptions,
) (*TxSigAndSlot, error) {
	if opts == nil {
		opts = &p.opts
	}
	txSig, err := p.connection.SendRawTransactionWithOpts(ctx, rawTransaction, opts.TransactionOpts)
	if err != nil {
		p.timeoutCount.Add(1)
		return nil, errors.Wrap(err, 1)
	}
	return &TxSigAndSlot{
		TxSig: txSig,
		Slot:  0,
	}, nil
}

// GetSignatureStatuses looks up the confirmation status of up to 256
// signatures per call. Unknown signatures come back nil.
func (p *BaseTxSender) GetSignatureStatuses(
	ctx context.Context,
	sigs []solana.Signature,
) ([]*rpc.SignatureStatusesResult, error) {
	if len(sigs) == 0 {
		return nil, nil
	}
	out, err := p.connection.GetSignatureStatuses(ctx, true, sigs...)
	if err != nil {
		return nil, errors.Wrap(err, 1)
	}
	if out == nil {
		return nil, errors.New("empty signature statuses response")
	}
	return out.Value, nil
}

func (p *BaseTxSender) GetTimeoutCount() uint64 {
	return p.timeoutCount.Load()
}

// SimulateTransaction runs the transaction against recent state without
// submitting it. Returns the simulated logs and units consumed.
func (p *BaseTxSender) SimulateTransaction(
	ctx context.Context,
	tx *solana.Transaction,
) (*rpc.SimulateTransactionResponse, error) {
	simResult, err := p.connection.SimulateTransactionWithOpts(
		ctx,
		tx,
		&rpc.SimulateTransactionOpts{
			ReplaceRecentBlockhash: true,
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, 1)
	}
	if p.logger != nil && simResult != nil && simResult.Value != nil && simResult.Value.Err != nil {
		p.logger.Debug("transaction simulation error", zap.Any("err", simResult.Value.Err))
	}
	return simResult, nil
}
