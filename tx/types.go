package tx

import (
	"context"

	"fillergo"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/gagliardetto/solana-go/rpc"
)

type ExtraConfirmationOptions struct {
	OnSignedCb func()
}

type TxSigAndSlot struct {
	TxSig solana.Signature
	Slot  uint64
}

type ITxSender interface {
	Send(
		ctx context.Context,
		tx *solana.Transaction,
		opts *fillergo.ConfirmOptions,
		preSigned bool,
		extraConfirmationOptions *ExtraConfirmationOptions,
	) (*TxSigAndSlot, error)

	GetTransaction(
		ixs []solana.Instruction,
		lookupTableAccounts []addresslookuptable.KeyedAddressLookupTable,
		blockhash string,
		sign bool,
	) (*solana.Transaction, error)

	SendRawTransaction(
		ctx context.Context,
		rawTransaction []byte,
		opts *fillergo.ConfirmOptions,
	) (*TxSigAndSlot, error)

	GetSignatureStatuses(
		ctx context.Context,
		sigs []solana.Signature,
	) ([]*rpc.SignatureStatusesResult, error)

	GetTimeoutCount() uint64
}
