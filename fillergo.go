package fillergo

import (
	"fillergo/event"

	"github.com/gagliardetto/solana-go/rpc"
)

var eventEmitter *event.EventEmitter = nil

func EventEmitter() *event.EventEmitter {
	if eventEmitter == nil {
		eventEmitter = event.CreateEventEmitter()
	}
	return eventEmitter
}

const (
	EventNewSlot       = "newSlot"
	EventNewBlockhash  = "newBlockhash"
	EventFillSubmitted = "fillSubmitted"
)

type ConfirmOptions struct {
	rpc.TransactionOpts
	Commitment rpc.CommitmentType
}

type BaseTxParams struct {
	ComputeUnits      uint64
	ComputeUnitsPrice uint64
}

type TxParams struct {
	BaseTxParams
}
