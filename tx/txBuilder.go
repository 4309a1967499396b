package tx

import (
	"fillergo"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/go-errors/errors"
)

const DEFAULT_COMPUTE_UNITS = uint64(200_000)

// BuildTransaction prepends compute-budget instructions to the given
// instructions and assembles a transaction against the provided blockhash.
// The unit-limit ix is omitted at the runtime default and the unit-price ix
// at price zero, matching what the runtime would assume anyway.
func BuildTransaction(
	payer solana.PublicKey,
	instructions []solana.Instruction,
	txParams *fillergo.TxParams,
	recentBlockhash solana.Hash,
	lookupTables []addresslookuptable.KeyedAddressLookupTable,
) (*solana.Transaction, error) {
	baseTxParams := fillergo.BaseTxParams{
		ComputeUnits:      DEFAULT_COMPUTE_UNITS,
		ComputeUnitsPrice: 0,
	}
	if txParams != nil {
		baseTxParams = txParams.BaseTxParams
	}

	allIx := []solana.Instruction{}
	if baseTxParams.ComputeUnits != DEFAULT_COMPUTE_UNITS && baseTxParams.ComputeUnits > 0 {
		allIx = append(allIx, computebudget.NewSetComputeUnitLimitInstructionBuilder().
			SetUnits(uint32(baseTxParams.ComputeUnits)).Build())
	}
	if baseTxParams.ComputeUnitsPrice != 0 {
		allIx = append(allIx, computebudget.NewSetComputeUnitPriceInstructionBuilder().
			SetMicroLamports(baseTxParams.ComputeUnitsPrice).Build())
	}
	allIx = append(allIx, instructions...)

	addressTables := make(map[solana.PublicKey]solana.PublicKeySlice)
	for _, lookupTable := range lookupTables {
		addressTables[lookupTable.Key] = lookupTable.State.Addresses
	}

	transactionBuilder := solana.NewTransactionBuilder().
		SetFeePayer(payer).
		SetRecentBlockHash(recentBlockhash).
		WithOpt(solana.TransactionAddressTables(addressTables))
	for _, instruction := range allIx {
		transactionBuilder.AddInstruction(instruction)
	}
	transaction, err := transactionBuilder.Build()
	if err != nil {
		return nil, errors.Wrap(err, 1)
	}
	return transaction, nil
}

// CalcCompactU16EncodedSize returns the serialized size of a compact-u16
// length-prefixed array of fixed-size elements.
func CalcCompactU16EncodedSize(length uint64, elemSize uint64) uint64 {
	switch {
	case length > 0x3fff:
		return length*elemSize + 3
	case length > 0x7f:
		return length*elemSize + 2
	default:
		t := length * elemSize
		if t < 1 {
			t = 1
		}
		return t + 1
	}
}

// CalcIxEncodedSize estimates the wire size of one instruction inside a
// transaction message.
func CalcIxEncodedSize(ix solana.Instruction) uint64 {
	data, err := ix.Data()
	if err != nil {
		data = make([]byte, 0)
	}
	return 1 +
		CalcCompactU16EncodedSize(uint64(len(ix.Accounts())), 1) +
		CalcCompactU16EncodedSize(uint64(len(data)), 1)
}
