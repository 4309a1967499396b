package addresses

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

func GetDriftStateAccountPublicKey(
	programId solana.PublicKey,
) solana.PublicKey {
	address, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("drift_state")},
		programId,
	)
	if err != nil {
		return solana.PublicKey{}
	}
	return address
}

func GetUserAccountPublicKey(
	programId solana.PublicKey,
	authority solana.PublicKey,
	subAccountIds ...uint16,
) solana.PublicKey {
	var subAccountId uint16 = 0
	if len(subAccountIds) > 0 {
		subAccountId = subAccountIds[0]
	}
	seed := make([]byte, 2)
	binary.LittleEndian.PutUint16(seed, subAccountId)
	address, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte("user"),
			authority.Bytes(),
			seed,
		},
		programId,
	)
	if err != nil {
		return solana.PublicKey{}
	}
	return address
}

func GetUserStatsAccountPublicKey(
	programId solana.PublicKey,
	authority solana.PublicKey,
) solana.PublicKey {
	address, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("user_stats"), authority.Bytes()},
		programId,
	)
	if err != nil {
		return solana.PublicKey{}
	}
	return address
}

func GetPerpMarketPublicKey(
	programId solana.PublicKey,
	marketIndex uint16,
) solana.PublicKey {
	index := make([]byte, 2)
	binary.LittleEndian.PutUint16(index, marketIndex)
	address, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("perp_market"), index},
		programId,
	)
	if err != nil {
		return solana.PublicKey{}
	}
	return address
}

func GetSpotMarketVaultPublicKey(
	programId solana.PublicKey,
	marketIndex uint16,
) solana.PublicKey {
	index := make([]byte, 2)
	binary.LittleEndian.PutUint16(index, marketIndex)
	address, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("spot_market_vault"), index},
		programId,
	)
	if err != nil {
		return solana.PublicKey{}
	}
	return address
}
