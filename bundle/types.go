package bundle

import (
	"fillergo/types"

	"github.com/gagliardetto/solana-go"
)

// TipStream is one message from the block engine's tip percentile stream.
// Values are denominated in SOL.
type TipStream struct {
	Time                        string  `json:"time"`
	LandedTips25thPercentile    float64 `json:"landed_tips_25th_percentile"`
	LandedTips50thPercentile    float64 `json:"landed_tips_50th_percentile"`
	LandedTips75thPercentile    float64 `json:"landed_tips_75th_percentile"`
	LandedTips95thPercentile    float64 `json:"landed_tips_95th_percentile"`
	LandedTips99thPercentile    float64 `json:"landed_tips_99th_percentile"`
	EmaLandedTips50thPercentile float64 `json:"ema_landed_tips_50th_percentile"`
}

type BundleStats struct {
	Accepted                uint64
	StateAuctionBidRejected uint64
	WinningBatchBidRejected uint64
	SimulationFailure       uint64
	InternalError           uint64
	DroppedBundle           uint64

	DroppedPruned            uint64
	DroppedBlockhashExpired  uint64
	DroppedBlockhashNotFound uint64
}

type JitoLeader struct {
	CurrentSlot        uint64
	NextLeaderSlot     uint64
	NextLeaderIdentity string
}

type sentBundle struct {
	Tx string
	Ts int64
}

type BundleSenderConfig struct {
	BlockEngineUrl     string
	TipStreamUrl       string
	TipPayer           solana.PrivateKey
	Strategy           types.JitoStrategy
	MinBundleTip       uint64
	MaxBundleTip       uint64
	MaxFailBundleCount uint64
	TipMultiplier      float64
}

// Known static tip accounts of the block engine; one is chosen at random
// per bundle.
var jitoTipAccounts = []solana.PublicKey{
	solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5"),
	solana.MustPublicKeyFromBase58("HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"),
	solana.MustPublicKeyFromBase58("Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY"),
	solana.MustPublicKeyFromBase58("ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49"),
	solana.MustPublicKeyFromBase58("DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh"),
	solana.MustPublicKeyFromBase58("ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt"),
	solana.MustPublicKeyFromBase58("DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL"),
	solana.MustPublicKeyFromBase58("3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT"),
}
