package filler

import (
	"testing"

	"fillergo"
	"fillergo/bundle"
	"fillergo/types"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSlotSource struct {
	slot uint64
}

func (p *stubSlotSource) GetSlot() uint64 {
	return p.slot
}

func makeBundleSender(strategy types.JitoStrategy, slot uint64) *bundle.BundleSender {
	return bundle.CreateBundleSender(
		bundle.BundleSenderConfig{Strategy: strategy},
		&stubSlotSource{slot: slot},
		zap.NewNop(),
	)
}

func makeRoutingBot(sender *bundle.BundleSender) *FillerBot {
	return &FillerBot{
		bundleSender: sender,
		logger:       zap.NewNop().Sugar(),
	}
}

func TestRoutingWithoutBundleSender(t *testing.T) {
	bot := makeRoutingBot(nil)

	assert.False(t, bot.usingJito())
	assert.True(t, bot.canSendOutsideJito())
	assert.False(t, bot.shouldBuildForBundle())
}

func TestRoutingJitoOnlyNeverSendsOutside(t *testing.T) {
	bot := makeRoutingBot(makeBundleSender(types.JitoOnly, 100))

	assert.True(t, bot.usingJito())
	assert.False(t, bot.canSendOutsideJito())
	assert.True(t, bot.shouldBuildForBundle())
}

func TestRoutingNonJitoOnlySkipsBundles(t *testing.T) {
	bot := makeRoutingBot(makeBundleSender(types.NonJitoOnly, 100))

	assert.True(t, bot.canSendOutsideJito())
	assert.False(t, bot.shouldBuildForBundle())
}

func TestRoutingHybridUsesBoth(t *testing.T) {
	bot := makeRoutingBot(makeBundleSender(types.Hybrid, 100))

	assert.True(t, bot.canSendOutsideJito())
	assert.True(t, bot.shouldBuildForBundle())
}

func TestRoutingLeaderGate(t *testing.T) {
	sender := makeBundleSender(types.JitoOnly, 100)
	bot := makeRoutingBot(sender)
	bot.onlyDuringLeader = true
	bot.leaderDistance = 5

	// no leader schedule yet, hold the bundle back
	assert.False(t, bot.shouldBuildForBundle())

	sender.UpdateLeaderSchedule(&bundle.JitoLeader{CurrentSlot: 100, NextLeaderSlot: 120})
	assert.False(t, bot.shouldBuildForBundle(), "leader 20 slots out is past the distance gate")

	sender.UpdateLeaderSchedule(&bundle.JitoLeader{CurrentSlot: 100, NextLeaderSlot: 103})
	assert.True(t, bot.shouldBuildForBundle())
}

func TestInitRequiresCollaborators(t *testing.T) {
	wallet, err := fillergo.LoadWallet(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)

	bot := CreateFillerBot(FillerBotConfig{
		Wallet:       wallet,
		SlotSource:   &stubSlotSource{slot: 100},
		DLOBSource:   nil,
		TxSender:     nil,
		BundleSender: nil,
	})
	assert.Error(t, bot.Init(), "missing collaborators must fail init")
}
