package filler

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"fillergo"
	"fillergo/addresses"
	"fillergo/bundle"
	dloblib "fillergo/dlob"
	dlobtypes "fillergo/dlob/types"
	"fillergo/lib/drift"
	"fillergo/math"
	"fillergo/metrics"
	oracles "fillergo/oracles/types"
	"fillergo/tx"
	"fillergo/types"
	"fillergo/utils"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	COMPUTE_UNIT_LIMIT = uint32(1_400_000)
	CU_PER_FILL        = uint64(260_000)
	BURST_CU_PER_FILL  = uint64(350_000)
	MAX_CU_PER_TX      = uint64(1_400_000)
	// txs at exactly 1232 bytes are rejected, leave headroom
	MAX_TX_PACK_SIZE = uint64(1230)

	FILL_ORDER_THROTTLE_BACKOFF_MS = int64(1_000)
	THROTTLED_NODE_SIZE_TO_PRUNE   = 10
	TRIGGER_ORDER_COOLDOWN_MS      = int64(1_000)

	TX_TIMEOUT_THRESHOLD_MS    = int64(60_000)
	CONFIRM_TX_INTERVAL_MS     = int64(5_000)
	SETTLE_PNL_COOLDOWN_MS     = int64(600_000)
	CACHED_BLOCKHASH_OFFSET    = 4
	DEFAULT_INTERVAL_MS        = uint64(6_000)
	TX_COUNT_COOLDOWN_ON_BURST = int64(10)
	EXPIRED_NODE_COOLDOWN      = 30 * time.Second

	jitoLeaderDistanceDefault = uint64(2)
)

type FillerBotConfig struct {
	Name          string
	DryRun        bool
	MarketIndexes []uint16
	SubAccountId  uint16

	SlotSource          dlobtypes.ISlotSource
	DLOBSource          dlobtypes.IDLOBSource
	OracleSource        oracles.IOracleSource
	BlockhashSubscriber IBlockhashSource
	PriorityFeeGetter   IPriorityFeeGetter
	TxSender            tx.ITxSender
	BundleSender        *bundle.BundleSender
	Wallet              *fillergo.Wallet
	LookupTables        []addresslookuptable.KeyedAddressLookupTable

	RevertOnFailure          bool
	OnlySendDuringJitoLeader bool
	JitoLeaderDistance       uint64
	ConfirmationTimeoutMs    int64

	Logger *zap.SugaredLogger
}

// IPriorityFeeGetter yields the current compute-unit price bid in
// micro-lamports.
type IPriorityFeeGetter interface {
	GetPriorityFee() uint64
}

// IBlockhashSource serves cached recent blockhashes for tx assembly.
type IBlockhashSource interface {
	GetLatestBlockhash(offsets ...int) *rpc.LatestBlockhashResult
}

type FillerBot struct {
	name              string
	dryRun            bool
	defaultIntervalMs uint64
	marketIndexes     []uint16
	subAccountId      uint16

	slotSource    dlobtypes.ISlotSource
	dlobSource    dlobtypes.IDLOBSource
	oracleSource  oracles.IOracleSource
	bhSubscriber  IBlockhashSource
	priorityFees  IPriorityFeeGetter
	txSender      tx.ITxSender
	bundleSender  *bundle.BundleSender
	wallet        *fillergo.Wallet
	lookupTables  []addresslookuptable.KeyedAddressLookupTable

	stateAccount     solana.PublicKey
	fillerAccount    solana.PublicKey
	fillerStats      solana.PublicKey
	revertOnFailure  bool
	onlyDuringLeader bool
	leaderDistance   uint64

	pendingFills *PendingFillStore
	// orders already attempted as expired fills, skipped for a cooldown
	expiredNodesSet *cache.Cache

	throttledNodes    map[string]int64
	triggeringNodes   map[string]int64
	mxThrottledNodes  *sync.RWMutex
	mxTriggeringNodes *sync.RWMutex

	useBurstCULimit    atomic.Bool
	fillTxSinceBurstCU atomic.Int64
	fillTxId           atomic.Int64
	lastSettlePnl      atomic.Int64
	lastTickTs         atomic.Int64
	runningIntervalMs  atomic.Uint64

	periodicTaskMutex sync.Mutex
	ctx               context.Context
	cancel            context.CancelFunc
	logger            *zap.SugaredLogger
}

func CreateFillerBot(config FillerBotConfig) *FillerBot {
	timeoutMs := utils.TTF(config.ConfirmationTimeoutMs > 0, func() int64 {
		return config.ConfirmationTimeoutMs
	}, func() int64 {
		return TX_TIMEOUT_THRESHOLD_MS
	})

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	authority := config.Wallet.GetPublicKey()
	p := &FillerBot{
		name:              utils.TT(config.Name != "", config.Name, "filler"),
		dryRun:            config.DryRun,
		defaultIntervalMs: DEFAULT_INTERVAL_MS,
		marketIndexes:     config.MarketIndexes,
		subAccountId:      config.SubAccountId,
		slotSource:        config.SlotSource,
		dlobSource:        config.DLOBSource,
		oracleSource:      config.OracleSource,
		bhSubscriber:      config.BlockhashSubscriber,
		priorityFees:      config.PriorityFeeGetter,
		txSender:          config.TxSender,
		bundleSender:      config.BundleSender,
		wallet:            config.Wallet,
		lookupTables:      config.LookupTables,
		stateAccount:      addresses.GetDriftStateAccountPublicKey(drift.ProgramID),
		fillerAccount:     addresses.GetUserAccountPublicKey(drift.ProgramID, authority, config.SubAccountId),
		fillerStats:       addresses.GetUserStatsAccountPublicKey(drift.ProgramID, authority),
		revertOnFailure:   config.RevertOnFailure,
		onlyDuringLeader:  config.OnlySendDuringJitoLeader,
		leaderDistance:    utils.TT(config.JitoLeaderDistance > 0, config.JitoLeaderDistance, jitoLeaderDistanceDefault),
		pendingFills:      CreatePendingFillStore(timeoutMs, logger),
		expiredNodesSet:   cache.New(EXPIRED_NODE_COOLDOWN, EXPIRED_NODE_COOLDOWN),
		throttledNodes:    make(map[string]int64),
		triggeringNodes:   make(map[string]int64),
		mxThrottledNodes:  &sync.RWMutex{},
		mxTriggeringNodes: &sync.RWMutex{},
		logger:            logger,
	}
	p.lastSettlePnl.Store(time.Now().UnixMilli() - SETTLE_PNL_COOLDOWN_MS)
	return p
}

func (p *FillerBot) Init() error {
	if p.slotSource == nil || p.dlobSource == nil {
		return types.NewGenericError("filler bot requires a slot source and a dlob source")
	}
	if p.txSender == nil || p.wallet == nil {
		return types.NewGenericError("filler bot requires a tx sender and a wallet")
	}
	if p.bundleSender == nil && !p.canSendOutsideJito() {
		return types.NewGenericError("jito-only strategy requires a bundle sender")
	}
	p.lastTickTs.Store(time.Now().UnixMilli())
	p.logger.Infow("filler bot initialized",
		"name", p.name,
		"filler", p.fillerAccount.String(),
		"markets", p.marketIndexes,
		"usingJito", p.usingJito(),
	)
	return nil
}

func (p *FillerBot) Reset() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.pendingFills.Clear()
	p.expiredNodesSet.Flush()

	p.mxThrottledNodes.Lock()
	p.throttledNodes = make(map[string]int64)
	p.mxThrottledNodes.Unlock()

	p.mxTriggeringNodes.Lock()
	p.triggeringNodes = make(map[string]int64)
	p.mxTriggeringNodes.Unlock()

	p.fillTxId.Store(0)
	p.useBurstCULimit.Store(false)
	p.fillTxSinceBurstCU.Store(0)
}

func (p *FillerBot) StartIntervalLoop(intervalMs uint64) {
	if intervalMs == 0 {
		intervalMs = p.defaultIntervalMs
	}
	p.runningIntervalMs.Store(intervalMs)
	p.ctx, p.cancel = context.WithCancel(context.Background())

	go func(ctx context.Context) {
		ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.tryFill(ctx)
			}
		}
	}(p.ctx)

	go func(ctx context.Context) {
		ticker := time.NewTicker(time.Duration(CONFIRM_TX_INTERVAL_MS) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.confirmPendingTxSigs(ctx)
			}
		}
	}(p.ctx)

	p.logger.Infof("%s bot started, interval %d ms", p.name, intervalMs)
}

// HealthCheck reports whether a tick completed within the freshness window.
func (p *FillerBot) HealthCheck() bool {
	intervalMs := p.runningIntervalMs.Load()
	if intervalMs == 0 {
		intervalMs = p.defaultIntervalMs
	}
	window := int64(5 * intervalMs)
	if window < 10_000 {
		window = 10_000
	}
	healthy := time.Now().UnixMilli()-p.lastTickTs.Load() < window
	if !healthy {
		p.logger.Warnw("filler bot unhealthy", "lastTickTs", p.lastTickTs.Load())
	}
	return healthy
}

func (p *FillerBot) usingJito() bool {
	return p.bundleSender != nil
}

func (p *FillerBot) canSendOutsideJito() bool {
	if !p.usingJito() {
		return true
	}
	strategy := p.bundleSender.Strategy()
	return strategy == types.NonJitoOnly || strategy == types.Hybrid
}

// shouldBuildForBundle decides whether this tick's fills route through the
// block engine. Outside the leader window a bundle would sit unprocessed, so
// the leader check gates bundle routing when configured.
func (p *FillerBot) shouldBuildForBundle() bool {
	if !p.usingJito() {
		return false
	}
	if p.bundleSender.Strategy() == types.NonJitoOnly {
		return false
	}
	if p.onlyDuringLeader {
		slotsUntilLeader, found := p.bundleSender.SlotsUntilNextLeader()
		if !found || slotsUntilLeader > p.leaderDistance {
			return false
		}
	}
	return true
}

// tryFill is one tick: snapshot the book at the current slot, select
// crossable and triggerable nodes against that one snapshot, and fan out
// per market. A failure to obtain the slot or the view skips the whole
// tick; nothing is submitted against a stale or partial book.
func (p *FillerBot) tryFill(ctx context.Context) {
	if !p.periodicTaskMutex.TryLock() {
		metrics.IncMutexBusy()
		return
	}
	defer p.periodicTaskMutex.Unlock()

	startMs := time.Now().UnixMilli()
	defer func() {
		p.lastTickTs.Store(time.Now().UnixMilli())
		metrics.SetLastTryFillTimeMs(time.Now().UnixMilli() - startMs)
	}()

	slot := p.slotSource.GetSlot()
	if slot == 0 {
		p.logger.Warn("no slot yet, skipping tick")
		return
	}
	book, err := p.dlobSource.GetDLOB(slot)
	if err != nil {
		p.logger.Warnw("failed to get dlob, skipping tick", "slot", slot, "error", err)
		return
	}

	p.pruneThrottledNodes()

	// select against the slot the view was built at, not the slot we asked
	// for; the two can disagree across a slot boundary
	fillableNodes, triggerableNodes := p.getFillableNodes(book, book.GetSlot())
	if len(fillableNodes) == 0 && len(triggerableNodes) == 0 {
		p.trySettlePnl(ctx)
		return
	}

	buildForBundle := p.shouldBuildForBundle()
	if buildForBundle || p.canSendOutsideJito() {
		var wait sync.WaitGroup
		wait.Add(2)
		go func() {
			defer wait.Done()
			p.executeFillablePerpNodesForMarket(ctx, fillableNodes, buildForBundle)
		}()
		go func() {
			defer wait.Done()
			p.executeTriggerablePerpNodesForMarket(ctx, triggerableNodes, buildForBundle)
		}()
		wait.Wait()
	}

	p.trySettlePnl(ctx)
}

func (p *FillerBot) getFillableNodes(
	book dlobtypes.IDLOB,
	slot uint64,
) ([]*dlobtypes.NodeToFill, []*dlobtypes.NodeToTrigger) {
	var fillableNodes []*dlobtypes.NodeToFill
	var triggerableNodes []*dlobtypes.NodeToTrigger

	now := time.Now().Unix()
	for _, marketIndex := range p.marketIndexes {
		oraclePriceData := p.oracleSource.GetOraclePriceData(marketIndex)
		if oraclePriceData == nil || oraclePriceData.Price == nil {
			p.logger.Warnw("no oracle price, skipping market", "marketIndex", marketIndex)
			continue
		}
		nodesToFill := book.FindNodesToFill(
			marketIndex,
			slot,
			now,
			drift.MarketType_Perp,
			oraclePriceData,
			p.selectionFilter,
		)
		if len(nodesToFill) > 0 {
			fillableNodes = append(fillableNodes, nodesToFill...)
		}
		nodesToTrigger := book.FindNodesToTrigger(
			marketIndex,
			drift.MarketType_Perp,
			oraclePriceData.Price,
		)
		if len(nodesToTrigger) > 0 {
			triggerableNodes = append(triggerableNodes, nodesToTrigger...)
		}
	}
	return p.filterPerpNodes(fillableNodes, triggerableNodes)
}

// selectionFilter vetoes nodes during book traversal: anything already
// referenced by an in-flight fill, and anything throttled after a recent
// failed attempt.
func (p *FillerBot) selectionFilter(node dlobtypes.IDLOBNode) bool {
	order := node.GetOrder()
	if order == nil {
		return false
	}
	signature := dloblib.GetOrderSignature(order.OrderId, node.GetUserAccount())
	if p.pendingFills.IsOrderPending(signature) {
		return false
	}
	if p.isNodeThrottled(signature, node.GetUserAccount()) {
		return false
	}
	return true
}

func (p *FillerBot) filterPerpNodes(
	fillableNodes []*dlobtypes.NodeToFill,
	triggerableNodes []*dlobtypes.NodeToTrigger,
) ([]*dlobtypes.NodeToFill, []*dlobtypes.NodeToTrigger) {
	seenFillableNodes := make(map[string]bool)
	filteredFillableNodes := make([]*dlobtypes.NodeToFill, 0, len(fillableNodes))
	for _, node := range fillableNodes {
		signature := getNodeToFillSignature(node)
		if seenFillableNodes[signature] {
			continue
		}
		seenFillableNodes[signature] = true
		if p.filterFillableNode(node) {
			filteredFillableNodes = append(filteredFillableNodes, node)
		}
	}

	seenTriggerableNodes := make(map[string]bool)
	filteredTriggerableNodes := make([]*dlobtypes.NodeToTrigger, 0, len(triggerableNodes))
	for _, node := range triggerableNodes {
		signature := getNodeToTriggerSignature(node)
		if seenTriggerableNodes[signature] {
			continue
		}
		seenTriggerableNodes[signature] = true
		if p.filterTriggerableNode(node) {
			filteredTriggerableNodes = append(filteredTriggerableNodes, node)
		}
	}
	return filteredFillableNodes, filteredTriggerableNodes
}

func getNodeToFillSignature(node *dlobtypes.NodeToFill) string {
	order := node.Node.GetOrder()
	if order == nil {
		return "~"
	}
	return dloblib.GetOrderSignature(order.OrderId, node.Node.GetUserAccount())
}

func getNodeToTriggerSignature(node *dlobtypes.NodeToTrigger) string {
	order := node.Node.GetOrder()
	if order == nil {
		return "~"
	}
	return dloblib.GetOrderSignature(order.OrderId, node.Node.GetUserAccount())
}

func (p *FillerBot) filterFillableNode(nodeToFill *dlobtypes.NodeToFill) bool {
	order := nodeToFill.Node.GetOrder()
	if order == nil {
		return false
	}
	if nodeToFill.Node.IsHaveFilled() {
		return false
	}
	signature := getNodeToFillSignature(nodeToFill)
	if p.pendingFills.IsOrderPending(signature) {
		return false
	}
	if math.IsOrderExpired(order, time.Now().Unix()) {
		if _, found := p.expiredNodesSet.Get(signature); found {
			return false
		}
	}
	for _, makerNode := range nodeToFill.MakerNodes {
		makerOrder := makerNode.GetOrder()
		if makerOrder == nil {
			continue
		}
		makerSignature := dloblib.GetOrderSignature(makerOrder.OrderId, makerNode.GetUserAccount())
		if p.pendingFills.IsOrderPending(makerSignature) {
			return false
		}
	}
	return true
}

func (p *FillerBot) filterTriggerableNode(nodeToTrigger *dlobtypes.NodeToTrigger) bool {
	if nodeToTrigger.Node.GetOrder() == nil {
		return false
	}
	signature := getNodeToTriggerSignature(nodeToTrigger)

	defer p.mxTriggeringNodes.RUnlock()
	p.mxTriggeringNodes.RLock()
	if startedAt, found := p.triggeringNodes[signature]; found {
		if startedAt+TRIGGER_ORDER_COOLDOWN_MS > time.Now().UnixMilli() {
			return false
		}
	}
	return true
}

func (p *FillerBot) setThrottledNode(signature string) {
	defer p.mxThrottledNodes.Unlock()
	p.mxThrottledNodes.Lock()
	p.throttledNodes[signature] = time.Now().UnixMilli()
}

func (p *FillerBot) isNodeThrottled(orderSignature string, userAccount string) bool {
	defer p.mxThrottledNodes.RUnlock()
	p.mxThrottledNodes.RLock()
	now := time.Now().UnixMilli()
	if throttledAt, found := p.throttledNodes[orderSignature]; found {
		if throttledAt+FILL_ORDER_THROTTLE_BACKOFF_MS > now {
			return true
		}
	}
	if throttledAt, found := p.throttledNodes[userAccount]; found {
		if throttledAt+FILL_ORDER_THROTTLE_BACKOFF_MS > now {
			return true
		}
	}
	return false
}

func (p *FillerBot) pruneThrottledNodes() {
	defer p.mxThrottledNodes.Unlock()
	p.mxThrottledNodes.Lock()
	if len(p.throttledNodes) > THROTTLED_NODE_SIZE_TO_PRUNE {
		now := time.Now().UnixMilli()
		for key, throttledAt := range p.throttledNodes {
			if throttledAt+2*FILL_ORDER_THROTTLE_BACKOFF_MS < now {
				delete(p.throttledNodes, key)
			}
		}
	}
}

func (p *FillerBot) executeFillablePerpNodesForMarket(
	ctx context.Context,
	fillableNodes []*dlobtypes.NodeToFill,
	buildForBundle bool,
) {
	nodesByMarket := make(map[uint16][]*dlobtypes.NodeToFill)
	for _, node := range fillableNodes {
		marketIndex := node.Node.GetOrder().MarketIndex
		nodesByMarket[marketIndex] = append(nodesByMarket[marketIndex], node)
	}

	var wait sync.WaitGroup
	for marketIndex, nodes := range nodesByMarket {
		wait.Add(1)
		go func(marketIndex uint16, nodes []*dlobtypes.NodeToFill) {
			defer wait.Done()
			p.tryBulkFillPerpNodesForMarket(ctx, marketIndex, nodes, buildForBundle)
		}(marketIndex, nodes)
	}
	wait.Wait()
}

// tryBulkFillPerpNodesForMarket packs as many fill instructions as fit under
// the transaction size and compute budgets into one transaction and sends
// it. Returns the number of nodes sent.
func (p *FillerBot) tryBulkFillPerpNodesForMarket(
	ctx context.Context,
	marketIndex uint16,
	nodesToFill []*dlobtypes.NodeToFill,
	buildForBundle bool,
) int {
	reservedNodes := p.pendingFills.Reserve(nodesToFill)
	if len(reservedNodes) == 0 {
		return 0
	}

	computeUnitsPrice := uint64(0)
	if !buildForBundle && p.priorityFees != nil {
		computeUnitsPrice = p.priorityFees.GetPriorityFee()
	}

	var ixs []solana.Instruction
	ixs = append(ixs, computebudget.NewSetComputeUnitLimitInstructionBuilder().
		SetUnits(COMPUTE_UNIT_LIMIT).Build())
	ixs = append(ixs, computebudget.NewSetComputeUnitPriceInstructionBuilder().
		SetMicroLamports(computeUnitsPrice).Build())

	// The running tx size is: signatures (compact-u16 array, 64 bytes per
	// elem), message header (3 bytes), account keys (compact-u16 array, 32
	// bytes per elem), blockhash (32 bytes), then per instruction the
	// program id index, account indexes, and data.
	runningTxSize := uint64(0)
	runningCUUsed := uint64(0)

	uniqueAccounts := make(map[string]bool)
	uniqueAccounts[p.wallet.GetPublicKey().String()] = true
	for _, ix := range ixs {
		for _, accountMeta := range ix.Accounts() {
			uniqueAccounts[accountMeta.PublicKey.String()] = true
		}
		uniqueAccounts[ix.ProgramID().String()] = true
	}
	runningTxSize += tx.CalcCompactU16EncodedSize(1, 64)
	runningTxSize += 3
	runningTxSize += tx.CalcCompactU16EncodedSize(uint64(len(uniqueAccounts)), 32)
	runningTxSize += 32
	for _, ix := range ixs {
		runningTxSize += tx.CalcIxEncodedSize(ix)
	}

	fillTxId := p.fillTxId.Add(1)
	startingIxCount := len(ixs)
	var nodesSent []*dlobtypes.NodeToFill
	var nodesSkipped []*dlobtypes.NodeToFill

	cuToUsePerFill := CU_PER_FILL
	if p.useBurstCULimit.Load() {
		cuToUsePerFill = BURST_CU_PER_FILL
	}

	for i, nodeToFill := range reservedNodes {
		ix, err := p.buildFillPerpOrderIx(marketIndex, nodeToFill)
		if err != nil {
			p.logger.Errorw("failed to build fill ix",
				"marketIndex", marketIndex, "fillTxId", fillTxId, "error", err)
			nodesSkipped = append(nodesSkipped, nodeToFill)
			continue
		}

		var newAccounts []solana.PublicKey
		for _, accountMeta := range ix.Accounts() {
			if !uniqueAccounts[accountMeta.PublicKey.String()] {
				newAccounts = append(newAccounts, accountMeta.PublicKey)
			}
		}
		newIxCost := tx.CalcIxEncodedSize(ix)
		additionalAccountsCost := uint64(0)
		if len(newAccounts) > 0 {
			additionalAccountsCost = tx.CalcCompactU16EncodedSize(uint64(len(newAccounts)), 32) - 1
		}

		if (runningTxSize+newIxCost+additionalAccountsCost >= MAX_TX_PACK_SIZE ||
			runningCUUsed+cuToUsePerFill >= MAX_CU_PER_TX) &&
			len(ixs) > startingIxCount {
			p.logger.Infow("fully packed fill tx",
				"ixs", len(ixs),
				"estTxSize", runningTxSize+newIxCost+additionalAccountsCost,
				"estCU", runningCUUsed+cuToUsePerFill,
				"fillTxId", fillTxId,
			)
			nodesSkipped = append(nodesSkipped, reservedNodes[i:]...)
			break
		}

		ixs = append(ixs, ix)
		runningTxSize += newIxCost + additionalAccountsCost
		runningCUUsed += cuToUsePerFill
		for _, newAccount := range newAccounts {
			uniqueAccounts[newAccount.String()] = true
		}
		nodesSent = append(nodesSent, nodeToFill)
	}

	if len(nodesSkipped) > 0 {
		p.pendingFills.Release(nodesSkipped)
	}
	if len(nodesSent) == 0 {
		return 0
	}

	if p.revertOnFailure {
		revertIx, err := drift.NewRevertFillInstructionBuilder().
			SetStateAccount(p.stateAccount).
			SetAuthorityAccount(p.wallet.GetPublicKey()).
			SetFillerAccount(p.fillerAccount).
			SetFillerStatsAccount(p.fillerStats).
			ValidateAndBuild()
		if err == nil {
			ixs = append(ixs, revertIx)
		}
	}

	if p.dryRun {
		p.logger.Infow("dry run, not sending fill tx",
			"fillTxId", fillTxId, "nodes", len(nodesSent))
		p.pendingFills.Release(nodesSent)
		return len(nodesSent)
	}

	metrics.IncAttemptedFills(len(nodesSent))
	now := time.Now().Unix()
	for _, node := range nodesSent {
		if math.IsOrderExpired(node.Node.GetOrder(), now) {
			p.expiredNodesSet.SetDefault(getNodeToFillSignature(node), true)
		}
	}
	p.sendTxForNodes(ctx, fillTxId, nodesSent, ixs, types.TxTypeFill, buildForBundle)
	return len(nodesSent)
}

// buildFillPerpOrderIx assembles the fill instruction for one candidate.
// Maker users are attached as remaining accounts so the program can match
// against them; the perp market and its vault ride along for settlement.
func (p *FillerBot) buildFillPerpOrderIx(
	marketIndex uint16,
	nodeToFill *dlobtypes.NodeToFill,
) (solana.Instruction, error) {
	takerUserKey, err := solana.PublicKeyFromBase58(nodeToFill.Node.GetUserAccount())
	if err != nil {
		return nil, types.NewSdkError(err)
	}

	order := nodeToFill.Node.GetOrder()
	builder := drift.NewFillPerpOrderInstructionBuilder().
		SetStateAccount(p.stateAccount).
		SetAuthorityAccount(p.wallet.GetPublicKey()).
		SetFillerAccount(p.fillerAccount).
		SetFillerStatsAccount(p.fillerStats).
		SetUserAccount(takerUserKey).
		SetOrderId(order.OrderId)

	builder.Append(solana.Meta(addresses.GetPerpMarketPublicKey(drift.ProgramID, marketIndex)).WRITE())
	for _, makerNode := range nodeToFill.MakerNodes {
		makerUserKey, err := solana.PublicKeyFromBase58(makerNode.GetUserAccount())
		if err != nil {
			continue
		}
		builder.Append(solana.Meta(makerUserKey).WRITE())
	}
	return builder.ValidateAndBuild()
}

// sendTxForNodes signs and routes one transaction, then records the
// Submitted entry keyed by its signature. Bundle failures under the hybrid
// strategy fall back to the plain path; under jito-only they release the
// nodes for a later tick.
func (p *FillerBot) sendTxForNodes(
	ctx context.Context,
	fillTxId int64,
	nodes []*dlobtypes.NodeToFill,
	ixs []solana.Instruction,
	txType types.TxType,
	buildForBundle bool,
) {
	blockhash := p.getBlockhashForTx()
	if blockhash == "" {
		p.logger.Errorw("no blockhash available", "fillTxId", fillTxId)
		p.pendingFills.Release(nodes)
		return
	}

	transaction, err := p.txSender.GetTransaction(ixs, p.lookupTables, blockhash, true)
	if err != nil {
		p.logger.Errorw("failed to build tx", "fillTxId", fillTxId, "error", err)
		p.pendingFills.Release(nodes)
		return
	}
	txSig := transaction.Signatures[0]
	txStart := time.Now().UnixMilli()

	if buildForBundle {
		blockhashValue, err := solana.HashFromBase58(blockhash)
		if err == nil {
			_, err = p.bundleSender.SendTxs(ctx, []*solana.Transaction{transaction}, blockhashValue)
		}
		if err == nil {
			metrics.IncBundlesSent()
			metrics.IncSentTxs()
			p.pendingFills.Register(txSig, nodes, fillTxId, txType)
			p.countTxForBurst()
			fillergo.EventEmitter().Emit(fillergo.EventFillSubmitted, txSig, fillTxId)
			return
		}

		botErr := types.NewJitterError(err)
		if p.canSendOutsideJito() {
			p.logger.Warnw("bundle send failed, falling back to rpc",
				"fillTxId", fillTxId, "error", botErr)
		} else {
			p.logger.Errorw("bundle send failed",
				"fillTxId", fillTxId, "error", botErr)
			p.pendingFills.Release(nodes)
			return
		}
	}

	resp, err := p.txSender.Send(ctx, transaction, nil, true, nil)
	p.pendingFills.Register(txSig, nodes, fillTxId, txType)
	if err != nil {
		p.logger.Errorw("failed to send tx",
			"txSig", txSig.String(), "fillTxId", fillTxId, "error", err)
		p.handleSendError(nodes, err)
		return
	}
	metrics.IncSentTxs()
	p.countTxForBurst()
	fillergo.EventEmitter().Emit(fillergo.EventFillSubmitted, txSig, fillTxId)
	p.logger.Infow("sent tx",
		"txSig", resp.TxSig.String(),
		"tookMs", time.Now().UnixMilli()-txStart,
		"fillTxId", fillTxId,
	)
}

// handleSendError throttles nodes whose orders the program rejected as not
// crossing or not matchable, so the next ticks stop re-attempting them
// while the book catches up.
func (p *FillerBot) handleSendError(nodes []*dlobtypes.NodeToFill, err error) {
	message := err.Error()
	if strings.Contains(message, "0x1770") || // order does not cross
		strings.Contains(message, "0x1771") ||
		strings.Contains(message, "0x1793") { // oracle invalid
		for _, node := range nodes {
			p.setThrottledNode(getNodeToFillSignature(node))
		}
	}
}

func (p *FillerBot) countTxForBurst() {
	sent := p.fillTxSinceBurstCU.Add(1)
	if p.useBurstCULimit.Load() && sent > TX_COUNT_COOLDOWN_ON_BURST {
		p.useBurstCULimit.Store(false)
		p.fillTxSinceBurstCU.Store(0)
	}
}

func (p *FillerBot) getBlockhashForTx() string {
	cachedBlockhash := p.bhSubscriber.GetLatestBlockhash(CACHED_BLOCKHASH_OFFSET)
	if cachedBlockhash != nil {
		return cachedBlockhash.Blockhash.String()
	}
	return ""
}

func (p *FillerBot) executeTriggerablePerpNodesForMarket(
	ctx context.Context,
	triggerableNodes []*dlobtypes.NodeToTrigger,
	buildForBundle bool,
) {
	for _, nodeToTrigger := range triggerableNodes {
		p.tryTriggerOrder(ctx, nodeToTrigger, buildForBundle)
	}
}

func (p *FillerBot) tryTriggerOrder(
	ctx context.Context,
	nodeToTrigger *dlobtypes.NodeToTrigger,
	buildForBundle bool,
) {
	signature := getNodeToTriggerSignature(nodeToTrigger)

	// triggers share the pending store with fills so the triggered order's
	// identity stays claimed until its tx resolves
	triggerNodes := []*dlobtypes.NodeToFill{{Node: nodeToTrigger.Node}}
	if len(p.pendingFills.Reserve(triggerNodes)) == 0 {
		return
	}
	p.mxTriggeringNodes.Lock()
	p.triggeringNodes[signature] = time.Now().UnixMilli()
	p.mxTriggeringNodes.Unlock()

	nodeToTrigger.Node.SetTrigger(true)

	userKey, err := solana.PublicKeyFromBase58(nodeToTrigger.Node.GetUserAccount())
	if err != nil {
		p.pendingFills.Release(triggerNodes)
		return
	}
	order := nodeToTrigger.Node.GetOrder()
	triggerIx, err := drift.NewTriggerOrderInstructionBuilder().
		SetStateAccount(p.stateAccount).
		SetAuthorityAccount(p.wallet.GetPublicKey()).
		SetFillerAccount(p.fillerAccount).
		SetUserAccount(userKey).
		SetOrderId(order.OrderId).
		ValidateAndBuild()
	if err != nil {
		p.logger.Errorw("failed to build trigger ix",
			"order", order.OrderId, "error", err)
		p.pendingFills.Release(triggerNodes)
		return
	}

	computeUnitsPrice := uint64(0)
	if !buildForBundle && p.priorityFees != nil {
		computeUnitsPrice = p.priorityFees.GetPriorityFee()
	}
	ixs := []solana.Instruction{
		computebudget.NewSetComputeUnitPriceInstructionBuilder().
			SetMicroLamports(computeUnitsPrice).Build(),
		triggerIx,
	}

	metrics.IncAttemptedTriggers(1)
	if p.dryRun {
		p.logger.Infow("dry run, not sending trigger tx", "order", order.OrderId)
		p.pendingFills.Release(triggerNodes)
		return
	}
	fillTxId := p.fillTxId.Add(1)
	p.sendTxForNodes(ctx, fillTxId, triggerNodes, ixs, types.TxTypeTrigger, buildForBundle)
}

// clearTriggeringNodes drops the cooldown entries of a resolved trigger tx
// so the map cannot grow over a long run.
func (p *FillerBot) clearTriggeringNodes(fill *PendingFill) {
	if fill.TxType != types.TxTypeTrigger {
		return
	}
	defer p.mxTriggeringNodes.Unlock()
	p.mxTriggeringNodes.Lock()
	for _, node := range fill.NodesFilled {
		delete(p.triggeringNodes, getNodeToFillSignature(node))
	}
}

// trySettlePnl settles the filler's own accrued pnl on a cooldown so fill
// rewards do not pile up unsettled.
func (p *FillerBot) trySettlePnl(ctx context.Context) {
	now := time.Now().UnixMilli()
	if now-p.lastSettlePnl.Load() < SETTLE_PNL_COOLDOWN_MS {
		return
	}
	p.lastSettlePnl.Store(now)

	for _, marketIndex := range p.marketIndexes {
		settleIx, err := drift.NewSettlePnlInstructionBuilder().
			SetStateAccount(p.stateAccount).
			SetAuthorityAccount(p.wallet.GetPublicKey()).
			SetUserAccount(p.fillerAccount).
			SetSpotMarketVaultAccount(addresses.GetSpotMarketVaultPublicKey(
				drift.ProgramID, drift.QUOTE_SPOT_MARKET_INDEX)).
			SetMarketIndex(marketIndex).
			ValidateAndBuild()
		if err != nil {
			p.logger.Errorw("failed to build settle pnl ix",
				"marketIndex", marketIndex, "error", err)
			continue
		}

		metrics.IncAttemptedSettlePnl()
		if p.dryRun {
			continue
		}
		fillTxId := p.fillTxId.Add(1)
		p.sendTxForNodes(ctx, fillTxId, nil,
			[]solana.Instruction{settleIx}, types.TxTypeSettlePnl, false)
	}
}

// confirmPendingTxSigs is the reconciliation pass: query the status of
// every Submitted signature, confirm what landed, fail what the chain
// rejected, and expire what has been unknown past the timeout. A status
// query error leaves everything Submitted; only elapsed time expires an
// entry.
func (p *FillerBot) confirmPendingTxSigs(ctx context.Context) {
	sigs := p.pendingFills.PendingSignatures()
	if len(sigs) > 0 {
		statuses, err := p.txSender.GetSignatureStatuses(ctx, sigs)
		if err != nil {
			metrics.IncConfirmLoopRateLimited()
			p.logger.Warnw("failed to get signature statuses", "error", err)
		} else {
			for i, status := range statuses {
				if status == nil {
					continue
				}
				if status.Err != nil {
					if fill := p.pendingFills.Fail(sigs[i]); fill != nil {
						p.clearTriggeringNodes(fill)
						metrics.IncTxSimErrors()
						p.logger.Warnw("tx failed on chain",
							"txSig", sigs[i].String(),
							"fillTxId", fill.FillTxId,
							"txType", fill.TxType.String(),
							"error", status.Err,
						)
					}
					continue
				}
				if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
					status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
					if fill := p.pendingFills.Confirm(sigs[i]); fill != nil {
						p.clearTriggeringNodes(fill)
						metrics.IncLandedTxs()
						p.logger.Infow("tx confirmed",
							"txSig", sigs[i].String(),
							"fillTxId", fill.FillTxId,
							"txType", fill.TxType.String(),
							"tookMs", time.Now().UnixMilli()-fill.Ts,
						)
					}
				}
			}
		}
	}

	for _, fill := range p.pendingFills.ExpireStale(time.Now().UnixMilli()) {
		p.clearTriggeringNodes(fill)
		metrics.IncExpiredTxs()
		p.logger.Infow("tx expired unconfirmed, nodes released",
			"txSig", fill.TxSig.String(),
			"fillTxId", fill.FillTxId,
			"txType", fill.TxType.String(),
		)
		// a run of expiries means we are underpricing CU, burst the limit
		p.useBurstCULimit.Store(true)
		p.fillTxSinceBurstCU.Store(0)
	}
}
