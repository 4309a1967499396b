package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fillergo"
	addressesPkg "fillergo/addresses"
	"fillergo/blockhashSubscriber"
	"fillergo/bundle"
	"fillergo/config"
	"fillergo/dlob"
	"fillergo/filler"
	"fillergo/jitmaker"
	"fillergo/lib/drift"
	"fillergo/metrics"
	"fillergo/oracles"
	"fillergo/priorityFee"
	"fillergo/slot"
	"fillergo/tx"
	"fillergo/types"
	"fillergo/usermap"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	configPathPtr = flag.String("config", "config.yaml", "path to the yaml config file")
	debugPtr      = flag.Bool("debug", false, "log at debug level")
	logDirPtr     = flag.String("log-dir", "logs", "directory for rotated log files")
)

func main() {
	flag.Parse()

	logger := buildLogger(*debugPtr, *logDirPtr)
	defer func() { _ = logger.Sync() }()
	sugared := logger.Sugar()

	cfg, err := config.LoadConfig(*configPathPtr)
	if err != nil {
		sugared.Fatalw("failed to load config", "path", *configPathPtr, "error", err)
	}

	wallet, err := fillergo.LoadWallet(cfg.Global.KeeperPrivateKey)
	if err != nil {
		sugared.Fatalw("failed to load keeper wallet", "error", err)
	}
	sugared.Infow("keeper wallet loaded", "publicKey", wallet.GetPublicKey().String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connection := rpc.New(cfg.Global.Endpoint)
	wsConnection, err := ws.Connect(ctx, cfg.Global.WsEndpoint)
	if err != nil {
		sugared.Fatalw("failed to connect websocket", "endpoint", cfg.Global.WsEndpoint, "error", err)
	}
	defer wsConnection.Close()

	restyClient := resty.New().SetTimeout(10 * time.Second)

	slotSubscriber := slot.CreateSlotSubscriber(connection, wsConnection, slot.SlotSubscriberConfig{
		Logger: logger,
	})
	if err := slotSubscriber.Subscribe(ctx); err != nil {
		sugared.Fatalw("failed to subscribe slots", "error", err)
	}
	defer slotSubscriber.Unsubscribe()

	bhSubscriber := blockhashSubscriber.CreateBlockhashSubscriber(blockhashSubscriber.BlockhashSubscriberConfig{
		Connection: connection,
		Logger:     logger,
	})
	if err := bhSubscriber.Subscribe(ctx); err != nil {
		sugared.Fatalw("failed to subscribe blockhashes", "error", err)
	}
	defer bhSubscriber.Unsubscribe()

	userMap := usermap.CreateUserMap(usermap.UserMapConfig{
		Fetcher: usermap.CreateHttpUserFetcher(restyClient, cfg.Global.AccountsEndpoint),
		Logger:  sugared,
	})
	if err := userMap.Subscribe(ctx); err != nil {
		sugared.Fatalw("failed to subscribe user map", "error", err)
	}
	defer userMap.Unsubscribe()

	oracleMap := oracles.CreateOracleMap(oracles.OracleMapConfig{
		Client:   restyClient,
		Endpoint: cfg.Global.AccountsEndpoint,
		Logger:   sugared,
	})
	if err := oracleMap.Subscribe(ctx); err != nil {
		sugared.Fatalw("failed to subscribe oracle prices", "error", err)
	}
	defer oracleMap.Unsubscribe()

	dlobSubscriber := dlob.CreateDLOBSubscriber(dlob.DLOBSubscriberConfig{
		SlotSource:          slotSubscriber,
		UserAccountProvider: userMap,
		Logger:              logger,
	})
	if err := dlobSubscriber.Subscribe(ctx); err != nil {
		sugared.Fatalw("failed to subscribe dlob", "error", err)
	}
	defer dlobSubscriber.Unsubscribe()

	priorityFeeSubscriber := buildPriorityFeeSubscriber(cfg, connection, logger)
	priorityFeeSubscriber.Subscribe(ctx)
	defer priorityFeeSubscriber.Unsubscribe()

	txSender := tx.CreateBaseTxSender(connection, wallet, &fillergo.ConfirmOptions{
		TransactionOpts: rpc.TransactionOpts{
			SkipPreflight: cfg.Global.TxSkipPreflight,
			MaxRetries:    &cfg.Global.TxMaxRetries,
		},
		Commitment: rpc.CommitmentConfirmed,
	}, logger)

	var bundleSender *bundle.BundleSender
	if cfg.Global.UseJito {
		strategy, err := types.ParseJitoStrategy(cfg.Global.JitoStrategy)
		if err != nil {
			sugared.Fatalw("invalid jito strategy", "error", err)
		}
		bundleSender = bundle.CreateBundleSender(bundle.BundleSenderConfig{
			BlockEngineUrl:     cfg.Global.JitoBlockEngineUrl,
			TipStreamUrl:       cfg.Global.JitoTipStreamUrl,
			TipPayer:           wallet.GetPrivateKey(),
			Strategy:           strategy,
			MinBundleTip:       cfg.Global.JitoMinBundleTip,
			MaxBundleTip:       cfg.Global.JitoMaxBundleTip,
			MaxFailBundleCount: cfg.Global.JitoMaxBundleFailCount,
			TipMultiplier:      cfg.Global.JitoTipMultiplier,
		}, slotSubscriber, logger)
		if err := bundleSender.Subscribe(ctx); err != nil {
			sugared.Fatalw("failed to subscribe bundle sender", "error", err)
		}
		defer bundleSender.Unsubscribe()
	}

	var bot types.Bot
	var pollingIntervalMs uint64
	switch cfg.Global.BotType {
	case config.BotTypeJitMaker:
		bot = jitmaker.CreateJitMakerBot(jitmaker.JitMakerBotConfig{
			Name:                cfg.JitMaker.BotId,
			DryRun:              cfg.JitMaker.DryRun,
			MarketIndexes:       cfg.JitMaker.MarketIndexes,
			SubAccountId:        cfg.JitMaker.SubAccountId,
			SpreadBps:           cfg.JitMaker.SpreadBps,
			MaxPositionBase:     cfg.JitMaker.MaxPositionBase,
			SlotSource:          slotSubscriber,
			DLOBSource:          dlobSubscriber,
			OracleSource:        oracleMap,
			UserAccountProvider: userMap,
			BlockhashSubscriber: bhSubscriber,
			PriorityFeeGetter:   priorityFeeSubscriber,
			TxSender:            txSender,
			Wallet:              wallet,
			Logger:              sugared,
		})
		pollingIntervalMs = cfg.JitMaker.PollingIntervalMs
	default:
		bot = filler.CreateFillerBot(filler.FillerBotConfig{
			Name:                     cfg.Filler.BotId,
			DryRun:                   cfg.Filler.DryRun,
			MarketIndexes:            cfg.Filler.MarketIndexes,
			SubAccountId:             cfg.Global.SubAccountId,
			SlotSource:               slotSubscriber,
			DLOBSource:               dlobSubscriber,
			OracleSource:             oracleMap,
			BlockhashSubscriber:      bhSubscriber,
			PriorityFeeGetter:        priorityFeeSubscriber,
			TxSender:                 txSender,
			BundleSender:             bundleSender,
			Wallet:                   wallet,
			RevertOnFailure:          cfg.Filler.RevertOnFailure,
			OnlySendDuringJitoLeader: cfg.Global.OnlySendDuringJitoLeader,
			ConfirmationTimeoutMs:    cfg.Filler.ConfirmationTimeoutMs,
			Logger:                   sugared,
		})
		pollingIntervalMs = cfg.Filler.FillerPollingInterval
	}
	if err := bot.Init(); err != nil {
		sugared.Fatalw("failed to init bot", "botType", cfg.Global.BotType, "error", err)
	}
	bot.StartIntervalLoop(pollingIntervalMs)
	defer bot.Reset()

	if !cfg.Global.DisableMetrics {
		go serveMetrics(cfg.Global.MetricsPort, bot, sugared)
	}

	<-ctx.Done()
	sugared.Info("shutting down")
}

func buildPriorityFeeSubscriber(
	cfg *config.Config,
	connection *rpc.Client,
	logger *zap.Logger,
) *priorityFee.PriorityFeeSubscriber {
	method := cfg.Global.PriorityFeeMethod
	if method == "" {
		method = priorityFee.PriorityFeeMethodSolana
	}

	marketIndexes := cfg.Filler.MarketIndexes
	if cfg.Global.BotType == config.BotTypeJitMaker {
		marketIndexes = cfg.JitMaker.MarketIndexes
	}

	addresses := []solana.PublicKey{drift.ProgramID}
	var driftMarkets []priorityFee.DriftMarketInfo
	for _, marketIndex := range marketIndexes {
		addresses = append(addresses, addressesPkg.GetPerpMarketPublicKey(drift.ProgramID, marketIndex))
		driftMarkets = append(driftMarkets, priorityFee.DriftMarketInfo{
			MarketType:  drift.MarketType_Perp,
			MarketIndex: marketIndex,
		})
	}

	subscriber, err := priorityFee.CreatePriorityFeeSubscriber(priorityFee.PriorityFeeSubscriberConfig{
		Connection:               connection,
		Addresses:                addresses,
		DriftMarkets:             driftMarkets,
		PriorityFeeMethod:        method,
		DriftPriorityFeeEndpoint: cfg.Global.DriftPriorityFeeEndpoint,
		MaxFeeMicroLamports:      cfg.Global.MaxPriorityFeeMicroLamports,
		PriorityFeeMultiplier:    cfg.Global.PriorityFeeMultiplier,
		Logger:                   logger,
	})
	if err != nil {
		logger.Sugar().Fatalw("failed to create priority fee subscriber", "error", err)
	}
	return subscriber
}

func serveMetrics(port uint16, bot types.Bot, logger *zap.SugaredLogger) {
	if port == 0 {
		port = 9464
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		if bot.HealthCheck() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("stale"))
	})
	addr := fmt.Sprintf(":%d", port)
	logger.Infow("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Errorw("metrics server stopped", "error", err)
	}
}

func buildLogger(debug bool, logDir string) *zap.Logger {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stdout),
		level,
	)

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return zap.New(consoleCore)
	}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   logDir + "/filler.log",
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		}),
		level,
	)
	return zap.New(zapcore.NewTee(consoleCore, fileCore))
}
