package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/parkmin/tokenex/params"
	"github.com/parkmin/tokenex/pkg/api"
	"github.com/parkmin/tokenex/pkg/app/core/registry"
	"github.com/parkmin/tokenex/pkg/app/spot"
	"github.com/parkmin/tokenex/pkg/custody"
	"github.com/parkmin/tokenex/pkg/feed"
	"github.com/parkmin/tokenex/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("")

	var (
		logger *zap.Logger
		err    error
	)
	if cfg.LogFile != "" {
		logger, err = util.NewLoggerWithFile(cfg.LogFile)
	} else {
		logger, err = util.NewLogger()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// ---- Token registry ----
	reg := registry.New(cfg.QuoteTicker)
	for _, spec := range cfg.Tokens {
		if err := reg.Register(spec.Ticker, spec.Handle); err != nil {
			sugar.Fatalw("register_token", "ticker", spec.Ticker, "err", err)
		}
	}
	if _, err := reg.Resolve(cfg.QuoteTicker); err != nil {
		sugar.Fatalw("quote_not_registered", "ticker", cfg.QuoteTicker)
	}

	// ---- Custody (devnet bank, optionally faucet-seeded) ----
	bank := custody.NewBank()
	if faucet := os.Getenv("FAUCET_TRADERS"); faucet != "" {
		for _, addr := range strings.Split(faucet, ",") {
			if !common.IsHexAddress(addr) {
				continue
			}
			trader := common.HexToAddress(addr)
			for _, spec := range cfg.Tokens {
				bank.Seed(trader, spec.Handle, 1_000_000)
			}
			sugar.Infow("faucet_seed", "trader", trader.Hex())
		}
	}

	// ---- App ----
	app, err := spot.New(cfg.DataDir, reg, bank, util.RealClock{}, sugar)
	if err != nil {
		sugar.Fatalw("app_init", "err", err)
	}
	defer app.Close()

	// ---- API + fill sinks ----
	server := api.NewServer(app, sugar)
	app.Engine().AddSink(server.Hub())

	if len(cfg.KafkaBrokers) > 0 {
		publisher := feed.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, sugar)
		defer publisher.Close()
		app.Engine().AddSink(publisher)
		sugar.Infow("kafka_feed", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	go func() {
		if err := server.Start(cfg.APIAddr); err != nil {
			sugar.Fatalw("api_serve", "err", err)
		}
	}()

	sugar.Infow("node_started",
		"quote", cfg.QuoteTicker, "tokens", len(cfg.Tokens), "data_dir", cfg.DataDir)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	sugar.Infow("node_stopping")
}
