package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/txplain/tradeintent/internal/api"
	"github.com/txplain/tradeintent/internal/chat"
	"github.com/txplain/tradeintent/internal/config"
	"github.com/txplain/tradeintent/internal/crosschain"
	"github.com/txplain/tradeintent/internal/httpclient"
	"github.com/txplain/tradeintent/internal/llm"
	"github.com/txplain/tradeintent/internal/market"
	"github.com/txplain/tradeintent/internal/rpc"
	"github.com/txplain/tradeintent/internal/session"
	"github.com/txplain/tradeintent/internal/tools"
)

func main() {
	var showVersion = flag.Bool("version", false, "Show version and exit")
	var verbose = flag.Bool("v", false, "Verbose mode - use pretty console logging instead of JSON")
	flag.Parse()

	if *showVersion {
		fmt.Println("tradeintent v1.0.0")
		fmt.Println("AI-assisted trading intent orchestration service")
		os.Exit(0)
	}

	if *verbose {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	server, shutdown := build(cfg)

	if cfg.DisableStartup {
		log.Info().Msg("DISABLE_STARTUP set, server constructed but not started")
		return
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	log.Info().Str("address", cfg.HTTPAddr).Msg("tradeintent server started")

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-errChan:
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}
	shutdown()
	log.Info().Msg("shutdown complete")
}

// build wires every component named in the service's HTTP surface: the
// session store, the market fetcher, the tool registry, the langchaingo
// model and planner, the cross-chain intent service, and finally the
// chat pipeline and HTTP server that sit on top of them. It returns a
// closer for resources (the session store's Redis connection) that
// outlive the HTTP server's own Stop.
func build(cfg *config.Config) (*api.Server, func()) {
	store, err := session.New(cfg.SessionRedisURL, cfg.SessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to session store")
	}

	cexClient := httpclient.New(cfg.LLMTimeout)
	fetcher := market.NewFetcher(cexClient, cfg.BinanceBaseURL, cfg.BinanceFallbackURL)

	rpcClient := rpc.NewClient(httpclient.New(cfg.ToolTimeout), cfg.EVMRPCURL)

	klineCache, err := tools.NewRistrettoCache()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build kline cache")
	}

	registry := tools.NewRegistry(
		tools.NewAMMSnapshotTool(rpcClient, cfg.PairAddress),
		tools.NewKlinesTool(fetcher, klineCache, cfg.CEXKlineInterval, cfg.CEXKlineLimit),
		tools.NewKlineFeatureTool(),
		tools.NewExecutionPreviewTool(),
	)

	model, err := llm.NewModel(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct model client")
	}

	planner := llm.NewPlanner(model, registry, llm.Config{
		MaxIters:    cfg.ToolMaxIters,
		ToolTimeout: cfg.ToolTimeout,
		LLMTimeout:  cfg.LLMTimeout,
	})

	crosschainSvc, err := crosschain.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct cross-chain service")
	}

	pipeline := chat.NewPipeline(cfg, store, planner, fetcher)
	server := api.NewServer(cfg.HTTPAddr, pipeline, crosschainSvc, cfg.CrossChainInboundToken)

	return server, func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing session store")
		}
	}
}
