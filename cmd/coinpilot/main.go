package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	mktsvc "coinpilot/internal/agent/service/market"
	"coinpilot/internal/agent/service/paper"

	"coinpilot/internal/agent/engine"
	"coinpilot/internal/config"
	"coinpilot/internal/decision"
	"coinpilot/internal/logger"
	"coinpilot/internal/market"
	"coinpilot/internal/opportunity"
	"coinpilot/internal/pkg/symbol"
	"coinpilot/internal/portfolio"
	"coinpilot/internal/risk"
	"coinpilot/internal/scheduler"
	"coinpilot/internal/strategy"
	httpapi "coinpilot/internal/transport/http"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("COINPILOT_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config failed: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("initializing log file failed: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("config loaded (env=%s, symbols=%d)", cfg.App.Env, len(cfg.Market.Symbols))

	eng, mkt := buildEngine(cfg)

	server, err := httpapi.NewServer(cfg.App.HTTPAddr, eng)
	if err != nil {
		log.Fatalf("initializing status server failed: %v", err)
	}

	interval, ok := scheduler.ParseIntervalDuration(cfg.App.CycleInterval)
	if !ok {
		log.Fatalf("invalid cycle interval: %q", cfg.App.CycleInterval)
	}
	sched := scheduler.NewAlignedScheduler(ctx, interval, time.Duration(cfg.App.CycleOffsetSeconds)*time.Second)
	sched.RunImmediately = true

	symbols := symbol.Normalize(cfg.Market.Symbols)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return server.Run(ctx) })
	group.Go(func() error {
		sched.Start(func() {
			mkt.Refresh(ctx)
			result, err := eng.RunCycle(ctx, symbols)
			httpapi.ObserveCycle(result, err)
			if err != nil {
				logger.Errorf("cycle failed: %v", err)
			}
		})
		return nil
	})
	if err := group.Wait(); err != nil {
		log.Fatalf("run failed: %v", err)
	}
}

func buildEngine(cfg *config.Config) (*engine.Engine, *mktsvc.Service) {
	riskMgr := risk.NewManager(risk.Limits{
		MaxLeverage:          cfg.Risk.MaxLeverage,
		MaxPositionSizePct:   cfg.Risk.MaxPositionSizePct,
		MaxTotalExposurePct:  cfg.Risk.MaxTotalExposurePct,
		MinConfidence:        cfg.Risk.MinConfidence,
		DefaultStopLossPct:   cfg.Risk.DefaultStopLossPct,
		DefaultTakeProfitPct: cfg.Risk.DefaultTakeProfitPct,
		MinOrderUSD:          cfg.Risk.MinOrderUSD,
	})
	evaluator := opportunity.NewEvaluator(opportunity.DefaultWeights(),
		cfg.Evaluator.MinLiquidityUSD, cfg.Evaluator.MaxATRPct)
	allocator := portfolio.NewAllocator(portfolio.Policy{
		CoreSymbols:         symbol.Normalize(cfg.Allocation.CoreSymbols),
		CorePct:             cfg.Allocation.CorePct,
		OpportunisticPct:    cfg.Allocation.OpportunisticPct,
		MinOpportunityScore: cfg.Allocation.MinOpportunityScore,
		MaxOpportunistic:    cfg.Allocation.MaxOpportunistic,
		MaxAltCoinPct:       cfg.Allocation.MaxAltCoinPct,
		MaxTotalExposurePct: cfg.Allocation.MaxTotalExposurePct,
	})
	sanitizer := decision.NewSanitizer(riskMgr, decision.ExchangeTraits{
		Name:           cfg.Risk.ExchangeName,
		SupportsMargin: cfg.Risk.SupportsMargin,
		MaxLeverage:    cfg.Risk.MaxLeverage,
	})

	var registry *strategy.Registry
	if path := strings.TrimSpace(cfg.Strategy.Path); path != "" {
		reg, err := strategy.NewRegistry(path)
		if err != nil {
			logger.Warnf("strategy registry unavailable: %v", err)
		} else {
			registry = reg
		}
	}

	mkt := mktsvc.NewService(cfg.Market,
		market.NewHTTPCandleSource(cfg.Market.CandlesURL),
		market.NewFearGreedService(cfg.Market.FearGreedEndpoint),
		market.NewTrendingService(cfg.Market.TrendingEndpoint),
		nil)
	account := paper.NewAccount(cfg.App.PaperBalanceUSD)

	eng := engine.NewEngine(engine.Params{
		Config:     cfg,
		Evaluator:  evaluator,
		Allocator:  allocator,
		RiskMgr:    riskMgr,
		Sanitizer:  sanitizer,
		Market:     mkt,
		Portfolio:  account,
		Sink:       account,
		Strategies: registry,
	})
	return eng, mkt
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
