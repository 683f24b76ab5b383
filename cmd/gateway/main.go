package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paxr/paxr-gateway/internal/chain"
	"github.com/paxr/paxr-gateway/internal/contracts"
	"github.com/paxr/paxr-gateway/internal/gateway"
	"github.com/paxr/paxr-gateway/internal/pinning"
	"github.com/paxr/paxr-gateway/internal/pricing"
	"github.com/paxr/paxr-gateway/shared/config"
	"github.com/paxr/paxr-gateway/shared/logging"
	"github.com/paxr/paxr-gateway/shared/metrics"
	"github.com/paxr/paxr-gateway/shared/monitoring"
	"github.com/paxr/paxr-gateway/shared/redis"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.NewLogger(&logging.Config{
		Level:       logging.LogLevel(cfg.Monitoring.LogLevel),
		Service:     cfg.ServiceName,
		Environment: cfg.Environment,
		PrettyLog:   cfg.Environment == "development",
	})

	if err := monitoring.InitSentry(&monitoring.SentryConfig{
		DSN:         cfg.Monitoring.SentryDSN,
		Environment: cfg.Monitoring.SentryEnv,
		SampleRate:  cfg.Monitoring.SampleRate,
		Release:     cfg.ServiceName + "@" + cfg.ServiceVersion,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		logger.WithError(err).Warn("sentry init failed, continuing without error reporting")
	}
	defer monitoring.Flush(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics("paxr", "gateway")

	registry, err := contracts.NewRegistry(cfg.Contracts.Event, cfg.Contracts.Ticket, cfg.Contracts.Marketplace)
	if err != nil {
		logger.Fatalf("contract registry: %v", err)
	}

	// Redis is optional; the gateway serves uncached without it
	var cache *redis.Redis
	if cfg.Cache.Enabled {
		cache, err = redis.NewRedis(redis.RedisConfig{
			RedisHost:     cfg.Cache.RedisHost,
			RedisPort:     cfg.Cache.RedisPort,
			RedisPassword: cfg.Cache.RedisPassword,
			RedisDB:       cfg.Cache.RedisDB,
			DialTimeout:   cfg.Cache.DialTimeout,
		})
		if err == nil {
			err = cache.HealthCheck(ctx)
		}
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, continuing without cache")
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	readerOpts := []chain.Option{
		chain.WithRateLimit(cfg.Chain.ReadRateLimit, cfg.Chain.ReadRateBurst),
		chain.WithMetrics(m),
	}
	if cache != nil {
		readerOpts = append(readerOpts, chain.WithCache(cache, cfg.Cache.TTL))
	}

	dialCtx, dialCancel := context.WithTimeout(ctx, cfg.Chain.RPCTimeout)
	reader, rpcClient, err := chain.Dial(dialCtx, cfg.Chain.RPCURL, registry, logger, readerOpts...)
	dialCancel()
	if err != nil {
		logger.Fatalf("RPC dial: %v", err)
	}
	defer rpcClient.Close()

	var sources []pricing.Source
	if cfg.Pricing.FeedURL != "" {
		sources = append(sources, pricing.ChainlinkFeedSource(cfg.Pricing.FeedURL))
	}
	if cfg.Pricing.RPCFallbackURL != "" {
		sources = append(sources, pricing.RPCHexSource(cfg.Pricing.RPCFallbackURL))
	}
	oracle := pricing.NewClient(pricing.ClientConfig{
		Sources:        sources,
		FallbackUSD:    cfg.Pricing.FallbackUSD,
		SourceAttempts: cfg.Pricing.SourceAttempts,
		RetryDelay:     cfg.Pricing.RetryDelay,
	}, logger, pricing.WithMetrics(m))

	refresherOpts := []pricing.RefresherOption{}
	if cache != nil {
		refresherOpts = append(refresherOpts, pricing.WithCache(cache, cfg.Pricing.CacheTTL))
	}
	refresher := pricing.NewRefresher(oracle, cfg.Pricing.RefreshInterval, logger, refresherOpts...)
	go refresher.Start(ctx)

	var pinner *pinning.Client
	if cfg.Pinata.JWTKey != "" {
		pinner = pinning.NewClient(cfg.Pinata, pinning.WithMetrics(m))
	} else {
		logger.Warn("PINATA_JWT not set, asset pinning disabled")
	}

	server := gateway.NewServer(cfg, reader, refresher, pinner, logger, m)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("shutting down gateway")
		cancel()
		if err := server.Shutdown(); err != nil {
			logger.WithError(err).Error("shutdown failed")
		}
	}()

	if err := server.Start(); err != nil {
		logger.Fatalf("serve: %v", err)
	}
	<-refresher.Done()
}
