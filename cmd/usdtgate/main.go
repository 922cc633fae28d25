package main

import (
	"context"
	"log"

	"github.com/usdtgate/usdtgate/internal/addresspool"
	"github.com/usdtgate/usdtgate/internal/chainsummary"
	"github.com/usdtgate/usdtgate/internal/config"
	"github.com/usdtgate/usdtgate/internal/events"
	"github.com/usdtgate/usdtgate/internal/handlers/cli"
	"github.com/usdtgate/usdtgate/internal/indexer"
	"github.com/usdtgate/usdtgate/internal/infra/storage/redis"
	"github.com/usdtgate/usdtgate/internal/pkg/logger"
	"github.com/usdtgate/usdtgate/internal/pkg/telemetry"
	"github.com/usdtgate/usdtgate/internal/rpcpool"

	"github.com/kelseyhightower/envconfig"
)

// appConfig is the process-level configuration, read from USDTGATE_*
// environment variables.
type appConfig struct {
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisUsername string `envconfig:"REDIS_USERNAME"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB"`
	OTELEnabled   bool   `envconfig:"OTEL_ENABLED"`
}

func main() {
	ctx := context.Background()

	var cfg appConfig
	if err := envconfig.Process("usdtgate", &cfg); err != nil {
		log.Fatalf("invalid environment configuration: %v", err)
	}

	if cfg.OTELEnabled {
		shutdown, err := telemetry.Init(ctx, "usdtgate")
		if err != nil {
			log.Fatalf("telemetry initialization failed: %v", err)
		}
		defer shutdown(ctx)
	}

	if err := logger.Init(logger.WithLevel(cfg.LogLevel)); err != nil {
		log.Fatalf("logger initialization failed: %v", err)
	}
	defer logger.Sync()

	storage, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal(ctx, "could not connect to redis", "redis.addr", cfg.RedisAddr, "error", err)
	}
	defer storage.Close()

	var (
		bus      = events.NewBus()
		provider = config.NewProvider(ctx, config.Defaults(), storage)
		pool     = rpcpool.New(provider, bus)

		summaries = chainsummary.New(provider, pool, storage, bus)
		listener  = indexer.New(provider, pool, storage, storage, storage, bus)
		addresses = addresspool.New(provider, storage, storage)
	)

	err = cli.Run(ctx, provider, pool, summaries, addresses, storage,
		pool,
		summaries,
		listener,
	)
	if err != nil {
		logger.Fatal(ctx, "usdtgate terminated with an error", "error", err)
	}
}
