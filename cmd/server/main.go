package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coldsats/lnwallet/internal/config"
	"github.com/coldsats/lnwallet/internal/gateway"
	"github.com/coldsats/lnwallet/internal/lnurl"
	"github.com/coldsats/lnwallet/internal/logger"
	"github.com/coldsats/lnwallet/internal/model"
	"github.com/coldsats/lnwallet/internal/ratelimit"
	"github.com/coldsats/lnwallet/internal/repo"
	"github.com/coldsats/lnwallet/internal/service"
	httptransport "github.com/coldsats/lnwallet/internal/transport/http"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// 1. load config
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	// 2. init logger
	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	// 3. postgres
	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gdb.AutoMigrate(&model.Transaction{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	// 4. redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	// 5. kafka writer (topic set per message)
	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Balancer: &kafka.LeastBytes{},
	}

	// 6. repo, gateway & services
	repository := repo.NewRepository(gdb, rdb, kw, log)
	gw := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.APIKey)
	signer := lnurl.NewSigner(cfg.Lnurl.SigningSecret)
	svc := service.NewWalletService(repository, gw, signer, log, cfg.Lnurl.CallbackBaseURL, cfg.Lnurl.WithdrawTTL.Std())
	limiter := ratelimit.NewLimiter(rdb, log,
		cfg.RateLimit.BurstLimit, cfg.RateLimit.BurstWindow.Std(),
		cfg.RateLimit.SustainedLimit, cfg.RateLimit.SustainedWindow.Std())

	// 7. gin router
	router := httptransport.NewRouter(svc, limiter, cfg.RateLimit, log)

	// 8. serve
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Infof("lnwallet-server listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
