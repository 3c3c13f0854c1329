package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coldsats/lnwallet/internal/config"
	"github.com/coldsats/lnwallet/internal/logger"
	"github.com/coldsats/lnwallet/internal/model"
	"github.com/coldsats/lnwallet/internal/repo"
	"github.com/coldsats/lnwallet/internal/service"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Balancer: &kafka.LeastBytes{},
	}

	repository := repo.NewRepository(gdb, rdb, kw, log)
	reconciler := service.NewReconciler(repository, log)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.ConsumerGroup,
		Topic:   cfg.Kafka.GatewayTopic,
	})
	defer reader.Close()

	log.Infof("lnwallet-reconciler consuming %s", cfg.Kafka.GatewayTopic)
	ctx := context.Background()
	for {
		// FetchMessage + explicit commit: the offset is committed only
		// after the settlement has been applied, so a crash replays the
		// event and the idempotent handler absorbs the duplicate.
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			log.Errorf("fetch: %v", err)
			continue
		}
		var evt model.ReceiveSucceeded
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			log.Warnf("malformed gateway event at offset %d: %v", msg.Offset, err)
			if err := reader.CommitMessages(ctx, msg); err != nil {
				log.Errorf("commit: %v", err)
			}
			continue
		}
		if err := reconciler.HandleReceiveSucceeded(ctx, evt); err != nil {
			// store failure: leave uncommitted for redelivery
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Errorf("commit operation=%s: %v", evt.OperationID, err)
		}
	}
}
