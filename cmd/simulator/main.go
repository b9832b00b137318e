package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-simulator/cmd/simulator/internal/feed"
	"github.com/shubham-shewale/stock-simulator/cmd/simulator/internal/gateway"
	"github.com/shubham-shewale/stock-simulator/cmd/simulator/internal/hub"
	"github.com/shubham-shewale/stock-simulator/cmd/simulator/internal/pricestore"
	"github.com/shubham-shewale/stock-simulator/cmd/simulator/internal/simulation"
	"github.com/shubham-shewale/stock-simulator/pkg/config"
	"github.com/shubham-shewale/stock-simulator/pkg/models"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	store, err := pricestore.New(models.DefaultStocks())
	if err != nil {
		logger.Fatal("Failed to seed price store", zap.Error(err))
	}

	sim, err := simulation.New(store, simulation.NewRealRand(cfg.Simulator.Seed), simulation.RealClock{}, logger)
	if err != nil {
		logger.Fatal("Failed to create simulation", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var closers []func()

	if cfg.Kafka.Enabled {
		tc := feed.NewTopicCreator(logger, &feed.RealKafkaDialer{Dialer: kafka.DefaultDialer}, feed.RealSleeper{})
		if err := tc.Create(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
			logger.Warn("Topic creation skipped", zap.Error(err))
		}

		writer := &kafka.Writer{
			Addr:     kafka.TCP(cfg.Kafka.Brokers...),
			Topic:    cfg.Kafka.Topic,
			Balancer: &kafka.Hash{}, // same symbol, same partition
			// Send batches to reduce network IO
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			Async:        true, // keeps the tick goroutine off the network
		}
		sink := feed.NewKafkaSink(logger, writer)
		unsubscribe := store.Subscribe(sink.Observe)
		closers = append(closers, func() {
			unsubscribe()
			// flush buffered messages
			if err := sink.Close(); err != nil {
				logger.Error("Error closing Kafka writer", zap.Error(err))
			}
		})
		logger.Info("Kafka feed enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			// honour the sink's per-write deadline on socket I/O
			ContextTimeoutEnabled: true,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}

		sink := feed.NewRedisSink(logger, rdb, time.Hour)
		sink.Start()
		unsubscribe := store.Subscribe(sink.Observe)
		closers = append(closers, func() {
			unsubscribe()
			if err := sink.Close(); err != nil {
				logger.Error("Error closing Redis", zap.Error(err))
			}
		})
		logger.Info("Redis feed enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// Viewers own the simulation lifecycle unless it is told to run on its own.
	var lifecycle hub.Lifecycle = sim
	if cfg.App.Autostart {
		sim.Start(ctx)
		lifecycle = nil
	}
	wsHub := hub.NewHub(ctx, store, lifecycle, logger)

	srv := &http.Server{Addr: cfg.App.Port, Handler: gateway.NewMux(wsHub, logger)}

	go func() {
		logger.Info("Server Started", zap.String("port", cfg.App.Port), zap.Bool("autostart", cfg.App.Autostart))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	sim.Stop()
	wsHub.Close()
	for _, c := range closers {
		c()
	}

	logger.Info("Shutdown Complete")
}
