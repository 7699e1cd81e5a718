package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"example.com/fitsync/internal/config"
	"example.com/fitsync/internal/consumer"
	"example.com/fitsync/internal/engine"
	"example.com/fitsync/internal/fitapi"
	"example.com/fitsync/internal/logging"
	"example.com/fitsync/internal/observability"
	persistence "example.com/fitsync/internal/persistence/postgres"
	"example.com/fitsync/internal/state"
	"example.com/fitsync/internal/worker"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName+"-consumer")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer rdb.Close()

	store := state.NewStore(state.NewRedisKVStore(rdb),
		state.WithSnapshotTTL(cfg.ReportSnapshotTTL),
		state.WithLogger(logger.Named("state")),
	)

	loop := worker.NewLoop(64)
	go loop.Run(ctx)
	workers := worker.NewPool(cfg.WorkerCount, loop)
	defer workers.Close()

	client := fitapi.NewClient(cfg.FitnessAPIURL, cfg.FitnessAPIToken, cfg.CallTimeout, logger.Named("fitapi"))
	eng := engine.New(client, persistence.NewCache(pool), store, engine.Listeners{store, observability.ReportGauges{}}, workers, loop,
		engine.WithLocation(cfg.Location()),
		engine.WithWindows(engine.Windows{
			Backfill:     cfg.BackfillWindow,
			SafetyMargin: cfg.SafetyMargin,
			Uncached:     cfg.UncachedWindow,
		}),
		engine.WithLogger(logger.Named("engine")),
		engine.WithContext(ctx),
	)

	handler := consumer.NewTriggerHandler(eng, logger.Named("triggers"))

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}

	go func() {
		logger.Info("consumer metrics listening", zap.String("addr", cfg.MetricsAddress))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	var wg sync.WaitGroup
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	for _, topic := range []string{cfg.WorkoutTopic, cfg.CommandTopic} {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         cfg.ConsumerGroupID,
			Topic:           topic,
			MinBytes:        1,
			MaxBytes:        10e6,
			MaxWait:         time.Second,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})

		proc := consumer.NewProcessor(reader, handler, consumer.WithLogger(logger.With(zap.String("topic", topic))))

		wg.Add(1)
		go func(topic string, r *kafka.Reader) {
			defer wg.Done()
			defer r.Close()

			logger.Info("consumer started", zap.String("topic", topic), zap.String("group", cfg.ConsumerGroupID))
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped with error", zap.String("topic", topic), zap.Error(err))
			}
		}(topic, reader)
	}

	<-stop
	logger.Info("consumer shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown error", zap.Error(err))
	}

	wg.Wait()
}
