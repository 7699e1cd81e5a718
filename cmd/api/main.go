package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/fitsync/internal/api"
	"example.com/fitsync/internal/auth"
	"example.com/fitsync/internal/config"
	"example.com/fitsync/internal/domain"
	"example.com/fitsync/internal/engine"
	"example.com/fitsync/internal/fitapi"
	"example.com/fitsync/internal/logging"
	"example.com/fitsync/internal/observability"
	"example.com/fitsync/internal/outbox"
	"example.com/fitsync/internal/persistence/memory"
	persistence "example.com/fitsync/internal/persistence/postgres"
	"example.com/fitsync/internal/state"
	httptransport "example.com/fitsync/internal/transport/http"
	"example.com/fitsync/internal/worker"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName+"-api")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	store := state.NewStore(state.NewRedisKVStore(rdb),
		state.WithSnapshotTTL(cfg.ReportSnapshotTTL),
		state.WithLogger(logger.Named("state")),
	)

	var (
		cache      domain.WorkoutCache
		dispatcher *outbox.Dispatcher
	)
	switch cfg.CacheBackend {
	case "memory":
		logger.Warn("using in-memory workout cache; records and events are not persisted")
		cache = memory.NewCache()
	default:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()
		cache = persistence.NewCache(pool)

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize, logger.Named("outbox"))
		go dispatcher.Start(ctx)
	}

	loop := worker.NewLoop(64)
	go loop.Run(ctx)
	workers := worker.NewPool(cfg.WorkerCount, loop)
	defer workers.Close()

	client := fitapi.NewClient(cfg.FitnessAPIURL, cfg.FitnessAPIToken, cfg.CallTimeout, logger.Named("fitapi"))
	eng := engine.New(client, cache, store, engine.Listeners{store, observability.ReportGauges{}}, workers, loop,
		engine.WithLocation(cfg.Location()),
		engine.WithWindows(engine.Windows{
			Backfill:     cfg.BackfillWindow,
			SafetyMargin: cfg.SafetyMargin,
			Uncached:     cfg.UncachedWindow,
		}),
		engine.WithLogger(logger.Named("engine")),
		engine.WithContext(ctx),
	)

	handler := api.NewHandler(eng, store, cache, logger.Named("api"))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, logger.Named("auth"))

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), httptransport.Chain(mux,
		httptransport.RequestLogger(logger.Named("http")),
		httptransport.CORS(cfg.CORSOrigins...),
		authMiddleware.Wrap,
	))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("api listening", zap.String("addr", cfg.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	eng.Connect()

	<-shutdownCh
	logger.Info("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}

	if dispatcher != nil {
		dispatcher.Wait()
	}
}
