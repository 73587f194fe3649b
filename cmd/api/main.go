package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/azizikri/coursehub/internal/cache"
	"github.com/azizikri/coursehub/internal/config"
	httphandler "github.com/azizikri/coursehub/internal/delivery/http"
	"github.com/azizikri/coursehub/internal/delivery/kafka"
	"github.com/azizikri/coursehub/internal/platform/logger"
	"github.com/azizikri/coursehub/internal/repository"
	"github.com/azizikri/coursehub/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twmb/franz-go/pkg/kgo"
)

func main() {
	cfg := config.Load()

	mode := "dev"
	if cfg.AppEnv == "production" {
		mode = "prod"
	}
	log, err := logger.New(mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := initDB(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	store := repository.New(pool)
	aggregator := usecase.NewProgressAggregator(store, log)

	var dispatcher usecase.ProgressDispatcher
	var clients []*kgo.Client
	var wg sync.WaitGroup

	if cfg.EventDriven() {
		brokers := strings.Split(cfg.KafkaBrokers, ",")

		mainClient, err := newConsumerClient(brokers, cfg.KafkaClientID, cfg.KafkaGroupID, kafka.TopicProgressRequest)
		if err != nil {
			log.Fatal("Failed to create kafka client", "error", err)
		}
		clients = append(clients, mainClient)

		if err := kafka.EnsureTopics(ctx, mainClient, cfg, log); err != nil {
			log.Warn("Failed to ensure topics", "error", err)
		}

		retryClient, err := newConsumerClient(brokers, cfg.KafkaClientID+"-retry", cfg.KafkaRetryGroupID, kafka.TopicProgressRetry)
		if err != nil {
			log.Fatal("Failed to create retry kafka client", "error", err)
		}
		clients = append(clients, retryClient)

		consumer := kafka.NewConsumer(mainClient, aggregator, log)
		retryConsumer := kafka.NewConsumer(retryClient, aggregator, log)
		wg.Add(2)
		go func() { defer wg.Done(); consumer.Start(ctx) }()
		go func() { defer wg.Done(); retryConsumer.StartRetry(ctx) }()

		dispatcher = kafka.NewDispatcher(mainClient, log)
		log.Info("Progress recompute running through Kafka", "brokers", cfg.KafkaBrokers)
	} else {
		dispatcher = kafka.NewDirectDispatcher(aggregator)
	}

	var counter cache.Counter = cache.NewMemoryCounter()
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("Failed to connect to redis", "error", err)
		}
		redisCounter := cache.NewRedisCounter(rdb, "coursehub:")
		defer redisCounter.Close()
		counter = redisCounter
	}
	limit, window := cfg.RateLimit()

	coupons := usecase.NewCouponService(store, log)
	handler := httphandler.NewHandler(httphandler.Services{
		Courses:     usecase.NewCourseService(store, dispatcher, log),
		Enrollments: usecase.NewEnrollmentService(store, dispatcher, log),
		Coupons:     coupons,
		Payments:    usecase.NewPaymentService(store, coupons, log),
	}, httphandler.NewRateLimiter(counter, limit, window, log), log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httphandler.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	handler.Routes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting server", "port", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown error", "error", err)
	}

	for _, c := range clients {
		c.Close()
	}

	wg.Wait()
	log.Info("Shutdown complete")
}

func initDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

func newConsumerClient(brokers []string, clientID, groupID string, topics ...string) (*kgo.Client, error) {
	return kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
}
