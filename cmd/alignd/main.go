package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/paperalign/paperalign/internal/analytics"
	"github.com/paperalign/paperalign/internal/llm"
	"github.com/paperalign/paperalign/internal/project"
	qacache "github.com/paperalign/paperalign/internal/qa/cache"
	"github.com/paperalign/paperalign/internal/qa/service"
	"github.com/paperalign/paperalign/internal/server"
	"github.com/paperalign/paperalign/pkg/config"
	"github.com/paperalign/paperalign/pkg/health"
	"github.com/paperalign/paperalign/pkg/kafka"
	"github.com/paperalign/paperalign/pkg/logger"
	"github.com/paperalign/paperalign/pkg/metrics"
	"github.com/paperalign/paperalign/pkg/middleware"
	"github.com/paperalign/paperalign/pkg/postgres"
	pkgredis "github.com/paperalign/paperalign/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting alignment service", "port", cfg.Server.Port, "vector_backend", cfg.Vector.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := project.NewStore(db)
	if err := store.InitSchema(ctx); err != nil {
		slog.Error("failed to initialise schema", "error", err)
		os.Exit(1)
	}

	var answerCache *qacache.AnswerCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, answer caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		answerCache = qacache.New(redisClient, cfg.Redis)
		slog.Info("answer cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	questionProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QuestionEvents)
	defer questionProducer.Close()
	ingestProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IngestEvents)
	defer ingestProducer.Close()
	collector := analytics.NewCollector(questionProducer, ingestProducer, 10000)
	collector.Start(ctx)
	defer collector.Close()

	questionConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.QuestionEvents, cfg.Kafka.ConsumerGroup)
	defer questionConsumer.Close()
	ingestConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IngestEvents, cfg.Kafka.ConsumerGroup)
	defer ingestConsumer.Close()
	aggregator := analytics.NewAggregator(questionConsumer, ingestConsumer)
	go func() {
		if err := aggregator.Start(ctx); err != nil {
			slog.Error("analytics aggregator error", "error", err)
		}
	}()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
		slog.Info("metrics server started", "port", cfg.Metrics.Port)
	}

	artifacts := project.NewArtifacts(cfg.Projects.Dir)
	llmClient := llm.NewClient(cfg.LLM)
	svc := service.New(cfg, store, artifacts, llmClient, service.Options{
		Cache:     answerCache,
		Collector: collector,
		Metrics:   m,
	})

	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := db.DB.PingContext(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("llm", func(ctx context.Context) health.ComponentHealth {
		if !llmClient.Enabled() {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "provider not configured"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: "breaker " + llmClient.BreakerState().String()}
	})

	mux := http.NewServeMux()
	server.New(svc).Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", server.AnalyticsStats(aggregator))
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowOrigins))(chain)
	chain = middleware.RequestID()(chain)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("alignment service listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("alignment service stopped")
}
