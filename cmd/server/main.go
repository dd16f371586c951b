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
	"time"

	"github.com/mkurosawa/addrsearch/internal/analytics"
	"github.com/mkurosawa/addrsearch/internal/corpus"
	"github.com/mkurosawa/addrsearch/internal/index"
	"github.com/mkurosawa/addrsearch/internal/search/cache"
	"github.com/mkurosawa/addrsearch/internal/search/handler"
	"github.com/mkurosawa/addrsearch/pkg/config"
	"github.com/mkurosawa/addrsearch/pkg/health"
	"github.com/mkurosawa/addrsearch/pkg/kafka"
	"github.com/mkurosawa/addrsearch/pkg/logger"
	"github.com/mkurosawa/addrsearch/pkg/metrics"
	"github.com/mkurosawa/addrsearch/pkg/middleware"
	"github.com/mkurosawa/addrsearch/pkg/postgres"
	pkgredis "github.com/mkurosawa/addrsearch/pkg/redis"
	"github.com/mkurosawa/addrsearch/pkg/resilience"
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
	slog.Info("starting address search service",
		"port", cfg.Server.Port,
		"corpus_source", cfg.Corpus.Source,
		"gram_size", cfg.Index.GramSize,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	var pgClient *postgres.Client
	if cfg.Corpus.Source == "postgres" {
		err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 5}, func() error {
			var connErr error
			pgClient, connErr = postgres.New(cfg.Postgres)
			return connErr
		})
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pgClient.Close()
	}

	loadCorpus := func(ctx context.Context) (corpus.Corpus, error) {
		if cfg.Corpus.Source == "postgres" {
			columns := append([]string{}, cfg.Corpus.SearchableFields...)
			columns = append(columns, cfg.Corpus.DisplayFields...)
			source := corpus.NewPostgresSource(pgClient, cfg.Corpus.Table, dedupe(columns), cfg.Corpus.OrderBy)
			return source.Load(ctx)
		}
		corp, _, err := corpus.LoadCSV(cfg.Corpus.CSVPath)
		return corp, err
	}

	builder := index.NewBuilder(cfg.Corpus.SearchableFields, cfg.Index.GramSize, cfg.Index.BuildParallelism)
	store := index.NewStore()

	rebuild := func(ctx context.Context) (*handler.ReindexResult, error) {
		start := time.Now()
		corp, err := loadCorpus(ctx)
		if err != nil {
			if m != nil {
				m.IndexBuildsTotal.WithLabelValues("failure").Inc()
			}
			return nil, fmt.Errorf("loading corpus: %w", err)
		}
		ix, err := builder.Build(ctx, corp)
		if err != nil {
			if m != nil {
				m.IndexBuildsTotal.WithLabelValues("failure").Inc()
			}
			return nil, fmt.Errorf("building index: %w", err)
		}
		store.Publish(ix, corp)
		if m != nil {
			m.IndexBuildsTotal.WithLabelValues("success").Inc()
			m.IndexBuildDuration.Observe(time.Since(start).Seconds())
			m.IndexedRecords.Set(float64(ix.DocCount()))
			m.IndexTerms.Set(float64(ix.TermCount()))
		}
		return &handler.ReindexResult{
			Records:  ix.DocCount(),
			Terms:    ix.TermCount(),
			Duration: time.Since(start),
		}, nil
	}

	if _, err := rebuild(ctx); err != nil {
		slog.Error("initial index build failed", "error", err)
		os.Exit(1)
	}

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, query caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis)
		slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	var collector *analytics.Collector
	var analyticsHandler *analytics.Handler
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Analytics.BufferSize)
		collector.Start(ctx)
		defer collector.Close()

		aggregator := analytics.NewAggregator()
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents, analytics.HandleEvent(aggregator))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("analytics consumer error", "error", err)
			}
		}()
		analyticsHandler = analytics.NewHandler(aggregator)
		slog.Info("analytics pipeline started", "topic", cfg.Kafka.Topics.SearchEvents)
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		snapshot := store.Current()
		if snapshot.Index.DocCount() == 0 {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no records indexed"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d records, %d terms", snapshot.Index.DocCount(), snapshot.Index.TermCount()),
		}
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
	if pgClient != nil {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := pgClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	h := handler.New(
		store,
		queryCache,
		collector,
		m,
		cfg.Corpus.DisplayFields,
		cfg.Search.DefaultLimit,
		cfg.Search.MaxResults,
		rebuild,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/reindex", h.Reindex)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	if analyticsHandler != nil {
		mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
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
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("address search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("address search service stopped")
}

// dedupe removes repeated column names while preserving order.
func dedupe(columns []string) []string {
	seen := make(map[string]struct{}, len(columns))
	result := make([]string, 0, len(columns))
	for _, col := range columns {
		if _, dup := seen[col]; dup {
			continue
		}
		seen[col] = struct{}{}
		result = append(result, col)
	}
	return result
}
