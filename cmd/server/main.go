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

	"policydesk-backend/config"
	"policydesk-backend/external"
	"policydesk-backend/handlers"
	"policydesk-backend/metrics"
	"policydesk-backend/repository"
	"policydesk-backend/service"
	"policydesk-backend/snapshot"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load("", ".env", "../../.env")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// Corpus store and snapshot
	corpus, err := repository.OpenCorpus(ctx, cfg.CorpusDriver, cfg.SQLitePath, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open corpus", zap.String("driver", cfg.CorpusDriver), zap.Error(err))
	}
	defer corpus.Close()
	logger.Info("corpus store opened", zap.String("driver", cfg.CorpusDriver))

	holder := snapshot.NewHolder(corpus, snapshot.HolderWithMetrics(collector), snapshot.HolderWithLogger(logger))
	if _, err := holder.Load(ctx); err != nil {
		logger.Warn("starting without a corpus snapshot", zap.Error(err))
	}

	if cfg.WatchCorpus && cfg.CorpusDriver == config.DriverSQLite {
		watcher, err := snapshot.NewWatcher(holder, cfg.SQLitePath, snapshot.WatcherWithLogger(logger))
		if err != nil {
			logger.Warn("corpus watcher disabled", zap.Error(err))
		} else {
			defer watcher.Close()
			go func() {
				if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("corpus watcher stopped", zap.Error(err))
				}
			}()
		}
	}

	// Sessions
	sessions, closeSessions := initSessions(ctx, cfg, logger)
	defer closeSessions()

	// Generation service
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set")
	}
	geminiClient, err := external.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		logger.Fatal("failed to initialize Gemini", zap.Error(err))
	}
	defer geminiClient.Close()
	generator := external.NewGeminiGenerator(geminiClient, cfg.GeminiModel, cfg.CollaboratorTimeout, logger)

	// Semantic retrieval service
	var retriever external.SemanticRetriever
	if cfg.DifyConfigured() {
		retriever = external.NewDifyRetriever(cfg.DifyAPIURL, cfg.DifyAPIKey, cfg.DifyDatasetID, cfg.CollaboratorTimeout, logger)
		logger.Info("semantic retrieval enabled", zap.String("dataset_id", cfg.DifyDatasetID))
	} else {
		logger.Warn("semantic retrieval not configured, every question takes the fallback path")
	}

	// Services
	search := service.NewLocalSearch(corpus, logger)
	orchestrator := service.NewOrchestrator(
		service.OrchestratorWithGenerator(generator),
		service.OrchestratorWithFAQMatcher(service.NewFAQMatcher(retriever, logger)),
		service.OrchestratorWithAnchorResolver(service.NewAnchorResolver(corpus, search, logger)),
		service.OrchestratorWithLocalSearch(search),
		service.OrchestratorWithSessionStore(sessions),
		service.OrchestratorWithFAQSource(holder),
		service.OrchestratorWithMetrics(collector),
		service.OrchestratorWithLogger(logger),
		service.OrchestratorWithDirectThreshold(cfg.DirectThreshold),
		service.OrchestratorWithLocalMatchThreshold(cfg.FAQMatchThreshold),
		service.OrchestratorWithFallback(cfg.FallbackEnabled),
	)

	// Handlers
	chatHandler := handlers.NewChatHandler(orchestrator, logger)
	lawHandler := handlers.NewLawHandler(holder, orchestrator)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), collector.Middleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		snap := holder.Current()
		if snap == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "corpus not loaded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"regulations": snap.Tree.Len(),
			"faqs":        snap.FAQs.Len(),
			"loaded_at":   snap.LoadedAt,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// API routes
	api := r.Group("/api")
	{
		api.POST("/chat", chatHandler.Chat)
		api.POST("/new-session", chatHandler.NewSession)

		api.GET("/laws", lawHandler.ListRegulations)
		api.GET("/laws/:regulation", lawHandler.GetRegulation)
		api.GET("/laws/:regulation/:article", lawHandler.GetArticle)
		api.GET("/faqs/:id", lawHandler.GetFAQ)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger
}

func initSessions(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.SessionStore, func()) {
	if cfg.SessionBackend != config.SessionRedis {
		logger.Info("using in-memory session store")
		return repository.NewMemorySessionStore(), func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	logger.Info("using redis session store", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.SessionTTL))
	return repository.NewRedisSessionStore(client, cfg.SessionTTL, logger), func() { client.Close() }
}
