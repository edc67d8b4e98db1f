package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/okvist/lorevault/internal/api"
	"github.com/okvist/lorevault/internal/config"
	"github.com/okvist/lorevault/internal/embedding"
	"github.com/okvist/lorevault/internal/retrieval"
	"github.com/okvist/lorevault/internal/store"
	"github.com/okvist/lorevault/internal/vectorstore"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting LoreVault...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	explicit := cfgPath != ""
	if cfgPath == "" {
		cfgPath = "configs/lorevault.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if explicit {
			logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
		}
		logger.Info("no config file, using defaults", zap.String("path", cfgPath))
		cfg = config.Default()
	} else {
		logger.Info("Config loaded", zap.String("path", cfgPath))
	}

	// Settings store: PostgreSQL when a DSN is configured, JSON file otherwise.
	var settings store.Store
	var pgStore *store.PostgresStore
	if cfg.Postgres.DSN != "" {
		ps, pgErr := store.NewPostgresStore(context.Background(), cfg.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Fatal("PostgreSQL unavailable", zap.Error(pgErr))
		}
		migrations := cfg.Postgres.MigrationsDir
		if migrations == "" {
			migrations = "migrations"
		}
		if mErr := ps.Migrate(context.Background(), migrations); mErr != nil {
			logger.Fatal("migration failed", zap.Error(mErr))
		}
		pgStore = ps
		settings = ps
	} else {
		path := cfg.Settings.Path
		if path == "" {
			path = store.DefaultPath()
		}
		settings = store.NewFileStore(path, logger)
	}

	// Persisted settings override the config file.
	llmCfg := cfg.LLM
	if saved, err := settings.LLM(context.Background()); err != nil {
		logger.Warn("failed to load saved settings", zap.Error(err))
	} else {
		if saved.Model != "" {
			llmCfg.Model = saved.Model
		}
		if saved.BaseURL != "" {
			llmCfg.BaseURL = saved.BaseURL
		}
		if saved.ContextWindow != 0 {
			llmCfg.ContextWindow = saved.ContextWindow
		}
	}

	// Embedding provider, optionally behind the Redis cache.
	var embedder retrieval.Embedder = embedding.New(cfg.Embedding)
	var embCache *embedding.CachedProvider
	if cfg.Redis.URL != "" {
		cached, cErr := embedding.NewCachedProvider(embedder, cfg.Embedding.Model, cfg.Redis.URL, logger)
		if cErr != nil {
			logger.Warn("Redis unavailable, running without embedding cache", zap.Error(cErr))
		} else {
			embCache = cached
			embedder = cached
			logger.Info("Embedding cache enabled")
		}
	}

	// Vector index
	qdrant, err := vectorstore.New(cfg.Qdrant)
	if err != nil {
		logger.Fatal("failed to create qdrant client", zap.Error(err))
	}

	svc := retrieval.New(embedder, qdrant, logger)
	if err := svc.Init(context.Background()); err != nil {
		logger.Warn("vector index unavailable, indexing will fail until it is up", zap.Error(err))
	}

	// HTTP handler; probe the generation backend before serving.
	handler := api.NewHandler(svc, settings, llmCfg, logger)
	if _, err := handler.Connect(context.Background()); err != nil {
		logger.Warn("generation backend unavailable", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("LoreVault listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down LoreVault...")
	srv.Shutdown(context.Background())
	qdrant.Close()
	if embCache != nil {
		embCache.Close()
	}
	if pgStore != nil {
		pgStore.Close()
	}
}
