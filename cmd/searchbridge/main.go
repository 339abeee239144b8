package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/meridian-data/searchbridge/internal/config"
	"github.com/meridian-data/searchbridge/internal/db"
	dbRedis "github.com/meridian-data/searchbridge/internal/db/redis"
	"github.com/meridian-data/searchbridge/internal/domain"
	logpkg "github.com/meridian-data/searchbridge/internal/logger"
	"github.com/meridian-data/searchbridge/internal/metrics"
	budgetrepo "github.com/meridian-data/searchbridge/internal/repository/budget"
	collectionrepo "github.com/meridian-data/searchbridge/internal/repository/collection"
	documentrepo "github.com/meridian-data/searchbridge/internal/repository/document"
	"github.com/meridian-data/searchbridge/internal/repository/embcache"
	searchrepo "github.com/meridian-data/searchbridge/internal/repository/search"
	tabularrepo "github.com/meridian-data/searchbridge/internal/repository/tabular"
	chiTransport "github.com/meridian-data/searchbridge/internal/transport/chi"
	openaiTransport "github.com/meridian-data/searchbridge/internal/transport/openai"
	collectionuc "github.com/meridian-data/searchbridge/internal/usecase/collection"
	embeddinguc "github.com/meridian-data/searchbridge/internal/usecase/embedding"
	extractionuc "github.com/meridian-data/searchbridge/internal/usecase/extraction"
	healthuc "github.com/meridian-data/searchbridge/internal/usecase/health"
	infouc "github.com/meridian-data/searchbridge/internal/usecase/info"
	ingestuc "github.com/meridian-data/searchbridge/internal/usecase/ingest"
	searchuc "github.com/meridian-data/searchbridge/internal/usecase/search"
	tabularuc "github.com/meridian-data/searchbridge/internal/usecase/tabular"
	"github.com/meridian-data/searchbridge/internal/version"
)

// embedderChain is what the decorator stack produces: single and batch
// embedding over the same transport.
type embedderChain interface {
	domain.Embedder
	domain.BatchEmbedder
}

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting searchbridge API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Vector backend
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to vector backend")

	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()

	// Single BudgetTracker shared by both embedders.
	embCfg := cfg.Embedding
	var budget *embeddinguc.BudgetTracker
	if embCfg.Budget.DailyTokenLimit > 0 || embCfg.Budget.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if embCfg.Budget.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			embCfg.Provider, embCfg.Budget.DailyTokenLimit, embCfg.Budget.MonthlyTokenLimit, action, logger,
		)
		// Connect persistence store, loads current counters from the backend.
		budgetStore := budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)
		budget.WithStore(ctx, budgetStore)
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker embeddinguc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	// Base provider is shared so both chains hit one connection pool, and
	// doubles as the embedding health probe.
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     embCfg.APIKey,
		BaseURL:    embCfg.BaseURL,
		Model:      embCfg.Model,
		Dimensions: embCfg.Dimensions,
		Provider:   embCfg.Provider,
		Logger:     logger,
	})
	docEmbedder := buildEmbedder(baseEmbedder, embCfg, embCfg.DocumentInstruction, store, budgetChecker, logger)
	queryEmbedder := buildEmbedder(baseEmbedder, embCfg, embCfg.QueryInstruction, store, budgetChecker, logger)
	logger.Info("Embedders created",
		zap.String("provider", embCfg.Provider),
		zap.String("model", embCfg.Model),
		zap.Int("dimensions", embCfg.Dimensions),
	)

	// Repositories
	collRepo := collectionrepo.New(store)
	docRepo := documentrepo.New(store)
	searchRepo := searchrepo.New(store)

	// Relational store is optional.
	var tabRepo *tabularrepo.Repo
	if cfg.Tabular.Enabled() {
		tabRepo, err = tabularrepo.Open(cfg.Tabular.DSN())
		if err != nil {
			logger.Fatal("Failed to open tabular store", zap.Error(err))
		}
		defer func() { _ = tabRepo.Close() }()
		logger.Info("Connected to tabular backend",
			zap.String("host", cfg.Tabular.Host),
			zap.String("database", cfg.Tabular.Database),
		)
	}

	// Use case services
	collSvc := collectionuc.New(collRepo, embCfg.Dimensions)
	searchSvc := searchuc.New(searchRepo, collRepo, queryEmbedder)
	ingestSvc := ingestuc.New(collSvc, docRepo, docEmbedder, logger)

	var tabSvc *tabularuc.Service
	if tabRepo != nil {
		tabSvc = tabularuc.New(tabRepo, logger)
	}

	// Filter extraction needs a chat completion model; without one the
	// smart search tool degrades to plain hybrid search.
	var extractor chiTransport.Extractor
	if cfg.LLM.Model != "" {
		llm := openaiTransport.NewExtractor(&openaiTransport.ExtractorConfig{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Logger:      logger,
		})
		extractor = extractionuc.New(llm, collSvc, logger)
	}

	var infoTables infouc.Tables
	var tabularTools chiTransport.Tabular
	var tabularPinger healthuc.DBPinger
	if tabSvc != nil {
		infoTables = tabSvc
		tabularTools = tabSvc
		tabularPinger = tabRepo
	}

	infoSvc := infouc.New(store, collSvc, infoTables)
	healthSvc := healthuc.New(store, tabularPinger, baseEmbedder)

	server := chiTransport.NewServer(
		searchSvc, extractor, ingestSvc, collSvc, tabularTools, infoSvc, healthSvc,
		cfg.Search.DefaultCollection, logger,
	)
	handler := chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	base *openaiTransport.Embedder,
	embCfg config.EmbeddingConfig,
	instruction string,
	store db.Store,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) embedderChain {
	// Cached
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (budget + metrics)
	instrumented := embeddinguc.NewInstrumentedEmbedder(
		embedder, embCfg.Provider, embCfg.Model, budget, logger,
	)

	// Instruction prefix (outermost, so the cache key includes the instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(instrumented, instruction)
	}

	return instrumented
}
