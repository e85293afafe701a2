package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lawman-hq/clauseidx/internal/config"
	dbQdrant "github.com/lawman-hq/clauseidx/internal/db/qdrant"
	dbRedis "github.com/lawman-hq/clauseidx/internal/db/redis"
	"github.com/lawman-hq/clauseidx/internal/indexlock"
	logpkg "github.com/lawman-hq/clauseidx/internal/logger"
	"github.com/lawman-hq/clauseidx/internal/metrics"
	"github.com/lawman-hq/clauseidx/internal/repository/lexical"
	"github.com/lawman-hq/clauseidx/internal/repository/vector"
	chiTransport "github.com/lawman-hq/clauseidx/internal/transport/chi"
	openaiEmb "github.com/lawman-hq/clauseidx/internal/transport/openai"
	"github.com/lawman-hq/clauseidx/internal/transport/rerank"
	askuc "github.com/lawman-hq/clauseidx/internal/usecase/ask"
	healthuc "github.com/lawman-hq/clauseidx/internal/usecase/health"
	ingestuc "github.com/lawman-hq/clauseidx/internal/usecase/ingest"
	"github.com/lawman-hq/clauseidx/internal/version"
)

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

	logger.Info("Starting clauseidx API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("redis_addrs", cfg.Database.Addrs),
		zap.String("qdrant_host", cfg.Qdrant.Host),
	)

	// Lexical store (Redis + RediSearch)
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create redis store", zap.Error(err))
	}
	defer store.Close()

	// Vector store (Qdrant over gRPC)
	vectorStore, err := dbQdrant.NewStore(dbQdrant.Config{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		APIKey: cfg.Qdrant.APIKey,
		UseTLS: cfg.Qdrant.UseTLS,
	})
	if err != nil {
		logger.Fatal("Failed to create qdrant store", zap.Error(err))
	}
	defer vectorStore.Close()

	// Wait for both stores to be ready
	ctx := context.Background()
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("Redis not ready", zap.Error(err))
	}
	if err := vectorStore.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("Qdrant not ready", zap.Error(err))
	}
	logger.Info("Connected to both stores")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRerankMetrics()
	metrics.RegisterRetrievalMetrics()

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:   cfg.Embedding.APIKey,
		BaseURL:  cfg.Embedding.BaseURL,
		Model:    cfg.Embedding.Model,
		Provider: cfg.Embedding.Provider,
		Logger:   logger,
	})
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Pass nil interface (not typed nil pointer!) when rerank is disabled.
	var reranker askuc.Reranker
	var rerankProbe healthuc.RerankChecker
	if cfg.Rerank.Enabled {
		client := rerank.NewClient(&rerank.Config{
			BaseURL: cfg.Rerank.BaseURL,
			Model:   cfg.Rerank.Model,
			Timeout: time.Duration(cfg.Rerank.TimeoutSec) * time.Second,
			Logger:  logger,
		})
		reranker = client
		rerankProbe = client
		logger.Info("Reranker enabled", zap.String("model", cfg.Rerank.Model))
	}

	lexRepo := lexical.New(store)
	vecRepo := vector.New(vectorStore)
	locks := indexlock.New()

	ingestSvc, err := ingestuc.New(lexRepo, vecRepo, embedder, locks, logger, ingestuc.Options{
		Workers:      cfg.Ingest.Workers,
		BatchSize:    cfg.Ingest.BatchSize,
		MaxRetries:   cfg.Ingest.MaxRetries,
		RetryBackoff: time.Duration(cfg.Ingest.RetryBackoffMS) * time.Millisecond,
		Dimensions:   cfg.Embedding.Dimensions,
	})
	if err != nil {
		logger.Fatal("Failed to create ingest service", zap.Error(err))
	}
	defer ingestSvc.Close()

	askSvc := askuc.New(lexRepo, vecRepo, embedder, reranker, locks, logger, askuc.Options{
		MinCandidates: cfg.Search.MinCandidates,
		Timeout:       time.Duration(cfg.Search.TimeoutSec) * time.Second,
		RerankLimit:   cfg.Search.RerankLimit,
	})

	healthSvc := healthuc.New(store, vectorStore, embedder, rerankProbe)

	server := chiTransport.NewServer(ingestSvc, askSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
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

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
