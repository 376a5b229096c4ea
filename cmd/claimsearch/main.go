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

	"github.com/kailas-cloud/claimsearch/internal/config"
	"github.com/kailas-cloud/claimsearch/internal/dataset"
	"github.com/kailas-cloud/claimsearch/internal/db"
	dbRedis "github.com/kailas-cloud/claimsearch/internal/db/redis"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/policy"
	logpkg "github.com/kailas-cloud/claimsearch/internal/logger"
	"github.com/kailas-cloud/claimsearch/internal/metrics"
	"github.com/kailas-cloud/claimsearch/internal/repository/snapshot"
	chiTransport "github.com/kailas-cloud/claimsearch/internal/transport/chi"
	healthuc "github.com/kailas-cloud/claimsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/claimsearch/internal/usecase/search"
	"github.com/kailas-cloud/claimsearch/internal/version"
)

func main() {
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

	logger.Info("Starting claimsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("dataset", cfg.Dataset.Path),
		zap.String("cache_driver", cfg.Cache.Driver),
	)

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	ctx := context.Background()

	file, err := dataset.NewFile(dataset.Source{
		Path:   cfg.Dataset.Path,
		Format: dataset.Format(cfg.Dataset.Format),
		Table:  cfg.Dataset.Table,
	}, logger)
	if err != nil {
		logger.Fatal("Invalid dataset source", zap.Error(err))
	}

	// Provider chain: file -> snapshot cache (optional) -> process memo.
	var provider dataset.Provider = file
	var cachePinger healthuc.CachePinger
	if store := openCacheStore(ctx, &cfg.Cache, logger); store != nil {
		defer store.Close()
		provider = snapshot.New(
			file, store, cfg.Cache.KeyPrefix,
			time.Duration(cfg.Cache.TTLSec)*time.Second,
			metrics.SnapshotCacheTotal, logger,
		)
		cachePinger = store
	}
	base := dataset.NewCached(provider, logger)

	// Warm the base set; a failure is reported by /health and retried on the next request.
	if _, err := base.Load(ctx); err != nil {
		logger.Error("Initial dataset load failed", zap.Error(err))
	}

	defMode, _ := mode.Parse(cfg.Search.DefaultMode)
	defPolicy, _ := policy.Parse(cfg.Search.Policy)

	searchSvc := searchuc.New(base, logger).
		WithPolicy(defPolicy).
		WithObserver(searchuc.NewMetricsObserver())
	healthSvc := healthuc.New(base, cachePinger)

	server := chiTransport.NewServer(searchSvc, healthSvc, chiTransport.Limits{
		MaxTerms:      cfg.Search.MaxTerms,
		MaxLimit:      cfg.Search.MaxLimit,
		DefaultMode:   defMode,
		MissingPasses: cfg.Search.MissingPasses,
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

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

// openCacheStore connects the snapshot cache backend. It returns nil when no
// cache is configured or the backend is unreachable; searches then read the
// dataset file directly.
func openCacheStore(ctx context.Context, cfg *config.CacheConfig, logger *zap.Logger) db.Store {
	if !cfg.Enabled() {
		return nil
	}

	// Redis and Valkey speak the same protocol; rueidis serves both.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
	})
	if err != nil {
		logger.Error("Failed to create cache store", zap.String("driver", cfg.Driver), zap.Error(err))
		return nil
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		logger.Error("Cache store not ready, continuing without snapshot cache", zap.Error(err))
		store.Close()
		return nil
	}
	logger.Info("Connected to cache store", zap.String("driver", cfg.Driver), zap.Strings("addrs", cfg.Addrs))
	return store
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
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
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
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
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
