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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kitaq-care/soudan/internal/config"
	"github.com/kitaq-care/soudan/internal/domain/schema"
	logpkg "github.com/kitaq-care/soudan/internal/logger"
	"github.com/kitaq-care/soudan/internal/metrics"
	graphrepo "github.com/kitaq-care/soudan/internal/repository/graph"
	"github.com/kitaq-care/soudan/internal/repository/reqcache"
	chiTransport "github.com/kitaq-care/soudan/internal/transport/chi"
	neo4jStore "github.com/kitaq-care/soudan/internal/transport/neo4j"
	openaiGen "github.com/kitaq-care/soudan/internal/transport/openai"
	answeruc "github.com/kitaq-care/soudan/internal/usecase/answer"
	extractuc "github.com/kitaq-care/soudan/internal/usecase/extract"
	healthuc "github.com/kitaq-care/soudan/internal/usecase/health"
	pipelineuc "github.com/kitaq-care/soudan/internal/usecase/pipeline"
	"github.com/kitaq-care/soudan/internal/version"
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

	logger.Info("Starting soudan API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("graph_uri", cfg.Graph.URI),
		zap.String("model", cfg.Model.Model),
	)

	// Schema registry: built-in domains plus config overrides.
	registry, err := schema.NewRegistry(append(schema.Defaults(), cfg.Schemas...)...)
	if err != nil {
		logger.Fatal("Failed to build schema registry", zap.Error(err))
	}
	logger.Info("Schemas registered", zap.Strings("ids", registry.IDs()))

	// Graph store
	ctx := context.Background()
	store, err := neo4jStore.NewStore(ctx, neo4jStore.Config{
		URI:            cfg.Graph.URI,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		Database:       cfg.Graph.Database,
		MaxPoolSize:    cfg.Graph.MaxPoolSize,
		AcquireTimeout: time.Duration(cfg.Graph.AcquireTimeoutSec) * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to graph store", zap.Error(err))
	}
	defer func() { _ = store.Close(ctx) }()
	logger.Info("Connected to graph store")

	// Model endpoint
	generator := openaiGen.NewGenerator(&openaiGen.Config{
		APIKey:      cfg.Model.APIKey,
		BaseURL:     cfg.Model.BaseURL,
		Model:       cfg.Model.Model,
		MaxAttempts: cfg.Pipeline.ModelMaxAttempts,
		BackoffBase: cfg.Pipeline.ModelBackoffBase(),
		Logger:      logger,
	})

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Request cache backend
	var cacheStore reqcache.Store
	switch cfg.Cache.Backend {
	case "redis":
		cacheStore, err = reqcache.NewRedis(reqcache.RedisConfig{
			Addrs:    cfg.Cache.RedisAddrs,
			Password: cfg.Cache.RedisPassword,
		})
		if err != nil {
			logger.Fatal("Failed to create redis cache", zap.Error(err))
		}
	default:
		cacheStore = reqcache.NewMemory(cfg.Cache.JanitorInterval())
	}
	cache := reqcache.NewFlight(cacheStore, metrics.CacheTotal)
	defer cache.Close()
	logger.Info("Request cache ready", zap.String("backend", cfg.Cache.Backend))

	// Use case services
	extractor := extractuc.New(
		generator,
		cfg.Pipeline.MinConfidence,
		cfg.Pipeline.MaxParseRetries,
		cfg.Model.ExtractTemperature,
		logger,
	)
	executor := graphrepo.New(
		store,
		cfg.Pipeline.GraphMaxAttempts,
		cfg.Pipeline.GraphBackoffBase(),
		logger,
	)
	synthesizer := answeruc.New(
		generator,
		cfg.Model.GenerateTemperature,
		cfg.Model.MaxOutputTokens,
		cfg.Pipeline.GenerateTimeout(),
		logger,
	)
	pipeline := pipelineuc.New(
		registry, extractor, executor, synthesizer,
		cache, cfg.Pipeline, cfg.Cache, logger,
	)
	healthSvc := healthuc.New(store, generator)

	// HTTP server
	server := chiTransport.NewServer(pipeline, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)
	r.Handle("/metrics", promhttp.Handler())

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
						"message": "内部エラーが発生しました。",
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
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
