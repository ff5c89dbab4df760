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
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/silverpath-kr/silverpath/internal/catalog"
	"github.com/silverpath-kr/silverpath/internal/config"
	"github.com/silverpath-kr/silverpath/internal/db"
	dbRedis "github.com/silverpath-kr/silverpath/internal/db/redis"
	"github.com/silverpath-kr/silverpath/internal/gazetteer"
	logpkg "github.com/silverpath-kr/silverpath/internal/logger"
	"github.com/silverpath-kr/silverpath/internal/metrics"
	"github.com/silverpath-kr/silverpath/internal/repository/gencache"
	chiTransport "github.com/silverpath-kr/silverpath/internal/transport/chi"
	"github.com/silverpath-kr/silverpath/internal/transport/gemini"
	"github.com/silverpath-kr/silverpath/internal/transport/pinecone"
	classifyuc "github.com/silverpath-kr/silverpath/internal/usecase/classify"
	exploreuc "github.com/silverpath-kr/silverpath/internal/usecase/explore"
	healthuc "github.com/silverpath-kr/silverpath/internal/usecase/health"
	locateuc "github.com/silverpath-kr/silverpath/internal/usecase/locate"
	routeuc "github.com/silverpath-kr/silverpath/internal/usecase/route"
	scopeuc "github.com/silverpath-kr/silverpath/internal/usecase/scope"
	"github.com/silverpath-kr/silverpath/internal/version"
)

// textGenerator is what every pipeline stage needs from the model.
type textGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

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

	logger.Info("Starting silverpath API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
	)

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Optional cache for deterministic model sub-tasks
	var store db.Store
	if len(cfg.Cache.Addrs) > 0 {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		ctx := context.Background()
		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Load embedded routing data
	gaz, err := gazetteer.New()
	if err != nil {
		logger.Fatal("Failed to load gazetteer", zap.Error(err))
	}
	cat, err := catalog.Load()
	if err != nil {
		logger.Fatal("Failed to load namespace catalog", zap.Error(err))
	}

	gen := gemini.NewGenerator(&gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.Model,
		Timeout: time.Duration(cfg.Gemini.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	logger.Info("Generator created", zap.String("model", cfg.Gemini.Model))

	// Deterministic sub-tasks (classification, place resolution, neighbor
	// ranking) go through the cache when one is configured; free-form
	// answers always hit the model directly.
	var subGen textGenerator = gen
	if store != nil {
		subGen = gencache.New(
			gen, store, cfg.Cache.KeyPrefix,
			time.Duration(cfg.Cache.TTLSec)*time.Second,
			metrics.GenCacheTotal, logger,
		)
	}

	searcher := pinecone.NewSearcher(&pinecone.Config{
		APIKey:      cfg.Pinecone.APIKey,
		Host:        cfg.Pinecone.Host,
		RerankModel: cfg.Pinecone.RerankModel,
		Timeout:     time.Duration(cfg.Pinecone.TimeoutSec) * time.Second,
		Logger:      logger,
	})

	// Create use case services
	locator := locateuc.NewService(gaz, subGen, logger)
	classifier := classifyuc.NewService(cat, subGen, logger)
	scoper := scopeuc.NewService(gaz, subGen, cfg.Routing.MaxNeighbors, cfg.Routing.EnrichNeighbors, logger)

	router := routeuc.NewService(routeuc.Deps{
		Catalog:    cat,
		Gazetteer:  gaz,
		Locator:    locator,
		Classifier: classifier,
		Scopes:     scoper,
		Searcher:   searcher,
		Answerer:   gen,
	}, routeuc.Config{
		SufficiencyThreshold: cfg.Routing.SufficiencyThreshold,
		TopK:                 cfg.Routing.TopK,
		RerankTopN:           cfg.Routing.RerankTopN,
	}, logger)

	explorer := exploreuc.NewService(gaz, gen, router, logger)

	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(searcher, gen, cachePinger)

	// Create chi server
	server := chiTransport.NewServer(router, explorer, healthSvc, cat, logger)

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
