// Command example-server runs a small HTTP service demonstrating the limiter:
// a fail-closed login endpoint, a fail-open data endpoint, and a Prometheus
// metrics endpoint, all sharing one Redis-backed counter store.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/calebsouza/throttleguard/internal/config"
	"github.com/calebsouza/throttleguard/pkg/limiter"
)

var cli struct {
	Addr      string `help:"Listen address (overrides SERVER_ADDR)." placeholder:"HOST:PORT"`
	RedisAddr string `help:"Redis address (overrides REDIS_ADDR)." placeholder:"HOST:PORT"`
	Debug     bool   `help:"Enable debug logging."`
}

func main() {
	kong.Parse(&cli, kong.Name("example-server"), kong.Description("Rate limiter demo server."))

	logger := newLogger(cli.Debug)
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if cli.Addr != "" {
		cfg.Server.Addr = cli.Addr
	}
	if cli.RedisAddr != "" {
		cfg.Redis.Addr = cli.RedisAddr
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	store, err := limiter.NewRedisStore(client,
		limiter.WithPrefix(cfg.Limiter.KeyPrefix),
		limiter.WithTimeout(cfg.Limiter.StoreTimeout),
		limiter.WithRetries(cfg.Limiter.StoreRetries),
	)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	defer store.Close()

	l, err := limiter.NewLimiter(store,
		limiter.WithRecorder(limiter.NewPrometheusRecorder(prometheus.DefaultRegisterer)),
	)
	if err != nil {
		logger.Fatal("failed to create limiter", zap.Error(err))
	}
	guard := limiter.NewGuard(l, limiter.WithLogger(logger))

	loginPolicy, ok := cfg.Limiter.Policies["login"]
	if !ok {
		logger.Fatal("missing login policy in RATE_LIMIT_POLICIES")
	}
	apiPolicy, ok := cfg.Limiter.Policies["api"]
	if !ok {
		logger.Fatal("missing api policy in RATE_LIMIT_POLICIES")
	}

	r := chi.NewRouter()
	r.Use(requestID(logger))

	r.With(guard.Middleware(loginPolicy, nil)).Post("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("welcome\n"))
	})
	r.With(guard.Middleware(apiPolicy, nil)).Get("/api/data", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("here is your data\n"))
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("redis", cfg.Redis.Addr))
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(debug bool) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := zcfg.Build()
	if err != nil {
		os.Exit(1)
	}
	return logger
}

// requestID tags every request with a fresh ID so throttling decisions can be
// correlated across log lines.
func requestID(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.NewString()
			w.Header().Set("X-Request-ID", id)
			logger.Debug("request",
				zap.String("request_id", id),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
		})
	}
}
