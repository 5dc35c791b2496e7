package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erpmesh/erpmesh/internal/gateway"
	"github.com/erpmesh/erpmesh/internal/resilience"
	"github.com/erpmesh/erpmesh/internal/scaling"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	registry := gateway.NewRegistry()
	registry.SetPerReplicaRPS(cfg.perReplicaRPS)
	for _, route := range cfg.routes {
		if err := registry.Register(route.name, route.prefix, route.baseURL); err != nil {
			log.Fatalf("route %q: %v", route.name, err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := resilience.NewLimiterStore(cfg.rateRPS, cfg.rateBurst)
	store.StartJanitor(ctx)

	var statsStore gateway.StatsStore = gateway.NewMemoryStatsStore()
	if cfg.statsRedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.statsRedisAddr,
			Password: cfg.statsRedisPassword,
			DB:       cfg.statsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		pingCancel()
		if err != nil {
			log.Fatalf("redis stats ping error: %v", err)
		}
		statsStore = gateway.NewRedisStatsStore(rdb, gateway.WithStatsTrackKeys(cfg.statsTrackKeys))
		logger.Info("rate-limit stats backed by redis", slog.String("addr", cfg.statsRedisAddr))
	}

	router := gateway.NewRouter(registry,
		gateway.WithRouterLogger(logger),
		gateway.WithUpstreamTimeout(cfg.upstreamTimeout),
		gateway.WithBreakerOptions(
			resilience.WithFailureThreshold(cfg.breakerThreshold),
			resilience.WithCooldown(cfg.breakerCooldown),
		),
	)

	h := http.Handler(router)
	if cfg.rateEnabled {
		h = gateway.RateLimitMiddleware(gateway.RateLimitOptions{
			Store:              store,
			Stats:              statsStore,
			KeyHeader:          cfg.rateKeyHeader,
			TrustXForwardedFor: cfg.trustXFF,
			RetryAfter:         cfg.retryAfter,
		})(h)
	}

	// The registry doubles as load source and actuator so the gateway can
	// autoscale its own routing targets from observed traffic.
	if cfg.scaleEnabled {
		controller := scaling.NewController(registry, registry, scaling.WithLogger(logger))
		for _, route := range cfg.routes {
			spec := scaling.ServiceSpec{
				Name:        route.name,
				MinReplicas: cfg.scaleMin,
				MaxReplicas: cfg.scaleMax,
			}
			if err := controller.Monitor(spec); err != nil {
				log.Fatalf("scaling %q: %v", route.name, err)
			}
		}
		go func() {
			if err := controller.Run(ctx, cfg.scaleInterval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("scaling controller stopped", slog.String("error", err.Error()))
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("gateway listening",
		slog.String("addr", cfg.listenAddr),
		slog.Int("routes", len(cfg.routes)),
		slog.Bool("rateLimit", cfg.rateEnabled),
		slog.Bool("autoscale", cfg.scaleEnabled))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

type route struct {
	name    string
	prefix  string
	baseURL string
}

type config struct {
	listenAddr      string
	routes          []route
	upstreamTimeout time.Duration

	rateEnabled   bool
	rateRPS       float64
	rateBurst     int
	rateKeyHeader string
	trustXFF      bool
	retryAfter    time.Duration

	breakerThreshold int
	breakerCooldown  time.Duration

	statsRedisAddr     string
	statsRedisPassword string
	statsRedisDB       int
	statsTrackKeys     bool

	scaleEnabled  bool
	scaleMin      int
	scaleMax      int
	scaleInterval time.Duration
	perReplicaRPS float64
}

// readConfig reads the gateway settings from the environment. SERVICE_ROUTES
// holds comma-separated entries of the form name=prefix=baseURL, e.g.
// "users=/users=http://users:8080,orders=/orders=http://orders:8080".
func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8081")
	cfg.upstreamTimeout = getenvDurationDefault("UPSTREAM_TIMEOUT", 15*time.Second)

	cfg.rateEnabled = getenvBoolDefault("RATE_ENABLED", true)
	cfg.rateRPS = getenvFloatDefault("RATE_RPS", 10)
	cfg.rateBurst = getenvIntDefault("RATE_BURST", 20)
	cfg.rateKeyHeader = os.Getenv("RATE_KEY_HEADER")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.retryAfter = getenvDurationDefault("RETRY_AFTER", 1*time.Second)

	cfg.breakerThreshold = getenvIntDefault("BREAKER_THRESHOLD", 5)
	cfg.breakerCooldown = getenvDurationDefault("BREAKER_COOLDOWN", 30*time.Second)

	cfg.statsRedisAddr = strings.TrimSpace(os.Getenv("RATE_STATS_REDIS_ADDR"))
	cfg.statsRedisPassword = os.Getenv("RATE_STATS_REDIS_PASSWORD")
	cfg.statsRedisDB = getenvIntDefault("RATE_STATS_REDIS_DB", 0)
	cfg.statsTrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", false)

	cfg.scaleEnabled = getenvBoolDefault("SCALE_ENABLED", false)
	cfg.scaleMin = getenvIntDefault("SCALE_MIN_REPLICAS", 1)
	cfg.scaleMax = getenvIntDefault("SCALE_MAX_REPLICAS", 5)
	cfg.scaleInterval = getenvDurationDefault("SCALE_INTERVAL", 10*time.Second)
	cfg.perReplicaRPS = getenvFloatDefault("SCALE_PER_REPLICA_RPS", 50)

	raw := strings.TrimSpace(os.Getenv("SERVICE_ROUTES"))
	if raw == "" {
		return config{}, errors.New("SERVICE_ROUTES is required")
	}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 3)
		if len(parts) != 3 {
			return config{}, fmt.Errorf("invalid SERVICE_ROUTES entry %q, want name=prefix=baseURL", entry)
		}
		cfg.routes = append(cfg.routes, route{
			name:    strings.TrimSpace(parts[0]),
			prefix:  strings.TrimSpace(parts[1]),
			baseURL: strings.TrimSpace(parts[2]),
		})
	}

	if cfg.rateRPS <= 0 {
		return config{}, errors.New("RATE_RPS must be > 0")
	}
	if cfg.rateBurst <= 0 {
		return config{}, errors.New("RATE_BURST must be > 0")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
