package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/erpmesh/erpmesh/internal/scaling"
)

// The scaler runs the autoscaling control loop against an in-process
// instance pool. SCALE_SERVICES holds comma-separated name:min:max entries,
// e.g. "users:1:5,orders:2:8".
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	specs, err := readSpecs()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	interval := getenvDurationDefault("SCALE_INTERVAL", 10*time.Second)

	pool := scaling.NewInstancePool()
	controller := scaling.NewController(pool, pool, scaling.WithLogger(logger))
	for _, spec := range specs {
		if err := controller.Monitor(spec); err != nil {
			log.Fatalf("service %q: %v", spec.Name, err)
		}
		logger.Info("monitoring service",
			slog.String("service", spec.Name),
			slog.Int("min", spec.MinReplicas),
			slog.Int("max", spec.MaxReplicas))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("scaling controller running", slog.Duration("interval", interval))
	if err := controller.Run(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scaling controller exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("scaling controller stopped")
}

func readSpecs() ([]scaling.ServiceSpec, error) {
	raw := strings.TrimSpace(os.Getenv("SCALE_SERVICES"))
	if raw == "" {
		return nil, errors.New("SCALE_SERVICES is required")
	}
	high := getenvFloatDefault("SCALE_HIGH_WATERMARK", scaling.DefaultHighWatermark)
	low := getenvFloatDefault("SCALE_LOW_WATERMARK", scaling.DefaultLowWatermark)

	var specs []scaling.ServiceSpec
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid SCALE_SERVICES entry %q, want name:min:max", entry)
		}
		min, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid min replicas in %q: %w", entry, err)
		}
		max, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid max replicas in %q: %w", entry, err)
		}
		specs = append(specs, scaling.ServiceSpec{
			Name:          strings.TrimSpace(parts[0]),
			MinReplicas:   min,
			MaxReplicas:   max,
			HighWatermark: high,
			LowWatermark:  low,
		})
	}
	return specs, nil
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
