package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	ordersmemory "github.com/erpmesh/erpmesh/internal/domains/orders/adapters/memory"
	orderspostgres "github.com/erpmesh/erpmesh/internal/domains/orders/adapters/persistence/postgres"
	ordersrefs "github.com/erpmesh/erpmesh/internal/domains/orders/adapters/references"
	ordersapp "github.com/erpmesh/erpmesh/internal/domains/orders/application"
	ordersports "github.com/erpmesh/erpmesh/internal/domains/orders/ports"
	productsmemory "github.com/erpmesh/erpmesh/internal/domains/products/adapters/memory"
	productspostgres "github.com/erpmesh/erpmesh/internal/domains/products/adapters/persistence/postgres"
	productsapp "github.com/erpmesh/erpmesh/internal/domains/products/application"
	usersmemory "github.com/erpmesh/erpmesh/internal/domains/users/adapters/memory"
	userspostgres "github.com/erpmesh/erpmesh/internal/domains/users/adapters/persistence/postgres"
	usersapp "github.com/erpmesh/erpmesh/internal/domains/users/application"
	orderactivities "github.com/erpmesh/erpmesh/internal/durable/temporal/activities/orders"
	orderworkflows "github.com/erpmesh/erpmesh/internal/durable/temporal/workflows/orders"
	"github.com/erpmesh/erpmesh/internal/platform/migrations"
	platformobservability "github.com/erpmesh/erpmesh/internal/platform/observability"
	platformpostgres "github.com/erpmesh/erpmesh/internal/platform/postgres"
)

func main() {
	ctx := context.Background()
	const serviceName = "erpmesh-worker"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	orderService, cleanupRepo := buildOrderService(ctx, logger)
	defer cleanupRepo()
	activities := orderactivities.NewActivities(orderService)

	tracerOptions := temporalotel.TracerOptions{Tracer: instruments.Tracer("temporal-worker")}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		logger.Error("failed to configure Temporal tracing interceptor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	clientOptions := client.Options{
		HostPort:  envOrDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		Namespace: envOrDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		Logger:    workerlog.NewStructuredLogger(logger),
	}
	clientOptions.Interceptors = append(clientOptions.Interceptors, tracingInterceptor)
	temporalClient, err := client.Dial(clientOptions)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, orderworkflows.OrderFulfillmentTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(orderworkflows.OrderFulfillmentWorkflow, workflow.RegisterOptions{Name: orderworkflows.OrderFulfillmentWorkflowName})
	w.RegisterActivityWithOptions(activities.PersistOrder, activity.RegisterOptions{Name: orderactivities.PersistOrderActivityName})

	logger.Info("worker listening", slog.String("taskQueue", orderworkflows.OrderFulfillmentTaskQueue), slog.String("namespace", clientOptions.Namespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}

// buildOrderService assembles the order placement pipeline the activities
// execute against. It shares the same postgres-or-memory fallback as the API
// so both processes agree on the source of truth.
func buildOrderService(ctx context.Context, logger *slog.Logger) (ordersports.Service, func()) {
	db, cleanup := platformpostgres.ConnectOptional(ctx, os.Getenv("POSTGRES_DSN"), logger)
	if db == nil {
		logger.Warn("worker running against in-memory stores")
		userService := usersapp.NewService(usersmemory.NewRepository())
		productService := productsapp.NewService(productsmemory.NewRepository())
		service := ordersapp.NewService(
			ordersmemory.NewRepository(),
			ordersrefs.NewUserDirectory(userService),
			ordersrefs.NewProductCatalog(productService),
			ordersmemory.NewIdempotencyStore(),
		)
		return service, cleanup
	}
	if err := migrations.Run(db); err != nil {
		logger.Error("worker failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	userService := usersapp.NewService(userspostgres.NewRepository(db))
	productService := productsapp.NewService(productspostgres.NewRepository(db))
	service := ordersapp.NewService(
		orderspostgres.NewRepository(db),
		ordersrefs.NewUserDirectory(userService),
		ordersrefs.NewProductCatalog(productService),
		orderspostgres.NewIdempotencyStore(db),
	)
	return service, cleanup
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
