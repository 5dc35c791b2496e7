package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"gorm.io/gorm"

	surrealdb "github.com/surrealdb/surrealdb.go"

	ordershttp "github.com/erpmesh/erpmesh/internal/domains/orders/adapters/http"
	ordersmemory "github.com/erpmesh/erpmesh/internal/domains/orders/adapters/memory"
	ordersobs "github.com/erpmesh/erpmesh/internal/domains/orders/adapters/observability"
	orderspostgres "github.com/erpmesh/erpmesh/internal/domains/orders/adapters/persistence/postgres"
	orderssurreal "github.com/erpmesh/erpmesh/internal/domains/orders/adapters/persistence/surreal"
	ordersrefs "github.com/erpmesh/erpmesh/internal/domains/orders/adapters/references"
	ordersworkflows "github.com/erpmesh/erpmesh/internal/domains/orders/adapters/workflows"
	ordersapp "github.com/erpmesh/erpmesh/internal/domains/orders/application"
	ordersports "github.com/erpmesh/erpmesh/internal/domains/orders/ports"

	productshttp "github.com/erpmesh/erpmesh/internal/domains/products/adapters/http"
	productsmemory "github.com/erpmesh/erpmesh/internal/domains/products/adapters/memory"
	productspostgres "github.com/erpmesh/erpmesh/internal/domains/products/adapters/persistence/postgres"
	productssurreal "github.com/erpmesh/erpmesh/internal/domains/products/adapters/persistence/surreal"
	productsapp "github.com/erpmesh/erpmesh/internal/domains/products/application"
	productsports "github.com/erpmesh/erpmesh/internal/domains/products/ports"

	usershttp "github.com/erpmesh/erpmesh/internal/domains/users/adapters/http"
	usersmemory "github.com/erpmesh/erpmesh/internal/domains/users/adapters/memory"
	userspostgres "github.com/erpmesh/erpmesh/internal/domains/users/adapters/persistence/postgres"
	userssurreal "github.com/erpmesh/erpmesh/internal/domains/users/adapters/persistence/surreal"
	usersapp "github.com/erpmesh/erpmesh/internal/domains/users/application"
	usersports "github.com/erpmesh/erpmesh/internal/domains/users/ports"

	"github.com/erpmesh/erpmesh/internal/platform/migrations"
	platformobservability "github.com/erpmesh/erpmesh/internal/platform/observability"
	platformpostgres "github.com/erpmesh/erpmesh/internal/platform/postgres"
	platformsurreal "github.com/erpmesh/erpmesh/internal/platform/surreal"
)

// Run boots the entity repository HTTP API with observability, repositories,
// and durable workflows wired. Each bounded context picks the best available
// store: SurrealDB first, then PostgreSQL, then in-memory.
func Run(ctx context.Context) error {
	const serviceName = "erpmesh-api"
	cfg := LoadConfig()

	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	surrealDB, surrealCleanup := platformsurreal.ConnectOptional(ctx, platformsurreal.ConfigFromEnv(cfg.SurrealURL), logger)
	defer surrealCleanup()
	pgDB, pgCleanup := platformpostgres.ConnectOptional(ctx, cfg.PostgresDSN, logger)
	defer pgCleanup()
	if pgDB != nil {
		if err := migrations.Run(pgDB); err != nil {
			logger.Error("failed to run postgres migrations", slog.String("error", err.Error()))
			return err
		}
	}

	stores := storeSet{surreal: surrealDB, postgres: pgDB, logger: logger}

	userService := usersapp.NewService(stores.userRepository())
	productService := productsapp.NewService(stores.productRepository())

	coreOrderService := ordersapp.NewService(
		stores.orderRepository(),
		ordersrefs.NewUserDirectory(userService),
		ordersrefs.NewProductCatalog(productService),
		stores.idempotencyStore(),
	)
	orderService := ordersobs.New(
		coreOrderService,
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)

	var orderWorkflows ordersports.WorkflowOrchestrator = ordersworkflows.NewInlineOrderWorkflows(orderService)
	if temporalClient, err := connectTemporalClient(cfg, instruments); err != nil {
		logger.Warn("Temporal workflows unavailable, placing orders inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		orderWorkflows = ordersworkflows.NewTemporalOrderWorkflows(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	usershttp.NewHandler(userService).RegisterRoutes(router.Group("/users"))
	productshttp.NewHandler(productService).RegisterRoutes(router.Group("/products"))
	ordershttp.NewHandler(orderService, orderWorkflows).RegisterRoutes(router.Group("/orders"))

	addr := ":" + cfg.Port
	logger.Info("entity repository API listening", slog.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Error("entity repository API exited", slog.String("addr", addr), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// storeSet selects a concrete repository per bounded context from whichever
// backends came up. SurrealDB wins over PostgreSQL; memory is the last resort.
type storeSet struct {
	surreal  *surrealdb.DB
	postgres *gorm.DB
	logger   *slog.Logger
}

func (s storeSet) userRepository() usersports.Repository {
	if s.surreal != nil {
		return userssurreal.NewRepository(s.surreal)
	}
	if s.postgres != nil {
		return userspostgres.NewRepository(s.postgres)
	}
	s.logger.Warn("user repository falling back to memory")
	return usersmemory.NewRepository()
}

func (s storeSet) productRepository() productsports.Repository {
	if s.surreal != nil {
		return productssurreal.NewRepository(s.surreal)
	}
	if s.postgres != nil {
		return productspostgres.NewRepository(s.postgres)
	}
	s.logger.Warn("product repository falling back to memory")
	return productsmemory.NewRepository()
}

func (s storeSet) orderRepository() ordersports.Repository {
	if s.surreal != nil {
		return orderssurreal.NewRepository(s.surreal)
	}
	if s.postgres != nil {
		return orderspostgres.NewRepository(s.postgres)
	}
	s.logger.Warn("order repository falling back to memory")
	return ordersmemory.NewRepository()
}

func (s storeSet) idempotencyStore() ordersports.IdempotencyStore {
	if s.postgres != nil {
		return orderspostgres.NewIdempotencyStore(s.postgres)
	}
	return ordersmemory.NewIdempotencyStore()
}

func connectTemporalClient(cfg Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
