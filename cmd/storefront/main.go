package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/artisan/internal/cache"
	"github.com/fjod/artisan/internal/circuitbreaker"
	"github.com/fjod/artisan/internal/config"
	"github.com/fjod/artisan/internal/consumer"
	"github.com/fjod/artisan/internal/gateway"
	storefrontgrpc "github.com/fjod/artisan/internal/grpc"
	h "github.com/fjod/artisan/internal/http"
	"github.com/fjod/artisan/internal/logger"
	"github.com/fjod/artisan/internal/metrics"
	"github.com/fjod/artisan/internal/publisher"
	"github.com/fjod/artisan/internal/repository"
	"github.com/fjod/artisan/internal/service"
	"github.com/fjod/artisan/internal/telemetry"
)

type indexer interface {
	CreateIndexes(ctx context.Context) error
}

// stores bundles the selected backends and whatever must be closed on exit.
type stores struct {
	catalog repository.CatalogRepository
	orders  repository.OrderRepository
	closers []func(context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Init(os.Stdout, cfg.ServiceName, cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("storefront exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		return fmt.Errorf("setup tracer: %w", err)
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}

	m := metrics.New()

	var productCache cache.ProductCache
	var idempotency cache.IdempotencyStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		productCache = cache.NewRedisProductCache(rdb)
		idempotency = cache.NewRedisIdempotencyStore(rdb)
		st.closers = append(st.closers, func(context.Context) error { return rdb.Close() })
		slog.Info("redis connected", "addr", cfg.RedisAddr)
	} else {
		slog.Warn("REDIS_ADDR not set, product cache and idempotency keys disabled")
	}

	var pub publisher.Publisher = publisher.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		pub = publisher.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
		slog.Info("kafka publisher enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	gw := gateway.NewRazorpay(gateway.RazorpayConfig{
		BaseURL:   cfg.RazorpayBaseURL,
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		Breaker:   circuitbreaker.DefaultSettings(),
	})
	signer := gateway.NewSigner(cfg.RazorpayKeySecret)

	orderService := service.NewOrderService(st.orders, cfg.AbandonAfter)
	router := h.NewRouter(h.Deps{
		Checkout:    service.NewCheckoutService(service.NewCartResolver(st.catalog), st.orders, gw, cfg.GatewayTimeout, m),
		Verifier:    service.NewPaymentVerifier(st.orders, service.NewInventoryAdjuster(st.catalog), signer, pub, m),
		Orders:      orderService,
		Admin:       orderService,
		Catalog:     service.NewCatalogService(st.catalog, productCache),
		Idempotency: idempotency,
		Health: map[string]h.Pinger{
			"catalog": st.catalog,
			"orders":  st.orders,
		},
		Metrics:            m,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront.http"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	grpcServer, grpcHealth := storefrontgrpc.NewServer(orderService)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	var invalidator *consumer.CacheInvalidator
	if productCache != nil && len(cfg.KafkaBrokers) > 0 {
		invalidator = consumer.NewCacheInvalidator(productCache, cfg.KafkaTopic, cfg.KafkaBrokers...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			invalidator.Run(ctx)
		}()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		slog.Info("http server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		slog.Info("grpc server starting", "port", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case runErr = <-errCh:
		slog.Error("server failed, shutting down", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	grpcHealth.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server forced to shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	stop()
	wg.Wait()

	if invalidator != nil {
		if err := invalidator.Close(); err != nil {
			slog.Error("close cache invalidator", "error", err)
		}
	}

	if err := pub.Close(); err != nil {
		slog.Error("close publisher", "error", err)
	}
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i](shutdownCtx); err != nil {
			slog.Error("close store", "error", err)
		}
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		slog.Error("tracer shutdown", "error", err)
	}

	slog.Info("storefront stopped")
	return runErr
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	st := &stores{}

	var db *mongo.Database
	if cfg.CatalogStore == config.BackendMongo || cfg.OrderStore == config.BackendMongo {
		var err error
		db, err = repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.ServiceName)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db.Client().Disconnect)
	}

	switch cfg.CatalogStore {
	case config.BackendMongo:
		st.catalog = repository.NewMongoCatalogRepository(db)
	case config.BackendSQLite:
		repo, err := repository.NewSQLiteCatalogRepository(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func(context.Context) error { return repo.Close() })
		if err := repo.RunMigrations(cfg.SQLiteMigrationsDir); err != nil {
			return nil, fmt.Errorf("run catalog migrations: %w", err)
		}
		st.catalog = repo
	default:
		slog.Warn("using in-memory demo catalog")
		st.catalog = repository.NewMemoryCatalog(repository.DemoProducts()...)
	}

	switch cfg.OrderStore {
	case config.BackendMongo:
		st.orders = repository.NewMongoOrderRepository(db)
	case config.BackendPostgres:
		cred := &repository.Credentials{
			Host:              cfg.PostgresHost,
			Port:              cfg.PostgresPort,
			User:              cfg.PostgresUser,
			Password:          cfg.PostgresPassword,
			DBName:            cfg.PostgresDB,
			MigrationsDirPath: cfg.PostgresMigrationsDir,
		}
		repo, err := repository.NewPostgresOrderRepository(cred)
		if err != nil {
			return nil, err
		}
		if err := repo.RunMigrations(cred); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		slog.Info("database migrations completed")
		st.closers = append(st.closers, func(context.Context) error { return repo.Close() })
		st.orders = repo
	default:
		st.orders = repository.NewMemoryOrders()
	}

	for _, s := range []interface{}{st.catalog, st.orders} {
		if ix, ok := s.(indexer); ok {
			if err := ix.CreateIndexes(ctx); err != nil {
				return nil, fmt.Errorf("create indexes: %w", err)
			}
		}
	}
	return st, nil
}
