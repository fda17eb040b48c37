package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/rl1809/order-desk/internal/adapter/handler"
	"github.com/rl1809/order-desk/internal/adapter/messaging"
	"github.com/rl1809/order-desk/internal/adapter/storage"
	"github.com/rl1809/order-desk/internal/config"
	"github.com/rl1809/order-desk/internal/core/service"
	"github.com/rl1809/order-desk/internal/port"
	"github.com/rl1809/order-desk/internal/telemetry"
)

type cacheLocker interface {
	port.CacheRepository
	port.Locker
}

func main() {
	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	ctx := context.Background()

	tp, err := telemetry.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.WithError(err).Fatal("failed to init tracer")
	}

	// Store
	var store port.Store
	var db *sql.DB
	if cfg.MySQLDSN != "" {
		var mysqlAdapter *storage.MySQLAdapter
		db, mysqlAdapter, err = connectMySQL(ctx, cfg, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect mysql")
		}
		if err := mysqlAdapter.Migrate(ctx); err != nil {
			logger.WithError(err).Fatal("failed to migrate schema")
		}
		store = mysqlAdapter
		logger.Info("connected to mysql")
	} else {
		store = storage.NewMemoryStore()
		logger.Warn("MYSQL_DSN not set, using in-memory store")
	}

	// Cache, sequences and locks
	var cache cacheLocker
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 100})
		redisAdapter := storage.NewRedisAdapter(rdb)
		if err := redisAdapter.Ping(ctx); err != nil {
			logger.WithError(err).Fatal("failed to connect redis")
		}
		cache = redisAdapter
		logger.Info("connected to redis")
	} else {
		cache = storage.NewMemoryCache()
		logger.Warn("REDIS_ADDR not set, using in-process cache")
	}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithTracer(tp.Tracer(cfg.ServiceName)),
		service.WithLocker(cache, cfg.LockTTL),
	}

	// Order events
	var publisher *messaging.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		writer, err := messaging.NewTracedWriter(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ServiceName, tp)
		if err != nil {
			logger.WithError(err).Fatal("failed to create kafka writer")
		}
		publisher = messaging.NewKafkaPublisher(writer)
		opts = append(opts, service.WithPublisher(publisher))
		logger.WithField("topic", cfg.KafkaTopic).Info("publishing order events to kafka")
	}

	svc := handler.Services{
		Orders:         service.NewOrderService(store, cache, opts...),
		Inventory:      service.NewInventoryService(store, opts...),
		Catalog:        service.NewCatalogService(store, opts...),
		PurchaseOrders: service.NewPurchaseOrderService(store, cache, opts...),
		Notifications:  service.NewNotificationService(store),
		Guard:          service.NewGuard(store, opts...),
	}

	if cfg.BootstrapAdmin != "" {
		if err := svc.Guard.Bootstrap(ctx, cfg.BootstrapAdmin, cfg.BootstrapAdminName); err != nil {
			logger.WithError(err).Fatal("failed to bootstrap admin profile")
		}
	}

	tokens := handler.NewTokenIssuer(cfg.JWTSecret)

	// gRPC
	grpcServer := grpc.NewServer()
	handler.NewGRPCHandler(svc, tokens, logger).Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.WithError(err).Fatal("failed to listen")
	}
	go func() {
		logger.Infof("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.WithError(err).Error("gRPC server error")
		}
	}()

	// HTTP
	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.NewHTTPHandler(svc, tokens, logger).Router(cfg.ServiceName),
	}
	go func() {
		logger.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("HTTP server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP shutdown")
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.WithError(err).Warn("kafka writer close")
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if db != nil {
		_ = db.Close()
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("tracer shutdown")
	}
	logger.Info("connections closed")
}

// connectMySQL waits for the database to accept connections.
func connectMySQL(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*sql.DB, *storage.MySQLAdapter, error) {
	db, err := storage.OpenMySQL(cfg.MySQLDSN)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnLifetime)

	adapter := storage.NewMySQLAdapter(db)
	for i := 1; i <= cfg.DBConnectTries; i++ {
		if err = adapter.Ping(ctx); err == nil {
			return db, adapter, nil
		}
		logger.WithField("attempt", i).Info("waiting for database...")
		time.Sleep(time.Second)
	}
	_ = db.Close()
	return nil, nil, err
}
