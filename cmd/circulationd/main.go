package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/librarydesk/circulation/internal/config"
	"github.com/librarydesk/circulation/internal/db"
	"github.com/librarydesk/circulation/internal/events"
	"github.com/librarydesk/circulation/internal/export"
	grpcserver "github.com/librarydesk/circulation/internal/grpc"
	"github.com/librarydesk/circulation/internal/metrics"
	"github.com/librarydesk/circulation/internal/repo"
	"github.com/librarydesk/circulation/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// brokerPublisher is a publisher the daemon can also close on shutdown
type brokerPublisher interface {
	grpcserver.EventPublisher
	Close() error
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logger.NewLogger(cfg.ServiceName, cfg.LogLevel)
	defer log.Sync()

	log.Info("Circulation service starting", zap.String("db_driver", cfg.DBDriver))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect to database
	log.Info("Connecting to database...")
	database, err := db.Connect(cfg.DBDriver, cfg.DSN(), cfg.DBLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// Run migrations
	log.Info("Running database migrations...")
	if err := db.RunMigrations(database); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	if cfg.SeedCatalog {
		n, err := db.SeedCatalog(database)
		if err != nil {
			log.Fatal("Failed to seed catalog", zap.Error(err))
		}
		log.Info("Catalog seeded", zap.Int("books", n))
	}

	// Initialize repositories
	rules := cfg.Rules()
	catalogRepo := repo.NewCatalogRepository(database, log)
	userRepo := repo.NewUserRepository(database, log)
	ledgerRepo := repo.NewLedgerRepository(database, rules, log)
	reportRepo := repo.NewReportRepository(database, rules, log)
	auditRepo := repo.NewAuditRepository(database, log)

	if cfg.BootstrapAdminEmail != "" && cfg.BootstrapAdminPassword != "" {
		admin, created, err := userRepo.EnsureAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
		if err != nil {
			log.Fatal("Failed to bootstrap admin", zap.Error(err))
		}
		log.Info("Bootstrap admin ready", zap.String("user_id", admin.ID), zap.Bool("created", created))
	}

	// Connect to RabbitMQ; run without events if it is down
	log.Info("Connecting to RabbitMQ")
	var publisher brokerPublisher
	if p, err := events.NewPublisher(cfg.RabbitMQURL, log); err != nil {
		log.Warn("RabbitMQ unavailable, events disabled", zap.Error(err))
		publisher = events.NopPublisher{Log: log}
	} else {
		publisher = p
	}
	defer publisher.Close()

	if cfg.AuditConsumerEnabled {
		consumer, err := events.NewAuditConsumer(cfg.RabbitMQURL, cfg.ServiceName, auditRepo, log)
		if err != nil {
			log.Warn("Audit consumer unavailable", zap.Error(err))
		} else {
			defer consumer.Close()
			go func() {
				if err := consumer.Start(ctx); err != nil {
					log.Error("Audit consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	// Export store
	var exporter grpcserver.HistoryExporter
	store, err := export.OpenStore(ctx, export.StoreConfig{
		Driver:      export.Driver(cfg.ExportDriver),
		Dir:         cfg.ExportDir,
		S3Bucket:    cfg.ExportS3Bucket,
		S3Region:    cfg.ExportS3Region,
		S3Endpoint:  cfg.ExportS3Endpoint,
		S3PathStyle: cfg.ExportS3PathStyle,
	})
	if err != nil {
		log.Warn("Export store unavailable, exports disabled", zap.Error(err))
	} else {
		exporter = export.NewExporter(store, reportRepo, log)
	}

	// Metrics
	m := metrics.New()
	go m.RunStatsRefresher(ctx, reportRepo, cfg.StatsRefreshInterval, log)

	// Create gRPC server
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcserver.LoggingInterceptor(log),
			m.UnaryServerInterceptor(),
		),
	)

	// Register circulation service
	circulationService := grpcserver.NewCirculationServer(grpcserver.Deps{
		Catalog:   catalogRepo,
		Users:     userRepo,
		Ledger:    ledgerRepo,
		Reports:   reportRepo,
		Exporter:  exporter,
		Publisher: publisher,
		Metrics:   m,
	}, log)
	grpcserver.RegisterCirculationService(grpcServer, circulationService)

	// Register health service
	healthServer := grpcserver.NewHealthServer(database, publisher, log)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	// Start gRPC server
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatal("Failed to listen on gRPC port", zap.Error(err))
	}

	go func() {
		log.Info("Starting gRPC server", zap.String("address", grpcListener.Addr().String()))
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Fatal("Failed to serve gRPC", zap.Error(err))
		}
	}()

	// Start HTTP server for health checks and metrics
	httpMux := http.NewServeMux()
	httpMux.HandleFunc("/healthz", healthHandler(healthServer))
	httpMux.Handle("/metrics", m.Handler())

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Stop gRPC server
	grpcServer.GracefulStop()

	// Let queued events reach the broker before the deferred publisher Close
	if err := circulationService.Drain(shutdownCtx); err != nil {
		log.Warn("Events still in flight at shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}

func healthHandler(health *grpcserver.HealthServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !health.Serving() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("unhealthy"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	}
}
