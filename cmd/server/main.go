package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"business-visa-backend/internal/app"
	httpapi "business-visa-backend/internal/api/http"
	"business-visa-backend/internal/config"
	"business-visa-backend/internal/jobs"
	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/repository/postgres"
	"business-visa-backend/internal/scheduler"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	withScheduler := flag.Bool("with-scheduler", true, "Run the reconciliation jobs in this process")
	flag.Parse()

	// A .env file is optional; the environment always wins.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to read .env: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Business Visa Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "network", cfg.Solana.Network)
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	application, err := app.New(cfg, db)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Mint workers
	application.Queue.Start(ctx)

	// Reconciliation jobs
	var cronScheduler *scheduler.Scheduler
	if *withScheduler {
		jobRunner := jobs.NewJobRunner(&jobs.Services{
			Applicant: application.Applicants,
			Visa:      application.Visa,
		}, application.Store, cfg)
		cronScheduler = scheduler.NewScheduler(jobRunner)
		if cronScheduler.EntryCount() == 0 {
			logger.Warn("Scheduler enabled but no jobs registered")
		}
		cronScheduler.Start()
	}

	// gRPC health endpoint for orchestrators
	var grpcServer *grpc.Server
	healthServer := health.NewServer()
	if addr := cfg.GetGRPCHealthAddress(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			log.Fatalf("Failed to listen: %v", err)
		}
		grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthServer)
		reflection.Register(grpcServer)
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

		go func() {
			logger.Info("gRPC health server listening", "address", addr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC health server error", "error", err)
			}
		}()
	}

	// HTTP API
	server := &http.Server{
		Addr: cfg.GetServerAddress(),
		Handler: httpapi.NewRouter(cfg, httpapi.Services{
			Applicants: application.Applicants,
			Visa:       application.Visa,
			Users:      application.Users,
		}, application.Signer, application.Files),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Get().Handler(), slog.LevelError),
	}
	go func() {
		logger.Info("HTTP server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down...")
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if cronScheduler != nil {
		cronScheduler.Stop()
	}
	application.Queue.Wait()
	logger.Info("Server stopped. Goodbye!")
}
