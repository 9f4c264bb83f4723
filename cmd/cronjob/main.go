package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"business-visa-backend/internal/app"
	"business-visa-backend/internal/config"
	"business-visa-backend/internal/jobs"
	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/scheduler"

	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a job once and exit (auto_approve, verify_claim, verify_expire, mint_pending, all)")
	renewEmails := flag.String("renew-emails", "", "Renew the visas of the emails listed in this JSON file and exit")
	extendDays := flag.Int("extend-days", 0, "Push every active visa expiry out by this many days and exit")
	earningsFile := flag.String("earnings", "", "Apply the wallet earnings in this JSON file and exit")
	reconcileMints := flag.Bool("reconcile-mints", false, "Resume interrupted mints once and exit; mints with an unknown gateway outcome go to -failures")
	failuresPath := flag.String("failures", "", "Write the items a maintenance run could not process to this file")
	flag.Parse()

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
	logger.Info("Starting Business Visa Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	application, err := app.New(cfg, db)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Mints queued by auto-approve run here; anything left behind is picked
	// up by the mint_pending job.
	application.Queue.Start(ctx)
	defer application.Queue.Wait()
	defer stop()

	maintenance := jobs.NewMaintenance(application.Visa)
	switch {
	case *renewEmails != "":
		emails, err := jobs.LoadEmails(*renewEmails)
		if err != nil {
			log.Fatalf("Failed to load emails: %v", err)
		}
		res, err := maintenance.RenewEmails(ctx, emails, *failuresPath)
		if res == nil {
			log.Fatalf("Renewal batch failed: %v", err)
		}
		report("renew-emails", res.Processed, len(res.Failed), err)
		return
	case *extendDays != 0:
		res, err := maintenance.ExtendExpiry(ctx, *extendDays, *failuresPath)
		if res == nil {
			log.Fatalf("Expiry extension failed: %v", err)
		}
		report("extend-days", res.Processed, len(res.Failed), err)
		return
	case *reconcileMints:
		res, err := maintenance.ReconcileMints(ctx, *failuresPath)
		if res == nil {
			log.Fatalf("Mint reconciliation failed: %v", err)
		}
		report("reconcile-mints", res.Processed, len(res.Failed), err)
		return
	case *earningsFile != "":
		updates, err := jobs.LoadEarnings(*earningsFile)
		if err != nil {
			log.Fatalf("Failed to load earnings: %v", err)
		}
		res, err := maintenance.UpdateEarnings(ctx, updates, *failuresPath)
		if res == nil {
			log.Fatalf("Earnings update failed: %v", err)
		}
		report("earnings", len(res.Wallets), len(res.FailedUpdates), err)
		return
	}

	jobRunner := jobs.NewJobRunner(&jobs.Services{
		Applicant: application.Applicants,
		Visa:      application.Visa,
	}, application.Store, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if *runOnce == "all" {
			jobRunner.RunAllJobs()
		} else if err := jobRunner.Run(*runOnce); err != nil {
			logger.Error("Unknown job name", "job", *runOnce)
			fmt.Printf("Available jobs:\n")
			for _, name := range []string{jobs.JobAutoApprove, jobs.JobVerifyClaim, jobs.JobVerifyExpire, jobs.JobMintPending, "all"} {
				fmt.Printf("  - %s\n", name)
			}
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)
	cronScheduler.Start()
	if cronScheduler.EntryCount() == 0 {
		log.Fatalf("No cron jobs registered, check the scheduler configuration")
	}
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.", "jobs", cronScheduler.EntryCount())

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

func report(task string, processed, failed int, err error) {
	if err != nil {
		logger.Error("Maintenance run failed", "task", task, "processed", processed, "failed", failed, "error", err)
		return
	}
	logger.Info("Maintenance run completed", "task", task, "processed", processed, "failed", failed)
}
