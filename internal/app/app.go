// Package app wires the configured backends into the business services
// shared by the API server and the cron runner.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"business-visa-backend/internal/config"
	"business-visa-backend/internal/gateway"
	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/queue"
	"business-visa-backend/internal/repository/postgres"
	"business-visa-backend/internal/security"
	"business-visa-backend/internal/service"
	"business-visa-backend/internal/storage"

	"github.com/go-redis/redis/v8"
)

// queueSignatureTTL bounds how long a signed mint message stays valid.
const queueSignatureTTL = 24 * time.Hour

type App struct {
	Store  *postgres.Store
	Signer security.MessageSigner
	Queue  queue.Queue
	// Files is set only for local image storage.
	Files storage.FileReader

	Applicants service.ApplicantService
	Visa       service.VisaService
	Users      service.UserService

	redis *redis.Client
}

// New builds every service from cfg on top of db.
func New(cfg *config.Config, db *sql.DB) (*App, error) {
	a := &App{
		Store:  postgres.NewStore(db),
		Signer: security.NewMessageSigner(cfg.Queue.SigningKey, queueSignatureTTL),
	}

	images, err := a.imageStore(cfg)
	if err != nil {
		return nil, err
	}
	emails, err := newEmailService(cfg)
	if err != nil {
		return nil, err
	}

	underdog := gateway.NewUnderdogClient(gateway.UnderdogConfig{
		BaseURL:   cfg.Underdog.BaseURL,
		APIKey:    cfg.Underdog.APIKey,
		ProjectID: cfg.Underdog.ProjectID,
		Timeout:   time.Duration(cfg.Underdog.TimeoutSeconds) * time.Second,
	})
	renderer := gateway.NewVisaImageGenerator(cfg.App.FrontendAPIURL, cfg.App.Secret, cfg.ImageKit.RootFolder(), images)

	a.Visa = service.NewVisaService(a.Store.Repositories, a.Store, underdog, renderer, emails, service.VisaConfig{
		Mainnet:          cfg.Solana.Mainnet(),
		PaymentLinkID:    cfg.Sphere.PaymentLinkID,
		DefaultName:      cfg.App.DefaultMemberName,
		MintClaimTimeout: cfg.Scheduler.MintClaimTimeout(),
	})
	a.Users = service.NewUserService(a.Store.Users)

	handler := func(ctx context.Context, applicantEmail string) error {
		_, err := a.Visa.Mint(ctx, applicantEmail)
		return err
	}
	switch cfg.Queue.Type {
	case "redis":
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Queue.RedisAddr})
		a.Queue = queue.NewRedisQueue(a.redis, cfg.Queue.RedisKey, a.Signer, handler, cfg.Queue.Workers)
		logger.Info("Using Redis mint queue", "addr", cfg.Queue.RedisAddr, "key", cfg.Queue.RedisKey)
	default:
		a.Queue = queue.NewMemoryQueue(handler, cfg.Queue.Workers, cfg.Queue.Size)
		logger.Info("Using in-memory mint queue", "workers", cfg.Queue.Workers, "size", cfg.Queue.Size)
	}

	a.Applicants = service.NewApplicantService(a.Store.Repositories, a.Store, a.Queue)
	return a, nil
}

func (a *App) imageStore(cfg *config.Config) (storage.ImageStore, error) {
	switch cfg.Storage.Type {
	case "local":
		logger.Info("Using local image storage", "upload_dir", cfg.Storage.UploadDir)
		local, err := storage.NewLocalStore(cfg.Storage.BaseURL, cfg.Storage.UploadDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		a.Files = local
		return local, nil
	case "imagekit":
		logger.Info("Using ImageKit image storage", "folder", cfg.ImageKit.RootFolder())
		return storage.NewImageKitStore(cfg.ImageKit.PrivateKey), nil
	default:
		return nil, fmt.Errorf("storage type %q not supported", cfg.Storage.Type)
	}
}

func newEmailService(cfg *config.Config) (service.EmailService, error) {
	paymentLink := cfg.Sphere.PaymentLinkURL
	switch cfg.Email.Provider {
	case "frontend":
		return service.NewFrontendEmailService(cfg.App.FrontendAPIURL, cfg.App.Secret, paymentLink), nil
	case "sendgrid":
		return service.NewSendGridEmailService(cfg.Email.SendGridAPIKey, cfg.Email.From, cfg.Email.FromName, paymentLink), nil
	case "smtp":
		smtp := cfg.Email.SMTP
		return service.NewSMTPEmailService(smtp.Host, smtp.Port, smtp.User, smtp.Password, cfg.Email.From, paymentLink), nil
	default:
		return nil, fmt.Errorf("email provider %q not supported", cfg.Email.Provider)
	}
}

// Close releases connections opened by New. The database is owned by the caller.
func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
