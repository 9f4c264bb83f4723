package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	App       AppConfig       `yaml:"app"`
	Solana    SolanaConfig    `yaml:"solana"`
	Underdog  UnderdogConfig  `yaml:"underdog"`
	Sphere    SphereConfig    `yaml:"sphere"`
	Email     EmailConfig     `yaml:"email"`
	ImageKit  ImageKitConfig  `yaml:"imagekit"`
	Storage   StorageConfig   `yaml:"storage"`
	Queue     QueueConfig     `yaml:"queue"`
	Features  FeatureConfig   `yaml:"features"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host           string `yaml:"host" env:"SERVER_HOST"`
	Port           int    `yaml:"port" env:"PORT"`
	GRPCHealthPort int    `yaml:"grpc_health_port" env:"GRPC_HEALTH_PORT"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host        string `yaml:"host" env:"DB_HOST"`
	Port        int    `yaml:"port" env:"DB_PORT"`
	User        string `yaml:"user" env:"DB_USER"`
	Password    string `yaml:"password" env:"DB_PASSWORD"`
	Database    string `yaml:"database" env:"DB_NAME"`
	SSLMode     string `yaml:"ssl_mode" env:"DB_SSL_MODE"`
	AutoMigrate bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE"`
}

// AppConfig holds the shared secret and the frontend API used for rendering
// images and sending templated emails.
type AppConfig struct {
	Secret            string `yaml:"secret" env:"APP_SECRET"`
	FrontendAPIURL    string `yaml:"frontend_api_url" env:"FRONTEND_API_URL"`
	DefaultMemberName string `yaml:"default_member_name" env:"DEFAULT_MEMBER_NAME"`
}

type SolanaConfig struct {
	Network string `yaml:"network" env:"SOLANA_NETWORK"` // "mainnet-beta" or "devnet"
}

// Mainnet reports whether the service targets Solana mainnet.
func (s SolanaConfig) Mainnet() bool {
	return s.Network == "mainnet-beta"
}

// UnderdogConfig contains minting gateway settings
type UnderdogConfig struct {
	APIKey         string `yaml:"api_key" env:"UNDERDOG_API_KEY"`
	ProjectID      int    `yaml:"project_id" env:"UNDERDOG_PROJECT_ID"`
	BaseURL        string `yaml:"base_url" env:"UNDERDOG_BASE_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"UNDERDOG_TIMEOUT_SECONDS"`
}

// SphereConfig contains payment webhook settings
type SphereConfig struct {
	WebhookSecret  string `yaml:"webhook_secret" env:"SPHERE_PAYMENT_SUCCESS_WEBHOOK_SECRET"`
	PaymentLinkID  string `yaml:"payment_link_id" env:"BUSINESS_VISA_PAYMENT_LINK_ID"`
	PaymentLinkURL string `yaml:"payment_link_url" env:"BUSINESS_VISA_PAYMENT_LINK_URL"`
}

// EmailConfig selects the notification backend
type EmailConfig struct {
	Provider       string     `yaml:"provider" env:"EMAIL_PROVIDER"` // "frontend", "sendgrid" or "smtp"
	From           string     `yaml:"from" env:"EMAIL_FROM"`
	FromName       string     `yaml:"from_name" env:"EMAIL_FROM_NAME"`
	SendGridAPIKey string     `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
	SMTP           SMTPConfig `yaml:"smtp"`
}

// SMTPConfig contains email service settings
type SMTPConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
}

type ImageKitConfig struct {
	URL        string `yaml:"url" env:"IMAGEKIT_URL"`
	PublicKey  string `yaml:"public_key" env:"IMAGEKIT_API_KEY"`
	PrivateKey string `yaml:"private_key" env:"IMAGEKIT_API_SECRET"`
	Env        string `yaml:"env" env:"IMAGEKIT_ENV"` // "prod" or "dev"
}

// RootFolder is the top level upload folder for the configured environment.
func (c ImageKitConfig) RootFolder() string {
	if c.Env == "prod" {
		return "prod"
	}
	return "dev"
}

// StorageConfig contains image hosting settings
type StorageConfig struct {
	Type      string `yaml:"type" env:"STORAGE_TYPE"`     // "local" or "imagekit"
	UploadDir string `yaml:"upload_dir" env:"UPLOAD_DIR"` // For local storage
	BaseURL   string `yaml:"base_url" env:"STORAGE_BASE_URL"`
}

// QueueConfig contains mint queue settings
type QueueConfig struct {
	Type       string `yaml:"type" env:"QUEUE_TYPE"` // "memory" or "redis"
	Workers    int    `yaml:"workers" env:"QUEUE_WORKERS"`
	Size       int    `yaml:"size" env:"QUEUE_SIZE"`
	RedisAddr  string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisKey   string `yaml:"redis_key" env:"REDIS_QUEUE_KEY"`
	SigningKey string `yaml:"signing_key" env:"QUEUE_SIGNING_KEY"`
}

type FeatureConfig struct {
	AutoApprove bool `yaml:"auto_approve" env:"AUTO_APPROVE_APPLICATIONS"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	AutoApprove     string `yaml:"auto_approve" env:"CRON_AUTO_APPROVE"`
	VerifyClaim     string `yaml:"verify_claim" env:"CRON_VERIFY_CLAIM"`
	VerifyExpire    string `yaml:"verify_expire" env:"CRON_VERIFY_EXPIRE"`
	MintPending     string `yaml:"mint_pending" env:"CRON_MINT_PENDING"`
	DistributedLock bool   `yaml:"distributed_lock" env:"SCHEDULER_DISTRIBUTED_LOCK"`
	// MintClaimTimeoutMinutes is how long a mint claim is honoured before the
	// reconciliation job may take it over.
	MintClaimTimeoutMinutes int `yaml:"mint_claim_timeout_minutes" env:"MINT_CLAIM_TIMEOUT_MINUTES"`
}

// MintClaimTimeout returns the mint claim timeout as a duration.
func (s SchedulerConfig) MintClaimTimeout() time.Duration {
	return time.Duration(s.MintClaimTimeoutMinutes) * time.Minute
}

// RateLimitConfig throttles the public application endpoint
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second" env:"RATE_LIMIT_RPS"`
	Burst             int `yaml:"burst" env:"RATE_LIMIT_BURST"`

	// TrustedProxies lists the IPs or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string `yaml:"trusted_proxies" env:"RATE_LIMIT_TRUSTED_PROXIES" envSeparator:","`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" env:"LOG_FORMAT"` // "json" or "text"
}

// Load reads configuration from a YAML file. A missing file is not an error:
// the environment alone may carry the whole configuration.
func Load(configPath string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables if present
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.App.DefaultMemberName == "" {
		c.App.DefaultMemberName = "Dean's List DAO Member"
	}
	if c.Underdog.BaseURL == "" {
		if c.Solana.Mainnet() {
			c.Underdog.BaseURL = "https://api.underdogprotocol.com"
		} else {
			c.Underdog.BaseURL = "https://dev.underdogprotocol.com"
		}
	}
	if c.Underdog.TimeoutSeconds == 0 {
		c.Underdog.TimeoutSeconds = 30
	}
	if c.Email.Provider == "" {
		c.Email.Provider = "frontend"
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "imagekit"
	}
	if c.Queue.Type == "" {
		c.Queue.Type = "memory"
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 2
	}
	if c.Queue.Size == 0 {
		c.Queue.Size = 100
	}
	if c.Queue.RedisKey == "" {
		c.Queue.RedisKey = "business-visa:mint"
	}
	if c.Queue.SigningKey == "" {
		c.Queue.SigningKey = c.App.Secret
	}

	// Scheduler defaults, seconds precision
	if c.Scheduler.AutoApprove == "" {
		c.Scheduler.AutoApprove = "0 */10 * * * *"
	}
	if c.Scheduler.VerifyClaim == "" {
		c.Scheduler.VerifyClaim = "0 */5 * * * *"
	}
	if c.Scheduler.VerifyExpire == "" {
		c.Scheduler.VerifyExpire = "0 */10 * * * *"
	}
	if c.Scheduler.MintPending == "" {
		c.Scheduler.MintPending = "0 */30 * * * *"
	}
	if c.Scheduler.MintClaimTimeoutMinutes == 0 {
		c.Scheduler.MintClaimTimeoutMinutes = 15
	}

	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 1
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.App.Secret == "" {
		return fmt.Errorf("app secret is required")
	}
	if _, err := url.ParseRequestURI(c.App.FrontendAPIURL); err != nil {
		return fmt.Errorf("frontend API URL is invalid: %w", err)
	}

	if c.Solana.Network != "mainnet-beta" && c.Solana.Network != "devnet" {
		return fmt.Errorf("solana network must be mainnet-beta or devnet, got %q", c.Solana.Network)
	}

	if c.Underdog.APIKey == "" {
		return fmt.Errorf("underdog API key is required")
	}
	if c.Underdog.ProjectID <= 0 {
		return fmt.Errorf("underdog project id is required")
	}

	if c.Sphere.WebhookSecret == "" {
		return fmt.Errorf("sphere webhook secret is required")
	}
	if c.Sphere.PaymentLinkID == "" {
		return fmt.Errorf("business visa payment link id is required")
	}

	switch c.Email.Provider {
	case "frontend":
	case "sendgrid":
		if c.Email.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid API key is required")
		}
		if c.Email.From == "" {
			return fmt.Errorf("email from address is required")
		}
	case "smtp":
		if c.Email.SMTP.Host == "" {
			return fmt.Errorf("SMTP host is required")
		}
		if c.Email.SMTP.Port <= 0 || c.Email.SMTP.Port > 65535 {
			return fmt.Errorf("invalid SMTP port: %d", c.Email.SMTP.Port)
		}
	default:
		return fmt.Errorf("unsupported email provider: %s", c.Email.Provider)
	}

	switch c.Storage.Type {
	case "imagekit":
		if c.ImageKit.PrivateKey == "" || c.ImageKit.URL == "" {
			return fmt.Errorf("imagekit url and private key are required")
		}
		if c.ImageKit.Env != "prod" && c.ImageKit.Env != "dev" {
			return fmt.Errorf("imagekit env must be prod or dev, got %q", c.ImageKit.Env)
		}
	case "local":
		if c.Storage.UploadDir == "" {
			return fmt.Errorf("upload directory is required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	for _, p := range c.RateLimit.TrustedProxies {
		p = strings.TrimSpace(p)
		if _, _, err := net.ParseCIDR(p); err != nil && net.ParseIP(p) == nil {
			return fmt.Errorf("invalid trusted proxy %q", p)
		}
	}

	switch c.Queue.Type {
	case "memory":
	case "redis":
		if c.Queue.RedisAddr == "" {
			return fmt.Errorf("redis address is required for the redis queue")
		}
	default:
		return fmt.Errorf("unsupported queue type: %s", c.Queue.Type)
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCHealthAddress returns the gRPC health server address, or "" when disabled.
func (c *Config) GetGRPCHealthAddress() string {
	if c.Server.GRPCHealthPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCHealthPort)
}
