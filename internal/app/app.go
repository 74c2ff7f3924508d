package app

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/joho/godotenv"
	"github.com/sportdesk/walletd/internal/approval"
	"github.com/sportdesk/walletd/internal/cache"
	"github.com/sportdesk/walletd/internal/config"
	"github.com/sportdesk/walletd/internal/env"
	"github.com/sportdesk/walletd/internal/errHandler"
	"github.com/sportdesk/walletd/internal/file"
	"github.com/sportdesk/walletd/internal/gateway"
	"github.com/sportdesk/walletd/internal/helper"
	"github.com/sportdesk/walletd/internal/identity"
	"github.com/sportdesk/walletd/internal/ledger"
	"github.com/sportdesk/walletd/internal/repository"
	"github.com/sportdesk/walletd/internal/settlement"
	"github.com/sportdesk/walletd/internal/smtp"
	"github.com/sportdesk/walletd/internal/stream"
	"github.com/sportdesk/walletd/internal/withdrawal"
)

// Essential services and resources are exposed to the application
// this makes it possible for methods to have access to these items when they need them
type Application struct {
	Config       config.Config
	DB           repository.Database
	Logger       *slog.Logger
	Mailer       *smtp.Mailer
	WG           sync.WaitGroup
	errorHandler *errHandler.ErrorHandler
	helper       *helper.HelperRepository
	Kafka        *stream.KafkaStream
	Cache        *cache.Cache
	FileUploader *file.FileUploader
	Identity     identity.Client
	Gateways     *gateway.Registry
	Recorder     *ledger.Recorder
	Reconciler   *settlement.Reconciler
	Withdrawals  *withdrawal.Service
	Approvals    *approval.Workflow
}

func NewApplication(logger *slog.Logger) (*Application, error) {
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", "error", err)
	}

	var cfg config.Config

	// config values are loaded from the .env file
	// Default values are provided for these items and these should strictly be values for development mode only
	// make sure no production-level value is exposed as default value here
	cfg.BaseURL = env.GetString("BASE_URL", "http://localhost:4444")
	cfg.HttpPort = env.GetInt("HTTP_PORT", 4444)

	cfg.Db.Dsn = env.GetString("DB_DSN", "user:pass@localhost:5432/db")
	cfg.Db.Automigrate = env.GetBool("DB_AUTOMIGRATE", true)

	cfg.Jwt.SecretKey = env.GetString("JWT_SECRET_KEY", "ajf5nx3qmp6zquevllxocxqvyz42ypuo")

	// server errors won't be sent via email if the NOTIFICATIONS_EMAIL wasn't set in the .env file
	cfg.Notifications.Email = env.GetString("NOTIFICATIONS_EMAIL", "")

	cfg.Smtp.Host = env.GetString("SMTP_HOST", "example.smtp.host")
	cfg.Smtp.Port = env.GetInt("SMTP_PORT", 25)
	cfg.Smtp.Username = env.GetString("SMTP_USERNAME", "example_username")
	cfg.Smtp.Password = env.GetString("SMTP_PASSWORD", "pa55word")
	cfg.Smtp.From = env.GetString("SMTP_FROM", "Example Name <no_reply@example.org>")

	cfg.Identity.BaseURL = env.GetString("IDENTITY_BASE_URL", "http://localhost:5005")

	cfg.Gateway.BaseURL = env.GetString("GATEWAY_BASE_URL", "https://api.paydirect.example")
	cfg.Gateway.ApiKey = env.GetString("GATEWAY_API_KEY", "")
	cfg.Gateway.ApiSecret = env.GetString("GATEWAY_API_SECRET", "")
	cfg.Gateway.WebhookSecret = env.GetString("GATEWAY_WEBHOOK_SECRET", "")

	cfg.FileUploader.ApiKey = env.GetString("CLOUDINARY_API_KEY", "")
	cfg.FileUploader.CloudName = env.GetString("CLOUDINARY_CLOUD_NAME", "")
	cfg.FileUploader.ApiSecret = env.GetString("CLOUDINARY_API_SECRET", "")

	cfg.Withdrawal.MaxJobAttempts = env.GetInt("WITHDRAWAL_MAX_JOB_ATTEMPTS", 3)
	cfg.Withdrawal.RequeueAfterMin = env.GetInt("WITHDRAWAL_REQUEUE_AFTER_MIN", 15)

	cfg.RedisServer = env.GetString("REDIS_SERVER", "localhost:6379")
	cfg.KafkaServers = env.GetString("KAFKA_SERVERS", "localhost:9092")

	db, err := repository.New(cfg.Db.Dsn, cfg.Db.Automigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	mailer, err := smtp.NewMailer(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.From)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	errorHandler := errHandler.New(cfg.Notifications.Email, mailer, logger)

	kafkaStream := stream.New(cfg.KafkaServers)
	cacheClient := cache.New(cfg.RedisServer, 0)
	fileUploader := file.New(cfg.FileUploader.CloudName, cfg.FileUploader.ApiKey, cfg.FileUploader.ApiSecret)

	idClient := identity.NewClient(cfg.Identity.BaseURL)
	paydirect := gateway.NewPaydirect(cfg.Gateway.BaseURL, cfg.Gateway.ApiKey, cfg.Gateway.ApiSecret, cfg.Gateway.WebhookSecret)
	gateways := gateway.NewRegistry(paydirect)

	recorder := ledger.New(db)
	reconciler := settlement.New(db, logger)
	withdrawals := withdrawal.NewService(db, recorder, idClient, paydirect, kafkaStream, cacheClient, logger)
	approvals := approval.New(db, recorder, idClient, fileUploader, logger)

	app := &Application{
		Config:       cfg,
		DB:           db,
		Logger:       logger,
		Mailer:       mailer,
		errorHandler: errorHandler,
		Kafka:        kafkaStream,
		Cache:        cacheClient,
		FileUploader: fileUploader,
		Identity:     idClient,
		Gateways:     gateways,
		Recorder:     recorder,
		Reconciler:   reconciler,
		Withdrawals:  withdrawals,
		Approvals:    approvals,
	}

	app.helper = helper.New(&app.WG, errorHandler)

	return app, nil
}
