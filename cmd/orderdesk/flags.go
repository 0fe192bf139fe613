package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env"
)

type Config struct {
	Address              string        `env:"RUN_ADDRESS" envDefault:"localhost:8080"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"INFO"`
	DatabaseConnection   string        `env:"DATABASE_URI"`
	JWTSecret            string        `env:"JWT_SECRET"`
	JWTTTL               time.Duration `env:"JWT_TTL" envDefault:"12h"`
	OperatorPasswordHash string        `env:"OPERATOR_PASSWORD_HASH"`
	MailAddress          string        `env:"MAIL_SERVICE_ADDRESS" envDefault:"http://localhost:8025"`
	MailSigningKey       string        `env:"MAIL_SIGNING_KEY"`
	DocumentAddress      string        `env:"DOCUMENT_SERVICE_ADDRESS" envDefault:"http://localhost:8030"`
	RedisAddress         string        `env:"REDIS_ADDRESS"`
	NotificationWorkers  int           `env:"NOTIFICATION_WORKERS" envDefault:"4"`
	NotificationQueue    int           `env:"NOTIFICATION_QUEUE_SIZE" envDefault:"256"`
	SessionTTL           time.Duration `env:"TRACKING_SESSION_TTL" envDefault:"30m"`
	InvoiceTokenTTL      time.Duration `env:"INVOICE_TOKEN_TTL" envDefault:"10m"`
	SweepInterval        time.Duration `env:"RATELIMIT_SWEEP_INTERVAL" envDefault:"5m"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("ENV JWT_SECRET must be set")
	}
	if cfg.OperatorPasswordHash == "" {
		return nil, fmt.Errorf("ENV OPERATOR_PASSWORD_HASH must be set")
	}

	address := flag.String("a", cfg.Address, "{Host:port} for server")
	loglevel := flag.String("l", cfg.LogLevel, "Log level for server")
	databaseConnection := flag.String("d", cfg.DatabaseConnection, "Database connection string")
	jwtTTL := flag.Duration("t", cfg.JWTTTL, "TTL for operator JWT (e.g. 12h; 30m)")
	mailAddress := flag.String("m", cfg.MailAddress, "Mail service address")
	documentAddress := flag.String("f", cfg.DocumentAddress, "Document service address")
	redisAddress := flag.String("r", cfg.RedisAddress, "Redis address for rate limit counters (empty = in-memory)")
	notificationWorkers := flag.Int("w", cfg.NotificationWorkers, "Size of notification worker pool")

	flag.Parse()

	cfg.Address = *address
	cfg.LogLevel = *loglevel
	cfg.DatabaseConnection = *databaseConnection
	cfg.JWTTTL = *jwtTTL
	cfg.MailAddress = *mailAddress
	cfg.DocumentAddress = *documentAddress
	cfg.RedisAddress = *redisAddress
	cfg.NotificationWorkers = *notificationWorkers

	return cfg, nil
}
