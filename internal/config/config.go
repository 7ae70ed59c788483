// Package config содержит логику чтения конфигурации сервиса аукциона.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mmeshcher/escrow-auction/internal/validation"
)

const (
	defaultRunAddress       = "localhost:8080"
	defaultDuration         = 24 * time.Hour
	defaultExtensionWindow  = 10 * time.Minute
	defaultFinalizeInterval = time.Second
)

// ErrInvalidConfig возвращается при некорректных параметрах запуска.
var ErrInvalidConfig = errors.New("invalid config")

// Config содержит параметры конфигурации сервиса аукциона.
type Config struct {
	RunAddress             string `env:"RUN_ADDRESS"`
	DatabaseURI            string `env:"DATABASE_URI"`
	TransferServiceAddress string `env:"TRANSFER_SERVICE_ADDRESS"`
	NATSURL                string `env:"NATS_URL"`
	AuthSecret             string `env:"AUTH_SECRET"`

	Owner  string `env:"AUCTION_OWNER"`
	Seller string `env:"AUCTION_SELLER"`
	Item   string `env:"AUCTION_ITEM"`

	// Start задаётся в RFC3339. Пустое значение означает момент запуска.
	Start            string        `env:"AUCTION_START"`
	Duration         time.Duration `env:"AUCTION_DURATION"`
	ExtensionWindow  time.Duration `env:"AUCTION_EXTENSION_WINDOW"`
	FinalizeInterval time.Duration `env:"FINALIZE_INTERVAL"`

	// StartTime вычисляется из Start.
	StartTime time.Time
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.TransferServiceAddress, "t", "", "value transfer service address")
	flag.StringVar(&cfg.NATSURL, "n", "", "NATS server URL")
	flag.StringVar(&cfg.AuthSecret, "s", "", "JWT signing secret")

	flag.StringVar(&cfg.Owner, "owner", "", "auction owner identity")
	flag.StringVar(&cfg.Seller, "seller", "", "seller identity")
	flag.StringVar(&cfg.Item, "item", "", "auctioned item description")

	flag.StringVar(&cfg.Start, "start", "", "auction start time, RFC3339 (default now)")
	flag.DurationVar(&cfg.Duration, "duration", defaultDuration, "auction duration")
	flag.DurationVar(&cfg.ExtensionWindow, "extension", defaultExtensionWindow, "soft-close extension window")
	flag.DurationVar(&cfg.FinalizeInterval, "finalize-interval", defaultFinalizeInterval, "deadline check interval")

	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}

	if err := cfg.resolveStart(time.Now); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) resolveStart(now func() time.Time) error {
	if c.Start == "" {
		c.StartTime = now().UTC()
		return nil
	}

	t, err := time.Parse(time.RFC3339, c.Start)
	if err != nil {
		return fmt.Errorf("%w: auction start %q: %w", ErrInvalidConfig, c.Start, err)
	}
	c.StartTime = t.UTC()
	return nil
}

func (c *Config) validate() error {
	if !validation.IsValidIdentity(c.Owner) {
		return fmt.Errorf("%w: owner identity %q", ErrInvalidConfig, c.Owner)
	}
	if !validation.IsValidIdentity(c.Seller) {
		return fmt.Errorf("%w: seller identity %q", ErrInvalidConfig, c.Seller)
	}
	if c.TransferServiceAddress == "" {
		return fmt.Errorf("%w: transfer service address is required", ErrInvalidConfig)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidConfig)
	}
	if c.ExtensionWindow <= 0 {
		return fmt.Errorf("%w: extension window must be positive", ErrInvalidConfig)
	}
	if c.FinalizeInterval <= 0 {
		return fmt.Errorf("%w: finalize interval must be positive", ErrInvalidConfig)
	}
	return nil
}
