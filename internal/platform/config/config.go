package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string   `env:"SERVICE_NAME"  envDefault:"electionkeeper"`
	HTTPPort     string   `env:"HTTP_PORT"     envDefault:"8080"`
	PostgresDSN  string   `env:"POSTGRES_DSN"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	Storage          string        `env:"LEDGER_STORAGE"           envDefault:"memory"`
	SQLitePath       string        `env:"LEDGER_SQLITE_PATH"       envDefault:"data/ledger.db"`
	RevoteAccounting string        `env:"LEDGER_REVOTE_ACCOUNTING" envDefault:"replace"`
	RelayInterval    time.Duration `env:"LEDGER_RELAY_INTERVAL"    envDefault:"2s"`
	RelayBatchSize   int           `env:"LEDGER_RELAY_BATCH_SIZE"  envDefault:"100"`
	EnableAudit      bool          `env:"LEDGER_ENABLE_AUDIT"      envDefault:"true"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	cfg.RevoteAccounting = strings.ToLower(strings.TrimSpace(cfg.RevoteAccounting))
	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("POSTGRES_DSN is required when LEDGER_STORAGE=%s", StoragePostgres)
		}
	case StorageSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("LEDGER_SQLITE_PATH is required when LEDGER_STORAGE=%s", StorageSQLite)
		}
	default:
		return fmt.Errorf("unsupported LEDGER_STORAGE %q", c.Storage)
	}
	switch c.RevoteAccounting {
	case "replace", "accumulate":
	default:
		return fmt.Errorf("unsupported LEDGER_REVOTE_ACCOUNTING %q", c.RevoteAccounting)
	}
	if c.RelayInterval <= 0 {
		return fmt.Errorf("LEDGER_RELAY_INTERVAL must be positive")
	}
	if c.RelayBatchSize <= 0 {
		return fmt.Errorf("LEDGER_RELAY_BATCH_SIZE must be positive")
	}
	return nil
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value != "" {
			out = append(out, value)
		}
	}
	if len(out) == 0 {
		return []string{"localhost:9092"}
	}
	return out
}
