package config

import (
	"fmt"
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
)

type Config struct {
	Port              string `env:"PORT" envDefault:"8080"`
	DBDriver          string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN             string `env:"DB_DSN" envDefault:"wastenot.db"`
	LogFile           string `env:"LOG_FILE" envDefault:"./wastenot.log"`
	CatalogFile       string `env:"CATALOG_FILE"`
	AMQPURL           string `env:"AMQP_URL"`
	AMQPExchange      string `env:"AMQP_EXCHANGE" envDefault:"wastenot.events"`
	CORSOrigins       string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000"`
	DefaultStoreID    string `env:"DEFAULT_STORE_ID" envDefault:"walmart_001"`
	DepleteMaxRetries int    `env:"DEPLETE_MAX_RETRIES" envDefault:"5"`
	BodyLimit         int    `env:"BODY_LIMIT" envDefault:"1048576"`
}

// Load reads the environment, then lets command-line flags override it.
// args excludes the program name.
func Load(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := pflag.NewFlagSet("wastenot", pflag.ContinueOnError)
	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "database driver (sqlite or postgres)")
	fs.StringVar(&cfg.DBDSN, "db-dsn", cfg.DBDSN, "database DSN; sqlite file path or postgres URL")
	fs.StringVar(&cfg.CatalogFile, "catalog", cfg.CatalogFile, "YAML product catalog (built-in catalog when empty)")
	fs.StringVar(&cfg.AMQPURL, "amqp-url", cfg.AMQPURL, "RabbitMQ URL for domain events (log only when empty)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "append JSON logs to this file as well as stderr")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if rest := fs.Args(); len(rest) > 0 {
		return Config{}, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if cfg.DepleteMaxRetries < 1 {
		return Config{}, fmt.Errorf("DEPLETE_MAX_RETRIES must be at least 1, got %d", cfg.DepleteMaxRetries)
	}

	log.Printf("[config] PORT=%s DB_DRIVER=%s DB_DSN=%s LOG_FILE=%s CATALOG_FILE=%q AMQP=%t DEFAULT_STORE_ID=%s",
		cfg.Port, cfg.DBDriver, cfg.DBDSN, cfg.LogFile, cfg.CatalogFile, cfg.AMQPURL != "", cfg.DefaultStoreID)
	return cfg, nil
}
