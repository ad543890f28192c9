package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/ulule/limiter/v3"
)

// Database driver names accepted in DATABASE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

// Config holds application configuration.
type Config struct {
	Port             string
	DatabaseDriver   string
	DatabaseURL      string
	BoltPath         string
	ReplicaID        string
	KafkaBrokers     []string
	KafkaTopic       string
	JWTSecret        string
	RateLimit        string
	CORSAllowOrigins []string
	IsProduction     bool
	EnableDBCheck    bool
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DATABASE_DRIVER", DriverPostgres)
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("BOLT_PATH", "ledger.db")
	viper.SetDefault("REPLICA_ID", "")
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_TOPIC", "plan-transitions")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("RATE_LIMIT", "")
	viper.SetDefault("CORS_ALLOW_ORIGINS", "*")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)

	viper.AutomaticEnv()

	cfg := &Config{
		Port:           viper.GetString("PORT"),
		DatabaseDriver: strings.ToLower(viper.GetString("DATABASE_DRIVER")),
		DatabaseURL:    viper.GetString("DATABASE_URL"),
		BoltPath:       viper.GetString("BOLT_PATH"),
		ReplicaID:      viper.GetString("REPLICA_ID"),
		KafkaTopic:     viper.GetString("KAFKA_TOPIC"),
		JWTSecret:      viper.GetString("JWT_SECRET"),
		RateLimit:      viper.GetString("RATE_LIMIT"),
		IsProduction:   viper.GetBool("IS_PRODUCTION"),
		EnableDBCheck:  viper.GetBool("ENABLE_DB_CHECK"),
	}

	// KAFKA_BROKERS is a comma separated list; empty disables publishing.
	if brokers := viper.GetString("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	// CORS_ALLOW_ORIGINS is a comma separated list, "*" allows every origin.
	for _, o := range strings.Split(viper.GetString("CORS_ALLOW_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowOrigins = append(cfg.CORSAllowOrigins, o)
		}
	}

	switch cfg.DatabaseDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required with the %s driver", DriverPostgres)
		}
	case DriverBolt:
		// BoltPath always has a default.
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}

	// Fail fast on a malformed rate limit instead of at first request.
	if cfg.RateLimit != "" {
		if _, err := limiter.NewRateFromFormatted(cfg.RateLimit); err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT %q: %w", cfg.RateLimit, err)
		}
	}

	// Every replica needs a stable identity for its clock counters.
	if cfg.ReplicaID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("REPLICA_ID is not set and hostname lookup failed: %w", err)
		}
		cfg.ReplicaID = hostname
		log.Printf("Warning: REPLICA_ID environment variable not set. Using hostname %s.\n", hostname)
	}

	if cfg.JWTSecret == "" {
		log.Println("Warning: JWT_SECRET not set. API authentication is disabled.")
	}

	return cfg, nil
}
