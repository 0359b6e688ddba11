package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Browser     BrowserConfig
	Adapters    AdaptersConfig
	Aggregation AggregationConfig
	Logging     LoggingConfig
}

type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type BrowserConfig struct {
	Headless bool
	Timeout  time.Duration
}

// AdaptersConfig carries per-platform credentials and collaborator
// endpoints. Everything here is injected into adapters and the
// normalizer at construction time; core logic never reads the
// environment itself.
type AdaptersConfig struct {
	YahooAppID        string
	RakutenAppID      string
	EbayToken         string
	TranslateEndpoint string
	FxEndpoint        string
	UserAgent         string
	RateInterval      time.Duration
}

type AggregationConfig struct {
	GlobalTimeout time.Duration
	WorkerPoll    time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getIntOrDefault("SERVER_PORT", 8080),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Name:     getEnvOrDefault("DB_NAME", "pricehunter"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Browser: BrowserConfig{
			Headless: getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:  getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
		},
		Adapters: AdaptersConfig{
			YahooAppID:        getEnvOrDefault("YAHOO_APP_ID", ""),
			RakutenAppID:      getEnvOrDefault("RAKUTEN_APP_ID", ""),
			EbayToken:         getEnvOrDefault("EBAY_TOKEN", ""),
			TranslateEndpoint: getEnvOrDefault("TRANSLATE_ENDPOINT", ""),
			FxEndpoint:        getEnvOrDefault("FX_ENDPOINT", ""),
			UserAgent:         getEnvOrDefault("ADAPTER_USER_AGENT", defaultUserAgent),
			RateInterval:      getDurationOrDefault("ADAPTER_RATE_INTERVAL", 2*time.Second),
		},
		Aggregation: AggregationConfig{
			GlobalTimeout: getDurationOrDefault("AGGREGATION_TIMEOUT", 90*time.Second),
			WorkerPoll:    getDurationOrDefault("WORKER_POLL_INTERVAL", 5*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Aggregation.GlobalTimeout < 10*time.Second {
		return fmt.Errorf("AGGREGATION_TIMEOUT must be at least 10s")
	}

	if c.Adapters.RateInterval < 0 {
		return fmt.Errorf("ADAPTER_RATE_INTERVAL cannot be negative")
	}

	if c.Database.MaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be at least 1")
	}

	return nil
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
