package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting of the audit service. Values come from the
// environment (optionally seeded from a .env file by the entrypoints).
type Config struct {
	ServerPort      string        `mapstructure:"SERVER_PORT"`
	ReadTimeout     time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `mapstructure:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `mapstructure:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	// MySQL
	MySQLHost     string `mapstructure:"MYSQL_HOST"`
	MySQLPort     string `mapstructure:"MYSQL_PORT"`
	MySQLUser     string `mapstructure:"MYSQL_USER"`
	MySQLPassword string `mapstructure:"MYSQL_PASSWORD"`
	MySQLDatabase string `mapstructure:"MYSQL_DATABASE"`

	// Auth
	JWTSecret   string        `mapstructure:"JWT_SECRET"`
	JWTDuration time.Duration `mapstructure:"JWT_DURATION"`

	// Page loading
	FetchTimeout     time.Duration `mapstructure:"FETCH_TIMEOUT"`
	DiscoveryTimeout time.Duration `mapstructure:"DISCOVERY_TIMEOUT"`
	UserAgent        string        `mapstructure:"USER_AGENT"`

	// Headless browser
	BrowserEnabled   bool   `mapstructure:"BROWSER_ENABLED"`
	BrowserRemoteURL string `mapstructure:"BROWSER_REMOTE_URL"`
	AxeScriptPath    string `mapstructure:"AXE_SCRIPT_PATH"`

	// Rerun queue
	AuditWorkers   int `mapstructure:"AUDIT_WORKERS"`
	AuditQueueSize int `mapstructure:"AUDIT_QUEUE_SIZE"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// LoadConfig reads the configuration from environment variables, falling
// back to defaults for anything unset.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("READ_TIMEOUT", 30*time.Second)
	v.SetDefault("WRITE_TIMEOUT", 60*time.Second)
	v.SetDefault("IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("SHUTDOWN_TIMEOUT", 30*time.Second)

	v.SetDefault("MYSQL_HOST", "localhost")
	v.SetDefault("MYSQL_PORT", "3306")
	v.SetDefault("MYSQL_USER", "root")
	v.SetDefault("MYSQL_PASSWORD", "")
	v.SetDefault("MYSQL_DATABASE", "metabear")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_DURATION", 24*time.Hour)

	v.SetDefault("FETCH_TIMEOUT", 30*time.Second)
	v.SetDefault("DISCOVERY_TIMEOUT", 5*time.Second)
	v.SetDefault("USER_AGENT", "MetaBear/1.0")

	v.SetDefault("BROWSER_ENABLED", false)
	v.SetDefault("BROWSER_REMOTE_URL", "")
	v.SetDefault("AXE_SCRIPT_PATH", "")

	v.SetDefault("AUDIT_WORKERS", 4)
	v.SetDefault("AUDIT_QUEUE_SIZE", 100)

	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// PORT is honoured when SERVER_PORT is not given.
	if os.Getenv("SERVER_PORT") == "" {
		if port := os.Getenv("PORT"); port != "" {
			config.ServerPort = port
		}
	}

	return &config, nil
}
