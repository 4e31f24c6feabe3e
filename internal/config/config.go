package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	AWS         AWSConfig         `yaml:"aws"`
	APNs        APNsConfig        `yaml:"apns"`
	JWT         JWTConfig         `yaml:"jwt"`
	Log         LogConfig         `yaml:"log"`
	Marketplace MarketplaceConfig `yaml:"marketplace"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver      string `yaml:"driver"` // postgres or memory
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	DBName      string `yaml:"dbname"`
	SSLMode     string `yaml:"sslmode"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// AWSConfig holds the listing image bucket configuration
type AWSConfig struct {
	Region    string `yaml:"region"`
	S3Bucket  string `yaml:"s3_bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"` // S3-compatible storage, empty for AWS
}

// APNsConfig holds push notification configuration
type APNsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	CertFile     string `yaml:"cert_file"`
	CertPassword string `yaml:"cert_password"`
	Topic        string `yaml:"topic"`
	Production   bool   `yaml:"production"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// MarketplaceConfig tunes listing behaviour
type MarketplaceConfig struct {
	NotifyRadiusKm     float64       `yaml:"notify_radius_km"`
	SweepInterval      time.Duration `yaml:"sweep_interval"`
	SweepRetryInterval time.Duration `yaml:"sweep_retry_interval"`
}

// RateLimitConfig limits the auth endpoints, e.g. "30-M"
type RateLimitConfig struct {
	Auth string `yaml:"auth"`
}

// Load reads configuration from a YAML file. Values from a .env file or the
// environment override secrets in the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret is required")
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.Database.Password, "DATABASE_PASSWORD")
	setString(&c.Database.Host, "DATABASE_HOST")
	setString(&c.JWT.Secret, "JWT_SECRET")
	setString(&c.AWS.AccessKey, "AWS_ACCESS_KEY")
	setString(&c.AWS.SecretKey, "AWS_SECRET_KEY")
	setString(&c.APNs.CertPassword, "APNS_CERT_PASSWORD")

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8001
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Marketplace.NotifyRadiusKm <= 0 {
		c.Marketplace.NotifyRadiusKm = 50
	}
	if c.Marketplace.SweepInterval <= 0 {
		c.Marketplace.SweepInterval = time.Hour
	}
	if c.Marketplace.SweepRetryInterval <= 0 {
		c.Marketplace.SweepRetryInterval = 5 * time.Minute
	}
	if c.RateLimit.Auth == "" {
		c.RateLimit.Auth = "30-M"
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// MigrateURL returns the connection URL for the pgx/v5 migrate driver
func (c *DatabaseConfig) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
