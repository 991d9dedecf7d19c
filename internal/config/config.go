package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config конфигурация сервиса
type Config struct {
	Server         ServerConfig         `toml:"server"`
	Logs           LogsConfig           `toml:"logs"`
	Metrics        MetricsConfig        `toml:"metrics"`
	Database       DatabaseConfig       `toml:"database"`
	CatalogService CatalogServiceConfig `toml:"catalog_service"`
	Payments       PaymentsConfig       `toml:"payments"`
	Redis          RedisConfig          `toml:"redis"`
	RabbitMQ       RabbitMQConfig       `toml:"rabbitmq"`
	Booking        BookingConfig        `toml:"booking"`
	Jobs           JobsConfig           `toml:"jobs"`
}

type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`     // секунды
	WriteTimeout    int `toml:"write_timeout"`    // секунды
	IdleTimeout     int `toml:"idle_timeout"`     // секунды
	ShutdownTimeout int `toml:"shutdown_timeout"` // секунды
}

type LogsConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"` // секунды
	MigrationsPath  string `toml:"migrations_path"`
}

// DSN строка подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// URL строка подключения в формате URL (для golang-migrate)
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

type CatalogServiceConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"` // секунды
}

type PaymentsConfig struct {
	SecretKey          string  `toml:"secret_key"`
	Currency           string  `toml:"currency"`
	PlatformFeePercent float64 `toml:"platform_fee_percent"`
	Timeout            int     `toml:"timeout"` // секунды
	MaxRetries         int     `toml:"max_retries"`
	MaxElapsedTime     int     `toml:"max_elapsed_time"` // секунды
}

type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	LockTTL  int    `toml:"lock_ttl"` // секунды
}

type RabbitMQConfig struct {
	Enabled  bool   `toml:"enabled"`
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
}

// BookingConfig значения по умолчанию для политики бизнеса
type BookingConfig struct {
	DefaultLeadTimeMinutes int `toml:"default_lead_time_minutes"`
	DefaultAdvanceDays     int `toml:"default_advance_days"`
}

type JobsConfig struct {
	ReaperInterval       int `toml:"reaper_interval"`       // секунды
	HoldTTL              int `toml:"hold_ttl"`              // секунды
	ReaperBatchSize      int `toml:"reaper_batch_size"`
	JanitorInterval      int `toml:"janitor_interval"`      // секунды
	IdempotencyRetention int `toml:"idempotency_retention"` // часы
}

func (j JobsConfig) ReaperEvery() time.Duration {
	return time.Duration(j.ReaperInterval) * time.Second
}

func (j JobsConfig) HoldTTLDuration() time.Duration {
	return time.Duration(j.HoldTTL) * time.Second
}

func (j JobsConfig) JanitorEvery() time.Duration {
	return time.Duration(j.JanitorInterval) * time.Second
}

func (j JobsConfig) IdempotencyRetentionDuration() time.Duration {
	return time.Duration(j.IdempotencyRetention) * time.Hour
}

// Load читает конфигурацию из TOML файла
// Секреты можно переопределить переменными окружения DATABASE_PASSWORD и PAYMENTS_SECRET_KEY
func Load(path string) (*Config, error) {
	cfg := defaults()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("PAYMENTS_SECRET_KEY"); v != "" {
		cfg.Payments.SecretKey = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     15,
			WriteTimeout:    15,
			IdleTimeout:     60,
			ShutdownTimeout: 10,
		},
		Logs: LogsConfig{Level: "info"},
		Metrics: MetricsConfig{
			Path:        "/metrics",
			ServiceName: "smc_appointment_service",
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
			MigrationsPath:  "migrations",
		},
		CatalogService: CatalogServiceConfig{Timeout: 5},
		Payments: PaymentsConfig{
			Currency:       "usd",
			Timeout:        10,
			MaxRetries:     3,
			MaxElapsedTime: 20,
		},
		Redis:    RedisConfig{LockTTL: 30},
		RabbitMQ: RabbitMQConfig{Exchange: "appointments"},
		Booking: BookingConfig{
			DefaultLeadTimeMinutes: 120,
			DefaultAdvanceDays:     60,
		},
		Jobs: JobsConfig{
			ReaperInterval:       60,
			HoldTTL:              300,
			ReaperBatchSize:      500,
			JanitorInterval:      3600,
			IdempotencyRetention: 30 * 24,
		},
	}
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("%w: server.http_port out of range: %d", ErrInvalidConfig, c.Server.HTTPPort)
	}
	if c.Database.Host == "" || c.Database.DBName == "" {
		return fmt.Errorf("%w: database.host and database.dbname are required", ErrInvalidConfig)
	}
	if c.CatalogService.URL == "" {
		return fmt.Errorf("%w: catalog_service.url is required", ErrInvalidConfig)
	}
	if c.Payments.PlatformFeePercent < 0 || c.Payments.PlatformFeePercent > 100 {
		return fmt.Errorf("%w: payments.platform_fee_percent must be within [0, 100]", ErrInvalidConfig)
	}
	if c.Payments.Currency == "" {
		return fmt.Errorf("%w: payments.currency is required", ErrInvalidConfig)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr is required when redis is enabled", ErrInvalidConfig)
	}
	if c.RabbitMQ.Enabled && c.RabbitMQ.URL == "" {
		return fmt.Errorf("%w: rabbitmq.url is required when rabbitmq is enabled", ErrInvalidConfig)
	}
	if c.Jobs.ReaperInterval <= 0 || c.Jobs.HoldTTL <= 0 || c.Jobs.JanitorInterval <= 0 {
		return fmt.Errorf("%w: jobs intervals must be positive", ErrInvalidConfig)
	}
	if c.Jobs.IdempotencyRetention <= 0 {
		return fmt.Errorf("%w: jobs.idempotency_retention must be positive", ErrInvalidConfig)
	}
	return nil
}
