package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RabbitMQ     RabbitMQConfig
	Lock         LockConfig
	Notification NotificationConfig
}

type AppConfig struct {
	Port     string
	Env      string
	Timezone string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name        string
	SSLMode     string
	AutoMigrate bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// LockConfig selects how mutating operations for one doctor are serialized.
// Backend "local" only serializes within this process; use "redis" when more
// than one instance serves traffic.
type LockConfig struct {
	Backend       string
	TTL           time.Duration
	WaitTimeout   time.Duration
	RetryInterval time.Duration
}

type NotificationConfig struct {
	BufferSize   int
	Workers      int
	MaxAttempts  int
	RetryBackoff time.Duration
	DedupeTTL    time.Duration
}

const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

func LoadConfig() (*Config, error) {
	return load(viper.GetViper(), ".env")
}

func load(v *viper.Viper, file string) (*Config, error) {
	v.SetConfigFile(file)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, err
		}
	}

	config := &Config{
		App: AppConfig{
			Port:     v.GetString("APP_PORT"),
			Env:      v.GetString("APP_ENV"),
			Timezone: v.GetString("APP_TIMEZONE"),
		},
		DB: DBConfig{
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetString("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			Name:        v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSLMODE"),
			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      v.GetString("RABBITMQ_URL"),
			Exchange: v.GetString("RABBITMQ_EXCHANGE"),
		},
		Lock: LockConfig{
			Backend:       v.GetString("LOCK_BACKEND"),
			TTL:           v.GetDuration("LOCK_TTL"),
			WaitTimeout:   v.GetDuration("LOCK_WAIT_TIMEOUT"),
			RetryInterval: v.GetDuration("LOCK_RETRY_INTERVAL"),
		},
		Notification: NotificationConfig{
			BufferSize:   v.GetInt("NOTIFICATION_BUFFER_SIZE"),
			Workers:      v.GetInt("NOTIFICATION_WORKERS"),
			MaxAttempts:  v.GetInt("NOTIFICATION_MAX_ATTEMPTS"),
			RetryBackoff: v.GetDuration("NOTIFICATION_RETRY_BACKOFF"),
			DedupeTTL:    v.GetDuration("NOTIFICATION_DEDUPE_TTL"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_TIMEZONE", "UTC")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_AUTO_MIGRATE", false)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("RABBITMQ_EXCHANGE", "scheduling.notifications")
	v.SetDefault("LOCK_BACKEND", LockBackendLocal)
	v.SetDefault("LOCK_TTL", 10*time.Second)
	v.SetDefault("LOCK_WAIT_TIMEOUT", 5*time.Second)
	v.SetDefault("LOCK_RETRY_INTERVAL", 50*time.Millisecond)
	v.SetDefault("NOTIFICATION_BUFFER_SIZE", 1024)
	v.SetDefault("NOTIFICATION_WORKERS", 4)
	v.SetDefault("NOTIFICATION_MAX_ATTEMPTS", 3)
	v.SetDefault("NOTIFICATION_RETRY_BACKOFF", 500*time.Millisecond)
	v.SetDefault("NOTIFICATION_DEDUPE_TTL", 7*24*time.Hour)
}

func (c *Config) validate() error {
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.App.Timezone, err)
	}

	switch c.Lock.Backend {
	case LockBackendLocal, LockBackendRedis:
	default:
		return fmt.Errorf("invalid LOCK_BACKEND %q, use %q or %q", c.Lock.Backend, LockBackendLocal, LockBackendRedis)
	}

	if c.Lock.TTL <= 0 || c.Lock.WaitTimeout <= 0 || c.Lock.RetryInterval <= 0 {
		return errors.New("LOCK_TTL, LOCK_WAIT_TIMEOUT and LOCK_RETRY_INTERVAL must be positive")
	}

	if c.Notification.BufferSize <= 0 || c.Notification.Workers <= 0 || c.Notification.MaxAttempts <= 0 {
		return errors.New("NOTIFICATION_BUFFER_SIZE, NOTIFICATION_WORKERS and NOTIFICATION_MAX_ATTEMPTS must be positive")
	}

	return nil
}

// Location returns the time zone schedule dates and times are interpreted in.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
