package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config структура конфигурации приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Logging  LoggingConfig
	GRPC     GRPCConfig
	Razorpay RazorpayConfig
	Billing  BillingConfig
	Auth     AuthConfig
}

// ServerConfig конфигурация HTTP сервера
type ServerConfig struct {
	Port            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
	ReleaseMode     bool
}

// DatabaseConfig конфигурация базы данных
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Migrate  bool
}

// RedisConfig конфигурация кеша. Пустой Addr отключает кеш.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// KafkaConfig конфигурация публикации событий. Пустой список брокеров отключает публикацию.
type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

// LoggingConfig конфигурация логгера
type LoggingConfig struct {
	Level string
}

// GRPCConfig конфигурация gRPC health сервера. Пустой порт отключает сервер.
type GRPCConfig struct {
	Port string
}

// RazorpayConfig учетные данные платежного шлюза
type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
}

// BillingConfig параметры расчетного цикла и нормализации сумм
type BillingConfig struct {
	CycleDays     int
	AmountDivisor int64
	Currency      string
	AppDeepLink   string
}

// CycleLength returns the length of one billing cycle.
func (b BillingConfig) CycleLength() time.Duration {
	return time.Duration(b.CycleDays) * 24 * time.Hour
}

// AuthConfig параметры проверки токенов клиентов
type AuthConfig struct {
	JWTSecret string
}

// GetDSN возвращает строку подключения к базе данных
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Load загружает конфигурацию из переменных окружения (и .env, если он есть)
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("PORT"),
			ReadTimeout:     v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetInt("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetInt("SERVER_SHUTDOWN_TIMEOUT"),
			ReleaseMode:     v.GetString("GIN_MODE") == "release",
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Database: v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			Migrate:  v.GetBool("DB_MIGRATE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			CacheTTL: v.GetDuration("REDIS_CACHE_TTL"),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			TopicPrefix: v.GetString("KAFKA_TOPIC_PREFIX"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		GRPC: GRPCConfig{
			Port: v.GetString("GRPC_PORT"),
		},
		Razorpay: RazorpayConfig{
			KeyID:     v.GetString("RAZORPAY_KEY_ID"),
			KeySecret: v.GetString("RAZORPAY_KEY_SECRET"),
			BaseURL:   v.GetString("RAZORPAY_BASE_URL"),
		},
		Billing: BillingConfig{
			CycleDays:     v.GetInt("BILLING_CYCLE_DAYS"),
			AmountDivisor: v.GetInt64("BILLING_AMOUNT_DIVISOR"),
			Currency:      v.GetString("BILLING_CURRENCY"),
			AppDeepLink:   v.GetString("APP_DEEP_LINK"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("AUTH_JWT_SECRET"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 30)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "fitness_billing")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MIGRATE", false)
	v.SetDefault("REDIS_CACHE_TTL", 5*time.Minute)
	v.SetDefault("KAFKA_TOPIC_PREFIX", "billing")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RAZORPAY_BASE_URL", "https://api.razorpay.com")
	v.SetDefault("BILLING_CYCLE_DAYS", 30)
	v.SetDefault("BILLING_AMOUNT_DIVISOR", 8300)
	v.SetDefault("BILLING_CURRENCY", "INR")
	v.SetDefault("APP_DEEP_LINK", "muscleai://payment-success")
}

// Validate проверяет конфигурацию и возвращает все найденные ошибки сразу
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Razorpay.KeyID == "" {
		result = multierror.Append(result, errors.New("RAZORPAY_KEY_ID is required"))
	}
	if c.Razorpay.KeySecret == "" {
		result = multierror.Append(result, errors.New("RAZORPAY_KEY_SECRET is required"))
	}
	if c.Auth.JWTSecret == "" {
		result = multierror.Append(result, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.Database.Host == "" {
		result = multierror.Append(result, errors.New("DB_HOST is required"))
	}
	if c.Billing.CycleDays <= 0 {
		result = multierror.Append(result, fmt.Errorf("BILLING_CYCLE_DAYS must be positive, got %d", c.Billing.CycleDays))
	}
	if c.Billing.AmountDivisor <= 0 {
		result = multierror.Append(result, fmt.Errorf("BILLING_AMOUNT_DIVISOR must be positive, got %d", c.Billing.AmountDivisor))
	}
	if len(c.Billing.Currency) != 3 {
		result = multierror.Append(result, fmt.Errorf("BILLING_CURRENCY must be a 3-letter code, got %q", c.Billing.Currency))
	}

	return result.ErrorOrNil()
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
