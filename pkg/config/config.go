package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "KEYHAVEN"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Env variable names referenced outside envconfig tags (tests, docs).
const (
	EnvAppEnv           = "KEYHAVEN_APP_ENV"
	EnvPort             = "KEYHAVEN_APP_PORT"
	EnvRedisURL         = "KEYHAVEN_REDIS_URL"
	EnvRecordStoreURL   = "KEYHAVEN_RECORDSTORE_URL"
	EnvRecordStoreEmail = "KEYHAVEN_RECORDSTORE_ADMIN_EMAIL"
	EnvRecordStorePass  = "KEYHAVEN_RECORDSTORE_ADMIN_PASSWORD"
	EnvPaymentsBaseURL  = "KEYHAVEN_PAYMENTS_BASE_URL"
	EnvPaymentsAPIKey   = "KEYHAVEN_PAYMENTS_API_KEY"
	EnvPaymentsEnv      = "KEYHAVEN_PAYMENTS_ENV"
)

type Config struct {
	App         AppConfig
	RecordStore RecordStoreConfig
	Payments    PaymentsConfig
	Redis       RedisConfig
	SubmitLimit SubmitRateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KEYHAVEN_APP_ENV" required:"true"`
	Port         string `envconfig:"KEYHAVEN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KEYHAVEN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KEYHAVEN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// RecordStoreConfig points at the managed record store holding the orders
// collection. Admin credentials are exchanged for a short-lived bearer token
// on demand, never cached across processes.
type RecordStoreConfig struct {
	BaseURL          string        `envconfig:"KEYHAVEN_RECORDSTORE_URL" required:"true"`
	AdminEmail       string        `envconfig:"KEYHAVEN_RECORDSTORE_ADMIN_EMAIL" required:"true"`
	AdminPassword    string        `envconfig:"KEYHAVEN_RECORDSTORE_ADMIN_PASSWORD" required:"true"`
	OrdersCollection string        `envconfig:"KEYHAVEN_RECORDSTORE_ORDERS_COLLECTION" default:"orders"`
	RequestTimeout   time.Duration `envconfig:"KEYHAVEN_RECORDSTORE_REQUEST_TIMEOUT" default:"10s"`
}

type PaymentsConfig struct {
	BaseURL        string        `envconfig:"KEYHAVEN_PAYMENTS_BASE_URL" required:"true"`
	APIKey         string        `envconfig:"KEYHAVEN_PAYMENTS_API_KEY" required:"true"`
	Provider       string        `envconfig:"KEYHAVEN_PAYMENTS_PROVIDER" default:"licensepay"`
	Env            string        `envconfig:"KEYHAVEN_PAYMENTS_ENV" default:"test"`
	RequestTimeout time.Duration `envconfig:"KEYHAVEN_PAYMENTS_REQUEST_TIMEOUT" default:"10s"`
}

// Environment returns the normalized payments environment (test/live).
func (p PaymentsConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(p.Env))
	if env == "" {
		return "test"
	}
	return env
}

type RedisConfig struct {
	URL          string        `envconfig:"KEYHAVEN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KEYHAVEN_REDIS_ADDR"`
	Password     string        `envconfig:"KEYHAVEN_REDIS_PASSWORD"`
	DB           int           `envconfig:"KEYHAVEN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KEYHAVEN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KEYHAVEN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KEYHAVEN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KEYHAVEN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KEYHAVEN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SubmitRateLimitConfig struct {
	Window      time.Duration `envconfig:"KEYHAVEN_SUBMIT_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit     int           `envconfig:"KEYHAVEN_SUBMIT_RATE_LIMIT_IP_LIMIT" default:"60"`
	DeviceLimit int           `envconfig:"KEYHAVEN_SUBMIT_RATE_LIMIT_DEVICE_LIMIT" default:"30"`
}
