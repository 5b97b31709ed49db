package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config - конфигурация сервера учета посещаемости
type Config struct {
	DatabaseURL    string `env:"DATABASE_URL" env-required:"true"`
	MigrationsPath string `env:"MIGRATIONS_PATH" env-default:"file://migrations"`
	HTTPPort       string `env:"HTTP_PORT" env-default:"8080"`
	LogLevel       string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat      string `env:"LOG_FORMAT" env-default:"json"`

	// Пул соединений PostgreSQL
	DBMaxConns        int32         `env:"DB_MAX_CONNS" env-default:"10"`
	DBMaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" env-default:"5m"`

	// Redis Config
	RedisAddr    string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPass    string        `env:"REDIS_PASSWORD"`
	RedisDB      int           `env:"REDIS_DB" env-default:"0"`
	ZoneCacheTTL time.Duration `env:"ZONE_CACHE_TTL" env-default:"1m"`

	// Webhook Config
	WebhookURL        string        `env:"WEBHOOK_URL"`
	WebhookSecret     string        `env:"WEBHOOK_SECRET"`
	WebhookTimeout    time.Duration `env:"WEBHOOK_TIMEOUT" env-default:"5s"`
	WebhookMaxRetries int           `env:"WEBHOOK_MAX_RETRIES" env-default:"5"`
	WebhookBaseDelay  time.Duration `env:"WEBHOOK_BASE_DELAY" env-default:"1s"`

	// Stats Config
	StatsTimeWindowMinutes int `env:"STATS_TIME_WINDOW_MINUTES" env-default:"60"`

	// API Keys for administrative endpoints
	APIKeys []string `env:"API_KEYS" env-separator:","`

	// Секрет проверки JWT сотрудников (HS256)
	JWTSecret string `env:"JWT_SECRET" env-required:"true"`
}

// AgentConfig - конфигурация агента на устройстве
type AgentConfig struct {
	BackendURL     string        `env:"BACKEND_URL" env-required:"true"`
	Token          string        `env:"AGENT_TOKEN" env-required:"true"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" env-default:"10s"`
	LogLevel       string        `env:"LOG_LEVEL" env-default:"info"`
	LogFormat      string        `env:"LOG_FORMAT" env-default:"json"`
	LocalHTTPAddr  string        `env:"LOCAL_HTTP_ADDR" env-default:"127.0.0.1:8787"`

	Outbox   OutboxConfig
	Delivery DeliveryConfig
	Detector DetectorConfig

	RegistryRefreshInterval time.Duration `env:"REGISTRY_REFRESH_INTERVAL" env-default:"5m"`
	SampleBufferSize        int           `env:"SAMPLE_BUFFER_SIZE" env-default:"256"`
}

// OutboxConfig - параметры локальной очереди событий
type OutboxConfig struct {
	Path        string        `env:"OUTBOX_PATH" env-default:"outbox.db"`
	BackoffBase time.Duration `env:"OUTBOX_BACKOFF_BASE" env-default:"2s"`
	BackoffMax  time.Duration `env:"OUTBOX_BACKOFF_MAX" env-default:"5m"`
	MaxAttempts int           `env:"OUTBOX_MAX_ATTEMPTS" env-default:"0"`
}

// DeliveryConfig - параметры воркера доставки
type DeliveryConfig struct {
	BatchSize      int           `env:"DELIVERY_BATCH_SIZE" env-default:"100"`
	PollInterval   time.Duration `env:"DELIVERY_POLL_INTERVAL" env-default:"15s"`
	AttemptTimeout time.Duration `env:"DELIVERY_ATTEMPT_TIMEOUT" env-default:"10s"`
}

// DetectorConfig - политика детектора переходов
type DetectorConfig struct {
	SeedFirstSample bool `env:"DETECTOR_SEED_FIRST_SAMPLE" env-default:"true"`
	MinConsecutive  int  `env:"DETECTOR_MIN_CONSECUTIVE" env-default:"1"`
}

// LoadConfig загружает конфигурацию сервера из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if cfg.StatsTimeWindowMinutes <= 0 {
		return nil, fmt.Errorf("STATS_TIME_WINDOW_MINUTES must be positive, got %d", cfg.StatsTimeWindowMinutes)
	}
	return cfg, nil
}

// LoadAgentConfig загружает конфигурацию агента
func LoadAgentConfig() (*AgentConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &AgentConfig{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read agent config: %w", err)
	}
	if cfg.BackendURL == "" || cfg.Token == "" {
		return nil, fmt.Errorf("BACKEND_URL and AGENT_TOKEN environment variables are required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AgentConfig) validate() error {
	if c.Outbox.BackoffBase <= 0 || c.Outbox.BackoffMax < c.Outbox.BackoffBase {
		return fmt.Errorf("invalid outbox backoff: base=%s max=%s", c.Outbox.BackoffBase, c.Outbox.BackoffMax)
	}
	if c.Delivery.BatchSize <= 0 {
		return fmt.Errorf("DELIVERY_BATCH_SIZE must be positive, got %d", c.Delivery.BatchSize)
	}
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"REQUEST_TIMEOUT", c.RequestTimeout},
		{"DELIVERY_POLL_INTERVAL", c.Delivery.PollInterval},
		{"DELIVERY_ATTEMPT_TIMEOUT", c.Delivery.AttemptTimeout},
		{"REGISTRY_REFRESH_INTERVAL", c.RegistryRefreshInterval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	if c.Detector.MinConsecutive < 1 {
		return fmt.Errorf("DETECTOR_MIN_CONSECUTIVE must be at least 1, got %d", c.Detector.MinConsecutive)
	}
	if c.SampleBufferSize <= 0 {
		return fmt.Errorf("SAMPLE_BUFFER_SIZE must be positive, got %d", c.SampleBufferSize)
	}
	return nil
}

// loadDotEnv подгружает .env файл, если он есть
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}
	return nil
}
