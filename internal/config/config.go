package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port       int           `yaml:"port"`
	AuthSecret string        `yaml:"auth_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	PollLimit  int           `yaml:"poll_limit"` // status requests per requester per minute
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	QueueKey string        `yaml:"queue_key"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type CopyConfig struct {
	ProgressInterval    time.Duration `yaml:"progress_interval"`
	Workers             int           `yaml:"workers"`
	PhaseTimeout        time.Duration `yaml:"phase_timeout"` // 0 = unbounded
	StaleAfter          time.Duration `yaml:"stale_after"`
	ReaperInterval      time.Duration `yaml:"reaper_interval"`
	LinkBaseURL         string        `yaml:"link_base_url"`
	NotifySubject       string        `yaml:"notify_subject"`
	NotifyBody          string        `yaml:"notify_body"`
	NotifyFailedSubject string        `yaml:"notify_failed_subject"`
	NotifyFailedBody    string        `yaml:"notify_failed_body"`
	Language            string        `yaml:"language"`
}

type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
}

type NotifyConfig struct {
	TelegramToken string `yaml:"telegram_token"`
	Enabled       bool   `yaml:"enabled"`
}

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Copy     CopyConfig     `yaml:"copy"`
	Storage  StorageConfig  `yaml:"storage"`
	Notify   NotifyConfig   `yaml:"notify"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies environment overrides
// (a .env file next to the process is honoured) and fills defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes raw YAML, applies env overrides and defaults, and validates.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Copy.ProgressInterval <= 0 {
		return nil, errors.New("copy.progress_interval must be positive")
	}
	if cfg.Copy.PhaseTimeout < 0 {
		return nil, errors.New("copy.phase_timeout must not be negative")
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&cfg.Database.URL, "DATABASE_URL")
	override(&cfg.Redis.URL, "REDIS_URL")
	override(&cfg.HTTP.AuthSecret, "HTTP_AUTH_SECRET")
	override(&cfg.Storage.AccessKey, "S3_ACCESS_KEY")
	override(&cfg.Storage.SecretKey, "S3_SECRET_KEY")
	override(&cfg.Notify.TelegramToken, "TELEGRAM_TOKEN")
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.TokenTTL <= 0 {
		cfg.HTTP.TokenTTL = 12 * time.Hour
	}
	if cfg.HTTP.PollLimit <= 0 {
		cfg.HTTP.PollLimit = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.QueueKey == "" {
		cfg.Redis.QueueKey = "copy_tasks"
	}
	if cfg.Redis.LockTTL <= 0 {
		cfg.Redis.LockTTL = 6 * time.Hour
	}
	if cfg.Copy.ProgressInterval == 0 {
		cfg.Copy.ProgressInterval = 5 * time.Second
	}
	if cfg.Copy.Workers <= 0 {
		cfg.Copy.Workers = 4
	}
	if cfg.Copy.StaleAfter <= 0 {
		cfg.Copy.StaleAfter = 24 * time.Hour
	}
	if cfg.Copy.ReaperInterval <= 0 {
		cfg.Copy.ReaperInterval = 15 * time.Minute
	}
	if cfg.Copy.Language == "" {
		cfg.Copy.Language = "en"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "course-copy"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "copies"
	}
}
