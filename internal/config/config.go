// Package config loads bot settings from defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrMissingCredentials = errors.New("missing publisher credentials")

type TwitterConfig struct {
	APIKey            string `yaml:"api_key"`
	APIKeySecret      string `yaml:"api_key_secret"`
	AccessToken       string `yaml:"access_token"`
	AccessTokenSecret string `yaml:"access_token_secret"`
	BaseURL           string `yaml:"base_url"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID string `yaml:"chat_id"`
}

type NtfyConfig struct {
	Topic string `yaml:"topic"`
	Token string `yaml:"token"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type LedgerConfig struct {
	Backend     string `yaml:"backend"` // file | sqlite | postgres | redis | none
	FilePath    string `yaml:"file_path"`
	SQLitePath  string `yaml:"sqlite_path"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	TTLHours    int    `yaml:"ttl_hours"`
}

type ServerConfig struct {
	Port                 string   `yaml:"port"`
	Triggers             []string `yaml:"triggers"` // http, cron
	Schedule             string   `yaml:"schedule"`
	TriggerRatePerMinute int      `yaml:"trigger_rate_per_minute"`
}

type ShortenerConfig struct {
	Provider     string `yaml:"provider"` // none | gemini | openai
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`
	MaxRequests  int    `yaml:"max_requests"` // per day, 0 = unlimited
}

type Config struct {
	// Posting
	WithHashtags  bool     `yaml:"hashtags"`
	Publishers    []string `yaml:"publishers"`
	MaxPostLength int      `yaml:"max_post_length"` // runes, 0 = no limit
	Timezone      string   `yaml:"timezone"`

	// Feed
	FeedSource      string        `yaml:"feed_source"` // rest | featured
	FeedLanguage    string        `yaml:"feed_language"`
	FeedBaseURL     string        `yaml:"feed_base_url"`
	FeaturedFeedURL string        `yaml:"featured_feed_url"`
	UserAgent       string        `yaml:"user_agent"`
	FeedCacheTTL    time.Duration `yaml:"feed_cache_ttl"`

	Twitter   TwitterConfig   `yaml:"twitter"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Ntfy      NtfyConfig      `yaml:"ntfy"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Server    ServerConfig    `yaml:"server"`
	Shortener ShortenerConfig `yaml:"shortener"`

	// App settings
	Debug          bool          `yaml:"debug"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RetryAttempts  int           `yaml:"retry_attempts"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		WithHashtags:  true,
		Publishers:    []string{"twitter"},
		MaxPostLength: 280,
		Timezone:      "Local",

		FeedSource:   "rest",
		FeedLanguage: "en",
		UserAgent:    "historybot/1.0 (https://github.com/deusflow/historybot)",
		FeedCacheTTL: 30 * time.Minute,

		Ledger: LedgerConfig{
			Backend:    "file",
			FilePath:   "posted_days.json",
			SQLitePath: "historybot.db",
			TTLHours:   24 * 400,
		},
		Server: ServerConfig{
			Port:                 "3000",
			Triggers:             []string{"http"},
			Schedule:             "0 9 * * *",
			TriggerRatePerMinute: 6,
		},
		Shortener: ShortenerConfig{
			Provider:    "none",
			GeminiModel: "gemini-1.5-flash",
			OpenAIModel: "gpt-4o-mini",
			MaxRequests: 3,
		},

		LogLevel:       "info",
		LogFormat:      "text",
		RequestTimeout: 30 * time.Second,
		RetryAttempts:  3,
		RetryDelay:     5 * time.Second,
	}
}

// Load builds the config: defaults, then the YAML file at path (if any), then
// environment variables. It returns the config together with Validate's result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("failed to parse config yaml: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.WithHashtags = getEnvBoolOrDefault("HASHTAGS", c.WithHashtags)
	c.Publishers = getEnvListOrDefault("PUBLISHERS", c.Publishers)
	c.MaxPostLength = getEnvIntOrDefault("MAX_POST_LENGTH", c.MaxPostLength)
	c.Timezone = getEnvOrDefault("TIMEZONE", c.Timezone)

	c.FeedSource = getEnvOrDefault("FEED_SOURCE", c.FeedSource)
	c.FeedLanguage = getEnvOrDefault("FEED_LANGUAGE", c.FeedLanguage)
	c.FeedBaseURL = getEnvOrDefault("FEED_BASE_URL", c.FeedBaseURL)
	c.FeaturedFeedURL = getEnvOrDefault("FEATURED_FEED_URL", c.FeaturedFeedURL)
	c.UserAgent = getEnvOrDefault("USER_AGENT", c.UserAgent)
	c.FeedCacheTTL = getEnvDurationOrDefault("FEED_CACHE_TTL", c.FeedCacheTTL)

	// Twitter keys keep their legacy .env names
	c.Twitter.APIKey = getEnvOrDefault("API_KEY", c.Twitter.APIKey)
	c.Twitter.APIKeySecret = getEnvOrDefault("API_KEY_SECRET", c.Twitter.APIKeySecret)
	c.Twitter.AccessToken = getEnvOrDefault("ACCESS_TOKEN", c.Twitter.AccessToken)
	c.Twitter.AccessTokenSecret = getEnvOrDefault("ACCESS_TOKEN_SECRET", c.Twitter.AccessTokenSecret)
	c.Twitter.BaseURL = getEnvOrDefault("TWITTER_BASE_URL", c.Twitter.BaseURL)

	c.Telegram.Token = getEnvOrDefault("TELEGRAM_TOKEN", c.Telegram.Token)
	c.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", c.Telegram.ChatID)

	c.Ntfy.Topic = getEnvOrDefault("NTFY_TOPIC", c.Ntfy.Topic)
	c.Ntfy.Token = getEnvOrDefault("NTFY_TOKEN", c.Ntfy.Token)

	c.Kafka.Brokers = getEnvListOrDefault("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.Topic = getEnvOrDefault("KAFKA_TOPIC", c.Kafka.Topic)

	c.Ledger.Backend = getEnvOrDefault("LEDGER_BACKEND", c.Ledger.Backend)
	c.Ledger.FilePath = getEnvOrDefault("LEDGER_FILE_PATH", c.Ledger.FilePath)
	c.Ledger.SQLitePath = getEnvOrDefault("SQLITE_PATH", c.Ledger.SQLitePath)
	c.Ledger.DatabaseURL = getEnvOrDefault("DATABASE_URL", c.Ledger.DatabaseURL)
	c.Ledger.RedisURL = getEnvOrDefault("REDIS_URL", c.Ledger.RedisURL)
	c.Ledger.TTLHours = getEnvIntOrDefault("LEDGER_TTL_HOURS", c.Ledger.TTLHours)

	c.Server.Port = getEnvOrDefault("PORT", c.Server.Port)
	c.Server.Triggers = getEnvListOrDefault("TRIGGERS", c.Server.Triggers)
	c.Server.Schedule = getEnvOrDefault("SCHEDULE", c.Server.Schedule)
	c.Server.TriggerRatePerMinute = getEnvIntOrDefault("TRIGGER_RATE_PER_MINUTE", c.Server.TriggerRatePerMinute)

	c.Shortener.Provider = getEnvOrDefault("SHORTENER", c.Shortener.Provider)
	c.Shortener.GeminiAPIKey = getEnvOrDefault("GEMINI_API_KEY", c.Shortener.GeminiAPIKey)
	c.Shortener.GeminiModel = getEnvOrDefault("GEMINI_MODEL", c.Shortener.GeminiModel)
	c.Shortener.OpenAIAPIKey = getEnvOrDefault("OPENAI_API_KEY", c.Shortener.OpenAIAPIKey)
	c.Shortener.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", c.Shortener.OpenAIModel)
	c.Shortener.MaxRequests = getEnvIntOrDefault("MAX_AI_REQUESTS", c.Shortener.MaxRequests)

	c.Debug = getEnvBoolOrDefault("DEBUG", c.Debug)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvOrDefault("LOG_FORMAT", c.LogFormat)
	c.RequestTimeout = getEnvDurationOrDefault("REQUEST_TIMEOUT", c.RequestTimeout)
	c.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", c.RetryAttempts)
	c.RetryDelay = getEnvDurationOrDefault("RETRY_DELAY", c.RetryDelay)

	if c.Debug {
		c.LogLevel = "debug"
	}

	c.Publishers = splitList(strings.Join(c.Publishers, ","))
	c.Server.Triggers = splitList(strings.Join(c.Server.Triggers, ","))
	c.FeedSource = strings.ToLower(c.FeedSource)
	c.Ledger.Backend = strings.ToLower(c.Ledger.Backend)
	c.Shortener.Provider = strings.ToLower(c.Shortener.Provider)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return splitList(value)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}

// Location resolves Timezone; "" and "Local" mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) HasTrigger(name string) bool {
	return contains(c.Server.Triggers, name)
}

func (c *Config) HasPublisher(name string) bool {
	return contains(c.Publishers, name)
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

// Validate checks settings every command depends on.
func (c *Config) Validate() error {
	switch c.FeedSource {
	case "rest", "featured":
	default:
		return fmt.Errorf("FEED_SOURCE must be 'rest' or 'featured', got %q", c.FeedSource)
	}
	switch c.Ledger.Backend {
	case "file", "sqlite", "postgres", "redis", "none":
	default:
		return fmt.Errorf("LEDGER_BACKEND must be file, sqlite, postgres, redis or none, got %q", c.Ledger.Backend)
	}
	switch c.Shortener.Provider {
	case "none", "gemini", "openai":
	default:
		return fmt.Errorf("SHORTENER must be none, gemini or openai, got %q", c.Shortener.Provider)
	}
	for _, t := range c.Server.Triggers {
		if t != "http" && t != "cron" {
			return fmt.Errorf("unknown trigger %q (want http or cron)", t)
		}
	}
	if c.MaxPostLength < 0 {
		return fmt.Errorf("MAX_POST_LENGTH must not be negative")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// ValidatePublishers checks that every selected publisher has its credentials.
// Only commands that actually post need this.
func (c *Config) ValidatePublishers() error {
	if len(c.Publishers) == 0 {
		return fmt.Errorf("PUBLISHERS is empty")
	}
	var errs []error
	for _, p := range c.Publishers {
		switch p {
		case "twitter":
			if c.Twitter.APIKey == "" || c.Twitter.APIKeySecret == "" ||
				c.Twitter.AccessToken == "" || c.Twitter.AccessTokenSecret == "" {
				errs = append(errs, fmt.Errorf("%w: twitter needs API_KEY, API_KEY_SECRET, ACCESS_TOKEN, ACCESS_TOKEN_SECRET", ErrMissingCredentials))
			}
		case "telegram":
			if c.Telegram.Token == "" || c.Telegram.ChatID == "" {
				errs = append(errs, fmt.Errorf("%w: telegram needs TELEGRAM_TOKEN and TELEGRAM_CHAT_ID", ErrMissingCredentials))
			}
		case "ntfy":
			if c.Ntfy.Topic == "" {
				errs = append(errs, fmt.Errorf("%w: ntfy needs NTFY_TOPIC", ErrMissingCredentials))
			}
		case "kafka":
			if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
				errs = append(errs, fmt.Errorf("%w: kafka needs KAFKA_BROKERS and KAFKA_TOPIC", ErrMissingCredentials))
			}
		case "stdout":
		default:
			errs = append(errs, fmt.Errorf("unknown publisher %q", p))
		}
	}
	switch c.Shortener.Provider {
	case "gemini":
		if c.Shortener.GeminiAPIKey == "" {
			errs = append(errs, fmt.Errorf("%w: SHORTENER=gemini needs GEMINI_API_KEY", ErrMissingCredentials))
		}
	case "openai":
		if c.Shortener.OpenAIAPIKey == "" {
			errs = append(errs, fmt.Errorf("%w: SHORTENER=openai needs OPENAI_API_KEY", ErrMissingCredentials))
		}
	}
	return errors.Join(errs...)
}
