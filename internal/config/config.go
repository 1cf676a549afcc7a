package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"

	"github.com/MimeLyc/sentence-sub-translator/pkg/log"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// Translation:
// - TRANSLATOR_ENGINE: deepl or llm (default: deepl)
// - TRANSLATE_CONCURRENCY: groups translated at once per file (default: 4)
// - TRANSLATE_MAX_RETRIES: retries of transient provider failures (default: 3)
// - TRANSLATE_RETRY_BASE_DELAY: first backoff delay (default: 500ms)
// - DEFAULT_TARGET_LANGUAGE: target when a request names none (default: en)
//
// DeepL:
// - DEEPL_API_KEY: API key (required for the deepl engine)
// - DEEPL_API_URL: endpoint (default: https://api-free.deepl.com/v2/translate)
//
// LLM:
// - LLM_API_KEY: API key (required for the llm engine)
// - LLM_API_URL: OpenAI compatible endpoint (default: https://openrouter.ai/api/v1)
// - LLM_MODEL: model name (default: openai/gpt-4o-mini)
// - LLM_TEMPERATURE: sampling temperature (default: 0.3)
// - LLM_TIMEOUT: request timeout in seconds (default: 60)
// - TERM_MAP_DIR: directory of glossary files for the llm engine (default: none)
//
// Service:
// - HTTP_ADDR: listen address (default: :8080)
// - CORS_ORIGINS: comma separated allowed origins (default: *)
// - UI_ENABLED / UI_STATIC_DIR: serve a single page app (default: off, /app/web)
// - MAX_UPLOAD_BYTES: largest accepted subtitle upload (default: 10 MiB)
// - JWT_SECRET: HMAC secret for bearer tokens
// - JWT_TTL: lifetime of issued tokens (default: 24h)
// - DATA_DIR: data directory (default: /app/data)
// - DB_PATH: SQLite database file (default: $DATA_DIR/subtrans.db)
// - JOB_WORKERS: async translation workers (default: 2)
// - CLEANUP_CRON: schedule releasing stale reservations (default: */15 * * * *)
// - RESERVATION_TTL: age after which a reservation is stale (default: 1h)
// - LOG_LEVEL: debug, info, warn or error (default: info)
// - LOG_FILE: append log entries to this file instead of stdout
type Config struct {
	// Translate Configuration
	Translate TranslateConfig `json:"translate"`

	DeepL DeepLConfig `json:"deepl"`

	LLM LLMConfig `json:"llm"`

	HTTP HTTPConfig `json:"http"`

	Auth AuthConfig `json:"auth"`

	// System Configuration
	System SystemConfig `json:"system"`

	Jobs JobsConfig `json:"jobs"`

	Maintenance MaintenanceConfig `json:"maintenance"`
}

const (
	EngineDeepL = "deepl"
	EngineLLM   = "llm"
)

type TranslateConfig struct {
	Engine                string        `json:"engine"`
	Concurrency           int           `json:"concurrency"`
	MaxRetries            int           `json:"max_retries"`
	RetryBaseDelay        time.Duration `json:"retry_base_delay"`
	DefaultTargetLanguage string        `json:"default_target_language"`
}

type DeepLConfig struct {
	APIKey string `json:"api_key"`
	APIURL string `json:"api_url"`
}

// LLMConfig holds the configuration for an OpenAI compatible provider
// (OpenRouter, OpenAI and similar).
type LLMConfig struct {
	APIKey      string  `json:"api_key"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
	// TermMapDir holds term_map.<src>-<tgt>.json glossaries; empty disables them.
	TermMapDir string `json:"term_map_dir"`
}

func (c LLMConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

type HTTPConfig struct {
	Addr           string   `json:"addr"`
	CORSOrigins    []string `json:"cors_origins"`
	MaxUploadBytes int64    `json:"max_upload_bytes"`
	UIEnabled      bool     `json:"ui_enabled"`
	UIStaticDir    string   `json:"ui_static_dir"`
}

type AuthConfig struct {
	JWTSecret string        `json:"-"`
	TokenTTL  time.Duration `json:"token_ttl"`
}

// SystemConfig holds the system configuration
type SystemConfig struct {
	DataDir  string `json:"data_dir"`
	DBFile   string `json:"db_file"`
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file,omitempty"`
}

type JobsConfig struct {
	Workers int `json:"workers"`
}

type MaintenanceConfig struct {
	CleanupCron    string        `json:"cleanup_cron"`
	ReservationTTL time.Duration `json:"reservation_ttl"`
}

// DBPath is DB_PATH when set, otherwise subtrans.db inside the data directory.
func (c *Config) DBPath() string {
	if strings.TrimSpace(c.System.DBFile) != "" {
		return c.System.DBFile
	}
	return filepath.Join(c.System.DataDir, "subtrans.db")
}

// Option is a function type for configuring Config
type Option func(*Config)

func WithEngine(engine string) Option {
	return func(c *Config) {
		if engine != "" {
			c.Translate.Engine = engine
		}
	}
}

func WithDBPath(path string) Option {
	return func(c *Config) {
		if path != "" {
			c.System.DBFile = path
		}
	}
}

func WithHTTPAddr(addr string) Option {
	return func(c *Config) {
		if addr != "" {
			c.HTTP.Addr = addr
		}
	}
}

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Translate: TranslateConfig{
			Engine:                strings.ToLower(getEnvString("TRANSLATOR_ENGINE", EngineDeepL)),
			Concurrency:           getEnvInt("TRANSLATE_CONCURRENCY", 4),
			MaxRetries:            getEnvInt("TRANSLATE_MAX_RETRIES", 3),
			RetryBaseDelay:        getEnvDuration("TRANSLATE_RETRY_BASE_DELAY", 500*time.Millisecond),
			DefaultTargetLanguage: getEnvString("DEFAULT_TARGET_LANGUAGE", "en"),
		},
		DeepL: DeepLConfig{
			APIKey: getEnvString("DEEPL_API_KEY", ""),
			APIURL: getEnvString("DEEPL_API_URL", "https://api-free.deepl.com/v2/translate"),
		},
		LLM: LLMConfig{
			APIKey:      getEnvString("LLM_API_KEY", ""),
			APIURL:      getEnvString("LLM_API_URL", "https://openrouter.ai/api/v1"),
			Model:       getEnvString("LLM_MODEL", "openai/gpt-4o-mini"),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.3),
			Timeout:     getEnvInt("LLM_TIMEOUT", 60),
			TermMapDir:  getEnvString("TERM_MAP_DIR", ""),
		},
		HTTP: HTTPConfig{
			Addr:           getEnvString("HTTP_ADDR", ":8080"),
			CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"*"}),
			MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
			UIEnabled:      getEnvBool("UI_ENABLED", false),
			UIStaticDir:    getEnvString("UI_STATIC_DIR", "/app/web"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnvString("JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		System: SystemConfig{
			DataDir:  getEnvString("DATA_DIR", "/app/data"),
			DBFile:   getEnvString("DB_PATH", ""),
			LogLevel: getEnvString("LOG_LEVEL", "info"),
			LogFile:  getEnvString("LOG_FILE", ""),
		},
		Jobs: JobsConfig{
			Workers: getEnvInt("JOB_WORKERS", 2),
		},
		Maintenance: MaintenanceConfig{
			CleanupCron:    getEnvString("CLEANUP_CRON", "*/15 * * * *"),
			ReservationTTL: getEnvDuration("RESERVATION_TTL", time.Hour),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Info("Config: engine=%s concurrency=%d db=%s addr=%s workers=%d",
		config.Translate.Engine, config.Translate.Concurrency, config.DBPath(), config.HTTP.Addr, config.Jobs.Workers)

	return config, nil
}

// validate checks the settings every command relies on. Provider keys are
// checked by ValidateTranslator, since admin commands run without them.
func (c *Config) validate() error {
	switch c.Translate.Engine {
	case EngineDeepL, EngineLLM:
	default:
		return fmt.Errorf("TRANSLATOR_ENGINE must be %q or %q, got %q", EngineDeepL, EngineLLM, c.Translate.Engine)
	}
	if c.Translate.Concurrency <= 0 {
		return fmt.Errorf("TRANSLATE_CONCURRENCY must be positive")
	}
	if c.Translate.MaxRetries < 0 {
		return fmt.Errorf("TRANSLATE_MAX_RETRIES must not be negative")
	}
	if _, err := language.Parse(c.Translate.DefaultTargetLanguage); err != nil {
		return fmt.Errorf("invalid DEFAULT_TARGET_LANGUAGE: %w", err)
	}
	if _, err := cron.ParseStandard(c.Maintenance.CleanupCron); err != nil {
		return fmt.Errorf("invalid CLEANUP_CRON: %w", err)
	}
	if c.Maintenance.ReservationTTL <= 0 {
		return fmt.Errorf("RESERVATION_TTL must be positive")
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("JOB_WORKERS must be positive")
	}
	return nil
}

// ValidateTranslator checks that the selected engine has its credentials.
func (c *Config) ValidateTranslator() error {
	switch c.Translate.Engine {
	case EngineDeepL:
		if c.DeepL.APIKey == "" {
			return fmt.Errorf("DEEPL_API_KEY is required for the deepl engine")
		}
	case EngineLLM:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("LLM_API_KEY is required for the llm engine")
		}
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s", "1h").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	ret := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ret = append(ret, part)
		}
	}
	if len(ret) == 0 {
		return defaultValue
	}
	return ret
}
