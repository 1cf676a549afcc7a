package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
)

const DefaultRuntimeSettingsFile = "/app/config/settings.json"

// RuntimeSettings is the subset of Config that can be kept in a JSON file
// next to the environment. Values in the file win over the environment.
type RuntimeSettings struct {
	Engine                string `json:"engine"`
	DeepLAPIKey           string `json:"deepl_api_key,omitempty"`
	LLMAPIURL             string `json:"llm_api_url,omitempty"`
	LLMAPIKey             string `json:"llm_api_key,omitempty"`
	LLMModel              string `json:"llm_model,omitempty"`
	CleanupCron           string `json:"cleanup_cron"`
	DefaultTargetLanguage string `json:"default_target_language"`
}

func RuntimeSettingsFilePath() string {
	return getEnvString("SETTINGS_FILE", DefaultRuntimeSettingsFile)
}

func (s RuntimeSettings) Validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Engine)) {
	case EngineDeepL:
		if strings.TrimSpace(s.DeepLAPIKey) == "" {
			return fmt.Errorf("deepl_api_key is required")
		}
	case EngineLLM:
		if strings.TrimSpace(s.LLMAPIKey) == "" {
			return fmt.Errorf("llm_api_key is required")
		}
		if strings.TrimSpace(s.LLMModel) == "" {
			return fmt.Errorf("llm_model is required")
		}
	default:
		return fmt.Errorf("engine must be %q or %q", EngineDeepL, EngineLLM)
	}
	if strings.TrimSpace(s.CleanupCron) == "" {
		return fmt.Errorf("cleanup_cron is required")
	}
	if _, err := cron.ParseStandard(s.CleanupCron); err != nil {
		return fmt.Errorf("invalid cleanup_cron: %w", err)
	}
	if strings.TrimSpace(s.DefaultTargetLanguage) == "" {
		return fmt.Errorf("default_target_language is required")
	}
	if _, err := language.Parse(s.DefaultTargetLanguage); err != nil {
		return fmt.Errorf("invalid default_target_language: %w", err)
	}
	return nil
}

func (c *Config) RuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		Engine:                c.Translate.Engine,
		DeepLAPIKey:           c.DeepL.APIKey,
		LLMAPIURL:             c.LLM.APIURL,
		LLMAPIKey:             c.LLM.APIKey,
		LLMModel:              c.LLM.Model,
		CleanupCron:           c.Maintenance.CleanupCron,
		DefaultTargetLanguage: c.Translate.DefaultTargetLanguage,
	}
}

// Redacted hides the API keys, for printing.
func (s RuntimeSettings) Redacted() RuntimeSettings {
	if s.DeepLAPIKey != "" {
		s.DeepLAPIKey = redact(s.DeepLAPIKey)
	}
	if s.LLMAPIKey != "" {
		s.LLMAPIKey = redact(s.LLMAPIKey)
	}
	return s
}

func redact(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

func WithRuntimeSettings(settings RuntimeSettings) Option {
	return func(c *Config) {
		if engine := strings.ToLower(strings.TrimSpace(settings.Engine)); engine != "" {
			c.Translate.Engine = engine
		}
		if strings.TrimSpace(settings.DeepLAPIKey) != "" {
			c.DeepL.APIKey = settings.DeepLAPIKey
		}
		if strings.TrimSpace(settings.LLMAPIURL) != "" {
			c.LLM.APIURL = settings.LLMAPIURL
		}
		if strings.TrimSpace(settings.LLMAPIKey) != "" {
			c.LLM.APIKey = settings.LLMAPIKey
		}
		if strings.TrimSpace(settings.LLMModel) != "" {
			c.LLM.Model = settings.LLMModel
		}
		if strings.TrimSpace(settings.CleanupCron) != "" {
			c.Maintenance.CleanupCron = settings.CleanupCron
		}
		if _, err := language.Parse(settings.DefaultTargetLanguage); err == nil {
			c.Translate.DefaultTargetLanguage = settings.DefaultTargetLanguage
		}
	}
}

func LoadRuntimeSettingsFile(path string) (RuntimeSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeSettings{}, err
	}
	var settings RuntimeSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return RuntimeSettings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return settings, nil
}

func WriteRuntimeSettingsFile(path string, settings RuntimeSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	content, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
