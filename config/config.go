package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	TelegramToken      string `yaml:"telegram_token"`
	AllowedUserID      int64  `yaml:"allowed_user_id"`
	CompileTime        string `yaml:"compile_time"`
	Timezone           string `yaml:"timezone"`
	OpenRouterAPIKey   string `yaml:"openrouter_api_key"`
	OpenRouterModel    string `yaml:"openrouter_model"`
	TranscriberURL     string `yaml:"transcriber_url"`
	TranscriberAPIKey  string `yaml:"transcriber_api_key"`
	Platform           string `yaml:"platform"`
	BlogAPIURL         string `yaml:"blog_api_url"`
	BlogAPIKey         string `yaml:"blog_api_key"`
	DBPath             string `yaml:"db_path"`
	TranscribeTimeoutS int    `yaml:"transcribe_timeout_secs"`
	FormatTimeoutS     int    `yaml:"format_timeout_secs"`
	PublishTimeoutS    int    `yaml:"publish_timeout_secs"`
	LogLevel           string `yaml:"log_level"`
}

// compileTimeRegex validates HH:MM format with proper ranges.
var compileTimeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// GetConfigPath returns the config file path from environment or default.
func GetConfigPath() string {
	if path := os.Getenv("VOICEBLOG_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

func applyDefaults(cfg *Config) {
	if cfg.CompileTime == "" {
		cfg.CompileTime = "21:00"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.OpenRouterModel == "" {
		cfg.OpenRouterModel = "anthropic/claude-3.7-sonnet"
	}
	if cfg.TranscribeTimeoutS == 0 {
		cfg.TranscribeTimeoutS = 60
	}
	if cfg.FormatTimeoutS == 0 {
		cfg.FormatTimeoutS = 60
	}
	if cfg.PublishTimeoutS == 0 {
		cfg.PublishTimeoutS = 30
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./voiceblog.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func applyEnvironmentOverrides(cfg *Config) {
	if dbPath := os.Getenv("VOICEBLOG_DB"); dbPath != "" {
		cfg.DBPath = dbPath
	}
}

func validate(cfg *Config) error {
	if cfg.TelegramToken == "" {
		return fmt.Errorf("telegram_token is required")
	}
	if cfg.AllowedUserID == 0 {
		return fmt.Errorf("allowed_user_id is required")
	}
	if cfg.OpenRouterAPIKey == "" {
		return fmt.Errorf("openrouter_api_key is required")
	}
	if !compileTimeRegex.MatchString(cfg.CompileTime) {
		return fmt.Errorf("compile_time must be in HH:MM format (00:00-23:59), got %q", cfg.CompileTime)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	switch cfg.Platform {
	case "ghost", "wordpress", "medium":
	default:
		return fmt.Errorf("platform must be one of ghost, wordpress, medium, got %q", cfg.Platform)
	}
	if cfg.Platform != "medium" && cfg.BlogAPIURL == "" {
		return fmt.Errorf("blog_api_url is required for platform %q", cfg.Platform)
	}
	if cfg.BlogAPIKey == "" {
		return fmt.Errorf("blog_api_key is required")
	}
	return nil
}
