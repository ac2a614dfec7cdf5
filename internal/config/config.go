package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPort         = "3000"
	DefaultModel        = "gemini-2.0-flash"
	DefaultTextProvider = "gemini"
	DefaultUploadDir    = "uploads"

	// MaxUploadBytes caps every file route. It is not configurable.
	MaxUploadBytes = 10 << 20 // 10 MB

	defaultScratchTTLMinutes    = 60
	defaultSweepIntervalMinutes = 10
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Providers   map[string]ProviderConfig `json:"providers"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type BasicConfig struct {
	Port                 string `json:"port"`
	GeminiAPIKey         string `json:"gemini_api_key"`
	Model                string `json:"model"`
	TextProvider         string `json:"text_provider"`
	UploadDir            string `json:"upload_dir"`
	LogFormat            string `json:"log_format"`
	LogLevel             string `json:"log_level"`
	MetricsEnabled       bool   `json:"metrics_enabled"`
	ScratchTTLMinutes    int    `json:"scratch_ttl_minutes"`
	SweepIntervalMinutes int    `json:"sweep_interval_minutes"`
}

// Address returns the listen address for the HTTP server.
func (c *Config) Address() string {
	return ":" + c.BasicConfig.Port
}

// Load reads configuration from the optional JSON file at path, then applies
// environment overrides. A .env file in the working directory is honored.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		if err := readFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	if dir := cfg.BasicConfig.UploadDir; dir != "" && !filepath.IsAbs(dir) {
		cfg.BasicConfig.UploadDir = filepath.Join(filepath.Dir(absPath), dir)
	}
	return nil
}

func applyEnv(cfg *Config) {
	b := &cfg.BasicConfig
	setString(&b.GeminiAPIKey, "GOOGLE_GEMINI_API_KEY")
	setString(&b.Port, "PORT")
	setString(&b.Model, "GEMINIGATE_MODEL")
	setString(&b.TextProvider, "GEMINIGATE_TEXT_PROVIDER")
	setString(&b.UploadDir, "GEMINIGATE_UPLOAD_DIR")
	setString(&b.LogFormat, "GEMINIGATE_LOG_FORMAT")
	setString(&b.LogLevel, "GEMINIGATE_LOG_LEVEL")
	if v, ok := os.LookupEnv("GEMINIGATE_METRICS"); ok {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		b.MetricsEnabled = err == nil && enabled
	}
	setInt(&b.ScratchTTLMinutes, "GEMINIGATE_SCRATCH_TTL_MINUTES")
	setInt(&b.SweepIntervalMinutes, "GEMINIGATE_SWEEP_INTERVAL_MINUTES")
}

func applyDefaults(cfg *Config) {
	b := &cfg.BasicConfig
	if b.Port == "" {
		b.Port = DefaultPort
	}
	if b.Model == "" {
		b.Model = DefaultModel
	}
	if b.TextProvider == "" {
		b.TextProvider = DefaultTextProvider
	}
	b.TextProvider = strings.ToLower(b.TextProvider)
	if b.UploadDir == "" {
		b.UploadDir = DefaultUploadDir
	}
	if b.LogFormat == "" {
		b.LogFormat = "text"
	}
	if b.LogLevel == "" {
		b.LogLevel = "info"
	}
	if b.ScratchTTLMinutes <= 0 {
		b.ScratchTTLMinutes = defaultScratchTTLMinutes
	}
	if b.SweepIntervalMinutes <= 0 {
		b.SweepIntervalMinutes = defaultSweepIntervalMinutes
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
}

// Validate reports configuration that cannot serve requests.
func (c *Config) Validate() error {
	b := c.BasicConfig
	if strings.TrimSpace(b.GeminiAPIKey) == "" {
		return errors.New("GOOGLE_GEMINI_API_KEY must be configured")
	}
	if _, err := strconv.Atoi(b.Port); err != nil {
		return fmt.Errorf("invalid port %q", b.Port)
	}
	switch b.TextProvider {
	case "gemini":
	case "openai", "claude":
		if c.Providers[b.TextProvider].APIKey == "" {
			return fmt.Errorf("providers.%s.api_key must be configured", b.TextProvider)
		}
	default:
		return fmt.Errorf("invalid text provider: %s", b.TextProvider)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
