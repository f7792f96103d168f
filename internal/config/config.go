// Package config loads service configuration from a YAML file with
// environment overrides for credentials and defaults for everything else.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Providers ProvidersConfig `yaml:"providers"`
	Storage   StorageConfig   `yaml:"storage"`
}

// ServerConfig holds HTTP and logging settings.
type ServerConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	BearerToken string `yaml:"bearer_token"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

// SynthesisConfig tunes the narration pipeline. MaxRetries and
// SilenceBetweenMS are pointers so an explicit zero in the file (no retries,
// no seam silence) is distinguishable from an unset field.
type SynthesisConfig struct {
	DefaultProvider  string        `yaml:"default_provider"`
	MaxTextLength    int           `yaml:"max_text_length"`
	MaxRetries       *int          `yaml:"max_retries"`
	InitialBackoff   time.Duration `yaml:"initial_backoff"`
	SilenceBetweenMS *int          `yaml:"silence_between_ms"`
	CrossfadeMS      int           `yaml:"crossfade_ms"`
}

// ProvidersConfig holds per-provider settings. API keys can come from the
// file or from environment variables (OPENAI_API_KEY, ELEVENLABS_API_KEY);
// the environment wins.
type ProvidersConfig struct {
	OpenAI     OpenAIConfig     `yaml:"openai"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Piper      PiperConfig      `yaml:"piper"`
}

// OpenAIConfig configures the OpenAI speech provider.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// ElevenLabsConfig configures the ElevenLabs provider.
type ElevenLabsConfig struct {
	APIKey  string `yaml:"api_key"`
	ModelID string `yaml:"model_id"`
}

// PiperConfig configures the local Piper provider.
type PiperConfig struct {
	BinaryPath   string `yaml:"binary_path"`
	ModelPath    string `yaml:"model_path"`
	DefaultVoice string `yaml:"default_voice"`
}

// StorageConfig holds artifact and job retention settings.
type StorageConfig struct {
	ArtifactDir   string        `yaml:"artifact_dir"`
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Load reads the YAML configuration file at path, applies environment
// overrides and defaults, and validates the result. An empty path yields the
// default configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := &Config{}
		cfg.applyEnv()
		cfg.applyDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment overrides
// and defaults, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the loaded file. Credentials
// are expected to come from the environment in most deployments.
func (c *Config) applyEnv() {
	c.Providers.OpenAI.APIKey = getEnvString("OPENAI_API_KEY", c.Providers.OpenAI.APIKey)
	c.Providers.ElevenLabs.APIKey = getEnvString("ELEVENLABS_API_KEY", c.Providers.ElevenLabs.APIKey)
	c.Server.BearerToken = getEnvString("BEARER_TOKEN", c.Server.BearerToken)
	c.Server.ListenAddr = getEnvString("LISTEN_ADDR", c.Server.ListenAddr)
	c.Server.LogLevel = getEnvString("LOG_LEVEL", c.Server.LogLevel)
	c.Server.LogFormat = getEnvString("LOG_FORMAT", c.Server.LogFormat)
	c.Storage.ArtifactDir = getEnvString("ARTIFACT_DIR", c.Storage.ArtifactDir)
	c.Synthesis.MaxTextLength = getEnvInt("MAX_TEXT_LENGTH", c.Synthesis.MaxTextLength)
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.LogFormat == "" {
		c.Server.LogFormat = "text"
	}
	if c.Synthesis.MaxTextLength == 0 {
		c.Synthesis.MaxTextLength = 100_000
	}
	if c.Synthesis.MaxRetries == nil {
		c.Synthesis.MaxRetries = intPtr(3)
	}
	if c.Synthesis.InitialBackoff == 0 {
		c.Synthesis.InitialBackoff = time.Second
	}
	if c.Synthesis.SilenceBetweenMS == nil {
		c.Synthesis.SilenceBetweenMS = intPtr(100)
	}
	if c.Providers.OpenAI.Model == "" {
		c.Providers.OpenAI.Model = "tts-1"
	}
	if c.Providers.ElevenLabs.ModelID == "" {
		c.Providers.ElevenLabs.ModelID = "eleven_multilingual_v2"
	}
	if c.Providers.Piper.BinaryPath == "" {
		c.Providers.Piper.BinaryPath = "piper"
	}
	if c.Storage.ArtifactDir == "" {
		c.Storage.ArtifactDir = "./artifacts"
	}
	if c.Storage.Retention == 0 {
		c.Storage.Retention = 24 * time.Hour
	}
	if c.Storage.SweepInterval == 0 {
		c.Storage.SweepInterval = 10 * time.Minute
	}
}

// AuthDisabled returns true if bearer token authentication is disabled.
func (c *Config) AuthDisabled() bool {
	return c.Server.BearerToken == ""
}

// Validate checks that the configuration is coherent.
func (c *Config) Validate() error {
	var errs []error

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, errors.New("server.log_level must be one of: debug, info, warn, error"))
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.Server.LogFormat] {
		errs = append(errs, errors.New("server.log_format must be one of: text, json"))
	}

	if c.Synthesis.MaxTextLength < 1 {
		errs = append(errs, errors.New("synthesis.max_text_length must be at least 1"))
	}
	if c.Synthesis.MaxRetries != nil && *c.Synthesis.MaxRetries < 0 {
		errs = append(errs, errors.New("synthesis.max_retries must be non-negative"))
	}
	if c.Synthesis.SilenceBetweenMS != nil && *c.Synthesis.SilenceBetweenMS < 0 {
		errs = append(errs, errors.New("synthesis.silence_between_ms must be non-negative"))
	}
	if c.Synthesis.CrossfadeMS < 0 {
		errs = append(errs, errors.New("synthesis.crossfade_ms must be non-negative"))
	}

	switch c.Synthesis.DefaultProvider {
	case "", "openai", "elevenlabs", "piper":
	default:
		errs = append(errs, fmt.Errorf("synthesis.default_provider %q is unknown; valid values: openai, elevenlabs, piper", c.Synthesis.DefaultProvider))
	}

	if c.Storage.Retention < 0 {
		errs = append(errs, errors.New("storage.retention must be non-negative"))
	}

	return errors.Join(errs...)
}

func intPtr(v int) *int {
	return &v
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
