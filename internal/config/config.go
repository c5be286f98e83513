// Package config loads and validates the pipeline's YAML configuration.
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// PipelineConfig controls the worker pool / dispatcher (C7).
type PipelineConfig struct {
	// Workers is the number of worker goroutines. The spec fixes this at 1
	// to guarantee chronological emission ordering; values above 1 are
	// accepted but ordering across workers is then only best-effort by
	// sequence id.
	Workers int `yaml:"workers"`
}

// ProviderConfig selects and configures the active transcription provider.
type ProviderConfig struct {
	Name         string `yaml:"name"` // "whisper", "parakeet", "qwen3", "openai"
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`
	Language     string `yaml:"language"`
}

// QwenConfig controls the local Qwen3-ASR engine (C4).
type QwenConfig struct {
	ModelsDir      string `yaml:"models_dir"`
	PreferredModel string `yaml:"preferred_model"`
}

// LogConfig controls structured logging (C8).
type LogConfig struct {
	Level string `yaml:"level"`
}

// TransportConfig controls the outbound-event HTTP/websocket bridge (C9).
type TransportConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration for the transcription core.
type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Provider  ProviderConfig  `yaml:"provider"`
	Qwen      QwenConfig      `yaml:"qwen"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
}

// Default returns a Config populated with the spec's defaults.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{Workers: 1},
		Provider: ProviderConfig{Name: "qwen3", OpenAIModel: "whisper-1"},
		Qwen:     QwenConfig{PreferredModel: "qwen3-asr-0.6b-q8_0"},
		Log:      LogConfig{Level: "info"},
		Transport: TransportConfig{
			ListenAddr: "127.0.0.1:8742",
		},
	}
}

// Load reads and validates the YAML config file at path.
func Load(path string) (*Config, error) {
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

// LoadFromReader decodes a YAML config from r, layering it over the
// defaults, and validates the result. Exposed for tests that construct
// configs from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg is internally consistent.
func Validate(cfg *Config) error {
	if cfg.Pipeline.Workers < 1 {
		return fmt.Errorf("config: pipeline.workers must be >= 1, got %d", cfg.Pipeline.Workers)
	}
	switch cfg.Provider.Name {
	case "whisper", "parakeet", "qwen3", "openai":
	case "":
		return fmt.Errorf("config: provider.name is required")
	default:
		return fmt.Errorf("config: provider.name %q is not a recognized provider", cfg.Provider.Name)
	}
	if cfg.Provider.Name == "openai" && cfg.Provider.OpenAIAPIKey == "" {
		return fmt.Errorf("config: provider.openai_api_key is required when provider.name is \"openai\"")
	}
	return nil
}
