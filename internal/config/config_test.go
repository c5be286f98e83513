package config

import (
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Validate(Default()) = %v, want nil", err)
	}
}

func TestLoadFromReaderOverridesDefaults(t *testing.T) {
	yaml := `
pipeline:
  workers: 3
provider:
  name: openai
  openai_api_key: sk-test
  language: en
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Pipeline.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Pipeline.Workers)
	}
	if cfg.Provider.Name != "openai" {
		t.Errorf("Provider.Name = %q, want openai", cfg.Provider.Name)
	}
	if cfg.Transport.ListenAddr != "127.0.0.1:8742" {
		t.Errorf("Transport.ListenAddr = %q, want default preserved", cfg.Transport.ListenAddr)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	yaml := `
pipeline:
  wrkers: 3
`
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatalf("expected error for unknown field, got nil")
	}
}

func TestValidateRejectsMissingOpenAIKey(t *testing.T) {
	cfg := Default()
	cfg.Provider.Name = "openai"
	cfg.Provider.OpenAIAPIKey = ""
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for missing openai key, got nil")
	}
}

func TestValidateRejectsZeroWorkers(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.Workers = 0
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for zero workers, got nil")
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.Provider.Name = "not-a-real-provider"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for unknown provider, got nil")
	}
}
