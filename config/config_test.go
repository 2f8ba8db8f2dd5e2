package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfig_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 9999\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 9090\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Listen.Port != 9090 {
		t.Errorf("Listen.Port = %d, want 9090", cfg.Listen.Port)
	}
	if cfg.Engine.StepBudget != 10 {
		t.Errorf("Engine.StepBudget = %d, want default 10", cfg.Engine.StepBudget)
	}
	if cfg.Model.Provider != "mock" {
		t.Errorf("Model.Provider = %q, want default mock", cfg.Model.Provider)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_AGENTLOOP_KEY", "sk-test-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("model:\n  provider: anthropic\n  api_key: ${TEST_AGENTLOOP_KEY}\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Model.APIKey != "sk-test-123" {
		t.Errorf("Model.APIKey = %q, want expanded env value", cfg.Model.APIKey)
	}
}

func TestLoad_RejectsUnknownProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("model:\n  provider: bard\n"), 0600)

	if _, err := Load(path); err == nil {
		t.Fatal("Load with unknown provider should error")
	}
}

func TestLoad_RejectsMissingAPIKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("model:\n  provider: openai\n"), 0600)

	if _, err := Load(path); err == nil {
		t.Fatal("Load with missing api_key should error")
	}
}

func TestListenAddr(t *testing.T) {
	c := ListenConfig{Address: "127.0.0.1", Port: 8080}
	if got := c.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8080", got)
	}
}
