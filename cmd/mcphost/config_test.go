package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zhiyu220/MCP-demo/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func TestConfigInitCmd(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	if err := configInitCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("Config init failed: %v", err)
	}

	configPath := filepath.Join(tmpDir, ".mcphost", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Config file not created at %s: %v", configPath, err)
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("template is not valid yaml: %v", err)
	}
	for _, section := range []string{"server", "models", "mcp", "orchestrator", "session", "weather"} {
		if _, ok := parsed[section]; !ok {
			t.Errorf("template missing section %q", section)
		}
	}

	if err := configInitCmd.RunE(cmd, nil); err != nil {
		t.Errorf("Config init should succeed when config exists: %v", err)
	}
}

func TestConfigInitTemplateLoads(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("OPENAI_API_KEY", "")

	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, embeddedDefaultConfig, 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "")
	_ = cmd.Flags().Set("config", path)

	loaded, err := config.Load(cmd)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if len(loaded.Models.Registry) != 4 {
		t.Errorf("expected 4 registry entries, got %d", len(loaded.Models.Registry))
	}
	if loaded.Session.Path != filepath.Join(tmpDir, ".mcphost", "sessions") {
		t.Errorf("expected expanded session path, got %s", loaded.Session.Path)
	}
}

func TestConfigViewCmdMasksSecrets(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENWEATHER_API_KEY", "owm-secret-value")
	cfg = nil

	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)

	if err := configViewCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("Config view failed: %v", err)
	}
	if strings.Contains(out.String(), "owm-secret-value") {
		t.Fatal("config view leaked the weather api key")
	}
	if !strings.Contains(out.String(), "ow************ue") {
		t.Errorf("expected masked key in output, got %q", out.String())
	}
}

func TestRedactConfigSecrets(t *testing.T) {
	original := &config.Config{
		Models: config.ModelsConfig{
			Registry: []config.ModelRegistry{
				{Name: "m1", APIKey: "sk-secret-123456"},
				{Name: "m2", APIKey: "abcd"},
			},
		},
		Weather: config.WeatherConfig{APIKey: "weather-secret"},
		Session: config.SessionConfig{Redis: config.RedisSessionConfig{Password: "redis-secret"}},
	}

	redacted := redactConfigSecrets(original)

	if redacted == nil {
		t.Fatal("redacted config should not be nil")
	}
	if redacted.Models.Registry[0].APIKey == original.Models.Registry[0].APIKey {
		t.Fatal("model API key should be masked")
	}
	if strings.Contains(redacted.Models.Registry[0].APIKey, "secret") {
		t.Fatal("masked model API key should not leak original value")
	}
	if redacted.Weather.APIKey == original.Weather.APIKey {
		t.Fatal("weather api key should be masked")
	}
	if redacted.Session.Redis.Password == original.Session.Redis.Password {
		t.Fatal("redis password should be masked")
	}

	if original.Models.Registry[0].APIKey != "sk-secret-123456" {
		t.Fatal("original config must not be modified")
	}
}

func TestMaskSecret(t *testing.T) {
	if got := maskSecret(""); got != "" {
		t.Fatalf("empty secret: got %q", got)
	}
	if got := maskSecret("abc"); got != "****" {
		t.Fatalf("short secret: got %q", got)
	}

	got := maskSecret("abcdef")
	if len(got) != len("abcdef") {
		t.Fatalf("masked secret length mismatch: got %d", len(got))
	}
	if got[:2] != "ab" || got[len(got)-2:] != "ef" {
		t.Fatalf("masked secret should preserve prefix/suffix: got %q", got)
	}
}
