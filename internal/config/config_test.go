package config

import (
	"os"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	return tmpfile.Name()
}

func TestLoad(t *testing.T) {
	content := `
server:
  port: 9095
  host: "127.0.0.1"

auth:
  jwtSecret: "test-secret"

ai:
  apiKey: "test-key"

stripe:
  secretKey: "sk_test_123"
  webhookSecret: "whsec_123"
`

	cfg, err := Load(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9095 {
		t.Errorf("Expected port 9095, got %d", cfg.Server.Port)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}

	// Defaults applied for omitted sections
	if cfg.Batch.MaxImages != 5 {
		t.Errorf("Expected batch.maxImages default 5, got %d", cfg.Batch.MaxImages)
	}

	if cfg.AI.Model != "gemini-2.5-flash-image" {
		t.Errorf("Expected default model, got %s", cfg.AI.Model)
	}

	if cfg.Stripe.Currency != "try" {
		t.Errorf("Expected default currency try, got %s", cfg.Stripe.Currency)
	}
}

func TestLoadMissingJWTSecret(t *testing.T) {
	content := `
ai:
  apiKey: "test-key"
`

	_, err := Load(writeTempConfig(t, content))
	if err == nil {
		t.Error("Expected error when auth.jwtSecret is missing")
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error when loading nonexistent file")
	}
}
