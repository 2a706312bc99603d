package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsToLongpollAndSqlite(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
	if cfg.Database.Driver() != "sqlite" {
		t.Fatalf("driver = %q", cfg.Database.Driver())
	}
	if cfg.Database.Path != "diarypete.db" {
		t.Fatalf("sqlite path = %q", cfg.Database.Path)
	}
}

func TestLoadPostgresDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
database:
  host: db.internal
  name: diarypete
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver() != "postgres" {
		t.Fatalf("driver = %q", cfg.Database.Driver())
	}
	if cfg.Database.Port != "5432" || cfg.Database.SSLMode != "disable" || cfg.Database.MaxConnections != 4 {
		t.Fatalf("defaults = %+v", cfg.Database)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	path := writeConfig(t, `
telegram:
  run_mode: longpoll
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a missing token")
	}
}

func TestLoadRejectsBadRunMode(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  run_mode: carrier-pigeon
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an invalid run mode")
	}
}

func TestLoadWebhookRequiresEndpoint(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  run_mode: webhook
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for missing webhook settings")
	}
}

func TestLoadAcceptsPollingAlias(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  run_mode: polling
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
}

func TestPostgresRequiresName(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
database:
  host: db.internal
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a missing database name")
	}
}
