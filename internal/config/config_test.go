package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grantd.yaml")
	content := `database:
  path: /var/lib/grantd/grantd.db
roles:
  file: /etc/grantd/roles.yaml
  capabilities: [voice_call, sms]
server:
  socket: /run/grantd.sock
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Path != "/var/lib/grantd/grantd.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.Server.Socket != "/run/grantd.sock" {
		t.Errorf("socket = %q", cfg.Server.Socket)
	}
	if len(cfg.Roles.Capabilities) != 2 || cfg.Roles.Capabilities[0] != "voice_call" {
		t.Errorf("capabilities = %v", cfg.Roles.Capabilities)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("database: [not a map"), 0o644)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDefaults(t *testing.T) {
	t.Setenv("GRANTD_DB", "")
	t.Setenv("GRANTD_SOCKET", "")
	t.Setenv("GRANTD_ROLES_FILE", "")
	t.Setenv("GRANTD_LOG_LEVEL", "")

	cfg := Default()
	if cfg.Database.Path == "" || filepath.Base(cfg.Database.Path) != "grantd.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if filepath.Base(cfg.Server.Socket) != "grantd.sock" {
		t.Errorf("socket = %q", cfg.Server.Socket)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
	if cfg.Server.AdminTokenHash != "" {
		t.Errorf("admin token hash should default empty, got %q", cfg.Server.AdminTokenHash)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GRANTD_DB", "/tmp/override.db")
	t.Setenv("GRANTD_SOCKET", "/tmp/override.sock")
	t.Setenv("GRANTD_LOG_LEVEL", "debug")

	path := filepath.Join(t.TempDir(), "grantd.yaml")
	os.WriteFile(path, []byte("database:\n  path: /from/file.db\n"), 0o644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("env should win over file, got %q", cfg.Database.Path)
	}
	if cfg.Server.Socket != "/tmp/override.sock" {
		t.Errorf("socket = %q", cfg.Server.Socket)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}
