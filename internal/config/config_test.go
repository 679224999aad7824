package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/spendguard/internal/domain"
	"github.com/kailas-cloud/spendguard/internal/domain/allowance"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 || cfg.HTTP.WriteTimeoutSec != 10 || cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("unexpected http defaults: %+v", cfg.HTTP)
	}
	if cfg.Database.Driver != "valkey" || cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Ledger.PeriodSec != 86400 || cfg.Ledger.ChainID != 270 || cfg.Ledger.UpdateMode != "overwrite" {
		t.Errorf("unexpected ledger defaults: %+v", cfg.Ledger)
	}
	if cfg.Ledger.Domain().Factory != domain.DefaultFactory {
		t.Errorf("unexpected factory: %s", cfg.Ledger.FactoryAddress)
	}
	if cfg.Activity.TTL() != 48*time.Hour || cfg.Activity.Buffer != 1024 {
		t.Errorf("unexpected activity defaults: %+v", cfg.Activity)
	}
	if cfg.Storage.KeyPrefix != "spendguard:" {
		t.Errorf("expected KeyPrefix='spendguard:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:    HTTPConfig{ReadTimeoutSec: 30},
		Ledger:  LedgerConfig{PeriodSec: 10, UpdateMode: "preserve_usage", ChainID: 300},
		Storage: StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 || cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("overridden values changed: %+v", cfg)
	}
	d := cfg.Ledger.Domain()
	if d.Period != 10*time.Second || d.ChainID != 300 {
		t.Errorf("unexpected ledger domain: %+v", d)
	}
	if cfg.Ledger.Mode() != allowance.ModePreserveUsage {
		t.Errorf("mode = %s", cfg.Ledger.Mode())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.HTTP.Port = 0 }, wantErr: "http.port"},
		{name: "missing addrs", mutate: func(c *Config) { c.Database.Addrs = nil }, wantErr: "database.addrs"},
		{name: "memory needs no addrs", mutate: func(c *Config) { c.Database.Driver = "memory"; c.Database.Addrs = nil }},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "etcd" }, wantErr: "database.driver"},
		{name: "bad mode", mutate: func(c *Config) { c.Ledger.UpdateMode = "merge" }, wantErr: "ledger.update_mode"},
		{name: "bad factory", mutate: func(c *Config) { c.Ledger.FactoryAddress = "factory" }, wantErr: "ledger.factory_address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("SPENDGUARD_TEST_PORT", "9090")
	path := filepath.Join(t.TempDir(), "test.yaml")
	body := `
http:
  port: ${SPENDGUARD_TEST_PORT}
database:
  driver: ${SPENDGUARD_TEST_DRIVER:-memory}
ledger:
  period_sec: 10
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 || cfg.Database.Driver != "memory" || cfg.Ledger.PeriodSec != 10 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadFile_LocalConfig(t *testing.T) {
	for _, v := range []string{"PORT", "DB_DRIVER", "DB_ADDR", "DB_PASSWORD", "LEDGER_PERIOD_SEC"} {
		t.Setenv(v, "")
	}

	cfg, err := LoadFile(filepath.Join("..", "..", "config", "local.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("driver = %q, want memory", cfg.Database.Driver)
	}
	if got := cfg.Ledger.Domain().Period; got != 10*time.Second {
		t.Errorf("period = %v, want 10s", got)
	}
}
