package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/spendguard/internal/domain"
	"github.com/kailas-cloud/spendguard/internal/domain/allowance"
)

// Config holds the spendguard service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Activity ActivityConfig `yaml:"activity"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, memory (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// LedgerConfig holds allowance and call-signing settings.
type LedgerConfig struct {
	PeriodSec      int64  `yaml:"period_sec"`
	UpdateMode     string `yaml:"update_mode"` // overwrite (default) | preserve_usage
	ChainID        uint64 `yaml:"chain_id"`
	FactoryAddress string `yaml:"factory_address"`
}

// ActivityConfig holds spend activity counter settings.
type ActivityConfig struct {
	TTLHours int `yaml:"ttl_hours"`
	Buffer   int `yaml:"buffer"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from config/<env>.yaml (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads, expands, defaults and validates the configuration at path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	def := domain.DefaultLedgerConfig()
	if c.Ledger.PeriodSec <= 0 {
		c.Ledger.PeriodSec = int64(def.Period / time.Second)
	}
	if c.Ledger.UpdateMode == "" {
		c.Ledger.UpdateMode = string(allowance.ModeOverwrite)
	}
	if c.Ledger.ChainID == 0 {
		c.Ledger.ChainID = def.ChainID
	}
	if c.Ledger.FactoryAddress == "" {
		c.Ledger.FactoryAddress = def.Factory.Hex()
	}

	if c.Activity.TTLHours <= 0 {
		c.Activity.TTLHours = 48
	}
	if c.Activity.Buffer <= 0 {
		c.Activity.Buffer = 1024
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "spendguard:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "valkey", "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be valkey, redis or memory, got %q", c.Database.Driver)
	}
	if !allowance.UpdateMode(c.Ledger.UpdateMode).IsValid() {
		return fmt.Errorf("ledger.update_mode must be %q or %q, got %q",
			allowance.ModeOverwrite, allowance.ModePreserveUsage, c.Ledger.UpdateMode)
	}
	if !common.IsHexAddress(c.Ledger.FactoryAddress) {
		return fmt.Errorf("ledger.factory_address is not a hex address: %q", c.Ledger.FactoryAddress)
	}
	return nil
}

// Domain converts the ledger section into the settings the services use.
func (l LedgerConfig) Domain() domain.LedgerConfig {
	return domain.LedgerConfig{
		Period:  time.Duration(l.PeriodSec) * time.Second,
		ChainID: l.ChainID,
		Factory: common.HexToAddress(l.FactoryAddress),
	}
}

// Mode returns the configured update mode.
func (l LedgerConfig) Mode() allowance.UpdateMode { return allowance.UpdateMode(l.UpdateMode) }

// TTL returns how long a daily activity counter lives.
func (a ActivityConfig) TTL() time.Duration { return time.Duration(a.TTLHours) * time.Hour }

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
