package spendguard

import (
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/spendguard/internal/domain"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver    string // "valkey", "redis" or "memory"
	addrs     []string
	password  string
	keyPrefix string

	ledger     domain.LedgerConfig
	updateMode UpdateMode

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		keyPrefix:  defaultKeyPrefix,
		ledger:     domain.DefaultLedgerConfig(),
		updateMode: ModeOverwrite,
	}
}

// WithValkey stores ledger state in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores ledger state in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemory keeps ledger state in process memory. State is lost on Close.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
		c.addrs = nil
	})
}

// WithKeyPrefix namespaces every stored key. Default: "spendguard:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithPeriod sets the allowance replenish period. Default: 24h.
// Values below one second are raised to one second.
func WithPeriod(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		if d < time.Second {
			d = time.Second
		}
		c.ledger.Period = d
	})
}

// WithUpdateMode selects how SetSpendingLimit treats an enabled limit. Default: ModeOverwrite.
func WithUpdateMode(m UpdateMode) Option {
	return optionFunc(func(c *clientConfig) {
		c.updateMode = m
	})
}

// WithChainID sets the chain ID signatures are bound to. Default: 270.
func WithChainID(id uint64) Option {
	return optionFunc(func(c *clientConfig) {
		c.ledger.ChainID = id
	})
}

// WithFactory sets the factory address accounts are derived from.
func WithFactory(factory common.Address) Option {
	return optionFunc(func(c *clientConfig) {
		c.ledger.Factory = factory
	})
}

// WithLogger enables structured logging for SDK operations and ledger events.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
