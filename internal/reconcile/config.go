package reconcile

import (
	"time"

	"github.com/digiunlocks/soccer-club-sub006/internal/config"
)

// Config controls how often and how widely the ledger is reconciled.
type Config struct {
	Enabled     bool
	RunInterval time.Duration
	BatchSize   int
	JobTimeout  time.Duration
	LockKey     string
}

func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		RunInterval: 5 * time.Minute,
		BatchSize:   100,
		JobTimeout:  2 * time.Minute,
		LockKey:     "clubledger:reconcile:lock",
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:     cfg.ReconcileEnabled,
		RunInterval: cfg.ReconcileInterval,
		BatchSize:   cfg.ReconcileBatch,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockKey == "" {
		c.LockKey = defaults.LockKey
	}
	return c
}
