package refresher

import (
	"time"

	"github.com/smallbiznis/ispreport/internal/config"
)

const DefaultLockKey = "ispreport:permcache:sync"

// Config controls the permission cache refresh loop.
type Config struct {
	Enabled  bool
	Interval time.Duration
	Timeout  time.Duration
	LockKey  string
	LockTTL  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Interval: 5 * time.Minute,
		Timeout:  2 * time.Minute,
		LockKey:  DefaultLockKey,
		LockTTL:  5 * time.Minute,
	}
}

// FromConfig maps the application config onto the refresher config.
func FromConfig(cfg config.Config) Config {
	return Config{
		Enabled:  cfg.CacheSync.Enabled,
		Interval: cfg.CacheSync.Interval,
		Timeout:  cfg.CacheSync.Timeout,
		LockTTL:  cfg.CacheSync.LockTTL,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = defaults.Interval
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	if c.LockKey == "" {
		c.LockKey = defaults.LockKey
	}
	// The lock must outlive a full run.
	if c.LockTTL < c.Timeout {
		c.LockTTL = c.Timeout
	}
	return c
}
