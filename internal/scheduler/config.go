package scheduler

import (
	"strings"
	"time"
)

// FailurePolicy decides what happens to a firing whose delivery failed.
type FailurePolicy string

const (
	// PolicyAdvance treats the firing as spent and moves on.
	PolicyAdvance FailurePolicy = "advance"
	// PolicyRetry keeps the firing due for the next tick, up to RetryMax attempts.
	PolicyRetry FailurePolicy = "retry"
)

// ParseFailurePolicy maps config text to a policy; unknown values yield PolicyAdvance, false.
func ParseFailurePolicy(s string) (FailurePolicy, bool) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAdvance:
		return PolicyAdvance, true
	case PolicyRetry:
		return PolicyRetry, true
	default:
		return PolicyAdvance, false
	}
}

type Config struct {
	Tick              time.Duration
	BatchSize         int
	Concurrency       int
	DeliveryTimeout   time.Duration
	OnDeliveryFailure FailurePolicy
	RetryMax          int
	PruneExpired      bool
	RunOnStart        bool
	Location          *time.Location
}

const (
	DefaultTick            = 30 * time.Second
	DefaultBatchSize       = 50
	DefaultConcurrency     = 4
	DefaultDeliveryTimeout = 15 * time.Second
	DefaultRetryMax        = 3
)

// withDefaults fills zero values. Booleans are taken as given.
func (c Config) withDefaults() Config {
	if c.Tick < time.Second {
		c.Tick = DefaultTick
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = DefaultDeliveryTimeout
	}
	if c.OnDeliveryFailure == "" {
		c.OnDeliveryFailure = PolicyAdvance
	}
	if c.RetryMax <= 0 {
		c.RetryMax = DefaultRetryMax
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}
