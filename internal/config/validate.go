package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"remindbot/internal/reminder"
)

var knownDrivers = map[string]bool{
	"":           true,
	"sqlite":     true,
	"sqlite3":    true,
	"postgres":   true,
	"postgresql": true,
	"memory":     true,
}

// Validate checks cfg for values that would fail at startup. All problems are
// reported together.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if trim(cfg.Telegram.Token) == "" {
		add(fmt.Errorf("telegram.token: required (or set %s)", EnvTelegramToken))
	}
	if _, err := ParseGroupLog(cfg.Telegram.GroupLog); err != nil {
		add(err)
	}
	if cfg.Telegram.RatePerSec < 0 {
		add(errors.New("telegram.rate_per_sec: must be >= 0"))
	}
	_, err := ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	add(err)
	_, err = ParseDurationField("telegram.chat_cache_ttl", cfg.Telegram.ChatCacheTTL)
	add(err)

	driver := strings.ToLower(trim(cfg.Storage.Driver))
	if !knownDrivers[driver] {
		add(fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver))
	}
	if (driver == "postgres" || driver == "postgresql") && trim(cfg.Storage.Path) == "" {
		add(fmt.Errorf("storage.path: postgres needs a DSN (or set %s)", EnvStorageDSN))
	}
	_, err = ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	add(err)

	s := cfg.Scheduler
	tick, err := ParseDurationField("scheduler.tick", s.Tick)
	add(err)
	if err == nil && tick > 0 && tick.Seconds() < 1 {
		add(errors.New("scheduler.tick: must be at least 1s"))
	}
	_, err = ParseDurationField("scheduler.delivery_timeout", s.DeliveryTimeout)
	add(err)
	if s.BatchSize < 0 {
		add(errors.New("scheduler.batch_size: must be >= 0"))
	}
	if s.Concurrency < 0 {
		add(errors.New("scheduler.concurrency: must be >= 0"))
	}
	if s.RetryMax < 0 {
		add(errors.New("scheduler.retry_max: must be >= 0"))
	}
	switch strings.ToLower(trim(s.OnDeliveryFailure)) {
	case "", "advance", "retry":
	default:
		add(fmt.Errorf("scheduler.on_delivery_failure: want advance or retry, got %q", s.OnDeliveryFailure))
	}
	if _, err := reminder.LoadZone(s.Timezone); err != nil {
		add(fmt.Errorf("scheduler.timezone: %w", err))
	}

	if cfg.Debug.Enabled {
		add(validateDebug(cfg.Debug))
	}
	return errors.Join(errs...)
}

func validateDebug(d DebugConfig) error {
	addr := trim(d.Addr)
	if addr == "" {
		addr = "127.0.0.1:6060"
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("debug.addr: %w", err)
	}
	if _, err := ParseDurationField("debug.read_timeout", d.ReadTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("debug.idle_timeout", d.IdleTimeout); err != nil {
		return err
	}
	if !IsLoopbackHost(host) && trim(d.Token) == "" && !d.AllowInsecure {
		return fmt.Errorf("debug.addr: %q is not loopback; set debug.token or debug.allow_insecure", addr)
	}
	return nil
}

// IsLoopbackHost reports whether host only accepts local connections.
func IsLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ParseGroupLog parses telegram.group_log. Empty yields 0.
func ParseGroupLog(s string) (int64, error) {
	s = trim(s)
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram.group_log: invalid chat id %q", s)
	}
	return id, nil
}
