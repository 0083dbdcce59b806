package app

import (
	"fmt"
	"strings"
	"time"

	"remindbot/internal/config"
	"remindbot/internal/observability/debug"
	"remindbot/internal/reminder"
	"remindbot/internal/scheduler"
	"remindbot/internal/storage"
	telegram "remindbot/internal/transport/telegram/adapter"
	"remindbot/pkg/logx"
)

const defaultSQLitePath = "./data/remindbot.db"

func mapLoggingConfig(cfg *config.Config) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File: logx.FileConfig{
			Enabled: l.File.Enabled,
			Path:    l.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    l.Telegram.Enabled,
			ThreadID:   l.Telegram.ThreadID,
			MinLevel:   l.Telegram.MinLevel,
			RatePerSec: l.Telegram.RatePerSec,
		},
	}
}

func mapAdapterConfig(cfg *config.Config) (telegram.Config, error) {
	t := cfg.Telegram
	poll, err := config.ParseDurationField("telegram.poll_timeout", t.PollTimeout)
	if err != nil {
		return telegram.Config{}, err
	}
	ttl, err := config.ParseDurationField("telegram.chat_cache_ttl", t.ChatCacheTTL)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{
		Token:        strings.TrimSpace(t.Token),
		PollTimeout:  poll,
		RatePerSec:   t.RatePerSec,
		ChatCacheTTL: ttl,
		URL:          strings.TrimSpace(t.APIURL),
	}, nil
}

// MapStorageConfig converts the storage section. The CLI uses it to open the
// store outside the running bot.
func MapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	busy, err := config.ParseDurationField("storage.busy_timeout", sc.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	out := storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(sc.Driver)),
		Path:        strings.TrimSpace(sc.Path),
		BusyTimeout: busy,
	}
	if out.Path == "" && (out.Driver == "" || strings.HasPrefix(out.Driver, "sqlite")) {
		out.Path = defaultSQLitePath
	}
	return out, nil
}

func mapSchedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	s := cfg.Scheduler
	tick, err := config.ParseDurationField("scheduler.tick", s.Tick)
	if err != nil {
		return scheduler.Config{}, err
	}
	timeout, err := config.ParseDurationField("scheduler.delivery_timeout", s.DeliveryTimeout)
	if err != nil {
		return scheduler.Config{}, err
	}
	policy, ok := scheduler.ParseFailurePolicy(s.OnDeliveryFailure)
	if !ok {
		return scheduler.Config{}, errInvalid("scheduler.on_delivery_failure", s.OnDeliveryFailure)
	}
	loc, err := reminder.LoadZone(s.Timezone)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		Tick:              tick,
		BatchSize:         s.BatchSize,
		Concurrency:       s.Concurrency,
		DeliveryTimeout:   timeout,
		OnDeliveryFailure: policy,
		RetryMax:          s.RetryMax,
		PruneExpired:      config.BoolOr(s.PruneExpired, true),
		RunOnStart:        config.BoolOr(s.RunOnStart, true),
		Location:          loc,
	}, nil
}

func mapDebugConfig(cfg *config.Config) (debug.Config, error) {
	d := cfg.Debug
	read, err := config.ParseDurationOrDefault("debug.read_timeout", d.ReadTimeout, 10*time.Second)
	if err != nil {
		return debug.Config{}, err
	}
	idle, err := config.ParseDurationOrDefault("debug.idle_timeout", d.IdleTimeout, 60*time.Second)
	if err != nil {
		return debug.Config{}, err
	}
	return debug.Config{
		Enabled:       d.Enabled,
		Addr:          strings.TrimSpace(d.Addr),
		Token:         strings.TrimSpace(d.Token),
		AllowInsecure: d.AllowInsecure,
		ReadTimeout:   read,
		IdleTimeout:   idle,
	}, nil
}

func errInvalid(path, value string) error {
	return fmt.Errorf("%s: invalid value %q", path, value)
}
