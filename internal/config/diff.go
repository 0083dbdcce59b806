package config

import (
	"strings"

	"remindbot/pkg/logx"
)

// restartSections cannot be applied to a running process.
var restartSections = map[string]bool{"telegram": true, "storage": true, "debug": true}

// SummarizeConfigChange returns the changed section names and safe structured
// attrs for logging. Tokens and DSNs are never included, only whether they
// are set.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 16)

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if ot.Token != nt.Token ||
		trim(ot.GroupLog) != trim(nt.GroupLog) ||
		trim(ot.PollTimeout) != trim(nt.PollTimeout) ||
		ot.RatePerSec != nt.RatePerSec ||
		trim(ot.ChatCacheTTL) != trim(nt.ChatCacheTTL) ||
		trim(ot.APIURL) != trim(nt.APIURL) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_changed", ot.Token != nt.Token),
			logx.Bool("telegram.group_log_set", trim(nt.GroupLog) != ""),
			logx.String("telegram.poll_timeout", trim(nt.PollTimeout)),
			logx.Float64("telegram.rate_per_sec", nt.RatePerSec),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", trim(newCfg.Storage.Driver)),
			logx.Bool("storage.path_changed", oldCfg.Storage.Path != newCfg.Storage.Path),
		)
	}

	osc, nsc := oldCfg.Scheduler, newCfg.Scheduler
	if trim(osc.Tick) != trim(nsc.Tick) ||
		osc.BatchSize != nsc.BatchSize ||
		osc.Concurrency != nsc.Concurrency ||
		trim(osc.DeliveryTimeout) != trim(nsc.DeliveryTimeout) ||
		!strings.EqualFold(trim(osc.OnDeliveryFailure), trim(nsc.OnDeliveryFailure)) ||
		osc.RetryMax != nsc.RetryMax ||
		BoolOr(osc.PruneExpired, true) != BoolOr(nsc.PruneExpired, true) ||
		BoolOr(osc.RunOnStart, true) != BoolOr(nsc.RunOnStart, true) ||
		trim(osc.Timezone) != trim(nsc.Timezone) {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.String("scheduler.tick", trim(nsc.Tick)),
			logx.Int("scheduler.batch_size", nsc.BatchSize),
			logx.Int("scheduler.concurrency", nsc.Concurrency),
			logx.String("scheduler.on_delivery_failure", trim(nsc.OnDeliveryFailure)),
			logx.String("scheduler.timezone", trim(nsc.Timezone)),
		)
	}

	od, nd := oldCfg.Debug, newCfg.Debug
	if od.Enabled != nd.Enabled ||
		trim(od.Addr) != trim(nd.Addr) ||
		od.Token != nd.Token ||
		od.AllowInsecure != nd.AllowInsecure ||
		trim(od.ReadTimeout) != trim(nd.ReadTimeout) ||
		trim(od.IdleTimeout) != trim(nd.IdleTimeout) {
		changed = append(changed, "debug")
		attrs = append(attrs,
			logx.Bool("debug.enabled", nd.Enabled),
			logx.String("debug.addr", trim(nd.Addr)),
			logx.Bool("debug.token_set", trim(nd.Token) != ""),
		)
	}

	return changed, attrs
}

// NeedsRestart reports which of the changed sections only take effect after
// a restart.
func NeedsRestart(changed []string) []string {
	var out []string
	for _, s := range changed {
		if restartSections[s] {
			out = append(out, s)
		}
	}
	return out
}

func trim(s string) string { return strings.TrimSpace(s) }
