package config

// Config is the on-disk configuration (JSON or YAML). Durations are Go
// duration strings ("30s", "10m").
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Debug     DebugConfig     `json:"debug,omitempty"`
}

type TelegramConfig struct {
	// Token may be left empty and supplied via TELEGRAM_TOKEN.
	Token string `json:"token"`
	// GroupLog is the chat id receiving warnings from the log sink.
	GroupLog    string `json:"group_log,omitempty"`
	PollTimeout string `json:"poll_timeout,omitempty"`
	// RatePerSec caps outgoing messages (default 20).
	RatePerSec   float64 `json:"rate_per_sec,omitempty"`
	ChatCacheTTL string  `json:"chat_cache_ttl,omitempty"`
	APIURL       string  `json:"api_url,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig selects the reminder store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/remindbot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"` // sqlite (default) | sqlite3 | postgres | memory
	Path        string `json:"path"`   // file path, or DSN for postgres
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// SchedulerConfig controls the polling loop.
//
// Defaults: tick 30s, batch_size 50, concurrency 4, delivery_timeout 15s,
// on_delivery_failure advance, retry_max 3, prune_expired true,
// run_on_start true, timezone Europe/Berlin.
type SchedulerConfig struct {
	Tick              string `json:"tick,omitempty"`
	BatchSize         int    `json:"batch_size,omitempty"`
	Concurrency       int    `json:"concurrency,omitempty"`
	DeliveryTimeout   string `json:"delivery_timeout,omitempty"`
	OnDeliveryFailure string `json:"on_delivery_failure,omitempty"`
	RetryMax          int    `json:"retry_max,omitempty"`
	// Pointers tell "omitted" (default true) from an explicit false.
	PruneExpired *bool  `json:"prune_expired,omitempty"`
	RunOnStart   *bool  `json:"run_on_start,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
}

// DebugConfig controls the HTTP server exposing /healthz, /metrics and pprof.
//
// Prefer a loopback address. A non-loopback address needs a token or an
// explicit allow_insecure.
type DebugConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`  // default: "127.0.0.1:6060"
	Token         string `json:"token,omitempty"` // bearer token, never logged
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	ReadTimeout   string `json:"read_timeout,omitempty"`
	IdleTimeout   string `json:"idle_timeout,omitempty"`
}

// BoolOr dereferences p, returning def when it is nil.
func BoolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
