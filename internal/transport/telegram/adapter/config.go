package adapter

import "time"

type Config struct {
	Token       string
	PollTimeout time.Duration
	// RatePerSec caps outgoing sends; Telegram allows about 30 msg/s per bot.
	RatePerSec   float64
	ChatCacheTTL time.Duration
	// URL overrides the Bot API endpoint (self-hosted API server).
	URL string
}

const (
	defaultPollTimeout  = 10 * time.Second
	defaultRatePerSec   = 20
	defaultChatCacheTTL = 10 * time.Minute
	chatCacheSize       = 1024
)
