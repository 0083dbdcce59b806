package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "debug").With(Component("scheduler"), Int64("chat_id", -100))
	log.Info("tick done", Int("fired", 3), Err(errors.New("boom")), Err(nil))

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "info", m["level"])
	assert.Equal(t, "tick done", m["message"])
	assert.Equal(t, "scheduler", m["comp"])
	assert.EqualValues(t, -100, m["chat_id"])
	assert.EqualValues(t, 3, m["fired"])
	assert.Equal(t, "boom", m["err"])
	assert.Contains(t, m["caller"], "logx_test.go:")
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "warn")
	log.Info("hidden")
	assert.Zero(t, buf.Len())
	assert.False(t, log.Enabled(LevelInfo))
	assert.True(t, log.Enabled(LevelError))
}

func TestZeroAndNop(t *testing.T) {
	t.Parallel()
	var zero Logger
	assert.True(t, zero.IsZero())
	zero.Info("no panic")
	assert.False(t, Nop().IsZero())
	assert.False(t, zero.With(String("k", "v")).IsZero())
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, LevelWarn, ParseLevel(" warning ", LevelInfo))
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG", LevelInfo))
	assert.Equal(t, LevelInfo, ParseLevel("loud", LevelInfo))
}

func TestFormatChatLine(t *testing.T) {
	t.Parallel()
	line := `{"level":"warn","time":"x","message":"delivery failed","reminder_id":"r1","comp":"scheduler"}`
	got := formatChatLine([]byte(line + "\n"))
	assert.Equal(t, "[WARN] delivery failed\n- comp=scheduler\n- reminder_id=r1", got)

	assert.Equal(t, "plain", formatChatLine([]byte("  plain \n")))

	long := strings.Repeat("a", maxChatLine+50)
	assert.Len(t, formatChatLine([]byte(long)), maxChatLine)
}

type captureSender struct {
	mu    sync.Mutex
	lines []string
	to    []int64
}

func (c *captureSender) SendLog(_ context.Context, chatID int64, _ int, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, text)
	c.to = append(c.to, chatID)
	return nil
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

func TestServiceChatSink(t *testing.T) {
	svc, log := New(Config{
		Level:    "info",
		Telegram: TelegramConfig{Enabled: true, MinLevel: "warn", RatePerSec: 5},
	})
	t.Cleanup(func() { _ = svc.Close() })

	sender := &captureSender{}
	svc.SetSender(sender)
	log.Warn("before target")
	svc.SetChatTarget(-42, 0)

	log.Info("below min level")
	log.Warn("chat me", String("comp", "test"))

	require.Eventually(t, func() bool { return sender.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Equal(t, int64(-42), sender.to[0])
	assert.True(t, strings.HasPrefix(sender.lines[0], "[WARN] chat me"))
}

func TestChatSinkRateLimit(t *testing.T) {
	var c chatSink
	c.init()
	c.configure(TelegramConfig{RatePerSec: 1})
	c.setSender(&captureSender{})
	c.setTarget(1, 0)

	line := []byte(`{"level":"error","message":"x"}`)
	for i := 0; i < 5; i++ {
		_, err := c.WriteLevel(LevelError, line)
		require.NoError(t, err)
	}
	// Burst of one: a single line queued, the rest dropped.
	assert.Len(t, c.queue, 1)
}
