package debug

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindbot/pkg/logx"
)

func newTestService(t *testing.T, healthy bool) *Service {
	t.Helper()
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "remindbot_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Add(3)
	return New(Config{}, logx.Nop(),
		WithGatherer(reg),
		WithHealth(func() Health {
			return Health{OK: healthy, Details: map[string]any{"store": "memory"}}
		}),
	)
}

func get(h http.Handler, target, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := get(newTestService(t, true).Handler(""), "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var h Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.True(t, h.OK)
	assert.Equal(t, "memory", h.Details["store"])

	rec = get(newTestService(t, false).Handler(""), "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	rec := get(newTestService(t, true).Handler(""), "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "remindbot_test_total 3")
}

func TestPprofMounted(t *testing.T) {
	t.Parallel()
	rec := get(newTestService(t, true).Handler(""), "/debug/pprof/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutine")
}

func TestTokenAuth(t *testing.T) {
	t.Parallel()
	h := newTestService(t, true).Handler("s3cret")

	tests := []struct {
		name   string
		target string
		auth   string
		want   int
	}{
		{"no credentials", "/healthz", "", http.StatusUnauthorized},
		{"wrong bearer", "/healthz", "Bearer nope", http.StatusUnauthorized},
		{"bearer", "/healthz", "Bearer s3cret", http.StatusOK},
		{"query token", "/metrics?token=s3cret", "", http.StatusOK},
		{"wrong query token wins over header", "/healthz?token=x", "Bearer s3cret", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := get(h, tt.target, tt.auth)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	assert.True(t, isLoopbackAddr("127.0.0.1:6060"))
	assert.True(t, isLoopbackAddr("localhost:6060"))
	assert.True(t, isLoopbackAddr("[::1]:6060"))
	assert.False(t, isLoopbackAddr(":6060"))
	assert.False(t, isLoopbackAddr("0.0.0.0:6060"))
	assert.False(t, isLoopbackAddr("bogus"))
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	s := newTestService(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Reconfigure(ctx, Config{Enabled: true, Addr: "127.0.0.1:0"})
	require.Eventually(t, func() bool { return s.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	require.NotNil(t, s.Supervisor())

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer stopCancel()
	s.Reconfigure(stopCtx, Config{Enabled: false})
	assert.Nil(t, s.Supervisor())
	assert.Empty(t, s.Addr())
}

func TestRefusesInsecureBind(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true, Addr: "0.0.0.0:0"}, logx.Nop())
	err := s.serveOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure bind")
}
