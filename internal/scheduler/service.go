package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"remindbot/internal/storage"
	"remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

type Service struct {
	store   storage.Store
	sink    transport.Sink
	log     logx.Logger
	metrics *Metrics
	now     func() time.Time
	// afterTick runs after every completed tick (systemd watchdog).
	afterTick func(TickReport)

	mu    sync.Mutex
	cfg   Config
	c     *cron.Cron
	entry cron.EntryID
	ctx   context.Context

	// tickMu keeps ticks from overlapping, whether cron or Tick started them.
	tickMu sync.Mutex
	// startTick tracks the RunOnStart tick, which cron does not know about.
	startTick sync.WaitGroup
}

type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithMetrics(m *Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithAfterTick(fn func(TickReport)) Option { return func(s *Service) { s.afterTick = fn } }

func New(cfg Config, store storage.Store, sink transport.Sink, log logx.Logger, opts ...Option) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		cfg:   cfg.withDefaults(),
		store: store,
		sink:  sink,
		log:   log,
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s
}

func (s *Service) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Apply swaps the configuration at runtime. A changed tick period re-registers
// the cron entry; everything else takes effect on the next tick.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cfg
	s.cfg = cfg
	if s.c != nil && old.Tick != cfg.Tick {
		s.c.Remove(s.entry)
		if err := s.scheduleLocked(); err != nil {
			s.log.Error("reschedule failed", logx.Err(err))
			return
		}
		s.log.Info("tick period changed", logx.Duration("from", old.Tick), logx.Duration("to", cfg.Tick))
	}
}

// Start begins ticking on the configured period. With RunOnStart the first
// tick runs right away so firings missed during downtime go out promptly.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.c != nil {
		s.mu.Unlock()
		return nil
	}
	cl := cronLogger{log: s.log}
	s.ctx = ctx
	s.c = cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if err := s.scheduleLocked(); err != nil {
		s.c = nil
		s.mu.Unlock()
		return err
	}
	s.c.Start()
	cfg := s.cfg
	s.mu.Unlock()

	s.log.Info("scheduler started",
		logx.Duration("tick", cfg.Tick),
		logx.Int("batch_size", cfg.BatchSize),
		logx.String("on_delivery_failure", string(cfg.OnDeliveryFailure)),
		logx.String("tz", cfg.Location.String()),
	)
	if cfg.RunOnStart {
		s.startTick.Add(1)
		go func() {
			defer s.startTick.Done()
			s.runTick()
		}()
	}
	return nil
}

func (s *Service) scheduleLocked() error {
	id, err := s.c.AddFunc("@every "+s.cfg.Tick.String(), s.runTick)
	if err != nil {
		return err
	}
	s.entry = id
	return nil
}

// Stop stops triggering and waits for a running tick, bounded by ctx.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	idle := make(chan struct{})
	go func() {
		<-c.Stop().Done()
		s.startTick.Wait()
		// A Tick called directly still holds tickMu.
		s.tickMu.Lock()
		s.tickMu.Unlock()
		close(idle)
	}()
	select {
	case <-idle:
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out, tick still running")
	}
}

func (s *Service) runTick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}
	_, err := s.Tick(ctx)
	switch {
	case errors.Is(err, ErrTickInProgress):
		s.log.Debug("tick skipped, previous still running")
	case err != nil && ctx.Err() == nil:
		s.log.Warn("tick failed", logx.Err(err))
	}
}
