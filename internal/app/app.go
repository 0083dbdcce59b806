// Package app wires configuration, storage, the Telegram adapter, the
// reminder scheduler and the /timer command into one process.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"remindbot/internal/commands"
	"remindbot/internal/config"
	"remindbot/internal/observability/debug"
	rtsup "remindbot/internal/runtime/supervisor"
	"remindbot/internal/scheduler"
	"remindbot/internal/storage"
	"remindbot/internal/transport"
	telegram "remindbot/internal/transport/telegram/adapter"
	"remindbot/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *rtsup.Supervisor

	log   logx.Logger
	logs  *logx.Service
	store storage.Store

	adapter *telegram.Adapter
	sched   *scheduler.Service
	timer   *commands.Handler
	debug   *debug.Service
	reg     *prometheus.Registry

	updates  chan transport.Update
	lastTick atomic.Pointer[scheduler.TickReport]
}

func New(cfgPath string) (*App, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	// The chat sink needs the adapter, which needs a logger. Start without
	// it and enable it once the target is known.
	logCfg := mapLoggingConfig(cfg)
	bootCfg := logCfg
	bootCfg.Telegram.Enabled = false
	logSvc, log := logx.New(bootCfg)

	adCfg, err := mapAdapterConfig(cfg)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(adCfg, log.With(logx.Component("telegram")))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	logSvc.SetSender(ad)
	groupLog, _ := config.ParseGroupLog(cfg.Telegram.GroupLog)
	logSvc.SetChatTarget(groupLog, cfg.Logging.Telegram.ThreadID)
	logSvc.Apply(logCfg)

	sc, err := MapStorageConfig(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	store, err := storage.Open(sc, log.With(logx.Component("storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	log.Info("storage opened", logx.String("driver", sc.Driver))

	schedCfg, err := mapSchedulerConfig(cfg)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}
	dbgCfg, err := mapDebugConfig(cfg)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &App{
		cfgm:    cfgm,
		log:     log.With(logx.Component("app")),
		logs:    logSvc,
		store:   store,
		adapter: ad,
		reg:     reg,
		updates: make(chan transport.Update, 256),
	}
	a.sched = scheduler.New(schedCfg, store, ad, log.With(logx.Component("scheduler")),
		scheduler.WithMetrics(scheduler.NewMetrics(reg)),
		scheduler.WithAfterTick(a.afterTick),
	)
	a.timer = commands.New(store, schedCfg.Location, log.With(logx.Component("commands")))
	a.debug = debug.New(dbgCfg, log,
		debug.WithGatherer(reg),
		debug.WithHealth(a.health),
	)
	return a, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.Component("config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return config.Validate(cfg)
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	d := &dispatcher{
		timer: a.timer,
		out:   a.adapter,
		bot:   a.adapter.Username,
		log:   a.log.With(logx.Component("dispatch")),
	}
	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return d.loop(c, a.updates)
	})

	a.sup.Go0("commands.menu", func(c context.Context) {
		mctx, cancel := context.WithTimeout(c, 10*time.Second)
		defer cancel()
		if err := a.adapter.UpdateMenuCommands(mctx, a.timer.Menu()); err != nil {
			a.log.Warn("command menu update failed", logx.Err(err))
		}
	})

	if err := a.sched.Start(a.sup.Context()); err != nil {
		return err
	}
	a.debug.Start(a.sup.Context())

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	sdNotify(a.log, daemon.SdNotifyReady)
	a.log.Info("app started", logx.String("bot", a.adapter.Username()))
	return nil
}

func (a *App) reloadLoop(ctx context.Context, sub <-chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}
			a.applyConfig(ctx, lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

// applyConfig applies the live-reloadable sections: logging, scheduler and
// debug. Telegram and storage changes are only logged.
func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	if restart := config.NeedsRestart(sections); len(restart) > 0 {
		a.log.Warn("config changed in sections that need a restart", logx.String("sections", strings.Join(restart, ",")))
	}

	groupLog, _ := config.ParseGroupLog(newCfg.Telegram.GroupLog)
	a.logs.SetChatTarget(groupLog, newCfg.Logging.Telegram.ThreadID)
	a.logs.Apply(mapLoggingConfig(newCfg))

	if sc, err := mapSchedulerConfig(newCfg); err != nil {
		a.log.Warn("invalid scheduler config; keeping previous", logx.Err(err))
	} else {
		a.sched.Apply(sc)
	}

	if dc, err := mapDebugConfig(newCfg); err != nil {
		a.log.Warn("invalid debug config; keeping previous", logx.Err(err))
	} else {
		a.debug.Reconfigure(ctx, dc)
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) afterTick(rep scheduler.TickReport) {
	a.lastTick.Store(&rep)
	sdNotify(a.log, daemon.SdNotifyWatchdog)
}

func (a *App) health() debug.Health {
	h := debug.Health{OK: true, Details: map[string]any{}}
	if a.sup != nil {
		snap := a.sup.Snapshot()
		h.Details["app"] = snap
		if snap.FirstError != "" || a.sup.Context().Err() != nil {
			h.OK = false
		}
	}
	if sup := a.adapter.Supervisor(); sup != nil {
		h.Details["telegram"] = sup.Snapshot()
	}
	if rep := a.lastTick.Load(); rep != nil {
		h.Details["last_tick"] = map[string]any{
			"at":        rep.Now.Format(time.RFC3339),
			"due":       rep.Due,
			"delivered": rep.Delivered,
			"errors":    rep.Errors,
			"took":      rep.Took.String(),
		}
		// A stalled scheduler misses several ticks in a row.
		if tick := a.sched.Config().Tick; time.Since(rep.Now) > 5*tick {
			h.OK = false
			h.Details["stalled"] = true
		}
	}
	h.Details["timezone"] = a.sched.Config().Location.String()
	return h
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	sdNotify(a.log, daemon.SdNotifyStopping)
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Cancel first so background loops start unwinding immediately.
	a.sup.Cancel()

	a.step(ctx, "scheduler", 5*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	a.step(ctx, "debug", time.Second, func(c context.Context) error { a.debug.Stop(c); return nil })
	a.step(ctx, "adapter", 3*time.Second, a.adapter.Stop)
	a.step(ctx, "supervisor", 2*time.Second, a.sup.Wait)
	a.step(ctx, "storage", time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	_ = a.logs.Close()
	return nil
}

// step runs one shutdown step bounded by max and the caller's deadline so a
// stuck component cannot stall the whole stop.
func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Duration("elapsed", time.Since(start)),
		)
	}
}
