package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"remindbot/internal/reminder"
	"remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

var ErrTickInProgress = errors.New("tick already in progress")

// persistTimeout bounds store writes that record an outcome already
// observed by the chat. They run detached from the tick context.
const persistTimeout = 5 * time.Second

// TickReport summarizes one tick.
type TickReport struct {
	Now       time.Time
	Due       int
	Delivered int
	Failed    int
	Retried   int
	Gone      int
	Completed int
	Skipped   int
	Pruned    int64
	Errors    int
	Took      time.Duration
}

type outcome struct {
	result    string
	completed bool
	skipped   int
}

// Tick processes one batch of due reminders. Per-reminder failures are logged
// and counted; only a failing due query aborts the tick.
func (s *Service) Tick(ctx context.Context) (TickReport, error) {
	if !s.tickMu.TryLock() {
		return TickReport{}, ErrTickInProgress
	}
	defer s.tickMu.Unlock()

	cfg := s.Config()
	start := time.Now()
	now := s.now()
	rep := TickReport{Now: now}

	due, err := s.store.QueryDue(ctx, now, cfg.BatchSize)
	if err != nil {
		return rep, fmt.Errorf("query due: %w", err)
	}
	rep.Due = len(due)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for _, r := range due {
		r := r
		g.Go(func() error {
			out := s.fire(gctx, cfg, r, now)
			mu.Lock()
			rep.add(out)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if cfg.PruneExpired {
		n, err := s.store.DeleteExpired(ctx, now)
		if err != nil {
			s.log.Warn("prune expired failed", logx.Err(err))
			rep.Errors++
		} else if n > 0 {
			rep.Pruned = n
			s.metrics.deleted.WithLabelValues(reasonExpired).Add(float64(n))
			s.log.Info("pruned expired reminders", logx.Int64("count", n))
		}
	}

	rep.Took = time.Since(start)
	s.metrics.ticks.Inc()
	s.metrics.tickDuration.Observe(rep.Took.Seconds())
	if rep.Due > 0 || rep.Pruned > 0 {
		s.log.Info("tick done",
			logx.Int("due", rep.Due),
			logx.Int("delivered", rep.Delivered),
			logx.Int("failed", rep.Failed),
			logx.Int("gone", rep.Gone),
			logx.Int("completed", rep.Completed),
			logx.Duration("took", rep.Took),
		)
	}
	if s.afterTick != nil {
		s.afterTick(rep)
	}
	return rep, nil
}

func (rep *TickReport) add(o outcome) {
	switch o.result {
	case resultDelivered:
		rep.Delivered++
	case resultFailed:
		rep.Failed++
	case resultRetry:
		rep.Failed++
		rep.Retried++
	case resultGone:
		rep.Gone++
	case resultError:
		rep.Errors++
	}
	if o.completed {
		rep.Completed++
	}
	rep.Skipped += o.skipped
}

// fire delivers one due reminder and persists what follows from the outcome.
func (s *Service) fire(ctx context.Context, cfg Config, r reminder.Reminder, now time.Time) outcome {
	log := s.log.With(
		logx.String("reminder_id", r.ID),
		logx.Int64("chat_id", r.Scope.ChatID),
		logx.Int("thread_id", r.Scope.ThreadID),
	)

	err := s.deliver(ctx, cfg, r)

	// The outcome is persisted even when shutdown cancels ctx mid-delivery.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	switch {
	case err == nil:
		out := s.advance(pctx, log, r, now)
		if out.result == "" {
			out.result = resultDelivered
		}
		s.metrics.fires.WithLabelValues(out.result).Inc()
		return out

	case errors.Is(err, reminder.ErrChannelGone):
		log.Info("destination gone, deleting reminder", logx.Err(err))
		out := outcome{result: resultGone}
		if _, derr := s.store.DeleteByID(pctx, r.ID); derr != nil {
			log.Error("delete failed", logx.Err(derr))
			out.result = resultError
		} else {
			s.metrics.deleted.WithLabelValues(reasonGone).Inc()
		}
		s.metrics.fires.WithLabelValues(out.result).Inc()
		return out
	}

	if ctx.Err() != nil {
		// Shutdown: leave the record untouched so the firing is retried.
		s.metrics.fires.WithLabelValues(resultError).Inc()
		return outcome{result: resultError}
	}

	log.Warn("delivery failed", logx.Err(err), logx.Int("failures", r.Failures+1))
	if cfg.OnDeliveryFailure == PolicyRetry && r.Failures+1 < cfg.RetryMax {
		st := r.State()
		st.Failures++
		if _, uerr := s.store.Update(pctx, r.ID, st); uerr != nil {
			log.Error("update failed", logx.Err(uerr))
			s.metrics.fires.WithLabelValues(resultError).Inc()
			return outcome{result: resultError}
		}
		s.metrics.fires.WithLabelValues(resultRetry).Inc()
		return outcome{result: resultRetry}
	}

	out := s.advance(pctx, log, r, now)
	if out.result == "" {
		out.result = resultFailed
	}
	s.metrics.fires.WithLabelValues(out.result).Inc()
	return out
}

func (s *Service) deliver(ctx context.Context, cfg Config, r reminder.Reminder) error {
	dctx, cancel := context.WithTimeout(ctx, cfg.DeliveryTimeout)
	defer cancel()

	target := transport.ChatTarget{ChatID: r.Scope.ChatID, ThreadID: r.Scope.ThreadID}
	ch, err := s.sink.ResolveChannel(dctx, target)
	if err != nil {
		return err
	}
	return s.sink.Send(dctx, ch, reminder.FireText(r, cfg.Location), &transport.SendOptions{
		ParseMode:      "HTML",
		DisablePreview: true,
	})
}

// advance moves r past the current firing, deleting it when exhausted.
// It returns a zero result on success. The clock is read again because a slow
// delivery may have carried it past further firings since the tick began.
func (s *Service) advance(ctx context.Context, log logx.Logger, r reminder.Reminder, tickNow time.Time) outcome {
	now := s.now()
	if now.Before(tickNow) {
		now = tickNow
	}
	step := reminder.Advance(r, now)
	if step.Skipped > 0 {
		s.metrics.skipped.Add(float64(step.Skipped))
		log.Info("skipped missed firings", logx.Int("skipped", step.Skipped))
	}
	out := outcome{skipped: step.Skipped}

	if step.Done() {
		if _, err := s.store.DeleteByID(ctx, r.ID); err != nil {
			log.Error("delete failed", logx.Err(err))
			out.result = resultError
			return out
		}
		s.metrics.deleted.WithLabelValues(reasonCompleted).Inc()
		out.completed = true
		log.Debug("countdown finished")
		return out
	}

	n, err := s.store.Update(ctx, r.ID, reminder.State{Remaining: step.Remaining, NextFireAt: step.Next})
	if err != nil {
		log.Error("update failed", logx.Err(err))
		out.result = resultError
		return out
	}
	if n == 0 {
		// Removed by a command while this firing was in flight.
		log.Debug("reminder vanished during tick")
	}
	return out
}
