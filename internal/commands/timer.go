package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"remindbot/internal/reminder"
	"remindbot/internal/storage"
	"remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

const CommandName = "timer"

// Request is one /timer invocation as seen by the handler.
type Request struct {
	Text     string
	ChatID   int64
	ThreadID int
	FromID   int64
}

// Reply is the answer posted back to the invoking chat.
type Reply struct {
	Text      string
	ParseMode string
}

// Handler implements /timer create|remove|list on top of a Store.
type Handler struct {
	store storage.Store
	loc   *time.Location
	now   func() time.Time
	log   logx.Logger
}

type Option func(*Handler)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(h *Handler) { h.now = now } }

func New(store storage.Store, loc *time.Location, log logx.Logger, opts ...Option) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	h := &Handler{store: store, loc: loc, now: time.Now, log: log}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Menu lists the commands for the platform command menu.
func (h *Handler) Menu() []transport.BotCommand {
	return []transport.BotCommand{{Command: CommandName, Description: "Countdown reminders: create, remove, list"}}
}

// Match reports whether text is a /timer command for this bot.
func Match(text, botUsername string) (string, bool) {
	return matchCommand(text, CommandName, botUsername)
}

// Handle runs one command. User mistakes are answered in the reply with a nil
// error; a non-nil error means the store failed and the reply is generic.
func (h *Handler) Handle(ctx context.Context, req Request, args string) (Reply, error) {
	pos, flags := parseFlags(tokenize(args))
	scope := reminder.Scope{ChatID: req.ChatID, ThreadID: req.ThreadID}
	if v, ok := flags["thread"]; ok {
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || id < 0 {
			return htmlReply(replyBadThread), nil
		}
		scope.ThreadID = id
	}

	sub := ""
	if len(pos) > 0 {
		sub = strings.ToLower(pos[0])
		pos = pos[1:]
	}
	switch sub {
	case "create", "add", "new":
		return h.create(ctx, req, scope, pos)
	case "remove", "rm", "delete":
		return h.remove(ctx, scope, pos)
	case "list", "ls":
		return h.list(ctx, scope)
	default:
		return htmlReply(usage), nil
	}
}

func (h *Handler) create(ctx context.Context, req Request, scope reminder.Scope, args []string) (Reply, error) {
	if len(args) < 2 {
		return htmlReply(usage), nil
	}
	eventAt, err := reminder.ParseEventTime(args[0], h.loc)
	if err != nil {
		return htmlReply(replyBadDate), nil
	}
	interval, err := reminder.ParseInterval(args[1])
	if err != nil {
		return htmlReply(replyBadInterval), nil
	}
	message := strings.TrimSpace(strings.Join(args[2:], " "))

	now := h.now()
	plan, err := reminder.ComputeInitialPlan(eventAt, interval, now)
	switch {
	case errors.Is(err, reminder.ErrPastEvent):
		return htmlReply(replyPastEvent), nil
	case errors.Is(err, reminder.ErrEmptyPlan):
		return htmlReply(replyEmptyPlan), nil
	case err != nil:
		return htmlReply(replyBadInterval), nil
	}

	r := reminder.Reminder{
		Scope:      scope,
		EventAt:    eventAt,
		Interval:   interval,
		NextFireAt: plan.Next,
		Remaining:  plan.Remaining,
		Message:    message,
		CreatedAt:  now,
		CreatedBy:  req.FromID,
	}
	if err := h.store.Insert(ctx, &r); err != nil {
		if errors.Is(err, reminder.ErrDuplicateKey) {
			return htmlReply(fmt.Sprintf(replyDuplicate, h.event(eventAt))), nil
		}
		return htmlReply(replyStoreFailed), fmt.Errorf("insert reminder: %w", err)
	}
	h.log.Info("reminder created",
		logx.String("reminder_id", r.ID),
		logx.Int64("chat_id", scope.ChatID),
		logx.Int("thread_id", scope.ThreadID),
		logx.Int("remaining", r.Remaining),
		logx.Time("next_fire_at", r.NextFireAt),
	)
	return htmlReply(createdText(r, now, h.loc)), nil
}

func (h *Handler) remove(ctx context.Context, scope reminder.Scope, args []string) (Reply, error) {
	if len(args) < 1 {
		return htmlReply(usage), nil
	}
	eventAt, err := reminder.ParseEventTime(args[0], h.loc)
	if err != nil {
		return htmlReply(replyBadDate), nil
	}
	n, err := h.store.DeleteByScopeAndTime(ctx, scope, eventAt)
	if err != nil {
		return htmlReply(replyStoreFailed), fmt.Errorf("delete reminder: %w", err)
	}
	if n == 0 {
		return htmlReply(fmt.Sprintf(replyNotFound, h.event(eventAt))), nil
	}
	h.log.Info("reminder removed", logx.Int64("chat_id", scope.ChatID), logx.Int("thread_id", scope.ThreadID), logx.Time("event_at", eventAt))
	return htmlReply(fmt.Sprintf(replyRemoved, h.event(eventAt))), nil
}

func (h *Handler) list(ctx context.Context, scope reminder.Scope) (Reply, error) {
	list, err := h.store.QueryByScope(ctx, scope)
	if err != nil {
		return htmlReply(replyStoreFailed), fmt.Errorf("list reminders: %w", err)
	}
	return htmlReply(listText(list, h.now(), h.loc)), nil
}

func (h *Handler) event(t time.Time) string {
	return reminder.FormatEvent(t, h.loc)
}

func htmlReply(text string) Reply { return Reply{Text: text, ParseMode: "HTML"} }
