package app

import (
	"context"
	"time"

	"remindbot/internal/commands"
	"remindbot/internal/transport"
	"remindbot/pkg/logx"
)

const commandTimeout = 10 * time.Second

// replySender is the part of the chat adapter the dispatcher needs.
type replySender interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
}

// dispatcher routes incoming /timer commands to the handler and posts the
// reply into the same chat and thread.
type dispatcher struct {
	timer *commands.Handler
	out   replySender
	bot   func() string
	log   logx.Logger
}

func (d *dispatcher) loop(ctx context.Context, in <-chan transport.Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-in:
			if !ok {
				return nil
			}
			if up.Message != nil {
				d.handle(ctx, up.Message)
			}
		}
	}
}

func (d *dispatcher) handle(ctx context.Context, m *transport.Message) {
	args, ok := commands.Match(m.Text, d.bot())
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	log := d.log.With(
		logx.Int64("chat_id", m.ChatID),
		logx.Int("thread_id", m.ThreadID),
		logx.Int64("from_id", m.FromID),
	)
	start := time.Now()
	reply, err := d.timer.Handle(ctx, commands.Request{
		Text:     m.Text,
		ChatID:   m.ChatID,
		ThreadID: m.ThreadID,
		FromID:   m.FromID,
	}, args)
	if err != nil {
		log.Error("command failed", logx.Err(err), logx.Duration("took", time.Since(start)))
	} else {
		log.Debug("command handled", logx.Duration("took", time.Since(start)))
	}
	if reply.Text == "" {
		return
	}
	to := transport.ChatTarget{ChatID: m.ChatID, ThreadID: m.ThreadID}
	if _, err := d.out.SendText(ctx, to, reply.Text, &transport.SendOptions{ParseMode: reply.ParseMode, DisablePreview: true}); err != nil {
		log.Warn("reply failed", logx.Err(err))
	}
}
