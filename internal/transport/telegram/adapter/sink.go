package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"remindbot/internal/reminder"
	kit "remindbot/internal/transport"
)

// goneErrors are Bot API failures meaning the destination will never accept
// messages from this bot again.
var goneErrors = []error{
	tele.ErrChatNotFound,
	tele.ErrKickedFromGroup,
	tele.ErrKickedFromSuperGroup,
	tele.ErrBlockedByUser,
	tele.ErrUserIsDeactivated,
}

// goneDescriptions cover errors telebot does not map to a sentinel.
var goneDescriptions = []string{
	"chat not found",
	"message thread not found",
	"topic_deleted",
	"bot was kicked",
	"bot was blocked",
	"bot is not a member",
	"user is deactivated",
}

// classifySendError maps a Bot API error to the reminder delivery errors.
func classifySendError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", reminder.ErrDeliveryFailed, err)
	}
	for _, g := range goneErrors {
		if errors.Is(err, g) {
			return fmt.Errorf("%w: %w", reminder.ErrChannelGone, err)
		}
	}
	msg := strings.ToLower(err.Error())
	for _, d := range goneDescriptions {
		if strings.Contains(msg, d) {
			return fmt.Errorf("%w: %w", reminder.ErrChannelGone, err)
		}
	}
	return fmt.Errorf("%w: %w", reminder.ErrDeliveryFailed, err)
}

// ResolveChannel looks the chat up (getChat) and caches the answer. A chat
// that cannot be fetched because it is gone yields reminder.ErrChannelGone.
func (a *Adapter) ResolveChannel(ctx context.Context, to kit.ChatTarget) (kit.Channel, error) {
	if err := ctx.Err(); err != nil {
		return kit.Channel{}, fmt.Errorf("%w: %w", reminder.ErrDeliveryFailed, err)
	}
	chat, ok := a.chats.Get(to.ChatID)
	if !ok {
		if err := a.limiter.Wait(ctx); err != nil {
			return kit.Channel{}, fmt.Errorf("%w: %w", reminder.ErrDeliveryFailed, err)
		}
		c, err := a.bot.ChatByID(to.ChatID)
		if err != nil {
			return kit.Channel{}, classifySendError(err)
		}
		chat = c
		a.chats.Add(to.ChatID, chat)
	}
	return kit.Channel{Target: to, Title: chatTitle(chat)}, nil
}

// Send delivers a notification. A gone destination is also evicted from the
// chat cache so a later resolve asks Telegram again.
func (a *Adapter) Send(ctx context.Context, ch kit.Channel, text string, opt *kit.SendOptions) error {
	if opt == nil {
		opt = &kit.SendOptions{ParseMode: tele.ModeHTML, DisablePreview: true}
	}
	_, err := a.SendText(ctx, ch.Target, text, opt)
	if err == nil {
		return nil
	}
	err = classifySendError(err)
	if errors.Is(err, reminder.ErrChannelGone) {
		a.chats.Remove(ch.Target.ChatID)
	}
	return err
}

func chatTitle(c *tele.Chat) string {
	if c == nil {
		return ""
	}
	if c.Title != "" {
		return c.Title
	}
	if c.Username != "" {
		return "@" + c.Username
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
