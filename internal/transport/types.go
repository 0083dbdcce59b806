package transport

import "context"

// Update is one incoming chat event. Only text messages are consumed.
type Update struct {
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int // telegram forum topic thread id (0 if none)
	FromID       int64
	FromUsername string
	Text         string
	IsGroup      bool
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Adapter is a chat platform connection: updates in, text out.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

// Channel is a resolved delivery destination.
type Channel struct {
	Target ChatTarget
	Title  string
}

// Sink delivers scheduled notifications.
//
// ResolveChannel fails with reminder.ErrChannelGone when the destination no
// longer exists or rejects the bot. Send fails with reminder.ErrChannelGone
// for the same reasons and reminder.ErrDeliveryFailed for anything else.
type Sink interface {
	ResolveChannel(ctx context.Context, to ChatTarget) (Channel, error)
	Send(ctx context.Context, ch Channel, text string, opt *SendOptions) error
}

// BotCommand is a single bot command menu entry.
type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is implemented by adapters that can publish a command
// menu (Telegram setMyCommands).
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
