// Package actionlog posts ban actions and their results to the log channel.
package actionlog

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

type Notifier interface {
	Notify(ctx context.Context, html string) error
}

// Sender is the userbot side of a log channel.
type Sender interface {
	SendHTML(ctx context.Context, chat int64, text string) (int, error)
}

// New picks a helper bot when token is set and falls back to posting as the
// userbot. A zero channel disables logging.
func New(channel int64, token string, sender Sender, log *zap.Logger) (Notifier, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if channel == 0 {
		return Nop{}, nil
	}
	if token == "" {
		return &userbot{channel: channel, sender: sender}, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "log bot")
	}
	log.Named("actionlog").Info("Using log bot", zap.String("username", bot.Self.UserName))
	return &botNotifier{channel: channel, api: bot}, nil
}

type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }

type userbot struct {
	channel int64
	sender  Sender
}

func (u *userbot) Notify(ctx context.Context, html string) error {
	_, err := u.sender.SendHTML(ctx, u.channel, html)
	return err
}

// botAPI is the part of tgbotapi.BotAPI the notifier uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type botNotifier struct {
	channel int64
	api     botAPI
}

func (b *botNotifier) Notify(ctx context.Context, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(b.channel, html)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return errors.Wrap(err, "send log")
	}
	return nil
}
