package tgbot

import (
	"context"

	"github.com/celestix/gotgproto/dispatcher"
	"github.com/celestix/gotgproto/dispatcher/handlers"
	"github.com/celestix/gotgproto/dispatcher/handlers/filters"
	"github.com/celestix/gotgproto/ext"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"github.com/Geergon/fedstat-userbot/internal/telegram"
)

// Register wires reply routing ahead of the command handler, so replies
// reach waiting sessions even while commands run.
func (r *Router) Register(d dispatcher.Dispatcher, updates func(*ext.Context, *ext.Update) error) {
	d.AddHandlerToGroup(handlers.NewAnyUpdate(updates), 0)
	commands := handlers.NewMessage(filters.Message.Text, r.OnMessage)
	commands.UpdateFilters = newMessagesOnly
	d.AddHandlerToGroup(commands, 1)
}

// newMessagesOnly keeps edits of a command message from running it again.
func newMessagesOnly(u *ext.Update) bool {
	switch u.UpdateClass.(type) {
	case *tg.UpdateNewMessage, *tg.UpdateNewChannelMessage:
		return true
	default:
		return false
	}
}

// OnMessage turns a prefixed text message into a Command and runs it in the
// background, so long broadcasts never hold up update dispatching.
func (r *Router) OnMessage(_ *ext.Context, u *ext.Update) error {
	msg := u.EffectiveMessage
	if msg == nil || msg.Message == nil {
		return nil
	}
	name, args, ok := ParseCommand(r.Config.Prefix(), msg.Text)
	if !ok || !r.Known(name) {
		return nil
	}

	cmd := Command{
		Chat:  telegram.PeerID(msg.PeerID),
		MsgID: msg.ID,
		Out:   msg.Out,
		Name:  name,
		Args:  args,
	}
	cmd.ChatTitle = chatTitle(u.Entities, cmd.Chat)
	switch from, hasFrom := msg.GetFromID(); {
	case msg.Out:
		cmd.Sender = r.Self
	case hasFrom:
		cmd.Sender = telegram.PeerID(from)
	default:
		cmd.Sender = cmd.Chat
	}
	if h, ok := msg.ReplyTo.(*tg.MessageReplyHeader); ok {
		cmd.ReplyTo = h.ReplyToMsgID
	}

	go func() {
		ctx, cancel := context.WithTimeout(r.Context, commandTimeout)
		defer cancel()
		if err := r.Handle(ctx, cmd); err != nil {
			r.log.Debug("Command returned error", zap.String("command", cmd.Name), zap.Error(err))
		}
	}()
	return nil
}

func chatTitle(e *tg.Entities, id int64) string {
	if e == nil {
		return ""
	}
	if ch, ok := e.Channels[id]; ok {
		return ch.Title
	}
	if c, ok := e.Chats[id]; ok {
		return c.Title
	}
	return ""
}
