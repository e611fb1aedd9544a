// Package telegram connects the userbot account and adapts it to the chat
// capabilities the rest of the bot works against.
package telegram

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/ext"
	"github.com/go-faster/errors"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Geergon/fedstat-userbot/internal/fanout"
)

// unreachableCodes are RPC errors meaning the peer cannot be talked to.
var unreachableCodes = []string{
	"USER_IS_BLOCKED",
	"YOU_BLOCKED_USER",
	"PEER_ID_INVALID",
	"INPUT_USER_DEACTIVATED",
	"USER_DEACTIVATED",
	"CHAT_WRITE_FORBIDDEN",
	"CHANNEL_PRIVATE",
	"USER_BANNED_IN_CHANNEL",
	"BOT_INVALID",
}

// Adapter implements fanout.Transport and gban.Chats over a logged in
// gotgproto client and feeds inbound messages into a fanout.Registry.
type Adapter struct {
	client   *gotgproto.Client
	registry *fanout.Registry
	limiter  *rate.Limiter
	log      *zap.Logger

	mu     sync.RWMutex
	groups map[int64]tg.InputPeerClass
}

func NewAdapter(client *gotgproto.Client, registry *fanout.Registry, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		client:   client,
		registry: registry,
		limiter:  rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
		log:      log.Named("telegram"),
		groups:   make(map[int64]tg.InputPeerClass),
	}
}

func (a *Adapter) SelfID() int64 {
	return a.client.Self.ID
}

// ext returns a client context bound to ctx, so deadlines reach the RPCs.
func (a *Adapter) ext(ctx context.Context) *ext.Context {
	e := a.client.CreateContext()
	e.Context = ctx
	return e
}

func (a *Adapter) inputPeer(e *ext.Context, id int64) (tg.InputPeerClass, error) {
	p := e.PeerStorage.GetInputPeerById(RawID(id))
	if p == nil {
		return nil, errors.Wrapf(fanout.ErrUnreachable, "peer %d is not known", id)
	}
	if _, empty := p.(*tg.InputPeerEmpty); empty {
		return nil, errors.Wrapf(fanout.ErrUnreachable, "peer %d is not known", id)
	}
	return p, nil
}

func classify(err error, peer int64) error {
	if tgerr.Is(err, unreachableCodes...) {
		return errors.Wrapf(fanout.ErrUnreachable, "peer %d: %v", peer, err)
	}
	return errors.Wrapf(err, "peer %d", peer)
}

// HandleUpdate publishes new and edited incoming messages to the registry.
// It is registered ahead of the command handlers and never stops them.
func (a *Adapter) HandleUpdate(_ *ext.Context, u *ext.Update) error {
	var (
		msg    tg.MessageClass
		edited bool
	)
	switch upd := u.UpdateClass.(type) {
	case *tg.UpdateNewMessage:
		msg = upd.Message
	case *tg.UpdateNewChannelMessage:
		msg = upd.Message
	case *tg.UpdateEditMessage:
		msg, edited = upd.Message, true
	case *tg.UpdateEditChannelMessage:
		msg, edited = upd.Message, true
	default:
		return nil
	}

	m, ok := msg.(*tg.Message)
	if !ok || m.Out {
		return nil
	}
	if n := a.registry.Publish(FromMessage(m, edited)); n > 0 {
		a.log.Debug("Routed reply",
			zap.Int64("peer", PeerID(m.PeerID)),
			zap.Int("msg_id", m.ID),
			zap.Bool("edited", edited),
			zap.Int("sessions", n),
		)
	}
	return nil
}

func (a *Adapter) Send(ctx context.Context, peer int64, text string) (fanout.Message, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return fanout.Message{}, err
	}
	e := a.ext(ctx)
	if _, err := a.inputPeer(e, peer); err != nil {
		return fanout.Message{}, err
	}

	sent, err := e.SendMessage(RawID(peer), &tg.MessagesSendMessageRequest{Message: text})
	if err != nil {
		return fanout.Message{}, classify(err, peer)
	}
	if sent == nil || sent.Message == nil {
		return fanout.Message{}, errors.Errorf("peer %d: empty send result", peer)
	}

	out := FromMessage(sent.Message, false)
	out.Peer = RawID(peer)
	if sent.Date == 0 {
		out.Time = time.Now().Truncate(time.Second)
	}
	return out, nil
}

func (a *Adapter) Click(ctx context.Context, msg fanout.Message, button fanout.Button) error {
	e := a.ext(ctx)
	peer, err := a.inputPeer(e, msg.Peer)
	if err != nil {
		return err
	}
	if _, err := e.Raw.MessagesGetBotCallbackAnswer(ctx, &tg.MessagesGetBotCallbackAnswerRequest{
		Peer:  peer,
		MsgID: msg.ID,
		Data:  button.Data,
	}); err != nil {
		return errors.Wrapf(err, "press %q", button.Text)
	}
	return nil
}

func (a *Adapter) Forward(ctx context.Context, msg fanout.Message, to int64) error {
	_, err := a.forward(ctx, msg.Peer, msg.ID, to)
	return err
}

// forward copies one message and returns its id in the target chat.
func (a *Adapter) forward(ctx context.Context, from int64, id int, to int64) (int, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	e := a.ext(ctx)
	src, err := a.inputPeer(e, from)
	if err != nil {
		return 0, err
	}
	dst, err := a.inputPeer(e, to)
	if err != nil {
		return 0, err
	}
	upd, err := e.Raw.MessagesForwardMessages(ctx, &tg.MessagesForwardMessagesRequest{
		FromPeer: src,
		ToPeer:   dst,
		ID:       []int{id},
		RandomID: []int64{rand.Int64()},
	})
	if err != nil {
		return 0, errors.Wrapf(err, "forward %d from %d", id, from)
	}
	return sentID(upd), nil
}
