package telegram

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/celestix/gotgproto/ext"
	"github.com/go-faster/errors"
	"github.com/gotd/td/telegram/message/html"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
)

var ErrUserNotFound = errors.New("user not found")

// User is a resolved account.
type User struct {
	ID   int64
	Name string
}

// Replied describes the message a command replied to.
type Replied struct {
	ID       int
	Chat     int64
	FromID   int64
	FromName string
}

// mentionResolver turns tg://user links into mentions a user account may
// send, which need the access hash from peer storage. Users the storage
// does not know fail to resolve, and the link is dropped in favor of the
// plain name.
func mentionResolver(lookup func(id int64) tg.InputPeerClass) func(int64) (tg.InputUserClass, error) {
	return func(id int64) (tg.InputUserClass, error) {
		switch p := lookup(id).(type) {
		case *tg.InputPeerUser:
			return &tg.InputUser{UserID: p.UserID, AccessHash: p.AccessHash}, nil
		case *tg.InputPeerSelf:
			return &tg.InputUserSelf{}, nil
		default:
			return nil, errors.Wrapf(ErrUserNotFound, "mention %d", id)
		}
	}
}

func mentions(e *ext.Context) func(int64) (tg.InputUserClass, error) {
	return mentionResolver(e.PeerStorage.GetInputPeerById)
}

// SendHTML posts an HTML formatted message and returns its id.
func (a *Adapter) SendHTML(ctx context.Context, chat int64, text string) (int, error) {
	e := a.ext(ctx)
	peer, err := a.inputPeer(e, chat)
	if err != nil {
		return 0, err
	}
	upd, err := e.Sender.To(peer).StyledText(ctx, html.String(mentions(e), text))
	if err != nil {
		return 0, errors.Wrapf(err, "send to %d", chat)
	}
	return sentID(upd), nil
}

// Reply is SendHTML as a reply to message replyTo.
func (a *Adapter) Reply(ctx context.Context, chat int64, replyTo int, text string) (int, error) {
	e := a.ext(ctx)
	peer, err := a.inputPeer(e, chat)
	if err != nil {
		return 0, err
	}
	upd, err := e.Sender.To(peer).Reply(replyTo).StyledText(ctx, html.String(mentions(e), text))
	if err != nil {
		return 0, errors.Wrapf(err, "reply in %d", chat)
	}
	return sentID(upd), nil
}

// Edit replaces the text of message id with HTML text.
func (a *Adapter) Edit(ctx context.Context, chat int64, id int, text string) error {
	e := a.ext(ctx)
	peer, err := a.inputPeer(e, chat)
	if err != nil {
		return err
	}
	if _, err := e.Sender.To(peer).Edit(id).StyledText(ctx, html.String(mentions(e), text)); err != nil {
		if tgerr.Is(err, "MESSAGE_NOT_MODIFIED") {
			return nil
		}
		return errors.Wrapf(err, "edit %d in %d", id, chat)
	}
	return nil
}

// SendFile uploads path as a document.
func (a *Adapter) SendFile(ctx context.Context, chat int64, path, caption string) error {
	e := a.ext(ctx)
	if _, err := a.inputPeer(e, chat); err != nil {
		return err
	}
	f, err := uploader.NewUploader(e.Raw).FromPath(ctx, path)
	if err != nil {
		return errors.Wrap(err, "upload")
	}
	_, err = e.SendMedia(RawID(chat), &tg.MessagesSendMediaRequest{
		Media: &tg.InputMediaUploadedDocument{
			File:     f,
			MimeType: "text/plain",
			Attributes: []tg.DocumentAttributeClass{
				&tg.DocumentAttributeFilename{FileName: filepath.Base(path)},
			},
		},
		Message: caption,
	})
	if err != nil {
		return errors.Wrapf(err, "send file to %d", chat)
	}
	return nil
}

// ForwardProof copies a message into chat to and returns its new id.
func (a *Adapter) ForwardProof(ctx context.Context, from int64, id int, to int64) (int, error) {
	return a.forward(ctx, from, id, to)
}

// ResolveUser looks up a user by numeric id or @username.
func (a *Adapter) ResolveUser(ctx context.Context, token string) (User, error) {
	e := a.ext(ctx)
	token = strings.TrimSpace(token)

	if id, err := strconv.ParseInt(token, 10, 64); err == nil {
		p := e.PeerStorage.GetPeerById(id)
		if p == nil || p.ID == 0 {
			return User{ID: id, Name: token}, nil
		}
		name := token
		if p.Username != "" {
			name = "@" + p.Username
		}
		return User{ID: id, Name: name}, nil
	}

	username := strings.TrimPrefix(token, "@")
	if username == "" {
		return User{}, ErrUserNotFound
	}
	chat, err := e.ResolveUsername(username)
	if err != nil {
		return User{}, errors.Wrapf(ErrUserNotFound, "%s: %v", username, err)
	}
	return User{ID: chat.GetID(), Name: "@" + username}, nil
}

// RepliedMessage fetches message id from chat along with its sender.
func (a *Adapter) RepliedMessage(ctx context.Context, chat int64, id int) (Replied, error) {
	e := a.ext(ctx)
	peer, err := a.inputPeer(e, chat)
	if err != nil {
		return Replied{}, err
	}

	ids := []tg.InputMessageClass{&tg.InputMessageID{ID: id}}
	var res tg.MessagesMessagesClass
	if ch, ok := peer.(*tg.InputPeerChannel); ok {
		res, err = e.Raw.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
			ID:      ids,
		})
	} else {
		res, err = e.Raw.MessagesGetMessages(ctx, ids)
	}
	if err != nil {
		return Replied{}, errors.Wrapf(err, "get message %d", id)
	}

	box, ok := res.(interface {
		GetMessages() []tg.MessageClass
		GetUsers() []tg.UserClass
	})
	if !ok {
		return Replied{}, errors.Errorf("message %d: unexpected %T", id, res)
	}
	for _, mc := range box.GetMessages() {
		m, ok := mc.(*tg.Message)
		if !ok || m.ID != id {
			continue
		}
		out := Replied{ID: m.ID, Chat: RawID(chat)}
		if from, ok := m.GetFromID(); ok {
			out.FromID = PeerID(from)
		} else {
			out.FromID = PeerID(m.PeerID)
		}
		for _, uc := range box.GetUsers() {
			if u, ok := uc.(*tg.User); ok && u.ID == out.FromID {
				out.FromName = displayName(u)
			}
		}
		return out, nil
	}
	return Replied{}, errors.Errorf("message %d not found", id)
}
