package telegram

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/gotd/td/telegram/query"
	"github.com/gotd/td/tg"

	"github.com/Geergon/fedstat-userbot/internal/gban"
)

// Groups lists the groups where the account may ban members.
func (a *Adapter) Groups(ctx context.Context) ([]gban.Chat, error) {
	e := a.ext(ctx)

	var (
		out   []gban.Chat
		found = make(map[int64]tg.InputPeerClass)
	)
	iter := query.GetDialogs(e.Raw).BatchSize(100).Iter()
	for iter.Next(ctx) {
		elem := iter.Value()
		switch p := elem.Peer.(type) {
		case *tg.InputPeerChannel:
			ch, ok := elem.Entities.Channels()[p.ChannelID]
			if !ok || !ch.Megagroup || !channelCanBan(ch) {
				continue
			}
			found[ch.ID] = p
			out = append(out, gban.Chat{ID: ch.ID, Title: ch.Title})
		case *tg.InputPeerChat:
			c, ok := elem.Entities.Chats()[p.ChatID]
			if !ok || !chatCanBan(c) {
				continue
			}
			found[c.ID] = p
			out = append(out, gban.Chat{ID: c.ID, Title: c.Title})
		}
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate dialogs")
	}

	a.mu.Lock()
	a.groups = found
	a.mu.Unlock()
	return out, nil
}

func channelCanBan(ch *tg.Channel) bool {
	if ch.Creator {
		return true
	}
	rights, ok := ch.GetAdminRights()
	return ok && rights.BanUsers
}

func chatCanBan(c *tg.Chat) bool {
	if c.Creator {
		return true
	}
	rights, ok := c.GetAdminRights()
	return ok && rights.BanUsers
}

// Restrict bans user from chat for good, or lifts the ban. Basic groups
// have no ban list, so unbanning there is a no-op.
func (a *Adapter) Restrict(ctx context.Context, chat gban.Chat, user int64, action gban.Action) error {
	a.mu.RLock()
	peer, ok := a.groups[chat.ID]
	a.mu.RUnlock()
	if !ok {
		return errors.Errorf("chat %d was not listed", chat.ID)
	}

	e := a.ext(ctx)
	target, err := a.inputPeer(e, user)
	if err != nil {
		return err
	}

	switch p := peer.(type) {
	case *tg.InputPeerChannel:
		var rights tg.ChatBannedRights
		if action == gban.Ban {
			rights.ViewMessages = true
		}
		_, err = e.Raw.ChannelsEditBanned(ctx, &tg.ChannelsEditBannedRequest{
			Channel:      &tg.InputChannel{ChannelID: p.ChannelID, AccessHash: p.AccessHash},
			Participant:  target,
			BannedRights: rights,
		})
	case *tg.InputPeerChat:
		if action == gban.Unban {
			return nil
		}
		u, ok := target.(*tg.InputPeerUser)
		if !ok {
			return errors.Errorf("peer %d is not a user", user)
		}
		_, err = e.Raw.MessagesDeleteChatUser(ctx, &tg.MessagesDeleteChatUserRequest{
			ChatID: p.ChatID,
			UserID: &tg.InputUser{UserID: u.UserID, AccessHash: u.AccessHash},
		})
	}
	return err
}
