package telegram

import (
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"github.com/Geergon/fedstat-userbot/internal/fanout"
)

// channelShift is the offset Bot API style ids put in front of channel ids.
const channelShift = 1_000_000_000_000

// RawID turns a Bot API style chat id (-100xxxx for channels, -xxxx for
// basic groups) into the bare MTProto id. Bare ids pass through.
func RawID(id int64) int64 {
	switch {
	case id < -channelShift:
		return -id - channelShift
	case id < 0:
		return -id
	default:
		return id
	}
}

// PeerID returns the bare id of a peer.
func PeerID(p tg.PeerClass) int64 {
	switch v := p.(type) {
	case *tg.PeerUser:
		return v.UserID
	case *tg.PeerChat:
		return v.ChatID
	case *tg.PeerChannel:
		return v.ChannelID
	default:
		return 0
	}
}

// FromMessage converts a server message into the form sessions read.
func FromMessage(m *tg.Message, edited bool) fanout.Message {
	out := fanout.Message{
		ID:     m.ID,
		Peer:   PeerID(m.PeerID),
		Time:   time.Unix(int64(m.Date), 0),
		Text:   m.Message,
		Edited: edited,
	}

	if markup, ok := m.ReplyMarkup.(*tg.ReplyInlineMarkup); ok {
		for r, row := range markup.Rows {
			for c, b := range row.Buttons {
				btn := fanout.Button{Row: r, Col: c, Text: strings.TrimSpace(b.GetText())}
				if cb, ok := b.(*tg.KeyboardButtonCallback); ok {
					btn.Data = cb.Data
				}
				out.Buttons = append(out.Buttons, btn)
			}
		}
	}

	if media, ok := m.Media.(*tg.MessageMediaDocument); ok {
		if doc, ok := media.Document.(*tg.Document); ok {
			d := &fanout.Document{ID: doc.ID, MimeType: doc.MimeType, Size: doc.Size}
			for _, attr := range doc.Attributes {
				if name, ok := attr.(*tg.DocumentAttributeFilename); ok {
					d.FileName = name.FileName
				}
			}
			out.Document = d
		}
	}
	return out
}

// sentID digs the id of a freshly sent message out of the server answer.
func sentID(u tg.UpdatesClass) int {
	switch v := u.(type) {
	case *tg.UpdateShortSentMessage:
		return v.ID
	case *tg.Updates:
		for _, upd := range v.Updates {
			switch x := upd.(type) {
			case *tg.UpdateNewMessage:
				return x.Message.GetID()
			case *tg.UpdateNewChannelMessage:
				return x.Message.GetID()
			case *tg.UpdateMessageID:
				return x.ID
			}
		}
	case *tg.UpdatesCombined:
		for _, upd := range v.Updates {
			if x, ok := upd.(*tg.UpdateMessageID); ok {
				return x.ID
			}
		}
	}
	return 0
}

// displayName renders a user the way chat clients do.
func displayName(u *tg.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.Username != "" {
		return "@" + u.Username
	}
	if name == "" {
		return "Deleted Account"
	}
	return name
}
