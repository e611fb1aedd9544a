package tgbot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/Geergon/fedstat-userbot/internal/database"
	"github.com/Geergon/fedstat-userbot/internal/telegram"
)

// listTarget reads "<chat_id> [name]", defaulting to the current chat.
func listTarget(cmd Command) (int64, string, error) {
	fields := cmd.Fields()
	if len(fields) == 0 {
		name := cmd.ChatTitle
		if name == "" {
			name = strconv.FormatInt(cmd.Chat, 10)
		}
		return telegram.RawID(cmd.Chat), name, nil
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, "", refusal("Give a numeric chat id or run the command in the chat itself.")
	}
	name := strings.TrimSpace(strings.TrimPrefix(cmd.Args, fields[0]))
	if name == "" {
		name = fields[0]
	}
	return telegram.RawID(id), name, nil
}

func (r *Router) addPeer(list *database.PeerList, label string) handler {
	return func(ctx context.Context, cmd Command, p *progress) error {
		id, name, err := listTarget(cmd)
		if err != nil {
			return err
		}
		created, err := list.Add(ctx, id, name)
		if err != nil {
			return err
		}
		verb := "Added"
		if !created {
			verb = "Updated"
		}
		return p.set(ctx, fmt.Sprintf("%s <b>%s</b> (<code>%d</code>) in the %s.", verb, html.EscapeString(name), id, label))
	}
}

func (r *Router) delPeer(list *database.PeerList, label string) handler {
	return func(ctx context.Context, cmd Command, p *progress) error {
		id, _, err := listTarget(cmd)
		if err != nil {
			return err
		}
		if err := list.Remove(ctx, id); err != nil {
			if errors.Is(err, database.ErrPeerNotFound) {
				return refusal(fmt.Sprintf("<code>%d</code> is not in the %s.", id, label))
			}
			return err
		}
		return p.set(ctx, fmt.Sprintf("Removed <code>%d</code> from the %s.", id, label))
	}
}

func (r *Router) listPeers(list *database.PeerList, title string) handler {
	return func(ctx context.Context, _ Command, p *progress) error {
		peers, err := list.Peers(ctx)
		if err != nil {
			return err
		}
		if len(peers) == 0 {
			return p.set(ctx, fmt.Sprintf("<b>%s</b>: none configured.", title))
		}
		var b strings.Builder
		fmt.Fprintf(&b, "<b>%s</b> (%d):", title, len(peers))
		for _, peer := range peers {
			fmt.Fprintf(&b, "\n• %s <code>%d</code>", html.EscapeString(peer.Name), peer.ID)
		}
		return p.set(ctx, b.String())
	}
}

func (r *Router) addSudo(ctx context.Context, cmd Command, p *progress) error {
	subj, _, err := r.target(ctx, cmd, false)
	if err != nil {
		return err
	}
	if err := database.AddSudo(ctx, r.Store, subj.ID, subj.Name); err != nil {
		return err
	}
	return p.set(ctx, subj.Mention()+" is now a sudo user.")
}

func (r *Router) delSudo(ctx context.Context, cmd Command, p *progress) error {
	subj, _, err := r.target(ctx, cmd, false)
	if err != nil {
		return err
	}
	if err := database.RemoveSudo(ctx, r.Store, subj.ID); err != nil {
		if errors.Is(err, database.ErrPeerNotFound) {
			return refusal(subj.Mention() + " is not a sudo user.")
		}
		return err
	}
	return p.set(ctx, subj.Mention()+" is no longer a sudo user.")
}

func (r *Router) listSudo(ctx context.Context, _ Command, p *progress) error {
	users, err := database.ListSudo(ctx, r.Store)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return p.set(ctx, "<b>Sudo users</b>: none.")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Sudo users</b> (%d):", len(users))
	for _, u := range users {
		fmt.Fprintf(&b, "\n• %s", subject{ID: u.UserID, Name: u.Username}.Mention())
	}
	return p.set(ctx, b.String())
}
