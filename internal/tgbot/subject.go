package tgbot

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/go-faster/errors"
)

var (
	errNoTarget = errors.New("reply to a user or give a user id or username")
	errNoProof  = errors.New("reply to a message with the proof")
)

// subject is the user a command acts on.
type subject struct {
	ID   int64
	Name string
}

func (s subject) Mention() string {
	name := s.Name
	if name == "" {
		name = fmt.Sprint(s.ID)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, s.ID, html.EscapeString(name))
}

// target reads the user and the reason of a command. A replied message
// names the user and leaves all arguments as the reason; otherwise the
// first argument is the user.
func (r *Router) target(ctx context.Context, cmd Command, selfDefault bool) (subject, string, error) {
	if cmd.ReplyTo != 0 {
		m, err := r.Chat.RepliedMessage(ctx, cmd.Chat, cmd.ReplyTo)
		if err != nil {
			return subject{}, "", errors.Wrap(err, "read replied message")
		}
		if m.FromID == 0 {
			return subject{}, "", errNoTarget
		}
		return subject{ID: m.FromID, Name: m.FromName}, cmd.Args, nil
	}

	fields := cmd.Fields()
	if len(fields) == 0 {
		if selfDefault {
			return subject{ID: r.Self, Name: "me"}, "", nil
		}
		return subject{}, "", errNoTarget
	}

	subj, err := r.resolve(ctx, fields[0])
	if err != nil {
		return subject{}, "", err
	}
	reason := strings.TrimSpace(strings.TrimPrefix(cmd.Args, fields[0]))
	return subj, reason, nil
}

// lookupTarget reads the user of a query command. An explicit argument
// wins over the replied message, which wins over the account itself.
func (r *Router) lookupTarget(ctx context.Context, cmd Command) (subject, error) {
	if fields := cmd.Fields(); len(fields) > 0 {
		return r.resolve(ctx, fields[0])
	}
	subj, _, err := r.target(ctx, cmd, true)
	return subj, err
}

func (r *Router) resolve(ctx context.Context, token string) (subject, error) {
	u, err := r.Chat.ResolveUser(ctx, token)
	if err != nil {
		return subject{}, errors.Wrap(err, "could not find the specified user")
	}
	return subject{ID: u.ID, Name: u.Name}, nil
}
