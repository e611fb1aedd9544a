package fanout

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

type Status int

const (
	// StatusReplied means the peer produced a final reply.
	StatusReplied Status = iota + 1
	// StatusDelivered means the command was sent and no reply was expected.
	StatusDelivered
	StatusTimedOut
	StatusUnreachable
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusReplied:
		return "replied"
	case StatusDelivered:
		return "delivered"
	case StatusTimedOut:
		return "timed out"
	case StatusUnreachable:
		return "unreachable"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Prompt is a reply that needs one button press before the real answer.
type Prompt struct {
	Match func(Message) bool
	// Button is the text of the button to press. Empty means the first one.
	Button string
	// AwaitFile keeps the session open for a document sent after the click.
	AwaitFile bool
}

// Script describes how one kind of peer conversation goes.
type Script struct {
	Timeout time.Duration
	// NoReply resolves the session as soon as the command is sent.
	NoReply bool
	// Match filters replies; replies it rejects are ignored.
	Match       func(Message) bool
	Placeholder *regexp.Regexp
	Prompts     []Prompt
	// File recognises the document that answers a prompt. Defaults to any
	// message carrying a document.
	File func(Message) bool
}

func (s Script) prompt(m Message) (Prompt, bool) {
	for _, p := range s.Prompts {
		if p.Match != nil && p.Match(m) {
			return p, true
		}
	}
	return Prompt{}, false
}

func (s Script) isFile(m Message) bool {
	if s.File != nil {
		return s.File(m)
	}
	return m.Document != nil
}

// Result is the outcome of one peer session.
type Result struct {
	Peer   PeerEndpoint
	Status Status
	// Reply is the final reply, or the prompt when a file was awaited.
	Reply *Message
	// Artifact is the file a prompt produced.
	Artifact *Message
	Clicked  bool
	Err      error
	Elapsed  time.Duration
}

type session struct {
	req       BroadcastRequest
	peer      PeerEndpoint
	script    Script
	transport Transport
	registry  *Registry
	log       *zap.Logger
}

func (s *session) key() SessionKey {
	return SessionKey{Request: s.req.ID, Peer: s.peer.ID}
}

func (s *session) run(parent context.Context) (res Result) {
	start := time.Now()
	res.Peer = s.peer
	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.Err = errors.Errorf("session panic: %v", r)
		}
		res.Elapsed = time.Since(start)
		s.log.Debug("Session resolved",
			zap.String("request", s.req.ID),
			zap.Int64("peer", s.peer.ID),
			zap.Stringer("status", res.Status),
			zap.Duration("elapsed", res.Elapsed),
			zap.Error(res.Err),
		)
	}()

	inbox, err := s.registry.Open(s.key())
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	defer s.registry.Close(s.key())

	ctx, cancel := context.WithTimeout(parent, s.script.Timeout)
	defer cancel()

	sent, err := s.transport.Send(ctx, s.peer.ID, s.req.Command)
	if err != nil {
		return s.sendFailed(ctx, err)
	}
	if s.script.NoReply {
		res.Status = StatusDelivered
		return res
	}

	cutoff := CutoffAt(sent)
	var prompt *Message
	for {
		select {
		case <-ctx.Done():
			return s.expired(ctx, prompt)
		case m := <-inbox:
			if !s.accepts(m, cutoff) {
				continue
			}
			if prompt != nil {
				if !s.script.isFile(m) {
					continue
				}
				res.Status = StatusReplied
				res.Reply = prompt
				res.Artifact = &m
				res.Clicked = true
				return res
			}
			if s.script.Match != nil && !s.script.Match(m) {
				continue
			}
			if s.script.Placeholder != nil && s.script.Placeholder.MatchString(m.Text) {
				continue
			}
			if p, ok := s.script.prompt(m); ok {
				s.click(ctx, m, p)
				if !p.AwaitFile {
					res.Status = StatusReplied
					res.Reply = &m
					res.Clicked = true
					return res
				}
				prompt = &m
				cutoff = CutoffAt(m)
				continue
			}
			res.Status = StatusReplied
			res.Reply = &m
			return res
		}
	}
}

// accepts applies the correlation rule. Edits carry their edit time, so they
// are matched on id to keep edits of older messages out.
func (s *session) accepts(m Message, c Cutoff) bool {
	if m.Peer != s.peer.ID {
		return false
	}
	if m.Edited {
		return m.ID > c.AfterID
	}
	return c.Before(m)
}

func (s *session) click(ctx context.Context, m Message, p Prompt) {
	button, ok := Button{}, len(m.Buttons) > 0
	if ok {
		button = m.Buttons[0]
	}
	if p.Button != "" {
		button, ok = m.HasButton(p.Button)
	}
	if !ok {
		s.log.Warn("Prompt has no matching button",
			zap.Int64("peer", s.peer.ID),
			zap.String("button", p.Button),
		)
		return
	}
	// Bots often answer the callback late; the follow-up still arrives.
	if err := s.transport.Click(ctx, m, button); err != nil {
		s.log.Debug("Click failed",
			zap.Int64("peer", s.peer.ID),
			zap.String("button", strings.TrimSpace(button.Text)),
			zap.Error(err),
		)
	}
}

func (s *session) sendFailed(ctx context.Context, err error) Result {
	res := Result{Peer: s.peer, Err: err}
	switch {
	case errors.Is(err, ErrUnreachable):
		res.Status = StatusUnreachable
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Status = StatusTimedOut
	default:
		res.Status = StatusFailed
	}
	return res
}

func (s *session) expired(ctx context.Context, prompt *Message) Result {
	res := Result{Peer: s.peer, Reply: prompt, Clicked: prompt != nil}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.Status = StatusTimedOut
		return res
	}
	res.Status = StatusFailed
	res.Err = ctx.Err()
	return res
}
