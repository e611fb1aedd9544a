// Package gban bans or unbans one user in every group the account manages.
package gban

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	"github.com/gotd/td/tgerr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// floodSlack is added on top of the wait Telegram asks for.
const floodSlack = 2 * time.Second

var ErrNoGroups = errors.New("not a member of any group")

type Action int

const (
	Ban Action = iota
	Unban
)

func (a Action) String() string {
	if a == Unban {
		return "unban"
	}
	return "ban"
}

type Chat struct {
	ID    int64
	Title string
}

// Chats is the part of the chat transport a sweep needs.
type Chats interface {
	Groups(ctx context.Context) ([]Chat, error)
	Restrict(ctx context.Context, chat Chat, user int64, action Action) error
}

type Tally struct {
	Total  int
	Done   int
	Failed []Chat
}

type Sweeper struct {
	// Interval paces requests between chats.
	Interval time.Duration
	// FloodWait extracts the wait from a FLOOD_WAIT error.
	FloodWait  func(error) (time.Duration, bool)
	FloodSlack time.Duration
	log        *zap.Logger
}

func NewSweeper(log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		Interval:   100 * time.Millisecond,
		FloodWait:  tgerr.AsFloodWait,
		FloodSlack: floodSlack,
		log:        log.Named("gban"),
	}
}

// Run applies action to user in every group returned by chats. Failures in
// single chats are counted, not returned.
func (s *Sweeper) Run(ctx context.Context, chats Chats, user int64, action Action) (Tally, error) {
	var tally Tally

	groups, err := chats.Groups(ctx)
	if err != nil {
		return tally, errors.Wrap(err, "list groups")
	}
	if len(groups) == 0 {
		return tally, ErrNoGroups
	}

	limit := rate.Inf
	if s.Interval > 0 {
		limit = rate.Every(s.Interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	tally.Total = len(groups)
	for _, chat := range groups {
		if err := limiter.Wait(ctx); err != nil {
			return tally, err
		}
		if err := s.restrict(ctx, chats, chat, user, action); err != nil {
			s.log.Debug("Restrict failed",
				zap.Int64("chat", chat.ID),
				zap.Int64("user", user),
				zap.Stringer("action", action),
				zap.Error(err),
			)
			tally.Failed = append(tally.Failed, chat)
			continue
		}
		tally.Done++
	}

	s.log.Info("Sweep finished",
		zap.Int64("user", user),
		zap.Stringer("action", action),
		zap.Int("total", tally.Total),
		zap.Int("done", tally.Done),
		zap.Int("failed", len(tally.Failed)),
	)
	return tally, nil
}

// restrict retries once after a FLOOD_WAIT; anything else is final.
func (s *Sweeper) restrict(ctx context.Context, chats Chats, chat Chat, user int64, action Action) error {
	wait := &floodBackOff{}
	op := func() error {
		err := chats.Restrict(ctx, chat, user, action)
		if err == nil {
			return nil
		}
		if d, ok := s.FloodWait(err); ok {
			wait.next = d + s.FloodSlack
			s.log.Warn("Flood wait", zap.Int64("chat", chat.ID), zap.Duration("wait", d))
			return err
		}
		return backoff.Permanent(err)
	}
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(wait, 1), ctx))
}

// floodBackOff waits exactly as long as the server asked.
type floodBackOff struct {
	next time.Duration
}

func (f *floodBackOff) NextBackOff() time.Duration { return f.next }

func (f *floodBackOff) Reset() {}
