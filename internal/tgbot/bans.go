package tgbot

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/Geergon/fedstat-userbot/internal/config"
	"github.com/Geergon/fedstat-userbot/internal/fanout"
	"github.com/Geergon/fedstat-userbot/internal/feds"
	"github.com/Geergon/fedstat-userbot/internal/gban"
)

// banMode describes one ban command family and its wording.
type banMode struct {
	name     string
	past     string
	fedCmd   string
	gbanCmd  string
	fedWord  string
	fedPast  string
	gbanWord string
	gbanPast string
	lift     bool
	proof    bool
}

var (
	fban   = banMode{name: "fban", past: "Fbanned", fedCmd: "fban"}
	unfban = banMode{name: "unfban", past: "Unfbanned", fedCmd: "unfban", lift: true}

	gbanAll   = banMode{name: "gban", past: "Gbanned"}
	ungbanAll = banMode{name: "ungban", past: "Ungbanned", lift: true}

	aban = banMode{
		name: "aban", past: "AllBanned",
		fedCmd: "fban", gbanCmd: "gban",
		fedWord: "Fban", fedPast: "Fbanned",
		gbanWord: "Gban", gbanPast: "Gbanned",
	}
	unaban = banMode{
		name: "unaban", past: "AllUnbanned",
		fedCmd: "unfban", gbanCmd: "ungban",
		fedWord: "Unfban", fedPast: "Unfbanned",
		gbanWord: "Ungban", gbanPast: "Ungbanned",
		lift: true,
	}
)

func (b banMode) withProof() banMode {
	b.proof = true
	return b
}

func (b banMode) action() gban.Action {
	if b.lift {
		return gban.Unban
	}
	return gban.Ban
}

func (b banMode) fedScript(r *Router, user int64) fanout.Script {
	timeout := r.Config.Timeout("fban")
	if b.lift {
		return feds.UnfbanScript(timeout, user)
	}
	return feds.FbanScript(timeout, user)
}

// prepareBan resolves the subject, refuses protected users and files the
// proof for *p variants.
func (r *Router) prepareBan(ctx context.Context, cmd Command, mode banMode) (subject, string, error) {
	if mode.proof && cmd.ReplyTo == 0 {
		return subject{}, "", errNoProof
	}
	subj, reason, err := r.target(ctx, cmd, false)
	if err != nil {
		return subject{}, "", err
	}

	if !mode.lift {
		prot, err := r.protected(ctx, subj.ID)
		if err != nil {
			return subject{}, "", errors.Wrap(err, "check protected users")
		}
		if prot {
			return subject{}, "", refusal("Cannot " + mode.name + " the owner or sudo users.")
		}
	}

	if mode.proof {
		channel := r.Config.Telegram.LogChannel
		if channel == 0 {
			return subject{}, "", refusal("Set LOG_CHANNEL to keep proofs.")
		}
		id, err := r.Chat.ForwardProof(ctx, cmd.Chat, cmd.ReplyTo, channel)
		if err != nil {
			return subject{}, "", errors.Wrap(err, "forward proof")
		}
		reason = strings.TrimSpace(reason + "\n" + messageLink(channel, id))
	}
	return subj, reason, nil
}

func (r *Router) broadcastFed(ctx context.Context, mode banMode, subj subject, reason string) (fanout.Report, error) {
	req := fanout.NewRequest(feds.KindFed, subj.ID, feds.Command(mode.fedCmd, subj.ID, reason))
	report, err := r.Aggregator.Broadcast(ctx, req, r.Store.Feds, mode.fedScript(r, subj.ID), feds.ParseBan)
	if err != nil {
		return report, errors.Wrap(err, mode.fedCmd)
	}
	return report, nil
}

// finish shows the outcome and copies it to the log channel.
func (r *Router) finish(ctx context.Context, cmd Command, p *progress, text string) error {
	if !r.isOwner(cmd.Sender) {
		text += byLine(cmd.Sender)
	}
	if r.Config.Flag(config.LogActions) {
		if err := r.Notifier.Notify(ctx, text); err != nil {
			r.log.Warn("Action log failed", zap.Error(err))
		}
	}
	return p.set(ctx, text)
}

func (r *Router) fedBan(mode banMode) handler {
	return func(ctx context.Context, cmd Command, p *progress) error {
		subj, reason, err := r.prepareBan(ctx, cmd, mode)
		if err != nil {
			return err
		}
		p.step(ctx, "❯❯")

		report, err := r.broadcastFed(ctx, mode, subj, reason)
		if err != nil {
			return err
		}
		if report.NotConfigured {
			return refusal("No feds are configured. Add one with <code>.addf</code>.")
		}
		text := banHeader(mode.past, subj, reason, cmd.ChatTitle) + fanStatus(mode.past, "feds", report)
		return r.finish(ctx, cmd, p, text)
	}
}

func (r *Router) globalBan(mode banMode) handler {
	return func(ctx context.Context, cmd Command, p *progress) error {
		subj, reason, err := r.prepareBan(ctx, cmd, mode)
		if err != nil {
			return err
		}
		p.step(ctx, "❯❯")

		tally, err := r.sweep(ctx, subj.ID, mode.action())
		if errors.Is(err, gban.ErrNoGroups) {
			return refusal("The account isn't admin in any groups.")
		}
		if err != nil {
			return err
		}
		text := banHeader(mode.past, subj, reason, cmd.ChatTitle) + sweepStatus(mode.past, tally)
		return r.finish(ctx, cmd, p, text)
	}
}

func (r *Router) sweep(ctx context.Context, user int64, action gban.Action) (gban.Tally, error) {
	release, err := r.Aggregator.Locks().Acquire(ctx, feds.KindGban)
	if err != nil {
		return gban.Tally{}, err
	}
	defer release()
	return r.Sweeper.Run(ctx, r.Groups, user, action)
}

// allBan fbans through the fed list and posts the gban command into every
// gban bot chat.
func (r *Router) allBan(mode banMode) handler {
	return func(ctx context.Context, cmd Command, p *progress) error {
		subj, reason, err := r.prepareBan(ctx, cmd, mode)
		if err != nil {
			return err
		}

		fedPeers, err := r.Store.Feds.Peers(ctx)
		if err != nil {
			return err
		}
		if len(fedPeers) == 0 {
			return refusal("No feds are configured. Add one with <code>.addf</code>.")
		}
		botPeers, err := r.Store.GbanChats.Peers(ctx)
		if err != nil {
			return err
		}
		if len(botPeers) == 0 {
			return refusal("No gban bot chats are configured. Add one with <code>.addg</code>.")
		}
		p.step(ctx, "❯❯")

		fed, err := r.broadcastFed(ctx, mode, subj, reason)
		if err != nil {
			return err
		}
		req := fanout.NewRequest(feds.KindGbanBots, subj.ID, feds.Command(mode.gbanCmd, subj.ID, reason))
		bots, err := r.Aggregator.Broadcast(ctx, req, r.Store.GbanChats, feds.GbanBotScript(r.Config.Timeout("gban_bot")), feds.ParseBan)
		if err != nil {
			return errors.Wrap(err, mode.gbanCmd)
		}

		text := banHeader(mode.past, subj, reason, cmd.ChatTitle) + allStatus(mode, fed, bots)
		return r.finish(ctx, cmd, p, text)
	}
}
