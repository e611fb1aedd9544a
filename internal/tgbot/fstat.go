package tgbot

import (
	"context"
	"html"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/Geergon/fedstat-userbot/internal/config"
	"github.com/Geergon/fedstat-userbot/internal/fanout"
	"github.com/Geergon/fedstat-userbot/internal/feds"
)

// fedStat asks every fed bot about one user at once and relays any ban
// list files after the report.
func (r *Router) fedStat(ctx context.Context, cmd Command, p *progress) error {
	subj, err := r.lookupTarget(ctx, cmd)
	if err != nil {
		return err
	}
	p.step(ctx, "❯❯")

	req := fanout.NewRequest(feds.KindFedStat, subj.ID, feds.Command("fedstat", subj.ID, ""))
	report, err := r.Aggregator.Broadcast(ctx, req, r.Config, feds.FedStatScript(r.Config.Timeout("fstat")), feds.ParseFedStat)
	if err != nil {
		return errors.Wrap(err, "fedstat")
	}
	if err := p.set(ctx, fedStatHTML(subj, report)); err != nil {
		return err
	}

	if len(report.Artifacts) == 0 || !r.Config.Flag(config.RelayFiles) {
		return nil
	}
	if err := r.Aggregator.Relay(ctx, report, cmd.Chat); err != nil {
		r.log.Warn("Relay ban list files", zap.String("request", req.ID), zap.Error(err))
	}
	return nil
}

func (r *Router) whatis(ctx context.Context, cmd Command, p *progress) error {
	fields := cmd.Fields()
	if len(fields) == 0 {
		return refusal("Please provide a codename. Example: <code>.whatis ruby</code>")
	}
	codename := fields[0]

	bot, err := r.Chat.ResolveUser(ctx, r.Config.LookupBot())
	if err != nil {
		return errors.Wrap(err, "lookup bot")
	}
	p.step(ctx, "❯❯")

	req := fanout.NewRequest(feds.KindLookup, 0, "/whatis "+codename)
	res, err := r.Aggregator.Query(ctx, req, fanout.PeerEndpoint{ID: bot.ID, Name: bot.Name}, feds.LookupScript(r.Config.Timeout("lookup")))
	if err != nil {
		return err
	}

	line := feds.ParseLookup(res)
	if line.Verdict != fanout.VerdictAnswered {
		return p.set(ctx, lineHTML(line))
	}
	return p.set(ctx, "<b>Xiaomi Bot's response:</b>\n\n<blockquote>"+html.EscapeString(line.Detail)+"</blockquote>")
}
