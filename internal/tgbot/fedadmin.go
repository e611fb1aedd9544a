package tgbot

import (
	"context"
	"fmt"
	"html"

	"github.com/go-faster/errors"

	"github.com/Geergon/fedstat-userbot/internal/fanout"
	"github.com/Geergon/fedstat-userbot/internal/feds"
)

// fedAdmin promotes or demotes a federation admin through the fed admin
// bot and shows its answer.
func (r *Router) fedAdmin(action string) handler {
	return func(ctx context.Context, cmd Command, p *progress) error {
		subj, _, err := r.target(ctx, cmd, false)
		if err != nil {
			return err
		}
		if subj.ID == r.Self || subj.ID == cmd.Sender {
			return refusal(fmt.Sprintf("You can't %s yourself.", action))
		}

		bot, err := r.Chat.ResolveUser(ctx, r.Config.FedAdminBot())
		if err != nil {
			return errors.Wrap(err, "fed admin bot")
		}
		p.step(ctx, "❯❯")

		req := fanout.NewRequest(feds.KindFedAdmin, subj.ID, feds.Command(action, subj.ID, ""))
		peer := fanout.PeerEndpoint{ID: bot.ID, Name: bot.Name}
		res, err := r.Aggregator.Query(ctx, req, peer, feds.FedAdminScript(r.Config.Timeout("fed_admin")))
		if err != nil {
			return errors.Wrap(err, action)
		}

		line := feds.ParseLookup(res)
		if line.Verdict != fanout.VerdictAnswered {
			return p.set(ctx, lineHTML(line))
		}
		return p.set(ctx, fmt.Sprintf("<b>%s</b> %s\n\n<blockquote>%s</blockquote>",
			html.EscapeString(action), subj.Mention(), html.EscapeString(line.Detail)))
	}
}
