package tgbot

import (
	"fmt"
	"html"
	"strings"

	"github.com/go-faster/errors"

	"github.com/Geergon/fedstat-userbot/internal/fanout"
	"github.com/Geergon/fedstat-userbot/internal/gban"
	"github.com/Geergon/fedstat-userbot/internal/telegram"
)

// refusal is a command outcome shown as is, without the error framing.
type refusal string

func (r refusal) Error() string { return string(r) }

func errorText(err error) string {
	var ref refusal
	if errors.As(err, &ref) {
		return string(ref)
	}
	return "<b>Error:</b> <code>" + html.EscapeString(err.Error()) + "</code>"
}

func lineHTML(l fanout.Line) string {
	head := "<b>• " + html.EscapeString(l.Peer.Name) + ":</b> "
	switch l.Verdict {
	case fanout.VerdictNotBanned, fanout.VerdictApplied, fanout.VerdictFileSent:
		return head + l.Verdict.String()
	case fanout.VerdictBanned:
		return head + "Banned\n  <b>Reason:</b> " + html.EscapeString(l.Detail)
	case fanout.VerdictAnswered:
		return head + "<blockquote>" + html.EscapeString(l.Detail) + "</blockquote>"
	case fanout.VerdictUnrecognized:
		if l.Detail == "" {
			return head + "<i>Unrecognized response format.</i>"
		}
		return head + "<blockquote>" + html.EscapeString(l.Detail) + "</blockquote>"
	case fanout.VerdictFailed:
		out := head + "<i>An unknown error occurred.</i>"
		if l.Detail != "" {
			out += "\n  <code>" + html.EscapeString(l.Detail) + "</code>"
		}
		return out
	default:
		return head + "<i>" + l.Verdict.String() + ".</i>"
	}
}

func fedStatHTML(s subject, report fanout.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Federation Status for:</b> %s\n<b>ID:</b> <code>%d</code>\n\n", s.Mention(), s.ID)
	if report.NotConfigured {
		b.WriteString("<i>No fed bots configured.</i>")
		return b.String()
	}
	for i, l := range report.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(lineHTML(l))
	}
	return b.String()
}

func banHeader(past string, s subject, reason, where string) string {
	if reason == "" {
		reason = "Not specified"
	}
	if where == "" {
		where = "PM"
	}
	return fmt.Sprintf("❯❯❯ <b>%s</b> %s\n<b>ID</b>: %d\n<b>Reason</b>: %s\n<b>Initiated in</b>: %s",
		past, s.Mention(), s.ID, html.EscapeString(reason), html.EscapeString(where))
}

func peerNames(lines []fanout.Line) string {
	names := make([]string, 0, len(lines))
	for _, l := range lines {
		names = append(names, html.EscapeString(l.Peer.Name))
	}
	return strings.Join(names, ", ")
}

// fanStatus summarises a broadcast as "Fbanned in N feds" or lists the
// peers it failed in.
func fanStatus(past, noun string, report fanout.Report) string {
	failed := report.Failed()
	if len(failed) == 0 {
		return fmt.Sprintf("\n<b>Status</b>: %s in <b>%d</b> %s.", past, report.Total(), noun)
	}
	return fmt.Sprintf("\n<b>Failed</b> in: %d/%d %s: %s.", len(failed), report.Total(), noun, peerNames(failed))
}

func sweepStatus(past string, t gban.Tally) string {
	if len(t.Failed) > 0 {
		return fmt.Sprintf("\n<b>Failed</b> in: %d/%d groups.", len(t.Failed), t.Total)
	}
	return fmt.Sprintf("\n<b>Status</b>: %s in <b>%d</b> groups.", past, t.Total)
}

// allStatus joins the fed and gban-bot outcomes of an all-ban.
func allStatus(mode banMode, fed, bots fanout.Report) string {
	var ok, bad []string
	if f := fed.Failed(); len(f) > 0 {
		bad = append(bad, fmt.Sprintf("%s failed in %d/%d feds", mode.fedWord, len(f), fed.Total()))
	} else {
		ok = append(ok, fmt.Sprintf("%s in <b>%d</b> feds", mode.fedPast, fed.Total()))
	}
	if f := bots.Failed(); len(f) > 0 {
		bad = append(bad, fmt.Sprintf("%s failed in %d/%d bots", mode.gbanWord, len(f), bots.Total()))
	} else {
		ok = append(ok, fmt.Sprintf("%s in <b>%d</b> chats", mode.gbanPast, bots.Total()))
	}

	var b strings.Builder
	if len(bad) > 0 {
		b.WriteString("\n<b>Failed</b>: " + strings.Join(bad, " and ") + ".")
	}
	if len(ok) > 0 {
		header := "Status"
		if len(bad) > 0 {
			header = "Success"
		}
		b.WriteString("\n<b>" + header + "</b>: " + strings.Join(ok, " and ") + ".")
	}
	return b.String()
}

func byLine(user int64) string {
	return fmt.Sprintf("\n\n<b>By</b>: %s", subject{ID: user}.Mention())
}

// messageLink points at a message in a private channel or supergroup.
func messageLink(chat int64, id int) string {
	return fmt.Sprintf("https://t.me/c/%d/%d", telegram.RawID(chat), id)
}

func boolToEmoji(b bool) string {
	if b {
		return "✅"
	}
	return "❌"
}
