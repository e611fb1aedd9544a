package feds

import (
	"regexp"
	"strings"

	"github.com/Geergon/fedstat-userbot/internal/fanout"
)

const noReason = "No reason provided."

var (
	notBannedPhrases = []string{"no bans", "not banned", "hasn't been banned"}
	reasonLine       = regexp.MustCompile(`(?i)fedban reason:\s*([^\n<]*)`)
)

// ParseFedStat reads a fedstat reply.
func ParseFedStat(r fanout.Result) fanout.Line {
	if line, ok := fanout.StatusLine(r); ok {
		return line
	}
	line := fanout.Line{Peer: r.Peer}
	if r.Artifact != nil {
		line.Verdict = fanout.VerdictFileSent
		return line
	}
	if r.Reply == nil || strings.TrimSpace(r.Reply.Text) == "" {
		line.Verdict = fanout.VerdictUnrecognized
		return line
	}

	text := r.Reply.Text
	lower := strings.ToLower(text)
	for _, phrase := range notBannedPhrases {
		if strings.Contains(lower, phrase) {
			line.Verdict = fanout.VerdictNotBanned
			return line
		}
	}
	if strings.Contains(lower, "is banned in") || strings.Contains(lower, "has been banned in") {
		line.Verdict = fanout.VerdictBanned
		line.Detail = noReason
		if m := reasonLine.FindStringSubmatch(text); m != nil {
			if reason := strings.TrimSpace(m[1]); reason != "" {
				line.Detail = reason
			}
		}
		return line
	}

	line.Verdict = fanout.VerdictUnrecognized
	line.Detail = text
	return line
}

// ParseBan reads fban, unfban and gban-bot outcomes. Any reply that got
// past the script's filter means the bot took the command.
func ParseBan(r fanout.Result) fanout.Line {
	if line, ok := fanout.StatusLine(r); ok {
		return line
	}
	line := fanout.Line{Peer: r.Peer, Verdict: fanout.VerdictApplied}
	if r.Reply != nil {
		line.Detail = r.Reply.Text
	}
	return line
}

// ParseLookup keeps the reply text as the answer.
func ParseLookup(r fanout.Result) fanout.Line {
	if line, ok := fanout.StatusLine(r); ok {
		return line
	}
	line := fanout.Line{Peer: r.Peer, Verdict: fanout.VerdictAnswered}
	if r.Reply == nil || strings.TrimSpace(r.Reply.Text) == "" {
		line.Verdict = fanout.VerdictUnrecognized
		return line
	}
	line.Detail = r.Reply.Text
	return line
}
