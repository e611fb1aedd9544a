package fanout

import (
	"fmt"
	"strings"
	"time"
)

type Verdict int

const (
	VerdictNotBanned Verdict = iota + 1
	VerdictBanned
	VerdictFileSent
	VerdictFileMissing
	VerdictApplied
	VerdictAnswered
	VerdictUnrecognized
	VerdictTimeout
	VerdictUnreachable
	VerdictFailed
)

func (v Verdict) String() string {
	switch v {
	case VerdictNotBanned:
		return "Not Banned"
	case VerdictBanned:
		return "Banned"
	case VerdictFileSent:
		return "Bot sent a file with the full ban list"
	case VerdictFileMissing:
		return "Bot was supposed to send a file, but it wasn't received (timeout)"
	case VerdictApplied:
		return "Done"
	case VerdictAnswered:
		return "Answered"
	case VerdictUnrecognized:
		return "Unrecognized response format"
	case VerdictTimeout:
		return "No response (timeout)"
	case VerdictUnreachable:
		return "Bot blocked or unreachable"
	case VerdictFailed:
		return "An unknown error occurred"
	default:
		return "Unknown"
	}
}

// Ok reports whether the peer did what was asked of it.
func (v Verdict) Ok() bool {
	switch v {
	case VerdictNotBanned, VerdictBanned, VerdictFileSent, VerdictApplied, VerdictAnswered:
		return true
	}
	return false
}

// Line is the rendered outcome of one peer.
type Line struct {
	Peer    PeerEndpoint
	Verdict Verdict
	// Detail carries parsed extras such as a ban reason or the raw reply.
	Detail string
}

func (l Line) String() string {
	if l.Detail != "" && (l.Verdict == VerdictBanned || l.Verdict == VerdictAnswered) {
		return fmt.Sprintf("• %s: %s (%s)", l.Peer.Name, l.Verdict, l.Detail)
	}
	return fmt.Sprintf("• %s: %s", l.Peer.Name, l.Verdict)
}

// Parser turns a session result into a report line.
type Parser func(Result) Line

// Transport-level outcomes are the same for every command; parsers only
// need to look at replies.
func StatusLine(r Result) (Line, bool) {
	line := Line{Peer: r.Peer}
	switch r.Status {
	case StatusTimedOut:
		if r.Reply != nil && r.Artifact == nil && r.Clicked {
			line.Verdict = VerdictFileMissing
		} else {
			line.Verdict = VerdictTimeout
		}
	case StatusUnreachable:
		line.Verdict = VerdictUnreachable
	case StatusFailed:
		line.Verdict = VerdictFailed
		if r.Err != nil {
			line.Detail = r.Err.Error()
		}
	default:
		return line, false
	}
	return line, true
}

// Report is the combined result of one broadcast.
type Report struct {
	Request BroadcastRequest
	Lines   []Line
	// Artifacts are files to relay after the summary, in peer order.
	Artifacts []Message
	// NotConfigured is set when the peer source was empty.
	NotConfigured bool
	Elapsed       time.Duration
}

func (r Report) Total() int {
	return len(r.Lines)
}

func (r Report) Failed() []Line {
	var out []Line
	for _, l := range r.Lines {
		if !l.Verdict.Ok() {
			out = append(out, l)
		}
	}
	return out
}

func (r Report) String() string {
	if r.NotConfigured {
		return "No peers configured."
	}
	var b strings.Builder
	for i, l := range r.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.String())
	}
	return b.String()
}
