package fanout

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var checking = regexp.MustCompile(`(?i)checking`)

func runOne(t *testing.T, f *fakeTransport, peer PeerEndpoint, script Script) Result {
	t.Helper()
	agg := NewAggregator(f, f.registry, nil, nil)
	res, err := agg.Query(context.Background(), NewRequest("test", 42, "/fedstat 42"), peer, script)
	require.NoError(t, err)
	return res
}

func TestCutoffBefore(t *testing.T) {
	t.Parallel()

	at := time.Unix(100, 0)
	c := Cutoff{At: at, AfterID: 10}

	assert.True(t, c.Before(Message{ID: 5, Time: at.Add(time.Second)}))
	assert.True(t, c.Before(Message{ID: 11, Time: at}))
	assert.False(t, c.Before(Message{ID: 10, Time: at}))
	assert.False(t, c.Before(Message{ID: 9, Time: at}))
	assert.False(t, c.Before(Message{ID: 50, Time: at.Add(-time.Second)}))
}

func TestSessionRejectsStaleReplies(t *testing.T) {
	t.Parallel()

	f := newFakeTransport(NewRegistry(nil))
	peer := PeerEndpoint{ID: 100, Name: "Alpha"}
	// Left over from an earlier request: older second, and same second with a lower id.
	f.reply(peer.ID, 0, Message{ID: 7, Time: f.base.Add(-time.Second), Text: "User is banned in 3 feds"})
	f.reply(peer.ID, 5*time.Millisecond, Message{ID: 8, Time: f.base, Text: "User is banned in 2 feds"})
	f.reply(peer.ID, 20*time.Millisecond, Message{Text: "Not banned"})

	res := runOne(t, f, peer, Script{Timeout: time.Second})

	require.Equal(t, StatusReplied, res.Status)
	require.NotNil(t, res.Reply)
	assert.Equal(t, "Not banned", res.Reply.Text)
}

func TestSessionStaleOnlyTimesOut(t *testing.T) {
	t.Parallel()

	f := newFakeTransport(NewRegistry(nil))
	peer := PeerEndpoint{ID: 100, Name: "Alpha"}
	f.reply(peer.ID, 0, Message{ID: 3, Time: f.base.Add(-time.Minute), Text: "Not banned"})
	f.reply(peer.ID, 0, Message{ID: 4, Time: f.base.Add(time.Second), Edited: true, Text: "Not banned (edited)"})

	res := runOne(t, f, peer, Script{Timeout: 80 * time.Millisecond})

	assert.Equal(t, StatusTimedOut, res.Status)
	assert.Nil(t, res.Reply)
	assert.NoError(t, res.Err)
}

func TestSessionIgnoresOtherPeers(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(nil)
	f := newFakeTransport(registry)
	peer := PeerEndpoint{ID: 100, Name: "Alpha"}
	go func() {
		time.Sleep(10 * time.Millisecond)
		registry.Publish(Message{ID: 999, Peer: 200, Time: f.base.Add(time.Hour), Text: "Not banned"})
	}()

	res := runOne(t, f, peer, Script{Timeout: 60 * time.Millisecond})

	assert.Equal(t, StatusTimedOut, res.Status)
}

func TestSessionWaitsPastPlaceholder(t *testing.T) {
	t.Parallel()

	f := newFakeTransport(NewRegistry(nil))
	peer := PeerEndpoint{ID: 100, Name: "Rose"}
	f.reply(peer.ID, 5*time.Millisecond, Message{Text: "Checking fedbans..."})
	f.reply(peer.ID, 30*time.Millisecond, Message{Text: "User hasn't been banned in any feds"})

	res := runOne(t, f, peer, Script{Timeout: time.Second, Placeholder: checking})

	require.Equal(t, StatusReplied, res.Status)
	assert.Equal(t, "User hasn't been banned in any feds", res.Reply.Text)
}

func TestSessionAcceptsEditedPlaceholder(t *testing.T) {
	t.Parallel()

	f := newFakeTransport(NewRegistry(nil))
	peer := PeerEndpoint{ID: 100, Name: "Rose"}
	f.reply(peer.ID, 5*time.Millisecond, Message{ID: 500, Text: "Checking..."})
	f.reply(peer.ID, 20*time.Millisecond, Message{ID: 500, Edited: true, Time: f.base.Add(3 * time.Second), Text: "No bans found"})

	res := runOne(t, f, peer, Script{Timeout: time.Second, Placeholder: checking})

	require.Equal(t, StatusReplied, res.Status)
	assert.Equal(t, 500, res.Reply.ID)
	assert.Equal(t, "No bans found", res.Reply.Text)
}

func TestSessionPlaceholderOnlyTimesOut(t *testing.T) {
	t.Parallel()

	f := newFakeTransport(NewRegistry(nil))
	peer := PeerEndpoint{ID: 100, Name: "Rose"}
	f.reply(peer.ID, 5*time.Millisecond, Message{Text: "checking"})

	res := runOne(t, f, peer, Script{Timeout: 60 * time.Millisecond, Placeholder: checking})

	assert.Equal(t, StatusTimedOut, res.Status)
	assert.Nil(t, res.Reply)
}

func fileScript(timeout time.Duration) Script {
	return Script{
		Timeout: timeout,
		Prompts: []Prompt{{
			Match: func(m Message) bool {
				_, ok := m.HasButton("Make the fedban file")
				return ok
			},
			Button:    "Make the fedban file",
			AwaitFile: true,
		}},
	}
}

func TestSessionClicksPromptAndAwaitsFile(t *testing.T) {
	t.Parallel()

	f := newFakeTransport(NewRegistry(nil))
	peer := PeerEndpoint{ID: 100, Name: "Rose"}
	f.reply(peer.ID, 5*time.Millisecond, Message{
		Text:    "User is banned in too many feds to list",
		Buttons: []Button{{Text: "Make the fedban file", Data: []byte("fbanfile")}},
	})
	f.onClick[peer.ID] = []scripted{
		{after: 5 * time.Millisecond, msg: Message{Text: "unrelated text"}},
		{after: 15 * time.Millisecond, msg: Message{Text: "List of fedbans", Document: &Document{ID: 1, FileName: "fbanned.csv"}}},
	}

	res := runOne(t, f, peer, fileScript(time.Second))

	require.Equal(t, StatusReplied, res.Status)
	assert.True(t, res.Clicked)
	require.NotNil(t, res.Artifact)
	assert.Equal(t, "fbanned.csv", res.Artifact.Document.FileName)
	assert.Equal(t, "User is banned in too many feds to list", res.Reply.Text)
	require.Len(t, f.clicks, 1)
	assert.Equal(t, []byte("fbanfile"), f.clicks[0].Data)
}

func TestSessionPromptWithoutFileIsFileMissing(t *testing.T) {
	t.Parallel()

	f := newFakeTransport(NewRegistry(nil))
	peer := PeerEndpoint{ID: 100, Name: "Rose"}
	f.reply(peer.ID, 5*time.Millisecond, Message{
		Text:    "Too many bans",
		Buttons: []Button{{Text: "Make the fedban file"}},
	})

	res := runOne(t, f, peer, fileScript(60*time.Millisecond))

	assert.Equal(t, StatusTimedOut, res.Status)
	require.NotNil(t, res.Reply)
	assert.Nil(t, res.Artifact)

	line, ok := StatusLine(res)
	require.True(t, ok)
	assert.Equal(t, VerdictFileMissing, line.Verdict)
}

func TestSessionClickWithoutAwaitResolves(t *testing.T) {
	t.Parallel()

	f := newFakeTransport(NewRegistry(nil))
	peer := PeerEndpoint{ID: -1001, Name: "Fed"}
	f.reply(peer.ID, 5*time.Millisecond, Message{
		Text:    "Would you like to update this reason?",
		Buttons: []Button{{Text: "Cancel"}, {Text: "Update reason"}},
	})
	script := Script{
		Timeout: time.Second,
		Prompts: []Prompt{{
			Match:  func(m Message) bool { return strings.Contains(m.Text, "update this reason") },
			Button: "Update reason",
		}},
	}

	res := runOne(t, f, peer, script)

	require.Equal(t, StatusReplied, res.Status)
	assert.True(t, res.Clicked)
	require.Len(t, f.clicks, 1)
	assert.Equal(t, "Update reason", f.clicks[0].Text)
}

func TestSessionMatchSkipsUnrelatedReplies(t *testing.T) {
	t.Parallel()

	f := newFakeTransport(NewRegistry(nil))
	peer := PeerEndpoint{ID: -1001, Name: "Fed"}
	f.reply(peer.ID, 5*time.Millisecond, Message{Text: "Someone joined the chat"})
	f.reply(peer.ID, 15*time.Millisecond, Message{Text: "New FedBan"})
	script := Script{
		Timeout: time.Second,
		Match:   func(m Message) bool { return strings.Contains(m.Text, "FedBan") },
	}

	res := runOne(t, f, peer, script)

	require.Equal(t, StatusReplied, res.Status)
	assert.Equal(t, "New FedBan", res.Reply.Text)
}

func TestSessionNoReplyDelivers(t *testing.T) {
	t.Parallel()

	f := newFakeTransport(NewRegistry(nil))
	res := runOne(t, f, PeerEndpoint{ID: -1002, Name: "Gban chat"}, Script{Timeout: time.Second, NoReply: true})

	assert.Equal(t, StatusDelivered, res.Status)
	assert.Equal(t, 1, f.sendCount())
}

func TestSessionParentCancelIsFailure(t *testing.T) {
	t.Parallel()

	f := newFakeTransport(NewRegistry(nil))
	agg := NewAggregator(f, f.registry, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	res, err := agg.Query(ctx, NewRequest("test", 1, "/fedstat 1"), PeerEndpoint{ID: 1, Name: "A"}, Script{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestSessionRecoversPanickingScript(t *testing.T) {
	t.Parallel()

	f := newFakeTransport(NewRegistry(nil))
	f.reply(1, 5*time.Millisecond, Message{Text: "New FedBan"})
	script := Script{
		Timeout: time.Second,
		Match:   func(Message) bool { panic("bad matcher") },
	}

	res := runOne(t, f, PeerEndpoint{ID: 1, Name: "Rose"}, script)
	assert.Equal(t, StatusFailed, res.Status)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "bad matcher")
	assert.Zero(t, f.registry.Len())
}
