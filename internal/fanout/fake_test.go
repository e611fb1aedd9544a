package fanout

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
)

// scripted is a message a fake peer pushes some time after a trigger.
type scripted struct {
	after time.Duration
	msg   Message
}

type fakeTransport struct {
	registry *Registry
	base     time.Time

	mu         sync.Mutex
	nextID     int
	sends      []int64
	texts      []string
	clicks     []Button
	forwards   []Message
	replies    map[int64][]scripted
	onClick    map[int64][]scripted
	sendErr    map[int64]error
	forwardErr map[int]error
}

func newFakeTransport(registry *Registry) *fakeTransport {
	return &fakeTransport{
		registry:   registry,
		base:       time.Unix(1_700_000_000, 0),
		nextID:     100,
		replies:    make(map[int64][]scripted),
		onClick:    make(map[int64][]scripted),
		sendErr:    make(map[int64]error),
		forwardErr: make(map[int]error),
	}
}

func (f *fakeTransport) reply(peer int64, after time.Duration, msg Message) {
	f.replies[peer] = append(f.replies[peer], scripted{after: after, msg: msg})
}

func (f *fakeTransport) Send(_ context.Context, peer int64, text string) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sends = append(f.sends, peer)
	f.texts = append(f.texts, text)
	if err := f.sendErr[peer]; err != nil {
		return Message{}, err
	}
	f.nextID++
	sent := Message{ID: f.nextID, Peer: peer, Time: f.base, Text: text}
	f.push(peer, sent, f.replies[peer])
	return sent, nil
}

func (f *fakeTransport) Click(_ context.Context, msg Message, button Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.clicks = append(f.clicks, button)
	f.push(msg.Peer, msg, f.onClick[msg.Peer])
	return nil
}

func (f *fakeTransport) Forward(_ context.Context, msg Message, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.forwards = append(f.forwards, msg)
	return f.forwardErr[msg.ID]
}

// push must be called with f.mu held. Messages without an id or time are
// placed right after trigger.
func (f *fakeTransport) push(peer int64, trigger Message, msgs []scripted) {
	for i, s := range msgs {
		m := s.msg
		m.Peer = peer
		if m.ID == 0 {
			m.ID = trigger.ID + i + 1
		}
		if m.Time.IsZero() {
			m.Time = trigger.Time.Add(time.Second)
		}
		go func(after time.Duration, m Message) {
			time.Sleep(after)
			f.registry.Publish(m)
		}(s.after, m)
	}
}

func (f *fakeTransport) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func testParser(r Result) Line {
	if line, ok := StatusLine(r); ok {
		return line
	}
	line := Line{Peer: r.Peer, Verdict: VerdictUnrecognized}
	switch {
	case r.Artifact != nil:
		line.Verdict = VerdictFileSent
	case r.Status == StatusDelivered, r.Clicked:
		line.Verdict = VerdictApplied
	case r.Reply != nil && strings.Contains(strings.ToLower(r.Reply.Text), "not banned"):
		line.Verdict = VerdictNotBanned
	}
	return line
}

type failingSource struct{}

func (failingSource) Peers(context.Context) ([]PeerEndpoint, error) {
	return nil, errors.New("database is locked")
}
