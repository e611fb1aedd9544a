package fanout

import (
	"time"

	"github.com/google/uuid"
)

// Kind names a family of broadcasts that must not interleave with itself.
type Kind string

// PeerEndpoint is one external chat or bot that takes part in a broadcast.
type PeerEndpoint struct {
	ID   int64
	Name string
}

// BroadcastRequest is one user-initiated action fanned out to every peer.
type BroadcastRequest struct {
	ID        string
	Kind      Kind
	Subject   int64
	Command   string
	CreatedAt time.Time
}

func NewRequest(kind Kind, subject int64, command string) BroadcastRequest {
	return BroadcastRequest{
		ID:        uuid.NewString(),
		Kind:      kind,
		Subject:   subject,
		Command:   command,
		CreatedAt: time.Now(),
	}
}

type Button struct {
	Row  int
	Col  int
	Text string
	Data []byte
}

type Document struct {
	ID       int64
	FileName string
	MimeType string
	Size     int64
}

// Message is a transport-neutral chat message seen by a session.
type Message struct {
	ID       int
	Peer     int64
	Time     time.Time
	Text     string
	Edited   bool
	Buttons  []Button
	Document *Document
}

func (m Message) HasButton(text string) (Button, bool) {
	for _, b := range m.Buttons {
		if b.Text == text {
			return b, true
		}
	}
	return Button{}, false
}

// Cutoff marks the position of an outbound request in a peer chat.
//
// Chat timestamps only have second resolution, so the message id orders
// messages that share a second.
type Cutoff struct {
	At      time.Time
	AfterID int
}

func CutoffAt(m Message) Cutoff {
	return Cutoff{At: m.Time, AfterID: m.ID}
}

// Before reports whether m was posted strictly after the cutoff.
func (c Cutoff) Before(m Message) bool {
	if m.Time.After(c.At) {
		return true
	}
	return m.Time.Equal(c.At) && m.ID > c.AfterID
}
