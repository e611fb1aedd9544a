package fanout

import "context"

// Transport is the chat capability set a session needs. Inbound messages
// are not pulled through it; the transport pushes them into a Registry.
type Transport interface {
	// Send posts text to peer and returns the message as stored by the
	// server, which becomes the session cutoff.
	Send(ctx context.Context, peer int64, text string) (Message, error)
	// Click presses an inline button on a message received from a peer.
	Click(ctx context.Context, msg Message, button Button) error
	// Forward copies msg into the chat to.
	Forward(ctx context.Context, msg Message, to int64) error
}

// PeerSource supplies the peers of a broadcast. It is read on every call.
type PeerSource interface {
	Peers(ctx context.Context) ([]PeerEndpoint, error)
}

// StaticPeers is a PeerSource fixed at startup.
type StaticPeers []PeerEndpoint

func (s StaticPeers) Peers(context.Context) ([]PeerEndpoint, error) {
	out := make([]PeerEndpoint, len(s))
	copy(out, s)
	return out, nil
}
