package fanout

import (
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

const inboxSize = 16

// SessionKey identifies one live peer session. Keying by request as well as
// peer lets two requests talk to the same peer at the same time.
type SessionKey struct {
	Request string
	Peer    int64
}

// Registry routes inbound messages to the sessions waiting on their peer.
type Registry struct {
	mu    sync.RWMutex
	inbox map[SessionKey]chan Message
	log   *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		inbox: make(map[SessionKey]chan Message),
		log:   log,
	}
}

// Open registers key and returns the channel its messages are delivered on.
func (r *Registry) Open(key SessionKey) (<-chan Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.inbox[key]; ok {
		return nil, errors.Wrapf(ErrSessionExists, "request %s peer %d", key.Request, key.Peer)
	}
	ch := make(chan Message, inboxSize)
	r.inbox[key] = ch
	return ch, nil
}

// Close removes key. The channel is left open; nothing publishes to it after
// Close returns.
func (r *Registry) Close(key SessionKey) {
	r.mu.Lock()
	delete(r.inbox, key)
	r.mu.Unlock()
}

// Publish hands m to every session waiting on m.Peer and returns how many
// sessions received it. It never blocks.
func (r *Registry) Publish(m Message) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for key, ch := range r.inbox {
		if key.Peer != m.Peer {
			continue
		}
		select {
		case ch <- m:
			delivered++
		default:
			r.log.Warn("Session inbox full, dropping message",
				zap.String("request", key.Request),
				zap.Int64("peer", key.Peer),
				zap.Int("msg_id", m.ID),
			)
		}
	}
	return delivered
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.inbox)
}
