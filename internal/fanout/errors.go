package fanout

import "github.com/go-faster/errors"

var (
	// ErrUnreachable is wrapped by transports when a peer is blocked,
	// unknown or otherwise cannot be messaged.
	ErrUnreachable = errors.New("peer unreachable")
	// ErrSessionExists is returned when a session key is already registered.
	ErrSessionExists = errors.New("session already registered")
)
