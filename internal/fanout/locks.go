package fanout

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"golang.org/x/sync/semaphore"
)

// Locks holds one exclusive lock per broadcast kind.
type Locks struct {
	mu    sync.Mutex
	kinds map[Kind]*semaphore.Weighted
}

func NewLocks() *Locks {
	return &Locks{kinds: make(map[Kind]*semaphore.Weighted)}
}

// Acquire blocks until kind is free or ctx is done.
func (l *Locks) Acquire(ctx context.Context, kind Kind) (release func(), err error) {
	l.mu.Lock()
	sem, ok := l.kinds[kind]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.kinds[kind] = sem
	}
	l.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrapf(err, "acquire %s lock", kind)
	}
	return func() { sem.Release(1) }, nil
}
