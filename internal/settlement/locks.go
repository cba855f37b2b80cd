package settlement

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// groupLocks hands out one binary semaphore per group. Entries are dropped
// once nobody holds or waits for them.
type groupLocks struct {
	mu    sync.Mutex
	locks map[string]*groupLock
}

type groupLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newGroupLocks() *groupLocks {
	return &groupLocks{locks: make(map[string]*groupLock)}
}

// acquire blocks until the group's lock is held or ctx is done.
func (l *groupLocks) acquire(ctx context.Context, groupID string) (release func(), err error) {
	l.mu.Lock()
	gl, ok := l.locks[groupID]
	if !ok {
		gl = &groupLock{sem: semaphore.NewWeighted(1)}
		l.locks[groupID] = gl
	}
	gl.refs++
	l.mu.Unlock()

	if err := gl.sem.Acquire(ctx, 1); err != nil {
		l.drop(groupID, gl)
		return nil, err
	}
	return func() {
		gl.sem.Release(1)
		l.drop(groupID, gl)
	}, nil
}

func (l *groupLocks) drop(groupID string, gl *groupLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	gl.refs--
	if gl.refs == 0 {
		delete(l.locks, groupID)
	}
}

// size reports how many groups currently have a lock entry.
func (l *groupLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
