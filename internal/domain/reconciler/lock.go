package reconciler

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/AdMonitor/internal/shared/types"
)

// keyedLock hands out one mutex per tab. Slots are dropped once nobody
// holds or waits on them so closed tabs do not accumulate.
type keyedLock struct {
	mu    sync.Mutex
	slots map[types.EntityID]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{slots: make(map[types.EntityID]*slot)}
}

// Lock blocks until id is free or ctx is done. The returned func releases it.
func (k *keyedLock) Lock(ctx context.Context, id types.EntityID) (func(), error) {
	k.mu.Lock()
	s, ok := k.slots[id]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[id] = s
	}
	s.refs++
	k.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				k.release(id, s)
			})
		}, nil
	case <-ctx.Done():
		k.release(id, s)
		return nil, ctx.Err()
	}
}

func (k *keyedLock) release(id types.EntityID, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, id)
	}
}

func (k *keyedLock) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}
