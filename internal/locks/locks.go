// Package locks serialises work on a single aggregate (an entry, a batch,
// a reconciliation) while letting unrelated aggregates proceed.
package locks

import (
	"context"
	"sort"
	"sync"
)

type Table struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	sem  chan struct{}
	refs int
}

func New() *Table {
	return &Table{slots: make(map[string]*slot)}
}

// Lock blocks until key is free or ctx is done. The returned func releases
// the lock and must be called exactly once.
func (t *Table) Lock(ctx context.Context, key string) (func(), error) {
	s := t.acquire(key)
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		t.release(key)
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.sem
			t.release(key)
		})
	}, nil
}

// LockAll takes several keys in a fixed order so two callers locking the
// same set cannot deadlock.
func (t *Table) LockAll(ctx context.Context, keys ...string) (func(), error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	var unlocks []func()
	unlockAll := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	prev := ""
	for i, k := range sorted {
		if i > 0 && k == prev {
			continue
		}
		prev = k
		unlock, err := t.Lock(ctx, k)
		if err != nil {
			unlockAll()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return unlockAll, nil
}

func (t *Table) acquire(key string) *slot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		t.slots[key] = s
	}
	s.refs++
	return s
}

func (t *Table) release(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.slots[key]
	s.refs--
	if s.refs == 0 {
		delete(t.slots, key)
	}
}

// Len reports how many keys are held or awaited.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}
