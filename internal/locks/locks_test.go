package locks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_SerialisesSameKey(t *testing.T) {
	tbl := New()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := tbl.Lock(ctx, "entry:1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, tbl.Len())
}

func TestLock_IndependentKeys(t *testing.T) {
	tbl := New()
	ctx := context.Background()
	unlockA, err := tbl.Lock(ctx, "batch:a")
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := tbl.Lock(ctx, "batch:b")
		if err == nil {
			unlockB()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestLock_ContextCancel(t *testing.T) {
	tbl := New()
	unlock, err := tbl.Lock(context.Background(), "recon:1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = tbl.Lock(ctx, "recon:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	assert.Zero(t, tbl.Len())
}

func TestLockAll_DedupesAndOrders(t *testing.T) {
	tbl := New()
	unlock, err := tbl.LockAll(context.Background(), "b", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	unlock()
	assert.Zero(t, tbl.Len())
}
