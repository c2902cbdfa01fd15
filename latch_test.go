package raft

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatchLockUnlock(t *testing.T) {
	l := newLatch(func(g *latchGuard, code errorCode) {})

	g, ok := l.Lock()
	require.True(t, ok)
	require.NotNil(t, g)
	g.Unlock()

	g2, ok := l.Lock()
	require.True(t, ok)
	g2.Unlock()
}

func TestLatchUnlockAndDestroy(t *testing.T) {
	l := newLatch(func(g *latchGuard, code errorCode) {})

	g, ok := l.Lock()
	require.True(t, ok)
	g.UnlockAndDestroy()

	_, ok = l.Lock()
	assert.False(t, ok, "locking a destroyed latch must fail")
	assert.True(t, l.destroyedState())
}

func TestLatchJoinBlocksUntilDestroyed(t *testing.T) {
	l := newLatch(func(g *latchGuard, code errorCode) {})

	done := make(chan struct{})
	go func() {
		l.Join()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Join returned before the latch was destroyed")
	default:
	}

	g, ok := l.Lock()
	require.True(t, ok)
	g.UnlockAndDestroy()

	<-done
}

func TestLatchSetErrorPassesGuardWithoutReacquiring(t *testing.T) {
	var gotCode errorCode
	var wg sync.WaitGroup
	wg.Add(1)

	l := newLatch(func(g *latchGuard, code errorCode) {
		// A naive implementation that re-locked l.mu here would deadlock
		// since the caller already holds it.
		gotCode = code
		g.Unlock()
		wg.Done()
	})

	g, ok := l.Lock()
	require.True(t, ok)
	g.SetError(errCodeTimedOut)
	wg.Wait()

	assert.Equal(t, errCodeTimedOut, gotCode)

	// The latch must be usable again afterward.
	g2, ok := l.Lock()
	require.True(t, ok)
	g2.Unlock()
}
