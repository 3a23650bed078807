package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduleFires(t *testing.T) {
	k := NewKeyed()
	defer k.Stop()

	fired := make(chan struct{})
	k.Schedule("a", 10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestCancelStopsPendingTimer(t *testing.T) {
	k := NewKeyed()
	defer k.Stop()

	var fired atomic.Bool
	k.Schedule("a", 20*time.Millisecond, func() { fired.Store(true) })
	assert.True(t, k.Cancel("a"))

	time.Sleep(60 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestCancelUnknownKey(t *testing.T) {
	k := NewKeyed()
	defer k.Stop()
	assert.False(t, k.Cancel("missing"))
}

func TestScheduleReplacesExistingTimer(t *testing.T) {
	k := NewKeyed()
	defer k.Stop()

	var first, second atomic.Bool
	k.Schedule("a", 10*time.Millisecond, func() { first.Store(true) })
	k.Schedule("a", 30*time.Millisecond, func() { second.Store(true) })

	time.Sleep(20 * time.Millisecond)
	assert.False(t, first.Load(), "replaced timer must not fire")

	assert.Eventually(t, second.Load, 2*time.Second, 5*time.Millisecond)
}

func TestKeysAreIndependent(t *testing.T) {
	k := NewKeyed()
	defer k.Stop()

	var a, b atomic.Bool
	k.Schedule("a", 10*time.Millisecond, func() { a.Store(true) })
	k.Schedule("b", 10*time.Millisecond, func() { b.Store(true) })
	assert.True(t, k.Cancel("a"))

	assert.Eventually(t, b.Load, 2*time.Second, 5*time.Millisecond)
	assert.False(t, a.Load())
}

func TestCancelAfterFireReturnsFalse(t *testing.T) {
	k := NewKeyed()
	defer k.Stop()

	fired := make(chan struct{})
	k.Schedule("a", time.Millisecond, func() { close(fired) })
	<-fired

	// The callback removes its own entry before running.
	assert.False(t, k.Cancel("a"))
}

func TestStopCancelsEverything(t *testing.T) {
	k := NewKeyed()

	var fired atomic.Int32
	for _, key := range []string{"a", "b", "c"} {
		k.Schedule(key, 20*time.Millisecond, func() { fired.Add(1) })
	}
	k.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, fired.Load())
}
