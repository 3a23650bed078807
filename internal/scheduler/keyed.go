// Package scheduler provides a single-timer-per-key scheduler. The
// idle-session reaper uses it to defer session deletion: schedule on zero
// occupancy, cancel when a join arrives inside the grace window.
package scheduler

import (
	"sync"
	"time"
)

// Keyed holds at most one outstanding timer per key.
type Keyed struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewKeyed() *Keyed {
	return &Keyed{timers: make(map[string]*time.Timer)}
}

// Schedule arms fn to run after d, replacing any timer already armed for
// the key. fn runs on its own goroutine and must re-enter the serialized
// transition path itself; the scheduler holds no locks while it runs.
func (k *Keyed) Schedule(key string, d time.Duration, fn func()) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if t, ok := k.timers[key]; ok {
		t.Stop()
	}
	k.timers[key] = time.AfterFunc(d, func() {
		k.mu.Lock()
		delete(k.timers, key)
		k.mu.Unlock()
		fn()
	})
}

// Cancel stops the timer for a key. Returns false when no timer was armed
// or the timer already fired.
func (k *Keyed) Cancel(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	t, ok := k.timers[key]
	if !ok {
		return false
	}
	delete(k.timers, key)
	return t.Stop()
}

// Stop cancels every outstanding timer. Used on process stop.
func (k *Keyed) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for key, t := range k.timers {
		t.Stop()
		delete(k.timers, key)
	}
}
