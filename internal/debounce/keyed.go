// Package debounce provides per-key inactivity timers.
package debounce

import (
	"sync"
	"time"
)

// Timer is the subset of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

// RealTime schedules on the runtime timer heap.
func RealTime(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type entry struct {
	timer Timer
	gen   uint64
}

// Keyed tracks one quiet-period timer per key. Touching an idle key starts it,
// touching an active key re-arms it, and a key left alone for the full window
// expires and is reported through onExpire exactly once.
type Keyed[K comparable] struct {
	mu       sync.Mutex
	window   time.Duration
	after    AfterFunc
	onExpire func(K)
	entries  map[K]*entry
	gen      uint64
}

// NewKeyed returns a debouncer with the given quiet window. A nil after uses RealTime.
func NewKeyed[K comparable](window time.Duration, after AfterFunc, onExpire func(K)) *Keyed[K] {
	if after == nil {
		after = RealTime
	}
	return &Keyed[K]{
		window:   window,
		after:    after,
		onExpire: onExpire,
		entries:  make(map[K]*entry),
	}
}

// Touch arms or re-arms the timer for k and reports whether k was idle.
func (d *Keyed[K]) Touch(k K) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, active := d.entries[k]
	if active {
		e.timer.Stop()
	} else {
		e = &entry{}
		d.entries[k] = e
	}

	d.gen++
	gen := d.gen
	e.gen = gen
	e.timer = d.after(d.window, func() { d.expire(k, gen) })
	return !active
}

// Cancel drops the timer for k without firing onExpire. It reports whether k was active.
func (d *Keyed[K]) Cancel(k K) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.entries[k]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(d.entries, k)
	return true
}

// Stop cancels every timer. Nothing fires afterwards.
func (d *Keyed[K]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, e := range d.entries {
		e.timer.Stop()
		delete(d.entries, k)
	}
}

func (d *Keyed[K]) expire(k K, gen uint64) {
	d.mu.Lock()
	e, ok := d.entries[k]
	// A stale timer lost the race with Touch or Cancel.
	if !ok || e.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.entries, k)
	d.mu.Unlock()

	if d.onExpire != nil {
		d.onExpire(k)
	}
}

// Keys returns a snapshot of the active keys in no particular order.
func (d *Keyed[K]) Keys() []K {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]K, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	return keys
}
