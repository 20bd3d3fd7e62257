// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// watchdogNode is one pending timeout registration, kept in a list sorted
// by deadline.
type watchdogNode struct {
	deadline time.Time
	onFire   func()
	next     *watchdogNode
	fired    bool
}

// Watchdog supervises a set of deadlines with a single background
// goroutine, rather than one timer per registration: the typical caller is
// a BufferedReader/BufferedWriter pair guarding a single long-lived
// connection, and the spec's own framing ("the typical action is close the
// underlying socket") implies onFire is expected to unblock a concurrently
// blocked raw read/write, not to synchronize with it. The loop goroutine
// is started lazily on the first Enter and exits after idleTimeout with
// nothing pending, restarting lazily on the next Enter.
type Watchdog struct {
	opts watchdogOptions

	mu      sync.Mutex
	head    *watchdogNode
	running bool
	wake    chan struct{}

	group  *errgroup.Group
	cancel context.CancelFunc
}

// NewWatchdog returns a Watchdog with the given options applied over the
// defaults (60s idle exit, a no-op logger).
func NewWatchdog(opts ...WatchdogOption) *Watchdog {
	o := defaultWatchdogOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Watchdog{opts: o, wake: make(chan struct{}, 1)}
}

// Enter registers onFire to run once deadline elapses, returning a cancel
// function that disarms it. Calling the returned function after onFire has
// already run is a harmless no-op.
func (w *Watchdog) Enter(deadline time.Time, onFire func()) (cancelFn func()) {
	node := &watchdogNode{deadline: deadline, onFire: onFire}

	w.mu.Lock()
	w.insertSorted(node)
	w.opts.logger.Debug("watchdog schedule", zap.Time("deadline", deadline))
	if !w.running {
		w.running = true
		ctx, cancel := context.WithCancel(context.Background())
		w.cancel = cancel
		g, gctx := errgroup.WithContext(ctx)
		w.group = g
		g.Go(func() error { return w.loop(gctx) })
	}
	w.mu.Unlock()
	w.signal()

	return func() {
		w.mu.Lock()
		node.fired = true // disarm without mutating the list mid-walk
		w.mu.Unlock()
	}
}

// WithTimeout is a convenience wrapper: it arms w for d and returns a
// cancel func that must be deferred to disarm it once the guarded
// operation completes normally.
func WithTimeout(w *Watchdog, d time.Duration, onTimeout func()) (cancelFn func()) {
	return w.Enter(time.Now().Add(d), onTimeout)
}

func (w *Watchdog) insertSorted(node *watchdogNode) {
	if w.head == nil || node.deadline.Before(w.head.deadline) {
		node.next = w.head
		w.head = node
		return
	}
	cur := w.head
	for cur.next != nil && !node.deadline.Before(cur.next.deadline) {
		cur = cur.next
	}
	node.next = cur.next
	cur.next = node
}

func (w *Watchdog) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// loop is the single background goroutine: it sleeps until the earliest
// pending deadline (or wakes early when a new, earlier deadline is
// registered), fires everything that has elapsed, and exits once the list
// is empty for idleTimeout. golang.org/x/sync/errgroup supervises it so
// that a future second cooperating goroutine (none exists yet) would share
// fate with it.
func (w *Watchdog) loop(ctx context.Context) error {
	idle := time.NewTimer(w.opts.idleTimeout)
	defer idle.Stop()

	for {
		w.mu.Lock()
		next := w.head
		w.mu.Unlock()

		var wait <-chan time.Time
		var timer *time.Timer
		if next != nil {
			d := time.Until(next.deadline)
			if d <= 0 {
				w.fireExpired()
				continue
			}
			timer = time.NewTimer(d)
			wait = timer.C
		} else {
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(w.opts.idleTimeout)
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case <-w.wake:
			if timer != nil {
				timer.Stop()
			}
			continue
		case <-wait:
			w.fireExpired()
		case <-idle.C:
			if timer != nil {
				timer.Stop()
			}
			w.mu.Lock()
			empty := w.head == nil
			if empty {
				w.running = false
			}
			w.mu.Unlock()
			if empty {
				w.opts.logger.Debug("watchdog idle exit")
				return nil
			}
		}
	}
}

// fireExpired pops and runs every node whose deadline has elapsed (or that
// was disarmed), in deadline order.
func (w *Watchdog) fireExpired() {
	now := time.Now()
	for {
		w.mu.Lock()
		node := w.head
		if node == nil || (!node.fired && node.deadline.After(now)) {
			w.mu.Unlock()
			return
		}
		w.head = node.next
		w.mu.Unlock()

		if !node.fired {
			w.opts.logger.Debug("watchdog fire", zap.Time("deadline", node.deadline))
			node.onFire()
		}
	}
}

// Close stops the background goroutine (if running) and waits for it to
// exit. Pending registrations are discarded without firing.
func (w *Watchdog) Close() error {
	w.mu.Lock()
	cancel := w.cancel
	g := w.group
	w.head = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if g != nil {
		return g.Wait()
	}
	return nil
}
