// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package leftright implements the Left-Right concurrency-control
// pattern: a double-buffered wrapper around a value of any type that
// gives readers wait-free, population-oblivious access while writers
// are serialized against each other and never block a reader.
//
// The technique is described in A. Correia and P. Ramalhete, "Left-Right:
// A Concurrency Control Technique with Wait-Free Population Oblivious
// Reads". Every mutation supplied to Modify is applied twice — once to
// each copy — so LeftRight is best suited to small values where reads
// vastly outnumber writes.
package leftright

import (
	"runtime"
	"sync/atomic"

	"github.com/coretane/lrbus/syncs"
)

// LeftRight wraps two copies of a value of type V, routing readers to
// whichever copy isn't currently being mutated and writers to the other
// one, swapping which copy readers see via a drain protocol that waits
// out any reader that might still be on the side about to be touched.
//
// A LeftRight must not be copied after first use.
type LeftRight[V any] struct {
	left, right V

	// side selects which of left/right is currently reader-visible.
	// false selects left, true selects right.
	side atomic.Bool

	registries [2]ReaderRegistry
	regIdx     atomic.Uint32

	writeMu syncs.Mutex
}

// Option configures a LeftRight at construction time.
type Option[V any] func(*LeftRight[V])

// WithReaderRegistry overrides the ReaderRegistry implementation used
// for both sides. The default is a pair of *Counter.
func WithReaderRegistry[V any](factory func() ReaderRegistry) Option[V] {
	return func(lr *LeftRight[V]) {
		lr.registries[0] = factory()
		lr.registries[1] = factory()
	}
}

func newLeftRight[V any](opts []Option[V]) *LeftRight[V] {
	lr := &LeftRight[V]{}
	for _, opt := range opts {
		opt(lr)
	}
	if lr.registries[0] == nil {
		lr.registries[0] = NewCounter()
	}
	if lr.registries[1] == nil {
		lr.registries[1] = NewCounter()
	}
	return lr
}

// NewSeededByCopy constructs a LeftRight whose two copies are both
// independent copies of seed.
func NewSeededByCopy[V any](seed V, opts ...Option[V]) *LeftRight[V] {
	lr := newLeftRight(opts)
	lr.left = seed
	lr.right = seed
	return lr
}

// NewSeededByMove constructs a LeftRight whose two copies both start
// from seed. Go has no move semantics, so this is identical to
// NewSeededByCopy; it exists for API symmetry with the source algorithm,
// which distinguishes move-seeding from copy-seeding.
func NewSeededByMove[V any](seed V, opts ...Option[V]) *LeftRight[V] {
	return NewSeededByCopy(seed, opts...)
}

// NewInPlace constructs a LeftRight whose two copies are built by
// calling newLeft and newRight independently, so that (unlike seeding)
// neither copy needs to be copy-constructible from the other.
func NewInPlace[V any](newLeft, newRight func() V, opts ...Option[V]) *LeftRight[V] {
	lr := newLeftRight(opts)
	lr.left = newLeft()
	lr.right = newRight()
	return lr
}

// Observe invokes f with a pointer to the current reader-visible copy
// and returns its result. Observe is wait-free if the configured
// ReaderRegistry is wait-free, and never blocks on a concurrent Modify.
//
// If f panics, Observe still departs the reader registry before the
// panic continues to unwind.
func Observe[V, R any](lr *LeftRight[V], f func(*V) R) R {
	idx := lr.regIdx.Load()
	reg := lr.registries[idx]
	tok := reg.Arrive()
	defer reg.Depart(tok)

	if lr.side.Load() {
		return f(&lr.right)
	}
	return f(&lr.left)
}

// Modify applies f to the currently-inactive copy, flips which copy
// readers see, drains any reader still on the previous copy, then
// applies f a second time to the now-safe-to-touch copy and returns
// that second result.
//
// f is invoked twice and MUST perform the exact same mutation both
// times — no randomness, no reliance on which copy it's given, no
// observation of outside state that could differ between the two calls.
// A functor that violates this, or that panics, is undefined behavior:
// the second copy will be left inconsistent with the first.
//
// Modify is serialized against all other Modify calls on the same
// LeftRight via an internal mutex; it never blocks Observe.
func Modify[V, R any](lr *LeftRight[V], f func(*V) R) R {
	lr.writeMu.Lock()
	defer lr.writeMu.Unlock()

	if !lr.side.Load() {
		// Readers currently see left; right is free to mutate.
		f(&lr.right)
		lr.side.Store(true)
		lr.toggleRegistry()
		return f(&lr.left)
	}

	f(&lr.left)
	lr.side.Store(false)
	lr.toggleRegistry()
	return f(&lr.right)
}

// toggleRegistry implements the drain protocol of step 5 in the
// algorithm: move new arrivals onto the registry that's already empty,
// then wait for the registry that was active during this Modify call to
// drain before the caller is allowed to touch the side it guards.
func (lr *LeftRight[V]) toggleRegistry() {
	cur := lr.regIdx.Load()
	next := 1 - cur

	for !lr.registries[next].Empty() {
		runtime.Gosched()
	}
	lr.regIdx.Store(next)

	for !lr.registries[cur].Empty() {
		runtime.Gosched()
	}
}
