// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package leftright

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// ReaderToken is the value an Arrive call returns and the matching
// Depart call must be given back unchanged. It lets a ReaderRegistry
// pick a home for a reader once, at arrival, rather than having to
// rederive the same answer independently at departure.
type ReaderToken uint64

// ReaderRegistry tracks active readers so that a writer can tell, without
// blocking any of them, whether it is safe to mutate the side they might
// still be reading. All three methods must be wait-free and must never
// panic.
//
// Arrive and Depart publish their effects with at-least-release ordering;
// Empty observes with at-least-acquire ordering. Go's sync/atomic typed
// operations are sequentially consistent, which subsumes that
// requirement, so implementations built on them need no explicit memory
// order argument.
type ReaderRegistry interface {
	// Arrive notes that one more reader is active and returns a token
	// identifying where that arrival was recorded.
	Arrive() ReaderToken
	// Depart notes that one reader has finished. It must be called with
	// the exact token its matching Arrive returned, on the same
	// instance.
	Depart(ReaderToken)
	// Empty reports whether the number of Arrive calls equals the
	// number of Depart calls so far. It may return a stale false, but
	// never a stale true.
	Empty() bool
}

// Counter is a ReaderRegistry backed by a single atomic counter. All
// arrivals and departures contend on one cache line; prefer
// ShardedCounter when reads are heavily contended across many
// goroutines.
type Counter struct {
	n atomic.Uint32
}

// NewCounter returns a ready-to-use *Counter.
func NewCounter() *Counter { return &Counter{} }

func (c *Counter) Arrive() ReaderToken { c.n.Add(1); return 0 }
func (c *Counter) Depart(ReaderToken)  { c.n.Add(^uint32(0)) } // -1, wrapping
func (c *Counter) Empty() bool         { return c.n.Load() == 0 }

// paddedCounter pads each shard's counter out to a full cache line,
// avoiding false sharing between neighboring shards.
type paddedCounter struct {
	n atomic.Uint32
	_ cpu.CacheLinePad
}

// ShardedCounter is a ReaderRegistry backed by an array of N
// cache-line-padded counters. Arrive picks a shard by hashing a fast
// proxy for the calling goroutine's identity mod N, so that concurrent
// registrations are unlikely to contend, and hands the chosen shard back
// as the ReaderToken for the matching Depart to use directly — Depart
// never rehashes, so the two calls always agree on the shard even though
// Go's movable stacks mean a hash taken independently at Depart time
// could land somewhere else. Empty is true iff every shard reads zero. N
// is rounded up to the next power of two if it isn't one already, which
// makes shard indexing a cheap mask instead of a division.
type ShardedCounter struct {
	mask   uint64
	hash   func() uint64
	shards []paddedCounter
}

// ShardOption configures a ShardedCounter at construction time.
type ShardOption func(*ShardedCounter)

// WithHash overrides the function used to pick the shard an arriving
// reader is recorded on. The default hashes the address of a
// goroutine-local stack variable: Go exposes no public goroutine or
// thread identity, so this is an approximation that clusters by
// scheduling affinity well enough to reduce contention. Since the chosen
// shard is only ever decided once per Arrive and carried to Depart via
// the returned ReaderToken, this choice affects contention only, never
// correctness — any sufficiently fast, sufficiently varied function is
// an acceptable substitute.
func WithHash(hash func() uint64) ShardOption {
	return func(s *ShardedCounter) { s.hash = hash }
}

// NewShardedCounter returns a ShardedCounter with at least n shards
// (rounded up to a power of two).
func NewShardedCounter(n int, opts ...ShardOption) *ShardedCounter {
	if n < 1 {
		n = 1
	}
	pow := 1
	for pow < n {
		pow <<= 1
	}
	s := &ShardedCounter{
		mask:   uint64(pow - 1),
		hash:   defaultShardHash,
		shards: make([]paddedCounter, pow),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

//go:noinline
func defaultShardHash() uint64 {
	var affinityProbe byte
	return uint64(uintptr(unsafe.Pointer(&affinityProbe)))
}

func (s *ShardedCounter) Arrive() ReaderToken {
	idx := s.hash() & s.mask
	s.shards[idx].n.Add(1)
	return ReaderToken(idx)
}

func (s *ShardedCounter) Depart(t ReaderToken) {
	s.shards[t].n.Add(^uint32(0))
}

func (s *ShardedCounter) Empty() bool {
	for i := range s.shards {
		if s.shards[i].n.Load() != 0 {
			return false
		}
	}
	return true
}
