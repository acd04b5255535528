// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package leftright

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounterEmptyInitially(t *testing.T) {
	c := NewCounter()
	require.True(t, c.Empty(), "new Counter should be empty")
}

func TestCounterArriveDepart(t *testing.T) {
	c := NewCounter()
	t1 := c.Arrive()
	require.False(t, c.Empty(), "Counter should not be empty after Arrive")
	t2 := c.Arrive()
	c.Depart(t2)
	require.False(t, c.Empty(), "Counter should not be empty: one Arrive is still outstanding")
	c.Depart(t1)
	require.True(t, c.Empty(), "Counter should be empty once every Arrive has a matching Depart")
}

func TestShardedCounterRoundsUpToPowerOfTwo(t *testing.T) {
	s := NewShardedCounter(5)
	require.Len(t, s.shards, 8, "shard count should round up to the next power of two >= 5")
}

func TestShardedCounterEmptyAcrossShards(t *testing.T) {
	calls := 0
	shard := uint64(0)
	s := NewShardedCounter(4, WithHash(func() uint64 {
		defer func() { calls++ }()
		return shard
	}))

	shard = 0
	tok0 := s.Arrive() // lands in shard 0
	require.False(t, s.Empty(), "ShardedCounter should not be empty after Arrive")

	shard = 1
	tok1 := s.Arrive() // lands in shard 1
	s.Depart(tok0)     // drains shard 0, using the token from that arrival
	require.False(t, s.Empty(), "ShardedCounter should not be empty: shard 1 still holds a reader")

	s.Depart(tok1) // drains shard 1
	require.True(t, s.Empty(), "ShardedCounter should be empty once every shard reads zero")
	require.Positive(t, calls)
}

// TestShardedCounterDepartUsesArrivalShardNotCurrentHash checks that
// Depart honors the token it was given rather than re-consulting the
// hash function, which may answer differently by the time Depart runs.
func TestShardedCounterDepartUsesArrivalShardNotCurrentHash(t *testing.T) {
	shard := uint64(0)
	s := NewShardedCounter(4, WithHash(func() uint64 { return shard }))

	tok := s.Arrive() // lands in shard 0, tok == 0
	shard = 1         // simulate the hash answering differently later,
	// e.g. because a stack move relocated whatever it probes.
	s.Depart(tok) // must still drain shard 0, not shard 1
	require.True(t, s.Empty(), "Depart must drain the shard recorded at Arrive time, not the shard the hash currently reports")
}
