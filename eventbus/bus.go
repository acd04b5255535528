// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package eventbus implements a synchronous, type-safe publish/subscribe
// bus with polymorphic dispatch over a statically declared hierarchy of
// event types. A single Publish call fans out to every handler
// registered for any type in the published event's dispatch chain,
// ordered most-derived-first, and delivery happens synchronously on the
// publishing goroutine.
//
// The bus's subscriber map lives inside a leftright.LeftRight, so
// Publish never blocks on a concurrent Subscribe or Unsubscribe, and
// multiple goroutines may publish concurrently without taking any lock.
package eventbus

import (
	"reflect"
	"slices"

	"github.com/coretane/lrbus/leftright"
	"github.com/coretane/lrbus/types/logger"
)

// subscriberMap is a multimap from type-identity to subscriber record;
// the same key may map to many records, and insertion order within a
// key is preserved and observable as delivery order.
type subscriberMap map[reflect.Type][]*typeErasedSubscriber

// Bus owns a subscriber map protected by a LeftRight, and is the
// package's publish/subscribe/unsubscribe entry point.
type Bus struct {
	subs *leftright.LeftRight[subscriberMap]
	logf logger.Logf
}

// Option configures a Bus at construction time.
type Option func(*busConfig)

type busConfig struct {
	logf logger.Logf
}

// WithLogf sets the logger the Bus uses for its own debug-level
// diagnostics (for example, no-op unsubscribes). It does not affect
// handler errors, which are not possible: handlers are required not to
// panic.
func WithLogf(logf logger.Logf) Option {
	return func(c *busConfig) { c.logf = logf }
}

// New returns a new, empty Bus.
func New(opts ...Option) *Bus {
	cfg := busConfig{logf: logger.Discard}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Bus{
		subs: leftright.NewInPlace(newSubscriberMap, newSubscriberMap),
		logf: logger.WithPrefix(cfg.logf, "eventbus: "),
	}
}

func newSubscriberMap() subscriberMap { return make(subscriberMap) }

// Cookie identifies exactly one subscriber record until Unsubscribe is
// called with it, after which using it again is a no-op. The zero
// Cookie holds nothing.
type Cookie struct {
	id  uint64
	typ reflect.Type
}

// Subscribe registers h to be invoked whenever an event whose dispatch
// chain includes E is published. It panics if h is nil.
//
// Subscribe is a package-level function, not a method, because Go
// methods cannot introduce a new type parameter beyond the receiver's.
func Subscribe[E any](b *Bus, h func(E)) Cookie {
	if h == nil {
		panic("eventbus: Subscribe called with a nil handler")
	}
	sub := newSubscriber(h)
	leftright.Modify(b.subs, func(m *subscriberMap) struct{} {
		(*m)[sub.typ] = append((*m)[sub.typ], sub)
		return struct{}{}
	})
	return Cookie{id: sub.id, typ: sub.typ}
}

// Unsubscribe removes the subscriber record c identifies. If c was
// already unsubscribed, or is the zero Cookie, this is a silent no-op.
func (b *Bus) Unsubscribe(c Cookie) {
	if c.typ == nil {
		return
	}
	leftright.Modify(b.subs, func(m *subscriberMap) struct{} {
		bucket := (*m)[c.typ]
		i := slices.IndexFunc(bucket, func(s *typeErasedSubscriber) bool { return s.id == c.id })
		if i < 0 {
			b.logf("unsubscribe of unknown cookie for %v (already removed)", c.typ)
			return struct{}{}
		}
		(*m)[c.typ] = slices.Delete(bucket, i, i+1)
		return struct{}{}
	})
}

// Publish delivers e to every handler registered for any type in e's
// dispatch chain, most-derived type first, each handler invoked at most
// once, in the order it was subscribed. Publish never blocks on a
// concurrent Subscribe or Unsubscribe, and runs entirely on the calling
// goroutine.
func Publish[E any](b *Bus, e E) {
	chain := dispatchChainFor(e)
	leftright.Observe(b.subs, func(m *subscriberMap) struct{} {
		for _, link := range chain {
			narrowed := link.Narrow(e)
			for _, sub := range (*m)[link.Type] {
				sub.deliver(narrowed)
			}
		}
		return struct{}{}
	})
}
