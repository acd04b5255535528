// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package eventbus

// Subscription is a lifetime-bound handle on a single subscription: it
// holds at most one Cookie plus a non-owning reference to the Bus that
// issued it, and unsubscribes automatically once it is no longer
// needed.
//
// Go has no destructors, so "automatically" here means: call Reset (or
// let the Subscription be replaced by a fresh Subscribe call via
// Assign) when you're done with it — typically via defer, mirroring how
// the source's scoped_subscription relies on C++ RAII. A Subscription
// should be treated as move-only: copying the struct value and using
// both copies independently will cause both to race to unsubscribe the
// same Cookie, which is harmless (Unsubscribe is idempotent) but not
// meaningful — pass Subscriptions by pointer.
//
// The zero Subscription holds nothing; resetting or letting it go out
// of scope without ever subscribing is a safe no-op.
type Subscription struct {
	bus    *Bus
	cookie Cookie
	held   bool
}

// SubscribeScoped registers h for events of type E on b and returns a
// Subscription that will unsubscribe it on Reset (or when replaced by
// Assign).
func SubscribeScoped[E any](b *Bus, h func(E)) *Subscription {
	s := &Subscription{}
	s.bus = b
	s.cookie = Subscribe(b, h)
	s.held = true
	return s
}

// Assign unsubscribes whatever s currently holds (if anything), then
// subscribes h for events of type E on b and makes s own that new
// subscription.
func Assign[E any](s *Subscription, b *Bus, h func(E)) {
	s.Reset()
	s.bus = b
	s.cookie = Subscribe(b, h)
	s.held = true
}

// Reset unsubscribes the subscription s currently holds, if any, and
// leaves s holding nothing.
func (s *Subscription) Reset() {
	if !s.held {
		return
	}
	s.bus.Unsubscribe(s.cookie)
	s.bus = nil
	s.cookie = Cookie{}
	s.held = false
}

// Swap exchanges the subscriptions held by s and other.
func (s *Subscription) Swap(other *Subscription) {
	*s, *other = *other, *s
}
