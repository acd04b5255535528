// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package eventbus

import (
	"reflect"
	"sync/atomic"
)

var chainedType = reflect.TypeFor[Chained]()

// subscriberID is a package-level counter handing out stable ids to
// subscriber records, in the style of a hookID-like atomic counter.
var subscriberID atomic.Uint64

// typeErasedSubscriber wraps a user handler so that a heterogeneous
// subscriberMap can hold handlers for many event types uniformly.
type typeErasedSubscriber struct {
	id      uint64
	typ     reflect.Type
	deliver func(v any)
}

// newSubscriber builds a typeErasedSubscriber for handler h, which is
// invoked on every delivery addressed to type E.
//
// If E implements Chained, E is part of the polymorphic chain family:
// any value reaching this subscriber is expected to already have
// dynamic type E (the self link's identity narrow, or a declared Narrow
// honoring the ChainLink contract; dispatchChainFor does not check the
// types Narrow returns), so delivery performs an unchecked (panic-on-violation) assertion — the
// static-dispatch variant. Otherwise delivery performs a checked
// assertion and silently skips the handler on a mismatch — the
// runtime-check variant.
func newSubscriber[E any](h func(E)) *typeErasedSubscriber {
	typ := reflect.TypeFor[E]()
	static := typ.Implements(chainedType)

	var deliver func(v any)
	if static {
		deliver = func(v any) { h(v.(E)) }
	} else {
		deliver = func(v any) {
			if e, ok := v.(E); ok {
				h(e)
			}
		}
	}

	return &typeErasedSubscriber{
		id:      subscriberID.Add(1),
		typ:     typ,
		deliver: deliver,
	}
}
