// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package eventbus

import (
	"fmt"
	"reflect"

	"github.com/coretane/lrbus/internal/typeset"
)

// Chained is the interface an event type implements to opt into
// polymorphic dispatch: publishing an instance of it fans out to
// handlers registered for any type named in its DispatchChain, not just
// its own concrete type.
//
// DispatchChain returns the ordered list of ancestor links, most-derived
// first. If the receiver's own type does not head the returned list, its
// self link is prepended automatically by dispatchChainFor — so
// DispatchChain only needs to describe the receiver's ancestors.
//
// Event types that don't implement Chained are delivered as the trivial
// one-element chain containing only their own type.
type Chained interface {
	DispatchChain() []ChainLink
}

// ChainLink names one type in a dispatch chain together with a function
// that narrows a concrete event value down to the representation that
// ancestor type's handlers expect.
//
// Narrow is only ever called with the value the chain was built for; it
// must always return a value whose dynamic type is exactly Type. A
// Narrow that violates this is a contract violation: the static-dispatch
// delivery path (see typeErasedSubscriber.deliver) will panic on the
// resulting failed type assertion rather than silently misdeliver.
type ChainLink struct {
	Type   reflect.Type
	Narrow func(self any) any
}

// resolvedLink is dispatchChainFor's canonical form of a ChainLink: a
// self link prepended by dispatchChainFor uses the identity narrow, and
// every declared link (including a declared self link) is carried
// through unchanged.
type resolvedLink struct {
	Type   reflect.Type
	Narrow func(self any) any
}

func identity(v any) any { return v }

// dispatchChainFor builds the canonical, most-derived-first list of
// chain links for a published event value, per the construction rule:
// if E declares a chain headed by its own type, use it as-is; if E
// declares a chain that doesn't include itself at the head, prepend a
// self link; if E declares no chain at all, it is the trivial
// one-element chain [E].
func dispatchChainFor(e any) []resolvedLink {
	t := reflect.TypeOf(e)
	self := resolvedLink{Type: t, Narrow: identity}

	ce, ok := e.(Chained)
	if !ok {
		return []resolvedLink{self}
	}

	declared := ce.DispatchChain()
	links := make([]resolvedLink, 0, len(declared)+1)
	if len(declared) == 0 || declared[0].Type != t {
		links = append(links, self)
	}
	for _, link := range declared {
		links = append(links, resolvedLink{Type: link.Type, Narrow: link.Narrow})
	}

	seen := make(typeset.Set[reflect.Type], len(links))
	for _, l := range links {
		if !seen.Add(l.Type) {
			panic(fmt.Sprintf("eventbus: malformed dispatch chain for %v: type %v appears more than once", t, l.Type))
		}
	}
	return links
}
