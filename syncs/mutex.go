// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package syncs contains additional sync types used to coordinate
// goroutines in this module's own internals.
package syncs

import "sync"

// Mutex is an alias for sync.Mutex, used for this module's internal
// write-locks so that call sites read uniformly whether or not a given
// lock happens to live inside a generic type.
type Mutex = sync.Mutex

// RWMutex is an alias for sync.RWMutex.
type RWMutex = sync.RWMutex
