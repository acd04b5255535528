// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package logger_test

import (
	"testing"

	"github.com/coretane/lrbus/types/logger"
)

func TestDiscardDoesNothing(t *testing.T) {
	logger.Discard("this should go nowhere: %d", 42) // must not panic
}

func TestWithPrefixPrependsToFormat(t *testing.T) {
	var gotFormat string
	var gotArgs []any
	base := logger.Logf(func(format string, args ...any) {
		gotFormat = format
		gotArgs = args
	})

	prefixed := logger.WithPrefix(base, "eventbus: ")
	prefixed("unsubscribe of unknown cookie for %v", "int")

	if want := "eventbus: unsubscribe of unknown cookie for %v"; gotFormat != want {
		t.Fatalf("format = %q, want %q", gotFormat, want)
	}
	if len(gotArgs) != 1 || gotArgs[0] != "int" {
		t.Fatalf("args = %v, want [int]", gotArgs)
	}
}
