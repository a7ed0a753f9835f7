//go:build debug

// Package debug provides invariant checks that compile away to nothing in
// release builds and panic in `-tags debug` builds.
/*
 * Copyright (c) 2026, FluxMQ Authors. All rights reserved.
 */
package debug

import "fmt"

func ON() bool { return true }

func Assert(cond bool, args ...any) {
	if !cond {
		panic(fmt.Sprintln(append([]any{"assertion failed:"}, args...)...))
	}
}

func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}

func AssertNoErr(err error) {
	if err != nil {
		panic(fmt.Sprintf("assertion failed: unexpected error: %v", err))
	}
}

func AssertFunc(f func() bool, args ...any) {
	Assert(f(), args...)
}
