//go:build !debug

// Package debug provides invariant checks that compile away to nothing in
// release builds and panic in `-tags debug` builds.
/*
 * Copyright (c) 2026, FluxMQ Authors. All rights reserved.
 */
package debug

func ON() bool { return false }

func Assert(_ bool, _ ...any)            {}
func Assertf(_ bool, _ string, _ ...any) {}
func AssertNoErr(_ error)                {}
func AssertFunc(_ func() bool, _ ...any) {}
