// Package cmn holds the handful of process-wide, read-mostly settings the
// routing core needs without pulling in a configuration-file loader - that
// loader is the post-office's job (spec.md §1, external collaborator).
/*
 * Copyright (c) 2026, FluxMQ Authors. All rights reserved.
 */
package cmn

import "github.com/fluxmq/broker/cmn/nlog"

// read-mostly settings: assigned once at startup (or occasionally on a
// config reload pushed down by the host process), read on every route.
type readMostly struct {
	maxGroupRetry int32
	testingEnv    bool
}

var Rom = readMostly{maxGroupRetry: 10}

// MaxGroupRetry is MAX_GROUP_RETRY from spec.md §4.5.
func (rom *readMostly) MaxGroupRetry() int { return int(rom.maxGroupRetry) }

func (rom *readMostly) SetMaxGroupRetry(n int) { rom.maxGroupRetry = int32(n) }

func (rom *readMostly) TestingEnv() bool { return rom.testingEnv }

func (rom *readMostly) SetTestingEnv(v bool) {
	rom.testingEnv = v
	nlog.SetVerbose(!v)
}
