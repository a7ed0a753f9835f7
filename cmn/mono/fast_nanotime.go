// Package mono provides a low-level monotonic clock; nlog uses it to record
// when its last line was written (nlog.Since).
/*
 * Copyright (c) 2026, FluxMQ Authors. All rights reserved.
 */
package mono

import "time"

var start = time.Now()

// NanoTime returns nanoseconds elapsed since process start. It is monotonic
// and cheap enough to call on every log line; it is not a wall-clock value.
func NanoTime() int64 { return int64(time.Since(start)) }
