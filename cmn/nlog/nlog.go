// Package nlog is the routing core's logger: leveled, caller-annotated,
// and cheap enough to call on the route hot path when the level allows it.
//
// Unlike a daemon's own logger, this package never owns a log file or a
// rotation policy - the core is embedded in a host broker process, so by
// default lines go to os.Stderr and the host can redirect them with
// SetOutput.
/*
 * Copyright (c) 2026, FluxMQ Authors. All rights reserved.
 */
package nlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/fluxmq/broker/cmn/mono"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

const sevChar = "IWE"

var (
	mu     sync.Mutex
	out    io.Writer = os.Stderr
	minSev           = sevInfo
	last   int64
)

// SetOutput redirects all subsequent log lines. Intended for the embedding
// process; tests use it to capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
}

// SetVerbose raises or lowers the minimum severity that is actually written.
// verbose=true logs Info and above (the default); verbose=false suppresses
// Info and only logs Warning/Error.
func SetVerbose(verbose bool) {
	mu.Lock()
	if verbose {
		minSev = sevInfo
	} else {
		minSev = sevWarn
	}
	mu.Unlock()
}

func Infoln(args ...any)                  { write(sevInfo, 1, "", args...) }
func Infof(format string, args ...any)    { write(sevInfo, 1, format, args...) }
func Warningln(args ...any)               { write(sevWarn, 1, "", args...) }
func Warningf(format string, args ...any) { write(sevWarn, 1, format, args...) }
func Errorln(args ...any)                 { write(sevErr, 1, "", args...) }
func Errorf(format string, args ...any)   { write(sevErr, 1, format, args...) }

// InfoDepth and ErrorDepth let a thin wrapper (e.g. a per-package "trace"
// helper) log with the caller's line rather than its own.
func InfoDepth(depth int, args ...any)  { write(sevInfo, depth+1, "", args...) }
func ErrorDepth(depth int, args ...any) { write(sevErr, depth+1, "", args...) }

func write(sev severity, depth int, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if sev < minSev {
		return
	}
	last = mono.NanoTime()
	var b strings.Builder
	b.WriteByte(sevChar[sev])
	b.WriteByte(' ')
	writeCaller(&b, depth+1)
	if format == "" {
		fmt.Fprintln(&b, args...)
	} else {
		fmt.Fprintf(&b, format, args...)
		if !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}
	io.WriteString(out, b.String())
}

func writeCaller(b *strings.Builder, depth int) {
	_, fn, ln, ok := runtime.Caller(depth + 1)
	if !ok {
		return
	}
	if idx := strings.LastIndexByte(fn, filepath.Separator); idx >= 0 {
		fn = fn[idx+1:]
	}
	b.WriteString(fn)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(ln))
	b.WriteByte(' ')
}

// Since returns nanoseconds elapsed since the last line was written, for
// callers that want to rate-limit their own noisy paths.
func Since() int64 { return mono.NanoTime() - last }
