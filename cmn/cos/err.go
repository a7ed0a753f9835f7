// Package cos provides the low-level types and utilities shared by the
// routing, grouping, and core packages: ID generation, hashing, and the
// error-taxonomy helpers consumed throughout the routing hot path.
/*
 * Copyright (c) 2026, FluxMQ Authors. All rights reserved.
 */
package cos

import (
	"errors"
	"fmt"
	"sync"
	ratomic "sync/atomic"

	"github.com/fluxmq/broker/cmn/debug"
)

// The kinds enumerated in spec.md §7. Each carries the detail a caller needs
// to log or act on without a type switch on an opaque string.
type (
	// ErrRouteDirectiveUnknownID: HDR_ROUTE_TO_IDS/HDR_ROUTE_TO_ACK_IDS named a
	// binding id absent from byId. The message is dropped only for that id.
	ErrRouteDirectiveUnknownID struct {
		BindingID int64
		MsgSummary string
	}
	// ErrGroupRoutingExhausted: MAX_GROUP_RETRY attempts of the Group Proposal
	// Protocol (spec.md §4.5) produced no binding for a routing group.
	ErrGroupRoutingExhausted struct {
		GroupID     string
		RoutingName string
		Tries       int
	}
	// ErrGroupingProposalTimeout: GroupingHandler.propose returned a nil
	// response. Retried by the caller; exported so callers can distinguish a
	// timeout from a decline in logs/metrics.
	ErrGroupingProposalTimeout struct {
		FullID string
	}
	// ErrNotFound is a generic "no such X" error. The routing index and the
	// fully-qualified address path do not return it: they report a miss as
	// ok=false or as a logged drop.
	ErrNotFound struct {
		what string
	}
)

func (e *ErrRouteDirectiveUnknownID) Error() string {
	return fmt.Sprintf("route directive names unknown binding id %d (message: %s)", e.BindingID, e.MsgSummary)
}

func (e *ErrGroupRoutingExhausted) Error() string {
	return fmt.Sprintf("group %q: could not route via routing name %q after %d attempts, falling back to simple routing",
		e.GroupID, e.RoutingName, e.Tries)
}

func (e *ErrGroupingProposalTimeout) Error() string {
	return fmt.Sprintf("grouping proposal timed out for %q", e.FullID)
}

func NewErrNotFound(format string, a ...any) *ErrNotFound {
	return &ErrNotFound{fmt.Sprintf(format, a...)}
}

func (e *ErrNotFound) Error() string { return e.what + " does not exist" }

func IsErrNotFound(err error) bool {
	_, ok := err.(*ErrNotFound)
	return ok
}

func IsErrGroupingProposalTimeout(err error) bool {
	_, ok := err.(*ErrGroupingProposalTimeout)
	return ok
}

// Errs collects up to maxErrs distinct errors, deduplicated by message, and
// joins them on demand. Used when a single operation (e.g. an explicit
// HDR_ROUTE_TO_IDS batch) can produce more than one ErrRouteDirectiveUnknownID
// and the caller wants to log them together rather than abandon the batch
// on the first miss.
type Errs struct {
	errs []error
	cnt  int64
	mu   sync.Mutex
}

const maxErrs = 8

func (e *Errs) Add(err error) {
	debug.Assert(err != nil)
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
		ratomic.StoreInt64(&e.cnt, int64(len(e.errs)))
	}
}

func (e *Errs) Cnt() int { return int(ratomic.LoadInt64(&e.cnt)) }

func (e *Errs) JoinErr() (cnt int, err error) {
	if cnt = e.Cnt(); cnt > 0 {
		e.mu.Lock()
		err = errors.Join(e.errs...)
		e.mu.Unlock()
	}
	return
}

func (e *Errs) Error() (s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.errs) == 0 {
		return ""
	}
	err := e.errs[0]
	if len(e.errs) > 1 {
		return fmt.Sprintf("%v (and %d more)", err, len(e.errs)-1)
	}
	return err.Error()
}
