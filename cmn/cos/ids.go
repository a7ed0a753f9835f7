// Package cos provides the low-level types and utilities shared by the
// routing, grouping, and core packages: ID generation, hashing, and the
// error-taxonomy helpers consumed throughout the routing hot path.
/*
 * Copyright (c) 2026, FluxMQ Authors. All rights reserved.
 */
package cos

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/OneOfOne/xxhash"
	"github.com/teris-io/shortid"
)

// Alphabet for shortid: 64 characters (letters, digits, '-' and '_') in a
// fixed shuffled order.
const idABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

const LenShortID = 9 // per https://github.com/teris-io/shortid#id-length

var (
	sidOnce sync.Once
	sid     *shortid.Shortid
	tie     atomic.Uint32
)

func initSID(seed uint64) {
	sid = shortid.MustNew(4 /*worker*/, idABC, seed)
}

// GenUniqueName produces a short, collision-resistant name for test fixtures
// and reference GroupingHandler implementations that need to hand out
// clusterName / uniqueName values without a post-office to assign them.
func GenUniqueName(seed uint64) string {
	sidOnce.Do(func() { initSID(seed) })
	name := sid.MustGenerate()
	if c := name[0]; !isAlpha(c) {
		name = string(rune('a'+tie.Add(1)%26)) + name
	}
	return name
}

// seed for the routing-name hash; arbitrary but fixed so shard assignment is
// stable across process restarts.
const shardSeed = 0x5bd1e995

// HashRoutingName maps a routing name to a shard index in [0, nshards), used
// by CopyOnWriteRoutingIndex to serialize copy-on-write publication per-shard
// instead of behind one global lock.
func HashRoutingName(routingName string, nshards uint32) uint32 {
	return uint32(xxhash.ChecksumString64S(routingName, shardSeed)) % nshards
}

// GenTie returns a short tie-breaker string, used when two otherwise
// identical candidates (e.g. group proposal retries) need a deterministic
// but varying discriminator for logging.
func GenTie() string {
	t := tie.Add(1)
	return strconv.FormatUint(uint64(t), 36)
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
