// Package perfdb keeps a bounded trace of route-convergence perf events for
// the PERF_DB_GET RPC (spec §6.2, §4.4): every processed decision/interface
// publication that carries a PerfEventGroup contributes it, and only the most recent
// constants.PerfBufferSize groups are retained.
package perfdb

import (
	"sync"

	"github.com/urantialife/openr/constants"
	"github.com/urantialife/openr/internal/rtroute"
)

// RingBuffer retains the last N PerfEventGroups in arrival order, oldest
// first.
type RingBuffer struct {
	mu     sync.Mutex
	groups []rtroute.PerfEventGroup
	cap    int
}

// New returns a RingBuffer bounded to constants.PerfBufferSize entries.
func New() *RingBuffer {
	return &RingBuffer{cap: constants.PerfBufferSize}
}

// Add records g, evicting the oldest entry if the buffer is full.
func (b *RingBuffer) Add(g rtroute.PerfEventGroup) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.groups = append(b.groups, g)
	if len(b.groups) > b.cap {
		b.groups = b.groups[len(b.groups)-b.cap:]
	}
}

// Snapshot returns a copy of the currently retained groups, oldest first.
func (b *RingBuffer) Snapshot() []rtroute.PerfEventGroup {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]rtroute.PerfEventGroup, len(b.groups))
	copy(out, b.groups)
	return out
}
