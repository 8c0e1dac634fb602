package dataset

import (
	"sync/atomic"

	"github.com/leapstack-labs/regionmap/pkg/core"
)

// Snapshot holds the table currently being served. Readers never block;
// a reload swaps in a complete new table.
type Snapshot struct {
	table   atomic.Pointer[core.RegionTable]
	version atomic.Uint64
}

// NewSnapshot returns a snapshot holding table.
func NewSnapshot(table *core.RegionTable) *Snapshot {
	s := &Snapshot{}
	s.Store(table)
	return s
}

// Load returns the current table.
func (s *Snapshot) Load() *core.RegionTable {
	return s.table.Load()
}

// Store replaces the current table and bumps the version.
func (s *Snapshot) Store(table *core.RegionTable) {
	s.table.Store(table)
	s.version.Add(1)
}

// Version counts stores, starting at 1 for the initial table.
func (s *Snapshot) Version() uint64 {
	return s.version.Load()
}
