// Package core defines the shared language of the regionmap system.
//
// This package contains:
//   - Input records (AnalyticRecord, OrganizationRecord) and derived Metrics
//   - Region geometry rows and the merged RegionTable
//   - Load-history entities and the Store interface
//
// The Golden Rule: pkg/core imports ONLY go-geom and stdlib.
// All other packages depend on core, not the reverse.
package core
