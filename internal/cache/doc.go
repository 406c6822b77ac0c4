// Package cache defines the repository interfaces over rentscan's persisted
// state and provides a file-backed implementation of them.
//
// The persisted state consists of:
//   - listing batches, one per (area, agent, page, day)
//   - one agent-page cursor per area
//   - tax and rent estimates, one per (address, day)
//   - the area adjacency table
//   - ranked snapshots, one per (area, count, day), written once
//
// Entries are keyed by calendar day, so a new day produces new entries and
// older ones are never overwritten or evicted. Storage grows monotonically;
// pruning old days is left to an external cleanup job.
//
// Two implementations exist: FileStore in this package, which keeps the
// directory layout of CSV and JSON files, and the SQLite store in package
// database. Both satisfy Store.
package cache
