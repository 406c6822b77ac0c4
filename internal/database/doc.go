// Package database provides the SQLite-backed cache repository of rentscan.
//
// CacheDB implements cache.Store and stores:
//   - Listing batches, keyed by area, agent, directory page and day
//   - The agent-page cursor of every area
//   - Tax and rent estimates, one row per normalized address per day
//   - The area adjacency table, with neighbor order preserved
//   - Ranked snapshots, written once per area, count and day
//
// We use SQLite through modernc.org/sqlite because it is CGO-free and keeps
// the whole cache in a single file next to the user's data. The file-based
// layout in package cache remains available for users who want to inspect
// or edit the cache by hand.
package database
