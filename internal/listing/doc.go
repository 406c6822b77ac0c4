// Package listing acquires for-sale listings of an area.
//
// An Acquirer starts from every listing cached by earlier runs and tops up
// an area by walking its agents: each agent's active listings are fetched,
// filed under the area each listing actually belongs to, and persisted as a
// dated batch. Acquisition for an area ends when enough listings pass the
// property-type exclusion filter, when the area runs out of agents, or when
// too many fetched batches contain nothing from the area.
package listing
