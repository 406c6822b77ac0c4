// Package region tops up an under-supplied area with listings from its
// neighbors.
//
// Neighbors come from a radius search around the area, nearest first, and
// are remembered in an append-only adjacency table. The Expander ranks each
// neighbor in turn and appends the listings whose address is not yet part
// of the result.
package region
