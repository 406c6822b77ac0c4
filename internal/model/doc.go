// Package model defines the core data structures used throughout rentscan.
//
// This package contains the following main types:
//   - Listing: A for-sale property discovered through an agent's active listings
//   - AgentPageCursor: Pagination state of the agent directory walk for one area
//   - TaxEstimate and RentalEstimate: Enrichment results, tagged known or unknown
//   - ScoredListing: A listing with its modeled expenses and derived cash flow
//   - RankReport: The working document passed through the ranking pipeline
//   - Rating: The display tier of a cash flow relative to its peers
//
// Models live in their own package so that acquisition, enrichment, scoring,
// the cache backends and the report writers can share them without import
// cycles. All types serialize to JSON for cache snapshots and report output.
package model
