package model

import "time"

// RankReport is the working document of one ranking request. The pipeline
// steps fill it in turn and the report writers render it.
type RankReport struct {
	// RequestID identifies the request in logs.
	RequestID string `json:"request_id"`

	// Area is the target postal area.
	Area string `json:"area"`

	// DesiredCount is the number of listings requested.
	DesiredCount int `json:"desired_count"`

	// ExcludedHomeTypes are the property types left out of the results.
	ExcludedHomeTypes []string `json:"excluded_home_types,omitempty"`

	// HomeListings are the ranked listings of the target area.
	HomeListings []ScoredListing `json:"home_listings"`

	// ExpandedListings are listings from neighboring areas that topped up
	// an under-supplied home area. They are ranked per neighbor and
	// appended in neighbor distance order.
	ExpandedListings []ScoredListing `json:"expanded_listings,omitempty"`

	// Neighbors are the areas consulted during expansion, nearest first.
	Neighbors []string `json:"neighbors,omitempty"`

	// PerformedSteps lists the names of the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps"`

	// StartedAt and FinishedAt bound the request.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Error holds the first step error, if any.
	Error string `json:"error,omitempty"`
}

// NewRankReport creates an empty report for a request.
func NewRankReport(area string, desired int, excluded []string) *RankReport {
	return &RankReport{
		Area:              area,
		DesiredCount:      desired,
		ExcludedHomeTypes: excluded,
		HomeListings:      []ScoredListing{},
		PerformedSteps:    []string{},
		StartedAt:         time.Now(),
	}
}

// Listings returns the full result: home listings first, then the
// expansion listings.
func (r *RankReport) Listings() []ScoredListing {
	out := make([]ScoredListing, 0, len(r.HomeListings)+len(r.ExpandedListings))
	out = append(out, r.HomeListings...)
	out = append(out, r.ExpandedListings...)
	return out
}

// StillNeeded returns how many listings the home area fell short by.
func (r *RankReport) StillNeeded() int {
	return r.DesiredCount - len(r.HomeListings)
}

// AddPerformedStep records a completed pipeline step.
func (r *RankReport) AddPerformedStep(name string) {
	r.PerformedSteps = append(r.PerformedSteps, name)
}
