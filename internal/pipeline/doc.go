// Package pipeline runs a ranking request as a sequence of steps.
//
// A request ranks the target area first and then tops the result up from
// neighboring areas. Each stage is a Step that receives the shared
// model.RankReport and fills in its part.
//
// Design decision: We keep ranking as a pipeline of steps rather than one
// function because:
// 1. The home-area and expansion stages log and fail independently
// 2. The report records which stages ran, which the writers display
// 3. Cancellation is checked between stages
//
// Service assembles the per-request components and BatchProcessor ranks
// several areas with bounded concurrency using errgroup.
package pipeline
