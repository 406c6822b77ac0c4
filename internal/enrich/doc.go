// Package enrich looks up the tax and rent figures of a listing through
// read-through, write-through caches.
//
// A cached entry for the same address from any day satisfies a lookup; the
// most recent one wins. Fresh results are stored under the current day.
// Upstream failures never reach the caller: a failed tax lookup yields an
// unavailable estimate and a failed rent lookup yields the all-zero unknown
// estimate, and neither is cached, so the next request tries again.
package enrich
