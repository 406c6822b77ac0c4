package region

import "errors"

// ErrAdjacencyUnavailable is returned when the neighbors of an area are
// neither cached nor obtainable from the radius search.
var ErrAdjacencyUnavailable = errors.New("area adjacency unavailable")
