package model

// MergeNeighbors appends the areas of incoming that are not yet in existing,
// keeping the order of both, and removes self from the result.
// Previously discovered neighbors are never dropped.
func MergeNeighbors(existing, incoming []string, self string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]string, 0, len(existing)+len(incoming))
	add := func(area string) {
		if area == "" || area == self {
			return
		}
		if _, ok := seen[area]; ok {
			return
		}
		seen[area] = struct{}{}
		merged = append(merged, area)
	}
	for _, a := range existing {
		add(a)
	}
	for _, a := range incoming {
		add(a)
	}
	return merged
}
