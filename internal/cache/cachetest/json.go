package cachetest

import (
	"bytes"
	"encoding/json"
)

// jsonEqual reports whether a and b hold the same JSON value, ignoring
// formatting differences introduced by a backend.
func jsonEqual(a, b []byte) bool {
	var ca, cb bytes.Buffer
	if err := json.Compact(&ca, a); err != nil {
		return false
	}
	if err := json.Compact(&cb, b); err != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
