package model

// AgentPageCursor tracks how far the agent directory walk of one area has
// progressed. Current starts at 0 and is incremented before each page fetch.
type AgentPageCursor struct {
	Area    string `json:"area"`
	Current int    `json:"current"`

	// LastPage is the last page reported by the directory. It is only
	// meaningful once LastPageKnown is set by the first page response.
	LastPage      int  `json:"last_page"`
	LastPageKnown bool `json:"last_page_known"`
}

// NewAgentPageCursor returns the initial cursor for an area.
func NewAgentPageCursor(area string) AgentPageCursor {
	return AgentPageCursor{Area: area}
}

// Exhausted reports whether no further directory page exists.
func (c AgentPageCursor) Exhausted() bool {
	return c.LastPageKnown && c.Current > c.LastPage
}
