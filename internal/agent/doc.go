// Package agent walks the paginated agent directory of an area and hands
// out agent identifiers one at a time.
//
// The walk state of each area is a model.AgentPageCursor persisted through a
// cache.CursorStore, plus an in-memory queue of fetched but unused agent
// ids. An id handed out by a Cursor is never handed out again for the same
// area during the Cursor's lifetime.
package agent
