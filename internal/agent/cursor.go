package agent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/nao1215/rentscan/internal/cache"
	"github.com/nao1215/rentscan/internal/model"
	"github.com/nao1215/rentscan/internal/upstream"
)

// Directory fetches one page of the agent directory of an area.
type Directory interface {
	FetchAgentPage(ctx context.Context, area string, page int) (upstream.AgentPage, error)
}

// ZillowDirectory is the agent directory served by the RapidAPI Zillow
// findAgent endpoint.
type ZillowDirectory struct {
	Client *upstream.Client
}

// FetchAgentPage implements Directory.
func (d ZillowDirectory) FetchAgentPage(ctx context.Context, area string, page int) (upstream.AgentPage, error) {
	return upstream.Call(ctx, d.Client, upstream.EndpointFindAgent, upstream.FindAgentParams(area, page), upstream.DecodeAgentPage)
}

// Cursor hands out agent ids per area. It is safe for concurrent use.
type Cursor struct {
	mu        sync.Mutex
	directory Directory
	store     cache.CursorStore
	logger    *slog.Logger

	loaded  bool
	cursors map[string]model.AgentPageCursor
	queues  map[string][]string
	served  map[string]map[string]struct{}
}

// Option configures a Cursor.
type Option func(*Cursor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cursor) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCursor creates a Cursor over directory, persisting page state to store.
// Cursor state is loaded from store on first use.
func NewCursor(directory Directory, store cache.CursorStore, opts ...Option) *Cursor {
	c := &Cursor{
		directory: directory,
		store:     store,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		cursors:   make(map[string]model.AgentPageCursor),
		queues:    make(map[string][]string),
		served:    make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NextAgent returns an unused agent id for area.
//
// Queued ids are consumed front to back. When the queue is empty the page
// index is advanced and the next directory page is fetched. The cursor is
// persisted only after a successful fetch; a failed page stays skipped in
// memory so the page index never moves backwards.
//
// It returns an error matching ErrAgentsExhausted when the directory has no
// further pages or a page yields no new ids, and an error matching
// upstream.ErrUpstreamCallFailed when the directory call fails.
func (c *Cursor) NextAgent(ctx context.Context, area string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(ctx); err != nil {
		return "", err
	}

	if id, ok := c.popLocked(area); ok {
		return id, nil
	}

	cursor, ok := c.cursors[area]
	if !ok {
		cursor = model.NewAgentPageCursor(area)
	}
	cursor.Current++
	c.cursors[area] = cursor
	if cursor.Exhausted() {
		c.logger.Debug("agent directory exhausted", "area", area, "page", cursor.Current, "last_page", cursor.LastPage)
		return "", &ExhaustedError{Area: area}
	}

	c.logger.Debug("fetching agent directory page", "area", area, "page", cursor.Current)
	page, err := c.directory.FetchAgentPage(ctx, area, cursor.Current)
	if err != nil {
		return "", fmt.Errorf("failed to fetch agent page %d for area %s: %w", cursor.Current, area, err)
	}

	if last, ok := page.LastPage(); ok {
		cursor.LastPage = last
		cursor.LastPageKnown = true
	} else {
		// A response without pagination information is the only page.
		cursor.LastPage = cursor.Current
		cursor.LastPageKnown = true
	}
	c.cursors[area] = cursor
	if err := c.store.SaveCursor(ctx, cursor); err != nil {
		c.logger.Warn("failed to persist agent cursor", "area", area, "error", err)
	}

	c.queues[area] = append(c.queues[area], page.AgentIDs()...)
	if id, ok := c.popLocked(area); ok {
		return id, nil
	}
	return "", &ExhaustedError{Area: area}
}

// CurrentPage returns the directory page the area's queue was last filled
// from, 0 before the first fetch.
func (c *Cursor) CurrentPage(area string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursors[area].Current
}

// popLocked removes and returns the first queued id of area that was not
// served before.
func (c *Cursor) popLocked(area string) (string, bool) {
	served, ok := c.served[area]
	if !ok {
		served = make(map[string]struct{})
		c.served[area] = served
	}

	queue := c.queues[area]
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, dup := served[id]; dup {
			continue
		}
		served[id] = struct{}{}
		c.queues[area] = queue
		return id, true
	}
	c.queues[area] = queue
	return "", false
}

// loadLocked reads the persisted cursors once.
func (c *Cursor) loadLocked(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	cursors, err := c.store.LoadCursors(ctx)
	if err != nil {
		return fmt.Errorf("failed to load agent cursors: %w", err)
	}
	for area, cursor := range cursors {
		cursor.Area = area
		c.cursors[area] = cursor
	}
	c.loaded = true
	return nil
}
