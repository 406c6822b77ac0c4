package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nao1215/rentscan/internal/cache"
	"github.com/nao1215/rentscan/internal/model"
	"github.com/nao1215/rentscan/internal/upstream"
)

// fakeDirectory serves agent pages from memory.
type fakeDirectory struct {
	mu       sync.Mutex
	pages    map[int][]string
	lastPage int
	noInfo   bool
	failPage int
	calls    []int
}

func (d *fakeDirectory) FetchAgentPage(_ context.Context, _ string, page int) (upstream.AgentPage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, page)

	if page == d.failPage {
		return upstream.AgentPage{}, &upstream.CallError{Endpoint: upstream.EndpointFindAgent, Attempts: 5, Status: 500}
	}

	var p upstream.AgentPage
	for _, id := range d.pages[page] {
		p.Agents = append(p.Agents, upstream.AgentEntry{ZUID: upstream.ID(id)})
	}
	if !d.noInfo {
		p.PageInformation = &upstream.PageInformation{
			LastPage: upstream.Number{Value: float64(d.lastPage), Valid: true},
		}
	}
	return p, nil
}

// memCursorStore is an in-memory cache.CursorStore.
type memCursorStore struct {
	mu      sync.Mutex
	cursors map[string]model.AgentPageCursor
	saves   int
}

func newMemCursorStore() *memCursorStore {
	return &memCursorStore{cursors: map[string]model.AgentPageCursor{}}
}

func (s *memCursorStore) LoadCursors(context.Context) (map[string]model.AgentPageCursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.AgentPageCursor, len(s.cursors))
	for k, v := range s.cursors {
		out[k] = v
	}
	return out, nil
}

func (s *memCursorStore) SaveCursor(_ context.Context, c model.AgentPageCursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[c.Area] = c
	s.saves++
	return nil
}

var _ cache.CursorStore = (*memCursorStore)(nil)

// TestNextAgent tests the directory walk state machine.
func TestNextAgent(t *testing.T) {
	t.Parallel()

	t.Run("drains pages in order until exhausted", func(t *testing.T) {
		t.Parallel()

		dir := &fakeDirectory{
			pages:    map[int][]string{1: {"a1", "a2"}, 2: {"a3"}},
			lastPage: 2,
		}
		store := newMemCursorStore()
		c := NewCursor(dir, store)
		ctx := context.Background()

		var got []string
		for {
			id, err := c.NextAgent(ctx, "90210")
			if errors.Is(err, ErrAgentsExhausted) {
				break
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got = append(got, id)
		}

		expected := []string{"a1", "a2", "a3"}
		if len(got) != len(expected) {
			t.Fatalf("got %v, expected %v", got, expected)
		}
		for i := range expected {
			if got[i] != expected[i] {
				t.Errorf("agent %d = %q, expected %q", i, got[i], expected[i])
			}
		}
		if len(dir.calls) != 2 {
			t.Errorf("expected 2 directory calls, got %v", dir.calls)
		}
		persisted := store.cursors["90210"]
		if persisted.Current != 2 || !persisted.LastPageKnown || persisted.LastPage != 2 {
			t.Errorf("unexpected persisted cursor %+v", persisted)
		}

		var exhausted *ExhaustedError
		_, err := c.NextAgent(ctx, "90210")
		if !errors.As(err, &exhausted) || exhausted.Area != "90210" {
			t.Errorf("expected ExhaustedError for 90210, got %v", err)
		}
	})

	t.Run("resumes from persisted cursor", func(t *testing.T) {
		t.Parallel()

		dir := &fakeDirectory{pages: map[int][]string{3: {"a9"}}, lastPage: 3}
		store := newMemCursorStore()
		store.cursors["90210"] = model.AgentPageCursor{Area: "90210", Current: 2, LastPage: 3, LastPageKnown: true}
		c := NewCursor(dir, store)

		id, err := c.NextAgent(context.Background(), "90210")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "a9" || len(dir.calls) != 1 || dir.calls[0] != 3 {
			t.Errorf("id = %q, calls = %v", id, dir.calls)
		}
	})

	t.Run("persisted exhausted cursor makes no call", func(t *testing.T) {
		t.Parallel()

		dir := &fakeDirectory{}
		store := newMemCursorStore()
		store.cursors["90210"] = model.AgentPageCursor{Area: "90210", Current: 4, LastPage: 4, LastPageKnown: true}
		c := NewCursor(dir, store)

		_, err := c.NextAgent(context.Background(), "90210")
		if !errors.Is(err, ErrAgentsExhausted) {
			t.Errorf("expected ErrAgentsExhausted, got %v", err)
		}
		if len(dir.calls) != 0 {
			t.Errorf("expected no directory calls, got %v", dir.calls)
		}
	})

	t.Run("empty page is exhaustion", func(t *testing.T) {
		t.Parallel()

		dir := &fakeDirectory{pages: map[int][]string{1: {}}, lastPage: 5}
		c := NewCursor(dir, newMemCursorStore())

		_, err := c.NextAgent(context.Background(), "90210")
		if !errors.Is(err, ErrAgentsExhausted) {
			t.Errorf("expected ErrAgentsExhausted, got %v", err)
		}
	})

	t.Run("missing page information means single page", func(t *testing.T) {
		t.Parallel()

		dir := &fakeDirectory{pages: map[int][]string{1: {"a1"}}, noInfo: true}
		c := NewCursor(dir, newMemCursorStore())
		ctx := context.Background()

		if id, err := c.NextAgent(ctx, "90210"); err != nil || id != "a1" {
			t.Fatalf("NextAgent = %q, %v", id, err)
		}
		if _, err := c.NextAgent(ctx, "90210"); !errors.Is(err, ErrAgentsExhausted) {
			t.Errorf("expected ErrAgentsExhausted, got %v", err)
		}
		if len(dir.calls) != 1 {
			t.Errorf("expected 1 directory call, got %v", dir.calls)
		}
	})

	t.Run("directory failure propagates and advances the page", func(t *testing.T) {
		t.Parallel()

		dir := &fakeDirectory{pages: map[int][]string{2: {"a2"}}, lastPage: 2, failPage: 1}
		store := newMemCursorStore()
		c := NewCursor(dir, store)
		ctx := context.Background()

		_, err := c.NextAgent(ctx, "90210")
		if !errors.Is(err, upstream.ErrUpstreamCallFailed) {
			t.Fatalf("expected ErrUpstreamCallFailed, got %v", err)
		}
		if store.saves != 0 {
			t.Errorf("failed fetch must not persist the cursor")
		}
		id, err := c.NextAgent(ctx, "90210")
		if err != nil || id != "a2" {
			t.Errorf("NextAgent = %q, %v", id, err)
		}
	})
}

// TestNextAgentNeverRepeats tests that ids are served at most once per area.
func TestNextAgentNeverRepeats(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{
		pages:    map[int][]string{1: {"a1", "a2", "a1"}, 2: {"a2", "a3"}},
		lastPage: 2,
	}
	c := NewCursor(dir, newMemCursorStore())
	ctx := context.Background()

	seen := map[string]bool{}
	lastPage := 0
	for {
		id, err := c.NextAgent(ctx, "90210")
		if err != nil {
			if !errors.Is(err, ErrAgentsExhausted) {
				t.Fatalf("unexpected error: %v", err)
			}
			break
		}
		if seen[id] {
			t.Fatalf("agent %q served twice", id)
		}
		seen[id] = true

		page := c.CurrentPage("90210")
		if page < lastPage {
			t.Fatalf("page went backwards: %d after %d", page, lastPage)
		}
		lastPage = page
	}
	if len(seen) != 3 {
		t.Errorf("expected 3 distinct agents, got %v", seen)
	}
}

// TestNextAgentAreasAreIndependent tests per-area state.
func TestNextAgentAreasAreIndependent(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{pages: map[int][]string{1: {"a1"}}, lastPage: 1}
	c := NewCursor(dir, newMemCursorStore())
	ctx := context.Background()

	for _, area := range []string{"90210", "10001"} {
		id, err := c.NextAgent(ctx, area)
		if err != nil || id != "a1" {
			t.Errorf("area %s: NextAgent = %q, %v", area, id, err)
		}
	}
	if c.CurrentPage("90210") != 1 || c.CurrentPage("10001") != 1 || c.CurrentPage("30301") != 0 {
		t.Error("unexpected current pages")
	}
}
