package client

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/roomchat/roomchat/pkg/api"
)

// SyncMode selects which end of the log a sync reconciles.
type SyncMode int

const (
	// ModeInitial loads the first page into an empty view and pins the
	// viewport to the bottom.
	ModeInitial SyncMode = iota
	// ModeOlder extends the view upward from the oldest loaded record,
	// preserving the scroll position.
	ModeOlder
	// ModeNew appends everything past the newest rendered record.
	ModeNew
)

// DefaultFetchTimeout bounds each history fetch so a hung request can
// never leave the loading guard held forever.
const DefaultFetchTimeout = 10 * time.Second

// SyncEngine reconciles the local view of a room's append-only message log
// against the server. It owns the cursors and the single-flight loading
// guard; all view mutations it performs go through the View interface.
//
// Initial and older syncs share the loading guard. New syncs never touch
// it: a new fetch and an older fetch work on disjoint ends of the view and
// may overlap safely.
type SyncEngine struct {
	mu        sync.Mutex
	transport TransportInterface
	view      View

	lastMessageID  int64 // Largest id ever rendered via initial/new; never decreases
	hasMoreOlder   bool  // False permanently once an older fetch comes back empty
	olderExhausted bool  // Set by the empty older fetch; survives re-running initial
	loading        bool  // Single-flight guard for initial/older

	fetchTimeout time.Duration
	logger       *log.Logger
}

// NewSyncEngine creates a sync engine for one room's view.
func NewSyncEngine(transport TransportInterface, view View) *SyncEngine {
	return &SyncEngine{
		transport:    transport,
		view:         view,
		hasMoreOlder: true,
		fetchTimeout: DefaultFetchTimeout,
	}
}

// SetLogger sets a logger for debugging sync events
func (e *SyncEngine) SetLogger(logger *log.Logger) {
	e.logger = logger
}

// SetFetchTimeout overrides the per-fetch timeout.
func (e *SyncEngine) SetFetchTimeout(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fetchTimeout = d
}

func (e *SyncEngine) logf(format string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

// LastMessageID returns the largest id ever rendered via initial or new
// syncs.
func (e *SyncEngine) LastMessageID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastMessageID
}

// HasMoreOlder reports whether older history may still exist server-side.
func (e *SyncEngine) HasMoreOlder() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasMoreOlder
}

// Loading reports whether an initial or older sync is in flight.
func (e *SyncEngine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// Sync reconciles the view in the given mode. Guarded modes (initial,
// older) return nil immediately when a guarded sync is already in flight.
// Fetch failures leave all cursor state unchanged; the loading guard is
// released on every exit path.
func (e *SyncEngine) Sync(ctx context.Context, mode SyncMode) error {
	switch mode {
	case ModeInitial:
		return e.syncInitial(ctx)
	case ModeOlder:
		return e.syncOlder(ctx)
	case ModeNew:
		return e.syncNew(ctx)
	}
	return nil
}

func (e *SyncEngine) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	e.mu.Lock()
	timeout := e.fetchTimeout
	e.mu.Unlock()
	return context.WithTimeout(ctx, timeout)
}

func (e *SyncEngine) clearLoading() {
	e.mu.Lock()
	e.loading = false
	e.mu.Unlock()
}

func (e *SyncEngine) syncInitial(ctx context.Context) error {
	e.mu.Lock()
	if e.loading {
		e.mu.Unlock()
		return nil
	}
	e.loading = true
	e.mu.Unlock()
	defer e.clearLoading()

	fctx, cancel := e.bound(ctx)
	defer cancel()

	page, err := e.transport.FetchPage(fctx, 1)
	if err != nil {
		e.logf("initial sync failed: %v", err)
		return err
	}

	// Server returns newest first; the view wants oldest first. Sort by
	// id rather than reversing blindly.
	msgs := sortByID(page.Messages)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.view.Append(msgs)
	if n := len(msgs); n > 0 && msgs[n-1].ID > e.lastMessageID {
		e.lastMessageID = msgs[n-1].ID
	}
	e.hasMoreOlder = page.HasNext && !e.olderExhausted
	e.view.ScrollToBottom()
	return nil
}

func (e *SyncEngine) syncOlder(ctx context.Context) error {
	e.mu.Lock()
	if e.loading || !e.hasMoreOlder {
		e.mu.Unlock()
		return nil
	}
	// Capture the prepend boundary before the request goes out. A
	// concurrent reload finishing first must not shift it under us.
	oldest, ok := e.view.OldestID()
	if !ok {
		e.mu.Unlock()
		return nil
	}
	e.loading = true
	e.mu.Unlock()
	defer e.clearLoading()

	fctx, cancel := e.bound(ctx)
	defer cancel()

	page, err := e.transport.FetchBefore(fctx, oldest)
	if err != nil {
		e.logf("older sync failed: %v", err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(page.Messages) == 0 {
		// The log is append-only: once the history is exhausted it
		// stays exhausted for the session.
		e.hasMoreOlder = false
		e.olderExhausted = true
		return nil
	}

	msgs := filterBelow(sortByID(page.Messages), oldest)
	if len(msgs) > 0 {
		heightBefore := e.view.ContentHeight()
		offsetBefore := e.view.ScrollOffset()
		e.view.Prepend(msgs)
		// Content grew upward; shift the offset by the delta so the
		// record that was topmost stays visually fixed.
		e.view.SetScrollOffset(offsetBefore + e.view.ContentHeight() - heightBefore)
	}
	e.hasMoreOlder = page.HasNext
	if !page.HasNext {
		// A before query that reports no continuation has walked to the
		// start of the log.
		e.olderExhausted = true
	}
	return nil
}

func (e *SyncEngine) syncNew(ctx context.Context) error {
	e.mu.Lock()
	since := e.lastMessageID
	// Sampled before the fetch: a concurrent older prepend changes the
	// geometry, and measuring afterwards would race against it.
	wasNearBottom := e.view.NearBottom()
	e.mu.Unlock()

	fctx, cancel := e.bound(ctx)
	defer cancel()

	page, err := e.transport.FetchSince(fctx, since)
	if err != nil {
		e.logf("new sync failed: %v", err)
		return err
	}
	if len(page.Messages) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Another new fetch may have landed while this one was in flight;
	// refilter against the current cursor so ids render at most once.
	msgs := filterAbove(sortByID(page.Messages), e.lastMessageID)
	if len(msgs) == 0 {
		return nil
	}

	e.view.Append(msgs)
	if last := msgs[len(msgs)-1].ID; last > e.lastMessageID {
		e.lastMessageID = last
	}
	if wasNearBottom {
		e.view.ScrollToBottom()
	}
	return nil
}

// sortByID returns a copy of msgs in ascending id order, whatever order
// the server sent them in.
func sortByID(msgs []api.Message) []api.Message {
	out := make([]api.Message, len(msgs))
	copy(out, msgs)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func filterBelow(msgs []api.Message, boundary int64) []api.Message {
	out := msgs[:0]
	for _, m := range msgs {
		if m.ID < boundary {
			out = append(out, m)
		}
	}
	return out
}

func filterAbove(msgs []api.Message, boundary int64) []api.Message {
	out := msgs[:0]
	for _, m := range msgs {
		if m.ID > boundary {
			out = append(out, m)
		}
	}
	return out
}
