package client

import (
	"context"

	"github.com/roomchat/roomchat/pkg/api"
)

// TransportInterface defines the interface for the room-scoped HTTP
// transport. This allows for mocking in tests while the real Transport
// implements all these methods. The transport has no retry logic; it
// surfaces success and failure verbatim.
type TransportInterface interface {
	// History fetches
	FetchPage(ctx context.Context, page int) (*api.HistoryResponse, error)
	FetchSince(ctx context.Context, sinceID int64) (*api.HistoryResponse, error)
	FetchBefore(ctx context.Context, beforeID int64) (*api.HistoryResponse, error)

	// Actions
	PostMessage(ctx context.Context, req api.SendRequest) (*api.SendResponse, error)
	PostDelete(ctx context.Context, id int64, req api.DeleteRequest) (*api.DeleteResponse, error)
	PostHeartbeat(ctx context.Context, clientID string) error
}

// StateInterface defines the interface for client identity persistence.
// This allows for mocking in tests while the real State implements all
// these methods.
type StateInterface interface {
	// Configuration
	GetConfig(key string) (string, error)
	SetConfig(key, value string) error

	// Identity
	DeviceID() (string, error)
	Nickname() string
	SetNickname(nickname string) error
	Email() string
	SetEmail(email string) error

	// State directory
	Dir() string

	// Close the state
	Close() error
}

// View is the render sink: the single mutation path for the displayed
// message log. Records are keyed by message id; Append and Prepend insert
// a batch atomically and skip ids already present, and Remove is a no-op
// when the id is absent. Heights and offsets are in view units (lines for
// the terminal view).
//
// Implementations must be safe for concurrent use: the sync engine
// serializes its own calls, but the poller and the UI share the view.
type View interface {
	Append(messages []api.Message)
	Prepend(messages []api.Message)
	Remove(id int64)

	// OldestID reports the id of the first (oldest) record, derived from
	// the view itself rather than tracked separately.
	OldestID() (int64, bool)

	ContentHeight() int
	ScrollOffset() int
	SetScrollOffset(offset int)
	ScrollToBottom()

	// NearBottom reports whether the viewport is within the near-bottom
	// threshold. Callers must sample this before starting a fetch.
	NearBottom() bool
}

// VerifySignal is the cross-context channel through which an out-of-band
// device verification is observed. Subscribe fires fn at most once when
// the signal for token arrives; the returned cancel func releases the
// subscription without firing.
type VerifySignal interface {
	Subscribe(token string, fn func()) (cancel func(), err error)
}
