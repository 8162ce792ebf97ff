package client

import (
	"sync"

	"github.com/roomchat/roomchat/pkg/api"
)

// MockView is a test implementation of View. It models the viewport as a
// window of viewHeight lines over one line per message, which makes
// scroll arithmetic exact in tests.
type MockView struct {
	mu sync.Mutex

	msgs    []api.Message
	present map[int64]bool

	viewHeight   int
	scrollOffset int
	nearLines    int
}

// NewMockView creates a mock view with a window of viewHeight lines and a
// near-bottom threshold of nearLines.
func NewMockView(viewHeight, nearLines int) *MockView {
	return &MockView{
		present:    make(map[int64]bool),
		viewHeight: viewHeight,
		nearLines:  nearLines,
	}
}

// Append adds messages to the bottom, skipping ids already rendered
func (v *MockView) Append(messages []api.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, m := range messages {
		if v.present[m.ID] {
			continue
		}
		v.present[m.ID] = true
		v.msgs = append(v.msgs, m)
	}
}

// Prepend adds messages to the top, skipping ids already rendered
func (v *MockView) Prepend(messages []api.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fresh := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		if v.present[m.ID] {
			continue
		}
		v.present[m.ID] = true
		fresh = append(fresh, m)
	}
	v.msgs = append(fresh, v.msgs...)
}

// Remove deletes the record with the given id; no-op if absent
func (v *MockView) Remove(id int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.present[id] {
		return
	}
	delete(v.present, id)
	for i, m := range v.msgs {
		if m.ID == id {
			v.msgs = append(v.msgs[:i], v.msgs[i+1:]...)
			break
		}
	}
}

// OldestID returns the id of the first record
func (v *MockView) OldestID() (int64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.msgs) == 0 {
		return 0, false
	}
	return v.msgs[0].ID, true
}

// ContentHeight returns the total content height (one line per message)
func (v *MockView) ContentHeight() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.msgs)
}

// ScrollOffset returns the current scroll offset
func (v *MockView) ScrollOffset() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scrollOffset
}

// SetScrollOffset sets the scroll offset, clamped to valid range
func (v *MockView) SetScrollOffset(offset int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrollOffset = v.clamp(offset)
}

// ScrollToBottom pins the window to the newest content
func (v *MockView) ScrollToBottom() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrollOffset = v.clamp(len(v.msgs) - v.viewHeight)
}

// NearBottom reports whether the window is within the near-bottom threshold
func (v *MockView) NearBottom() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	below := len(v.msgs) - (v.scrollOffset + v.viewHeight)
	return below <= v.nearLines
}

func (v *MockView) clamp(offset int) int {
	max := len(v.msgs) - v.viewHeight
	if max < 0 {
		max = 0
	}
	if offset > max {
		return max
	}
	if offset < 0 {
		return 0
	}
	return offset
}

// Messages returns a copy of the rendered records, oldest first
func (v *MockView) Messages() []api.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]api.Message, len(v.msgs))
	copy(out, v.msgs)
	return out
}

// IDs returns the rendered ids, oldest first
func (v *MockView) IDs() []int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	ids := make([]int64, len(v.msgs))
	for i, m := range v.msgs {
		ids[i] = m.ID
	}
	return ids
}

// TopVisibleID returns the id of the record on the window's first line
func (v *MockView) TopVisibleID() (int64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.scrollOffset >= len(v.msgs) || len(v.msgs) == 0 {
		return 0, false
	}
	return v.msgs[v.scrollOffset].ID, true
}
