package server

import (
	"context"
	"sync"
	"time"
)

// Presence tracks which clients have sent a heartbeat recently. It backs
// the active-clients gauge; the timeout is three missed heartbeat
// intervals on the default client settings.
type Presence struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	timeout time.Duration
}

// NewPresence creates a presence tracker with the given timeout.
func NewPresence(timeout time.Duration) *Presence {
	return &Presence{
		seen:    make(map[string]time.Time),
		timeout: timeout,
	}
}

// Touch records a heartbeat from clientID.
func (p *Presence) Touch(clientID string) {
	if clientID == "" {
		return
	}
	p.mu.Lock()
	p.seen[clientID] = time.Now()
	activeClients.Set(float64(len(p.seen)))
	p.mu.Unlock()
}

// ActiveCount reports the number of clients inside the timeout window.
func (p *Presence) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := time.Now().Add(-p.timeout)
	count := 0
	for _, last := range p.seen {
		if last.After(cutoff) {
			count++
		}
	}
	return count
}

// Run sweeps expired clients until ctx is cancelled.
func (p *Presence) Run(ctx context.Context) {
	interval := p.timeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

func (p *Presence) sweep() {
	p.mu.Lock()
	cutoff := time.Now().Add(-p.timeout)
	for id, last := range p.seen {
		if last.Before(cutoff) {
			delete(p.seen, id)
		}
	}
	activeClients.Set(float64(len(p.seen)))
	p.mu.Unlock()
}
