package client

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	// DefaultPollInterval is how often the engine checks for new messages.
	DefaultPollInterval = 3 * time.Second
	// DefaultHeartbeatInterval is how often presence is reported.
	DefaultHeartbeatInterval = 30 * time.Second
)

// Poller drives the two fixed-interval timers: the new-message poll and
// the heartbeat. Polling cooperates with the engine's guards by
// construction; new syncs never contend with history loads.
type Poller struct {
	engine    *SyncEngine
	transport TransportInterface
	clientID  string

	pollInterval      time.Duration
	heartbeatInterval time.Duration

	// OnNewMessages, when set, runs after every poll that changed
	// lastMessageID. The UI uses it to repaint and notify.
	OnNewMessages func()

	logger   *log.Logger
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPoller creates a poller for the engine. clientID is the device id
// reported in heartbeats.
func NewPoller(engine *SyncEngine, transport TransportInterface, clientID string) *Poller {
	return &Poller{
		engine:            engine,
		transport:         transport,
		clientID:          clientID,
		pollInterval:      DefaultPollInterval,
		heartbeatInterval: DefaultHeartbeatInterval,
		stop:              make(chan struct{}),
	}
}

// SetIntervals overrides both timer intervals. Must be called before Start.
func (p *Poller) SetIntervals(poll, heartbeat time.Duration) {
	p.pollInterval = poll
	p.heartbeatInterval = heartbeat
}

// SetLogger sets a logger for debugging poll events
func (p *Poller) SetLogger(logger *log.Logger) {
	p.logger = logger
}

func (p *Poller) logf(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}

// Start launches both timer loops. Background fetch errors are logged and
// otherwise silent; the next tick retries naturally.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(2)

	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				before := p.engine.LastMessageID()
				if err := p.engine.Sync(ctx, ModeNew); err != nil {
					p.logf("poll tick failed: %v", err)
					continue
				}
				if p.OnNewMessages != nil && p.engine.LastMessageID() > before {
					p.OnNewMessages()
				}
			}
		}
	}()

	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.transport.PostHeartbeat(ctx, p.clientID); err != nil {
					p.logf("heartbeat failed: %v", err)
				}
			}
		}
	}()
}

// Stop halts both timers and waits for the loops to exit.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}
