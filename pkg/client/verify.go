package client

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// VerifySignalPrefix is the filename prefix of the cross-context
// verification signal. An external flow (the -verify command invoked from
// the verification email) drops a file named VerifySignalPrefix + token
// into the state directory; the watcher consumes it.
const VerifySignalPrefix = "device_verified_"

// VerifyWatcher observes the state directory for verification signal
// files. Each token fires at most once; the signal file is removed when
// consumed.
type VerifyWatcher struct {
	dir     string
	watcher *fsnotify.Watcher

	mu   sync.Mutex
	subs map[string]func()

	logger   *log.Logger
	done     chan struct{}
	doneOnce sync.Once
}

// NewVerifyWatcher starts watching dir for signal files.
func NewVerifyWatcher(dir string) (*VerifyWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &VerifyWatcher{
		dir:     dir,
		watcher: fsw,
		subs:    make(map[string]func()),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// SetLogger sets a logger for debugging watcher events
func (w *VerifyWatcher) SetLogger(logger *log.Logger) {
	w.logger = logger
}

func (w *VerifyWatcher) logf(format string, args ...interface{}) {
	if w.logger != nil {
		w.logger.Printf(format, args...)
	}
}

func (w *VerifyWatcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if !strings.HasPrefix(name, VerifySignalPrefix) {
				continue
			}
			w.fire(strings.TrimPrefix(name, VerifySignalPrefix))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logf("watcher error: %v", err)
		}
	}
}

// fire consumes the signal for token: remove the file, run the
// subscription once, drop it.
func (w *VerifyWatcher) fire(token string) {
	w.mu.Lock()
	fn, ok := w.subs[token]
	if ok {
		delete(w.subs, token)
	}
	w.mu.Unlock()

	os.Remove(filepath.Join(w.dir, VerifySignalPrefix+token))
	if ok {
		w.logf("consumed verification signal for token %s", token)
		fn()
	}
}

// Subscribe registers fn to run once when the signal for token arrives.
// If the signal file already exists the subscription fires immediately
// (the external flow may have completed before we started listening). The
// returned cancel releases the subscription without firing.
func (w *VerifyWatcher) Subscribe(token string, fn func()) (cancel func(), err error) {
	w.mu.Lock()
	w.subs[token] = fn
	w.mu.Unlock()

	// Close the subscribe/signal race: the file may predate the
	// subscription.
	if _, statErr := os.Stat(filepath.Join(w.dir, VerifySignalPrefix+token)); statErr == nil {
		w.fire(token)
	}

	return func() {
		w.mu.Lock()
		delete(w.subs, token)
		w.mu.Unlock()
	}, nil
}

// Close stops the watcher. Pending subscriptions never fire.
func (w *VerifyWatcher) Close() error {
	w.doneOnce.Do(func() { close(w.done) })
	return w.watcher.Close()
}

// WriteVerifySignal drops the signal file for token into dir. This is the
// external half of the flow, invoked by the client binary's -verify flag.
func WriteVerifySignal(dir, token string) error {
	path := filepath.Join(dir, VerifySignalPrefix+token)
	if err := os.WriteFile(path, []byte("1"), 0600); err != nil {
		return fmt.Errorf("failed to write verification signal: %w", err)
	}
	return nil
}
