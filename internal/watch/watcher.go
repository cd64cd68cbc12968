// Package watch detects ports appearing and disappearing by polling the host.
package watch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/leandrodaf/midiwatch/sdk/contracts"
)

// DefaultInterval is used when no poll interval is configured.
const DefaultInterval = time.Second

// ErrScanTimeout is returned when the host takes too long to list ports.
var ErrScanTimeout = errors.New("port scan timed out")

// Lister returns the ports currently known to the host.
type Lister func() ([]contracts.DeviceInfo, error)

// Watcher diffs successive port listings and reports connects and disconnects.
type Watcher struct {
	list     Lister
	notify   func(contracts.StateChange)
	logger   contracts.Logger
	interval time.Duration
	timeout  time.Duration

	mu    sync.Mutex
	known map[string]contracts.DeviceInfo

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Watcher. A non-positive interval falls back to DefaultInterval.
func New(list Lister, interval time.Duration, logger contracts.Logger, notify func(contracts.StateChange)) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		list:     list,
		notify:   notify,
		logger:   logger,
		interval: interval,
		timeout:  3 * time.Second,
	}
}

// Prime records the current ports without reporting them.
func (w *Watcher) Prime() error {
	ports, err := w.fetch()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.known = index(ports)
	return nil
}

// Scan lists the ports once and reports every difference from the last scan.
// Connections are reported before disconnections, each group ordered by port key.
func (w *Watcher) Scan() error {
	ports, err := w.fetch()
	if err != nil {
		return err
	}
	seen := index(ports)

	w.mu.Lock()
	previous := w.known
	w.known = seen
	w.mu.Unlock()

	for _, key := range sortedKeys(seen) {
		if _, ok := previous[key]; !ok {
			w.notify(contracts.StateChange{Port: seen[key], State: contracts.Connected})
		}
	}
	for _, key := range sortedKeys(previous) {
		if _, ok := seen[key]; !ok {
			w.notify(contracts.StateChange{Port: previous[key], State: contracts.Disconnected})
		}
	}
	return nil
}

// Start primes the watcher and polls in the background until Stop is called
// or ctx is done. Calling Start on a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	if err := w.Prime(); err != nil {
		w.logger.Warn("initial port scan failed", w.logger.Field().Error("error", err))
	}

	go w.run(ctx)
	return nil
}

// Stop ends background polling and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Scan(); err != nil {
				w.logger.Warn("port scan failed", w.logger.Field().Error("error", err))
			}
		}
	}
}

// fetch runs the lister with a timeout; some hosts hang while enumerating.
func (w *Watcher) fetch() ([]contracts.DeviceInfo, error) {
	type result struct {
		ports []contracts.DeviceInfo
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		ports, err := w.list()
		ch <- result{ports, err}
	}()

	select {
	case r := <-ch:
		return r.ports, r.err
	case <-time.After(w.timeout):
		return nil, ErrScanTimeout
	}
}

func index(ports []contracts.DeviceInfo) map[string]contracts.DeviceInfo {
	m := make(map[string]contracts.DeviceInfo, len(ports))
	for _, p := range ports {
		m[p.Key()] = p
	}
	return m
}

func sortedKeys(m map[string]contracts.DeviceInfo) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
