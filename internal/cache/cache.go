// Package cache provides the in-process caches behind the web layer:
// bounded LRUs with TTL expiry, plus a Manager that sweeps them in the
// background so abandoned entries do not linger until their next read.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cleaner is implemented by caches that can drop expired entries on
// demand. The Manager sweeps every registered Cleaner.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs the periodic sweep shared by all caches in the process.
// Register caches first, then call StartCleanup once.
type Manager struct {
	caches   []Cleaner
	stop     chan struct{}
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

// NewManager returns a Manager with no registered caches.
func NewManager() *Manager {
	return &Manager{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Register adds a cache to the sweep rotation. Must not be called
// after StartCleanup.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// StartCleanup launches the background sweep goroutine.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.sweep(interval)
}

func (m *Manager) sweep(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := 0
			for _, c := range m.caches {
				removed += c.CleanExpired()
			}
			if removed > 0 {
				slog.Debug("Cache sweep removed expired entries", "removed", removed)
			}
		case <-m.stop:
			return
		}
	}
}

// Stop halts the sweep goroutine and waits for it to exit. Safe to
// call more than once, and a no-op when StartCleanup never ran.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		if m.started {
			<-m.done
		}
	})
}
