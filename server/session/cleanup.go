package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is the default interval between sweep runs.
const DefaultSweepInterval = 10 * time.Minute

// Sweeper periodically removes expired sessions. Expiry is already checked
// lazily on access; the sweep only reclaims memory for sessions nobody
// touches again.
type Sweeper struct {
	store    Store
	interval time.Duration

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
}

// NewSweeper creates a sweeper. A non-positive interval uses the default.
func NewSweeper(store Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{store: store, interval: interval}
}

// Start begins the periodic sweep in a goroutine. Idempotent.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})

	go s.run(ctx)

	slog.Info("session sweeper started", "interval", s.interval)
}

// Stop stops the sweeper.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopChan)
	s.running = false

	slog.Info("session sweeper stopped")
}

// RunOnce executes a single sweep immediately.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	return s.store.CleanupExpired(ctx)
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			if removed, err := s.store.CleanupExpired(ctx); err != nil {
				slog.Error("session sweep failed", "error", err)
			} else if removed > 0 {
				slog.Info("session sweep completed", "removed", removed)
			}
		}
	}
}

// IsRunning reports whether the sweeper is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
