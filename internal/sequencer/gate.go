package sequencer

import (
	"context"
	"sync"
	"time"

	"github.com/muurk/easyremote/internal/ecp"
)

// DefaultGateDelay is how long a waiting operation sleeps between attempts to
// take the busy gate.
const DefaultGateDelay = 2 * time.Second

// Clock is the controller's only timing primitive.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep waits for d or until ctx is done.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	return ecp.SleepContext(ctx, d)
}

// gate is the process-wide busy flag. Holders run one command sequence at a
// time; waiters poll with a fixed delay.
type gate struct {
	mu   sync.Mutex
	busy bool
}

func (g *gate) tryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return false
	}
	g.busy = true
	return true
}

func (g *gate) release() {
	g.mu.Lock()
	g.busy = false
	g.mu.Unlock()
}

func (g *gate) held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}

// acquire spins until the gate is free or ctx is done.
func (g *gate) acquire(ctx context.Context, clock Clock, delay time.Duration) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if g.tryAcquire() {
			return nil
		}
		if err := clock.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}
