package lifecycle

import (
	"context"
	"sync"
)

// LoopRunner provides a reusable start/stop lifecycle for a blocking loop
// driven by a context. Start and Stop are idempotent; Stop cancels the loop
// and waits for it to return.
type LoopRunner struct {
	mu      sync.RWMutex
	wg      sync.WaitGroup
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

func NewLoopRunner() *LoopRunner {
	return &LoopRunner{}
}

// Start runs loop in a new goroutine. It reports false when loop is nil or
// a loop is already running.
func (r *LoopRunner) Start(ctx context.Context, loop func(ctx context.Context) error) bool {
	if loop == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	r.err = nil
	r.running = true
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		err := loop(loopCtx)

		r.mu.Lock()
		r.err = err
		r.running = false
		r.mu.Unlock()
		cancel()
		close(done)
	}()
	return true
}

// Stop cancels the running loop and waits for it. It reports false when
// nothing was running.
func (r *LoopRunner) Stop() bool {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return false
	}
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
	return true
}

// Done is closed when the current loop returns. It is nil before Start.
func (r *LoopRunner) Done() <-chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.done
}

// Err is the value returned by the last finished loop.
func (r *LoopRunner) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

func (r *LoopRunner) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}
