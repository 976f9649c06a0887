package menubar

import (
	"context"
	"sync"
)

// taskSlot runs at most one task at a time. Submitting a task cancels the
// one in flight; the new task starts only after the old one has returned,
// and every submitter waits for whichever task is newest when it finishes.
//
// Tasks run under the slot's lifetime, not the submitter's context. A
// submitter's context only bounds its own wait.
type taskSlot struct {
	lifetime context.Context

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

func newTaskSlot(lifetime context.Context) *taskSlot {
	return &taskSlot{lifetime: lifetime}
}

func (s *taskSlot) run(ctx context.Context, fn func(context.Context)) error {
	base := s.lifetime
	if base == nil {
		base = context.Background()
	}
	taskCtx, cancel := context.WithCancel(base)
	done := make(chan struct{})

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	prev := s.done
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		if prev != nil {
			<-prev
		}
		if taskCtx.Err() != nil {
			return
		}
		fn(taskCtx)
	}()

	for {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		s.mu.Lock()
		if s.gen == gen {
			s.cancel = nil
			s.mu.Unlock()
			// The newest task only stops early when the slot is closed.
			return base.Err()
		}
		gen = s.gen
		done = s.done
		s.mu.Unlock()
	}
}
