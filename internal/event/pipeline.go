package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrPipelineClosed is returned by Post after Run has returned.
var ErrPipelineClosed = errors.New("event pipeline closed")

// Pipeline is an in-process Dispatcher. Posted events are queued and
// dispatched by Run on a single goroutine: taps at the event's location run
// in placement order, an event that survives them is handed to the Sink,
// and listen-only taps then observe it.
type Pipeline struct {
	sink   Sink
	logger *slog.Logger

	mu     sync.Mutex
	taps   []*pipelineTap
	queue  []posted
	closed bool
	wake   chan struct{}
}

type posted struct {
	ev  *Event
	loc Location
}

type pipelineTap struct {
	spec    TapSpec
	fn      TapFunc
	owner   *Pipeline
	enabled atomic.Bool
	removed atomic.Bool
}

var _ Dispatcher = (*Pipeline)(nil)

// NewPipeline creates a pipeline delivering surviving events to sink.
// A nil sink drops them.
func NewPipeline(sink Sink, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		sink:   sink,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// NewTap installs a disabled tap.
func (p *Pipeline) NewTap(spec TapSpec, fn TapFunc) (Tap, error) {
	if fn == nil {
		return nil, fmt.Errorf("tap %q: nil handler", spec.Label)
	}
	if len(spec.Types) == 0 {
		return nil, fmt.Errorf("tap %q: no event types", spec.Label)
	}

	t := &pipelineTap{spec: spec, fn: fn, owner: p}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPipelineClosed
	}
	if spec.Placement == HeadInsert {
		p.taps = append([]*pipelineTap{t}, p.taps...)
	} else {
		p.taps = append(p.taps, t)
	}
	return t, nil
}

// Post queues ev for dispatch at loc.
func (p *Pipeline) Post(ev *Event, loc Location) error {
	if ev == nil {
		return errors.New("post: nil event")
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPipelineClosed
	}
	p.queue = append(p.queue, posted{ev: ev, loc: loc})
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run dispatches queued events until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Debug("event pipeline started")
	defer func() {
		p.mu.Lock()
		p.closed = true
		p.queue = nil
		p.mu.Unlock()
		p.logger.Debug("event pipeline stopped")
	}()

	for {
		for {
			next, ok := p.pop()
			if !ok {
				break
			}
			p.dispatch(next)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.wake:
		}
	}
}

// TapCount returns the number of installed taps.
func (p *Pipeline) TapCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.taps)
}

func (p *Pipeline) pop() (posted, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return posted{}, false
	}
	next := p.queue[0]
	p.queue[0] = posted{}
	p.queue = p.queue[1:]
	return next, true
}

func (p *Pipeline) tapsAt(loc Location, t Type) (filters, listeners []*pipelineTap) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, tap := range p.taps {
		if tap.spec.Location != loc || !tap.spec.handles(t) {
			continue
		}
		if tap.spec.ListenOnly {
			listeners = append(listeners, tap)
		} else {
			filters = append(filters, tap)
		}
	}
	return filters, listeners
}

func (p *Pipeline) dispatch(next posted) {
	defer func() {
		if err := recover(); err != nil {
			p.logger.Error("event dispatch panic recovered", "event", next.ev.String(), "error", err)
		}
	}()

	ev := next.ev
	filters, listeners := p.tapsAt(next.loc, ev.Type)

	for _, tap := range filters {
		if !tap.active() {
			continue
		}
		ev = tap.fn(tap, ev)
		if ev == nil {
			return
		}
	}

	if ev.Type != TypeNull && p.sink != nil {
		if err := p.sink.Deliver(ev, next.loc); err != nil {
			p.logger.Warn("event delivery failed", "event", ev.String(), "location", next.loc.String(), "error", err)
			return
		}
	}

	for _, tap := range listeners {
		if tap.active() {
			tap.fn(tap, ev)
		}
	}
}

func (p *Pipeline) remove(t *pipelineTap) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, tap := range p.taps {
		if tap == t {
			p.taps = append(p.taps[:i], p.taps[i+1:]...)
			return
		}
	}
}

func (t *pipelineTap) active() bool {
	return t.enabled.Load() && !t.removed.Load()
}

func (t *pipelineTap) Enable() {
	if !t.removed.Load() {
		t.enabled.Store(true)
	}
}

func (t *pipelineTap) Disable() {
	t.enabled.Store(false)
	if t.removed.CompareAndSwap(false, true) {
		t.owner.remove(t)
	}
}
