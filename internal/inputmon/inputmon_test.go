package inputmon

import (
	"errors"
	"testing"
	"time"

	"github.com/1broseidon/traytile/internal/platform"
)

type scriptedSampler struct {
	state platform.PointerState
	err   error
	reads int
}

func (s *scriptedSampler) State() (platform.PointerState, error) {
	s.reads++
	return s.state, s.err
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker(s *scriptedSampler) (*Tracker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	tr := NewTracker(s, time.Millisecond, nil)
	tr.now = clock.now
	return tr, clock
}

func TestTrackerPausedFor(t *testing.T) {
	s := &scriptedSampler{}
	tr, clock := newTestTracker(s)

	tr.Sample()
	clock.advance(200 * time.Millisecond)
	if !tr.PausedFor(100 * time.Millisecond) {
		t.Fatalf("PausedFor() = false for a still pointer")
	}

	s.state.Location = platform.Point{X: 5, Y: 5}
	if tr.PausedFor(100 * time.Millisecond) {
		t.Fatalf("PausedFor() = true right after motion")
	}
	clock.advance(150 * time.Millisecond)
	if !tr.PausedFor(100 * time.Millisecond) {
		t.Fatalf("PausedFor() = false once the quiet window elapsed")
	}

	s.state.ModifierHeld = true
	clock.advance(time.Second)
	if tr.PausedFor(100 * time.Millisecond) {
		t.Fatalf("PausedFor() = true while a modifier is held")
	}
}

func TestTrackerSampleError(t *testing.T) {
	s := &scriptedSampler{err: errors.New("gone")}
	tr, clock := newTestTracker(s)
	clock.advance(time.Second)
	if !tr.PausedFor(100 * time.Millisecond) {
		t.Fatalf("PausedFor() = false when no sample ever succeeded")
	}
}

func TestTrackerStopIgnoresSynthesizedMotion(t *testing.T) {
	s := &scriptedSampler{}
	tr, clock := newTestTracker(s)
	tr.Sample()
	clock.advance(time.Second)

	tr.Stop()
	reads := s.reads
	s.state.Location = platform.Point{X: 300, Y: 2}
	tr.Sample()
	if s.reads != reads {
		t.Fatalf("sampled while stopped")
	}
	tr.Start()

	if !tr.PausedFor(100 * time.Millisecond) {
		t.Fatalf("motion made while stopped was counted as activity")
	}
}

type countingInjector struct{ stops, starts int }

func (c *countingInjector) Stop()  { c.stops++ }
func (c *countingInjector) Start() { c.starts++ }

func TestRegistryNesting(t *testing.T) {
	var r Registry
	a := &countingInjector{}
	r.Register(a)

	r.StopAll()
	r.StopAll()
	b := &countingInjector{}
	r.Register(b)
	r.StartAll()
	if a.starts != 0 || b.starts != 0 {
		t.Fatalf("inner StartAll restarted injectors")
	}
	r.StartAll()
	r.StartAll()

	for name, c := range map[string]*countingInjector{"a": a, "b": b} {
		if c.stops != 1 || c.starts != 1 {
			t.Fatalf("%s stops=%d starts=%d, want 1/1", name, c.stops, c.starts)
		}
	}
}
