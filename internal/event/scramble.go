package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrTimeout is returned when the handshake does not finish in time.
	ErrTimeout = errors.New("event handshake timed out")
	// ErrTapCreation is returned when an interception tap cannot be installed.
	ErrTapCreation = errors.New("failed to create event tap")
	// ErrPost is returned when the dispatcher rejects a post.
	ErrPost = errors.New("failed to post event")
)

// Scramble posts ev to the delivery location to and waits until it has been
// observed there count times.
//
// Two sentinel null events drive the cycle. A tap at from swallows the entry
// sentinel and forwards ev to to; a listen-only tap at to sees ev after
// delivery and either re-posts entry or, once the repeat counter reaches
// zero, posts exit, which the first tap turns into completion. The whole
// exchange is bounded by timeout*count. Both taps are disabled before
// Scramble returns.
func Scramble(ctx context.Context, d Dispatcher, ev *Event, from, to Location, timeout time.Duration, count int) error {
	if count < 1 {
		count = 1
	}

	entry := UniqueNull()
	exit := UniqueNull()

	var remaining atomic.Int64
	remaining.Store(int64(count))

	done := make(chan struct{})
	var once sync.Once
	finish := func() { once.Do(func() { close(done) }) }

	failed := make(chan error, 1)
	fail := func(err error) {
		select {
		case failed <- err:
		default:
		}
	}

	post := func(e *Event, loc Location) {
		if err := d.Post(e, loc); err != nil {
			fail(fmt.Errorf("%w: %s to %s: %v", ErrPost, e.Type, loc, err))
		}
	}

	entryTap, err := d.NewTap(TapSpec{
		Label:     "scramble.entry",
		Location:  from,
		Types:     []Type{TypeNull},
		Placement: HeadInsert,
	}, func(tap Tap, e *Event) *Event {
		switch {
		case e.Matches(entry):
			remaining.Add(-1)
			post(ev, to)
			return nil
		case e.Matches(exit):
			tap.Disable()
			finish()
			return nil
		}
		return e
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTapCreation, err)
	}
	defer entryTap.Disable()

	exitTap, err := d.NewTap(TapSpec{
		Label:      "scramble.exit",
		Location:   to,
		Types:      []Type{ev.Type},
		Placement:  TailAppend,
		ListenOnly: true,
	}, func(tap Tap, e *Event) *Event {
		if !e.Matches(ev) {
			return e
		}
		if remaining.Load() <= 0 {
			tap.Disable()
			post(exit, from)
		} else {
			post(entry, from)
		}
		return e
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTapCreation, err)
	}
	defer exitTap.Disable()

	waitCtx, cancel := context.WithTimeout(ctx, timeout*time.Duration(count))
	defer cancel()

	entryTap.Enable()
	exitTap.Enable()
	post(entry, from)

	select {
	case <-done:
		return nil
	case err := <-failed:
		return err
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTimeout
	}
}
