// Package xinput delivers synthetic pointer events to the X server through
// the XTest extension.
package xinput

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/traytile/internal/event"
	"github.com/1broseidon/traytile/internal/x11"
)

// commandKey is the keysym held while FlagCommand is set. Trays that
// support rearranging icons treat Super+drag as a move.
const commandKey = "Super_L"

// Device is the subset of the X connection used to fake input.
type Device interface {
	FakeMotion(x, y int) error
	FakeButton(button byte, press bool) error
	FakeKey(name string, press bool) error
	SetImpervious(impervious bool) error
	Sync() error
}

var _ Device = (*x11.Connection)(nil)

// Sink writes events to the X server. It implements event.Sink.
type Sink struct {
	dev    Device
	logger *slog.Logger

	mu          sync.Mutex
	commandHeld bool
}

var _ event.Sink = (*Sink)(nil)

// NewSink creates a sink over dev.
func NewSink(dev Device, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{dev: dev, logger: logger}
}

// Deliver moves the pointer to the event location and presses or releases
// its button. X has no per-process routing so the location is ignored.
func (s *Sink) Deliver(ev *event.Event, _ event.Location) error {
	if ev == nil || ev.Type == event.TypeNull {
		return nil
	}
	button, err := xButton(ev.Button)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.dev.FakeMotion(ev.Location.X, ev.Location.Y); err != nil {
		return fmt.Errorf("fake motion: %w", err)
	}

	switch {
	case ev.Type.IsButtonDown():
		if ev.Flags&event.FlagCommand != 0 && !s.commandHeld {
			if err := s.dev.FakeKey(commandKey, true); err != nil {
				return fmt.Errorf("press %s: %w", commandKey, err)
			}
			s.commandHeld = true
		}
		if err := s.dev.FakeButton(button, true); err != nil {
			return fmt.Errorf("press button %d: %w", button, err)
		}
	case ev.Type.IsButtonUp():
		err := s.dev.FakeButton(button, false)
		s.releaseCommand()
		if err != nil {
			return fmt.Errorf("release button %d: %w", button, err)
		}
	}

	return s.dev.Sync()
}

// releaseCommand lets go of the command key if a previous down pressed it.
// Caller holds mu.
func (s *Sink) releaseCommand() {
	if !s.commandHeld {
		return
	}
	if err := s.dev.FakeKey(commandKey, false); err != nil {
		s.logger.Warn("release command key failed", "error", err)
		return
	}
	s.commandHeld = false
}

func xButton(b event.Button) (byte, error) {
	switch b {
	case event.ButtonLeft:
		return x11.ButtonLeft, nil
	case event.ButtonRight:
		return x11.ButtonRight, nil
	case event.ButtonCenter:
		return x11.ButtonMiddle, nil
	default:
		return 0, fmt.Errorf("unsupported button %s", b)
	}
}

// Suppressor keeps synthetic input flowing while another client holds a
// server grab.
type Suppressor struct {
	dev Device
}

// NewSuppressor creates a suppressor over dev.
func NewSuppressor(dev Device) *Suppressor {
	return &Suppressor{dev: dev}
}

// PermitAllEvents makes this connection impervious to grabs.
func (s *Suppressor) PermitAllEvents() error {
	return s.dev.SetImpervious(true)
}
