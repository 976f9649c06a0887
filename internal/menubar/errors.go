package menubar

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveScreen is returned when no display hosts the menu bar.
	ErrNoActiveScreen = errors.New("no active menu bar screen")
	// ErrNoReturnDestination is returned when a temporarily shown item has
	// no neighbour to return to.
	ErrNoReturnDestination = errors.New("no return destination")
	// ErrNotEnoughRoom is returned when the visible section cannot fit an
	// item that should be shown.
	ErrNotEnoughRoom = errors.New("not enough room to show item")
	// ErrItemNotFound is returned when a tag matches no current item.
	ErrItemNotFound = errors.New("menu bar item not found")
	// ErrRehideDeferred is returned when some items could not be returned
	// and were scheduled for a later retry.
	ErrRehideDeferred = errors.New("rehide deferred")
)

// ErrorCode classifies an EventError.
type ErrorCode int

const (
	CodeCannotComplete ErrorCode = iota
	CodeEventCreationFailure
	CodeEventOperationFailure
	CodeEventOperationTimeout
	CodeIncorrectPositionAfterMove
	CodeInvalidEventSource
	CodeInvalidItem
	CodeItemNotMovable
	CodeItemResponseTimeout
	CodeMissingItemBounds
	CodeMissingMouseLocation
)

func (c ErrorCode) String() string {
	switch c {
	case CodeCannotComplete:
		return "cannotComplete"
	case CodeEventCreationFailure:
		return "eventCreationFailure"
	case CodeEventOperationFailure:
		return "eventOperationFailure"
	case CodeEventOperationTimeout:
		return "eventOperationTimeout"
	case CodeIncorrectPositionAfterMove:
		return "incorrectPositionAfterMove"
	case CodeInvalidEventSource:
		return "invalidEventSource"
	case CodeInvalidItem:
		return "invalidItem"
	case CodeItemNotMovable:
		return "itemNotMovable"
	case CodeItemResponseTimeout:
		return "itemResponseTimeout"
	case CodeMissingItemBounds:
		return "missingItemBounds"
	case CodeMissingMouseLocation:
		return "missingMouseLocation"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// EventError is a failure of a move or click, tagged with the item it
// concerned.
type EventError struct {
	Code ErrorCode
	Item Item
	Err  error
}

func newEventError(code ErrorCode, item Item, cause error) *EventError {
	return &EventError{Code: code, Item: item, Err: cause}
}

func (e *EventError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Item)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EventError) Unwrap() error { return e.Err }

// ErrorCode returns the code name, e.g. "itemNotMovable".
func (e *EventError) ErrorCode() string { return e.Code.String() }

// Is matches any EventError with the same code.
func (e *EventError) Is(target error) bool {
	t, ok := target.(*EventError)
	return ok && t.Code == e.Code
}

// Message is a description of the failure suitable for display.
func (e *EventError) Message() string {
	name := e.Item.DisplayName()
	switch e.Code {
	case CodeEventCreationFailure:
		return fmt.Sprintf("Failed to create event for %q", name)
	case CodeEventOperationFailure:
		return fmt.Sprintf("Event operation failed for %q", name)
	case CodeEventOperationTimeout:
		return fmt.Sprintf("Event operation timed out for %q", name)
	case CodeIncorrectPositionAfterMove:
		return fmt.Sprintf("%q has an incorrect position after being moved", name)
	case CodeInvalidEventSource:
		return fmt.Sprintf("Invalid event source for %q", name)
	case CodeInvalidItem:
		return fmt.Sprintf("%q is invalid", name)
	case CodeItemNotMovable:
		return fmt.Sprintf("%q is not movable", name)
	case CodeItemResponseTimeout:
		return fmt.Sprintf("Timeout waiting for response from %q", name)
	case CodeMissingItemBounds:
		return fmt.Sprintf("Missing screen bounds for %q", name)
	case CodeMissingMouseLocation:
		return fmt.Sprintf("Missing mouse location for %q", name)
	default:
		return fmt.Sprintf("Operation could not be completed for %q", name)
	}
}

// RecoverySuggestion is shown alongside Message.
func (e *EventError) RecoverySuggestion() string {
	return "Please try again. If the error persists, please file a bug report."
}

// HasCode reports whether err is an EventError with the given code.
func HasCode(err error, code ErrorCode) bool {
	return errors.Is(err, &EventError{Code: code})
}

// asEventError returns err unchanged if it is already an EventError and
// wraps it as cannotComplete otherwise.
func asEventError(err error, item Item) error {
	var ee *EventError
	if errors.As(err, &ee) {
		return err
	}
	return newEventError(CodeCannotComplete, item, err)
}
