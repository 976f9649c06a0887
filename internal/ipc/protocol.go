package ipc

import (
	"context"
	"encoding/json"
	"fmt"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload     CommandType = "RELOAD"
	CommandGetStatus  CommandType = "GET_STATUS"
	CommandListItems  CommandType = "LIST_ITEMS"
	CommandRefresh    CommandType = "REFRESH"
	CommandMoveItem   CommandType = "MOVE_ITEM"
	CommandClickItem  CommandType = "CLICK_ITEM"
	CommandTempShow   CommandType = "TEMP_SHOW"
	CommandRehide     CommandType = "REHIDE"
	CommandForgetTemp CommandType = "FORGET_TEMP"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`

	// Code is the item operation error code, when the failure has one.
	Code string `json:"code,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	DaemonRunning bool     `json:"daemon_running"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	DisplayID     int      `json:"display_id"`
	ItemCounts    ItemsBy  `json:"item_counts"`
	TempShown     []string `json:"temp_shown,omitempty"`
	MovingRecent  bool     `json:"moving_recent"`
}

// ItemsBy counts items per section.
type ItemsBy struct {
	Visible      int `json:"visible"`
	Hidden       int `json:"hidden"`
	AlwaysHidden int `json:"always_hidden"`
}

// ItemInfo describes one cached menu bar item.
type ItemInfo struct {
	Tag         string `json:"tag"`
	Name        string `json:"name"`
	Section     string `json:"section"`
	WindowID    uint32 `json:"window_id"`
	OwnerPID    int    `json:"owner_pid"`
	SourcePID   int    `json:"source_pid,omitempty"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	OnScreen    bool   `json:"on_screen"`
	Movable     bool   `json:"movable"`
	CanBeHidden bool   `json:"can_be_hidden"`
	Control     bool   `json:"control,omitempty"`
}

// ItemsData represents the data returned by LIST_ITEMS
type ItemsData struct {
	DisplayID int        `json:"display_id"`
	Items     []ItemInfo `json:"items"`
}

type RefreshPayload struct {
	// Force rebuilds the cache even when the item order is unchanged.
	Force bool `json:"force,omitempty"`
}

type RefreshData struct {
	Refreshed bool `json:"refreshed"`
}

// MoveItemPayload moves Tag next to Target ("left"/"right") or into
// Section. Exactly one of Target and Section is set.
type MoveItemPayload struct {
	Tag       string `json:"tag"`
	Direction string `json:"direction,omitempty"`
	Target    string `json:"target,omitempty"`
	Section   string `json:"section,omitempty"`
}

type ClickItemPayload struct {
	Tag    string `json:"tag"`
	Button string `json:"button,omitempty"`
}

type TempShowPayload struct {
	Tag    string `json:"tag"`
	Button string `json:"button,omitempty"`
}

type ForgetTempPayload struct {
	Tag string `json:"tag"`
}

// Handler performs the commands the server receives.
type Handler interface {
	Status() StatusData
	ListItems() ItemsData
	Refresh(ctx context.Context, req RefreshPayload) (RefreshData, error)
	MoveItem(ctx context.Context, req MoveItemPayload) error
	ClickItem(ctx context.Context, req ClickItemPayload) error
	TempShow(ctx context.Context, req TempShowPayload) error
	Rehide(ctx context.Context) error
	ForgetTemp(req ForgetTempPayload) error
	Reload() error
}

// Coder is implemented by errors that carry an operation error code.
type Coder interface {
	ErrorCode() string
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
