package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/traytile/internal/runtimepath"
)

const (
	defaultTimeout = 5 * time.Second

	// operationTimeout covers commands that synthesize input. They may
	// wait for the user to stop typing or moving the pointer first.
	operationTimeout = 45 * time.Second
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for the daemon listening on socketPath.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    defaultTimeout,
	}
}

// RemoteError is a failure reported by the daemon.
type RemoteError struct {
	Message string
	Code    string
}

func (e *RemoteError) Error() string {
	return "daemon error: " + e.Message
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}

	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, &RemoteError{Message: resp.Error, Code: resp.Code}
	}

	return &resp, nil
}

func (c *Client) call(cmd CommandType, payload any, timeout time.Duration, out any) error {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}

	resp, err := c.sendRequest(req, timeout)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", cmd, err)
	}
	return nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, 0, nil)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, 0, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListItems retrieves the cached items in section order.
func (c *Client) ListItems() (*ItemsData, error) {
	var items ItemsData
	if err := c.call(CommandListItems, nil, 0, &items); err != nil {
		return nil, err
	}
	return &items, nil
}

// Refresh asks the daemon to rebuild its item cache.
func (c *Client) Refresh(force bool) (*RefreshData, error) {
	var data RefreshData
	if err := c.call(CommandRefresh, RefreshPayload{Force: force}, 0, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// MoveItem moves an item next to another item or into a section.
func (c *Client) MoveItem(p MoveItemPayload) error {
	return c.call(CommandMoveItem, p, operationTimeout, nil)
}

// ClickItem clicks an item with the named button.
func (c *Client) ClickItem(tag, button string) error {
	return c.call(CommandClickItem, ClickItemPayload{Tag: tag, Button: button}, operationTimeout, nil)
}

// TempShow temporarily shows a hidden item and clicks it.
func (c *Client) TempShow(tag, button string) error {
	return c.call(CommandTempShow, TempShowPayload{Tag: tag, Button: button}, operationTimeout, nil)
}

// Rehide returns temporarily shown items to their sections now.
func (c *Client) Rehide() error {
	return c.call(CommandRehide, nil, operationTimeout, nil)
}

// ForgetTemp drops an item from the temporarily shown list without moving
// it back.
func (c *Client) ForgetTemp(tag string) error {
	return c.call(CommandForgetTemp, ForgetTempPayload{Tag: tag}, 0, nil)
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
