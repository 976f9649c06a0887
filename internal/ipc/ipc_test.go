package ipc

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

type codedErr struct{ code string }

func (e codedErr) Error() string     { return "failed: " + e.code }
func (e codedErr) ErrorCode() string { return e.code }

type fakeHandler struct {
	mu      sync.Mutex
	moved   []MoveItemPayload
	clicked []ClickItemPayload
	forced  bool
	failOp  error
	reloads int
	blockCh chan struct{}
}

func (h *fakeHandler) Status() StatusData {
	return StatusData{DaemonRunning: true, DisplayID: 3, ItemCounts: ItemsBy{Visible: 2, Hidden: 1}}
}

func (h *fakeHandler) ListItems() ItemsData {
	return ItemsData{DisplayID: 3, Items: []ItemInfo{{Tag: "app:clock", Section: "visible"}}}
}

func (h *fakeHandler) Refresh(_ context.Context, p RefreshPayload) (RefreshData, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.forced = p.Force
	return RefreshData{Refreshed: true}, nil
}

func (h *fakeHandler) MoveItem(_ context.Context, p MoveItemPayload) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.moved = append(h.moved, p)
	return h.failOp
}

func (h *fakeHandler) ClickItem(ctx context.Context, p ClickItemPayload) error {
	h.mu.Lock()
	h.clicked = append(h.clicked, p)
	h.mu.Unlock()
	if h.blockCh != nil {
		close(h.blockCh)
		<-ctx.Done()
		return ctx.Err()
	}
	return h.failOp
}

func (h *fakeHandler) TempShow(context.Context, TempShowPayload) error { return h.failOp }
func (h *fakeHandler) Rehide(context.Context) error                    { return nil }
func (h *fakeHandler) ForgetTemp(ForgetTempPayload) error              { return nil }

func (h *fakeHandler) Reload() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reloads++
	return nil
}

func (h *fakeHandler) moves() []MoveItemPayload {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]MoveItemPayload(nil), h.moved...)
}

func startServer(t *testing.T, h Handler) (*Server, *Client) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "traytile.sock")
	srv := NewServerAt(path, h)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, NewClientAt(path)
}

func TestClientServerRoundTrip(t *testing.T) {
	h := &fakeHandler{}
	_, c := startServer(t, h)

	status, err := c.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if !status.DaemonRunning || status.ItemCounts.Visible != 2 {
		t.Fatalf("unexpected status %+v", status)
	}

	items, err := c.ListItems()
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items.Items) != 1 || items.Items[0].Tag != "app:clock" {
		t.Fatalf("unexpected items %+v", items)
	}

	data, err := c.Refresh(true)
	h.mu.Lock()
	forced := h.forced
	h.mu.Unlock()
	if err != nil || !data.Refreshed || !forced {
		t.Fatalf("Refresh() = %+v, %v (forced=%v)", data, err, forced)
	}

	move := MoveItemPayload{Tag: "app:clock", Direction: "left", Target: "app:wifi"}
	if err := c.MoveItem(move); err != nil {
		t.Fatalf("MoveItem() error = %v", err)
	}
	if moved := h.moves(); len(moved) != 1 || moved[0] != move {
		t.Fatalf("handler saw moves %+v", moved)
	}

	if err := c.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.reloads != 1 {
		t.Fatalf("reloads = %d, want 1", h.reloads)
	}
}

func TestServerReportsErrorCode(t *testing.T) {
	h := &fakeHandler{failOp: codedErr{code: "itemNotMovable"}}
	_, c := startServer(t, h)

	err := c.ClickItem("app:clock", "right")
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("ClickItem() error = %v, want RemoteError", err)
	}
	if remote.Code != "itemNotMovable" {
		t.Fatalf("Code = %q", remote.Code)
	}
}

func TestServerValidatesPayload(t *testing.T) {
	h := &fakeHandler{}
	srv, _ := startServer(t, h)

	tests := []struct {
		name string
		req  *Request
	}{
		{"missing tag", &Request{Command: CommandMoveItem}},
		{"bad json", &Request{Command: CommandClickItem, Payload: []byte(`{"tag":`)}},
		{"unknown command", &Request{Command: "SHUFFLE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := srv.handleCommand(context.Background(), tt.req)
			if resp.Status != "ERROR" {
				t.Fatalf("Status = %s, want ERROR", resp.Status)
			}
		})
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.moved) != 0 || len(h.clicked) != 0 {
		t.Fatalf("handler ran for invalid requests")
	}
}

func TestStopCancelsInFlightCommands(t *testing.T) {
	h := &fakeHandler{blockCh: make(chan struct{})}
	srv, c := startServer(t, h)

	done := make(chan error, 1)
	go func() { done <- c.ClickItem("app:clock", "") }()

	<-h.blockCh
	srv.Stop()
	if err := <-done; err == nil {
		t.Fatalf("ClickItem() error = nil after server stop")
	}
}

func TestClientWithoutDaemon(t *testing.T) {
	c := NewClientAt(filepath.Join(t.TempDir(), "none.sock"))
	if err := c.Ping(); err == nil {
		t.Fatalf("Ping() error = nil without a daemon")
	}
}
