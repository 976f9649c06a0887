// Package mcp exposes the daemon's menu bar operations as MCP tools.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/traytile/internal/ipc"
)

const (
	ServerName    = "traytile"
	ServerVersion = "0.1.0"
)

// Daemon is the IPC surface the tools call. *ipc.Client implements it.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	ListItems() (*ipc.ItemsData, error)
	Refresh(force bool) (*ipc.RefreshData, error)
	MoveItem(p ipc.MoveItemPayload) error
	ClickItem(tag, button string) error
	TempShow(tag, button string) error
	Rehide() error
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server for menu bar control.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
}

// NewServer creates an MCP server forwarding tool calls to daemon.
func NewServer(daemon Daemon) *Server {
	s := &Server{daemon: daemon}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report whether the traytile daemon is running, how many tray items are in each section, and which items are temporarily shown.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_items",
		Description: "List the cached system tray items left to right with their tag (namespace:title), section, owning process and bounds. Tags from this list identify items in the other tools.",
	}, s.handleListItems)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "refresh_items",
		Description: "Re-read the system tray and rebuild the item cache if items were added, removed or reordered. Set force to rebuild unconditionally.",
	}, s.handleRefresh)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_item",
		Description: "Move a tray item into a section (visible, hidden, always-hidden) or next to another item. The move is performed by dragging the icon and takes up to a few seconds; it waits for the user to stop using the mouse first.",
	}, s.handleMoveItem)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "click_item",
		Description: "Click a tray item with the given mouse button. The item must currently be on screen; use show_item for hidden items.",
	}, s.handleClickItem)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "show_item",
		Description: "Temporarily move a hidden tray item into the visible section and click it. It is moved back automatically after the configured interval, or when rehide_items is called.",
	}, s.handleShowItem)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "rehide_items",
		Description: "Return every temporarily shown item to its original position now.",
	}, s.handleRehide)
}
