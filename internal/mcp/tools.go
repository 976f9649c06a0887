package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/traytile/internal/ipc"
)

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, ipc.StatusData, error) {
	status, err := s.daemon.GetStatus()
	if err != nil {
		return nil, ipc.StatusData{}, daemonError(err)
	}
	return nil, *status, nil
}

func (s *Server) handleListItems(_ context.Context, _ *mcpsdk.CallToolRequest, args ListItemsInput) (*mcpsdk.CallToolResult, ListItemsOutput, error) {
	section, err := normalizeSection(args.Section)
	if err != nil {
		return nil, ListItemsOutput{}, err
	}
	data, err := s.daemon.ListItems()
	if err != nil {
		return nil, ListItemsOutput{}, daemonError(err)
	}

	out := ListItemsOutput{DisplayID: data.DisplayID, Items: []ipc.ItemInfo{}}
	for _, item := range data.Items {
		if section != "" && item.Section != section {
			continue
		}
		out.Items = append(out.Items, item)
	}
	return nil, out, nil
}

func (s *Server) handleRefresh(_ context.Context, _ *mcpsdk.CallToolRequest, args RefreshInput) (*mcpsdk.CallToolResult, ipc.RefreshData, error) {
	data, err := s.daemon.Refresh(args.Force)
	if err != nil {
		return nil, ipc.RefreshData{}, daemonError(err)
	}
	return nil, *data, nil
}

func (s *Server) handleMoveItem(_ context.Context, _ *mcpsdk.CallToolRequest, args MoveItemInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if strings.TrimSpace(args.Tag) == "" {
		return nil, ActionOutput{}, fmt.Errorf("tag is required")
	}
	if (args.Section == "") == (args.Target == "") {
		return nil, ActionOutput{}, fmt.Errorf("exactly one of section and target is required")
	}
	section, err := normalizeSection(args.Section)
	if err != nil {
		return nil, ActionOutput{}, err
	}

	err = s.daemon.MoveItem(ipc.MoveItemPayload{
		Tag:       args.Tag,
		Section:   section,
		Target:    args.Target,
		Direction: args.Direction,
	})
	if err != nil {
		return nil, ActionOutput{}, daemonError(err)
	}
	note := "moved to " + section
	if section == "" {
		dir := args.Direction
		if dir == "" {
			dir = "right"
		}
		note = fmt.Sprintf("moved %s of %s", dir, args.Target)
	}
	return nil, ActionOutput{OK: true, Tag: args.Tag, Note: note}, nil
}

func (s *Server) handleClickItem(_ context.Context, _ *mcpsdk.CallToolRequest, args ClickItemInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if strings.TrimSpace(args.Tag) == "" {
		return nil, ActionOutput{}, fmt.Errorf("tag is required")
	}
	if err := s.daemon.ClickItem(args.Tag, args.Button); err != nil {
		return nil, ActionOutput{}, daemonError(err)
	}
	return nil, ActionOutput{OK: true, Tag: args.Tag}, nil
}

func (s *Server) handleShowItem(_ context.Context, _ *mcpsdk.CallToolRequest, args ClickItemInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if strings.TrimSpace(args.Tag) == "" {
		return nil, ActionOutput{}, fmt.Errorf("tag is required")
	}
	if err := s.daemon.TempShow(args.Tag, args.Button); err != nil {
		return nil, ActionOutput{}, daemonError(err)
	}
	return nil, ActionOutput{OK: true, Tag: args.Tag, Note: "shown until the next rehide"}, nil
}

func (s *Server) handleRehide(_ context.Context, _ *mcpsdk.CallToolRequest, _ RehideInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if err := s.daemon.Rehide(); err != nil {
		return nil, ActionOutput{}, daemonError(err)
	}
	return nil, ActionOutput{OK: true}, nil
}

// normalizeSection maps accepted spellings to the names the daemon reports.
func normalizeSection(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "visible":
		return "visible", nil
	case "hidden":
		return "hidden", nil
	case "always-hidden", "always_hidden", "alwayshidden":
		return "always-hidden", nil
	default:
		return "", fmt.Errorf("unknown section %q (want visible, hidden or always-hidden)", s)
	}
}

// daemonError keeps the daemon's error code visible to the model.
func daemonError(err error) error {
	var re *ipc.RemoteError
	if errors.As(err, &re) && re.Code != "" {
		return fmt.Errorf("%s (code: %s)", re.Message, re.Code)
	}
	return fmt.Errorf("traytile daemon: %w", err)
}
