package mcp

import "github.com/1broseidon/traytile/internal/ipc"

// StatusInput is the input for the get_status tool.
type StatusInput struct{}

// ListItemsInput is the input for the list_items tool.
type ListItemsInput struct {
	Section string `json:"section,omitempty" jsonschema:"Only list items in this section (visible, hidden, always-hidden)"`
}

// ListItemsOutput is the output for the list_items tool.
type ListItemsOutput struct {
	DisplayID int            `json:"display_id"`
	Items     []ipc.ItemInfo `json:"items"`
}

// RefreshInput is the input for the refresh_items tool.
type RefreshInput struct {
	Force bool `json:"force,omitempty" jsonschema:"Rebuild the cache even when the item order is unchanged"`
}

// MoveItemInput is the input for the move_item tool.
type MoveItemInput struct {
	Tag       string `json:"tag" jsonschema:"required,Item tag as namespace:title (see list_items)"`
	Section   string `json:"section,omitempty" jsonschema:"Destination section: visible, hidden or always-hidden"`
	Target    string `json:"target,omitempty" jsonschema:"Tag of the item to move next to. Mutually exclusive with section."`
	Direction string `json:"direction,omitempty" jsonschema:"Side of target to move to: left or right (default: right)"`
}

// ClickItemInput is the input for the click_item and show_item tools.
type ClickItemInput struct {
	Tag    string `json:"tag" jsonschema:"required,Item tag as namespace:title (see list_items)"`
	Button string `json:"button,omitempty" jsonschema:"Mouse button: left, right or center (default: left)"`
}

// RehideInput is the input for the rehide_items tool.
type RehideInput struct{}

// ActionOutput is returned by tools that only perform an action.
type ActionOutput struct {
	OK   bool   `json:"ok"`
	Tag  string `json:"tag,omitempty"`
	Note string `json:"note,omitempty"`
}
