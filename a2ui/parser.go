package a2ui

import (
	"encoding/json"
	"fmt"

	"github.com/unfazed-dev/a2ui-adapter/xerrors"
)

// MaxWidgetDepth bounds recursive widget-tree construction against
// adversarially deep input.
const MaxWidgetDepth = 256

// ParseToolUse parses a single tool-use payload {name, input} into one A2UI
// message. Unknown tool names return (nil, nil) — not an error. input is
// the tool call's complete, still-encoded JSON argument object.
func ParseToolUse(name string, input json.RawMessage) (Message, error) {
	switch name {
	case "begin_rendering":
		return parseBeginRendering(input)
	case "surface_update":
		return parseSurfaceUpdate(input)
	case "data_model_update":
		return parseDataModelUpdate(input)
	case "delete_surface":
		return parseDeleteSurface(input)
	default:
		return nil, nil
	}
}

func parseErr(toolName string, raw json.RawMessage, expected string, cause error) error {
	return xerrors.Wrap(xerrors.KindMessageParse, cause,
		fmt.Sprintf("%s: expected %s, got %s", toolName, expected, string(raw)))
}

type rawBeginRendering struct {
	SurfaceID string `json:"surfaceId"`
	ParentSurfaceID string `json:"parentSurfaceId"`
	Root string `json:"root"`
	Metadata map[string]any `json:"metadata"`
}

func parseBeginRendering(input json.RawMessage) (Message, error) {
	var r rawBeginRendering
	if err := json.Unmarshal(input, &r); err != nil {
		return nil, parseErr("begin_rendering", input, `{surfaceId, parentSurfaceId?, root?, metadata?}`, err)
	}
	if r.SurfaceID == "" {
		return nil, parseErr("begin_rendering", input, "non-empty surfaceId", nil)
	}
	root := r.Root
	if root == "" {
		root = "root"
	}
	return BeginRendering{
		SurfaceID: r.SurfaceID,
		ParentSurfaceID: r.ParentSurfaceID,
		Root: root,
		Metadata: r.Metadata,
	}, nil
}

type rawWidgetNode struct {
	Type string `json:"type"`
	ID string `json:"id"`
	Properties map[string]any `json:"properties"`
	Children []rawWidgetNode `json:"children"`
	DataBinding any `json:"dataBinding"`
}

func (r rawWidgetNode) toWidgetNode(depth int) (WidgetNode, error) {
	if depth > MaxWidgetDepth {
		return WidgetNode{}, xerrors.New(xerrors.KindMessageParse,
			fmt.Sprintf("widget tree exceeds max depth %d", MaxWidgetDepth))
	}
	if r.Type == "" {
		return WidgetNode{}, xerrors.New(xerrors.KindMessageParse, "widget node missing required field \"type\"")
	}
	node := WidgetNode{
		Type: r.Type,
		ID: r.ID,
		Properties: r.Properties,
		DataBinding: r.DataBinding,
	}
	if len(r.Children) > 0 {
		node.Children = make([]WidgetNode, 0, len(r.Children))
		for _, c := range r.Children {
			child, err := c.toWidgetNode(depth + 1)
			if err != nil {
				return WidgetNode{}, err
			}
			node.Children = append(node.Children, child)
		}
	}
	return node, nil
}

type rawSurfaceUpdate struct {
	SurfaceID string `json:"surfaceId"`
	Widgets []rawWidgetNode `json:"widgets"`
	Append bool `json:"append"`
}

func parseSurfaceUpdate(input json.RawMessage) (Message, error) {
	var r rawSurfaceUpdate
	if err := json.Unmarshal(input, &r); err != nil {
		return nil, parseErr("surface_update", input, `{surfaceId, widgets[], append?}`, err)
	}
	if r.SurfaceID == "" {
		return nil, parseErr("surface_update", input, "non-empty surfaceId", nil)
	}
	widgets := make([]WidgetNode, 0, len(r.Widgets))
	for _, rw := range r.Widgets {
		w, err := rw.toWidgetNode(1)
		if err != nil {
			return nil, err
		}
		widgets = append(widgets, w)
	}
	return SurfaceUpdate{SurfaceID: r.SurfaceID, Widgets: widgets, Append: r.Append}, nil
}

type rawDataModelUpdate struct {
	Updates map[string]any `json:"updates"`
	Scope string `json:"scope"`
}

func parseDataModelUpdate(input json.RawMessage) (Message, error) {
	var r rawDataModelUpdate
	if err := json.Unmarshal(input, &r); err != nil {
		return nil, parseErr("data_model_update", input, `{updates, scope?}`, err)
	}
	if r.Updates == nil {
		return nil, parseErr("data_model_update", input, "an \"updates\" object", nil)
	}
	scope := r.Scope
	if scope == "" {
		scope = "global"
	}
	return DataModelUpdate{Updates: r.Updates, Scope: scope}, nil
}

type rawDeleteSurface struct {
	SurfaceID string `json:"surfaceId"`
	Cascade *bool `json:"cascade"`
}

func parseDeleteSurface(input json.RawMessage) (Message, error) {
	var r rawDeleteSurface
	if err := json.Unmarshal(input, &r); err != nil {
		return nil, parseErr("delete_surface", input, `{surfaceId, cascade?}`, err)
	}
	if r.SurfaceID == "" {
		return nil, parseErr("delete_surface", input, "non-empty surfaceId", nil)
	}
	cascade := true
	if r.Cascade != nil {
		cascade = *r.Cascade
	}
	return DeleteSurface{SurfaceID: r.SurfaceID, Cascade: cascade}, nil
}
