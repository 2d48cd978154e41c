package toolschema

import (
	"fmt"
	"strings"

	"github.com/unfazed-dev/a2ui-adapter/xerrors"
)

// ToVendorTools converts schemas to the vendor tool-schema shape. It is
// pure, deterministic, and preserves input order.
func ToVendorTools(schemas []A2uiToolSchema) ([]VendorTool, error) {
	out := make([]VendorTool, 0, len(schemas))
	for _, s := range schemas {
		converted, err := convertRootSchema(s.Name, s.InputSchema)
		if err != nil {
			return nil, err
		}
		desc := s.Description
		if desc == "" {
			desc = fmt.Sprintf("Render a %s widget", s.Name)
		}
		out = append(out, VendorTool{
			Name: s.Name,
			Description: desc,
			InputSchema: converted,
		})
	}
	return out, nil
}

// convertRootSchema requires the root to be an object schema; anything else
// is an internally inconsistent schema and rejected outright.
func convertRootSchema(toolName string, schema map[string]any) (map[string]any, error) {
	if schema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}, nil
	}
	if t, _ := schema["type"].(string); t != "" && t != "object" {
		return nil, xerrors.New(xerrors.KindToolConversion,
			fmt.Sprintf("tool %q: root schema must be an object, got %q", toolName, t))
	}
	return convertSchemaNode(schema), nil
}

// convertSchemaNode recursively converts one JSON-Schema-like node.
// Unknown keywords pass through unchanged.
func convertSchemaNode(node map[string]any) map[string]any {
	out := make(map[string]any, len(node))
	for k, v := range node {
		out[k] = v
	}

	t, _ := node["type"].(string)
	switch t {
	case "object":
		if props, ok := node["properties"].(map[string]any); ok {
			converted := make(map[string]any, len(props))
			for name, raw := range props {
				if sub, ok := raw.(map[string]any); ok {
					converted[name] = convertSchemaNode(sub)
				} else {
					converted[name] = raw
				}
			}
			out["properties"] = converted
		}
		if req, ok := node["required"].([]string); ok {
			if len(req) == 0 {
				delete(out, "required")
			} else {
				out["required"] = req
			}
		} else if req, ok := node["required"].([]any); ok {
			if len(req) == 0 {
				delete(out, "required")
			} else {
				out["required"] = req
			}
		}
	case "array":
		if items, ok := node["items"].(map[string]any); ok {
			out["items"] = convertSchemaNode(items)
		}
	}

	for _, key := range []string{"anyOf", "oneOf"} {
		if branches, ok := node[key].([]any); ok {
			convertedBranches := make([]any, 0, len(branches))
			for _, b := range branches {
				if bm, ok := b.(map[string]any); ok {
					convertedBranches = append(convertedBranches, convertSchemaNode(bm))
				} else {
					convertedBranches = append(convertedBranches, b)
				}
			}
			out[key] = convertedBranches
		}
	}

	return out
}

// GenerateToolInstructions emits a human-readable instruction document
// listing each schema's name, description, and required-field summary, for
// inclusion in a system prompt.
func GenerateToolInstructions(schemas []A2uiToolSchema) string {
	if len(schemas) == 0 {
		return ""
	}
	var b strings.Builder
	for i, s := range schemas {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n\n%s", s.Name, descriptionOrDefault(s))
		if len(s.RequiredFields) > 0 {
			fmt.Fprintf(&b, "\n\nRequired fields: %s.", strings.Join(s.RequiredFields, ", "))
		}
	}
	return b.String()
}

func descriptionOrDefault(s A2uiToolSchema) string {
	if s.Description != "" {
		return s.Description
	}
	return fmt.Sprintf("Render a %s widget.", s.Name)
}
