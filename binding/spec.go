package binding

import (
	"strings"

	"github.com/unfazed-dev/a2ui-adapter/pathexpr"
)

// parsePath resolves a raw path string into a PathExpr, auto-detecting
// slash-notation (anything containing "/") versus dot-notation (everything
// else). This is what lets "form.age", "/form/age", and "form/age" all
// resolve to one canonical path rather than three distinct bindings.
func parsePath(raw string) pathexpr.PathExpr {
	if strings.Contains(raw, "/") {
		return pathexpr.FromSlashNotation(raw)
	}
	return pathexpr.FromDotNotation(raw)
}

// TransformRegistry resolves named transforms referenced by a dataBinding
// spec's "toWidgetTransform"/"toModelTransform" keys. JSON
// cannot carry a function value, so the wire form names a transform and the
// engine's caller supplies the implementation; an unset registry or unknown
// name yields the identity transform rather than an error: a malformed
// entry should be skipped silently, not abort the rest of the tree.
type TransformRegistry map[string]Transform

func (r TransformRegistry) lookup(name string) Transform {
	if name == "" {
		return nil
	}
	return r[name]
}

// parseDataBindingSpec parses one WidgetNode's raw dataBinding value per
// the four accepted forms:
//
//	(a) string "path" -> {value: oneWay path}
//	(b) object {prop: "path"} -> {prop: oneWay path}
//	(c) object {prop: {path, mode, toWidgetTransform, toModelTransform}} -> per-prop definition
//	(d) null -> no bindings
//
// Malformed entries are skipped silently rather than failing the whole
// widget, since one bad binding must not block the rest of the tree from
// rendering.
func parseDataBindingSpec(raw any, transforms TransformRegistry) []BindingDefinition {
	switch v := raw.(type) {
	case nil:
		return nil

	case string:
		return []BindingDefinition{{Property: "value", Path: parsePath(v), Mode: OneWay}}

	case map[string]any:
		defs := make([]BindingDefinition, 0, len(v))
		for prop, entry := range v {
			def, ok := parseBindingEntry(prop, entry, transforms)
			if ok {
				defs = append(defs, def)
			}
		}
		return defs

	default:
		return nil
	}
}

func parseBindingEntry(prop string, entry any, transforms TransformRegistry) (BindingDefinition, bool) {
	switch e := entry.(type) {
	case string:
		return BindingDefinition{Property: prop, Path: parsePath(e), Mode: OneWay}, true

	case map[string]any:
		path, ok := e["path"].(string)
		if !ok || path == "" {
			return BindingDefinition{}, false
		}
		mode := OneWay
		if m, ok := e["mode"].(string); ok {
			switch Mode(m) {
			case OneWay, TwoWay, OneWayToSource:
				mode = Mode(m)
			default:
				return BindingDefinition{}, false
			}
		}
		def := BindingDefinition{Property: prop, Path: parsePath(path), Mode: mode}
		if name, ok := e["toWidgetTransform"].(string); ok {
			def.ToWidget = transforms.lookup(name)
		}
		if name, ok := e["toModelTransform"].(string); ok {
			def.ToModel = transforms.lookup(name)
		}
		return def, true

	default:
		return BindingDefinition{}, false
	}
}
