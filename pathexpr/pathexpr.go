// Package pathexpr implements the dot-notation and slash-notation path
// expressions ("PathExpr"). No library in the example pack
// parses this path shape (dot-notation with bracketed array indices,
// alternate slash form); this package is therefore standard-library only,
// justified in DESIGN.md.
package pathexpr

import (
	"strconv"
	"strings"
)

// PathExpr is an immutable sequence of path segments plus an absoluteness
// flag. Numeric segments denote array indices and render with brackets in
// dot-notation (items[0]).
type PathExpr struct {
	segments []string
	isAbsolute bool
}

// Empty is the zero-segment path ("").
var Empty = PathExpr{}

// FromDotNotation parses dot-notation such as "form.items[0].name". The
// empty string yields Empty. Dot-notation has no absolute/relative
// distinction; isAbsolute is always false.
func FromDotNotation(s string) PathExpr {
	if s == "" {
		return Empty
	}
	var segs []string
	for _, part := range strings.Split(s, ".") {
		segs = append(segs, splitBrackets(part)...)
	}
	return PathExpr{segments: segs}
}

// FromSlashNotation parses slash-notation such as "/form/items/0/name". The
// empty string yields Empty with isAbsolute=false. Any non-empty input
// beginning with "/" is absolute.
func FromSlashNotation(s string) PathExpr {
	if s == "" {
		return Empty
	}
	abs := strings.HasPrefix(s, "/")
	trimmed := strings.Trim(s, "/")
	if trimmed == "" {
		return PathExpr{isAbsolute: abs}
	}
	return PathExpr{segments: strings.Split(trimmed, "/"), isAbsolute: abs}
}

// splitBrackets splits a single dot-segment like "items[0]" into ["items",
// "0"]. A bare "[0]" segment (no name prefix) yields just ["0"].
func splitBrackets(part string) []string {
	var out []string
	for len(part) > 0 {
		i := strings.IndexByte(part, '[')
		if i < 0 {
			out = append(out, part)
			return out
		}
		if i > 0 {
			out = append(out, part[:i])
		}
		j := strings.IndexByte(part[i:], ']')
		if j < 0 {
			// Unterminated bracket: treat the rest literally rather than panic.
			out = append(out, part[i:])
			return out
		}
		out = append(out, part[i+1:i+j])
		part = part[i+j+1:]
	}
	return out
}

// IsEmpty reports whether the path has zero segments.
func (p PathExpr) IsEmpty() bool { return len(p.segments) == 0 }

// IsAbsolute reports whether the path was parsed from an absolute
// slash-notation form.
func (p PathExpr) IsAbsolute() bool { return p.isAbsolute }

// Segments returns a copy of the path's segments.
func (p PathExpr) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// Leaf returns the last segment, or "" for the empty path.
func (p PathExpr) Leaf() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Parent returns the path with its last segment removed. Parent is
// undefined (returns Empty, ok=false) for single-segment and empty paths.
func (p PathExpr) Parent() (PathExpr, bool) {
	if len(p.segments) <= 1 {
		return Empty, false
	}
	return PathExpr{segments: append([]string(nil), p.segments[:len(p.segments)-1]...), isAbsolute: p.isAbsolute}, true
}

// Join appends other's segments to p, preserving p's absoluteness (the left
// operand's).
func (p PathExpr) Join(other PathExpr) PathExpr {
	segs := make([]string, 0, len(p.segments)+len(other.segments))
	segs = append(segs, p.segments...)
	segs = append(segs, other.segments...)
	return PathExpr{segments: segs, isAbsolute: p.isAbsolute}
}

// StartsWith reports whether p's segments begin with prefix's segments.
func (p PathExpr) StartsWith(prefix PathExpr) bool {
	if len(prefix.segments) > len(p.segments) {
		return false
	}
	for i, s := range prefix.segments {
		if p.segments[i] != s {
			return false
		}
	}
	return true
}

// isIndex reports whether s parses as a non-negative integer array index.
func isIndex(s string) bool {
	if s == "" {
		return false
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0
}

// ToDotNotation renders the path in dot-notation with bracketed indices,
// the inverse of FromDotNotation.
func (p PathExpr) ToDotNotation() string {
	var b strings.Builder
	for i, seg := range p.segments {
		if isIndex(seg) {
			b.WriteByte('[')
			b.WriteString(seg)
			b.WriteByte(']')
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

// ToSlashNotation renders the path in slash-notation, the inverse of
// FromSlashNotation.
func (p PathExpr) ToSlashNotation() string {
	if len(p.segments) == 0 {
		if p.isAbsolute {
			return "/"
		}
		return ""
	}
	joined := strings.Join(p.segments, "/")
	if p.isAbsolute {
		return "/" + joined
	}
	return joined
}

// String implements fmt.Stringer using dot-notation.
func (p PathExpr) String() string { return p.ToDotNotation() }

// Equal reports whether p and other denote the same path.
func (p PathExpr) Equal(other PathExpr) bool {
	if p.isAbsolute != other.isAbsolute || len(p.segments) != len(other.segments) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}
