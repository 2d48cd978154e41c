package pathexpr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfazed-dev/a2ui-adapter/pathexpr"
)

func TestEmptyPath(t *testing.T) {
	assert.True(t, pathexpr.FromDotNotation("").IsEmpty())
	p := pathexpr.FromSlashNotation("")
	assert.True(t, p.IsEmpty())
	assert.False(t, p.IsAbsolute())
}

func TestDotNotationRoundTrip(t *testing.T) {
	cases := []string{
		"form",
		"form.items",
		"form.items[0].name",
		"a[0][1]",
		"items[12]",
	}
	for _, s := range cases {
		p := pathexpr.FromDotNotation(s)
		assert.Equal(t, s, p.ToDotNotation(), s)
	}
}

func TestSlashNotationRoundTrip(t *testing.T) {
	cases := []string{
		"/form/items/0/name",
		"form/items/0/name",
		"/",
	}
	for _, s := range cases {
		p := pathexpr.FromSlashNotation(s)
		assert.Equal(t, s, p.ToSlashNotation(), s)
	}
}

func TestParentUndefinedForSingleSegment(t *testing.T) {
	p := pathexpr.FromDotNotation("form")
	_, ok := p.Parent()
	assert.False(t, ok)

	_, ok = pathexpr.Empty.Parent()
	assert.False(t, ok)
}

func TestParentAndLeaf(t *testing.T) {
	p := pathexpr.FromDotNotation("form.items[0].name")
	assert.Equal(t, "name", p.Leaf())
	parent, ok := p.Parent()
	require.True(t, ok)
	assert.Equal(t, "form.items[0]", parent.ToDotNotation())
}

func TestJoinPreservesLeftAbsoluteness(t *testing.T) {
	abs := pathexpr.FromSlashNotation("/form")
	rel := pathexpr.FromDotNotation("items[0]")
	joined := abs.Join(rel)
	assert.True(t, joined.IsAbsolute())
	assert.Equal(t, "/form/items/0", joined.ToSlashNotation())

	joined2 := rel.Join(abs)
	assert.False(t, joined2.IsAbsolute())
}

func TestStartsWith(t *testing.T) {
	p := pathexpr.FromDotNotation("form.items[0].name")
	prefix := pathexpr.FromDotNotation("form.items[0]")
	assert.True(t, p.StartsWith(prefix))
	assert.False(t, prefix.StartsWith(p))
}
