package binding_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfazed-dev/a2ui-adapter/binding"
)

// fakeReactive is an in-memory ReactiveValue/DataModel pair standing in for
// the UI framework's own reactive primitive (an external collaborator this
// package never implements).
type fakeReactive struct {
	mu sync.Mutex
	value any
	listeners map[int]func(any)
	nextID int
}

func newFakeReactive(v any) *fakeReactive {
	return &fakeReactive{value: v, listeners: make(map[int]func(any))}
}

func (f *fakeReactive) Value() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

func (f *fakeReactive) OnChange(fn func(any)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeReactive) set(v any) {
	f.mu.Lock()
	f.value = v
	var fns []func(any)
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (f *fakeReactive) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

type fakeModel struct {
	mu sync.Mutex
	nodes map[string]*fakeReactive
	writes []struct {
		path string
		value any
	}
}

func newFakeModel() *fakeModel {
	return &fakeModel{nodes: make(map[string]*fakeReactive)}
}

func (m *fakeModel) withNode(path string, v any) *fakeModel {
	m.nodes[path] = newFakeReactive(v)
	return m
}

func (m *fakeModel) Subscribe(path string) (binding.ReactiveValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[path]
	if !ok {
		n = newFakeReactive(nil)
		m.nodes[path] = n
	}
	return n, nil
}

func (m *fakeModel) Update(path string, value any) error {
	m.mu.Lock()
	m.writes = append(m.writes, struct {
		path string
		value any
	}{path, value})
	node, ok := m.nodes[path]
	m.mu.Unlock()
	if ok {
		node.set(value)
	}
	return nil
}

// Scenario E: a two-way binding with a toWidget transform delivers
// transformed values to the widget and writes untransformed values back to
// the model, deduplicating repeats.
func TestTwoWayBindingWithTransform(t *testing.T) {
	model := newFakeModel().withNode("form.celsius", 0.0)
	upper := binding.TransformRegistry{
		"celsiusToFahrenheit": func(v any) (any, error) {
			c, _ := v.(float64)
			return c*9/5 + 32, nil
		},
	}
	e := binding.New(model, binding.Config{MaxCacheSize: 10, Transforms: upper})

	spec := map[string]any{
		"value": map[string]any{
			"path": "form.celsius",
			"mode": "twoWay",
			"toWidgetTransform": "celsiusToFahrenheit",
		},
	}
	require.NoError(t, e.ProcessWidgetBindings("surface-1", "widget-1", spec))

	notifier, ok := e.GetValueNotifier("widget-1", "value")
	require.True(t, ok)
	assert.InDelta(t, 32.0, notifier.Value(), 0.001)

	var received []any
	notifier.OnChange(func(v any) { received = append(received, v) })

	model.nodes["form.celsius"].set(100.0)
	require.Len(t, received, 1)
	assert.InDelta(t, 212.0, received[0], 0.001)

	require.NoError(t, e.UpdateFromWidget("widget-1", "value", 212.0))
	require.Len(t, model.writes, 1)
	assert.InDelta(t, 212.0, model.writes[0].value, 0.001)

	// Same value again: deduplicated, no second write.
	require.NoError(t, e.UpdateFromWidget("widget-1", "value", 212.0))
	assert.Len(t, model.writes, 1)
}

// Scenario F: derived notifiers beyond maxCacheSize are evicted, which
// removes the listener they held on their source.
func TestDerivedNotifierLRUEviction(t *testing.T) {
	model := newFakeModel()
	identity := binding.TransformRegistry{"identity": func(v any) (any, error) { return v, nil }}
	e := binding.New(model, binding.Config{MaxCacheSize: 2, Transforms: identity})

	for i := 0; i < 3; i++ {
		path := fmt.Sprintf("form.field%d", i)
		model.withNode(path, i)
		spec := map[string]any{
			"value": map[string]any{"path": path, "mode": "oneWay", "toWidgetTransform": "identity"},
		}
		widgetID := fmt.Sprintf("widget-%d", i)
		require.NoError(t, e.ProcessWidgetBindings("surface-1", widgetID, spec))
		_, ok := e.GetValueNotifier(widgetID, "value")
		require.True(t, ok)
	}

	// widget-0's derived notifier should have been evicted once a third
	// entry was cached beyond maxCacheSize=2, which must have removed its
	// listener from the underlying source.
	assert.Equal(t, 0, model.nodes["form.field0"].listenerCount())
	assert.Equal(t, 1, model.nodes["form.field1"].listenerCount())
	assert.Equal(t, 1, model.nodes["form.field2"].listenerCount())
}

func TestStringShorthandBindsValueProperty(t *testing.T) {
	model := newFakeModel().withNode("form.name", "Ada")
	e := binding.New(model, binding.DefaultConfig())

	require.NoError(t, e.ProcessWidgetBindings("s1", "w1", "form.name"))
	notifier, ok := e.GetValueNotifier("w1", "value")
	require.True(t, ok)
	assert.Equal(t, "Ada", notifier.Value())
}

func TestOneWayBindingIgnoresWidgetUpdates(t *testing.T) {
	model := newFakeModel().withNode("form.name", "Ada")
	e := binding.New(model, binding.DefaultConfig())
	require.NoError(t, e.ProcessWidgetBindings("s1", "w1", map[string]any{"value": "form.name"}))

	require.NoError(t, e.UpdateFromWidget("w1", "value", "Grace"))
	assert.Empty(t, model.writes)
}

func TestUnregisterWidgetRemovesItsBinding(t *testing.T) {
	model := newFakeModel().withNode("form.name", "Ada")
	e := binding.New(model, binding.DefaultConfig())
	require.NoError(t, e.ProcessWidgetBindings("s1", "w1", "form.name"))
	e.GetValueNotifier("w1", "value")

	e.UnregisterWidget("w1")
	_, ok := e.GetValueNotifier("w1", "value")
	assert.False(t, ok)
}

func TestUnregisterSurfaceRemovesAllItsWidgets(t *testing.T) {
	model := newFakeModel().withNode("form.a", 1).withNode("form.b", 2)
	e := binding.New(model, binding.DefaultConfig())
	require.NoError(t, e.ProcessWidgetBindings("s1", "w1", "form.a"))
	require.NoError(t, e.ProcessWidgetBindings("s1", "w2", "form.b"))

	e.UnregisterSurface("s1")
	_, ok1 := e.GetValueNotifier("w1", "value")
	_, ok2 := e.GetValueNotifier("w2", "value")
	assert.False(t, ok1)
	assert.False(t, ok2)
}

// Dot-notation and slash-notation spellings of the same location resolve
// to one canonical path, so bindings built from either form share the
// underlying model subscription rather than tracking three distinct paths.
func TestDotAndSlashPathsResolveToSameBinding(t *testing.T) {
	model := newFakeModel().withNode("form.age", 30)
	e := binding.New(model, binding.DefaultConfig())

	require.NoError(t, e.ProcessWidgetBindings("s1", "w1", "form.age"))
	require.NoError(t, e.ProcessWidgetBindings("s1", "w2", "/form/age"))
	require.NoError(t, e.ProcessWidgetBindings("s1", "w3", "form/age"))

	n1, ok := e.GetValueNotifier("w1", "value")
	require.True(t, ok)
	n2, ok := e.GetValueNotifier("w2", "value")
	require.True(t, ok)
	n3, ok := e.GetValueNotifier("w3", "value")
	require.True(t, ok)

	model.nodes["form.age"].set(99)
	assert.Equal(t, 99, n1.Value())
	assert.Equal(t, 99, n2.Value())
	assert.Equal(t, 99, n3.Value())
}

func TestMalformedBindingEntriesAreSkipped(t *testing.T) {
	model := newFakeModel()
	e := binding.New(model, binding.DefaultConfig())
	require.NoError(t, e.ProcessWidgetBindings("s1", "w1", map[string]any{
		"value": 42, // neither string nor object: skipped
		"label": "form.label",
	}))

	_, ok := e.GetValueNotifier("w1", "value")
	assert.False(t, ok)
	_, ok = e.GetValueNotifier("w1", "label")
	assert.True(t, ok)
}
