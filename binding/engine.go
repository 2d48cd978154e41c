package binding

import (
	"fmt"
	"reflect"
	"sync"
)

// Config configures an Engine's tunables.
type Config struct {
	MaxCacheSize int
	Transforms TransformRegistry
}

// DefaultConfig returns a Config with DefaultMaxCacheSize and no
// registered transforms.
func DefaultConfig() Config {
	return Config{MaxCacheSize: DefaultMaxCacheSize}
}

// Engine is the Binding Engine. The zero value is not usable; construct
// with New.
type Engine struct {
	model DataModel
	cfg Config

	mu sync.Mutex
	reg *registry
}

// New constructs an Engine backed by model.
func New(model DataModel, cfg Config) *Engine {
	return &Engine{
		model: model,
		cfg: cfg,
		reg: newRegistry(cfg.MaxCacheSize),
	}
}

// ProcessWidgetBindings parses dataBindingSpec (one WidgetNode's raw
// dataBinding value), subscribes to the data model for each resolved
// path, and registers the resulting WidgetBindings under
// widgetID/surfaceID. Malformed entries are skipped silently; a failed
// Subscribe for one entry likewise skips that entry rather than aborting
// the rest.
func (e *Engine) ProcessWidgetBindings(surfaceID, widgetID string, dataBindingSpec any) error {
	defs := parseDataBindingSpec(dataBindingSpec, e.cfg.Transforms)
	if len(defs) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	for _, def := range defs {
		resolvedPath := def.Path.String()
		source, err := e.model.Subscribe(resolvedPath)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("binding: subscribe %q for widget %q: %w", resolvedPath, widgetID, err)
			}
			continue
		}
		wb := &widgetBinding{widgetID: widgetID, surfaceID: surfaceID, def: def, source: source}
		e.reg.index(wb)
	}
	return firstErr
}

// GetValueNotifier returns the raw source subscription when no toWidget
// transform is configured for (widgetID, property); otherwise it returns a
// cached derived ReactiveValue applying the transform, constructing and
// caching it on first access. Returns (nil, false) if no such binding is
// registered.
func (e *Engine) GetValueNotifier(widgetID, property string) (ReactiveValue, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	byProp, ok := e.reg.byWidget[widgetID]
	if !ok {
		return nil, false
	}
	wb, ok := byProp[property]
	if !ok {
		return nil, false
	}
	if wb.def.ToWidget == nil {
		return wb.source, true
	}

	key := cacheKey{widgetID: widgetID, property: property}
	if d, ok := e.reg.cache.Get(key); ok {
		return d, true
	}
	d := newDerivedNotifier(wb.source, wb.def.ToWidget)
	e.reg.cache.Add(key, d)
	return d, true
}

// UpdateFromWidget applies a widget-originated edit for two-way (or
// oneWayToSource) bindings only; one-way bindings are a no-op here.
// Deduplicates against the last value this (widget, property) wrote to
// prevent update loops (invariant (ii)).
func (e *Engine) UpdateFromWidget(widgetID, property string, value any) error {
	e.mu.Lock()
	byProp, ok := e.reg.byWidget[widgetID]
	if !ok {
		e.mu.Unlock()
		return nil
	}
	wb, ok := byProp[property]
	if !ok {
		e.mu.Unlock()
		return nil
	}
	if wb.def.Mode != TwoWay && wb.def.Mode != OneWayToSource {
		e.mu.Unlock()
		return nil
	}
	path := wb.def.Path.String()
	toModel := wb.def.ToModel
	e.mu.Unlock()

	final := value
	if toModel != nil {
		v, err := toModel(value)
		if err != nil {
			return fmt.Errorf("binding: toModel transform for widget %q property %q: %w", widgetID, property, err)
		}
		final = v
	}

	wb.mu.Lock()
	if wb.hasLastSet && reflect.DeepEqual(wb.lastSet, final) {
		wb.mu.Unlock()
		return nil
	}
	wb.lastSet = final
	wb.hasLastSet = true
	wb.mu.Unlock()

	return e.model.Update(path, final)
}

// UnregisterWidget disposes every binding and cached derived notifier owned
// by widgetID, removing listeners from source notifiers before disposing
// derived instances (invariant (i)).
func (e *Engine) UnregisterWidget(widgetID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reg.removeWidget(widgetID)
}

// UnregisterSurface disposes every widget registered under surfaceID.
func (e *Engine) UnregisterSurface(surfaceID string) {
	e.mu.Lock()
	widgetIDs := e.reg.widgetsForSurface(surfaceID)
	for _, id := range widgetIDs {
		e.reg.removeWidget(id)
	}
	e.mu.Unlock()
}

// Dispose tears down every registered binding and cached derived notifier
// and clears all indices. The Engine is unusable afterward.
func (e *Engine) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for widgetID := range e.reg.byWidget {
		e.reg.removeWidget(widgetID)
	}
}
