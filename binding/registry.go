package binding

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxCacheSize is the default LRU capacity for derived-notifier
// eviction.
const DefaultMaxCacheSize = 100

// widgetBinding is one registered (widget, property) subscription. source
// is the raw ReactiveValue handle from DataModel.Subscribe; its OnChange
// listener lifetime belongs to whichever caller obtains it through
// GetValueNotifier, not to widgetBinding — the engine never subscribes a
// listener on source directly, only derivedNotifier does (and disposes it
// on LRU eviction).
type widgetBinding struct {
	widgetID string
	surfaceID string
	def BindingDefinition
	source ReactiveValue

	mu sync.Mutex
	lastSet any
	hasLastSet bool
}

type cacheKey struct {
	widgetID string
	property string
}

// derivedNotifier applies a BindingDefinition's toWidget transform to every
// emission of a source ReactiveValue, fanning out to its own listeners. It
// is the thing getValueNotifier caches and the LRU evicts.
type derivedNotifier struct {
	mu sync.Mutex
	value any
	listeners map[int]func(any)
	nextID int
	sourceUnsub func()
}

func newDerivedNotifier(source ReactiveValue, transform Transform) *derivedNotifier {
	d := &derivedNotifier{listeners: make(map[int]func(any))}
	apply := func(v any) any {
		if transform == nil {
			return v
		}
		out, err := transform(v)
		if err != nil {
			return v
		}
		return out
	}
	d.value = apply(source.Value())
	d.sourceUnsub = source.OnChange(func(v any) {
		d.mu.Lock()
		d.value = apply(v)
		val := d.value
		var fns []func(any)
		for _, fn := range d.listeners {
			fns = append(fns, fn)
		}
		d.mu.Unlock()
		for _, fn := range fns {
			fn(val)
		}
	})
	return d
}

func (d *derivedNotifier) Value() any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value
}

func (d *derivedNotifier) OnChange(fn func(any)) func() {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	}
}

// dispose removes the listener this notifier added to its source. Invariant
// (i) : a derived notifier is never leaked.
func (d *derivedNotifier) dispose() {
	if d.sourceUnsub != nil {
		d.sourceUnsub()
	}
}

// registry owns all per-widget/per-surface/per-path indices and the derived
// notifier cache. It has no locking of its own — Engine's mutex guards
// every call into it — so it is not safe for concurrent use standalone.
type registry struct {
	byWidget map[string]map[string]*widgetBinding // widgetID -> property -> binding
	bySurface map[string]map[string]bool // surfaceID -> widgetID set
	byPath map[string]map[string]bool // path -> widgetID set

	cache *lru.Cache[cacheKey, *derivedNotifier]
}

func newRegistry(maxCacheSize int) *registry {
	if maxCacheSize <= 0 {
		maxCacheSize = DefaultMaxCacheSize
	}
	r := &registry{
		byWidget: make(map[string]map[string]*widgetBinding),
		bySurface: make(map[string]map[string]bool),
		byPath: make(map[string]map[string]bool),
	}
	cache, _ := lru.NewWithEvict[cacheKey, *derivedNotifier](maxCacheSize, func(_ cacheKey, v *derivedNotifier) {
		v.dispose()
	})
	r.cache = cache
	return r
}

func (r *registry) index(wb *widgetBinding) {
	byProp, ok := r.byWidget[wb.widgetID]
	if !ok {
		byProp = make(map[string]*widgetBinding)
		r.byWidget[wb.widgetID] = byProp
	}
	byProp[wb.def.Property] = wb

	if _, ok := r.bySurface[wb.surfaceID]; !ok {
		r.bySurface[wb.surfaceID] = make(map[string]bool)
	}
	r.bySurface[wb.surfaceID][wb.widgetID] = true

	pathKey := wb.def.Path.String()
	if _, ok := r.byPath[pathKey]; !ok {
		r.byPath[pathKey] = make(map[string]bool)
	}
	r.byPath[pathKey][wb.widgetID] = true
}

func (r *registry) removeWidget(widgetID string) []*widgetBinding {
	byProp, ok := r.byWidget[widgetID]
	if !ok {
		return nil
	}
	delete(r.byWidget, widgetID)

	var removed []*widgetBinding
	for _, wb := range byProp {
		removed = append(removed, wb)
		if set, ok := r.bySurface[wb.surfaceID]; ok {
			delete(set, widgetID)
			if len(set) == 0 {
				delete(r.bySurface, wb.surfaceID)
			}
		}
		pathKey := wb.def.Path.String()
		if set, ok := r.byPath[pathKey]; ok {
			delete(set, widgetID)
			if len(set) == 0 {
				delete(r.byPath, pathKey)
			}
		}
		r.cache.Remove(cacheKey{widgetID: widgetID, property: wb.def.Property})
	}
	return removed
}

func (r *registry) widgetsForSurface(surfaceID string) []string {
	set, ok := r.bySurface[surfaceID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
