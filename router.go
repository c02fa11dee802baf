package laminar

import (
	"sort"
	"sync"
	"sync/atomic"
)

// LayerConfig binds a layer name to its level threshold and ordered
// destination sinks. Configurations reaching the router are assumed
// validated.
type LayerConfig struct {
	Threshold Level
	Sinks     []*Sink
}

// routeTable is an immutable snapshot of the routing configuration.
// Reload swaps the whole table, so the per-table resolution cache can
// never serve entries from a previous configuration.
type routeTable struct {
	layers       map[string]LayerConfig
	order        []string // layer names, sorted, for deterministic fallback
	defaultLayer string
	cache        sync.Map // layer name -> *resolvedRoute
}

type resolvedRoute struct {
	threshold Level
	sinks     []*Sink
}

var emptyRoute = &resolvedRoute{sinks: nil}

// LayerRouter maps a requested layer name to an ordered sink list
// using the fallback chain: requested layer, then the default layer,
// then the first configured layer in sorted-name order, then none.
// Resolution never fails; an unroutable record is a silent no-op.
type LayerRouter struct {
	table atomic.Value // *routeTable
}

// NewLayerRouter builds a router from a validated layer configuration.
// defaultLayer names the fallback layer; empty means "default".
func NewLayerRouter(layers map[string]LayerConfig, defaultLayer string) *LayerRouter {
	r := &LayerRouter{}
	r.Reload(layers, defaultLayer)
	return r
}

// Reload replaces the routing configuration wholesale. In-flight
// resolutions keep using the table they loaded; there is no partial
// update window.
func (r *LayerRouter) Reload(layers map[string]LayerConfig, defaultLayer string) {
	if defaultLayer == "" {
		defaultLayer = "default"
	}
	t := &routeTable{
		layers:       make(map[string]LayerConfig, len(layers)),
		order:        make([]string, 0, len(layers)),
		defaultLayer: defaultLayer,
	}
	for name, cfg := range layers {
		t.layers[name] = cfg
		t.order = append(t.order, name)
	}
	sort.Strings(t.order)
	r.table.Store(t)
}

// Resolve returns the ordered sinks for a layer name, caching the
// result until the next Reload.
func (r *LayerRouter) Resolve(layer string) []*Sink {
	return r.resolve(layer).sinks
}

// Enabled reports whether a record at the given level on the given
// layer would reach at least a layer threshold check. Used by façades
// as a fast reject before building a record.
func (r *LayerRouter) Enabled(layer string, level Level) bool {
	route := r.resolve(layer)
	if len(route.sinks) == 0 {
		return false
	}
	return level >= route.threshold
}

func (r *LayerRouter) resolve(layer string) *resolvedRoute {
	t := r.table.Load().(*routeTable)

	if cached, ok := t.cache.Load(layer); ok {
		return cached.(*resolvedRoute)
	}

	route := emptyRoute
	if cfg, ok := t.layers[layer]; ok {
		route = &resolvedRoute{threshold: cfg.Threshold, sinks: cfg.Sinks}
	} else if cfg, ok := t.layers[t.defaultLayer]; ok {
		route = &resolvedRoute{threshold: cfg.Threshold, sinks: cfg.Sinks}
	} else if len(t.order) > 0 {
		cfg := t.layers[t.order[0]]
		route = &resolvedRoute{threshold: cfg.Threshold, sinks: cfg.Sinks}
	}

	t.cache.Store(layer, route)
	return route
}

// Sinks returns every distinct sink in the current table, for flusher
// ticks and shutdown.
func (r *LayerRouter) Sinks() []*Sink {
	t := r.table.Load().(*routeTable)
	seen := make(map[*Sink]struct{})
	var sinks []*Sink
	for _, name := range t.order {
		for _, s := range t.layers[name].Sinks {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			sinks = append(sinks, s)
		}
	}
	return sinks
}
