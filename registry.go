package laminar

import "sync"

// Registry tracks named loggers so subsystems can share instances
// instead of wiring their own.
type Registry struct {
	mu      sync.Mutex
	loggers map[string]*Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{loggers: make(map[string]*Logger)}
}

// GetOrCreate returns the logger registered under name, building and
// registering it with build on first use. The build function is called
// under the registry lock so concurrent callers see exactly one
// instance.
func (r *Registry) GetOrCreate(name string, build func() (*Logger, error)) (*Logger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.loggers[name]; ok {
		return l, nil
	}
	l, err := build()
	if err != nil {
		return nil, err
	}
	r.loggers[name] = l
	return l, nil
}

// Get returns the logger registered under name, or nil.
func (r *Registry) Get(name string) *Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loggers[name]
}

// Remove unregisters and closes the named logger. Removing an unknown
// name is a no-op.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	l, ok := r.loggers[name]
	delete(r.loggers, name)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return l.Close()
}

// Close closes every registered logger and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	loggers := r.loggers
	r.loggers = make(map[string]*Logger)
	r.mu.Unlock()

	var err error
	for _, l := range loggers {
		err = combineErrors(err, l.Close())
	}
	return err
}
