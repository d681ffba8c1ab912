package observability

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

// ErrUnknownObserver is returned by Lookup for a name with no binding.
var ErrUnknownObserver = errors.New("unknown observer")

// Registry resolves the observer names written in configuration files.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	named map[string]Observer
}

// NewRegistry returns a Registry with two bindings: "noop", and "slog"
// writing to logger. A nil logger follows slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{named: map[string]Observer{
		"noop": NoOpObserver{},
		"slog": NewSlogObserver(logger),
	}}
}

// Default is the registry engines consult when they are built from
// configuration.
var Default = NewRegistry(nil)

// Register binds name to o, replacing any earlier binding. A nil o removes
// the binding.
func (r *Registry) Register(name string, o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o == nil {
		delete(r.named, name)
		return
	}
	r.named[name] = o
}

// Lookup returns the observer bound to name.
func (r *Registry) Lookup(name string) (Observer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if o, ok := r.named[name]; ok {
		return o, nil
	}
	return nil, fmt.Errorf("%w %q (have %s)", ErrUnknownObserver, name, strings.Join(r.sortedNames(), ", "))
}

// Names lists the bound names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames()
}

func (r *Registry) sortedNames() []string {
	return slices.Sorted(maps.Keys(r.named))
}
