package protocol

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Registry maps URL schemes to handler factories.
//
// A process should construct one Registry and pass it to every bridge that
// resolves URLs; splitting registrations across registries breaks scheme
// resolution. A Registry is safe for concurrent registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for registration events.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// RegisterFactory installs factory for scheme, replacing any previous one.
// It returns the factory it replaced, or nil.
func (r *Registry) RegisterFactory(scheme string, factory Factory) (Factory, error) {
	if scheme == "" || strings.ContainsRune(scheme, ':') {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScheme, scheme)
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: nil factory for scheme %q", ErrUsage, scheme)
	}

	r.mu.Lock()
	prev := r.factories[scheme]
	r.factories[scheme] = factory
	r.mu.Unlock()

	if prev != nil {
		r.logger.Debug("replaced protocol factory", "scheme", scheme)
	} else {
		r.logger.Debug("registered protocol factory", "scheme", scheme)
	}
	return prev, nil
}

// Unregister removes the factory for scheme and returns it. Handlers already
// resolved from it are unaffected.
func (r *Registry) Unregister(scheme string) (Factory, bool) {
	r.mu.Lock()
	f, ok := r.factories[scheme]
	delete(r.factories, scheme)
	r.mu.Unlock()

	if ok {
		r.logger.Debug("unregistered protocol factory", "scheme", scheme)
	}
	return f, ok
}

// Factory returns the factory registered for scheme.
func (r *Registry) Factory(scheme string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[scheme]
	return f, ok
}

// Schemes returns the registered schemes in sorted order.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	schemes := make([]string, 0, len(r.factories))
	for s := range r.factories {
		schemes = append(schemes, s)
	}
	r.mu.RUnlock()
	sort.Strings(schemes)
	return schemes
}

// Resolve parses the scheme of url and asks its factory for a handler.
// Factory code runs without the registry lock held.
func (r *Registry) Resolve(url string, mode Mode) (Handler, error) {
	scheme, ok := ProtocolFromURL(url)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no scheme", ErrNoHandler, url)
	}
	factory, ok := r.Factory(scheme)
	if !ok {
		return nil, fmt.Errorf("%w: scheme %q is not registered", ErrNoHandler, scheme)
	}
	h := factory.HandlerFor(scheme, url, mode)
	if h == nil {
		return nil, fmt.Errorf("%w: factory for %q declined %q", ErrNoHandler, scheme, url)
	}
	return h, nil
}

var uniqueSeq atomic.Uint64

// UniqueScheme returns a scheme name starting with prefix that no other call
// in this process has returned. It is meant for one-off registrations that
// map a single Go stream to its own scheme.
func UniqueScheme(prefix string) string {
	if prefix == "" {
		prefix = "stream"
	}
	return fmt.Sprintf("%s%d", prefix, uniqueSeq.Add(1))
}
