package remotefn

import (
	"context"
	"sync"
)

// CategoryTransform is the catalog category of user-defined transforms.
const CategoryTransform = "Transform"

// Function is one registered function.
type Function struct {
	Name     string
	Category string
}

// Registry lists the server's registered functions of a category.
type Registry interface {
	ListFunctions(ctx context.Context, category string) ([]string, error)
}

// RegistryFunc adapts a function to Registry.
type RegistryFunc func(ctx context.Context, category string) ([]string, error)

// ListFunctions calls f.
func (f RegistryFunc) ListFunctions(ctx context.Context, category string) ([]string, error) {
	return f(ctx, category)
}

// CachedRegistry remembers each category's listing until Invalidate.
// Failed listings are not cached.
type CachedRegistry struct {
	inner Registry

	mu      sync.Mutex
	entries map[string][]string
}

// NewCachedRegistry wraps inner with a per-session cache.
func NewCachedRegistry(inner Registry) *CachedRegistry {
	return &CachedRegistry{inner: inner, entries: map[string][]string{}}
}

// ListFunctions returns the cached listing, querying inner on a miss.
func (c *CachedRegistry) ListFunctions(ctx context.Context, category string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if names, ok := c.entries[category]; ok {
		return append([]string(nil), names...), nil
	}
	names, err := c.inner.ListFunctions(ctx, category)
	if err != nil {
		return nil, err
	}
	c.entries[category] = append([]string(nil), names...)
	return names, nil
}

// Invalidate drops every cached listing.
func (c *CachedRegistry) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string][]string{}
}
