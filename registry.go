package authkit

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type registryEntry struct {
	provider Provider
	defaults Settings
}

// Registry holds configured providers keyed by a case-insensitive provider
// key. It follows a reader-many, writer-rarely discipline: populate at
// startup, Resolve concurrently during request handling. Runtime mutation is
// supported and mutex-guarded.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
	allow   map[string]struct{} // nil means no allow-list filtering
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// Register adds a provider under key with its default settings. Registering
// an already-present key fails with ErrDuplicateProvider; use Replace for an
// explicit overwrite.
func (r *Registry) Register(key string, provider Provider, defaults Settings) error {
	if key == "" || provider == nil {
		return fmt.Errorf("register provider: %w", ErrInvalidSettings)
	}
	k := normalizeKey(key)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[k]; exists {
		return fmt.Errorf("register provider %q: %w", key, ErrDuplicateProvider)
	}
	r.entries[k] = registryEntry{provider: provider, defaults: defaults}
	return nil
}

// Replace registers a provider under key, overwriting any existing entry.
func (r *Registry) Replace(key string, provider Provider, defaults Settings) error {
	if key == "" || provider == nil {
		return fmt.Errorf("replace provider: %w", ErrInvalidSettings)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[normalizeKey(key)] = registryEntry{provider: provider, defaults: defaults}
	return nil
}

// Resolve looks up a provider by key, case-insensitively. Unknown keys fail
// with ErrUnknownProvider; keys excluded by the allow-list fail with
// ErrProviderNotAllowed even when registered.
func (r *Registry) Resolve(key string) (Provider, Settings, error) {
	k := normalizeKey(key)

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[k]
	if !ok {
		return nil, Settings{}, fmt.Errorf("resolve provider %q: %w", key, ErrUnknownProvider)
	}
	if r.allow != nil {
		if _, allowed := r.allow[k]; !allowed {
			return nil, Settings{}, fmt.Errorf("resolve provider %q: %w", key, ErrProviderNotAllowed)
		}
	}
	return entry.provider, entry.defaults, nil
}

// SetAllowList restricts Resolve to the given keys. Keys are matched
// case-insensitively; an empty call makes every Resolve fail with
// ErrProviderNotAllowed.
func (r *Registry) SetAllowList(keys ...string) {
	allow := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allow[normalizeKey(k)] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.allow = allow
}

// ClearAllowList removes allow-list filtering.
func (r *Registry) ClearAllowList() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allow = nil
}

// Keys returns the registered provider keys in sorted order, ignoring the
// allow-list.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
