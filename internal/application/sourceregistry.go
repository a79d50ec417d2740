package application

import (
	"fmt"
	"sync"

	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/port/driven"
)

// SourceRegistry maps providers to task sources. Sources can be replaced at
// runtime, e.g. when a transport is reconfigured, without restarting.
type SourceRegistry struct {
	mu      sync.RWMutex
	sources map[model.Provider]driven.TaskSource
}

// NewSourceRegistry creates an empty registry.
func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{sources: make(map[model.Provider]driven.TaskSource)}
}

// Register sets the source for provider, replacing any previous one.
func (r *SourceRegistry) Register(provider model.Provider, source driven.TaskSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[provider.Normalize()] = source
}

// Get returns the source for provider. The empty provider means Notion.
func (r *SourceRegistry) Get(provider model.Provider) (driven.TaskSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	source, ok := r.sources[provider.Normalize()]
	if !ok || source == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider.Normalize())
	}
	return source, nil
}

// Has reports whether a source is registered for provider.
func (r *SourceRegistry) Has(provider model.Provider) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[provider.Normalize()] != nil
}
