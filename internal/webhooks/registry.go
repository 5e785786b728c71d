package webhooks

import (
	"context"
	"sort"
	"sync"

	syncpkg "github.com/dmfranc/stripemirror/internal/sync"
	"github.com/dmfranc/stripemirror/pkg/db/models"
)

// WorkFunc performs the kind-specific mirror work for a validated event.
// The object payload is the data.object block of the event message.
type WorkFunc func(ctx context.Context, d *Dispatcher, event *models.Event, object syncpkg.Payload) error

// Registry maps event kinds to their handlers. Registering a kind twice
// replaces the earlier handler.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]WorkFunc
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]WorkFunc)}
}

// Register binds a handler to an event kind. A nil work func registers the
// kind as known with no mirror work beyond the shared pipeline.
func (r *Registry) Register(kind string, work WorkFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = work
}

// Get returns the handler for a kind and whether the kind is registered.
func (r *Registry) Get(kind string) (WorkFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	work, ok := r.handlers[kind]
	return work, ok
}

// Kinds returns the registered kinds sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.handlers))
	for kind := range r.handlers {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
