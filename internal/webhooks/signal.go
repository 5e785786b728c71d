package webhooks

import (
	"context"
	"sync"

	"github.com/dmfranc/stripemirror/pkg/db/models"
)

// Receiver observes a fully handled event. Receivers run synchronously in
// registration order; an error aborts the remaining receivers and fails the
// event.
type Receiver func(ctx context.Context, event *models.Event) error

// SignalHub broadcasts processed events to host-application receivers, one
// signal per event kind.
type SignalHub struct {
	mu        sync.RWMutex
	receivers map[string][]Receiver
}

// NewSignalHub builds an empty hub.
func NewSignalHub() *SignalHub {
	return &SignalHub{receivers: make(map[string][]Receiver)}
}

// Connect subscribes a receiver to an event kind.
func (h *SignalHub) Connect(kind string, r Receiver) {
	if r == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.receivers[kind] = append(h.receivers[kind], r)
}

// Send delivers the event to every receiver connected to its kind.
func (h *SignalHub) Send(ctx context.Context, event *models.Event) error {
	h.mu.RLock()
	receivers := h.receivers[event.Kind]
	h.mu.RUnlock()
	for _, r := range receivers {
		if err := r(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Kinds lists the kinds that have at least one receiver.
func (h *SignalHub) Kinds() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	kinds := make([]string, 0, len(h.receivers))
	for kind := range h.receivers {
		kinds = append(kinds, kind)
	}
	return kinds
}
