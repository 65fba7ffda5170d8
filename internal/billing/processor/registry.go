package processor

import (
	"github.com/quantica-hq/billing/internal/billing/domain"
	"go.uber.org/zap"
)

// Registry maps provider kinds to processor instances. Unknown kinds are
// simply absent; the orchestration layer surfaces them as provider
// unavailable. A Registry is immutable after construction, so config
// reloads swap the whole registry rather than mutating one.
type Registry struct {
	processors map[domain.ProviderKind]Processor
}

// NewRegistry builds a registry from explicit processor instances.
func NewRegistry(processors ...Processor) *Registry {
	registry := &Registry{processors: make(map[domain.ProviderKind]Processor, len(processors))}
	for _, proc := range processors {
		if proc == nil {
			continue
		}
		registry.processors[proc.Kind()] = proc
	}
	return registry
}

// FromConfigs builds a registry of hosted-checkout processors, one per
// provider config.
func FromConfigs(configs []domain.ProviderConfig, log *zap.Logger) *Registry {
	processors := make([]Processor, 0, len(configs))
	for _, config := range configs {
		processors = append(processors, NewHostedCheckout(config, log))
	}
	return NewRegistry(processors...)
}

// Lookup returns the processor for a kind, or false if none is registered.
func (r *Registry) Lookup(kind domain.ProviderKind) (Processor, bool) {
	if r == nil {
		return nil, false
	}
	proc, ok := r.processors[kind]
	return proc, ok
}

// Kinds lists the registered provider kinds in registry order.
func (r *Registry) Kinds() []domain.ProviderKind {
	if r == nil {
		return nil
	}
	kinds := make([]domain.ProviderKind, 0, len(r.processors))
	for kind := range r.processors {
		kinds = append(kinds, kind)
	}
	return kinds
}
