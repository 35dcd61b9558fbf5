package ratelimit

import "sync"

// Well-known invoker names for non-model collaborators.
const (
	// Vector is the invoker used for vector similarity queries.
	Vector = "vector"
	// Storage is the invoker used for raw text access.
	Storage = "storage"
	// Embedding is the invoker used to embed chunks at ingestion.
	Embedding = "embedding"
)

// Registry holds one Invoker per provider name, so a rate limit on one
// provider never queues calls to another.
type Registry struct {
	mu        sync.Mutex
	policy    Policy
	overrides map[string]Policy
	opts      []Option
	invokers  map[string]*Invoker
}

// NewRegistry creates a registry whose invokers use policy unless overridden.
func NewRegistry(policy Policy, opts ...Option) *Registry {
	return &Registry{
		policy:    policy,
		overrides: make(map[string]Policy),
		opts:      opts,
		invokers:  make(map[string]*Invoker),
	}
}

// SetPolicy overrides the policy for one provider. It only affects
// invokers created after the call.
func (r *Registry) SetPolicy(name string, p Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[name] = p
}

// For returns the invoker for name, creating it on first use.
func (r *Registry) For(name string) *Invoker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inv, ok := r.invokers[name]; ok {
		return inv
	}
	p := r.policy
	if o, ok := r.overrides[name]; ok {
		p = o
	}
	inv := New(name, p, r.opts...)
	r.invokers[name] = inv
	return inv
}

// Names returns the names of the invokers created so far.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.invokers))
	for name := range r.invokers {
		names = append(names, name)
	}
	return names
}
