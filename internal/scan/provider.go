// Package scan orchestrates ingestion runs: fetch candidates from providers,
// deduplicate within the batch, then check-merge-or-insert each candidate
// sequentially.
package scan

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
)

// Query narrows what a provider should look for.
type Query struct {
	Category string
	Country  string
	Limit    int
}

// Provider fetches candidate places from one external source. Implementations
// normalize their own response shape into model.Candidate; the pipeline never
// sees provider-specific field naming.
type Provider interface {
	// Name returns the unique provider identifier (e.g., "dbpedia", "geonames").
	Name() string

	// Fetch returns normalized candidates for the query.
	Fetch(ctx context.Context, q Query) ([]model.Candidate, error)
}

// Registry maps provider names to their implementations.
type Registry struct {
	providers map[string]Provider
	order     []string // insertion order for deterministic iteration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	name := p.Name()
	r.providers[name] = p
	r.order = append(r.order, name)
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, eris.Errorf("scan: unknown provider %q", name)
	}
	return p, nil
}

// Select returns the named providers in registration order. An empty names
// list selects every registered provider.
func (r *Registry) Select(names []string) ([]Provider, error) {
	if len(names) == 0 {
		all := make([]Provider, 0, len(r.order))
		for _, name := range r.order {
			all = append(all, r.providers[name])
		}
		return all, nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := r.providers[n]; !ok {
			return nil, eris.Errorf("scan: unknown provider %q", n)
		}
		want[n] = true
	}

	var selected []Provider
	for _, name := range r.order {
		if want[name] {
			selected = append(selected, r.providers[name])
		}
	}
	return selected, nil
}
