package engine

import (
	"fmt"

	"pricewatch/models"
)

// Registry resolves a configured backend name to its engine. Backend choice
// is per store / source configuration, so an unknown name is a configuration
// error, not a runtime fallback.
type Registry struct {
	engines map[string]Engine
}

// NewRegistry creates a Registry over the given engines, keyed by Name().
func NewRegistry(engines ...Engine) *Registry {
	m := make(map[string]Engine, len(engines))
	for _, e := range engines {
		m[e.Name()] = e
	}
	return &Registry{engines: m}
}

// Resolve returns the engine for a backend name.
func (r *Registry) Resolve(name string) (Engine, error) {
	if name == "" {
		name = models.BackendHTTP
	}
	e, ok := r.engines[name]
	if !ok {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("unknown fetch backend %q", name), nil)
	}
	return e, nil
}
