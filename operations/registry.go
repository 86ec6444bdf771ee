package operations

import (
	"errors"
	"fmt"
	"slices"
)

// ErrDuplicateStep is returned when two registered steps share an ID.
var ErrDuplicateStep = errors.New("step is already registered")

// Step is an operation or a sequence.
type Step interface {
	Def() Definition
}

// Registry indexes the steps a pipeline can run by ID, in registration order.
type Registry struct {
	defs []Definition
	byID map[string]int
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: map[string]int{}}
}

// Register adds steps to the registry. IDs are unique regardless of version, since the
// deployment state and the reports refer to steps by ID.
func (r *Registry) Register(steps ...Step) error {
	for _, s := range steps {
		def := s.Def()
		if _, ok := r.byID[def.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateStep, def.ID)
		}
		r.byID[def.ID] = len(r.defs)
		r.defs = append(r.defs, def)
	}

	return nil
}

// MustRegister is like Register but panics on a duplicate ID. It is meant for static
// registrations.
func (r *Registry) MustRegister(steps ...Step) *Registry {
	if err := r.Register(steps...); err != nil {
		panic(err)
	}

	return r
}

// Lookup returns the definition registered under id.
func (r *Registry) Lookup(id string) (Definition, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Definition{}, false
	}

	return r.defs[i], true
}

// Definitions returns the registered definitions in registration order.
func (r *Registry) Definitions() []Definition {
	return slices.Clone(r.defs)
}
