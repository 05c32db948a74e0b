package registry

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrUnknownComponent is matched by errors.Is for failed lookups.
var ErrUnknownComponent = errors.New("unknown component")

// UnknownComponentError is returned when a name has no registered implementation.
type UnknownComponentError struct {
	Name string
}

func (e *UnknownComponentError) Error() string {
	return fmt.Sprintf("unknown component %q", e.Name)
}

// Is reports whether target is ErrUnknownComponent.
func (e *UnknownComponentError) Is(target error) bool {
	return target == ErrUnknownComponent
}

// Descriptor describes one component or policy implementation.
// Capabilities are fixed when the descriptor is registered.
type Descriptor struct {
	Name string // Symbolic name used in recipes (e.g., "DIETClassifier")
	Ops  []Op   // Operations the implementation can run

	// SupportsE2EFeatures marks policies whose training consumes E2E features.
	SupportsE2EFeatures bool
}

// Supports reports whether the implementation declares op.
func (d *Descriptor) Supports(op Op) bool {
	return slices.Contains(d.Ops, op)
}

// Registry maps symbolic names to implementation descriptors.
// A Registry is built once and only read afterwards.
type Registry struct {
	descriptors map[string]*Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		descriptors: make(map[string]*Descriptor),
	}
}

// Register adds a descriptor. Returns error if the name is empty or already taken.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return errors.New("descriptor name is required")
	}
	if _, exists := r.descriptors[d.Name]; exists {
		return fmt.Errorf("component %q already registered", d.Name)
	}
	if len(d.Ops) == 0 {
		return fmt.Errorf("component %q declares no operations", d.Name)
	}

	cp := d
	cp.Ops = append([]Op(nil), d.Ops...)
	r.descriptors[d.Name] = &cp
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	d, ok := r.descriptors[name]
	if !ok {
		return nil, &UnknownComponentError{Name: name}
	}
	return d, nil
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
