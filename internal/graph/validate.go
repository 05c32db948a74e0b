package graph

import (
	"fmt"
	"strings"

	"github.com/gammazero/toposort"
)

// Validate checks referential closure and acyclicity of the schema.
// Returns the task names in dependency order (every task after the tasks it
// needs) or the first violation found, scanning tasks and params in sorted order.
// External names are accepted as needs targets without being defined; they are
// left out of the returned order.
func Validate(s Schema, external ...string) ([]string, error) {
	names := Names(s)
	outside := make(map[string]bool, len(external))
	for _, name := range external {
		outside[name] = true
	}

	// Every needs edge must point at a task in the schema
	for _, name := range names {
		task := s[name]
		for _, param := range task.Params() {
			dep := task.Needs[param]
			if _, exists := s[dep]; !exists && !outside[dep] {
				return nil, &DanglingDependencyError{Task: name, Param: param, Dep: dep}
			}
		}
	}

	// Build edges for topological sort in a stable order
	var edges []toposort.Edge
	for _, name := range names {
		task := s[name]
		if len(task.Needs) == 0 {
			// Root task - edge from nil keeps it in the result
			edges = append(edges, toposort.Edge{nil, name})
			continue
		}
		for _, param := range task.Params() {
			// Edge (dep, name) means dep must come before name
			edges = append(edges, toposort.Edge{task.Needs[param], name})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCycle, err)
	}

	order := make([]string, 0, len(s))
	seen := make(map[string]bool, len(s))
	for _, id := range sorted {
		if id == nil {
			continue
		}
		name := id.(string)
		if _, defined := s[name]; !defined {
			continue
		}
		if !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}

	// Tasks caught in a cycle with no root are dropped by the sort
	if len(order) != len(s) {
		var missing []string
		for _, name := range names {
			if !seen[name] {
				missing = append(missing, name)
			}
		}
		return nil, fmt.Errorf("%w: unreachable tasks %s", ErrCycle, strings.Join(missing, ", "))
	}

	return order, nil
}
