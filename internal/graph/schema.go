package graph

import (
	"sort"

	"github.com/aristath/traingraph/internal/registry"
)

// TaskSpec is one compiled task: the implementation it uses, the operation to
// invoke, its configuration and the tasks whose results feed its parameters.
type TaskSpec struct {
	Uses   *registry.Descriptor
	Fn     registry.Op
	Config map[string]any    // Passed through to the implementation unexamined
	Needs  map[string]string // Parameter name -> task name supplying it

	// Persist is nil until the defaulting pass runs. See Persists.
	Persist *bool
}

// Persists reports whether the executor should retain the task's result.
// Unset means true.
func (t TaskSpec) Persists() bool {
	return t.Persist == nil || *t.Persist
}

// Schema maps unique task names to task specs.
type Schema map[string]TaskSpec

// Bool returns a pointer to b, for TaskSpec.Persist literals.
func Bool(b bool) *bool {
	return &b
}

// FillDefaults sets every missing optional field on every task:
// empty Config, empty Needs and Persist=true.
func FillDefaults(s Schema) {
	for name, task := range s {
		if task.Config == nil {
			task.Config = map[string]any{}
		}
		if task.Needs == nil {
			task.Needs = map[string]string{}
		}
		if task.Persist == nil {
			task.Persist = Bool(true)
		}
		s[name] = task
	}
}

// Names returns the task names in sorted order.
func Names(s Schema) []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Params returns the task's needs parameter names in sorted order.
func (t TaskSpec) Params() []string {
	params := make([]string, 0, len(t.Needs))
	for param := range t.Needs {
		params = append(params, param)
	}
	sort.Strings(params)
	return params
}

// Dependents returns the names of tasks that need the given task, sorted.
func Dependents(s Schema, taskName string) []string {
	var out []string
	for _, name := range Names(s) {
		for _, dep := range s[name].Needs {
			if dep == taskName {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// Merge copies every task of src into dst. A name present in both is a
// DuplicateTaskError and leaves dst untouched.
func Merge(dst, src Schema) error {
	for _, name := range Names(src) {
		if _, exists := dst[name]; exists {
			return &DuplicateTaskError{Name: name}
		}
	}
	for name, task := range src {
		dst[name] = task
	}
	return nil
}
