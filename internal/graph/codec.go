package graph

import (
	"encoding/json"
	"fmt"

	"github.com/aristath/traingraph/internal/registry"
)

// wireTask is the executor-facing shape of a task.
type wireTask struct {
	Uses    string            `json:"uses"`
	Fn      registry.Op       `json:"fn"`
	Config  map[string]any    `json:"config"`
	Needs   map[string]string `json:"needs"`
	Persist *bool             `json:"persist,omitempty"`
}

// MarshalJSON encodes the task with uses as the descriptor name and fn as the
// operation name. Persist is omitted while unset.
func (t TaskSpec) MarshalJSON() ([]byte, error) {
	if t.Uses == nil {
		return nil, fmt.Errorf("task has no implementation")
	}
	config := t.Config
	if config == nil {
		config = map[string]any{}
	}
	needs := t.Needs
	if needs == nil {
		needs = map[string]string{}
	}
	return json.Marshal(wireTask{
		Uses:    t.Uses.Name,
		Fn:      t.Fn,
		Config:  config,
		Needs:   needs,
		Persist: t.Persist,
	})
}

// Decode parses a JSON-encoded schema, resolving each uses name through reg.
// The decoded schema is validated before it is returned.
func Decode(data []byte, reg *registry.Registry) (Schema, error) {
	var raw map[string]wireTask
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}

	s := make(Schema, len(raw))
	for name, wt := range raw {
		d, err := reg.Lookup(wt.Uses)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", name, err)
		}
		s[name] = TaskSpec{
			Uses:    d,
			Fn:      wt.Fn,
			Config:  wt.Config,
			Needs:   wt.Needs,
			Persist: wt.Persist,
		}
	}
	FillDefaults(s)

	if _, err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}
