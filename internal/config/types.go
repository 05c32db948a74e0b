package config

// Settings configures the traingraph tool itself (not a recipe).
type Settings struct {
	Project     string `json:"project,omitempty"`     // Project identifier passed to reader tasks
	Database    string `json:"database,omitempty"`    // SQLite path for compiled graph history
	Concurrency int    `json:"concurrency,omitempty"` // Max recipes compiled at once
	Indent      bool   `json:"indent,omitempty"`      // Pretty-print JSON schemas
}

// Component is one recipe entry: a "name" key plus hyperparameters.
type Component map[string]any

// Recipe is the user-authored training configuration.
type Recipe struct {
	Pipeline []Component `json:"pipeline" yaml:"pipeline"` // NLU pipeline, in order
	Policies []Component `json:"policies" yaml:"policies"` // Dialogue policies, in order
}
