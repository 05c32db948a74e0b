package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aristath/traingraph/internal/registry"
)

var (
	reader  = &registry.Descriptor{Name: "Reader", Ops: []registry.Op{registry.OpRead}}
	trainer = &registry.Descriptor{Name: "Trainer", Ops: []registry.Op{registry.OpTrain, registry.OpProcessTrainingData}}
)

func task(needs map[string]string) TaskSpec {
	return TaskSpec{Uses: trainer, Fn: registry.OpTrain, Needs: needs}
}

// TestValidate tests schema validation with various graph structures.
func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		schema      Schema
		external    []string
		wantErr     error
		errContains string
	}{
		{
			name: "valid linear chain",
			schema: Schema{
				"A": task(nil),
				"B": task(map[string]string{"training_data": "A"}),
				"C": task(map[string]string{"training_data": "B"}),
			},
		},
		{
			name: "valid fan in",
			schema: Schema{
				"A": task(nil),
				"B": task(nil),
				"C": task(map[string]string{"domain": "A", "story_graph": "B"}),
			},
		},
		{
			name: "dangling dependency",
			schema: Schema{
				"A": task(map[string]string{"training_data": "nonexistent"}),
			},
			wantErr:     ErrDanglingDependency,
			errContains: "nonexistent",
		},
		{
			name: "external dependency accepted",
			schema: Schema{
				"A": task(map[string]string{"training_data": "upstream"}),
			},
			external: []string{"upstream"},
		},
		{
			name: "direct cycle",
			schema: Schema{
				"A": task(map[string]string{"x": "B"}),
				"B": task(map[string]string{"x": "A"}),
			},
			wantErr: ErrCycle,
		},
		{
			name: "self-loop",
			schema: Schema{
				"A": task(map[string]string{"x": "A"}),
			},
			wantErr: ErrCycle,
		},
		{
			name: "cycle hanging off a root",
			schema: Schema{
				"R": task(nil),
				"A": task(map[string]string{"x": "R", "y": "C"}),
				"B": task(map[string]string{"x": "A"}),
				"C": task(map[string]string{"x": "B"}),
			},
			wantErr: ErrCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := Validate(tt.schema, tt.external...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q doesn't contain %q", err.Error(), tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			assertOrder(t, tt.schema, order)
		})
	}
}

// assertOrder checks that order holds every task once, after everything it needs.
func assertOrder(t *testing.T, s Schema, order []string) {
	t.Helper()
	if len(order) != len(s) {
		t.Fatalf("order has %d tasks, want %d: %v", len(order), len(s), order)
	}
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	for name, task := range s {
		for _, dep := range task.Needs {
			depPos, ok := pos[dep]
			if !ok {
				continue // external
			}
			if depPos >= pos[name] {
				t.Errorf("%q ordered before its dependency %q: %v", name, dep, order)
			}
		}
	}
}

func TestDanglingDependencyNamesEdge(t *testing.T) {
	_, err := Validate(Schema{"train_X": task(map[string]string{"training_data": "process_Y"})})

	var dangling *DanglingDependencyError
	if !errors.As(err, &dangling) {
		t.Fatalf("expected DanglingDependencyError, got %v", err)
	}
	if dangling.Task != "train_X" || dangling.Param != "training_data" || dangling.Dep != "process_Y" {
		t.Errorf("unexpected error fields: %+v", dangling)
	}
}

func TestFillDefaults(t *testing.T) {
	s := Schema{
		"bare":      {Uses: reader, Fn: registry.OpRead},
		"transient": {Uses: reader, Fn: registry.OpRead, Persist: Bool(false), Config: map[string]any{"k": "v"}},
	}
	FillDefaults(s)

	bare := s["bare"]
	if bare.Config == nil || len(bare.Config) != 0 {
		t.Errorf("bare config = %v, want empty map", bare.Config)
	}
	if bare.Needs == nil || len(bare.Needs) != 0 {
		t.Errorf("bare needs = %v, want empty map", bare.Needs)
	}
	if bare.Persist == nil || !*bare.Persist {
		t.Errorf("bare persist should default to true")
	}

	transient := s["transient"]
	if transient.Persists() {
		t.Error("explicit persist=false was overwritten")
	}
	if transient.Config["k"] != "v" {
		t.Error("existing config was overwritten")
	}
}

func TestMerge(t *testing.T) {
	dst := Schema{"A": task(nil)}
	if err := Merge(dst, Schema{"B": task(nil)}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if len(dst) != 2 {
		t.Fatalf("dst has %d tasks, want 2", len(dst))
	}

	err := Merge(dst, Schema{"C": task(nil), "A": task(nil)})
	var dup *DuplicateTaskError
	if !errors.As(err, &dup) || dup.Name != "A" {
		t.Fatalf("expected DuplicateTaskError for A, got %v", err)
	}
	if !errors.Is(err, ErrDuplicateTask) {
		t.Error("expected errors.Is(err, ErrDuplicateTask)")
	}
	if _, exists := dst["C"]; exists {
		t.Error("failed merge partially mutated dst")
	}
}

func TestDependents(t *testing.T) {
	s := Schema{
		"A": task(nil),
		"C": task(map[string]string{"x": "A"}),
		"B": task(map[string]string{"x": "A", "y": "C"}),
	}
	got := Dependents(s, "A")
	if strings.Join(got, ",") != "B,C" {
		t.Errorf("Dependents(A) = %v, want [B C]", got)
	}
	if got := Dependents(s, "B"); len(got) != 0 {
		t.Errorf("Dependents(B) = %v, want none", got)
	}
}

func TestJSONWireShape(t *testing.T) {
	s := Schema{
		"load_data": {Uses: reader, Fn: registry.OpRead, Config: map[string]any{"project": "bot"}, Persist: Bool(false)},
		"train_X_0": {Uses: trainer, Fn: registry.OpTrain, Needs: map[string]string{"training_data": "load_data"}},
	}
	FillDefaults(s)

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"load_data":{"uses":"Reader","fn":"read","config":{"project":"bot"},"needs":{},"persist":false},` +
		`"train_X_0":{"uses":"Trainer","fn":"train","config":{},"needs":{"training_data":"load_data"},"persist":true}}`
	if string(data) != want {
		t.Errorf("unexpected JSON:\n got %s\nwant %s", data, want)
	}

	reg := registry.New()
	reg.MustRegister(*reader)
	reg.MustRegister(*trainer)

	decoded, err := Decode(data, reg)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded["train_X_0"].Uses.Name != "Trainer" || decoded["train_X_0"].Fn != registry.OpTrain {
		t.Errorf("unexpected decoded task: %+v", decoded["train_X_0"])
	}
	if decoded["load_data"].Persists() {
		t.Error("decoded load_data should not persist")
	}
}

func TestDecodeErrors(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(*reader)

	tests := []struct {
		name string
		data string
	}{
		{name: "malformed", data: "{"},
		{name: "unknown implementation", data: `{"a":{"uses":"Nope","fn":"read"}}`},
		{name: "unknown op", data: `{"a":{"uses":"Reader","fn":"fit"}}`},
		{name: "dangling", data: `{"a":{"uses":"Reader","fn":"read","needs":{"x":"b"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.data), reg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestWriteDOTDeterministic(t *testing.T) {
	s := Schema{
		"load_data": {Uses: reader, Fn: registry.OpRead, Persist: Bool(false)},
		"train_X_0": {Uses: trainer, Fn: registry.OpTrain, Needs: map[string]string{"training_data": "load_data"}},
	}

	var first, second bytes.Buffer
	if err := WriteDOT(&first, s); err != nil {
		t.Fatalf("WriteDOT failed: %v", err)
	}
	if err := WriteDOT(&second, s); err != nil {
		t.Fatalf("WriteDOT failed: %v", err)
	}
	if first.String() != second.String() {
		t.Error("DOT output differs between runs")
	}

	out := first.String()
	if !strings.Contains(out, `"load_data" -> "train_X_0" [label="training_data"];`) {
		t.Errorf("missing edge in DOT output:\n%s", out)
	}
	if !strings.Contains(out, "style=dashed") {
		t.Errorf("transient task not dashed:\n%s", out)
	}
}
