package compiler

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aristath/traingraph/internal/config"
	"github.com/aristath/traingraph/internal/graph"
	"github.com/aristath/traingraph/internal/registry"
)

const project = "examples/moodbot"

func newCompiler() *Compiler {
	return New(registry.Default())
}

func pipeline(names ...string) *config.Recipe {
	recipe := &config.Recipe{}
	for _, name := range names {
		recipe.Pipeline = append(recipe.Pipeline, config.Component{"name": name})
	}
	return recipe
}

func withPolicies(recipe *config.Recipe, names ...string) *config.Recipe {
	for _, name := range names {
		recipe.Policies = append(recipe.Policies, config.Component{"name": name})
	}
	return recipe
}

// assertClosed checks that every needs edge points at a task in the schema.
func assertClosed(t *testing.T, s graph.Schema) {
	t.Helper()
	for name, task := range s {
		for param, dep := range task.Needs {
			if _, ok := s[dep]; !ok {
				t.Errorf("task %q needs %s from missing task %q", name, param, dep)
			}
		}
	}
}

func assertTasks(t *testing.T, s graph.Schema, want ...string) {
	t.Helper()
	got := graph.Names(s)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("task names mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileNLUScenario(t *testing.T) {
	schema, out, err := newCompiler().CompileNLU(project,
		pipeline("WhitespaceTokenizer", "CountVectorsFeaturizer", "DIETClassifier"), NLUOptions{})
	if err != nil {
		t.Fatalf("CompileNLU failed: %v", err)
	}

	assertTasks(t, schema,
		"load_data",
		"process_CountVectorsFeaturizer_1",
		"process_WhitespaceTokenizer_0",
		"train_CountVectorsFeaturizer_1",
		"train_DIETClassifier_2",
	)
	assertClosed(t, schema)

	if got := schema["train_DIETClassifier_2"].Needs[ParamTrainingData]; got != "process_CountVectorsFeaturizer_1" {
		t.Errorf("classifier needs training_data from %q, want process_CountVectorsFeaturizer_1", got)
	}
	if _, ok := schema["process_DIETClassifier_2"]; ok {
		t.Error("train-only component should not get a process task")
	}
	// The trailing train step leaves the data stream where it was
	if out != "process_CountVectorsFeaturizer_1" {
		t.Errorf("output = %q, want process_CountVectorsFeaturizer_1", out)
	}

	load := schema[TaskLoadData]
	if load.Fn != registry.OpRead || load.Uses.Name != registry.TrainingDataReader || load.Persists() {
		t.Errorf("unexpected load_data task: %+v", load)
	}
	if load.Config["project"] != project {
		t.Errorf("load_data config = %v", load.Config)
	}
}

func TestCompileNLUPointerThreading(t *testing.T) {
	tests := []struct {
		name      string
		pipeline  []string
		checkTask string
		wantInput string
		wantOut   string
	}{
		{
			name:      "train-only step keeps the pointer",
			pipeline:  []string{"WhitespaceTokenizer", "DIETClassifier", "CountVectorsFeaturizer"},
			checkTask: "train_CountVectorsFeaturizer_2",
			wantInput: "process_WhitespaceTokenizer_0",
			wantOut:   "process_CountVectorsFeaturizer_2",
		},
		{
			name:      "consecutive train-only steps share input",
			pipeline:  []string{"WhitespaceTokenizer", "DIETClassifier", "ResponseSelector"},
			checkTask: "train_ResponseSelector_2",
			wantInput: "process_WhitespaceTokenizer_0",
			wantOut:   "process_WhitespaceTokenizer_0",
		},
		{
			name:      "train-process step advances to its process task",
			pipeline:  []string{"RegexFeaturizer", "LexicalSyntacticFeaturizer"},
			checkTask: "process_LexicalSyntacticFeaturizer_1",
			wantInput: "process_RegexFeaturizer_0",
			wantOut:   "process_LexicalSyntacticFeaturizer_1",
		},
		{
			name:      "train-only first step reads load_data",
			pipeline:  []string{"EntitySynonymMapper"},
			checkTask: "train_EntitySynonymMapper_0",
			wantInput: TaskLoadData,
			wantOut:   TaskLoadData,
		},
		{
			name:    "empty pipeline outputs load_data",
			wantOut: TaskLoadData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, out, err := newCompiler().CompileNLU(project, pipeline(tt.pipeline...), NLUOptions{})
			if err != nil {
				t.Fatalf("CompileNLU failed: %v", err)
			}
			assertClosed(t, schema)

			if out != tt.wantOut {
				t.Errorf("output = %q, want %q", out, tt.wantOut)
			}
			if _, ok := schema[out]; !ok {
				t.Errorf("output %q is not a task in the schema", out)
			}
			if tt.checkTask != "" {
				if got := schema[tt.checkTask].Needs[ParamTrainingData]; got != tt.wantInput {
					t.Errorf("%s needs training_data from %q, want %q", tt.checkTask, got, tt.wantInput)
				}
			}
		})
	}
}

func TestCompileNLUUniqueNames(t *testing.T) {
	recipe := &config.Recipe{Pipeline: []config.Component{
		{"name": "WhitespaceTokenizer"},
		{"name": "CountVectorsFeaturizer"},
		{"name": "CountVectorsFeaturizer", "analyzer": "char_wb"},
	}}

	schema, out, err := newCompiler().CompileNLU(project, recipe, NLUOptions{})
	if err != nil {
		t.Fatalf("CompileNLU failed: %v", err)
	}

	for _, name := range []string{"train_CountVectorsFeaturizer_1", "train_CountVectorsFeaturizer_2"} {
		if _, ok := schema[name]; !ok {
			t.Errorf("missing %s", name)
		}
	}
	if out != "process_CountVectorsFeaturizer_2" {
		t.Errorf("output = %q", out)
	}

	cfg := schema["train_CountVectorsFeaturizer_2"].Config["component_config"].(map[string]any)
	if cfg["analyzer"] != "char_wb" {
		t.Errorf("component_config = %v", cfg)
	}
	if _, ok := cfg["name"]; ok {
		t.Error("component_config should not carry the name")
	}
	if got := schema["train_CountVectorsFeaturizer_2"].Needs[ParamTrainingData]; got != "process_CountVectorsFeaturizer_1" {
		t.Errorf("second featurizer reads %q", got)
	}
}

func TestCompileNLUNamespaceAndInput(t *testing.T) {
	schema, out, err := newCompiler().CompileNLU(project,
		pipeline("WhitespaceTokenizer", "RegexFeaturizer"),
		NLUOptions{Namespace: "core", InputTask: "convert_stories_for_nlu"})
	if err != nil {
		t.Fatalf("CompileNLU failed: %v", err)
	}

	assertTasks(t, schema,
		"process_core_RegexFeaturizer_1",
		"process_core_WhitespaceTokenizer_0",
		"train_core_RegexFeaturizer_1",
	)
	if got := schema["process_core_WhitespaceTokenizer_0"].Needs[ParamTrainingData]; got != "convert_stories_for_nlu" {
		t.Errorf("first step reads %q, want the external input", got)
	}
	if out != "process_core_RegexFeaturizer_1" {
		t.Errorf("output = %q", out)
	}
}

func TestCompileNLUOnlyProcess(t *testing.T) {
	recipe := pipeline("WhitespaceTokenizer", "DIETClassifier", "CountVectorsFeaturizer", "EntitySynonymMapper")

	schema, out, err := newCompiler().CompileNLU(project, recipe, NLUOptions{OnlyProcess: true})
	if err != nil {
		t.Fatalf("CompileNLU failed: %v", err)
	}
	assertClosed(t, schema)

	assertTasks(t, schema,
		"load_data",
		"process_CountVectorsFeaturizer_2",
		"process_WhitespaceTokenizer_0",
		"train_CountVectorsFeaturizer_2",
	)
	for name, task := range schema {
		for _, dep := range task.Needs {
			if strings.Contains(dep, "DIETClassifier") || strings.Contains(dep, "EntitySynonymMapper") {
				t.Errorf("task %q still references skipped component %q", name, dep)
			}
		}
	}
	if out != "process_CountVectorsFeaturizer_2" {
		t.Errorf("output = %q", out)
	}
}

func TestCompileCoreWithoutE2E(t *testing.T) {
	recipe := withPolicies(pipeline("WhitespaceTokenizer"), "MemoizationPolicy", "RulePolicy")

	schema, outs, err := newCompiler().CompileCore(project, recipe)
	if err != nil {
		t.Fatalf("CompileCore failed: %v", err)
	}
	assertClosed(t, schema)

	assertTasks(t, schema,
		"generate_trackers",
		"load_domain",
		"load_stories",
		"train_MemoizationPolicy_0",
		"train_RulePolicy_1",
	)
	if diff := cmp.Diff([]string{"train_MemoizationPolicy_0", "train_RulePolicy_1"}, outs); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}

	gen := schema[TaskGenerateTrackers]
	if gen.Fn != registry.OpGenerate || gen.Persists() {
		t.Errorf("unexpected generate_trackers: %+v", gen)
	}
	if gen.Needs[ParamDomain] != TaskLoadDomain || gen.Needs[ParamStoryGraph] != TaskLoadStories {
		t.Errorf("generate_trackers needs = %v", gen.Needs)
	}
	if !schema[TaskLoadDomain].Persists() {
		t.Error("load_domain should persist")
	}
	if schema[TaskLoadStories].Persists() {
		t.Error("load_stories should be transient")
	}

	policy := schema["train_RulePolicy_1"]
	want := map[string]string{ParamTrainingTrackers: TaskGenerateTrackers, ParamDomain: TaskLoadDomain}
	if diff := cmp.Diff(want, policy.Needs); diff != "" {
		t.Errorf("policy needs mismatch (-want +got):\n%s", diff)
	}
	if !policy.Persists() {
		t.Error("policy task should persist")
	}
}

func TestCompileCoreE2EFanOut(t *testing.T) {
	schema, outs, err := newCompiler().CompileCore(project, config.DefaultRecipe())
	if err != nil {
		t.Fatalf("CompileCore failed: %v", err)
	}
	assertClosed(t, schema)

	for _, name := range []string{TaskConvertStoriesForNLU, TaskCreateE2ELookup} {
		if _, ok := schema[name]; !ok {
			t.Fatalf("missing %s", name)
		}
	}

	for _, name := range outs {
		_, has := schema[name].Needs[ParamE2EFeatures]
		wantE2E := name == "train_TEDPolicy_1"
		if has != wantE2E {
			t.Errorf("%s has e2e_features = %v, want %v", name, has, wantE2E)
		}
	}
	if got := schema["train_TEDPolicy_1"].Needs[ParamE2EFeatures]; got != TaskCreateE2ELookup {
		t.Errorf("TED e2e_features from %q", got)
	}

	convert := schema[TaskConvertStoriesForNLU]
	if convert.Fn != registry.OpConvertForTraining || convert.Needs[ParamStoryGraph] != TaskLoadStories || convert.Persists() {
		t.Errorf("unexpected convert_stories_for_nlu: %+v", convert)
	}

	lookup := schema[TaskCreateE2ELookup]
	if lookup.Fn != registry.OpConvert || lookup.Persists() {
		t.Errorf("unexpected create_e2e_lookup: %+v", lookup)
	}
	if got := lookup.Needs[ParamTrainingData]; got != "process_core_CountVectorsFeaturizer_4" {
		t.Errorf("create_e2e_lookup reads %q", got)
	}

	// Featurization runs over converted stories and drops train-only components
	if got := schema["process_core_WhitespaceTokenizer_0"].Needs[ParamTrainingData]; got != TaskConvertStoriesForNLU {
		t.Errorf("core tokenizer reads %q", got)
	}
	for _, name := range graph.Names(schema) {
		if strings.Contains(name, "DIETClassifier") || strings.Contains(name, "ResponseSelector") || strings.Contains(name, "EntitySynonymMapper") {
			t.Errorf("train-only component compiled into core: %s", name)
		}
		if name == TaskLoadData {
			t.Error("core schema should not load NLU training data")
		}
	}
}

func TestCompileAll(t *testing.T) {
	c := newCompiler()
	recipe := config.DefaultRecipe()

	merged, outs, err := c.CompileAll(project, recipe)
	if err != nil {
		t.Fatalf("CompileAll failed: %v", err)
	}
	assertClosed(t, merged)

	wantOuts := []string{"train_MemoizationPolicy_0", "train_TEDPolicy_1", "train_RulePolicy_2", "process_CountVectorsFeaturizer_4"}
	if diff := cmp.Diff(wantOuts, outs); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}

	core, _, err := c.CompileCore(project, recipe)
	if err != nil {
		t.Fatalf("CompileCore failed: %v", err)
	}
	nlu, _, err := c.CompileNLU(project, recipe, NLUOptions{})
	if err != nil {
		t.Fatalf("CompileNLU failed: %v", err)
	}

	union := graph.Schema{}
	for name, task := range core {
		union[name] = task
	}
	for name, task := range nlu {
		if _, exists := union[name]; exists {
			t.Fatalf("core and nlu collide on %q", name)
		}
		union[name] = task
	}
	if diff := cmp.Diff(union, merged); diff != "" {
		t.Errorf("merged schema differs from union (-union +merged):\n%s", diff)
	}
}

func TestCompileDeterministic(t *testing.T) {
	c := newCompiler()

	first, firstOuts, err := c.CompileAll(project, config.DefaultRecipe())
	if err != nil {
		t.Fatalf("CompileAll failed: %v", err)
	}
	second, secondOuts, err := c.CompileAll(project, config.DefaultRecipe())
	if err != nil {
		t.Fatalf("CompileAll failed: %v", err)
	}

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(a) != string(b) {
		t.Error("compiling the same recipe twice produced different schemas")
	}
	if diff := cmp.Diff(firstOuts, secondOuts); diff != "" {
		t.Errorf("outputs differ:\n%s", diff)
	}
}

func TestCompileDoesNotMutateRecipe(t *testing.T) {
	recipe := config.DefaultRecipe()
	before := config.DefaultRecipe()

	if _, _, err := newCompiler().CompileAll(project, recipe); err != nil {
		t.Fatalf("CompileAll failed: %v", err)
	}
	if diff := cmp.Diff(before, recipe); diff != "" {
		t.Errorf("recipe mutated by compile (-before +after):\n%s", diff)
	}

	// Compiled config must not alias the recipe either
	schema, _, err := newCompiler().CompileNLU(project, recipe, NLUOptions{})
	if err != nil {
		t.Fatalf("CompileNLU failed: %v", err)
	}
	schema["train_DIETClassifier_5"].Config["component_config"].(map[string]any)["epochs"] = 1
	if recipe.Pipeline[5]["epochs"] != 100 {
		t.Error("schema config aliases the recipe")
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		recipe  *config.Recipe
		reg     func() *registry.Registry
		wantErr error
	}{
		{
			name:    "unknown pipeline component",
			recipe:  pipeline("WhitespaceTokenizer", "SpacyNLP"),
			wantErr: registry.ErrUnknownComponent,
		},
		{
			name:    "unknown policy",
			recipe:  withPolicies(pipeline(), "AugmentedMemoizationPolicy"),
			wantErr: registry.ErrUnknownComponent,
		},
		{
			name:    "component without step kind",
			recipe:  pipeline("WhitespaceTokenizer", "TEDPolicy"),
			wantErr: ErrMissingStepKind,
		},
		{
			name:   "component bound to undeclared op",
			recipe: pipeline("WhitespaceTokenizer"),
			reg: func() *registry.Registry {
				reg := registry.New()
				reg.MustRegister(registry.Descriptor{Name: registry.TrainingDataReader, Ops: []registry.Op{registry.OpRead}})
				reg.MustRegister(registry.Descriptor{Name: "WhitespaceTokenizer", Ops: []registry.Op{registry.OpTrain}})
				return reg
			},
			wantErr: ErrUnsupportedOp,
		},
		{
			name:   "missing graph component",
			recipe: pipeline(),
			reg: func() *registry.Registry {
				return registry.New()
			},
			wantErr: registry.ErrUnknownComponent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := registry.Default()
			if tt.reg != nil {
				reg = tt.reg()
			}

			schema, outs, err := New(reg).CompileAll(project, tt.recipe)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CompileAll error = %v, want %v", err, tt.wantErr)
			}
			if schema != nil || outs != nil {
				t.Error("partial result returned on error")
			}
		})
	}
}

func TestMissingStepKindNamesComponent(t *testing.T) {
	_, _, err := newCompiler().CompileNLU(project, pipeline("RulePolicy"), NLUOptions{})

	var missing *MissingStepKindError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingStepKindError, got %v", err)
	}
	if missing.Component != "RulePolicy" {
		t.Errorf("component = %q", missing.Component)
	}
}
