package compiler

import (
	"errors"
	"fmt"

	"github.com/aristath/traingraph/internal/config"
	"github.com/aristath/traingraph/internal/graph"
	"github.com/aristath/traingraph/internal/registry"
)

// Fixed task names wired by the compiler.
const (
	TaskLoadData             = "load_data"
	TaskLoadDomain           = "load_domain"
	TaskLoadStories          = "load_stories"
	TaskGenerateTrackers     = "generate_trackers"
	TaskConvertStoriesForNLU = "convert_stories_for_nlu"
	TaskCreateE2ELookup      = "create_e2e_lookup"
)

// CoreNamespace prefixes the NLU tasks compiled for E2E featurization.
const CoreNamespace = "core"

// ErrUnsupportedOp is matched by errors.Is for UnsupportedOpError.
var ErrUnsupportedOp = errors.New("unsupported operation")

// UnsupportedOpError is returned when a task binds an operation its
// implementation does not declare.
type UnsupportedOpError struct {
	Task      string
	Component string
	Op        registry.Op
}

func (e *UnsupportedOpError) Error() string {
	return fmt.Sprintf("task %q: component %q does not support %s", e.Task, e.Component, e.Op)
}

func (e *UnsupportedOpError) Is(target error) bool {
	return target == ErrUnsupportedOp
}

// NLUOptions adjusts how an NLU pipeline is compiled.
type NLUOptions struct {
	Namespace   string // Prefix for unique component names ("" for none)
	InputTask   string // Existing task supplying training data; "" adds load_data
	OnlyProcess bool   // Skip components that only train
}

// Compiler compiles recipes against a registry.
type Compiler struct {
	reg *registry.Registry
}

// New creates a Compiler that resolves component names through reg.
func New(reg *registry.Registry) *Compiler {
	return &Compiler{reg: reg}
}

// CompileNLU compiles the recipe's NLU pipeline. Returns the schema and the
// name of the task holding the final training data stream.
func (c *Compiler) CompileNLU(project string, recipe *config.Recipe, opts NLUOptions) (graph.Schema, string, error) {
	schema, out, err := c.compileNLU(project, recipe, opts)
	if err != nil {
		return nil, "", err
	}
	var external []string
	if opts.InputTask != "" {
		external = append(external, opts.InputTask)
	}
	if err := c.finish(schema, external...); err != nil {
		return nil, "", err
	}
	return schema, out, nil
}

// compileNLU folds the pipeline without validating the result, so the E2E
// sub-compile can reference an input task that lives in the caller's schema.
func (c *Compiler) compileNLU(project string, recipe *config.Recipe, opts NLUOptions) (graph.Schema, string, error) {
	schema := graph.Schema{}
	out := opts.InputTask

	if out == "" {
		reader, err := c.reg.Lookup(registry.TrainingDataReader)
		if err != nil {
			return nil, "", err
		}
		out = TaskLoadData
		schema[TaskLoadData] = graph.TaskSpec{
			Uses:    reader,
			Fn:      registry.OpRead,
			Config:  map[string]any{"project": project},
			Needs:   map[string]string{},
			Persist: graph.Bool(false),
		}
	}

	for i, component := range recipe.Pipeline {
		name := component.Name()
		unique := fmt.Sprintf("%s_%d", name, i)
		if opts.Namespace != "" {
			unique = opts.Namespace + "_" + unique
		}

		d, err := c.reg.Lookup(name)
		if err != nil {
			return nil, "", fmt.Errorf("pipeline entry %d: %w", i, err)
		}
		kind, err := lookupKind(d.Name)
		if err != nil {
			return nil, "", fmt.Errorf("pipeline entry %d: %w", i, err)
		}
		if kind == KindTrain && opts.OnlyProcess {
			continue
		}

		fragment, next := builders[kind](step{
			uses:       d,
			name:       unique,
			input:      out,
			inputParam: ParamTrainingData,
			config:     map[string]any{"component_config": component.Params()},
		})
		if err := graph.Merge(schema, fragment); err != nil {
			return nil, "", fmt.Errorf("pipeline entry %d: %w", i, err)
		}
		out = next
	}

	return schema, out, nil
}

// CompileCore compiles the dialogue side of the recipe: domain and story
// loading, tracker generation and one train task per policy. Policies that
// support E2E features pull in a process-only NLU sub-pipeline run over the
// stories. Returns the schema and the policy task names in recipe order.
func (c *Compiler) CompileCore(project string, recipe *config.Recipe) (graph.Schema, []string, error) {
	schema, err := c.fixedTasks(
		fixedTask{TaskLoadDomain, registry.DomainReader, registry.OpRead, map[string]any{"project": project}, nil, nil},
		fixedTask{TaskLoadStories, registry.StoryGraphReader, registry.OpRead, map[string]any{"project": project}, nil, graph.Bool(false)},
		fixedTask{TaskGenerateTrackers, registry.TrackerGenerator, registry.OpGenerate, nil,
			map[string]string{ParamDomain: TaskLoadDomain, ParamStoryGraph: TaskLoadStories}, graph.Bool(false)},
	)
	if err != nil {
		return nil, nil, err
	}

	var policyTasks []string
	e2e := false

	for i, policy := range recipe.Policies {
		name := policy.Name()
		d, err := c.reg.Lookup(name)
		if err != nil {
			return nil, nil, fmt.Errorf("policies entry %d: %w", i, err)
		}

		needs := map[string]string{ParamDomain: TaskLoadDomain}
		if d.SupportsE2EFeatures {
			needs[ParamE2EFeatures] = TaskCreateE2ELookup
			e2e = true
		}

		unique := fmt.Sprintf("%s_%d", name, i)
		fragment, _ := trainStep(step{
			uses:       d,
			name:       unique,
			input:      TaskGenerateTrackers,
			inputParam: ParamTrainingTrackers,
			config:     policy.Params(),
			needs:      needs,
		})
		if err := graph.Merge(schema, fragment); err != nil {
			return nil, nil, fmt.Errorf("policies entry %d: %w", i, err)
		}
		policyTasks = append(policyTasks, trainTaskName(unique))
	}

	if e2e {
		if err := c.addE2E(project, recipe, schema); err != nil {
			return nil, nil, err
		}
	}

	if err := c.finish(schema); err != nil {
		return nil, nil, err
	}
	return schema, policyTasks, nil
}

// addE2E wires the E2E featurization branch into schema: stories are
// converted to NLU training data, run through the process-only NLU pipeline
// and turned into the lookup the E2E policies need.
func (c *Compiler) addE2E(project string, recipe *config.Recipe, schema graph.Schema) error {
	converter, err := c.fixedTasks(
		fixedTask{TaskConvertStoriesForNLU, registry.StoryToTrainingDataConverter, registry.OpConvertForTraining, nil,
			map[string]string{ParamStoryGraph: TaskLoadStories}, graph.Bool(false)},
	)
	if err != nil {
		return err
	}
	if err := graph.Merge(schema, converter); err != nil {
		return err
	}

	nlu, out, err := c.compileNLU(project, recipe, NLUOptions{
		Namespace:   CoreNamespace,
		InputTask:   TaskConvertStoriesForNLU,
		OnlyProcess: true,
	})
	if err != nil {
		return fmt.Errorf("compiling e2e featurization: %w", err)
	}
	if err := graph.Merge(schema, nlu); err != nil {
		return fmt.Errorf("compiling e2e featurization: %w", err)
	}

	lookup, err := c.fixedTasks(
		fixedTask{TaskCreateE2ELookup, registry.MessageToE2EFeatureConverter, registry.OpConvert, nil,
			map[string]string{ParamTrainingData: out}, graph.Bool(false)},
	)
	if err != nil {
		return err
	}
	return graph.Merge(schema, lookup)
}

// CompileAll compiles the NLU pipeline and the core side independently and
// merges them. Outputs are the policy tasks followed by the NLU output.
func (c *Compiler) CompileAll(project string, recipe *config.Recipe) (graph.Schema, []string, error) {
	nlu, nluOut, err := c.CompileNLU(project, recipe, NLUOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("compiling nlu: %w", err)
	}

	core, coreOuts, err := c.CompileCore(project, recipe)
	if err != nil {
		return nil, nil, fmt.Errorf("compiling core: %w", err)
	}

	if err := graph.Merge(core, nlu); err != nil {
		return nil, nil, fmt.Errorf("merging nlu into core: %w", err)
	}
	if _, err := graph.Validate(core); err != nil {
		return nil, nil, err
	}

	outputs := append(append([]string(nil), coreOuts...), nluOut)
	return core, outputs, nil
}

// fixedTask describes a task wired by the compiler rather than the recipe.
type fixedTask struct {
	name      string
	component string
	fn        registry.Op
	config    map[string]any
	needs     map[string]string
	persist   *bool
}

func (c *Compiler) fixedTasks(tasks ...fixedTask) (graph.Schema, error) {
	schema := graph.Schema{}
	for _, t := range tasks {
		d, err := c.reg.Lookup(t.component)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", t.name, err)
		}
		schema[t.name] = graph.TaskSpec{
			Uses:    d,
			Fn:      t.fn,
			Config:  t.config,
			Needs:   t.needs,
			Persist: t.persist,
		}
	}
	return schema, nil
}

// finish runs the defaulting pass, then checks operations and graph shape.
// External names are tasks the schema may need without defining.
func (c *Compiler) finish(schema graph.Schema, external ...string) error {
	graph.FillDefaults(schema)

	for _, name := range graph.Names(schema) {
		task := schema[name]
		if !task.Uses.Supports(task.Fn) {
			return &UnsupportedOpError{Task: name, Component: task.Uses.Name, Op: task.Fn}
		}
	}

	_, err := graph.Validate(schema, external...)
	return err
}
