package compiler

import (
	"github.com/aristath/traingraph/internal/config"
	"github.com/aristath/traingraph/internal/graph"
	"github.com/aristath/traingraph/internal/registry"
)

// Parameter names used in needs edges.
const (
	ParamTrainingData     = "training_data"
	ParamDomain           = "domain"
	ParamStoryGraph       = "story_graph"
	ParamTrainingTrackers = "training_trackers"
	ParamResourceName     = "resource_name"
	ParamE2EFeatures      = "e2e_features"
)

// step is the input of a step builder.
type step struct {
	uses       *registry.Descriptor
	name       string            // Unique name; tasks become train_<name> / process_<name>
	input      string            // Task holding the current data stream
	inputParam string            // Parameter the data stream feeds
	config     map[string]any    // Copied into every emitted task
	needs      map[string]string // Extra edges for the train task
}

// stepBuilder emits a graph fragment for one step and returns the task that
// now holds the data stream.
type stepBuilder func(s step) (graph.Schema, string)

func trainTaskName(name string) string   { return "train_" + name }
func processTaskName(name string) string { return "process_" + name }

// trainStep emits a single train task. A trained resource is not a data
// stream, so the returned output is the step's input.
func trainStep(s step) (graph.Schema, string) {
	needs := map[string]string{s.inputParam: s.input}
	for param, dep := range s.needs {
		needs[param] = dep
	}

	return graph.Schema{
		trainTaskName(s.name): {
			Uses:   s.uses,
			Fn:     registry.OpTrain,
			Config: config.CloneMap(s.config),
			Needs:  needs,
		},
	}, s.input
}

// processStep emits a single transient process task which becomes the output.
func processStep(s step) (graph.Schema, string) {
	name := processTaskName(s.name)
	return graph.Schema{
		name: {
			Uses:    s.uses,
			Fn:      registry.OpProcessTrainingData,
			Config:  config.CloneMap(s.config),
			Needs:   map[string]string{s.inputParam: s.input},
			Persist: graph.Bool(false),
		},
	}, name
}

// trainProcessStep emits a train task and a process task that consumes both
// the trained resource and the original input. The process task is the output.
func trainProcessStep(s step) (graph.Schema, string) {
	fragment, _ := trainStep(s)
	trainName := trainTaskName(s.name)
	processName := processTaskName(s.name)

	fragment[processName] = graph.TaskSpec{
		Uses:   s.uses,
		Fn:     registry.OpProcessTrainingData,
		Config: config.CloneMap(s.config),
		Needs: map[string]string{
			ParamResourceName: trainName,
			s.inputParam:      s.input,
		},
	}
	return fragment, processName
}

// builders maps each step kind to its builder.
var builders = map[StepKind]stepBuilder{
	KindProcess:      processStep,
	KindTrain:        trainStep,
	KindTrainProcess: trainProcessStep,
}
