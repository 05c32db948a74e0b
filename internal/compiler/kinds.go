package compiler

import (
	"errors"
	"fmt"
)

// StepKind classifies what a pipeline component contributes to the graph.
type StepKind int

const (
	KindProcess      StepKind = iota + 1 // Transforms the data stream only
	KindTrain                            // Fits a persisted resource only
	KindTrainProcess                     // Fits a resource, then transforms the data stream with it
)

func (k StepKind) String() string {
	switch k {
	case KindProcess:
		return "process"
	case KindTrain:
		return "train"
	case KindTrainProcess:
		return "train_process"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

// stepKinds is the static step kind of every NLU component the compiler knows.
var stepKinds = map[string]StepKind{
	"WhitespaceTokenizer":        KindProcess,
	"RegexFeaturizer":            KindTrainProcess,
	"LexicalSyntacticFeaturizer": KindTrainProcess,
	"CountVectorsFeaturizer":     KindTrainProcess,
	"DIETClassifier":             KindTrain,
	"ResponseSelector":           KindTrain,
	"EntitySynonymMapper":        KindTrain,
}

// ErrMissingStepKind is matched by errors.Is for MissingStepKindError.
var ErrMissingStepKind = errors.New("missing step kind")

// MissingStepKindError is returned when a resolved component has no step kind.
// This is a gap in the kind table, not a recipe error.
type MissingStepKindError struct {
	Component string
}

func (e *MissingStepKindError) Error() string {
	return fmt.Sprintf("no step kind registered for component %q", e.Component)
}

func (e *MissingStepKindError) Is(target error) bool {
	return target == ErrMissingStepKind
}

// lookupKind resolves a component's step kind.
func lookupKind(name string) (StepKind, error) {
	kind, ok := stepKinds[name]
	if !ok {
		return 0, &MissingStepKindError{Component: name}
	}
	return kind, nil
}
