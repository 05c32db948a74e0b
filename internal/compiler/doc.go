// Package compiler turns a training recipe into a task schema for a DAG
// executor. The NLU pipeline and the policy list are folded through small step
// builders that each emit one or two tasks and thread the name of the task
// holding the current training data stream forward.
//
// Task names are derived from the component name, its position in the list
// and an optional namespace, so compiling the same recipe twice yields the
// same schema. The input recipe is never modified.
package compiler
