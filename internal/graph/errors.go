package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrDanglingDependency is matched by errors.Is for DanglingDependencyError.
	ErrDanglingDependency = errors.New("dangling dependency")
	// ErrDuplicateTask is matched by errors.Is for DuplicateTaskError.
	ErrDuplicateTask = errors.New("duplicate task name")
	// ErrCycle is returned when the needs edges do not form a DAG.
	ErrCycle = errors.New("schema contains cycle")
)

// DanglingDependencyError names a needs edge whose target task is missing.
type DanglingDependencyError struct {
	Task  string // Task declaring the edge
	Param string // Parameter the edge feeds
	Dep   string // Missing task name
}

func (e *DanglingDependencyError) Error() string {
	return fmt.Sprintf("task %q needs %s from non-existent task %q", e.Task, e.Param, e.Dep)
}

func (e *DanglingDependencyError) Is(target error) bool {
	return target == ErrDanglingDependency
}

// DuplicateTaskError is returned when two schemas define the same task name.
type DuplicateTaskError struct {
	Name string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("task %q already exists", e.Name)
}

func (e *DuplicateTaskError) Is(target error) bool {
	return target == ErrDuplicateTask
}
