// Package planner implements the workflow template engine: rule
// evaluation, deadline calculation, graph validation, deterministic
// topological sort, and plan generation.
package planner

import "fmt"

// InputError signals a malformed template, facts object, or missing
// anchor fact. It maps to PLANNER_INPUT_INVALID at the service boundary.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func newInputError(format string, args ...interface{}) *InputError {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// DependencyError signals an edge or depends_on reference to an unknown
// task id.
type DependencyError struct {
	Msg string
}

func (e *DependencyError) Error() string { return e.Msg }

func newDependencyError(format string, args ...interface{}) *DependencyError {
	return &DependencyError{Msg: fmt.Sprintf(format, args...)}
}

// RuleError signals a malformed eligibility rule: a null rule, an
// unknown node tag, or an unknown predicate op.
type RuleError struct {
	Msg string
}

func (e *RuleError) Error() string { return e.Msg }

func newRuleError(format string, args ...interface{}) *RuleError {
	return &RuleError{Msg: fmt.Sprintf(format, args...)}
}

// CycleError signals a cycle detected in a graph that is expected to be
// a DAG, naming the nodes left with nonzero in-degree.
type CycleError struct {
	Msg   string
	Nodes []string
}

func (e *CycleError) Error() string { return e.Msg }

func newCycleError(nodes []string) *CycleError {
	return &CycleError{
		Msg:   fmt.Sprintf("Cycle detected: affected nodes %v", nodes),
		Nodes: nodes,
	}
}
