package taskservice

import "fmt"

// NotFoundError indicates the requested task does not belong to the
// given plan.
type NotFoundError struct {
	PlanID string
	TaskID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %q not found for plan %q", e.TaskID, e.PlanID)
}

// DecisionCompleteForbiddenError indicates a decision task was targeted
// by a direct status update to done.
type DecisionCompleteForbiddenError struct {
	TaskKey string
}

func (e *DecisionCompleteForbiddenError) Error() string {
	return "Decision-Task kann nicht manuell abgeschlossen werden; bitte Auswahl treffen."
}

// BlockedError indicates unresolved hard dependencies prevent the task
// from completing without force.
type BlockedError struct {
	TaskKey    string
	Unresolved []string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("task %q is blocked by unresolved dependencies: %v", e.TaskKey, e.Unresolved)
}
