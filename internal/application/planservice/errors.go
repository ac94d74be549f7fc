package planservice

import "fmt"

// InvalidPlannerInputError wraps a planner or validation failure that
// must surface to callers as PLANNER_INPUT_INVALID. Template-lookup
// failures are returned as they are, not wrapped in this type.
type InvalidPlannerInputError struct {
	Err error
}

func (e *InvalidPlannerInputError) Error() string {
	return fmt.Sprintf("invalid planner input: %v", e.Err)
}

func (e *InvalidPlannerInputError) Unwrap() error {
	return e.Err
}
