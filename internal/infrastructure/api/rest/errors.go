package rest

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/lifeplan/service/internal/application/planservice"
	"github.com/lifeplan/service/internal/application/taskservice"
	"github.com/lifeplan/service/internal/application/template"
	"github.com/lifeplan/service/internal/domain/repository"
)

type APIError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(code, message string, httpStatus int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func NewAPIErrorWithDetails(code, message string, httpStatus int, details map[string]interface{}) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		Details:    details,
		HTTPStatus: httpStatus,
	}
}

var (
	ErrBadRequest       = NewAPIError("BAD_REQUEST", "Invalid request", http.StatusBadRequest)
	ErrNotFound         = NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrMissingParameter = NewAPIError("MISSING_PARAMETER", "Required parameter is missing", http.StatusBadRequest)
	ErrInvalidID        = NewAPIError("INVALID_ID", "Invalid ID format", http.StatusBadRequest)
	ErrInvalidJSON      = NewAPIError("REQUEST_VALIDATION_ERROR", "Invalid JSON in request body", http.StatusUnprocessableEntity)
	ErrInternalServer   = NewAPIError("PERSISTENCE_ERROR", "Internal server error", http.StatusInternalServerError)
)

// TranslateError maps a service/repository error to the error taxonomy:
// template/plan/task not-found map to 404, planner/validation failures
// to 400, task gating conflicts to 409, and anything left over to a
// 500 PERSISTENCE_ERROR.
func TranslateError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var templateNotFound *template.NotFoundError
	if errors.As(err, &templateNotFound) {
		return NewAPIError("TEMPLATE_NOT_FOUND", templateNotFound.Error(), http.StatusNotFound)
	}

	var plannerInvalid *planservice.InvalidPlannerInputError
	if errors.As(err, &plannerInvalid) {
		return NewAPIError("PLANNER_INPUT_INVALID", plannerInvalid.Error(), http.StatusBadRequest)
	}

	var taskNotFound *taskservice.NotFoundError
	if errors.As(err, &taskNotFound) {
		return NewAPIError("TASK_NOT_FOUND", taskNotFound.Error(), http.StatusNotFound)
	}

	var decisionForbidden *taskservice.DecisionCompleteForbiddenError
	if errors.As(err, &decisionForbidden) {
		return NewAPIError("TASK_DECISION_MANUAL_COMPLETE_FORBIDDEN", decisionForbidden.Error(), http.StatusConflict)
	}

	var taskBlocked *taskservice.BlockedError
	if errors.As(err, &taskBlocked) {
		return NewAPIErrorWithDetails("TASK_BLOCKED", taskBlocked.Error(), http.StatusConflict, map[string]interface{}{
			"unresolved": taskBlocked.Unresolved,
		})
	}

	switch {
	case errors.Is(err, repository.ErrPlanNotFound):
		return NewAPIError("PLAN_NOT_FOUND", "Plan not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrTaskNotFound):
		return NewAPIError("TASK_NOT_FOUND", "Task not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrNotificationProfileNotFound):
		return NewAPIError("NOTIFICATION_PROFILE_NOT_FOUND", "Notification profile not found", http.StatusNotFound)
	case errors.Is(err, sql.ErrNoRows):
		return NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "no rows") || strings.Contains(errMsg, "not found") {
		return NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	}

	return NewAPIError("PERSISTENCE_ERROR", "An unexpected error occurred", http.StatusInternalServerError)
}
