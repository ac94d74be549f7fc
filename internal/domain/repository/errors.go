package repository

import "errors"

// Sentinel not-found errors returned by the storage implementations of
// the repository interfaces in this package. Callers use errors.Is to
// detect them regardless of which concrete repository raised them.
var (
	ErrPlanNotFound                = errors.New("plan not found")
	ErrTaskNotFound                = errors.New("task not found")
	ErrNotificationProfileNotFound = errors.New("notification profile not found")
)
