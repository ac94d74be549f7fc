package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lifeplan/service/internal/infrastructure/storage/models"
)

// NotificationProfileRepository defines the interface for notification
// profile persistence.
type NotificationProfileRepository interface {
	// GetOrCreate returns the plan's notification profile, creating an
	// empty (non-sendable) one if none exists yet.
	GetOrCreate(ctx context.Context, planID uuid.UUID) (*models.NotificationProfileModel, error)

	// FindByID retrieves a profile by ID.
	FindByID(ctx context.Context, id uuid.UUID) (*models.NotificationProfileModel, error)

	// FindByTokenHash retrieves a profile by its stored unsubscribe
	// token hash.
	FindByTokenHash(ctx context.Context, tokenHash string) (*models.NotificationProfileModel, error)

	// Update persists a profile's mutable fields.
	Update(ctx context.Context, profile *models.NotificationProfileModel) error

	// ListSendable retrieves all profiles currently eligible for
	// reminder delivery (consented, not unsubscribed, has an email,
	// due-soon reminders enabled).
	ListSendable(ctx context.Context) ([]*models.NotificationProfileModel, error)
}
