package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/lifeplan/service/internal/domain/repository"
	"github.com/lifeplan/service/internal/infrastructure/storage/models"
)

var _ repository.NotificationProfileRepository = (*NotificationProfileRepositoryImpl)(nil)

// NotificationProfileRepositoryImpl implements
// repository.NotificationProfileRepository using Bun.
type NotificationProfileRepositoryImpl struct {
	db bun.IDB
}

// NewNotificationProfileRepository creates a new
// NotificationProfileRepositoryImpl.
func NewNotificationProfileRepository(db bun.IDB) *NotificationProfileRepositoryImpl {
	return &NotificationProfileRepositoryImpl{db: db}
}

// GetOrCreate returns the plan's notification profile, creating an
// empty one if none exists.
func (r *NotificationProfileRepositoryImpl) GetOrCreate(ctx context.Context, planID uuid.UUID) (*models.NotificationProfileModel, error) {
	profile := new(models.NotificationProfileModel)
	err := r.db.NewSelect().Model(profile).Where("plan_id = ?", planID).Scan(ctx)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	profile = &models.NotificationProfileModel{
		ID:                      uuid.New(),
		PlanID:                  planID,
		Locale:                  "de-DE",
		Timezone:                "Europe/Berlin",
		ReminderDueSoonEnabled:  true,
		MaxRemindersPerDay:      1,
		UnsubscribeTokenVersion: 1,
	}
	if _, err := r.db.NewInsert().
		Model(profile).
		On("CONFLICT (plan_id) DO NOTHING").
		Exec(ctx); err != nil {
		return nil, err
	}

	// Another request may have won the race; re-read either way so the
	// caller always observes the persisted row.
	if err := r.db.NewSelect().Model(profile).Where("plan_id = ?", planID).Scan(ctx); err != nil {
		return nil, err
	}
	return profile, nil
}

// FindByID retrieves a profile by ID.
func (r *NotificationProfileRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.NotificationProfileModel, error) {
	profile := new(models.NotificationProfileModel)
	err := r.db.NewSelect().Model(profile).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotificationProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

// FindByTokenHash retrieves a profile by its stored unsubscribe token
// hash.
func (r *NotificationProfileRepositoryImpl) FindByTokenHash(ctx context.Context, tokenHash string) (*models.NotificationProfileModel, error) {
	profile := new(models.NotificationProfileModel)
	err := r.db.NewSelect().Model(profile).Where("unsubscribe_token_hash = ?", tokenHash).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotificationProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

// Update persists a profile's mutable fields.
func (r *NotificationProfileRepositoryImpl) Update(ctx context.Context, profile *models.NotificationProfileModel) error {
	_, err := r.db.NewUpdate().
		Model(profile).
		Column(
			"email", "email_consent", "locale", "timezone",
			"reminder_due_soon_enabled", "max_reminders_per_day",
			"unsubscribed_at", "unsubscribe_token_hash",
			"unsubscribe_token_version", "updated_at",
		).
		WherePK().
		Exec(ctx)
	return err
}

// ListSendable retrieves all profiles currently eligible for reminder
// delivery.
func (r *NotificationProfileRepositoryImpl) ListSendable(ctx context.Context) ([]*models.NotificationProfileModel, error) {
	var profiles []*models.NotificationProfileModel
	err := r.db.NewSelect().
		Model(&profiles).
		Where("email IS NOT NULL AND email != ''").
		Where("email_consent = true").
		Where("unsubscribed_at IS NULL").
		Where("reminder_due_soon_enabled = true").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return profiles, nil
}
