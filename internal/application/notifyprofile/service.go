// Package notifyprofile manages a plan's notification delivery
// preferences and its unsubscribe token lifecycle.
package notifyprofile

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lifeplan/service/internal/domain/repository"
	"github.com/lifeplan/service/internal/infrastructure/storage/models"
)

// Service manages notification profiles and their unsubscribe tokens.
type Service struct {
	profiles repository.NotificationProfileRepository
	secret   []byte
}

// New creates a Service. secret signs unsubscribe tokens and must stay
// stable across process restarts for previously issued tokens to keep
// validating.
func New(profiles repository.NotificationProfileRepository, secret []byte) *Service {
	return &Service{profiles: profiles, secret: secret}
}

// GetOrCreate returns the plan's notification profile, creating an
// empty (non-sendable) one if none exists.
func (s *Service) GetOrCreate(ctx context.Context, planID uuid.UUID) (*models.NotificationProfileModel, error) {
	return s.profiles.GetOrCreate(ctx, planID)
}

// UpsertParams are the user-editable notification profile fields.
type UpsertParams struct {
	Email                  string
	EmailConsent           bool
	Locale                 string
	Timezone               string
	ReminderDueSoonEnabled bool
}

// Upsert creates or updates a plan's notification profile. Consent
// alone never flips unsubscribed_at: only UnsubscribeByToken sets it,
// and nothing in this service clears it again, so re-consenting after
// an unsubscribe does not make the profile sendable.
func (s *Service) Upsert(ctx context.Context, planID uuid.UUID, params UpsertParams) (*models.NotificationProfileModel, error) {
	profile, err := s.profiles.GetOrCreate(ctx, planID)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(params.Email)
	profile.Email = email
	profile.EmailConsent = params.EmailConsent
	profile.Locale = params.Locale
	profile.Timezone = params.Timezone
	profile.ReminderDueSoonEnabled = params.ReminderDueSoonEnabled
	profile.UpdatedAt = time.Now()

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// IsSendable reports whether profile currently accepts email
// reminders.
func IsSendable(profile *models.NotificationProfileModel) bool {
	return profile.IsSendable()
}

// IssueUnsubscribeToken returns the deterministic unsubscribe token for
// profile's current token version, persisting its hash if this is the
// first issuance for that version. The raw token is never stored.
func (s *Service) IssueUnsubscribeToken(ctx context.Context, profile *models.NotificationProfileModel) (string, error) {
	if profile.UnsubscribeTokenVersion == 0 {
		profile.UnsubscribeTokenVersion = 1
	}
	token := s.buildToken(profile.ID, profile.UnsubscribeTokenVersion)
	hash := hashToken(token)

	if profile.UnsubscribeTokenHash != hash {
		profile.UnsubscribeTokenHash = hash
		profile.UpdatedAt = time.Now()
		if err := s.profiles.Update(ctx, profile); err != nil {
			return "", err
		}
	}
	return token, nil
}

// RotateUnsubscribeToken increments a profile's token version,
// invalidating any previously issued token, and returns the new one.
func (s *Service) RotateUnsubscribeToken(ctx context.Context, profile *models.NotificationProfileModel) (string, error) {
	profile.UnsubscribeTokenVersion++
	profile.UnsubscribeTokenHash = ""
	return s.IssueUnsubscribeToken(ctx, profile)
}

// UnsubscribeByToken marks the owning profile unsubscribed and reports
// whether the token matched a profile. Callers serving this over HTTP
// must respond {ok:true} regardless of the returned bool, so that
// token existence is never disclosed to the caller.
func (s *Service) UnsubscribeByToken(ctx context.Context, token string) (bool, error) {
	profile, err := s.profiles.FindByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotificationProfileNotFound) {
			return false, nil
		}
		return false, err
	}

	if profile.UnsubscribedAt == nil {
		now := time.Now()
		profile.UnsubscribedAt = &now
		profile.UpdatedAt = now
		if err := s.profiles.Update(ctx, profile); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (s *Service) buildToken(profileID uuid.UUID, version int) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(fmt.Sprintf("%s.%d", profileID, version)))
	sig := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("%s.%d.%s", profileID, version, sig)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
