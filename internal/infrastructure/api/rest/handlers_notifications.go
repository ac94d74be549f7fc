package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lifeplan/service/internal/application/notifyprofile"
	"github.com/lifeplan/service/internal/infrastructure/logger"
	"github.com/lifeplan/service/internal/infrastructure/storage/models"
)

// NotificationHandlers provides HTTP handlers for a plan's
// notification profile and the public unsubscribe endpoint.
type NotificationHandlers struct {
	profiles *notifyprofile.Service
	logger   *logger.Logger
}

// NewNotificationHandlers creates a new NotificationHandlers instance.
func NewNotificationHandlers(profiles *notifyprofile.Service, log *logger.Logger) *NotificationHandlers {
	return &NotificationHandlers{profiles: profiles, logger: log}
}

type notificationProfileResponse struct {
	PlanID                 uuid.UUID `json:"plan_id"`
	Email                  string    `json:"email,omitempty"`
	EmailConsent           bool      `json:"email_consent"`
	Locale                 string    `json:"locale"`
	Timezone               string    `json:"timezone"`
	ReminderDueSoonEnabled bool      `json:"reminder_due_soon_enabled"`
	Sendable               bool      `json:"sendable"`
}

func toNotificationProfileResponse(profile *models.NotificationProfileModel) notificationProfileResponse {
	return notificationProfileResponse{
		PlanID:                 profile.PlanID,
		Email:                  profile.Email,
		EmailConsent:           profile.EmailConsent,
		Locale:                 profile.Locale,
		Timezone:               profile.Timezone,
		ReminderDueSoonEnabled: profile.ReminderDueSoonEnabled,
		Sendable:               notifyprofile.IsSendable(profile),
	}
}

// HandleUpsertNotificationProfile handles PUT /plans/{id}/notification-profile.
func (h *NotificationHandlers) HandleUpsertNotificationProfile(c *gin.Context) {
	planID, ok := getParam(c, "plan_id")
	if !ok {
		return
	}
	id, err := uuid.Parse(planID)
	if err != nil {
		respondAPIError(c, ErrInvalidID)
		return
	}

	var req struct {
		Email                  string `json:"email"`
		EmailConsent           bool   `json:"email_consent"`
		Locale                 string `json:"locale"`
		Timezone               string `json:"timezone"`
		ReminderDueSoonEnabled bool   `json:"reminder_due_soon_enabled"`
	}
	if err := bindJSON(c, &req); err != nil {
		return
	}

	profile, err := h.profiles.Upsert(c.Request.Context(), id, notifyprofile.UpsertParams{
		Email:                  req.Email,
		EmailConsent:           req.EmailConsent,
		Locale:                 req.Locale,
		Timezone:               req.Timezone,
		ReminderDueSoonEnabled: req.ReminderDueSoonEnabled,
	})
	if err != nil {
		h.logger.Error("failed to upsert notification profile", "error", err, "plan_id", id, "request_id", GetRequestID(c))
		respondAPIErrorWithRequestID(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toNotificationProfileResponse(profile))
}

// HandleUnsubscribe handles GET /notifications/unsubscribe. It always
// responds {ok:true}, whether or not token matched a profile, so the
// endpoint never discloses token validity to the caller.
func (h *NotificationHandlers) HandleUnsubscribe(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		respondJSON(c, http.StatusOK, gin.H{"ok": true})
		return
	}

	if _, err := h.profiles.UnsubscribeByToken(c.Request.Context(), token); err != nil {
		h.logger.Error("failed to process unsubscribe token", "error", err, "request_id", GetRequestID(c))
	}

	respondJSON(c, http.StatusOK, gin.H{"ok": true})
}
