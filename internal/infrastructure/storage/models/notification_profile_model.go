package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NotificationProfileModel represents a plan's reminder delivery
// preferences in the database.
type NotificationProfileModel struct {
	bun.BaseModel `bun:"table:notification_profiles,alias:np"`

	ID                     uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	PlanID                 uuid.UUID  `bun:"plan_id,notnull,type:uuid" json:"plan_id" validate:"required"`
	Email                  string     `bun:"email" json:"email,omitempty"`
	EmailConsent           bool       `bun:"email_consent,notnull,default:false" json:"email_consent"`
	Locale                 string     `bun:"locale,notnull,default:'de-DE'" json:"locale"`
	Timezone               string     `bun:"timezone,notnull,default:'Europe/Berlin'" json:"timezone"`
	ReminderDueSoonEnabled bool       `bun:"reminder_due_soon_enabled,notnull,default:true" json:"reminder_due_soon_enabled"`
	MaxRemindersPerDay     int        `bun:"max_reminders_per_day,notnull,default:1" json:"max_reminders_per_day"`
	UnsubscribedAt         *time.Time `bun:"unsubscribed_at" json:"unsubscribed_at,omitempty"`
	UnsubscribeTokenHash   string     `bun:"unsubscribe_token_hash" json:"-"`
	UnsubscribeTokenVersion int       `bun:"unsubscribe_token_version,notnull,default:1" json:"-"`
	CreatedAt              time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt              time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Plan *PlanModel `bun:"rel:belongs-to,join:plan_id=id" json:"-"`
}

// TableName returns the table name for NotificationProfileModel.
func (NotificationProfileModel) TableName() string {
	return "notification_profiles"
}

// BeforeInsert hook to set timestamps.
func (n *NotificationProfileModel) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.UnsubscribeTokenVersion == 0 {
		n.UnsubscribeTokenVersion = 1
	}
	return nil
}

// BeforeUpdate hook to update timestamp.
func (n *NotificationProfileModel) BeforeUpdate(ctx interface{}) error {
	n.UpdatedAt = time.Now()
	return nil
}

// IsSendable reports whether this profile currently accepts email
// reminders: consented, not unsubscribed, has an address, and the
// due-soon reminder type is enabled.
func (n *NotificationProfileModel) IsSendable() bool {
	return n.Email != "" &&
		n.EmailConsent &&
		n.UnsubscribedAt == nil &&
		n.ReminderDueSoonEnabled
}
