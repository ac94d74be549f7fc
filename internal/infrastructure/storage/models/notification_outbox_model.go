package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NotificationOutboxModel represents one queued or dispatched
// notification delivery attempt in the database.
type NotificationOutboxModel struct {
	bun.BaseModel `bun:"table:notification_outbox,alias:ob"`

	ID                uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	ProfileID         uuid.UUID `bun:"profile_id,notnull,type:uuid" json:"profile_id" validate:"required"`
	Channel           string    `bun:"channel,notnull,default:'email'" json:"channel" validate:"required,oneof=email"`
	Type              string    `bun:"type,notnull" json:"type" validate:"required,oneof=task_due_soon"`
	DedupeKeyRaw      string    `bun:"dedupe_key_raw,notnull,unique" json:"dedupe_key_raw"`
	Payload           JSONBMap  `bun:"payload,type:jsonb,notnull,default:'{}'" json:"payload"`
	Status            string    `bun:"status,notnull,default:'pending'" json:"status" validate:"required,oneof=pending sending sent dead"`
	FailureClass      string    `bun:"failure_class" json:"failure_class,omitempty" validate:"omitempty,oneof=retryable permanent"`
	NextAttemptAt     time.Time `bun:"next_attempt_at,notnull" json:"next_attempt_at"`
	AttemptCount      int       `bun:"attempt_count,notnull,default:0" json:"attempt_count"`
	LastErrorCode     string    `bun:"last_error_code" json:"last_error_code,omitempty"`
	LastErrorMessage  string    `bun:"last_error_message" json:"last_error_message,omitempty"`
	ProviderMessageID string    `bun:"provider_message_id" json:"provider_message_id,omitempty"`
	SentAt            *time.Time `bun:"sent_at" json:"sent_at,omitempty"`
	CreatedAt         time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt         time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Profile *NotificationProfileModel `bun:"rel:belongs-to,join:profile_id=id" json:"-"`
}

// TableName returns the table name for NotificationOutboxModel.
func (NotificationOutboxModel) TableName() string {
	return "notification_outbox"
}

// BeforeInsert hook to set timestamps.
func (o *NotificationOutboxModel) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Payload == nil {
		o.Payload = make(JSONBMap)
	}
	if o.Channel == "" {
		o.Channel = "email"
	}
	if o.Status == "" {
		o.Status = "pending"
	}
	return nil
}

// BeforeUpdate hook to update timestamp.
func (o *NotificationOutboxModel) BeforeUpdate(ctx interface{}) error {
	o.UpdatedAt = time.Now()
	return nil
}

// IsDead reports whether this entry has exhausted retries or hit a
// permanent failure.
func (o *NotificationOutboxModel) IsDead() bool {
	return o.Status == "dead"
}
