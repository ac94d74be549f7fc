package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TaskModel represents one task materialized from a plan's template in
// the database.
type TaskModel struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	PlanID       uuid.UUID  `bun:"plan_id,notnull,type:uuid" json:"plan_id" validate:"required"`
	TaskKey      string     `bun:"task_key,notnull" json:"task_key" validate:"required,max=255"`
	Title        string     `bun:"title,notnull" json:"title" validate:"required"`
	Description  string     `bun:"description" json:"description,omitempty"`
	Status       string     `bun:"status,notnull,default:'todo'" json:"status" validate:"required,oneof=todo in_progress done blocked skipped"`
	DueDate      *time.Time `bun:"due_date,type:date" json:"due_date,omitempty"`
	Metadata     JSONBMap   `bun:"metadata,type:jsonb,notnull,default:'{}'" json:"metadata"`
	SortKey      int        `bun:"sort_key,notnull" json:"sort_key"`
	CompletedAt  *time.Time `bun:"completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Plan *PlanModel `bun:"rel:belongs-to,join:plan_id=id" json:"-"`
}

// TableName returns the table name for TaskModel.
func (TaskModel) TableName() string {
	return "tasks"
}

// BeforeInsert hook to set timestamps.
func (t *TaskModel) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Metadata == nil {
		t.Metadata = make(JSONBMap)
	}
	return nil
}

// BeforeUpdate hook to update timestamp.
func (t *TaskModel) BeforeUpdate(ctx interface{}) error {
	t.UpdatedAt = time.Now()
	return nil
}

// BlockedBy returns the task keys this task is gated on, as recorded
// in its metadata at plan-build time.
func (t *TaskModel) BlockedBy() []string {
	raw, ok := t.Metadata["blocked_by"]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// IsDecision reports whether this task's tags include "decision",
// meaning it can never be completed through a direct status update.
func (t *TaskModel) IsDecision() bool {
	raw, ok := t.Metadata["tags"]
	if !ok {
		return false
	}
	tags, ok := raw.([]interface{})
	if !ok {
		return false
	}
	for _, tag := range tags {
		if s, ok := tag.(string); ok && s == "decision" {
			return true
		}
	}
	return false
}

// BlockType returns the task's gating mode as recorded in metadata,
// defaulting to "hard" when unset.
func (t *TaskModel) BlockType() string {
	if s, ok := t.Metadata["block_type"].(string); ok && s != "" {
		return s
	}
	return "hard"
}
