package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PlanModel represents a materialized life-event plan in the database.
type PlanModel struct {
	bun.BaseModel `bun:"table:plans,alias:pl"`

	ID          uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	TemplateKey string    `bun:"template_key,notnull" json:"template_key" validate:"required,max=255"`
	Facts       JSONBMap  `bun:"facts,type:jsonb,notnull,default:'{}'" json:"facts"`
	Snapshot    JSONBMap  `bun:"snapshot,type:jsonb,notnull,default:'{}'" json:"snapshot"`
	Status      string    `bun:"status,notnull,default:'active'" json:"status" validate:"required,oneof=creating active archived"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Tasks []*TaskModel `bun:"rel:has-many,join:id=plan_id" json:"tasks,omitempty"`
}

// TableName returns the table name for PlanModel.
func (PlanModel) TableName() string {
	return "plans"
}

// BeforeInsert hook to set timestamps.
func (p *PlanModel) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Facts == nil {
		p.Facts = make(JSONBMap)
	}
	if p.Snapshot == nil {
		p.Snapshot = make(JSONBMap)
	}
	return nil
}

// BeforeUpdate hook to update timestamp.
func (p *PlanModel) BeforeUpdate(ctx interface{}) error {
	p.UpdatedAt = time.Now()
	return nil
}

// IsArchived returns true if the plan has been archived.
func (p *PlanModel) IsArchived() bool {
	return p.Status == "archived"
}
