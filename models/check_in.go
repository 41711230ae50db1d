package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckIn is one ledger row. CreatedAt is set once; AsOfDate is the period the
// observation applies to and orders the history.
type CheckIn struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	EntityType        EntityType         `json:"entity_type" bson:"entity_type"`
	EntityID          primitive.ObjectID `json:"entity_id" bson:"entity_id"`
	PreviousValue     *float64           `json:"previous_value,omitempty" bson:"previous_value,omitempty"`
	NewValue          *float64           `json:"new_value,omitempty" bson:"new_value,omitempty"`
	PreviousProgress  float64            `json:"previous_progress" bson:"previous_progress"`
	NewProgress       float64            `json:"new_progress" bson:"new_progress"`
	PreviousStatus    Status             `json:"previous_status" bson:"previous_status"`
	NewStatus         Status             `json:"new_status" bson:"new_status"`
	StatusManuallySet bool               `json:"status_manually_set" bson:"status_manually_set"`
	Note              string             `json:"note" bson:"note"`
	Achievements      []string           `json:"achievements" bson:"achievements"`
	Challenges        []string           `json:"challenges" bson:"challenges"`
	NextSteps         []string           `json:"next_steps" bson:"next_steps"`
	AuthorID          string             `json:"author_id" bson:"author_id"`
	AsOfDate          time.Time          `json:"as_of_date" bson:"as_of_date"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" bson:"updated_at"`
	UpdatedBy         string             `json:"updated_by,omitempty" bson:"updated_by,omitempty"`
}

func (c *CheckIn) Ref() EntityRef {
	return EntityRef{Type: c.EntityType, ID: c.EntityID}
}

type RecordCheckInRequest struct {
	EntityType          EntityType         `json:"entity_type" validate:"required,entity_type"`
	EntityID            primitive.ObjectID `json:"entity_id" validate:"required"`
	NewValue            *float64           `json:"new_value"`
	NewProgress         *float64           `json:"new_progress" validate:"omitempty,min=0,max=100"`
	NewStatus           Status             `json:"new_status" validate:"omitempty,status"`
	ClearStatusOverride bool               `json:"clear_status_override"`
	Note                string             `json:"note"`
	Achievements        []string           `json:"achievements"`
	Challenges          []string           `json:"challenges"`
	NextSteps           []string           `json:"next_steps"`
	AsOfDate            *time.Time         `json:"as_of_date"`
}

func (r *RecordCheckInRequest) Ref() EntityRef {
	return EntityRef{Type: r.EntityType, ID: r.EntityID}
}

// UpdateCheckInRequest lists the editable ledger fields; nil means unchanged.
type UpdateCheckInRequest struct {
	NewValue            *float64   `json:"new_value"`
	NewProgress         *float64   `json:"new_progress" validate:"omitempty,min=0,max=100"`
	NewStatus           *Status    `json:"new_status" validate:"omitempty,status"`
	ClearStatusOverride bool       `json:"clear_status_override"`
	Note                *string    `json:"note"`
	Achievements        []string   `json:"achievements"`
	Challenges          []string   `json:"challenges"`
	NextSteps           []string   `json:"next_steps"`
	AsOfDate            *time.Time `json:"as_of_date"`
}
