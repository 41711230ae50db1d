package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Initiative ("Big Rock") is tracked on its own and never feeds the rollup.
type Initiative struct {
	ID             primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Title          string              `json:"title" bson:"title" validate:"required"`
	Description    string              `json:"description" bson:"description"`
	ObjectiveID    *primitive.ObjectID `json:"objective_id,omitempty" bson:"objective_id,omitempty"`
	KeyResultID    *primitive.ObjectID `json:"key_result_id,omitempty" bson:"key_result_id,omitempty"`
	Progress       float64             `json:"progress" bson:"progress" validate:"min=0,max=100"`
	Status         Status              `json:"status" bson:"status"`
	StatusOverride bool                `json:"status_override" bson:"status_override"`
	Quarter        int                 `json:"quarter" bson:"quarter" validate:"min=0,max=4"`
	Year           int                 `json:"year" bson:"year" validate:"omitempty,min=1970,max=9999"`
	PeriodStart    *time.Time          `json:"period_start,omitempty" bson:"period_start,omitempty"`
	PeriodEnd      *time.Time          `json:"period_end,omitempty" bson:"period_end,omitempty"`
	OwnerID        string              `json:"owner_id" bson:"owner_id"`
	IsDeleted      bool                `json:"is_deleted" bson:"is_deleted"`
	Metadata       Metadata            `json:"metadata" bson:"metadata"`
}

func (i *Initiative) Ref() EntityRef { return InitiativeRef(i.ID) }

type CreateInitiativeRequest struct {
	Title       string              `json:"title" validate:"required"`
	Description string              `json:"description"`
	ObjectiveID *primitive.ObjectID `json:"objective_id"`
	KeyResultID *primitive.ObjectID `json:"key_result_id"`
	Quarter     int                 `json:"quarter" validate:"min=0,max=4"`
	Year        int                 `json:"year" validate:"omitempty,min=1970,max=9999"`
	PeriodStart *time.Time          `json:"period_start"`
	PeriodEnd   *time.Time          `json:"period_end"`
	OwnerID     string              `json:"owner_id"`
}
