package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Objective struct {
	ID             primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Title          string              `json:"title" bson:"title" validate:"required"`
	Description    string              `json:"description" bson:"description"`
	Level          Level               `json:"level" bson:"level" validate:"omitempty,oneof=organization team individual"`
	ParentID       *primitive.ObjectID `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	ProgressMode   ProgressMode        `json:"progress_mode" bson:"progress_mode" validate:"omitempty,oneof=rollup manual"`
	Progress       float64             `json:"progress" bson:"progress" validate:"min=0,max=100"`
	Status         Status              `json:"status" bson:"status"`
	StatusOverride bool                `json:"status_override" bson:"status_override"`
	Weight         float64             `json:"weight" bson:"weight" validate:"min=0,max=100"`
	IsWeightLocked bool                `json:"is_weight_locked" bson:"is_weight_locked"`
	Quarter        int                 `json:"quarter" bson:"quarter" validate:"min=0,max=4"`
	Year           int                 `json:"year" bson:"year" validate:"omitempty,min=1970,max=9999"`
	PeriodStart    *time.Time          `json:"period_start,omitempty" bson:"period_start,omitempty"`
	PeriodEnd      *time.Time          `json:"period_end,omitempty" bson:"period_end,omitempty"`
	OwnerID        string              `json:"owner_id" bson:"owner_id"`
	IsDeleted      bool                `json:"is_deleted" bson:"is_deleted"`
	Metadata       Metadata            `json:"metadata" bson:"metadata"`
}

func (o *Objective) Ref() EntityRef { return ObjectiveRef(o.ID) }

func (o *Objective) IsManual() bool { return o.ProgressMode == ProgressManual }

type Metadata struct {
	CreatedBy string    `json:"created_by" bson:"created_by"`
	UpdatedBy string    `json:"updated_by" bson:"updated_by"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

type ReparentRequest struct {
	ParentID *primitive.ObjectID `json:"parent_id"`
}

type StatusBreakdown struct {
	Status      Status  `json:"status" bson:"_id"`
	Count       int     `json:"count" bson:"count"`
	AvgProgress float64 `json:"avg_progress" bson:"avg_progress"`
}

type CreateObjectiveRequest struct {
	Title          string              `json:"title" validate:"required"`
	Description    string              `json:"description"`
	Level          Level               `json:"level" validate:"omitempty,oneof=organization team individual"`
	ParentID       *primitive.ObjectID `json:"parent_id"`
	ProgressMode   ProgressMode        `json:"progress_mode" validate:"omitempty,oneof=rollup manual"`
	Progress       *float64            `json:"progress" validate:"omitempty,min=0,max=100"`
	Weight         *float64            `json:"weight" validate:"omitempty,min=0,max=100"`
	IsWeightLocked bool                `json:"is_weight_locked"`
	// Rebalance renormalizes the parent's unlocked weights after the insert.
	Rebalance      bool                `json:"rebalance"`
	Quarter        int                 `json:"quarter" validate:"min=0,max=4"`
	Year           int                 `json:"year" validate:"omitempty,min=1970,max=9999"`
	PeriodStart    *time.Time          `json:"period_start"`
	PeriodEnd      *time.Time          `json:"period_end"`
	OwnerID        string              `json:"owner_id"`
}
