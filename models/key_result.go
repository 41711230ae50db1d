package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// KeyResult progress is derived from its metric values; only CurrentValue is written by check-ins.
type KeyResult struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ObjectiveID     primitive.ObjectID `json:"objective_id" bson:"objective_id"`
	Title           string             `json:"title" bson:"title"`
	MetricType      MetricType         `json:"metric_type" bson:"metric_type"`
	InitialValue    float64            `json:"initial_value" bson:"initial_value"`
	CurrentValue    float64            `json:"current_value" bson:"current_value"`
	TargetValue     float64            `json:"target_value" bson:"target_value"`
	Unit            string             `json:"unit" bson:"unit"`
	Progress        float64            `json:"progress" bson:"progress"`
	Weight          float64            `json:"weight" bson:"weight"`
	IsWeightLocked  bool               `json:"is_weight_locked" bson:"is_weight_locked"`
	Status          Status             `json:"status" bson:"status"`
	StatusOverride  bool               `json:"status_override" bson:"status_override"`
	IsPromotedToKpi bool               `json:"is_promoted_to_kpi" bson:"is_promoted_to_kpi"`
	PromotedAt      *time.Time         `json:"promoted_at,omitempty" bson:"promoted_at,omitempty"`
	IsDeleted       bool               `json:"is_deleted" bson:"is_deleted"`
	Metadata        Metadata           `json:"metadata" bson:"metadata"`
}

func (k *KeyResult) Ref() EntityRef { return KeyResultRef(k.ID) }

type CreateKeyResultRequest struct {
	ObjectiveID    primitive.ObjectID `json:"objective_id" validate:"required"`
	Title          string             `json:"title" validate:"required"`
	MetricType     MetricType         `json:"metric_type" validate:"required,metric_type"`
	InitialValue   float64            `json:"initial_value"`
	CurrentValue   *float64           `json:"current_value"`
	TargetValue    float64            `json:"target_value"`
	Unit           string             `json:"unit"`
	Weight         *float64           `json:"weight" validate:"omitempty,min=0,max=100"`
	IsWeightLocked bool               `json:"is_weight_locked"`
	Rebalance      bool               `json:"rebalance"`
}

// WeightUpdate targets one member of an objective's weight set: either one
// of its key results or one of its child objectives.
type WeightUpdate struct {
	KeyResultID      primitive.ObjectID `json:"key_result_id,omitempty" validate:"required_without=ChildObjectiveID"`
	ChildObjectiveID primitive.ObjectID `json:"child_objective_id,omitempty" validate:"required_without=KeyResultID"`
	Weight           float64            `json:"weight" validate:"min=0,max=100"`
	IsWeightLocked   bool               `json:"is_weight_locked"`
}

// WeightSet is every contributor to one objective's rollup.
type WeightSet struct {
	KeyResults      []KeyResult `json:"key_results"`
	ChildObjectives []Objective `json:"child_objectives"`
}

type WeightBatchRequest struct {
	Items []WeightUpdate `json:"items" validate:"required,min=1,dive"`
}

// UpdateKeyResultRequest carries the single-item weight edit.
type UpdateKeyResultRequest struct {
	Weight         *float64 `json:"weight" validate:"omitempty,min=0,max=100"`
	IsWeightLocked *bool    `json:"is_weight_locked"`
}

type KPIDashboardEntry struct {
	KeyResult     KeyResult `json:"key_result"`
	LatestCheckIn *CheckIn  `json:"latest_check_in,omitempty"`
}
