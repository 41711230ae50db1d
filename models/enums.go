package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusOnTrack    Status = "on_track"
	StatusBehind     Status = "behind"
	StatusAtRisk     Status = "at_risk"
	StatusCompleted  Status = "completed"
	StatusPostponed  Status = "postponed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusOnTrack, StatusBehind, StatusAtRisk,
		StatusCompleted, StatusPostponed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the status can only be left by an explicit user action.
func (s Status) IsTerminal() bool {
	return s == StatusPostponed || s == StatusCancelled
}

type MetricType string

const (
	MetricIncrease MetricType = "increase"
	MetricDecrease MetricType = "decrease"
	MetricMaintain MetricType = "maintain"
	MetricComplete MetricType = "complete"
)

type ProgressMode string

const (
	ProgressRollup ProgressMode = "rollup"
	ProgressManual ProgressMode = "manual"
)

type Level string

const (
	LevelOrganization Level = "organization"
	LevelTeam         Level = "team"
	LevelIndividual   Level = "individual"
)

type EntityType string

const (
	EntityObjective  EntityType = "objective"
	EntityKeyResult  EntityType = "key_result"
	EntityInitiative EntityType = "initiative"
)

// EntityRef identifies one trackable entity of the check-in ledger.
type EntityRef struct {
	Type EntityType         `json:"entity_type" bson:"entity_type"`
	ID   primitive.ObjectID `json:"entity_id" bson:"entity_id"`
}

func ObjectiveRef(id primitive.ObjectID) EntityRef  { return EntityRef{Type: EntityObjective, ID: id} }
func KeyResultRef(id primitive.ObjectID) EntityRef  { return EntityRef{Type: EntityKeyResult, ID: id} }
func InitiativeRef(id primitive.ObjectID) EntityRef { return EntityRef{Type: EntityInitiative, ID: id} }

// ParseEntityRef builds a reference from its wire form.
func ParseEntityRef(entityType, entityID string) (EntityRef, error) {
	t := EntityType(entityType)
	switch t {
	case EntityObjective, EntityKeyResult, EntityInitiative:
	default:
		return EntityRef{}, fmt.Errorf("unknown entity type %q", entityType)
	}
	id, err := primitive.ObjectIDFromHex(entityID)
	if err != nil {
		return EntityRef{}, fmt.Errorf("invalid entity id %q: %w", entityID, err)
	}
	return EntityRef{Type: t, ID: id}, nil
}

func (r EntityRef) String() string {
	return string(r.Type) + ":" + r.ID.Hex()
}
