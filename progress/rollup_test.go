package progress

import (
	"testing"

	"okrproject/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func percentKR(objectiveID primitive.ObjectID, weight, current float64) models.KeyResult {
	return models.KeyResult{
		ID:           primitive.NewObjectID(),
		ObjectiveID:  objectiveID,
		MetricType:   models.MetricIncrease,
		InitialValue: 0,
		TargetValue:  100,
		CurrentValue: current,
		Weight:       weight,
	}
}

func childOf(parent primitive.ObjectID, weight, progress float64) models.Objective {
	return models.Objective{
		ID:           primitive.NewObjectID(),
		ParentID:     &parent,
		ProgressMode: models.ProgressRollup,
		Weight:       weight,
		Progress:     progress,
	}
}

func TestWeightedAverage(t *testing.T) {
	assert.Equal(t, 0.0, WeightedAverage(nil))
	assert.Equal(t, 0.0, WeightedAverage([]Contributor{{Weight: 0, Progress: 90}, {Weight: 0, Progress: 10}}))
	assert.InDelta(t, 68.0, WeightedAverage([]Contributor{{Weight: 60, Progress: 80}, {Weight: 40, Progress: 50}}), 1e-9)
	assert.InDelta(t, 80.0, WeightedAverage([]Contributor{{Weight: 60, Progress: 80}, {Weight: -5, Progress: 0}}), 1e-9)
}

func TestRollupObjectiveWeightedKeyResults(t *testing.T) {
	o := &models.Objective{ID: primitive.NewObjectID(), ProgressMode: models.ProgressRollup}
	krs := []models.KeyResult{percentKR(o.ID, 60, 80), percentKR(o.ID, 40, 50)}

	r := RollupObjective(o, krs, nil)
	assert.InDelta(t, 68.0, r.Progress, 1e-9)
	assert.Equal(t, 2, r.Contributors)
}

func TestRollupObjectiveMixesChildren(t *testing.T) {
	o := &models.Objective{ID: primitive.NewObjectID(), ProgressMode: models.ProgressRollup}
	krs := []models.KeyResult{percentKR(o.ID, 50, 100)}
	children := []models.Objective{childOf(o.ID, 50, 40)}

	assert.InDelta(t, 70.0, ComputeObjectiveProgress(o, krs, children), 1e-9)
}

func TestRollupObjectiveSkipsMissingAndDeleted(t *testing.T) {
	o := &models.Objective{ID: primitive.NewObjectID(), ProgressMode: models.ProgressRollup}
	deleted := childOf(o.ID, 50, 0)
	deleted.IsDeleted = true
	stranger := childOf(primitive.NewObjectID(), 50, 0)
	gone := percentKR(o.ID, 50, 0)
	gone.IsDeleted = true

	r := RollupObjective(o, []models.KeyResult{percentKR(o.ID, 50, 90), gone}, []models.Objective{deleted, stranger})
	assert.InDelta(t, 90.0, r.Progress, 1e-9)
	assert.Equal(t, 1, r.Contributors)
}

func TestRollupObjectiveEmptyIsZero(t *testing.T) {
	o := &models.Objective{ID: primitive.NewObjectID(), ProgressMode: models.ProgressRollup, Progress: 55}
	r := RollupObjective(o, nil, nil)
	assert.Equal(t, 0.0, r.Progress)
	assert.Zero(t, r.Contributors)
}

func TestRollupObjectiveManualPassesThrough(t *testing.T) {
	o := &models.Objective{ID: primitive.NewObjectID(), ProgressMode: models.ProgressManual, Progress: 42}
	krs := []models.KeyResult{percentKR(o.ID, 100, 100)}
	assert.Equal(t, 42.0, ComputeObjectiveProgress(o, krs, nil))
}
