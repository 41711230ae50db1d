package progress

import (
	"okrproject/models"
)

type Contributor struct {
	Weight   float64
	Progress float64
}

// WeightedAverage returns Σ(weight×progress)/Σ(weight) over contributors with a
// positive weight, and 0 when there are none.
func WeightedAverage(contributors []Contributor) float64 {
	var weights, weighted float64
	for _, c := range contributors {
		w := finite(c.Weight)
		if w <= 0 {
			continue
		}
		weights += w
		weighted += w * clamp(finite(c.Progress), 0, 100)
	}
	if weights == 0 {
		return 0
	}
	return clamp(weighted/weights, 0, 100)
}

// Rollup is the outcome of one objective recomputation.
type Rollup struct {
	Progress     float64
	Contributors int
}

// RollupObjective computes an objective's progress from its key results and
// child objectives. Manual objectives pass their stored progress through.
// Deleted or foreign entries are skipped, so a child that vanished between the
// read and the computation simply stops contributing. Key result progress is
// re-derived from its metric values rather than read from the stored field.
func RollupObjective(o *models.Objective, keyResults []models.KeyResult, children []models.Objective) Rollup {
	contributors := make([]Contributor, 0, len(keyResults)+len(children))
	for i := range keyResults {
		kr := &keyResults[i]
		if kr.IsDeleted || kr.ObjectiveID != o.ID {
			continue
		}
		contributors = append(contributors, Contributor{
			Weight:   kr.Weight,
			Progress: Compute(kr.MetricType, kr.InitialValue, kr.TargetValue, kr.CurrentValue),
		})
	}
	for i := range children {
		child := &children[i]
		if child.IsDeleted || child.ID == o.ID || child.ParentID == nil || *child.ParentID != o.ID {
			continue
		}
		contributors = append(contributors, Contributor{Weight: child.Weight, Progress: child.Progress})
	}

	if o.IsManual() {
		return Rollup{Progress: clamp(finite(o.Progress), 0, 100), Contributors: len(contributors)}
	}
	return Rollup{Progress: WeightedAverage(contributors), Contributors: len(contributors)}
}

// ComputeObjectiveProgress is RollupObjective reduced to the progress value.
func ComputeObjectiveProgress(o *models.Objective, keyResults []models.KeyResult, children []models.Objective) float64 {
	return RollupObjective(o, keyResults, children).Progress
}
