package services

import (
	"context"
	"fmt"

	"okrproject/models"
	"okrproject/progress"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// weightSet holds everything that shares one objective's rollup weights: its
// key results followed by its child objectives.
type weightSet struct {
	parentID   primitive.ObjectID
	keyResults []models.KeyResult
	children   []models.Objective
}

func (e *Engine) loadWeightSet(ctx context.Context, parentID primitive.ObjectID) (*weightSet, error) {
	krs, err := e.store.KeyResults.GetByObjective(ctx, parentID)
	if err != nil {
		return nil, err
	}
	children, err := e.store.Objectives.GetChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return &weightSet{parentID: parentID, keyResults: krs, children: children}, nil
}

func (w *weightSet) size() int { return len(w.keyResults) + len(w.children) }

func (w *weightSet) items() []progress.WeightedItem {
	items := make([]progress.WeightedItem, 0, w.size())
	for _, kr := range w.keyResults {
		items = append(items, progress.WeightedItem{ID: kr.ID.Hex(), Weight: kr.Weight, Locked: kr.IsWeightLocked})
	}
	for _, o := range w.children {
		items = append(items, progress.WeightedItem{ID: o.ID.Hex(), Weight: o.Weight, Locked: o.IsWeightLocked})
	}
	return items
}

func (w *weightSet) validate() error {
	if violations := progress.ValidateWeights(w.items()); len(violations) > 0 {
		return &WeightValidationError{Violations: violations}
	}
	return nil
}

// merge applies updates to the in-memory set. Each update must name exactly
// one member, and no member may appear twice.
func (w *weightSet) merge(updates []models.WeightUpdate) error {
	krIndex := make(map[primitive.ObjectID]int, len(w.keyResults))
	for i, kr := range w.keyResults {
		krIndex[kr.ID] = i
	}
	childIndex := make(map[primitive.ObjectID]int, len(w.children))
	for i, o := range w.children {
		childIndex[o.ID] = i
	}

	seen := make(map[primitive.ObjectID]bool, len(updates))
	for _, u := range updates {
		id, isKR := u.KeyResultID, true
		switch {
		case !u.KeyResultID.IsZero() && !u.ChildObjectiveID.IsZero():
			return invalidf("weight item names both key result %s and objective %s", u.KeyResultID.Hex(), u.ChildObjectiveID.Hex())
		case u.KeyResultID.IsZero() && u.ChildObjectiveID.IsZero():
			return invalidf("weight item names neither a key result nor a child objective")
		case u.KeyResultID.IsZero():
			id, isKR = u.ChildObjectiveID, false
		}
		if seen[id] {
			return invalidf("%s appears more than once", id.Hex())
		}
		seen[id] = true

		if isKR {
			i, ok := krIndex[id]
			if !ok {
				return invalidf("key result %s does not belong to objective %s", id.Hex(), w.parentID.Hex())
			}
			w.keyResults[i].Weight = u.Weight
			w.keyResults[i].IsWeightLocked = u.IsWeightLocked
			continue
		}
		i, ok := childIndex[id]
		if !ok {
			return invalidf("objective %s is not a child of objective %s", id.Hex(), w.parentID.Hex())
		}
		w.children[i].Weight = u.Weight
		w.children[i].IsWeightLocked = u.IsWeightLocked
	}
	return nil
}

func (w *weightSet) model() *models.WeightSet {
	set := &models.WeightSet{KeyResults: w.keyResults, ChildObjectives: w.children}
	if set.KeyResults == nil {
		set.KeyResults = []models.KeyResult{}
	}
	if set.ChildObjectives == nil {
		set.ChildObjectives = []models.Objective{}
	}
	return set
}

// writeWeights routes each update to the repository owning its member.
func (e *Engine) writeWeights(ctx context.Context, parentID primitive.ObjectID, updates []models.WeightUpdate, editor string) error {
	var krs, children []models.WeightUpdate
	for _, u := range updates {
		if u.KeyResultID.IsZero() {
			children = append(children, u)
		} else {
			krs = append(krs, u)
		}
	}
	if err := e.store.KeyResults.UpdateWeights(ctx, parentID, krs, editor); err != nil {
		return fmt.Errorf("failed to write key result weights: %w", err)
	}
	if err := e.store.Objectives.UpdateWeights(ctx, parentID, children, editor); err != nil {
		return fmt.Errorf("failed to write child objective weights: %w", err)
	}
	return nil
}

// rebalanceWeights normalizes the unlocked weights under parentID and writes
// the members that moved. It does not recompute progress.
func (e *Engine) rebalanceWeights(ctx context.Context, parentID primitive.ObjectID, editor string) error {
	set, err := e.loadWeightSet(ctx, parentID)
	if err != nil {
		return err
	}
	if set.size() == 0 {
		return nil
	}
	if err := set.validate(); err != nil {
		return err
	}

	normalized := progress.NormalizeWeights(set.items())
	var updates []models.WeightUpdate
	for i, item := range normalized {
		u := models.WeightUpdate{Weight: item.Weight, IsWeightLocked: item.Locked}
		if i < len(set.keyResults) {
			if item.Weight == set.keyResults[i].Weight {
				continue
			}
			u.KeyResultID = set.keyResults[i].ID
		} else {
			child := set.children[i-len(set.keyResults)]
			if item.Weight == child.Weight {
				continue
			}
			u.ChildObjectiveID = child.ID
		}
		updates = append(updates, u)
	}
	if len(updates) == 0 {
		return nil
	}
	e.log.Debug("weights rebalanced", "objective_id", parentID.Hex(), "changed", len(updates))
	return e.writeWeights(ctx, parentID, updates, editor)
}
