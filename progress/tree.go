package progress

import (
	"errors"
	"fmt"

	"okrproject/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrCycle = errors.New("objective hierarchy contains a cycle")

// Tree is an arena of objectives keyed by id with a parent→children index.
// Objectives whose parent is not in the arena are treated as roots.
type Tree struct {
	order      []primitive.ObjectID
	objectives map[primitive.ObjectID]*models.Objective
	children   map[primitive.ObjectID][]primitive.ObjectID
	keyResults map[primitive.ObjectID][]models.KeyResult
}

// NewTree copies the given objectives and key results into an arena. Deleted
// entries are dropped. It fails with ErrCycle when the parent links loop.
func NewTree(objectives []models.Objective, keyResults []models.KeyResult) (*Tree, error) {
	t := &Tree{
		objectives: make(map[primitive.ObjectID]*models.Objective, len(objectives)),
		children:   make(map[primitive.ObjectID][]primitive.ObjectID),
		keyResults: make(map[primitive.ObjectID][]models.KeyResult),
	}
	for i := range objectives {
		o := objectives[i]
		if o.IsDeleted {
			continue
		}
		if _, dup := t.objectives[o.ID]; dup {
			return nil, fmt.Errorf("duplicate objective %s", o.ID.Hex())
		}
		t.objectives[o.ID] = &o
		t.order = append(t.order, o.ID)
	}
	for _, id := range t.order {
		o := t.objectives[id]
		if o.ParentID == nil {
			continue
		}
		if _, ok := t.objectives[*o.ParentID]; ok {
			t.children[*o.ParentID] = append(t.children[*o.ParentID], id)
		}
	}
	for _, kr := range keyResults {
		if kr.IsDeleted {
			continue
		}
		if _, ok := t.objectives[kr.ObjectiveID]; ok {
			t.keyResults[kr.ObjectiveID] = append(t.keyResults[kr.ObjectiveID], kr)
		}
	}
	if _, err := t.PostOrder(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) Objective(id primitive.ObjectID) (*models.Objective, bool) {
	o, ok := t.objectives[id]
	return o, ok
}

func (t *Tree) Len() int { return len(t.order) }

// PostOrder lists every objective with children ahead of their parent.
func (t *Tree) PostOrder() ([]primitive.ObjectID, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[primitive.ObjectID]int, len(t.order))
	out := make([]primitive.ObjectID, 0, len(t.order))

	var visit func(id primitive.ObjectID) error
	visit = func(id primitive.ObjectID) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("%w at objective %s", ErrCycle, id.Hex())
		case done:
			return nil
		}
		state[id] = visiting
		for _, child := range t.children[id] {
			if err := visit(child); err != nil {
				return err
			}
		}
		state[id] = done
		out = append(out, id)
		return nil
	}

	for _, id := range t.order {
		if o := t.objectives[id]; o.ParentID != nil {
			if _, inArena := t.objectives[*o.ParentID]; inArena {
				continue
			}
		}
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	// objectives only reachable through a loop never hang off a root
	if len(out) != len(t.order) {
		for _, id := range t.order {
			if state[id] != done {
				return nil, fmt.Errorf("%w at objective %s", ErrCycle, id.Hex())
			}
		}
	}
	return out, nil
}

// StatusFunc derives the status of an objective whose progress was just recomputed.
type StatusFunc func(o *models.Objective, rollup Rollup) models.Status

// Recompute walks the arena bottom-up, storing each objective's new progress
// (and status, when status is non-nil) in place. It returns the objectives
// whose progress or status changed, deepest first.
func (t *Tree) Recompute(status StatusFunc) ([]*models.Objective, error) {
	ids, err := t.PostOrder()
	if err != nil {
		return nil, err
	}
	var changed []*models.Objective
	for _, id := range ids {
		o := t.objectives[id]
		children := make([]models.Objective, 0, len(t.children[id]))
		for _, cid := range t.children[id] {
			children = append(children, *t.objectives[cid])
		}
		r := RollupObjective(o, t.keyResults[id], children)

		newStatus := o.Status
		if status != nil {
			newStatus = status(o, r)
		}
		if r.Progress != o.Progress || newStatus != o.Status {
			o.Progress = r.Progress
			o.Status = newStatus
			changed = append(changed, o)
		}
	}
	return changed, nil
}
