package services

import (
	"context"
	"fmt"
	"time"

	"okrproject/metrics"
	"okrproject/models"
	"okrproject/progress"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ObjectiveService interface {
	CreateObjective(ctx context.Context, req *models.CreateObjectiveRequest, author string) (*models.Objective, error)
	GetObjective(ctx context.Context, id primitive.ObjectID) (*models.Objective, error)
	// Reparent moves an objective under parentID, or makes it a root when parentID is nil.
	Reparent(ctx context.Context, id primitive.ObjectID, parentID *primitive.ObjectID, editor string) (*models.Objective, error)
	DeleteObjective(ctx context.Context, id primitive.ObjectID, editor string) error
	// RecomputeTree recomputes every objective under id bottom-up and returns the ones that changed.
	RecomputeTree(ctx context.Context, id primitive.ObjectID, asOf time.Time, editor string) ([]models.Objective, error)
	StatusBreakdown(ctx context.Context) ([]models.StatusBreakdown, error)
}

type objectiveService struct {
	engine *Engine
}

func NewObjectiveService(engine *Engine) ObjectiveService {
	return &objectiveService{engine: engine}
}

func (s *objectiveService) CreateObjective(ctx context.Context, req *models.CreateObjectiveRequest, author string) (*models.Objective, error) {
	if req.PeriodStart != nil && req.PeriodEnd != nil && !req.PeriodEnd.After(*req.PeriodStart) {
		return nil, invalidf("period_end must be after period_start")
	}

	now := s.engine.now()
	o := &models.Objective{
		Title:          req.Title,
		Description:    req.Description,
		Level:          req.Level,
		ParentID:       req.ParentID,
		ProgressMode:   req.ProgressMode,
		Weight:         s.engine.settings.Weights.DefaultWeight,
		IsWeightLocked: req.IsWeightLocked,
		Quarter:        req.Quarter,
		Year:           req.Year,
		PeriodStart:    req.PeriodStart,
		PeriodEnd:      req.PeriodEnd,
		OwnerID:        req.OwnerID,
		Metadata: models.Metadata{
			CreatedBy: author,
			UpdatedBy: author,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	if o.ProgressMode == "" {
		o.ProgressMode = models.ProgressRollup
	}
	if o.Level == "" {
		o.Level = models.LevelTeam
	}
	if req.Weight != nil {
		o.Weight = *req.Weight
	}
	if req.Progress != nil {
		if !o.IsManual() {
			return nil, ErrRollupManaged
		}
		o.Progress = clampPercent(*req.Progress)
	}
	o.Status = s.engine.objectiveStatus(o, progress.Rollup{Progress: o.Progress}, now)

	err := s.engine.inTx(ctx, "objective.create", func(ctx context.Context) error {
		if o.ParentID != nil {
			if _, err := s.engine.store.Objectives.GetByID(ctx, *o.ParentID); err != nil {
				return fmt.Errorf("parent objective %s: %w", o.ParentID.Hex(), err)
			}
			if err := s.validateJoin(ctx, *o.ParentID, o); err != nil {
				return err
			}
		}
		if err := s.engine.store.Objectives.Create(ctx, o); err != nil {
			return fmt.Errorf("failed to create objective: %w", err)
		}
		if o.ParentID == nil {
			return nil
		}
		if req.Rebalance {
			if err := s.engine.rebalanceWeights(ctx, *o.ParentID, author); err != nil {
				return err
			}
		}
		_, err := s.engine.propagate(ctx, *o.ParentID, now, author, "objective_create")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.engine.log.Info("objective created", "objective_id", o.ID.Hex(), "progress_mode", o.ProgressMode)
	if req.Rebalance && o.ParentID != nil {
		return s.engine.store.Objectives.GetByID(ctx, o.ID)
	}
	return o, nil
}

// validateJoin checks parentID's weight set as it would be with o added.
func (s *objectiveService) validateJoin(ctx context.Context, parentID primitive.ObjectID, o *models.Objective) error {
	set, err := s.engine.loadWeightSet(ctx, parentID)
	if err != nil {
		return err
	}
	set.children = append(set.children, *o)
	return set.validate()
}

func (s *objectiveService) GetObjective(ctx context.Context, id primitive.ObjectID) (*models.Objective, error) {
	return s.engine.store.Objectives.GetByID(ctx, id)
}

func (s *objectiveService) Reparent(ctx context.Context, id primitive.ObjectID, parentID *primitive.ObjectID, editor string) (*models.Objective, error) {
	err := s.engine.inTx(ctx, "objective.reparent", func(ctx context.Context) error {
		o, err := s.engine.store.Objectives.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("objective %s: %w", id.Hex(), err)
		}
		if parentID != nil {
			if *parentID == id {
				return fmt.Errorf("%w: objective %s cannot be its own parent", ErrCycle, id.Hex())
			}
			if _, err := s.engine.store.Objectives.GetByID(ctx, *parentID); err != nil {
				return fmt.Errorf("parent objective %s: %w", parentID.Hex(), err)
			}
			chain, err := s.engine.store.Objectives.GetAncestorChain(ctx, *parentID)
			if err != nil {
				return err
			}
			for _, a := range chain {
				if a.ID == id {
					return fmt.Errorf("%w: %s is an ancestor of %s", ErrCycle, id.Hex(), parentID.Hex())
				}
			}
			if o.ParentID == nil || *o.ParentID != *parentID {
				if err := s.validateJoin(ctx, *parentID, o); err != nil {
					return err
				}
			}
		}

		oldParent := o.ParentID
		now := s.engine.now()
		o.ParentID = parentID
		o.Metadata.UpdatedBy = editor
		o.Metadata.UpdatedAt = now
		if err := s.engine.store.Objectives.Update(ctx, id, o); err != nil {
			return fmt.Errorf("failed to update objective: %w", err)
		}

		if oldParent != nil {
			if _, err := s.engine.propagate(ctx, *oldParent, now, editor, "reparent"); err != nil {
				return err
			}
		}
		_, err = s.engine.propagate(ctx, id, now, editor, "reparent")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.engine.log.Info("objective reparented", "objective_id", id.Hex(), "root", parentID == nil)
	return s.engine.store.Objectives.GetByID(ctx, id)
}

// DeleteObjective soft deletes the objective together with its subtree and
// recomputes the former ancestors, which no longer count it.
func (s *objectiveService) DeleteObjective(ctx context.Context, id primitive.ObjectID, editor string) error {
	var removed int
	err := s.engine.inTx(ctx, "objective.delete", func(ctx context.Context) error {
		o, err := s.engine.store.Objectives.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("objective %s: %w", id.Hex(), err)
		}
		subtree, err := s.engine.store.Objectives.GetSubtree(ctx, id)
		if err != nil {
			return err
		}
		ids := make([]primitive.ObjectID, len(subtree))
		for i := range subtree {
			ids[i] = subtree[i].ID
		}
		removed = len(ids)
		if err := s.engine.store.Objectives.SoftDeleteMany(ctx, ids, editor); err != nil {
			return fmt.Errorf("failed to delete objectives: %w", err)
		}
		if o.ParentID == nil {
			return nil
		}
		_, err = s.engine.propagate(ctx, *o.ParentID, s.engine.now(), editor, "objective_delete")
		return err
	})
	if err != nil {
		return err
	}
	s.engine.log.Info("objective deleted", "objective_id", id.Hex(), "subtree_size", removed)
	return nil
}

func (s *objectiveService) RecomputeTree(ctx context.Context, id primitive.ObjectID, asOf time.Time, editor string) ([]models.Objective, error) {
	if asOf.IsZero() {
		asOf = s.engine.now()
	}
	asOf = asOf.UTC()

	var changed []models.Objective
	var repaired int
	err := s.engine.inTx(ctx, "objective.recompute", func(ctx context.Context) error {
		changed, repaired = nil, 0
		subtree, err := s.engine.store.Objectives.GetSubtree(ctx, id)
		if err != nil {
			return fmt.Errorf("objective %s: %w", id.Hex(), err)
		}
		ids := make([]primitive.ObjectID, len(subtree))
		byID := make(map[primitive.ObjectID]*models.Objective, len(subtree))
		for i := range subtree {
			ids[i] = subtree[i].ID
			byID[subtree[i].ID] = &subtree[i]
		}
		krs, err := s.engine.store.KeyResults.GetByObjectives(ctx, ids)
		if err != nil {
			return err
		}

		now := s.engine.now()
		for i := range krs {
			kr := &krs[i]
			prevProgress, prevStatus := kr.Progress, kr.Status
			kr.Progress = progress.Compute(kr.MetricType, kr.InitialValue, kr.TargetValue, kr.CurrentValue)
			kr.Status = s.engine.keyResultStatus(kr, byID[kr.ObjectiveID], asOf)
			if kr.Progress == prevProgress && kr.Status == prevStatus {
				continue
			}
			repaired++
			kr.Metadata.UpdatedBy = editor
			kr.Metadata.UpdatedAt = now
			if err := s.engine.store.KeyResults.Update(ctx, kr.ID, kr); err != nil {
				return fmt.Errorf("failed to repair key result %s: %w", kr.ID.Hex(), err)
			}
		}

		tree, err := progress.NewTree(subtree, krs)
		if err != nil {
			return err
		}
		updated, err := tree.Recompute(func(o *models.Objective, r progress.Rollup) models.Status {
			return s.engine.objectiveStatus(o, r, asOf)
		})
		if err != nil {
			return err
		}
		metrics.RollupRecomputationsTotal.WithLabelValues("recompute").Add(float64(tree.Len()))

		for _, o := range updated {
			o.Metadata.UpdatedBy = editor
			o.Metadata.UpdatedAt = now
			if err := s.engine.store.Objectives.Update(ctx, o.ID, o); err != nil {
				return fmt.Errorf("failed to update objective %s: %w", o.ID.Hex(), err)
			}
			changed = append(changed, *o)
		}

		root, _ := tree.Objective(id)
		if root == nil || root.ParentID == nil {
			return nil
		}
		_, err = s.engine.propagate(ctx, *root.ParentID, asOf, editor, "recompute")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.engine.log.Info("objective tree recomputed",
		"objective_id", id.Hex(),
		"changed_objectives", len(changed),
		"repaired_key_results", repaired,
	)
	return changed, nil
}

func (s *objectiveService) StatusBreakdown(ctx context.Context) ([]models.StatusBreakdown, error) {
	return s.engine.store.Objectives.StatusBreakdown(ctx)
}
