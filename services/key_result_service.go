package services

import (
	"context"
	"errors"
	"fmt"

	"okrproject/models"
	"okrproject/progress"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// dashboardConcurrency bounds the latest-check-in lookups of one dashboard read.
const dashboardConcurrency = 8

type KeyResultService interface {
	CreateKeyResult(ctx context.Context, req *models.CreateKeyResultRequest, author string) (*models.KeyResult, error)
	GetKeyResult(ctx context.Context, id primitive.ObjectID) (*models.KeyResult, error)
	UpdateKeyResult(ctx context.Context, id primitive.ObjectID, req *models.UpdateKeyResultRequest, editor string) (*models.KeyResult, error)
	DeleteKeyResult(ctx context.Context, id primitive.ObjectID, rebalance bool, editor string) error
	// UpdateWeights applies a whole weight batch or nothing.
	// Items may target the objective's key results or its child objectives.
	UpdateWeights(ctx context.Context, objectiveID primitive.ObjectID, req *models.WeightBatchRequest, editor string) (*models.WeightSet, error)
	Rebalance(ctx context.Context, objectiveID primitive.ObjectID, editor string) (*models.WeightSet, error)
	Promote(ctx context.Context, id primitive.ObjectID, editor string) (*models.KeyResult, error)
	Unpromote(ctx context.Context, id primitive.ObjectID, editor string) (*models.KeyResult, error)
	KPIDashboard(ctx context.Context) ([]models.KPIDashboardEntry, error)
}

type keyResultService struct {
	engine *Engine
}

func NewKeyResultService(engine *Engine) KeyResultService {
	return &keyResultService{engine: engine}
}

func (s *keyResultService) CreateKeyResult(ctx context.Context, req *models.CreateKeyResultRequest, author string) (*models.KeyResult, error) {
	now := s.engine.now()
	kr := &models.KeyResult{
		ObjectiveID:    req.ObjectiveID,
		Title:          req.Title,
		MetricType:     req.MetricType,
		InitialValue:   req.InitialValue,
		CurrentValue:   req.InitialValue,
		TargetValue:    req.TargetValue,
		Unit:           req.Unit,
		Weight:         s.engine.settings.Weights.DefaultWeight,
		IsWeightLocked: req.IsWeightLocked,
		Metadata: models.Metadata{
			CreatedBy: author,
			UpdatedBy: author,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	if req.CurrentValue != nil {
		kr.CurrentValue = *req.CurrentValue
	}
	if req.Weight != nil {
		kr.Weight = *req.Weight
	}
	kr.Progress = progress.Compute(kr.MetricType, kr.InitialValue, kr.TargetValue, kr.CurrentValue)
	if progress.Misconfigured(kr.MetricType, kr.InitialValue, kr.TargetValue) {
		s.engine.log.Warn("key result created with a misconfigured metric",
			"objective_id", kr.ObjectiveID.Hex(),
			"metric_type", kr.MetricType,
			"initial_value", kr.InitialValue,
			"target_value", kr.TargetValue,
		)
	}

	err := s.engine.inTx(ctx, "key_result.create", func(ctx context.Context) error {
		parent, err := s.engine.store.Objectives.GetByID(ctx, kr.ObjectiveID)
		if err != nil {
			return fmt.Errorf("objective %s: %w", kr.ObjectiveID.Hex(), err)
		}
		siblings, err := s.engine.loadWeightSet(ctx, kr.ObjectiveID)
		if err != nil {
			return err
		}
		siblings.keyResults = append(siblings.keyResults, *kr)
		if err := siblings.validate(); err != nil {
			return err
		}

		kr.Status = s.engine.keyResultStatus(kr, parent, now)
		if err := s.engine.store.KeyResults.Create(ctx, kr); err != nil {
			return fmt.Errorf("failed to create key result: %w", err)
		}
		if req.Rebalance {
			if err := s.engine.rebalanceWeights(ctx, kr.ObjectiveID, author); err != nil {
				return err
			}
		}
		_, err = s.engine.propagate(ctx, kr.ObjectiveID, now, author, "key_result_create")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.engine.log.Info("key result created",
		"key_result_id", kr.ID.Hex(),
		"objective_id", kr.ObjectiveID.Hex(),
		"progress", kr.Progress,
	)
	return s.engine.store.KeyResults.GetByID(ctx, kr.ID)
}

func (s *keyResultService) GetKeyResult(ctx context.Context, id primitive.ObjectID) (*models.KeyResult, error) {
	return s.engine.store.KeyResults.GetByID(ctx, id)
}

func (s *keyResultService) UpdateKeyResult(ctx context.Context, id primitive.ObjectID, req *models.UpdateKeyResultRequest, editor string) (*models.KeyResult, error) {
	if req.Weight == nil && req.IsWeightLocked == nil {
		return nil, invalidf("nothing to update")
	}
	var objectiveID primitive.ObjectID
	err := s.engine.inTx(ctx, "key_result.update", func(ctx context.Context) error {
		kr, err := s.engine.store.KeyResults.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("key result %s: %w", id.Hex(), err)
		}
		objectiveID = kr.ObjectiveID
		update := models.WeightUpdate{KeyResultID: kr.ID, Weight: kr.Weight, IsWeightLocked: kr.IsWeightLocked}
		if req.Weight != nil {
			update.Weight = *req.Weight
		}
		if req.IsWeightLocked != nil {
			update.IsWeightLocked = *req.IsWeightLocked
		}
		return s.applyWeights(ctx, kr.ObjectiveID, []models.WeightUpdate{update}, editor)
	})
	if err != nil {
		return nil, err
	}
	s.engine.log.Info("key result weight updated", "key_result_id", id.Hex(), "objective_id", objectiveID.Hex())
	return s.engine.store.KeyResults.GetByID(ctx, id)
}

func (s *keyResultService) DeleteKeyResult(ctx context.Context, id primitive.ObjectID, rebalance bool, editor string) error {
	err := s.engine.inTx(ctx, "key_result.delete", func(ctx context.Context) error {
		kr, err := s.engine.store.KeyResults.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("key result %s: %w", id.Hex(), err)
		}
		if err := s.engine.store.KeyResults.SoftDelete(ctx, id, editor); err != nil {
			return err
		}
		if rebalance {
			if err := s.engine.rebalanceWeights(ctx, kr.ObjectiveID, editor); err != nil {
				return err
			}
		}
		_, err = s.engine.propagate(ctx, kr.ObjectiveID, s.engine.now(), editor, "key_result_delete")
		return err
	})
	if err != nil {
		return err
	}
	s.engine.log.Info("key result deleted", "key_result_id", id.Hex(), "rebalance", rebalance)
	return nil
}

func (s *keyResultService) UpdateWeights(ctx context.Context, objectiveID primitive.ObjectID, req *models.WeightBatchRequest, editor string) (*models.WeightSet, error) {
	err := s.engine.inTx(ctx, "weights.update", func(ctx context.Context) error {
		if _, err := s.engine.store.Objectives.GetByID(ctx, objectiveID); err != nil {
			return fmt.Errorf("objective %s: %w", objectiveID.Hex(), err)
		}
		return s.applyWeights(ctx, objectiveID, req.Items, editor)
	})
	if err != nil {
		return nil, err
	}
	s.engine.log.Info("weights updated", "objective_id", objectiveID.Hex(), "items", len(req.Items))
	return s.weightSet(ctx, objectiveID)
}

func (s *keyResultService) Rebalance(ctx context.Context, objectiveID primitive.ObjectID, editor string) (*models.WeightSet, error) {
	err := s.engine.inTx(ctx, "weights.rebalance", func(ctx context.Context) error {
		if _, err := s.engine.store.Objectives.GetByID(ctx, objectiveID); err != nil {
			return fmt.Errorf("objective %s: %w", objectiveID.Hex(), err)
		}
		if err := s.engine.rebalanceWeights(ctx, objectiveID, editor); err != nil {
			return err
		}
		_, err := s.engine.propagate(ctx, objectiveID, s.engine.now(), editor, "weights")
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.weightSet(ctx, objectiveID)
}

func (s *keyResultService) weightSet(ctx context.Context, objectiveID primitive.ObjectID) (*models.WeightSet, error) {
	set, err := s.engine.loadWeightSet(ctx, objectiveID)
	if err != nil {
		return nil, err
	}
	return set.model(), nil
}

// applyWeights merges updates into the objective's current weight set,
// validates the result as a whole and only then writes it.
func (s *keyResultService) applyWeights(ctx context.Context, objectiveID primitive.ObjectID, updates []models.WeightUpdate, editor string) error {
	set, err := s.engine.loadWeightSet(ctx, objectiveID)
	if err != nil {
		return err
	}
	if err := set.merge(updates); err != nil {
		return err
	}
	if err := set.validate(); err != nil {
		return err
	}

	if err := s.engine.writeWeights(ctx, objectiveID, updates, editor); err != nil {
		return err
	}
	_, err = s.engine.propagate(ctx, objectiveID, s.engine.now(), editor, "weights")
	return err
}

func (s *keyResultService) Promote(ctx context.Context, id primitive.ObjectID, editor string) (*models.KeyResult, error) {
	return s.setPromoted(ctx, id, true, editor)
}

func (s *keyResultService) Unpromote(ctx context.Context, id primitive.ObjectID, editor string) (*models.KeyResult, error) {
	return s.setPromoted(ctx, id, false, editor)
}

func (s *keyResultService) setPromoted(ctx context.Context, id primitive.ObjectID, promoted bool, editor string) (*models.KeyResult, error) {
	changed, err := s.engine.store.KeyResults.SetPromoted(ctx, id, promoted, s.engine.now(), editor)
	if err != nil {
		return nil, fmt.Errorf("key result %s: %w", id.Hex(), err)
	}
	if changed {
		s.engine.log.Info("key result kpi promotion changed", "key_result_id", id.Hex(), "promoted", promoted)
	}
	return s.engine.store.KeyResults.GetByID(ctx, id)
}

// KPIDashboard lists promoted key results with their latest check-in. The
// values come straight from the key results; nothing is copied at promotion.
func (s *keyResultService) KPIDashboard(ctx context.Context) ([]models.KPIDashboardEntry, error) {
	promoted, err := s.engine.store.KeyResults.GetPromoted(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]models.KPIDashboardEntry, len(promoted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dashboardConcurrency)
	for i := range promoted {
		i := i
		entries[i].KeyResult = promoted[i]
		g.Go(func() error {
			latest, err := s.engine.store.CheckIns.Latest(gctx, promoted[i].Ref())
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("latest check-in of %s: %w", promoted[i].ID.Hex(), err)
			}
			entries[i].LatestCheckIn = latest
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}
