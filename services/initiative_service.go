package services

import (
	"context"
	"fmt"

	"okrproject/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type InitiativeService interface {
	CreateInitiative(ctx context.Context, req *models.CreateInitiativeRequest, author string) (*models.Initiative, error)
	GetInitiative(ctx context.Context, id primitive.ObjectID) (*models.Initiative, error)
}

type initiativeService struct {
	engine *Engine
}

func NewInitiativeService(engine *Engine) InitiativeService {
	return &initiativeService{engine: engine}
}

func (s *initiativeService) CreateInitiative(ctx context.Context, req *models.CreateInitiativeRequest, author string) (*models.Initiative, error) {
	if req.PeriodStart != nil && req.PeriodEnd != nil && !req.PeriodEnd.After(*req.PeriodStart) {
		return nil, invalidf("period_end must be after period_start")
	}

	if req.KeyResultID != nil {
		kr, err := s.engine.store.KeyResults.GetByID(ctx, *req.KeyResultID)
		if err != nil {
			return nil, fmt.Errorf("key result %s: %w", req.KeyResultID.Hex(), err)
		}
		if req.ObjectiveID != nil && *req.ObjectiveID != kr.ObjectiveID {
			return nil, invalidf("key result %s does not belong to objective %s", kr.ID.Hex(), req.ObjectiveID.Hex())
		}
	}
	if req.ObjectiveID != nil {
		if _, err := s.engine.store.Objectives.GetByID(ctx, *req.ObjectiveID); err != nil {
			return nil, fmt.Errorf("objective %s: %w", req.ObjectiveID.Hex(), err)
		}
	}

	now := s.engine.now()
	in := &models.Initiative{
		Title:       req.Title,
		Description: req.Description,
		ObjectiveID: req.ObjectiveID,
		KeyResultID: req.KeyResultID,
		Status:      models.StatusNotStarted,
		Quarter:     req.Quarter,
		Year:        req.Year,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		OwnerID:     req.OwnerID,
		Metadata: models.Metadata{
			CreatedBy: author,
			UpdatedBy: author,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	if err := s.engine.store.Initiatives.Create(ctx, in); err != nil {
		return nil, fmt.Errorf("failed to create initiative: %w", err)
	}
	s.engine.log.Info("initiative created", "initiative_id", in.ID.Hex())
	return in, nil
}

func (s *initiativeService) GetInitiative(ctx context.Context, id primitive.ObjectID) (*models.Initiative, error) {
	return s.engine.store.Initiatives.GetByID(ctx, id)
}
