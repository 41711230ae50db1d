package repository

import (
	"context"
	"errors"
	"time"

	"okrproject/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrConflict marks a write that lost a race with a concurrent transaction.
	// Retrying from a fresh read is always safe.
	ErrConflict = errors.New("write conflict")
)

// Transactor runs fn as one serializable unit of work. Repository calls made
// with the context handed to fn join the transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ObjectiveRepository interface {
	Create(ctx context.Context, objective *models.Objective) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Objective, error)
	GetChildren(ctx context.Context, parentID primitive.ObjectID) ([]models.Objective, error)
	// GetAncestorChain returns the parent, grandparent, ... up to the root.
	// The walk stops quietly at a missing or deleted ancestor.
	GetAncestorChain(ctx context.Context, id primitive.ObjectID) ([]models.Objective, error)
	// GetSubtree returns the objective and all of its live descendants.
	GetSubtree(ctx context.Context, rootID primitive.ObjectID) ([]models.Objective, error)
	Update(ctx context.Context, id primitive.ObjectID, objective *models.Objective) error
	// UpdateWeights writes the ChildObjectiveID items of updates; every one
	// must be a live child of parentID.
	UpdateWeights(ctx context.Context, parentID primitive.ObjectID, updates []models.WeightUpdate, updatedBy string) error
	SoftDeleteMany(ctx context.Context, ids []primitive.ObjectID, updatedBy string) error
	StatusBreakdown(ctx context.Context) ([]models.StatusBreakdown, error)
}

type KeyResultRepository interface {
	Create(ctx context.Context, kr *models.KeyResult) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.KeyResult, error)
	GetByObjective(ctx context.Context, objectiveID primitive.ObjectID) ([]models.KeyResult, error)
	GetByObjectives(ctx context.Context, objectiveIDs []primitive.ObjectID) ([]models.KeyResult, error)
	Update(ctx context.Context, id primitive.ObjectID, kr *models.KeyResult) error
	// UpdateWeights writes every item or none of them.
	UpdateWeights(ctx context.Context, objectiveID primitive.ObjectID, updates []models.WeightUpdate, updatedBy string) error
	// SetPromoted reports whether the flag actually changed.
	SetPromoted(ctx context.Context, id primitive.ObjectID, promoted bool, at time.Time, updatedBy string) (bool, error)
	GetPromoted(ctx context.Context) ([]models.KeyResult, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID, updatedBy string) error
}

type InitiativeRepository interface {
	Create(ctx context.Context, initiative *models.Initiative) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Initiative, error)
	Update(ctx context.Context, id primitive.ObjectID, initiative *models.Initiative) error
}

type CheckInRepository interface {
	Append(ctx context.Context, checkIn *models.CheckIn) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.CheckIn, error)
	Update(ctx context.Context, id primitive.ObjectID, checkIn *models.CheckIn) error
	// ListByEntity orders by as-of date, then creation time.
	ListByEntity(ctx context.Context, ref models.EntityRef) ([]models.CheckIn, error)
	Latest(ctx context.Context, ref models.EntityRef) (*models.CheckIn, error)
}

// Store bundles the collaborators the services need.
type Store struct {
	Objectives  ObjectiveRepository
	KeyResults  KeyResultRepository
	Initiatives InitiativeRepository
	CheckIns    CheckInRepository
	Tx          Transactor
}
