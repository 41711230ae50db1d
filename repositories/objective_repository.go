package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"okrproject/models"
	"okrproject/progress"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ObjectivesCollection = "objectives"

type objectiveRepository struct {
	collection *mongo.Collection
}

func NewObjectiveRepository(db *mongo.Database) ObjectiveRepository {
	return &objectiveRepository{collection: db.Collection(ObjectivesCollection)}
}

func live(filter bson.M) bson.M {
	filter["is_deleted"] = bson.M{"$ne": true}
	return filter
}

// replaceUpdate writes every field of doc. Optional fields are tagged
// omitempty, so the ones reported empty are removed with $unset instead of
// silently keeping their stored value.
func replaceUpdate(doc interface{}, optional map[string]bool) bson.M {
	update := bson.M{"$set": doc}
	unset := bson.M{}
	for field, empty := range optional {
		if empty {
			unset[field] = ""
		}
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func objectiveUpdate(objective *models.Objective) bson.M {
	doc := *objective
	doc.ID = primitive.NilObjectID
	return replaceUpdate(&doc, map[string]bool{
		"parent_id":    doc.ParentID == nil,
		"period_start": doc.PeriodStart == nil,
		"period_end":   doc.PeriodEnd == nil,
	})
}

func (r *objectiveRepository) Create(ctx context.Context, objective *models.Objective) error {
	objective.ID = primitive.NewObjectID()

	_, err := r.collection.InsertOne(ctx, objective)
	return err
}

func (r *objectiveRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Objective, error) {
	var objective models.Objective
	err := r.collection.FindOne(ctx, live(bson.M{"_id": id})).Decode(&objective)
	if err != nil {
		return nil, notFound(err)
	}
	return &objective, nil
}

func (r *objectiveRepository) GetChildren(ctx context.Context, parentID primitive.ObjectID) ([]models.Objective, error) {
	return r.find(ctx, live(bson.M{"parent_id": parentID}))
}

func (r *objectiveRepository) GetAncestorChain(ctx context.Context, id primitive.ObjectID) ([]models.Objective, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	seen := map[primitive.ObjectID]bool{id: true}
	var chain []models.Objective
	for current.ParentID != nil {
		parentID := *current.ParentID
		if seen[parentID] {
			return nil, fmt.Errorf("%w: objective %s is its own ancestor", progress.ErrCycle, parentID.Hex())
		}
		seen[parentID] = true

		parent, err := r.GetByID(ctx, parentID)
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		chain = append(chain, *parent)
		current = parent
	}
	return chain, nil
}

func (r *objectiveRepository) GetSubtree(ctx context.Context, rootID primitive.ObjectID) ([]models.Objective, error) {
	root, err := r.GetByID(ctx, rootID)
	if err != nil {
		return nil, err
	}

	out := []models.Objective{*root}
	seen := map[primitive.ObjectID]bool{rootID: true}
	frontier := []primitive.ObjectID{rootID}
	for len(frontier) > 0 {
		level, err := r.find(ctx, live(bson.M{"parent_id": bson.M{"$in": frontier}}))
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, o := range level {
			if seen[o.ID] {
				continue
			}
			seen[o.ID] = true
			out = append(out, o)
			frontier = append(frontier, o.ID)
		}
	}
	return out, nil
}

func (r *objectiveRepository) Update(ctx context.Context, id primitive.ObjectID, objective *models.Objective) error {
	result, err := r.collection.UpdateOne(ctx, live(bson.M{"_id": id}), objectiveUpdate(objective))
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *objectiveRepository) UpdateWeights(ctx context.Context, parentID primitive.ObjectID, updates []models.WeightUpdate, updatedBy string) error {
	if len(updates) == 0 {
		return nil
	}
	now := time.Now()
	writes := make([]mongo.WriteModel, 0, len(updates))
	for _, u := range updates {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(live(bson.M{"_id": u.ChildObjectiveID, "parent_id": parentID})).
			SetUpdate(bson.M{"$set": bson.M{
				"weight":              u.Weight,
				"is_weight_locked":    u.IsWeightLocked,
				"metadata.updated_at": now,
				"metadata.updated_by": updatedBy,
			}}))
	}

	result, err := r.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return err
	}
	if result.MatchedCount != int64(len(updates)) {
		return fmt.Errorf("%w: %d of %d objectives matched parent %s",
			ErrNotFound, result.MatchedCount, len(updates), parentID.Hex())
	}
	return nil
}

func (r *objectiveRepository) SoftDeleteMany(ctx context.Context, ids []primitive.ObjectID, updatedBy string) error {
	if len(ids) == 0 {
		return nil
	}
	update := bson.M{
		"$set": bson.M{
			"is_deleted":          true,
			"metadata.updated_at": time.Now(),
			"metadata.updated_by": updatedBy,
		},
	}
	result, err := r.collection.UpdateMany(ctx, live(bson.M{"_id": bson.M{"$in": ids}}), update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// StatusBreakdown groups live objectives by status.
func (r *objectiveRepository) StatusBreakdown(ctx context.Context) ([]models.StatusBreakdown, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"is_deleted": bson.M{"$ne": true}}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":          "$status",
			"count":        bson.M{"$sum": 1},
			"avg_progress": bson.M{"$avg": "$progress"},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []models.StatusBreakdown
	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *objectiveRepository) find(ctx context.Context, filter bson.M) ([]models.Objective, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var objectives []models.Objective
	if err = cursor.All(ctx, &objectives); err != nil {
		return nil, err
	}
	return objectives, nil
}
