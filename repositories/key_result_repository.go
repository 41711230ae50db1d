package repository

import (
	"context"
	"fmt"
	"time"

	"okrproject/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const KeyResultsCollection = "key_results"

type keyResultRepository struct {
	collection *mongo.Collection
}

func NewKeyResultRepository(db *mongo.Database) KeyResultRepository {
	return &keyResultRepository{collection: db.Collection(KeyResultsCollection)}
}

func (r *keyResultRepository) Create(ctx context.Context, kr *models.KeyResult) error {
	kr.ID = primitive.NewObjectID()

	_, err := r.collection.InsertOne(ctx, kr)
	return err
}

func (r *keyResultRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.KeyResult, error) {
	var kr models.KeyResult
	err := r.collection.FindOne(ctx, live(bson.M{"_id": id})).Decode(&kr)
	if err != nil {
		return nil, notFound(err)
	}
	return &kr, nil
}

func (r *keyResultRepository) GetByObjective(ctx context.Context, objectiveID primitive.ObjectID) ([]models.KeyResult, error) {
	return r.find(ctx, live(bson.M{"objective_id": objectiveID}), options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (r *keyResultRepository) GetByObjectives(ctx context.Context, objectiveIDs []primitive.ObjectID) ([]models.KeyResult, error) {
	if len(objectiveIDs) == 0 {
		return nil, nil
	}
	return r.find(ctx, live(bson.M{"objective_id": bson.M{"$in": objectiveIDs}}), options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func keyResultUpdate(kr *models.KeyResult) bson.M {
	doc := *kr
	doc.ID = primitive.NilObjectID
	return replaceUpdate(&doc, map[string]bool{"promoted_at": doc.PromotedAt == nil})
}

func (r *keyResultRepository) Update(ctx context.Context, id primitive.ObjectID, kr *models.KeyResult) error {
	result, err := r.collection.UpdateOne(ctx, live(bson.M{"_id": id}), keyResultUpdate(kr))
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateWeights must run inside a transaction for the batch to be atomic;
// the ordered bulk write stops at the first failure and the caller aborts.
func (r *keyResultRepository) UpdateWeights(ctx context.Context, objectiveID primitive.ObjectID, updates []models.WeightUpdate, updatedBy string) error {
	if len(updates) == 0 {
		return nil
	}
	now := time.Now()
	writes := make([]mongo.WriteModel, 0, len(updates))
	for _, u := range updates {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(live(bson.M{"_id": u.KeyResultID, "objective_id": objectiveID})).
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
		return fmt.Errorf("%w: %d of %d key results matched objective %s",
			ErrNotFound, result.MatchedCount, len(updates), objectiveID.Hex())
	}
	return nil
}

func (r *keyResultRepository) SetPromoted(ctx context.Context, id primitive.ObjectID, promoted bool, at time.Time, updatedBy string) (bool, error) {
	set := bson.M{
		"is_promoted_to_kpi":  promoted,
		"metadata.updated_at": at,
		"metadata.updated_by": updatedBy,
	}
	update := bson.M{"$set": set}
	if promoted {
		set["promoted_at"] = at
	} else {
		update["$unset"] = bson.M{"promoted_at": ""}
	}

	filter := live(bson.M{"_id": id, "is_promoted_to_kpi": bson.M{"$ne": promoted}})
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if result.MatchedCount > 0 {
		return true, nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *keyResultRepository) GetPromoted(ctx context.Context) ([]models.KeyResult, error) {
	return r.find(ctx, live(bson.M{"is_promoted_to_kpi": true}), options.Find().SetSort(bson.D{{Key: "promoted_at", Value: 1}}))
}

func (r *keyResultRepository) SoftDelete(ctx context.Context, id primitive.ObjectID, updatedBy string) error {
	update := bson.M{
		"$set": bson.M{
			"is_deleted":          true,
			"metadata.updated_at": time.Now(),
			"metadata.updated_by": updatedBy,
		},
	}
	result, err := r.collection.UpdateOne(ctx, live(bson.M{"_id": id}), update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *keyResultRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.KeyResult, error) {
	cursor, err := r.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var krs []models.KeyResult
	if err = cursor.All(ctx, &krs); err != nil {
		return nil, err
	}
	return krs, nil
}
