package repository

import (
	"context"

	"okrproject/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const InitiativesCollection = "initiatives"

type initiativeRepository struct {
	collection *mongo.Collection
}

func NewInitiativeRepository(db *mongo.Database) InitiativeRepository {
	return &initiativeRepository{collection: db.Collection(InitiativesCollection)}
}

func (r *initiativeRepository) Create(ctx context.Context, initiative *models.Initiative) error {
	initiative.ID = primitive.NewObjectID()

	_, err := r.collection.InsertOne(ctx, initiative)
	return err
}

func (r *initiativeRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Initiative, error) {
	var initiative models.Initiative
	err := r.collection.FindOne(ctx, live(bson.M{"_id": id})).Decode(&initiative)
	if err != nil {
		return nil, notFound(err)
	}
	return &initiative, nil
}

func initiativeUpdate(initiative *models.Initiative) bson.M {
	doc := *initiative
	doc.ID = primitive.NilObjectID
	return replaceUpdate(&doc, map[string]bool{
		"objective_id":  doc.ObjectiveID == nil,
		"key_result_id": doc.KeyResultID == nil,
		"period_start":  doc.PeriodStart == nil,
		"period_end":    doc.PeriodEnd == nil,
	})
}

func (r *initiativeRepository) Update(ctx context.Context, id primitive.ObjectID, initiative *models.Initiative) error {
	result, err := r.collection.UpdateOne(ctx, live(bson.M{"_id": id}), initiativeUpdate(initiative))
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
