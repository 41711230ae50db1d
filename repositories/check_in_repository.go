package repository

import (
	"context"

	"okrproject/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CheckInsCollection = "check_ins"

var ledgerOrder = bson.D{
	{Key: "as_of_date", Value: 1},
	{Key: "created_at", Value: 1},
	{Key: "_id", Value: 1},
}

type checkInRepository struct {
	collection *mongo.Collection
}

func NewCheckInRepository(db *mongo.Database) CheckInRepository {
	return &checkInRepository{collection: db.Collection(CheckInsCollection)}
}

func (r *checkInRepository) Append(ctx context.Context, checkIn *models.CheckIn) error {
	checkIn.ID = primitive.NewObjectID()

	_, err := r.collection.InsertOne(ctx, checkIn)
	return err
}

func (r *checkInRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.CheckIn, error) {
	var checkIn models.CheckIn
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&checkIn); err != nil {
		return nil, notFound(err)
	}
	return &checkIn, nil
}

// Update replaces the editable fields of a ledger row; created_at and the
// entity reference are never rewritten.
func (r *checkInRepository) Update(ctx context.Context, id primitive.ObjectID, checkIn *models.CheckIn) error {
	update := bson.M{"$set": bson.M{
		"previous_value":      checkIn.PreviousValue,
		"new_value":           checkIn.NewValue,
		"previous_progress":   checkIn.PreviousProgress,
		"new_progress":        checkIn.NewProgress,
		"previous_status":     checkIn.PreviousStatus,
		"new_status":          checkIn.NewStatus,
		"status_manually_set": checkIn.StatusManuallySet,
		"note":                checkIn.Note,
		"achievements":        checkIn.Achievements,
		"challenges":          checkIn.Challenges,
		"next_steps":          checkIn.NextSteps,
		"as_of_date":          checkIn.AsOfDate,
		"updated_at":          checkIn.UpdatedAt,
		"updated_by":          checkIn.UpdatedBy,
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *checkInRepository) ListByEntity(ctx context.Context, ref models.EntityRef) ([]models.CheckIn, error) {
	filter := bson.M{"entity_type": ref.Type, "entity_id": ref.ID}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(ledgerOrder))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	checkIns := []models.CheckIn{}
	if err = cursor.All(ctx, &checkIns); err != nil {
		return nil, err
	}
	return checkIns, nil
}

func (r *checkInRepository) Latest(ctx context.Context, ref models.EntityRef) (*models.CheckIn, error) {
	desc := bson.D{
		{Key: "as_of_date", Value: -1},
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	}
	filter := bson.M{"entity_type": ref.Type, "entity_id": ref.ID}

	var checkIn models.CheckIn
	err := r.collection.FindOne(ctx, filter, options.FindOne().SetSort(desc)).Decode(&checkIn)
	if err != nil {
		return nil, notFound(err)
	}
	return &checkIn, nil
}
