package database

import (
	"context"
	"fmt"
	"time"

	"okrproject/logger"
	repository "okrproject/repositories"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionIndexes lists the indexes of every collection the repositories use.
func CollectionIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		repository.ObjectivesCollection: {
			// TREE WALKS: children of a parent
			// Used by: GetChildren, GetSubtree
			{
				Keys: bson.D{
					{Key: "parent_id", Value: 1},
					{Key: "is_deleted", Value: 1},
				},
				Options: options.Index().SetName("idx_parent_id_is_deleted"),
			},
			// ANALYTICS: status breakdown aggregation
			{
				Keys: bson.D{
					{Key: "is_deleted", Value: 1},
					{Key: "status", Value: 1},
				},
				Options: options.Index().SetName("idx_is_deleted_status"),
			},
		},
		repository.KeyResultsCollection: {
			// ROLLUP: key results of an objective
			// Used by: GetByObjective, GetByObjectives, UpdateWeights
			{
				Keys: bson.D{
					{Key: "objective_id", Value: 1},
					{Key: "is_deleted", Value: 1},
				},
				Options: options.Index().SetName("idx_objective_id_is_deleted"),
			},
			// KPI DASHBOARD: promoted key results
			{
				Keys: bson.D{
					{Key: "is_promoted_to_kpi", Value: 1},
					{Key: "promoted_at", Value: 1},
				},
				Options: options.Index().
					SetName("idx_promoted_at").
					SetPartialFilterExpression(bson.M{"is_promoted_to_kpi": true}),
			},
		},
		repository.InitiativesCollection: {
			{
				Keys: bson.D{
					{Key: "objective_id", Value: 1},
					{Key: "key_result_id", Value: 1},
				},
				Options: options.Index().SetName("idx_objective_id_key_result_id"),
			},
		},
		repository.CheckInsCollection: {
			// LEDGER: history in as-of order
			// Used by: ListByEntity, Latest
			{
				Keys: bson.D{
					{Key: "entity_type", Value: 1},
					{Key: "entity_id", Value: 1},
					{Key: "as_of_date", Value: 1},
					{Key: "created_at", Value: 1},
				},
				Options: options.Index().SetName("idx_entity_as_of_date_created_at"),
			},
		},
	}
}

func CreateIndexes(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for collection, indexes := range CollectionIndexes() {
		names, err := db.Collection(collection).Indexes().CreateMany(ctx, indexes)
		if err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", collection, err)
		}
		log.Info("indexes created", "collection", collection, "indexes", names)
	}
	return nil
}
