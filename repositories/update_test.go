package repository

import (
	"testing"
	"time"

	"okrproject/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// decodeUpdate round-trips an update document the way the driver sends it.
func decodeUpdate(t *testing.T, update bson.M) (set, unset bson.M) {
	t.Helper()
	raw, err := bson.Marshal(update)
	require.NoError(t, err)
	var doc struct {
		Set   bson.M `bson:"$set"`
		Unset bson.M `bson:"$unset"`
	}
	require.NoError(t, bson.Unmarshal(raw, &doc))
	require.NotNil(t, doc.Set, "update must carry $set")
	return doc.Set, doc.Unset
}

func TestObjectiveUpdateClearsParent(t *testing.T) {
	o := &models.Objective{ID: primitive.NewObjectID(), Title: "root now", Weight: 100}

	set, unset := decodeUpdate(t, objectiveUpdate(o))
	assert.NotContains(t, set, "parent_id")
	assert.NotContains(t, set, "_id")
	assert.Equal(t, "root now", set["title"])
	require.NotNil(t, unset)
	assert.Contains(t, unset, "parent_id")
	assert.Contains(t, unset, "period_start")
	assert.Contains(t, unset, "period_end")
	assert.False(t, o.ID.IsZero(), "caller's objective is left intact")
}

func TestObjectiveUpdateKeepsSetParent(t *testing.T) {
	parent := primitive.NewObjectID()
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, 0)
	o := &models.Objective{ID: primitive.NewObjectID(), ParentID: &parent, PeriodStart: &start, PeriodEnd: &end}

	set, unset := decodeUpdate(t, objectiveUpdate(o))
	assert.Equal(t, parent, set["parent_id"])
	assert.Contains(t, set, "period_start")
	assert.Nil(t, unset)
}

func TestKeyResultAndInitiativeUpdatesUnsetEmptyOptionals(t *testing.T) {
	_, unset := decodeUpdate(t, keyResultUpdate(&models.KeyResult{ID: primitive.NewObjectID()}))
	assert.Contains(t, unset, "promoted_at")

	at := time.Now().UTC()
	set, unset := decodeUpdate(t, keyResultUpdate(&models.KeyResult{ID: primitive.NewObjectID(), PromotedAt: &at}))
	assert.Contains(t, set, "promoted_at")
	assert.Nil(t, unset)

	kr := primitive.NewObjectID()
	set, unset = decodeUpdate(t, initiativeUpdate(&models.Initiative{ID: primitive.NewObjectID(), KeyResultID: &kr}))
	assert.Equal(t, kr, set["key_result_id"])
	assert.NotContains(t, unset, "key_result_id")
	assert.Contains(t, unset, "objective_id")
}
