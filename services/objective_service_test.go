package services

import (
	"testing"
	"time"

	"okrproject/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateObjective(t *testing.T) {
	f := newFixture(t)

	root := f.objective(t, "root", nil, "")
	assert.Equal(t, models.ProgressRollup, root.ProgressMode)
	assert.Equal(t, models.StatusNotStarted, root.Status)
	assert.Equal(t, 100.0, root.Weight)

	_, err := f.objectives.CreateObjective(f.ctx, &models.CreateObjectiveRequest{
		Title:    "rollup with progress",
		Progress: ptr(10.0),
	}, "planner")
	assert.ErrorIs(t, err, ErrRollupManaged)

	_, err = f.objectives.CreateObjective(f.ctx, &models.CreateObjectiveRequest{
		Title:    "orphan",
		ParentID: ptr(primitive.NewObjectID()),
	}, "planner")
	assert.ErrorIs(t, err, ErrNotFound)

	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.objectives.CreateObjective(f.ctx, &models.CreateObjectiveRequest{
		Title:       "inverted period",
		PeriodStart: &start,
		PeriodEnd:   ptr(start.AddDate(0, -1, 0)),
	}, "planner")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestManualChildFeedsParentOnCreate(t *testing.T) {
	f := newFixture(t)
	root := f.objective(t, "root", nil, models.ProgressRollup)
	f.manualObjective(t, "done", root, 100)
	f.manualObjective(t, "idle", root, 0)

	assert.InDelta(t, 50, f.reloadObjective(t, root).Progress, 1e-9)
}

func TestReparentRejectsCycles(t *testing.T) {
	f := newFixture(t)
	a := f.objective(t, "A", nil, models.ProgressRollup)
	b := f.objective(t, "B", a, models.ProgressRollup)
	c := f.objective(t, "C", b, models.ProgressRollup)

	_, err := f.objectives.Reparent(f.ctx, a.ID, &c.ID, "bob")
	assert.ErrorIs(t, err, ErrCycle)
	_, err = f.objectives.Reparent(f.ctx, a.ID, &a.ID, "bob")
	assert.ErrorIs(t, err, ErrCycle)
	assert.Nil(t, f.reloadObjective(t, a).ParentID)
}

func TestReparentRecomputesBothParents(t *testing.T) {
	f := newFixture(t)
	from := f.objective(t, "from", nil, models.ProgressRollup)
	to := f.objective(t, "to", nil, models.ProgressRollup)
	moved := f.manualObjective(t, "moved", from, 80)
	require.InDelta(t, 80, f.reloadObjective(t, from).Progress, 1e-9)

	got, err := f.objectives.Reparent(f.ctx, moved.ID, &to.ID, "bob")
	require.NoError(t, err)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, to.ID, *got.ParentID)

	old := f.reloadObjective(t, from)
	assert.Equal(t, 0.0, old.Progress)
	assert.Equal(t, models.StatusNotStarted, old.Status)
	assert.InDelta(t, 80, f.reloadObjective(t, to).Progress, 1e-9)

	got, err = f.objectives.Reparent(f.ctx, moved.ID, nil, "bob")
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)
	assert.Equal(t, 0.0, f.reloadObjective(t, to).Progress)
}

func TestDeleteObjectiveDropsSubtreeFromRollup(t *testing.T) {
	f := newFixture(t)
	root := f.objective(t, "root", nil, models.ProgressRollup)
	f.manualObjective(t, "done", root, 100)
	idle := f.manualObjective(t, "idle", root, 0)
	grandchild := f.manualObjective(t, "grandchild", idle, 10)
	require.InDelta(t, 50, f.reloadObjective(t, root).Progress, 1e-9)

	require.NoError(t, f.objectives.DeleteObjective(f.ctx, idle.ID, "bob"))

	_, err := f.objectives.GetObjective(f.ctx, idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.objectives.GetObjective(f.ctx, grandchild.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	got := f.reloadObjective(t, root)
	assert.InDelta(t, 100, got.Progress, 1e-9)
	assert.Equal(t, models.StatusCompleted, got.Status)

	err = f.objectives.DeleteObjective(f.ctx, idle.ID, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecomputeTreeRepairsDrift(t *testing.T) {
	f := newFixture(t)
	root := f.objective(t, "root", nil, models.ProgressRollup)
	child := f.objective(t, "child", root, models.ProgressRollup)
	kr := f.percentKR(t, child, 50, nil)

	drifted := f.reloadObjective(t, root)
	drifted.Progress = 10
	require.NoError(t, f.store.Objectives.Update(f.ctx, drifted.ID, drifted))
	staleKR := f.reloadKR(t, kr)
	staleKR.Progress = 0
	require.NoError(t, f.store.KeyResults.Update(f.ctx, staleKR.ID, staleKR))

	changed, err := f.objectives.RecomputeTree(f.ctx, root.ID, time.Time{}, "ops")
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, root.ID, changed[0].ID)
	assert.InDelta(t, 50, f.reloadObjective(t, root).Progress, 1e-9)
	assert.Equal(t, 50.0, f.reloadKR(t, kr).Progress)

	changed, err = f.objectives.RecomputeTree(f.ctx, root.ID, time.Time{}, "ops")
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestRecomputeSubtreeClimbsToAncestors(t *testing.T) {
	f := newFixture(t)
	root := f.objective(t, "root", nil, models.ProgressRollup)
	child := f.objective(t, "child", root, models.ProgressRollup)
	kr := f.percentKR(t, child, 0, nil)

	// bypass the services so that nothing propagates
	raw := f.reloadKR(t, kr)
	raw.CurrentValue = 70
	require.NoError(t, f.store.KeyResults.Update(f.ctx, raw.ID, raw))

	_, err := f.objectives.RecomputeTree(f.ctx, child.ID, testNow, "ops")
	require.NoError(t, err)
	assert.InDelta(t, 70, f.reloadObjective(t, child).Progress, 1e-9)
	assert.InDelta(t, 70, f.reloadObjective(t, root).Progress, 1e-9)
}

func TestStatusBreakdown(t *testing.T) {
	f := newFixture(t)
	root := f.objective(t, "root", nil, models.ProgressRollup)
	f.manualObjective(t, "done", root, 100)

	breakdown, err := f.objectives.StatusBreakdown(f.ctx)
	require.NoError(t, err)
	counts := map[models.Status]int{}
	for _, b := range breakdown {
		counts[b.Status] = b.Count
	}
	assert.Equal(t, 2, counts[models.StatusCompleted])
}
