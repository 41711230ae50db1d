package services

import (
	"context"
	"testing"
	"time"

	"okrproject/logger"
	"okrproject/models"
	"okrproject/progress"
	repository "okrproject/repositories"

	"github.com/stretchr/testify/require"
)

// testNow sits halfway through Q1 2024, so the time-expected progress is about 50.
var testNow = time.Date(2024, time.February, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	ctx         context.Context
	mem         *repository.MemoryStore
	store       repository.Store
	engine      *Engine
	objectives  ObjectiveService
	keyResults  KeyResultService
	initiatives InitiativeService
	checkIns    CheckInService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithLogger(t, logger.Nop())
}

func newFixtureWithLogger(t *testing.T, log *logger.Logger) *fixture {
	t.Helper()
	mem := repository.NewMemoryStore()
	engine := NewEngine(mem.Store(), Settings{
		Thresholds: progress.DefaultThresholds,
		Weights:    progress.DefaultWeightConfig,
	}, log)
	engine.Clock = func() time.Time { return testNow }

	return &fixture{
		ctx:         context.Background(),
		mem:         mem,
		store:       mem.Store(),
		engine:      engine,
		objectives:  NewObjectiveService(engine),
		keyResults:  NewKeyResultService(engine),
		initiatives: NewInitiativeService(engine),
		checkIns:    NewCheckInService(engine),
	}
}

func (f *fixture) objective(t *testing.T, title string, parent *models.Objective, mode models.ProgressMode) *models.Objective {
	t.Helper()
	req := &models.CreateObjectiveRequest{Title: title, ProgressMode: mode, Quarter: 1, Year: 2024}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	o, err := f.objectives.CreateObjective(f.ctx, req, "planner")
	require.NoError(t, err)
	return o
}

func (f *fixture) manualObjective(t *testing.T, title string, parent *models.Objective, p float64) *models.Objective {
	t.Helper()
	req := &models.CreateObjectiveRequest{
		Title:        title,
		ProgressMode: models.ProgressManual,
		Progress:     &p,
		Quarter:      1,
		Year:         2024,
	}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	o, err := f.objectives.CreateObjective(f.ctx, req, "planner")
	require.NoError(t, err)
	return o
}

// percentKR creates an increase key result from 0 to 100, so value equals progress.
func (f *fixture) percentKR(t *testing.T, o *models.Objective, current float64, weight *float64) *models.KeyResult {
	t.Helper()
	return f.keyResult(t, &models.CreateKeyResultRequest{
		ObjectiveID:  o.ID,
		Title:        "kr",
		MetricType:   models.MetricIncrease,
		InitialValue: 0,
		TargetValue:  100,
		CurrentValue: &current,
		Weight:       weight,
	})
}

func (f *fixture) keyResult(t *testing.T, req *models.CreateKeyResultRequest) *models.KeyResult {
	t.Helper()
	kr, err := f.keyResults.CreateKeyResult(f.ctx, req, "planner")
	require.NoError(t, err)
	return kr
}

func (f *fixture) record(t *testing.T, req *models.RecordCheckInRequest) *models.CheckIn {
	t.Helper()
	row, err := f.checkIns.Record(f.ctx, req, "alice")
	require.NoError(t, err)
	return row
}

func (f *fixture) reloadObjective(t *testing.T, o *models.Objective) *models.Objective {
	t.Helper()
	got, err := f.store.Objectives.GetByID(f.ctx, o.ID)
	require.NoError(t, err)
	return got
}

func (f *fixture) reloadKR(t *testing.T, kr *models.KeyResult) *models.KeyResult {
	t.Helper()
	got, err := f.store.KeyResults.GetByID(f.ctx, kr.ID)
	require.NoError(t, err)
	return got
}

func valueCheckIn(kr *models.KeyResult, v float64) *models.RecordCheckInRequest {
	return &models.RecordCheckInRequest{EntityType: models.EntityKeyResult, EntityID: kr.ID, NewValue: &v}
}

func ptr[T any](v T) *T { return &v }

func day(d int) *time.Time {
	t := time.Date(2024, time.February, d, 9, 0, 0, 0, time.UTC)
	return &t
}
