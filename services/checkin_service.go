package services

import (
	"context"
	"fmt"
	"time"

	"okrproject/metrics"
	"okrproject/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckInService is the check-in ledger. Every write runs in one transaction
// together with the entity update and the ancestor cascade.
type CheckInService interface {
	Record(ctx context.Context, req *models.RecordCheckInRequest, author string) (*models.CheckIn, error)
	Update(ctx context.Context, id primitive.ObjectID, req *models.UpdateCheckInRequest, editor string) (*models.CheckIn, error)
	History(ctx context.Context, ref models.EntityRef) ([]models.CheckIn, error)
}

type checkInService struct {
	engine *Engine
}

func NewCheckInService(engine *Engine) CheckInService {
	return &checkInService{engine: engine}
}

func (s *checkInService) Record(ctx context.Context, req *models.RecordCheckInRequest, author string) (*models.CheckIn, error) {
	if req.NewStatus != "" && !req.NewStatus.Valid() {
		return nil, invalidf("unknown status %q", req.NewStatus)
	}
	if req.NewStatus != "" && req.ClearStatusOverride {
		return nil, invalidf("new_status and clear_status_override are mutually exclusive")
	}

	now := s.engine.now()
	asOf := now
	if req.AsOfDate != nil {
		asOf = req.AsOfDate.UTC()
	}
	m := measurement{
		Value:    req.NewValue,
		Progress: req.NewProgress,
		Pinned:   req.NewStatus,
		Release:  req.ClearStatusOverride,
		AsOf:     asOf,
	}
	row := &models.CheckIn{
		EntityType:   req.EntityType,
		EntityID:     req.EntityID,
		Note:         req.Note,
		Achievements: nonNil(req.Achievements),
		Challenges:   nonNil(req.Challenges),
		NextSteps:    nonNil(req.NextSteps),
		AuthorID:     author,
		AsOfDate:     asOf,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	backdated := false
	err := s.engine.inTx(ctx, "check_in.record", func(ctx context.Context) error {
		h, err := s.engine.resolve(ctx, req.Ref())
		if err != nil {
			return err
		}
		history, err := s.engine.store.CheckIns.ListByEntity(ctx, h.ref)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		if len(history) == 0 || !asOf.Before(history[len(history)-1].AsOfDate) {
			before := h.current()
			next, err := s.engine.derive(h, before, m)
			if err != nil {
				return err
			}
			after, err := s.engine.commit(ctx, h, next, asOf, author, "check_in")
			if err != nil {
				return err
			}
			setPrevious(row, before)
			setNew(row, after)
			return s.engine.store.CheckIns.Append(ctx, row)
		}

		// An observation for an earlier period slots into history without
		// touching the entity, which keeps following the latest entry.
		backdated = true
		base := baseBefore(history, asOf)
		next, err := s.engine.derive(h, base, m)
		if err != nil {
			return err
		}
		setPrevious(row, base)
		setNew(row, next)
		if err := s.engine.store.CheckIns.Append(ctx, row); err != nil {
			return err
		}
		_, err = s.relink(ctx, h.ref)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.CheckInsTotal.WithLabelValues(string(row.EntityType), "record").Inc()
	s.engine.log.Info("check-in recorded",
		"check_in_id", row.ID.Hex(),
		"entity", row.Ref().String(),
		"previous_progress", row.PreviousProgress,
		"new_progress", row.NewProgress,
		"new_status", row.NewStatus,
		"backdated", backdated,
	)
	return row, nil
}

func (s *checkInService) Update(ctx context.Context, id primitive.ObjectID, req *models.UpdateCheckInRequest, editor string) (*models.CheckIn, error) {
	if req.NewStatus != nil && !req.NewStatus.Valid() {
		return nil, invalidf("unknown status %q", *req.NewStatus)
	}
	if req.NewStatus != nil && req.ClearStatusOverride {
		return nil, invalidf("new_status and clear_status_override are mutually exclusive")
	}

	var row *models.CheckIn
	err := s.engine.inTx(ctx, "check_in.update", func(ctx context.Context) error {
		var err error
		row, err = s.engine.store.CheckIns.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("check-in %s: %w", id.Hex(), err)
		}
		h, err := s.engine.resolve(ctx, row.Ref())
		if err != nil {
			return err
		}

		if req.Note != nil {
			row.Note = *req.Note
		}
		if req.Achievements != nil {
			row.Achievements = req.Achievements
		}
		if req.Challenges != nil {
			row.Challenges = req.Challenges
		}
		if req.NextSteps != nil {
			row.NextSteps = req.NextSteps
		}
		if req.AsOfDate != nil {
			row.AsOfDate = req.AsOfDate.UTC()
		}

		m := measurement{AsOf: row.AsOfDate}
		switch {
		case h.keyResult != nil:
			m.Progress = req.NewProgress
			m.Value = firstNonNil(req.NewValue, row.NewValue)
		case h.isRollupObjective():
			if req.NewProgress != nil || req.NewValue != nil {
				return ErrRollupManaged
			}
		default:
			recorded := row.NewProgress
			m.Progress = firstNonNil(req.NewProgress, req.NewValue, &recorded)
		}
		switch {
		case req.NewStatus != nil:
			m.Pinned = *req.NewStatus
		case req.ClearStatusOverride:
			m.Release = true
		case row.StatusManuallySet:
			m.Pinned = row.NewStatus
		default:
			m.Release = true
		}

		next, err := s.engine.derive(h, previousOf(row), m)
		if err != nil {
			return err
		}
		if h.isRollupObjective() {
			// historical rollup values cannot be re-derived; keep what was recorded
			next.Progress = row.NewProgress
		}
		setNew(row, next)
		row.UpdatedAt = s.engine.now()
		row.UpdatedBy = editor
		if err := s.engine.store.CheckIns.Update(ctx, row.ID, row); err != nil {
			return err
		}

		history, err := s.relink(ctx, h.ref)
		if err != nil {
			return err
		}

		// the entity always ends up matching the latest entry by as-of date
		latest := history[len(history)-1]
		after, err := s.engine.commit(ctx, h, newOf(&latest), latest.AsOfDate, editor, "check_in_edit")
		if err != nil {
			return err
		}
		if latest.ID == row.ID && !after.equal(newOf(&latest)) {
			setNew(&latest, after)
			if err := s.engine.store.CheckIns.Update(ctx, latest.ID, &latest); err != nil {
				return err
			}
		}

		row, err = s.engine.store.CheckIns.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.CheckInsTotal.WithLabelValues(string(row.EntityType), "update").Inc()
	s.engine.log.Info("check-in edited",
		"check_in_id", row.ID.Hex(),
		"entity", row.Ref().String(),
		"new_progress", row.NewProgress,
		"new_status", row.NewStatus,
	)
	return row, nil
}

func (s *checkInService) History(ctx context.Context, ref models.EntityRef) ([]models.CheckIn, error) {
	switch ref.Type {
	case models.EntityObjective, models.EntityKeyResult, models.EntityInitiative:
	default:
		return nil, invalidf("unknown entity type %q", ref.Type)
	}
	return s.engine.store.CheckIns.ListByEntity(ctx, ref)
}

// relink makes every entry's previous-* fields equal the new-* fields of the
// entry before it in as-of order. The first entry keeps its recorded baseline.
func (s *checkInService) relink(ctx context.Context, ref models.EntityRef) ([]models.CheckIn, error) {
	history, err := s.engine.store.CheckIns.ListByEntity(ctx, ref)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(history); i++ {
		want := newOf(&history[i-1])
		if previousOf(&history[i]).equal(want) {
			continue
		}
		setPrevious(&history[i], want)
		if err := s.engine.store.CheckIns.Update(ctx, history[i].ID, &history[i]); err != nil {
			return nil, fmt.Errorf("failed to relink check-in %s: %w", history[i].ID.Hex(), err)
		}
	}
	return history, nil
}

// baseBefore is the entity state just before asOf according to the ledger.
func baseBefore(history []models.CheckIn, asOf time.Time) snapshot {
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].AsOfDate.After(asOf) {
			return newOf(&history[i])
		}
	}
	return previousOf(&history[0])
}

func previousOf(c *models.CheckIn) snapshot {
	return snapshot{Value: c.PreviousValue, Progress: c.PreviousProgress, Status: c.PreviousStatus}
}

func newOf(c *models.CheckIn) snapshot {
	return snapshot{Value: c.NewValue, Progress: c.NewProgress, Status: c.NewStatus, Pinned: c.StatusManuallySet}
}

func setPrevious(c *models.CheckIn, s snapshot) {
	c.PreviousValue = copyFloat(s.Value)
	c.PreviousProgress = s.Progress
	c.PreviousStatus = s.Status
}

func setNew(c *models.CheckIn, s snapshot) {
	c.NewValue = copyFloat(s.Value)
	c.NewProgress = s.Progress
	c.NewStatus = s.Status
	c.StatusManuallySet = s.Pinned
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func firstNonNil(vs ...*float64) *float64 {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
