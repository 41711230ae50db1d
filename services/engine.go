package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"okrproject/logger"
	"okrproject/metrics"
	"okrproject/models"
	"okrproject/progress"
	repository "okrproject/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Settings struct {
	Thresholds progress.Thresholds
	Weights    progress.WeightConfig
}

// Engine owns the read-compute-write cycle shared by the services: resolving
// ledger references to typed entities, writing a measurement onto an entity
// and cascading the rollup to every ancestor objective.
type Engine struct {
	store    repository.Store
	settings Settings
	log      *logger.Logger
	Clock    func() time.Time
}

func NewEngine(store repository.Store, settings Settings, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{store: store, settings: settings, log: log, Clock: time.Now}
}

func (e *Engine) now() time.Time {
	return e.Clock().UTC()
}

// inTx runs fn in a transaction and counts conflicts handed back to the caller.
func (e *Engine) inTx(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	err := e.store.Tx.WithTransaction(ctx, fn)
	if errors.Is(err, ErrConflict) {
		metrics.ConflictsTotal.WithLabelValues(operation).Inc()
		e.log.Warn("write conflict, caller may retry", "operation", operation, "error", err)
	}
	return err
}

// snapshot is the trackable state of one entity at one moment.
type snapshot struct {
	Value    *float64
	Progress float64
	Status   models.Status
	// Pinned marks Status as manually set; it survives until released.
	Pinned bool
}

// equal compares the recorded values; the pin flag is not part of a ledger snapshot.
func (s snapshot) equal(o snapshot) bool {
	if (s.Value == nil) != (o.Value == nil) {
		return false
	}
	if s.Value != nil && *s.Value != *o.Value {
		return false
	}
	return s.Progress == o.Progress && s.Status == o.Status
}

// entity is a ledger reference resolved to its concrete type. Exactly one of
// objective, keyResult or initiative is set. parent is the owning objective of
// a key result, nil when it has gone missing.
type entity struct {
	ref        models.EntityRef
	objective  *models.Objective
	keyResult  *models.KeyResult
	initiative *models.Initiative
	parent     *models.Objective
}

func (e *Engine) resolve(ctx context.Context, ref models.EntityRef) (*entity, error) {
	h := &entity{ref: ref}
	switch ref.Type {
	case models.EntityObjective:
		o, err := e.store.Objectives.GetByID(ctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("objective %s: %w", ref.ID.Hex(), err)
		}
		h.objective = o
	case models.EntityKeyResult:
		kr, err := e.store.KeyResults.GetByID(ctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("key result %s: %w", ref.ID.Hex(), err)
		}
		h.keyResult = kr
		parent, err := e.store.Objectives.GetByID(ctx, kr.ObjectiveID)
		switch {
		case err == nil:
			h.parent = parent
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
	case models.EntityInitiative:
		in, err := e.store.Initiatives.GetByID(ctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("initiative %s: %w", ref.ID.Hex(), err)
		}
		h.initiative = in
	default:
		return nil, invalidf("unknown entity type %q", ref.Type)
	}
	return h, nil
}

func (h *entity) current() snapshot {
	switch {
	case h.keyResult != nil:
		v := h.keyResult.CurrentValue
		return snapshot{Value: &v, Progress: h.keyResult.Progress, Status: h.keyResult.Status, Pinned: h.keyResult.StatusOverride}
	case h.objective != nil:
		return snapshot{Progress: h.objective.Progress, Status: h.objective.Status, Pinned: h.objective.StatusOverride}
	default:
		return snapshot{Progress: h.initiative.Progress, Status: h.initiative.Status, Pinned: h.initiative.StatusOverride}
	}
}

func (h *entity) period(asOf time.Time) progress.Period {
	switch {
	case h.objective != nil:
		return objectivePeriod(h.objective, asOf)
	case h.keyResult != nil && h.parent != nil:
		return objectivePeriod(h.parent, asOf)
	case h.initiative != nil:
		in := h.initiative
		return progress.PeriodOf(in.PeriodStart, in.PeriodEnd, in.Quarter, in.Year, asOf)
	}
	return progress.PeriodOf(nil, nil, 0, 0, asOf)
}

func (h *entity) isRollupObjective() bool {
	return h.objective != nil && !h.objective.IsManual()
}

func objectivePeriod(o *models.Objective, asOf time.Time) progress.Period {
	return progress.PeriodOf(o.PeriodStart, o.PeriodEnd, o.Quarter, o.Year, asOf)
}

// measurement is what a check-in asserts about an entity.
type measurement struct {
	Value    *float64
	Progress *float64
	// Pinned is a manually chosen status; empty lets the resolver decide.
	Pinned models.Status
	// Release drops a previous pin, including postponed and cancelled.
	Release bool
	AsOf    time.Time
}

// derive computes the state an entity reaches when m is applied on top of base.
// For rollup objectives the progress is carried over; the cascade recomputes it.
func (e *Engine) derive(h *entity, base snapshot, m measurement) (snapshot, error) {
	next := snapshot{Progress: base.Progress}

	switch {
	case h.keyResult != nil:
		if m.Progress != nil {
			return snapshot{}, invalidf("key result progress is derived from its value; send new_value")
		}
		if m.Value == nil {
			return snapshot{}, invalidf("key result check-ins need new_value")
		}
		kr := h.keyResult
		v := *m.Value
		next.Value = &v
		next.Progress = progress.Compute(kr.MetricType, kr.InitialValue, kr.TargetValue, v)
		if progress.Misconfigured(kr.MetricType, kr.InitialValue, kr.TargetValue) {
			metrics.MisconfiguredMetricsTotal.Inc()
			e.log.Warn("key result metric is misconfigured, progress pinned to zero",
				"key_result_id", kr.ID.Hex(),
				"metric_type", kr.MetricType,
				"initial_value", kr.InitialValue,
				"target_value", kr.TargetValue,
			)
		}
	case h.isRollupObjective():
		if m.Progress != nil || m.Value != nil {
			return snapshot{}, ErrRollupManaged
		}
	default:
		p := m.Progress
		if p == nil {
			p = m.Value
		}
		if p != nil {
			next.Progress = clampPercent(*p)
		}
	}

	switch {
	case m.Pinned != "":
		next.Status = m.Pinned
		next.Pinned = true
		return next, nil
	case base.Pinned && !m.Release:
		next.Status = base.Status
		next.Pinned = true
		return next, nil
	}
	current := base.Status
	if m.Release {
		current = ""
	}
	next.Status = progress.ResolveStatus(progress.StatusInput{
		Progress:   next.Progress,
		Period:     h.period(m.AsOf),
		AsOf:       m.AsOf,
		Current:    current,
		Thresholds: e.settings.Thresholds,
	})
	return next, nil
}

// commit writes snap onto the entity, persists it and cascades the rollup to
// every ancestor. It returns the entity's state after the cascade.
func (e *Engine) commit(ctx context.Context, h *entity, snap snapshot, asOf time.Time, actor, trigger string) (snapshot, error) {
	now := e.now()
	switch {
	case h.keyResult != nil:
		kr := h.keyResult
		if snap.Value != nil {
			kr.CurrentValue = *snap.Value
		}
		kr.Progress = progress.Compute(kr.MetricType, kr.InitialValue, kr.TargetValue, kr.CurrentValue)
		kr.Status = snap.Status
		kr.StatusOverride = snap.Pinned
		kr.Metadata.UpdatedBy = actor
		kr.Metadata.UpdatedAt = now
		if err := e.store.KeyResults.Update(ctx, kr.ID, kr); err != nil {
			return snapshot{}, fmt.Errorf("failed to update key result: %w", err)
		}
		if _, err := e.propagate(ctx, kr.ObjectiveID, asOf, actor, trigger); err != nil {
			return snapshot{}, err
		}
		return h.current(), nil

	case h.objective != nil:
		o := h.objective
		if o.IsManual() {
			o.Progress = snap.Progress
		}
		o.Status = snap.Status
		o.StatusOverride = snap.Pinned
		o.Metadata.UpdatedBy = actor
		o.Metadata.UpdatedAt = now
		if err := e.store.Objectives.Update(ctx, o.ID, o); err != nil {
			return snapshot{}, fmt.Errorf("failed to update objective: %w", err)
		}
		path, err := e.propagate(ctx, o.ID, asOf, actor, trigger)
		if err != nil {
			return snapshot{}, err
		}
		if len(path) > 0 {
			*o = path[0]
		}
		return h.current(), nil

	default:
		in := h.initiative
		in.Progress = snap.Progress
		in.Status = snap.Status
		in.StatusOverride = snap.Pinned
		in.Metadata.UpdatedBy = actor
		in.Metadata.UpdatedAt = now
		if err := e.store.Initiatives.Update(ctx, in.ID, in); err != nil {
			return snapshot{}, fmt.Errorf("failed to update initiative: %w", err)
		}
		return h.current(), nil
	}
}

// propagate recomputes the objective and then each ancestor up to the root,
// nearest first, persisting as it climbs so every parent reads its child's
// fresh value. It returns the recomputed path. A missing starting objective is
// not an error: there is nothing left to roll up into.
func (e *Engine) propagate(ctx context.Context, objectiveID primitive.ObjectID, asOf time.Time, actor, trigger string) ([]models.Objective, error) {
	start, err := e.store.Objectives.GetByID(ctx, objectiveID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	chain, err := e.store.Objectives.GetAncestorChain(ctx, objectiveID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ancestors of %s: %w", objectiveID.Hex(), err)
	}

	path := append([]models.Objective{*start}, chain...)
	now := e.now()
	for i := range path {
		o := &path[i]
		krs, err := e.store.KeyResults.GetByObjective(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		children, err := e.store.Objectives.GetChildren(ctx, o.ID)
		if err != nil {
			return nil, err
		}

		r := progress.RollupObjective(o, krs, children)
		status := e.objectiveStatus(o, r, asOf)
		metrics.RollupRecomputationsTotal.WithLabelValues(trigger).Inc()
		if r.Progress == o.Progress && status == o.Status {
			continue
		}

		e.log.Debug("objective progress recomputed",
			"objective_id", o.ID.Hex(),
			"previous_progress", o.Progress,
			"progress", r.Progress,
			"status", status,
			"trigger", trigger,
		)
		o.Progress = r.Progress
		o.Status = status
		o.Metadata.UpdatedBy = actor
		o.Metadata.UpdatedAt = now
		if err := e.store.Objectives.Update(ctx, o.ID, o); err != nil {
			return nil, fmt.Errorf("failed to update objective %s: %w", o.ID.Hex(), err)
		}
	}
	return path, nil
}

func (e *Engine) objectiveStatus(o *models.Objective, r progress.Rollup, asOf time.Time) models.Status {
	in := progress.StatusInput{
		Progress:       r.Progress,
		Period:         objectivePeriod(o, asOf),
		AsOf:           asOf,
		Current:        o.Status,
		NoContributors: !o.IsManual() && r.Contributors == 0,
		Thresholds:     e.settings.Thresholds,
	}
	if o.StatusOverride {
		in.Pinned = o.Status
	}
	return progress.ResolveStatus(in)
}

func (e *Engine) keyResultStatus(kr *models.KeyResult, parent *models.Objective, asOf time.Time) models.Status {
	period := progress.PeriodOf(nil, nil, 0, 0, asOf)
	if parent != nil {
		period = objectivePeriod(parent, asOf)
	}
	in := progress.StatusInput{
		Progress:   kr.Progress,
		Period:     period,
		AsOf:       asOf,
		Current:    kr.Status,
		Thresholds: e.settings.Thresholds,
	}
	if kr.StatusOverride {
		in.Pinned = kr.Status
	}
	return progress.ResolveStatus(in)
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
