package repository

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"okrproject/models"
	"okrproject/progress"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps every collection in process. Transactions are serialized
// by a single lock and rolled back from a snapshot when fn fails, which gives
// the same single-writer guarantees as the MongoDB store on one node.
type MemoryStore struct {
	txMu  sync.Mutex
	state *memoryState

	failMu     sync.Mutex
	failCommit error
}

type memoryState struct {
	mu          sync.RWMutex
	objectives  map[primitive.ObjectID]models.Objective
	keyResults  map[primitive.ObjectID]models.KeyResult
	initiatives map[primitive.ObjectID]models.Initiative
	checkIns    map[primitive.ObjectID]models.CheckIn
}

type memoryTxKey struct{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{
		objectives:  map[primitive.ObjectID]models.Objective{},
		keyResults:  map[primitive.ObjectID]models.KeyResult{},
		initiatives: map[primitive.ObjectID]models.Initiative{},
		checkIns:    map[primitive.ObjectID]models.CheckIn{},
	}}
}

func (m *MemoryStore) Store() Store {
	return Store{
		Objectives:  &memoryObjectives{m.state},
		KeyResults:  &memoryKeyResults{m.state},
		Initiatives: &memoryInitiatives{m.state},
		CheckIns:    &memoryCheckIns{m.state},
		Tx:          m,
	}
}

// FailNextCommit makes the next outermost transaction roll back with err after
// its body ran successfully.
func (m *MemoryStore) FailNextCommit(err error) {
	m.failMu.Lock()
	m.failCommit = err
	m.failMu.Unlock()
}

func (m *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memoryTxKey{}) != nil {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.state.snapshot()
	if err := fn(context.WithValue(ctx, memoryTxKey{}, true)); err != nil {
		m.state.restore(snap)
		return err
	}

	m.failMu.Lock()
	failErr := m.failCommit
	m.failCommit = nil
	m.failMu.Unlock()
	if failErr != nil {
		m.state.restore(snap)
		return classify(failErr)
	}
	return nil
}

func (s *memoryState) snapshot() *memoryState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := &memoryState{
		objectives:  make(map[primitive.ObjectID]models.Objective, len(s.objectives)),
		keyResults:  make(map[primitive.ObjectID]models.KeyResult, len(s.keyResults)),
		initiatives: make(map[primitive.ObjectID]models.Initiative, len(s.initiatives)),
		checkIns:    make(map[primitive.ObjectID]models.CheckIn, len(s.checkIns)),
	}
	for k, v := range s.objectives {
		snap.objectives[k] = v
	}
	for k, v := range s.keyResults {
		snap.keyResults[k] = v
	}
	for k, v := range s.initiatives {
		snap.initiatives[k] = v
	}
	for k, v := range s.checkIns {
		snap.checkIns[k] = v
	}
	return snap
}

func (s *memoryState) restore(snap *memoryState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objectives = snap.objectives
	s.keyResults = snap.keyResults
	s.initiatives = snap.initiatives
	s.checkIns = snap.checkIns
}

type memoryObjectives struct{ s *memoryState }

func (r *memoryObjectives) Create(_ context.Context, objective *models.Objective) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	objective.ID = primitive.NewObjectID()
	r.s.objectives[objective.ID] = *objective
	return nil
}

func (r *memoryObjectives) GetByID(_ context.Context, id primitive.ObjectID) (*models.Objective, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.objectives[id]
	if !ok || o.IsDeleted {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (r *memoryObjectives) GetChildren(_ context.Context, parentID primitive.ObjectID) ([]models.Objective, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.Objective
	for _, o := range r.s.objectives {
		if !o.IsDeleted && o.ParentID != nil && *o.ParentID == parentID {
			out = append(out, o)
		}
	}
	sortObjectives(out)
	return out, nil
}

func (r *memoryObjectives) GetAncestorChain(ctx context.Context, id primitive.ObjectID) ([]models.Objective, error) {
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
		if err != nil {
			break
		}
		chain = append(chain, *parent)
		current = parent
	}
	return chain, nil
}

func (r *memoryObjectives) GetSubtree(ctx context.Context, rootID primitive.ObjectID) ([]models.Objective, error) {
	root, err := r.GetByID(ctx, rootID)
	if err != nil {
		return nil, err
	}
	out := []models.Objective{*root}
	seen := map[primitive.ObjectID]bool{rootID: true}
	for i := 0; i < len(out); i++ {
		children, _ := r.GetChildren(ctx, out[i].ID)
		for _, c := range children {
			if !seen[c.ID] {
				seen[c.ID] = true
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (r *memoryObjectives) Update(_ context.Context, id primitive.ObjectID, objective *models.Objective) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.objectives[id]
	if !ok || existing.IsDeleted {
		return ErrNotFound
	}
	o := *objective
	o.ID = id
	r.s.objectives[id] = o
	return nil
}

func (r *memoryObjectives) UpdateWeights(_ context.Context, parentID primitive.ObjectID, updates []models.WeightUpdate, updatedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range updates {
		o, ok := r.s.objectives[u.ChildObjectiveID]
		if !ok || o.IsDeleted || o.ParentID == nil || *o.ParentID != parentID {
			return fmt.Errorf("%w: objective %s under parent %s", ErrNotFound, u.ChildObjectiveID.Hex(), parentID.Hex())
		}
	}
	now := time.Now()
	for _, u := range updates {
		o := r.s.objectives[u.ChildObjectiveID]
		o.Weight = u.Weight
		o.IsWeightLocked = u.IsWeightLocked
		o.Metadata.UpdatedAt = now
		o.Metadata.UpdatedBy = updatedBy
		r.s.objectives[u.ChildObjectiveID] = o
	}
	return nil
}

func (r *memoryObjectives) SoftDeleteMany(_ context.Context, ids []primitive.ObjectID, updatedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	matched := 0
	for _, id := range ids {
		o, ok := r.s.objectives[id]
		if !ok || o.IsDeleted {
			continue
		}
		o.IsDeleted = true
		o.Metadata.UpdatedBy = updatedBy
		o.Metadata.UpdatedAt = time.Now()
		r.s.objectives[id] = o
		matched++
	}
	if len(ids) > 0 && matched == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *memoryObjectives) StatusBreakdown(_ context.Context) ([]models.StatusBreakdown, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	type acc struct {
		count int
		sum   float64
	}
	groups := map[models.Status]*acc{}
	for _, o := range r.s.objectives {
		if o.IsDeleted {
			continue
		}
		a, ok := groups[o.Status]
		if !ok {
			a = &acc{}
			groups[o.Status] = a
		}
		a.count++
		a.sum += o.Progress
	}
	out := make([]models.StatusBreakdown, 0, len(groups))
	for status, a := range groups {
		out = append(out, models.StatusBreakdown{Status: status, Count: a.count, AvgProgress: a.sum / float64(a.count)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

type memoryKeyResults struct{ s *memoryState }

func (r *memoryKeyResults) Create(_ context.Context, kr *models.KeyResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kr.ID = primitive.NewObjectID()
	r.s.keyResults[kr.ID] = *kr
	return nil
}

func (r *memoryKeyResults) GetByID(_ context.Context, id primitive.ObjectID) (*models.KeyResult, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	kr, ok := r.s.keyResults[id]
	if !ok || kr.IsDeleted {
		return nil, ErrNotFound
	}
	return &kr, nil
}

func (r *memoryKeyResults) GetByObjective(ctx context.Context, objectiveID primitive.ObjectID) ([]models.KeyResult, error) {
	return r.GetByObjectives(ctx, []primitive.ObjectID{objectiveID})
}

func (r *memoryKeyResults) GetByObjectives(_ context.Context, objectiveIDs []primitive.ObjectID) ([]models.KeyResult, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	wanted := make(map[primitive.ObjectID]bool, len(objectiveIDs))
	for _, id := range objectiveIDs {
		wanted[id] = true
	}
	var out []models.KeyResult
	for _, kr := range r.s.keyResults {
		if !kr.IsDeleted && wanted[kr.ObjectiveID] {
			out = append(out, kr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out, nil
}

func (r *memoryKeyResults) Update(_ context.Context, id primitive.ObjectID, kr *models.KeyResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.keyResults[id]
	if !ok || existing.IsDeleted {
		return ErrNotFound
	}
	next := *kr
	next.ID = id
	r.s.keyResults[id] = next
	return nil
}

func (r *memoryKeyResults) UpdateWeights(_ context.Context, objectiveID primitive.ObjectID, updates []models.WeightUpdate, updatedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range updates {
		kr, ok := r.s.keyResults[u.KeyResultID]
		if !ok || kr.IsDeleted || kr.ObjectiveID != objectiveID {
			return fmt.Errorf("%w: key result %s under objective %s", ErrNotFound, u.KeyResultID.Hex(), objectiveID.Hex())
		}
	}
	now := time.Now()
	for _, u := range updates {
		kr := r.s.keyResults[u.KeyResultID]
		kr.Weight = u.Weight
		kr.IsWeightLocked = u.IsWeightLocked
		kr.Metadata.UpdatedAt = now
		kr.Metadata.UpdatedBy = updatedBy
		r.s.keyResults[u.KeyResultID] = kr
	}
	return nil
}

func (r *memoryKeyResults) SetPromoted(_ context.Context, id primitive.ObjectID, promoted bool, at time.Time, updatedBy string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kr, ok := r.s.keyResults[id]
	if !ok || kr.IsDeleted {
		return false, ErrNotFound
	}
	if kr.IsPromotedToKpi == promoted {
		return false, nil
	}
	kr.IsPromotedToKpi = promoted
	if promoted {
		kr.PromotedAt = &at
	} else {
		kr.PromotedAt = nil
	}
	kr.Metadata.UpdatedAt = at
	kr.Metadata.UpdatedBy = updatedBy
	r.s.keyResults[id] = kr
	return true, nil
}

func (r *memoryKeyResults) GetPromoted(_ context.Context) ([]models.KeyResult, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.KeyResult
	for _, kr := range r.s.keyResults {
		if !kr.IsDeleted && kr.IsPromotedToKpi {
			out = append(out, kr)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PromotedAt.Equal(*out[j].PromotedAt) {
			return out[i].PromotedAt.Before(*out[j].PromotedAt)
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r *memoryKeyResults) SoftDelete(_ context.Context, id primitive.ObjectID, updatedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kr, ok := r.s.keyResults[id]
	if !ok || kr.IsDeleted {
		return ErrNotFound
	}
	kr.IsDeleted = true
	kr.Metadata.UpdatedAt = time.Now()
	kr.Metadata.UpdatedBy = updatedBy
	r.s.keyResults[id] = kr
	return nil
}

type memoryInitiatives struct{ s *memoryState }

func (r *memoryInitiatives) Create(_ context.Context, initiative *models.Initiative) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	initiative.ID = primitive.NewObjectID()
	r.s.initiatives[initiative.ID] = *initiative
	return nil
}

func (r *memoryInitiatives) GetByID(_ context.Context, id primitive.ObjectID) (*models.Initiative, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	in, ok := r.s.initiatives[id]
	if !ok || in.IsDeleted {
		return nil, ErrNotFound
	}
	return &in, nil
}

func (r *memoryInitiatives) Update(_ context.Context, id primitive.ObjectID, initiative *models.Initiative) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.initiatives[id]
	if !ok || existing.IsDeleted {
		return ErrNotFound
	}
	next := *initiative
	next.ID = id
	r.s.initiatives[id] = next
	return nil
}

type memoryCheckIns struct{ s *memoryState }

func (r *memoryCheckIns) Append(_ context.Context, checkIn *models.CheckIn) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	checkIn.ID = primitive.NewObjectID()
	r.s.checkIns[checkIn.ID] = cloneCheckIn(*checkIn)
	return nil
}

func (r *memoryCheckIns) GetByID(_ context.Context, id primitive.ObjectID) (*models.CheckIn, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.checkIns[id]
	if !ok {
		return nil, ErrNotFound
	}
	c = cloneCheckIn(c)
	return &c, nil
}

func (r *memoryCheckIns) Update(_ context.Context, id primitive.ObjectID, checkIn *models.CheckIn) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.checkIns[id]
	if !ok {
		return ErrNotFound
	}
	next := cloneCheckIn(*checkIn)
	next.ID = id
	next.EntityType = existing.EntityType
	next.EntityID = existing.EntityID
	next.AuthorID = existing.AuthorID
	next.CreatedAt = existing.CreatedAt
	r.s.checkIns[id] = next
	return nil
}

func (r *memoryCheckIns) ListByEntity(_ context.Context, ref models.EntityRef) ([]models.CheckIn, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.CheckIn{}
	for _, c := range r.s.checkIns {
		if c.EntityType == ref.Type && c.EntityID == ref.ID {
			out = append(out, cloneCheckIn(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return ledgerLess(&out[i], &out[j]) })
	return out, nil
}

func (r *memoryCheckIns) Latest(ctx context.Context, ref models.EntityRef) (*models.CheckIn, error) {
	all, _ := r.ListByEntity(ctx, ref)
	if len(all) == 0 {
		return nil, ErrNotFound
	}
	return &all[len(all)-1], nil
}

func ledgerLess(a, b *models.CheckIn) bool {
	if !a.AsOfDate.Equal(b.AsOfDate) {
		return a.AsOfDate.Before(b.AsOfDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return lessID(a.ID, b.ID)
}

func cloneCheckIn(c models.CheckIn) models.CheckIn {
	c.Achievements = cloneStrings(c.Achievements)
	c.Challenges = cloneStrings(c.Challenges)
	c.NextSteps = cloneStrings(c.NextSteps)
	return c
}

// cloneStrings copies s, keeping nil and empty distinct the way Mongo does.
func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func sortObjectives(objs []models.Objective) {
	sort.Slice(objs, func(i, j int) bool { return lessID(objs[i].ID, objs[j].ID) })
}

func lessID(a, b primitive.ObjectID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}
