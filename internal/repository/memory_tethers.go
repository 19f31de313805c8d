package repository

import (
	"context"
	"sort"
	"sync"

	"tether-data/internal/domain"
)

// MemoryTethersRepo supports tether records when DB is disabled (and unit tests).
type MemoryTethersRepo struct {
	mu      sync.RWMutex
	tethers map[string]*domain.Tether
}

func NewMemoryTethersRepo() *MemoryTethersRepo {
	return &MemoryTethersRepo{tethers: map[string]*domain.Tether{}}
}

var _ TethersRepository = (*MemoryTethersRepo)(nil)

func cloneTether(t *domain.Tether) *domain.Tether {
	cp := *t
	cp.StaticValues = make(map[string]string, len(t.StaticValues))
	for k, v := range t.StaticValues {
		cp.StaticValues[k] = v
	}
	return &cp
}

func (r *MemoryTethersRepo) GetTether(_ context.Context, tetherID string) (*domain.Tether, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tethers[tetherID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneTether(t), nil
}

func (r *MemoryTethersRepo) CreateTether(_ context.Context, tether *domain.Tether) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// last-write-wins，与 Postgres upsert 语义一致
	r.tethers[tether.TetherID] = cloneTether(tether)
	return nil
}

func (r *MemoryTethersRepo) SetLocked(_ context.Context, tetherID string, locked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tethers[tetherID]
	if !ok {
		return domain.ErrNotFound
	}
	t.Locked = locked
	return nil
}

func (r *MemoryTethersRepo) DeleteTether(_ context.Context, tetherID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tethers, tetherID)
	return nil
}

func (r *MemoryTethersRepo) ListTethers(_ context.Context) ([]*domain.Tether, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*domain.Tether
	for _, t := range r.tethers {
		list = append(list, cloneTether(t))
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Created.After(list[j].Created)
	})
	return list, nil
}

func (r *MemoryTethersRepo) ListAllTethers(_ context.Context) (map[string]*domain.Tether, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make(map[string]*domain.Tether, len(r.tethers))
	for id, t := range r.tethers {
		all[id] = cloneTether(t)
	}
	return all, nil
}

func (r *MemoryTethersRepo) ReplaceAllTethers(_ context.Context, tethers map[string]*domain.Tether) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tethers = map[string]*domain.Tether{}
	for id, t := range tethers {
		cp := cloneTether(t)
		cp.TetherID = id
		r.tethers[id] = cp
	}
	return nil
}
