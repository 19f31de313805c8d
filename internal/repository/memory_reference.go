package repository

import (
	"context"
	"sync"

	"tether-data/internal/domain"
)

// MemoryReferenceRepo supports reference content when DB is disabled (and unit tests).
type MemoryReferenceRepo struct {
	mu      sync.RWMutex
	content map[string]*domain.ReferenceContent
}

func NewMemoryReferenceRepo() *MemoryReferenceRepo {
	return &MemoryReferenceRepo{content: map[string]*domain.ReferenceContent{}}
}

var _ ReferenceRepository = (*MemoryReferenceRepo)(nil)

func (r *MemoryReferenceRepo) GetContent(_ context.Context, tetherID string) (*domain.ReferenceContent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.content[tetherID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryReferenceRepo) UpsertContent(_ context.Context, content *domain.ReferenceContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *content
	r.content[content.TetherID] = &cp
	return nil
}

func (r *MemoryReferenceRepo) DeleteContent(_ context.Context, tetherID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.content, tetherID)
	return nil
}

func (r *MemoryReferenceRepo) ListAllContent(_ context.Context) (map[string]*domain.ReferenceContent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make(map[string]*domain.ReferenceContent, len(r.content))
	for id, c := range r.content {
		cp := *c
		all[id] = &cp
	}
	return all, nil
}

func (r *MemoryReferenceRepo) ReplaceAllContent(_ context.Context, content map[string]*domain.ReferenceContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.content = map[string]*domain.ReferenceContent{}
	for id, c := range content {
		cp := *c
		cp.TetherID = id
		r.content[id] = &cp
	}
	return nil
}
