package repository

import (
	"context"
	"sort"
	"sync"

	"tether-data/internal/domain"
)

// MemoryTemplatesRepo supports the template registry when DB is disabled (and unit tests).
type MemoryTemplatesRepo struct {
	mu        sync.RWMutex
	templates map[string]*domain.Template
}

func NewMemoryTemplatesRepo() *MemoryTemplatesRepo {
	return &MemoryTemplatesRepo{templates: map[string]*domain.Template{}}
}

var _ TemplatesRepository = (*MemoryTemplatesRepo)(nil)

func (r *MemoryTemplatesRepo) CreateTemplate(_ context.Context, tpl *domain.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *tpl
	r.templates[tpl.TemplateID] = &cp
	return nil
}

func (r *MemoryTemplatesRepo) GetTemplate(_ context.Context, templateID string) (*domain.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tpl, ok := r.templates[templateID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *tpl
	return &cp, nil
}

func (r *MemoryTemplatesRepo) ListTemplates(_ context.Context, scope domain.Scope) ([]*domain.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*domain.Template
	for _, tpl := range r.templates {
		if scope != "" && tpl.Scope != scope {
			continue
		}
		cp := *tpl
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Created.After(list[j].Created)
	})
	return list, nil
}

func (r *MemoryTemplatesRepo) DeleteTemplate(_ context.Context, templateID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[templateID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.templates, templateID)
	return nil
}

func (r *MemoryTemplatesRepo) ListAllTemplates(_ context.Context) (map[string]*domain.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make(map[string]*domain.Template, len(r.templates))
	for id, tpl := range r.templates {
		cp := *tpl
		all[id] = &cp
	}
	return all, nil
}

func (r *MemoryTemplatesRepo) ReplaceAllTemplates(_ context.Context, templates map[string]*domain.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates = map[string]*domain.Template{}
	for id, tpl := range templates {
		cp := *tpl
		cp.TemplateID = id
		r.templates[id] = &cp
	}
	return nil
}
