package repository

import (
	"context"
	"sort"
	"sync"

	"tether-data/internal/domain"
)

// MemoryContactsRepo supports vendor contacts when DB is disabled (and unit tests).
type MemoryContactsRepo struct {
	mu       sync.RWMutex
	contacts map[string]map[string]*domain.VendorContact // tether -> contact_id -> contact
}

func NewMemoryContactsRepo() *MemoryContactsRepo {
	return &MemoryContactsRepo{contacts: map[string]map[string]*domain.VendorContact{}}
}

var _ ContactsRepository = (*MemoryContactsRepo)(nil)

func (r *MemoryContactsRepo) GetContact(_ context.Context, tetherID, contactID string) (*domain.VendorContact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contacts[tetherID][contactID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryContactsRepo) ListContacts(_ context.Context, tetherID string) ([]*domain.VendorContact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*domain.VendorContact
	for _, c := range r.contacts[tetherID] {
		cp := *c
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Created.After(list[j].Created)
	})
	return list, nil
}

func (r *MemoryContactsRepo) CreateContact(_ context.Context, contact *domain.VendorContact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.contacts[contact.TetherID] == nil {
		r.contacts[contact.TetherID] = map[string]*domain.VendorContact{}
	}
	cp := *contact
	r.contacts[contact.TetherID][contact.ContactID] = &cp
	return nil
}

func (r *MemoryContactsRepo) UpdateContact(_ context.Context, contact *domain.VendorContact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contacts[contact.TetherID][contact.ContactID]; !ok {
		return domain.ErrNotFound
	}
	cp := *contact
	r.contacts[contact.TetherID][contact.ContactID] = &cp
	return nil
}

func (r *MemoryContactsRepo) DeleteContact(_ context.Context, tetherID, contactID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contacts[tetherID][contactID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.contacts[tetherID], contactID)
	return nil
}

func (r *MemoryContactsRepo) ListAllContacts(_ context.Context) (map[string]map[string]*domain.VendorContact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := map[string]map[string]*domain.VendorContact{}
	for tetherID, byID := range r.contacts {
		if len(byID) == 0 {
			continue
		}
		all[tetherID] = map[string]*domain.VendorContact{}
		for id, c := range byID {
			cp := *c
			all[tetherID][id] = &cp
		}
	}
	return all, nil
}

func (r *MemoryContactsRepo) ReplaceAllContacts(_ context.Context, contacts map[string]map[string]*domain.VendorContact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts = map[string]map[string]*domain.VendorContact{}
	for tetherID, byID := range contacts {
		r.contacts[tetherID] = map[string]*domain.VendorContact{}
		for id, c := range byID {
			cp := *c
			cp.ContactID = id
			cp.TetherID = tetherID
			r.contacts[tetherID][id] = &cp
		}
	}
	return nil
}
