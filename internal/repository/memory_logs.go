package repository

import (
	"context"
	"sort"
	"sync"

	"tether-data/internal/domain"
)

// MemoryLogsRepo supports log streams when DB is disabled (and unit tests).
// 键结构与导出形状一致：owner "" 为共享流
type MemoryLogsRepo struct {
	mu      sync.RWMutex
	entries map[string]map[string]map[string]*domain.LogEntry // owner -> tether -> entry_id -> entry
}

func NewMemoryLogsRepo() *MemoryLogsRepo {
	return &MemoryLogsRepo{entries: map[string]map[string]map[string]*domain.LogEntry{}}
}

var _ LogsRepository = (*MemoryLogsRepo)(nil)

func cloneEntry(e *domain.LogEntry) *domain.LogEntry {
	cp := *e
	cp.Fields = make(map[string]domain.Value, len(e.Fields))
	for k, v := range e.Fields {
		cp.Fields[k] = v
	}
	return &cp
}

func (r *MemoryLogsRepo) AppendEntry(_ context.Context, stream domain.LogStream, entry *domain.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[stream.OwnerID] == nil {
		r.entries[stream.OwnerID] = map[string]map[string]*domain.LogEntry{}
	}
	if r.entries[stream.OwnerID][stream.TetherID] == nil {
		r.entries[stream.OwnerID][stream.TetherID] = map[string]*domain.LogEntry{}
	}
	r.entries[stream.OwnerID][stream.TetherID][entry.EntryID] = cloneEntry(entry)
	return nil
}

func (r *MemoryLogsRepo) ListEntries(_ context.Context, stream domain.LogStream) ([]*domain.LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*domain.LogEntry
	for _, e := range r.entries[stream.OwnerID][stream.TetherID] {
		list = append(list, cloneEntry(e))
	}
	// push id 字典序即插入序
	sort.Slice(list, func(i, j int) bool {
		return list[i].EntryID < list[j].EntryID
	})
	return list, nil
}

func (r *MemoryLogsRepo) DeleteSharedEntries(_ context.Context, tetherID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if shared := r.entries[""]; shared != nil {
		delete(shared, tetherID)
	}
	return nil
}

func (r *MemoryLogsRepo) CountSharedByTether(_ context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := map[string]int{}
	for tetherID, entries := range r.entries[""] {
		counts[tetherID] = len(entries)
	}
	return counts, nil
}

func (r *MemoryLogsRepo) ListUserTetherIDs(_ context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for tetherID, entries := range r.entries[userID] {
		if len(entries) > 0 {
			ids = append(ids, tetherID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *MemoryLogsRepo) ListAllShared(_ context.Context) (SharedLogs, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := SharedLogs{}
	for tetherID, entries := range r.entries[""] {
		all[tetherID] = map[string]*domain.LogEntry{}
		for id, e := range entries {
			all[tetherID][id] = cloneEntry(e)
		}
	}
	return all, nil
}

func (r *MemoryLogsRepo) ReplaceAllShared(_ context.Context, logs SharedLogs) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	shared := map[string]map[string]*domain.LogEntry{}
	for tetherID, entries := range logs {
		shared[tetherID] = map[string]*domain.LogEntry{}
		for id, e := range entries {
			cp := cloneEntry(e)
			cp.EntryID = id
			cp.TetherID = tetherID
			shared[tetherID][id] = cp
		}
	}
	r.entries[""] = shared
	return nil
}

func (r *MemoryLogsRepo) ListAllUserLogs(_ context.Context) (UserLogs, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := UserLogs{}
	for owner, byTether := range r.entries {
		if owner == "" {
			continue
		}
		all[owner] = map[string]map[string]*domain.LogEntry{}
		for tetherID, entries := range byTether {
			all[owner][tetherID] = map[string]*domain.LogEntry{}
			for id, e := range entries {
				all[owner][tetherID][id] = cloneEntry(e)
			}
		}
	}
	return all, nil
}

func (r *MemoryLogsRepo) ReplaceAllUserLogs(_ context.Context, logs UserLogs) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	shared := r.entries[""]
	r.entries = map[string]map[string]map[string]*domain.LogEntry{"": shared}
	for owner, byTether := range logs {
		if owner == "" {
			continue
		}
		r.entries[owner] = map[string]map[string]*domain.LogEntry{}
		for tetherID, entries := range byTether {
			r.entries[owner][tetherID] = map[string]*domain.LogEntry{}
			for id, e := range entries {
				cp := cloneEntry(e)
				cp.EntryID = id
				cp.TetherID = tetherID
				r.entries[owner][tetherID][id] = cp
			}
		}
	}
	return nil
}
