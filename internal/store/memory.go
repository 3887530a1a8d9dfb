package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and local development. It
// applies the same query semantics as the Postgres implementation.
type Memory struct {
	mu   sync.RWMutex
	recs map[string]Record
}

func NewMemory() *Memory {
	return &Memory{recs: make(map[string]Record)}
}

func memKey(pk, sk string) string {
	return pk + "|" + sk
}

func (m *Memory) Put(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := m.recs[memKey(rec.PK, rec.SK)]; ok {
		rec.CreatedAt = existing.CreatedAt
		rec.UpdatedAt = now
	} else {
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if rec.UpdatedAt.IsZero() {
			rec.UpdatedAt = now
		}
	}
	m.recs[memKey(rec.PK, rec.SK)] = rec
	return nil
}

func (m *Memory) PutNew(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.recs[memKey(rec.PK, rec.SK)]; ok {
		return ErrConflict
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	m.recs[memKey(rec.PK, rec.SK)] = rec
	return nil
}

func (m *Memory) Get(ctx context.Context, pk, sk string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.recs[memKey(pk, sk)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := rec
	return &cp, nil
}

func (m *Memory) Update(ctx context.Context, pk, sk string, mutate func(*Record) error) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.recs[memKey(pk, sk)]
	if !ok {
		return nil, ErrNotFound
	}
	if err := mutate(&rec); err != nil {
		return nil, err
	}
	rec.UpdatedAt = time.Now().UTC()
	m.recs[memKey(pk, sk)] = rec
	cp := rec
	return &cp, nil
}

func (m *Memory) Query(ctx context.Context, q Query) ([]Record, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Record
	for _, rec := range m.recs {
		if rec.GSI1PK != q.GSI1PK {
			continue
		}
		if q.SKPrefix != "" && !strings.HasPrefix(rec.GSI1SK, q.SKPrefix) {
			continue
		}
		if q.Status != "" && docField(rec.Data, "status") != q.Status {
			continue
		}
		if q.CreatedFrom != nil && rec.CreatedAt.Before(*q.CreatedFrom) {
			continue
		}
		if q.CreatedTo != nil && rec.CreatedAt.After(*q.CreatedTo) {
			continue
		}
		matched = append(matched, rec)
	}

	sortRecords(matched, q.SortBy, q.Ascending)

	total := len(matched)
	if q.Limit > 0 {
		start := q.offset()
		if start > total {
			start = total
		}
		end := start + q.Limit
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (m *Memory) Delete(ctx context.Context, pk, sk string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, memKey(pk, sk))
	return nil
}

func sortRecords(recs []Record, sortBy string, asc bool) {
	less := func(a, b Record) bool {
		switch sortBy {
		case "updatedAt":
			return a.UpdatedAt.Before(b.UpdatedAt)
		case "title":
			return docField(a.Data, "title") < docField(b.Data, "title")
		case "status":
			return docField(a.Data, "status") < docField(b.Data, "status")
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if asc {
			return less(recs[i], recs[j])
		}
		return less(recs[j], recs[i])
	})
}

func docField(data json.RawMessage, field string) string {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return ""
	}
	var v string
	if err := json.Unmarshal(doc[field], &v); err != nil {
		return ""
	}
	return v
}
