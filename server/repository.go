// Package server is a reference implementation of the BubbleMind REST
// service. It keeps its records in memory or in Redis and stands in for the
// production backend in tests and offline runs.
package server

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Record is one stored node.
type Record struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	Content    string    `json:"content"`
	Parent     *int64    `json:"parent,omitempty"`
	TopicName  string    `json:"topic_name,omitempty"`
	Connect    []int64   `json:"connect,omitempty"`
	Archived   bool      `json:"archived,omitempty"`
	CreateTime time.Time `json:"create_time"`
}

// HasParent reports whether the record's parent is id.
func (r Record) HasParent(id int64) bool {
	return r.Parent != nil && *r.Parent == id
}

// Repository stores records. Implementations must be safe for concurrent
// use; multi-record consistency is the server's job.
type Repository interface {
	// NextID reserves a fresh record id.
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, r Record) error
	Get(ctx context.Context, id int64) (Record, error)
	Update(ctx context.Context, r Record) error
	Delete(ctx context.Context, id int64) error
	// List returns every record ordered by id.
	List(ctx context.Context) ([]Record, error)
	// Children returns the records whose parent is id, ordered by id.
	Children(ctx context.Context, id int64) ([]Record, error)
}

// MemoryRepository is a Repository held in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[int64]Record
	lastID  int64
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[int64]Record)}
}

func (m *MemoryRepository) NextID(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID++
	return m.lastID, nil
}

func (m *MemoryRepository) Create(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = cloneRecord(r)
	if r.ID > m.lastID {
		m.lastID = r.ID
	}
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id int64) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(r), nil
}

func (m *MemoryRepository) Update(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.ID]; !ok {
		return ErrNotFound
	}
	m.records[r.ID] = cloneRecord(r)
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *MemoryRepository) List(context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, cloneRecord(r))
	}
	sortRecords(out)
	return out, nil
}

func (m *MemoryRepository) Children(ctx context.Context, id int64) ([]Record, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	return childrenOf(all, id), nil
}

func childrenOf(all []Record, id int64) []Record {
	var out []Record
	for _, r := range all {
		if r.HasParent(id) {
			out = append(out, r)
		}
	}
	return out
}

func sortRecords(rs []Record) {
	slices.SortFunc(rs, func(a, b Record) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

func cloneRecord(r Record) Record {
	if r.Parent != nil {
		p := *r.Parent
		r.Parent = &p
	}
	r.Connect = slices.Clone(r.Connect)
	return r
}
