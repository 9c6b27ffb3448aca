package registrar

import (
	"context"
	"maps"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process registrar. Create enforces label uniqueness under
// the lock, so of two racing claims for one label exactly one wins.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Subname
	order   []string
	now     func() time.Time
}

// NewMemory creates an empty in-memory registrar.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]Subname),
		now:     time.Now,
	}
}

func (m *Memory) IsAvailable(_ context.Context, fullName string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, taken := m.records[strings.ToLower(fullName)]
	return !taken, nil
}

func (m *Memory) FindByOwner(_ context.Context, parentName, address string, limit int) ([]Subname, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := strings.ToLower(strings.TrimSpace(address))
	var out []Subname
	for _, key := range m.order {
		rec := m.records[key]
		if rec.ParentName != parentName {
			continue
		}
		if strings.ToLower(rec.Metadata["sender"]) != want {
			continue
		}
		out = append(out, cloneSubname(rec))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) List(_ context.Context, parentName string, size int) ([]Subname, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Subname, 0, min(len(m.order), max(size, 0)))
	for _, key := range m.order {
		rec := m.records[key]
		if rec.ParentName != parentName {
			continue
		}
		if size > 0 && len(out) >= size {
			break
		}
		out = append(out, cloneSubname(rec))
	}
	return out, nil
}

func (m *Memory) Create(_ context.Context, req CreateRequest) (*Subname, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(req.FullName())
	if _, taken := m.records[key]; taken {
		return nil, &RegistryError{
			Op:         "create",
			StatusCode: http.StatusConflict,
			Message:    "subname " + req.FullName() + " already exists",
		}
	}

	rec := Subname{
		Label:      req.Label,
		ParentName: req.ParentName,
		FullName:   req.FullName(),
		Owner:      req.Owner,
		Texts:      recordsToMap(req.Texts),
		Addresses:  bindingsToMap(req.Addresses),
		Metadata:   recordsToMap(req.Metadata),
		CreatedAt:  m.now().UTC(),
	}
	m.records[key] = rec
	m.order = append(m.order, key)

	out := cloneSubname(rec)
	return &out, nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func cloneSubname(s Subname) Subname {
	s.Texts = maps.Clone(s.Texts)
	s.Addresses = maps.Clone(s.Addresses)
	s.Metadata = maps.Clone(s.Metadata)
	return s
}
