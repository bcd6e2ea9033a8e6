// Package store persists tenant overrides.
package store

import (
	"context"
	"sync"

	"securitypassport/internal/passport/overrides"
	id "securitypassport/pkg/domain"
	"securitypassport/pkg/platform/sentinel"
)

// InMemory is a thread-safe in-memory override store.
type InMemory struct {
	mu   sync.Mutex
	rows map[id.TenantID]overrides.Settings
}

func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[id.TenantID]overrides.Settings)}
}

func (s *InMemory) Get(_ context.Context, tenantID id.TenantID) (overrides.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return row.Clone(), nil
}

func (s *InMemory) Update(_ context.Context, tenantID id.TenantID, fn func(overrides.Settings) overrides.Settings) (overrides.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.rows[tenantID].Clone()
	next := fn(current).Clone()
	s.rows[tenantID] = next
	return next.Clone(), nil
}
