// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/warden/internal/triage"
)

// Store holds triage records in memory. Suitable for dev/testing.
type Store struct {
	mu         sync.RWMutex
	records    map[string]*triage.Record // record ID -> record
	byIncident map[string]string         // incident ID -> latest record ID
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		records:    make(map[string]*triage.Record),
		byIncident: make(map[string]string),
	}
}

// Get retrieves a triage record by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*triage.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// GetByIncident retrieves the latest triage record for an incident. Returns a copy.
func (s *Store) GetByIncident(_ context.Context, incidentID string) (*triage.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byIncident[incidentID]
	if !ok {
		return nil, false, nil
	}
	r := s.records[id]
	cp := *r
	return &cp, true, nil
}

// Put stores a copy of the triage record.
func (s *Store) Put(_ context.Context, r *triage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.records[r.ID] = &cp
	s.byIncident[r.Incident.IncidentID] = r.ID
	return nil
}
