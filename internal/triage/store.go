package triage

import "context"

// Store is the persistence interface for triage records.
type Store interface {
	Get(ctx context.Context, id string) (*Record, bool, error)
	GetByIncident(ctx context.Context, incidentID string) (*Record, bool, error)
	Put(ctx context.Context, rec *Record) error
}
