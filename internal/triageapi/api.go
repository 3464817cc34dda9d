// Package triageapi exposes the triage service over HTTP.
package triageapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/warden/internal/incident"
	"github.com/linnemanlabs/warden/internal/triage"
)

// TriageService defines the business operations triageapi needs.
type TriageService interface {
	Submit(ctx context.Context, inc *incident.Incident, sig *incident.SignalSet) (*triage.Record, error)
	Get(ctx context.Context, id string) (*triage.Record, bool, error)
	GetByIncident(ctx context.Context, incidentID string) (*triage.Record, bool, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/triage", a.handleSubmit)
		r.Get("/decisions/{id}", a.handleGetDecision)
		r.Get("/incidents/{incident_id}/decision", a.handleGetByIncident)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
