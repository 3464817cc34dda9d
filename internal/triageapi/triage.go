package triageapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/warden/internal/incident"
	"github.com/linnemanlabs/warden/internal/triage"
)

type submitRequest struct {
	Incident incident.Incident   `json:"incident"`
	Signals  *incident.SignalSet `json:"signals"`
}

func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if req.Signals == nil {
		req.Signals = &incident.SignalSet{}
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("warden.incident.id", req.Incident.IncidentID))

	rec, err := a.svc.Submit(r.Context(), &req.Incident, req.Signals)
	if err != nil {
		var verr *triage.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": verr.Error(),
				"field": verr.Field,
			})
			return
		}
		a.logger.Error(r.Context(), err, "failed to submit incident",
			"incident_id", req.Incident.IncidentID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	span.SetAttributes(
		attribute.String("warden.triage.id", rec.ID),
		attribute.String("warden.decision.level", rec.Decision.Level),
		attribute.Int("warden.decision.score", rec.Decision.Score),
	)

	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("warden.triage.id", id))

	rec, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get triage record", "id", id)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	span.SetAttributes(attribute.String("warden.advice.status", string(rec.AdviceStatus)))

	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleGetByIncident(w http.ResponseWriter, r *http.Request) {
	incidentID := chi.URLParam(r, "incident_id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("warden.incident.id", incidentID))

	rec, ok, err := a.svc.GetByIncident(r.Context(), incidentID)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get triage record for incident",
			"incident_id", incidentID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
