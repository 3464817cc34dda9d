package triage

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/warden/internal/incident"
	"github.com/oklog/ulid/v2"
)

// Notifier delivers a finished triage record to an external channel.
type Notifier interface {
	Send(ctx context.Context, rec *Record) error
}

// Service is the business boundary for triage operations. Submit runs the
// deterministic pipeline synchronously and dispatches the advisory run in
// the background when an advisor is configured.
type Service struct {
	store    Store
	pipeline *Pipeline
	advisor  Advisor
	notifier Notifier
	logger   log.Logger
	metrics  *Metrics
}

// NewService creates a new triage service. advisor and notifier may be nil.
func NewService(store Store, pipeline *Pipeline, advisor Advisor, notifier Notifier, logger log.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:    store,
		pipeline: pipeline,
		advisor:  advisor,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// Submit triages an incident and persists the record. The decision is
// complete when Submit returns; only the advisory attachment is async.
func (s *Service) Submit(ctx context.Context, inc *incident.Incident, sig *incident.SignalSet) (*Record, error) {
	d, err := s.pipeline.Triage(ctx, inc, sig)
	if err != nil {
		s.countSubmit("invalid")
		return nil, err
	}

	rec := &Record{
		ID:           ulid.Make().String(),
		Incident:     *inc,
		Decision:     d,
		Summary:      Summarize(inc, d),
		AdviceStatus: AdviceSkipped,
		CreatedAt:    time.Now(),
	}
	if s.advisor != nil {
		rec.AdviceStatus = AdvicePending
	}

	if err := s.store.Put(ctx, rec); err != nil {
		s.countSubmit("error")
		return nil, err
	}
	s.countSubmit("accepted")

	if s.advisor != nil {
		// pass only the ID to avoid sharing the Record pointer
		go s.runAdvice(context.WithoutCancel(ctx), rec.ID)
	}
	if s.notifier != nil {
		go s.notify(context.WithoutCancel(ctx), rec.ID)
	}

	return rec, nil
}

// Get retrieves a triage record by ID.
func (s *Service) Get(ctx context.Context, id string) (*Record, bool, error) {
	return s.store.Get(ctx, id)
}

// GetByIncident retrieves the latest triage record for an incident.
func (s *Service) GetByIncident(ctx context.Context, incidentID string) (*Record, bool, error) {
	return s.store.GetByIncident(ctx, incidentID)
}

func (s *Service) runAdvice(ctx context.Context, id string) {
	L := s.logger.With("triage_id", id)

	rec, ok, err := s.store.Get(ctx, id)
	if err != nil || !ok {
		L.Error(ctx, err, "failed to fetch record for advisory run")
		return
	}

	start := time.Now()
	advice, err := s.advisor.Advise(ctx, rec.Decision)
	duration := time.Since(start).Seconds()

	if err != nil {
		rec.AdviceStatus = AdviceFailed
		L.Error(ctx, err, "advisory run failed")
	} else {
		rec.AdviceStatus = AdviceComplete
		rec.Advice = advice
	}
	rec.CompletedAt = time.Now()
	rec.Duration = duration

	if err := s.store.Put(ctx, rec); err != nil {
		L.Error(ctx, err, "failed to persist advisory result")
		return
	}

	if s.metrics != nil {
		s.metrics.AdviceTotal.WithLabelValues(string(rec.AdviceStatus)).Inc()
		s.metrics.AdviceDuration.Observe(duration)
	}

	L.Info(ctx, "advisory run complete",
		"status", rec.AdviceStatus,
		"duration", duration,
	)
}

func (s *Service) notify(ctx context.Context, id string) {
	rec, ok, err := s.store.Get(ctx, id)
	if err != nil || !ok {
		s.logger.Error(ctx, err, "failed to fetch record for notification", "triage_id", id)
		return
	}
	if err := s.notifier.Send(ctx, rec); err != nil {
		s.logger.Error(ctx, err, "failed to send notification", "triage_id", id)
	}
}

func (s *Service) countSubmit(result string) {
	if s.metrics != nil {
		s.metrics.SubmitsTotal.WithLabelValues(result).Inc()
	}
}
