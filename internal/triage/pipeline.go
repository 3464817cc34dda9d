package triage

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/warden/internal/incident"
)

var tracer = otel.Tracer("github.com/linnemanlabs/warden/internal/triage")

// PipelineHooks receive pipeline events for metrics. Zero value is valid;
// nil hooks are skipped.
type PipelineHooks struct {
	OnEvalFault func(stage string)
	OnDecision  func(level string, score int, confidence float64, defaultDeny bool, duration float64)
}

// Pipeline is the deterministic triage engine: normalize, score, match
// techniques, gate policy, assemble. Each invocation reads one immutable
// ruleset snapshot, so concurrent triages need no coordination and a reload
// never exposes a half-applied configuration.
type Pipeline struct {
	rules  atomic.Pointer[Ruleset]
	logger log.Logger
	hooks  PipelineHooks
}

// NewPipeline creates a pipeline over a validated ruleset snapshot.
func NewPipeline(rs *Ruleset, logger log.Logger, hooks PipelineHooks) (*Pipeline, error) {
	if logger == nil {
		logger = log.Nop()
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{logger: logger, hooks: hooks}
	p.rules.Store(rs)
	return p, nil
}

// Ruleset returns the active snapshot.
func (p *Pipeline) Ruleset() *Ruleset {
	return p.rules.Load()
}

// Swap atomically replaces the active ruleset. The snapshot is validated
// first; on error the previous snapshot stays active.
func (p *Pipeline) Swap(rs *Ruleset) error {
	if err := rs.Validate(); err != nil {
		return err
	}
	p.rules.Store(rs)
	return nil
}

// Triage runs the full deterministic pipeline for one incident. It is a
// pure, bounded computation: no I/O, no clock or randomness in the decision
// payload, and the same (incident, signals, ruleset) triple always produces
// the same decision. A *ValidationError is returned before any scoring when
// the incident is malformed. Rule evaluation faults never abort the run;
// the offending rule is skipped, logged and counted.
func (p *Pipeline) Triage(ctx context.Context, inc *incident.Incident, sig *incident.SignalSet) (*Decision, error) {
	start := time.Now()
	rs := p.rules.Load()

	incidentID := ""
	if inc != nil {
		incidentID = inc.IncidentID
	}
	ctx, span := tracer.Start(ctx, "triage.run", trace.WithAttributes(
		attribute.String("warden.incident.id", incidentID),
		attribute.String("warden.ruleset.version", rs.Version),
	))
	defer span.End()

	facts, err := Normalize(inc, sig)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "incident rejected")
		return nil, err
	}
	span.SetAttributes(attribute.Int("warden.facts.count", len(facts)))

	onFault := func(ev *EvaluationError) {
		p.logger.Error(ctx, ev, "rule evaluation fault, rule skipped",
			"stage", ev.Stage,
			"rule", ev.RuleID,
			"incident_id", inc.IncidentID,
		)
		if p.hooks.OnEvalFault != nil {
			p.hooks.OnEvalFault(ev.Stage)
		}
	}

	scored := score(facts, rs, onFault)
	matches := matchTechniques(facts, rs, onFault)
	policy := evaluatePolicy(scored, matches, facts, rs)

	d := assemble(inc.IncidentID, rs, scored, matches, policy)

	span.SetAttributes(
		attribute.Int("warden.decision.score", d.Score),
		attribute.String("warden.decision.level", d.Level),
		attribute.Bool("warden.decision.default_deny", d.IsDefaultDeny()),
	)

	if p.hooks.OnDecision != nil {
		p.hooks.OnDecision(d.Level, d.Score, d.Confidence, d.IsDefaultDeny(), time.Since(start).Seconds())
	}
	return d, nil
}
