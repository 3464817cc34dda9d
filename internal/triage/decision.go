package triage

import "time"

// EngineVersion tags every decision with the deterministic engine revision
// that produced it.
const EngineVersion = "v1"

// Decision is the final immutable aggregate for one incident: score,
// technique matches and policy outcome. It is the contract handed to the
// summary builder, the advisory layer and the HTTP layer, none of which may
// mutate it. CreatedAt is wall-clock metadata and is not part of the
// deterministic payload.
type Decision struct {
	IncidentID     string           `json:"incident_id"`
	Score          int              `json:"score"`
	Level          string           `json:"level"`
	Confidence     float64          `json:"confidence"`
	Reasons        []Reason         `json:"reasons"`
	Mitre          []TechniqueMatch `json:"mitre"`
	Policy         PolicyOutcome    `json:"policy"`
	EngineVersion  string           `json:"engine_version"`
	RulesetVersion string           `json:"ruleset_version"`
	CreatedAt      time.Time        `json:"created_at"`
}

// IsDefaultDeny reports whether the policy outcome is the fail-closed
// fallback rather than a matched band.
func (d *Decision) IsDefaultDeny() bool {
	return len(d.Policy.Trace) == 1 && d.Policy.Trace[0].Reason == defaultDenyReason
}

// assemble is pure aggregation: it adds no logic or validation beyond
// stamping metadata.
func assemble(incidentID string, rs *Ruleset, score ScoreResult, matches []TechniqueMatch, policy PolicyOutcome) *Decision {
	if matches == nil {
		matches = []TechniqueMatch{}
	}
	return &Decision{
		IncidentID:     incidentID,
		Score:          score.Score,
		Level:          score.Level,
		Confidence:     score.Confidence,
		Reasons:        score.Reasons,
		Mitre:          matches,
		Policy:         policy,
		EngineVersion:  EngineVersion,
		RulesetVersion: rs.Version,
		CreatedAt:      time.Now().UTC(),
	}
}
