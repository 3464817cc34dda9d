package triage

import "context"

// Recommendation is one advisory next step; Type is one of
// query, verification, containment or monitoring.
type Recommendation struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Advice is the advisory layer's read-only commentary on a decision. It
// lives next to the decision, never inside it: score, level and policy
// outcome are fixed before any advisor runs.
type Advice struct {
	Observations    []string         `json:"observations"`
	Assessment      string           `json:"assessment"`
	MitreMapping    []TechniqueMatch `json:"mitre_mapping"`
	Recommendations []Recommendation `json:"recommendations"`
	Confidence      int              `json:"confidence"` // 0..100
	Assumptions     []string         `json:"assumptions"`
	MissingData     []string         `json:"missing_data"`
	Model           string           `json:"model,omitempty"`
	Offline         bool             `json:"offline,omitempty"`
}

// Advisor produces advice for a finished decision. Implementations must
// treat the decision as immutable input.
type Advisor interface {
	Advise(ctx context.Context, d *Decision) (*Advice, error)
}
