package triage

import (
	"fmt"
	"sort"
)

// Evidence is a reference to the fact(s) that triggered a rule, rendered
// into audit output. When Fact is set the current fact value is appended.
type Evidence struct {
	Text string `yaml:"text" json:"text"`
	Fact string `yaml:"fact,omitempty" json:"fact,omitempty"`
}

func (e Evidence) render(facts FactSet) string {
	if e.Fact == "" {
		return e.Text
	}
	v, ok := facts.Get(e.Fact)
	if !ok {
		return e.Text
	}
	return fmt.Sprintf("%s (%s=%s)", e.Text, e.Fact, v)
}

// ScoreRule is one weighted, named predicate in the scoring engine. Rules
// are totally ordered by their position in the ruleset; order affects only
// reason ordering, never the accumulated score.
type ScoreRule struct {
	ID       string    `yaml:"id" json:"id"`
	Category string    `yaml:"category" json:"category"` // diversity bucket for confidence
	When     Predicate `yaml:"when" json:"when"`
	Weight   int       `yaml:"weight" json:"weight"`
	Reason   string    `yaml:"reason" json:"reason"`
	Fact     string    `yaml:"fact,omitempty" json:"fact,omitempty"` // optional fact echoed into the reason
}

// Boost raises a technique rule's confidence when its own predicate holds,
// contributing an extra evidence reference.
type Boost struct {
	When     Predicate `yaml:"when" json:"when"`
	Add      float64   `yaml:"add" json:"add"`
	Evidence Evidence  `yaml:"evidence" json:"evidence"`
}

// TechniqueRule maps a fact pattern to one adversary technique hypothesis.
type TechniqueRule struct {
	ID        string    `yaml:"id" json:"id"`
	Technique string    `yaml:"technique" json:"technique"` // e.g. "T1078"
	Name      string    `yaml:"name" json:"name"`
	Tactic    string    `yaml:"tactic" json:"tactic"`
	When      Predicate `yaml:"when" json:"when"`
	Base      float64   `yaml:"base" json:"base"`
	Evidence  Evidence  `yaml:"evidence" json:"evidence"`
	Boosts    []Boost   `yaml:"boosts,omitempty" json:"boosts,omitempty"`
}

// PolicyCond is the condition side of a policy rule. All set fields must
// hold; an empty condition matches every decision.
type PolicyCond struct {
	MinScore      *int     `yaml:"min_score,omitempty" json:"min_score,omitempty"`
	MaxScore      *int     `yaml:"max_score,omitempty" json:"max_score,omitempty"`
	Levels        []string `yaml:"levels,omitempty" json:"levels,omitempty"`
	TechniquesAny []string `yaml:"techniques_any,omitempty" json:"techniques_any,omitempty"`
	EntityTypes   []string `yaml:"entity_types,omitempty" json:"entity_types,omitempty"`
}

// PolicyEffect is the effect side of a policy rule.
type PolicyEffect struct {
	Allow           []string `yaml:"allow,omitempty" json:"allow,omitempty"`
	Deny            []string `yaml:"deny,omitempty" json:"deny,omitempty"`
	RequireApproval bool     `yaml:"require_approval,omitempty" json:"require_approval,omitempty"`
}

// PolicyRule is a single condition+effect record inside a band.
type PolicyRule struct {
	ID     string       `yaml:"id" json:"id"`
	When   PolicyCond   `yaml:"when" json:"when"`
	Effect PolicyEffect `yaml:"effect" json:"effect"`
	Reason string       `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// PolicyBand is a priority tier of policy rules. The first band (highest
// priority) with at least one matching rule decides the outcome; lower
// bands are never consulted.
type PolicyBand struct {
	Name     string       `yaml:"name" json:"name"`
	Priority int          `yaml:"priority" json:"priority"`
	Rules    []PolicyRule `yaml:"rules" json:"rules"`
}

// PolicySet is the ordered policy configuration. Actions is the full action
// vocabulary; the default-deny fallback restricts all of it.
type PolicySet struct {
	Actions []string     `yaml:"actions" json:"actions"`
	Bands   []PolicyBand `yaml:"bands" json:"bands"`
}

// Thresholds maps a clamped score to a severity tier. The three cut points
// partition [0,100] exhaustively: 0..LowMax low, ..MediumMax medium,
// ..HighMax high, the rest critical.
type Thresholds struct {
	LowMax    int `yaml:"low_max" json:"low_max"`
	MediumMax int `yaml:"medium_max" json:"medium_max"`
	HighMax   int `yaml:"high_max" json:"high_max"`
}

// Level derives the severity tier for a clamped score.
func (t Thresholds) Level(score int) string {
	switch {
	case score <= t.LowMax:
		return "low"
	case score <= t.MediumMax:
		return "medium"
	case score <= t.HighMax:
		return "high"
	default:
		return "critical"
	}
}

// ConfidenceModel tunes how scoring confidence is derived from the fired
// rule set: one weight per distinct rule category, a smaller weight per
// additional corroborating rule inside an already-counted category.
type ConfidenceModel struct {
	CategoryWeight      float64 `yaml:"category_weight" json:"category_weight"`
	CorroborationWeight float64 `yaml:"corroboration_weight" json:"corroboration_weight"`
}

// Ruleset is one immutable configuration snapshot consumed by the pipeline.
// It is never mutated after Validate; reload replaces the whole snapshot
// atomically so no evaluation observes a partial configuration.
type Ruleset struct {
	Version        string          `yaml:"version" json:"version"`
	Thresholds     Thresholds      `yaml:"thresholds" json:"thresholds"`
	Confidence     ConfidenceModel `yaml:"confidence" json:"confidence"`
	TechniqueFloor float64         `yaml:"technique_floor" json:"technique_floor"`
	ScoreRules     []ScoreRule     `yaml:"scoring" json:"scoring"`
	TechniqueRules []TechniqueRule `yaml:"techniques" json:"techniques"`
	Policy         PolicySet       `yaml:"policy" json:"policy"`
}

// Validate checks the snapshot is internally consistent. Any violation is a
// *ConfigurationError; a snapshot that fails validation must never be
// swapped in.
func (rs *Ruleset) Validate() error {
	t := rs.Thresholds
	if t.LowMax < 0 || t.LowMax >= t.MediumMax || t.MediumMax >= t.HighMax || t.HighMax >= 100 {
		return &ConfigurationError{Detail: fmt.Sprintf(
			"thresholds %d/%d/%d must satisfy 0 <= low < medium < high < 100", t.LowMax, t.MediumMax, t.HighMax)}
	}
	if rs.TechniqueFloor < 0 || rs.TechniqueFloor > 1 {
		return &ConfigurationError{Detail: fmt.Sprintf("technique floor %v outside [0,1]", rs.TechniqueFloor)}
	}
	if rs.Confidence.CategoryWeight < 0 || rs.Confidence.CorroborationWeight < 0 {
		return &ConfigurationError{Detail: "confidence weights must be non-negative"}
	}

	seen := map[string]bool{}
	for _, r := range rs.ScoreRules {
		if r.ID == "" {
			return &ConfigurationError{Detail: "score rule with empty id"}
		}
		if seen["score/"+r.ID] {
			return &ConfigurationError{Detail: fmt.Sprintf("duplicate score rule id %q", r.ID)}
		}
		seen["score/"+r.ID] = true
		if r.Category == "" {
			return &ConfigurationError{Detail: fmt.Sprintf("score rule %q has no category", r.ID)}
		}
		if err := r.When.validate(); err != nil {
			return &ConfigurationError{Detail: fmt.Sprintf("score rule %q", r.ID), Err: err}
		}
	}
	for _, r := range rs.TechniqueRules {
		if r.ID == "" || r.Technique == "" {
			return &ConfigurationError{Detail: "technique rule with empty id or technique"}
		}
		if seen["technique/"+r.ID] {
			return &ConfigurationError{Detail: fmt.Sprintf("duplicate technique rule id %q", r.ID)}
		}
		seen["technique/"+r.ID] = true
		if r.Base < 0 || r.Base > 1 {
			return &ConfigurationError{Detail: fmt.Sprintf("technique rule %q base %v outside [0,1]", r.ID, r.Base)}
		}
		if err := r.When.validate(); err != nil {
			return &ConfigurationError{Detail: fmt.Sprintf("technique rule %q", r.ID), Err: err}
		}
		for i, b := range r.Boosts {
			if err := b.When.validate(); err != nil {
				return &ConfigurationError{Detail: fmt.Sprintf("technique rule %q boost %d", r.ID, i), Err: err}
			}
		}
	}
	for _, band := range rs.Policy.Bands {
		if band.Name == "" {
			return &ConfigurationError{Detail: "policy band with empty name"}
		}
		for _, r := range band.Rules {
			if r.ID == "" {
				return &ConfigurationError{Detail: fmt.Sprintf("policy band %q has a rule with empty id", band.Name)}
			}
			if seen["policy/"+r.ID] {
				return &ConfigurationError{Detail: fmt.Sprintf("duplicate policy rule id %q", r.ID)}
			}
			seen["policy/"+r.ID] = true
			if r.When.MinScore != nil && r.When.MaxScore != nil && *r.When.MinScore > *r.When.MaxScore {
				return &ConfigurationError{Detail: fmt.Sprintf("policy rule %q: min_score > max_score", r.ID)}
			}
		}
	}
	return nil
}

// sortedBands returns policy bands ordered by descending priority, stable
// within equal priorities so declaration order is preserved.
func (p PolicySet) sortedBands() []PolicyBand {
	bands := append([]PolicyBand(nil), p.Bands...)
	sort.SliceStable(bands, func(i, j int) bool { return bands[i].Priority > bands[j].Priority })
	return bands
}

// knownActions returns the sorted action vocabulary: the declared list plus
// any action named by a rule effect.
func (p PolicySet) knownActions() []string {
	set := map[string]bool{}
	for _, a := range p.Actions {
		set[a] = true
	}
	for _, band := range p.Bands {
		for _, r := range band.Rules {
			for _, a := range r.Effect.Allow {
				set[a] = true
			}
			for _, a := range r.Effect.Deny {
				set[a] = true
			}
		}
	}
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
