package triage

import "fmt"

// Reason is one itemized scoring contribution, in rule-definition order.
type Reason struct {
	Text   string `json:"reason"`
	Weight int    `json:"weight"`
}

// ScoreResult is the output of the scoring engine for one fact set.
type ScoreResult struct {
	Score      int      `json:"score"`      // clamped to [0,100]
	Level      string   `json:"level"`      // tier derived from thresholds
	Confidence float64  `json:"confidence"` // [0,1], from trigger count and diversity
	Reasons    []Reason `json:"reasons"`
	Fired      []string `json:"fired"` // rule ids, definition order
}

// score runs the ordered rule list against the facts. Rule order never
// changes the total, only the reason ordering. A faulting predicate is
// reported through onFault and the rule is skipped entirely: it contributes
// neither weight nor reason.
func score(facts FactSet, rs *Ruleset, onFault func(*EvaluationError)) ScoreResult {
	var (
		total      int
		reasons    = []Reason{}
		fired      = []string{}
		categories = map[string]bool{}
	)

	for _, rule := range rs.ScoreRules {
		ok, err := rule.When.Eval(facts)
		if err != nil {
			onFault(&EvaluationError{RuleID: rule.ID, Stage: "scoring", Err: err})
			continue
		}
		if !ok {
			continue
		}
		total += rule.Weight
		reasons = append(reasons, Reason{Text: renderReason(rule, facts), Weight: rule.Weight})
		fired = append(fired, rule.ID)
		categories[rule.Category] = true
	}

	clamped := clamp(total, 0, 100)

	return ScoreResult{
		Score:      clamped,
		Level:      rs.Thresholds.Level(clamped),
		Confidence: confidence(len(fired), len(categories), rs.Confidence),
		Reasons:    reasons,
		Fired:      fired,
	}
}

// confidence derives the corroboration scalar from how many rules fired and
// how many distinct categories they span. It is deliberately independent of
// score magnitude: one strong rule gives a high score but only moderate
// confidence.
func confidence(fired, categories int, m ConfidenceModel) float64 {
	if fired == 0 {
		return 0
	}
	c := m.CategoryWeight*float64(categories) + m.CorroborationWeight*float64(fired-categories)
	return clamp01(c)
}

func renderReason(rule ScoreRule, facts FactSet) string {
	if rule.Fact == "" {
		return rule.Reason
	}
	v, ok := facts.Get(rule.Fact)
	if !ok {
		return rule.Reason
	}
	return fmt.Sprintf("%s (%s=%s)", rule.Reason, rule.Fact, v)
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
