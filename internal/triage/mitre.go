package triage

import "sort"

// TechniqueMatch is one inferred adversary technique with the evidence that
// produced it. The JSON shape is part of the decision contract.
type TechniqueMatch struct {
	Tactic     string   `json:"tactic"`
	Technique  string   `json:"technique_id"`
	Name       string   `json:"name"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

// matchTechniques evaluates every technique rule independently against the
// facts, merges duplicate technique ids (max confidence, union of
// evidence), drops anything below the configured floor, and orders the
// result by descending confidence with ties broken by ascending technique
// id. A fault anywhere in a rule (base predicate or boost) skips the whole
// rule.
func matchTechniques(facts FactSet, rs *Ruleset, onFault func(*EvaluationError)) []TechniqueMatch {
	type candidate struct {
		match TechniqueMatch
		order int
	}
	merged := map[string]*candidate{}

	for i, rule := range rs.TechniqueRules {
		m, err := evalTechniqueRule(rule, facts)
		if err != nil {
			onFault(&EvaluationError{RuleID: rule.ID, Stage: "technique", Err: err})
			continue
		}
		if m == nil {
			continue
		}

		existing, ok := merged[m.Technique]
		if !ok {
			merged[m.Technique] = &candidate{match: *m, order: i}
			continue
		}
		if m.Confidence > existing.match.Confidence {
			existing.match.Confidence = m.Confidence
		}
		existing.match.Evidence = unionStrings(existing.match.Evidence, m.Evidence)
	}

	out := make([]TechniqueMatch, 0, len(merged))
	for _, c := range merged {
		if c.match.Confidence < rs.TechniqueFloor {
			continue
		}
		out = append(out, c.match)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Technique < out[j].Technique
	})
	return out
}

// evalTechniqueRule returns the match for one rule, nil when the rule does
// not fire, or an error when any of its predicates fault.
func evalTechniqueRule(rule TechniqueRule, facts FactSet) (*TechniqueMatch, error) {
	ok, err := rule.When.Eval(facts)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	conf := rule.Base
	evidence := []string{rule.Evidence.render(facts)}

	for _, boost := range rule.Boosts {
		hit, err := boost.When.Eval(facts)
		if err != nil {
			return nil, err
		}
		if !hit {
			continue
		}
		conf += boost.Add
		evidence = append(evidence, boost.Evidence.render(facts))
	}

	return &TechniqueMatch{
		Tactic:     rule.Tactic,
		Technique:  rule.Technique,
		Name:       rule.Name,
		Confidence: clamp01(conf),
		Evidence:   evidence,
	}, nil
}

// unionStrings appends items from b that a does not already contain,
// preserving first-seen order.
func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			a = append(a, s)
			seen[s] = true
		}
	}
	return a
}
