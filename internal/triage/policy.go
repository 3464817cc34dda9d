package triage

// RuleTrace records one contributing policy rule and the effect it brought
// to the outcome. The trace is mandatory decision output, not logging.
type RuleTrace struct {
	Band             string   `json:"band,omitempty"`
	Rule             string   `json:"rule"`
	Allow            []string `json:"allow,omitempty"`
	Deny             []string `json:"deny,omitempty"`
	RequiresApproval bool     `json:"requires_approval,omitempty"`
	Reason           string   `json:"reason,omitempty"`
}

// PolicyOutcome is the gated action set for one decision.
type PolicyOutcome struct {
	Allowed          []string    `json:"allowed"`
	Restricted       []string    `json:"restricted"`
	RequiresApproval bool        `json:"requires_approval"`
	Trace            []RuleTrace `json:"rule_trace"`
}

const defaultDenyReason = "no matching policy — default deny"

// evaluatePolicy resolves the first priority band with at least one
// matching rule and merges every matching rule in that band. Deny dominates
// allow on the same action name; approval is sticky. When no band matches
// the outcome is the fail-closed posture: everything restricted, approval
// required, with a synthetic trace entry.
func evaluatePolicy(score ScoreResult, matches []TechniqueMatch, facts FactSet, rs *Ruleset) PolicyOutcome {
	for _, band := range rs.Policy.sortedBands() {
		var contributing []PolicyRule
		for _, rule := range band.Rules {
			if policyCondHolds(rule.When, score, matches, facts) {
				contributing = append(contributing, rule)
			}
		}
		if len(contributing) == 0 {
			continue
		}
		return mergeEffects(band.Name, contributing)
	}
	return defaultDenyOutcome(rs)
}

// mergeEffects combines all contributing rules of the resolved band.
func mergeEffects(band string, rules []PolicyRule) PolicyOutcome {
	out := PolicyOutcome{Allowed: []string{}, Restricted: []string{}, Trace: []RuleTrace{}}

	denied := map[string]bool{}
	allowedSeen := map[string]bool{}
	var allowed []string

	for _, rule := range rules {
		for _, a := range rule.Effect.Deny {
			if !denied[a] {
				denied[a] = true
				out.Restricted = append(out.Restricted, a)
			}
		}
		for _, a := range rule.Effect.Allow {
			if !allowedSeen[a] {
				allowedSeen[a] = true
				allowed = append(allowed, a)
			}
		}
		if rule.Effect.RequireApproval {
			out.RequiresApproval = true
		}
		out.Trace = append(out.Trace, RuleTrace{
			Band:             band,
			Rule:             rule.ID,
			Allow:            rule.Effect.Allow,
			Deny:             rule.Effect.Deny,
			RequiresApproval: rule.Effect.RequireApproval,
			Reason:           rule.Reason,
		})
	}

	// deny wins over allow on the same action, regardless of rule order
	for _, a := range allowed {
		if !denied[a] {
			out.Allowed = append(out.Allowed, a)
		}
	}
	return out
}

func defaultDenyOutcome(rs *Ruleset) PolicyOutcome {
	return PolicyOutcome{
		Allowed:          []string{},
		Restricted:       rs.Policy.knownActions(),
		RequiresApproval: true,
		Trace: []RuleTrace{{
			Rule:             "default-deny",
			RequiresApproval: true,
			Reason:           defaultDenyReason,
		}},
	}
}

func policyCondHolds(cond PolicyCond, score ScoreResult, matches []TechniqueMatch, facts FactSet) bool {
	if cond.MinScore != nil && score.Score < *cond.MinScore {
		return false
	}
	if cond.MaxScore != nil && score.Score > *cond.MaxScore {
		return false
	}
	if len(cond.Levels) > 0 && !containsString(cond.Levels, score.Level) {
		return false
	}
	if len(cond.TechniquesAny) > 0 {
		hit := false
		for _, m := range matches {
			if containsString(cond.TechniquesAny, m.Technique) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, typ := range cond.EntityTypes {
		count, ok := facts.Get("entity." + typ + ".count")
		if !ok || count.Kind != KindNumber || count.Num <= 0 {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
