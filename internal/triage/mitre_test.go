package triage

import (
	"math"
	"testing"
)

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMatchTechniques_BaseAndBoosts(t *testing.T) {
	t.Parallel()

	rs := DefaultRuleset()
	facts := FactSet{
		"context.login_anomaly":   BoolValue(true),
		"context.mfa_enabled":     BoolValue(false),
		"context.prior_incidents": NumberValue(2),
	}

	got := matchTechniques(facts, rs, noFault(t))

	if len(got) != 2 {
		t.Fatalf("matches = %d, want 2 (T1078, T1133)", len(got))
	}

	// 0.55 base + 0.10 mfa + 0.05 prior incidents
	if got[0].Technique != "T1078" {
		t.Errorf("first technique = %q, want T1078", got[0].Technique)
	}
	if !closeTo(got[0].Confidence, 0.70) {
		t.Errorf("T1078 confidence = %v, want 0.70", got[0].Confidence)
	}
	if len(got[0].Evidence) != 3 {
		t.Errorf("T1078 evidence = %d entries, want 3", len(got[0].Evidence))
	}

	if got[1].Technique != "T1133" {
		t.Errorf("second technique = %q, want T1133", got[1].Technique)
	}
	if got[1].Confidence != 0.45 {
		t.Errorf("T1133 confidence = %v, want 0.45", got[1].Confidence)
	}
}

func TestMatchTechniques_FloorDropsWeakMatches(t *testing.T) {
	t.Parallel()

	rs := DefaultRuleset()
	rs.TechniqueFloor = 0.50

	facts := FactSet{"context.login_anomaly": BoolValue(true)}

	got := matchTechniques(facts, rs, noFault(t))

	// T1078 at 0.55 survives, T1133 at 0.45 is dropped
	if len(got) != 1 || got[0].Technique != "T1078" {
		t.Fatalf("matches = %v, want only T1078", got)
	}
}

func TestMatchTechniques_MergesDuplicateTechniqueIDs(t *testing.T) {
	t.Parallel()

	rs := DefaultRuleset()
	rs.TechniqueRules = []TechniqueRule{
		{
			ID: "rule-a", Technique: "T1078", Name: "Valid Accounts", Tactic: "Credential Access",
			When:     Predicate{All: []Cond{{Fact: "a", Op: OpExists}}},
			Base:     0.40,
			Evidence: Evidence{Text: "first signal"},
		},
		{
			ID: "rule-b", Technique: "T1078", Name: "Valid Accounts", Tactic: "Credential Access",
			When:     Predicate{All: []Cond{{Fact: "b", Op: OpExists}}},
			Base:     0.60,
			Evidence: Evidence{Text: "second signal"},
		},
	}

	facts := FactSet{"a": BoolValue(true), "b": BoolValue(true)}
	got := matchTechniques(facts, rs, noFault(t))

	if len(got) != 1 {
		t.Fatalf("matches = %d, want 1 merged entry", len(got))
	}
	if got[0].Confidence != 0.60 {
		t.Errorf("merged confidence = %v, want max 0.60", got[0].Confidence)
	}
	if len(got[0].Evidence) != 2 {
		t.Errorf("merged evidence = %v, want union of both", got[0].Evidence)
	}
}

func TestMatchTechniques_OrderingTiesBreakOnID(t *testing.T) {
	t.Parallel()

	rs := DefaultRuleset()
	rs.TechniqueRules = []TechniqueRule{
		{ID: "z", Technique: "T1566", Name: "Phishing", Tactic: "Initial Access",
			When: Predicate{}, Base: 0.50, Evidence: Evidence{Text: "e"}},
		{ID: "a", Technique: "T1071", Name: "Application Layer Protocol", Tactic: "Command and Control",
			When: Predicate{}, Base: 0.50, Evidence: Evidence{Text: "e"}},
		{ID: "m", Technique: "T1078", Name: "Valid Accounts", Tactic: "Credential Access",
			When: Predicate{}, Base: 0.90, Evidence: Evidence{Text: "e"}},
	}

	got := matchTechniques(FactSet{}, rs, noFault(t))

	want := []string{"T1078", "T1071", "T1566"}
	if len(got) != len(want) {
		t.Fatalf("matches = %d, want %d", len(got), len(want))
	}
	for i, tech := range want {
		if got[i].Technique != tech {
			t.Errorf("match[%d] = %q, want %q", i, got[i].Technique, tech)
		}
	}
}

func TestMatchTechniques_BoostFaultSkipsWholeRule(t *testing.T) {
	t.Parallel()

	rs := DefaultRuleset()
	rs.TechniqueRules = []TechniqueRule{
		{
			ID: "faulty", Technique: "T1078", Name: "Valid Accounts", Tactic: "Credential Access",
			When:     Predicate{},
			Base:     0.90,
			Evidence: Evidence{Text: "e"},
			Boosts: []Boost{{
				When: Predicate{All: []Cond{{Fact: "s", Op: OpGt, Value: 1}}},
				Add:  0.05,
			}},
		},
	}

	var faults []*EvaluationError
	got := matchTechniques(FactSet{"s": StringValue("oops")}, rs, func(ev *EvaluationError) {
		faults = append(faults, ev)
	})

	if len(got) != 0 {
		t.Errorf("matches = %v, want none (whole rule skipped)", got)
	}
	if len(faults) != 1 || faults[0].Stage != "technique" {
		t.Errorf("faults = %v, want one technique-stage fault", faults)
	}
}

func TestMatchTechniques_ConfidenceClamped(t *testing.T) {
	t.Parallel()

	rs := DefaultRuleset()
	rs.TechniqueRules = []TechniqueRule{
		{
			ID: "hot", Technique: "T1078", Name: "Valid Accounts", Tactic: "Credential Access",
			When:     Predicate{},
			Base:     0.90,
			Evidence: Evidence{Text: "e"},
			Boosts: []Boost{
				{When: Predicate{}, Add: 0.30, Evidence: Evidence{Text: "b1"}},
			},
		},
	}

	got := matchTechniques(FactSet{}, rs, noFault(t))
	if len(got) != 1 || got[0].Confidence != 1.0 {
		t.Errorf("confidence = %v, want clamped 1.0", got)
	}
}
