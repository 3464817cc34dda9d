package triage

import "testing"

func intp(n int) *int { return &n }

func TestEvaluatePolicy_HighestMatchingBandWins(t *testing.T) {
	t.Parallel()

	rs := DefaultRuleset()
	rs.Policy = PolicySet{
		Actions: []string{"monitor", "contain"},
		Bands: []PolicyBand{
			// declared out of priority order on purpose
			{Name: "baseline", Priority: 10, Rules: []PolicyRule{
				{ID: "base", When: PolicyCond{}, Effect: PolicyEffect{Allow: []string{"monitor"}}},
			}},
			{Name: "containment", Priority: 100, Rules: []PolicyRule{
				{ID: "contain-high", When: PolicyCond{MinScore: intp(50)}, Effect: PolicyEffect{Allow: []string{"contain"}}},
			}},
		},
	}

	out := evaluatePolicy(ScoreResult{Score: 60, Level: "high"}, nil, FactSet{}, rs)

	if len(out.Trace) != 1 || out.Trace[0].Band != "containment" {
		t.Fatalf("trace = %+v, want single containment-band entry", out.Trace)
	}
	if len(out.Allowed) != 1 || out.Allowed[0] != "contain" {
		t.Errorf("allowed = %v, want [contain] (lower band never consulted)", out.Allowed)
	}
}

func TestEvaluatePolicy_AllMatchingRulesInBandMerge(t *testing.T) {
	t.Parallel()

	rs := DefaultRuleset()
	facts := FactSet{"entity.user.count": NumberValue(1)}
	matches := []TechniqueMatch{{Technique: "T1078", Confidence: 0.7}}

	out := evaluatePolicy(ScoreResult{Score: 53, Level: "high"}, matches, facts, rs)

	// both containment-band rules contribute: allow set minus the denied action
	if len(out.Trace) != 2 {
		t.Fatalf("trace = %+v, want both containment rules", out.Trace)
	}
	wantAllowed := []string{"monitor", "investigate", "contain"}
	if len(out.Allowed) != len(wantAllowed) {
		t.Fatalf("allowed = %v, want %v", out.Allowed, wantAllowed)
	}
	for i, a := range wantAllowed {
		if out.Allowed[i] != a {
			t.Errorf("allowed[%d] = %q, want %q", i, out.Allowed[i], a)
		}
	}
	if len(out.Restricted) != 1 || out.Restricted[0] != "reset_credentials" {
		t.Errorf("restricted = %v, want [reset_credentials]", out.Restricted)
	}
	if !out.RequiresApproval {
		t.Error("requires_approval = false, want true")
	}
}

func TestEvaluatePolicy_DenyDominatesRegardlessOfOrder(t *testing.T) {
	t.Parallel()

	build := func(first, second PolicyRule) *Ruleset {
		rs := DefaultRuleset()
		rs.Policy = PolicySet{
			Actions: []string{"contain"},
			Bands: []PolicyBand{
				{Name: "only", Priority: 1, Rules: []PolicyRule{first, second}},
			},
		}
		return rs
	}

	allow := PolicyRule{ID: "allow", When: PolicyCond{}, Effect: PolicyEffect{Allow: []string{"contain"}}}
	deny := PolicyRule{ID: "deny", When: PolicyCond{}, Effect: PolicyEffect{Deny: []string{"contain"}}}

	for _, rs := range []*Ruleset{build(allow, deny), build(deny, allow)} {
		out := evaluatePolicy(ScoreResult{Score: 10, Level: "low"}, nil, FactSet{}, rs)
		if len(out.Allowed) != 0 {
			t.Errorf("allowed = %v, want empty (deny dominates)", out.Allowed)
		}
		if len(out.Restricted) != 1 || out.Restricted[0] != "contain" {
			t.Errorf("restricted = %v, want [contain]", out.Restricted)
		}
	}
}

func TestEvaluatePolicy_ApprovalIsSticky(t *testing.T) {
	t.Parallel()

	rs := DefaultRuleset()
	rs.Policy = PolicySet{
		Actions: []string{"monitor"},
		Bands: []PolicyBand{
			{Name: "only", Priority: 1, Rules: []PolicyRule{
				{ID: "wants-approval", When: PolicyCond{}, Effect: PolicyEffect{RequireApproval: true}},
				{ID: "does-not", When: PolicyCond{}, Effect: PolicyEffect{Allow: []string{"monitor"}}},
			}},
		},
	}

	out := evaluatePolicy(ScoreResult{}, nil, FactSet{}, rs)
	if !out.RequiresApproval {
		t.Error("requires_approval = false, want true once any rule demands it")
	}
}

func TestEvaluatePolicy_DefaultDeny(t *testing.T) {
	t.Parallel()

	rs := DefaultRuleset()
	rs.Policy = PolicySet{
		Actions: []string{"monitor", "contain"},
		Bands: []PolicyBand{
			{Name: "narrow", Priority: 1, Rules: []PolicyRule{
				{ID: "only-critical", When: PolicyCond{Levels: []string{"critical"}},
					Effect: PolicyEffect{Allow: []string{"contain"}, Deny: []string{"notify_user"}}},
			}},
		},
	}

	out := evaluatePolicy(ScoreResult{Score: 10, Level: "low"}, nil, FactSet{}, rs)

	if len(out.Allowed) != 0 {
		t.Errorf("allowed = %v, want empty", out.Allowed)
	}
	// restricted covers the whole vocabulary including actions only named in effects
	want := []string{"contain", "monitor", "notify_user"}
	if len(out.Restricted) != len(want) {
		t.Fatalf("restricted = %v, want %v", out.Restricted, want)
	}
	for i, a := range want {
		if out.Restricted[i] != a {
			t.Errorf("restricted[%d] = %q, want %q", i, out.Restricted[i], a)
		}
	}
	if !out.RequiresApproval {
		t.Error("requires_approval = false, want true")
	}
	if len(out.Trace) != 1 || out.Trace[0].Rule != "default-deny" {
		t.Fatalf("trace = %+v, want synthetic default-deny entry", out.Trace)
	}
	if out.Trace[0].Reason != defaultDenyReason {
		t.Errorf("reason = %q, want %q", out.Trace[0].Reason, defaultDenyReason)
	}
}

func TestPolicyCondHolds(t *testing.T) {
	t.Parallel()

	facts := FactSet{"entity.user.count": NumberValue(1)}
	matches := []TechniqueMatch{{Technique: "T1078"}}
	sr := ScoreResult{Score: 53, Level: "high"}

	tests := []struct {
		name string
		cond PolicyCond
		want bool
	}{
		{"empty matches all", PolicyCond{}, true},
		{"min score ok", PolicyCond{MinScore: intp(50)}, true},
		{"min score too high", PolicyCond{MinScore: intp(60)}, false},
		{"max score ok", PolicyCond{MaxScore: intp(60)}, true},
		{"max score exceeded", PolicyCond{MaxScore: intp(50)}, false},
		{"level hit", PolicyCond{Levels: []string{"high", "critical"}}, true},
		{"level miss", PolicyCond{Levels: []string{"low"}}, false},
		{"technique hit", PolicyCond{TechniquesAny: []string{"T1078", "T1566"}}, true},
		{"technique miss", PolicyCond{TechniquesAny: []string{"T1566"}}, false},
		{"entity type hit", PolicyCond{EntityTypes: []string{"user"}}, true},
		{"entity type miss", PolicyCond{EntityTypes: []string{"host"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := policyCondHolds(tt.cond, sr, matches, facts); got != tt.want {
				t.Errorf("policyCondHolds = %v, want %v", got, tt.want)
			}
		})
	}
}
