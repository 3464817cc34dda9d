package triage

// Rule categories for confidence diversity. A score driven by several
// categories is better corroborated than the same score from one.
const (
	CategoryIncident       = "incident"
	CategoryReputation     = "reputation"
	CategoryInfrastructure = "infrastructure"
	CategoryIdentity       = "identity"
	CategoryHistory        = "history"
)

// DefaultRuleset returns the built-in configuration snapshot used when no
// rules file is configured. Weights and thresholds here are starting points
// tuned against SOC feedback; deployments override them via the rules file.
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		Version:        "builtin-v1",
		Thresholds:     Thresholds{LowMax: 24, MediumMax: 49, HighMax: 79},
		Confidence:     ConfidenceModel{CategoryWeight: 0.30, CorroborationWeight: 0.05},
		TechniqueFloor: 0.35,
		ScoreRules:     defaultScoreRules(),
		TechniqueRules: defaultTechniqueRules(),
		Policy:         DefaultPolicy(),
	}
}

func defaultScoreRules() []ScoreRule {
	return []ScoreRule{
		{
			ID:       "severity-critical",
			Category: CategoryIncident,
			When:     Predicate{All: []Cond{{Fact: "incident.severity", Op: OpEq, Value: "critical"}}},
			Weight:   25,
			Reason:   "Incident reported with critical severity",
		},
		{
			ID:       "severity-high",
			Category: CategoryIncident,
			When:     Predicate{All: []Cond{{Fact: "incident.severity", Op: OpEq, Value: "high"}}},
			Weight:   15,
			Reason:   "Incident reported with high severity",
		},
		{
			ID:       "vt-ratio-high",
			Category: CategoryReputation,
			When:     Predicate{All: []Cond{{Fact: "virustotal.malicious_ratio", Op: OpGte, Value: 0.10}}},
			Weight:   30,
			Reason:   "VirusTotal malicious ratio high",
			Fact:     "virustotal.malicious_ratio",
		},
		{
			ID:       "vt-ratio-moderate",
			Category: CategoryReputation,
			When: Predicate{All: []Cond{
				{Fact: "virustotal.malicious_ratio", Op: OpGte, Value: 0.03},
				{Fact: "virustotal.malicious_ratio", Op: OpLt, Value: 0.10},
			}},
			Weight: 15,
			Reason: "VirusTotal malicious ratio moderate",
			Fact:   "virustotal.malicious_ratio",
		},
		{
			ID:       "abuse-confidence-high",
			Category: CategoryReputation,
			When:     Predicate{All: []Cond{{Fact: "abuseipdb.confidence", Op: OpGte, Value: 80}}},
			Weight:   25,
			Reason:   "AbuseIPDB confidence high",
			Fact:     "abuseipdb.confidence",
		},
		{
			ID:       "abuse-confidence-moderate",
			Category: CategoryReputation,
			When: Predicate{All: []Cond{
				{Fact: "abuseipdb.confidence", Op: OpGte, Value: 50},
				{Fact: "abuseipdb.confidence", Op: OpLt, Value: 80},
			}},
			Weight: 12,
			Reason: "AbuseIPDB confidence moderate",
			Fact:   "abuseipdb.confidence",
		},
		{
			ID:       "domain-very-new",
			Category: CategoryInfrastructure,
			When:     Predicate{All: []Cond{{Fact: "whois.domain_age_days", Op: OpLte, Value: 7}}},
			Weight:   15,
			Reason:   "Domain very newly registered",
			Fact:     "whois.domain_age_days",
		},
		{
			ID:       "domain-new",
			Category: CategoryInfrastructure,
			When: Predicate{All: []Cond{
				{Fact: "whois.domain_age_days", Op: OpGt, Value: 7},
				{Fact: "whois.domain_age_days", Op: OpLte, Value: 30},
			}},
			Weight: 8,
			Reason: "Domain newly registered",
			Fact:   "whois.domain_age_days",
		},
		{
			ID:       "asn-hosting",
			Category: CategoryInfrastructure,
			When:     Predicate{All: []Cond{{Fact: "asn.type", Op: OpEq, Value: "hosting"}}},
			Weight:   10,
			Reason:   "Source ASN is a hosting provider",
		},
		{
			ID:       "asn-bulletproof",
			Category: CategoryInfrastructure,
			When:     Predicate{All: []Cond{{Fact: "asn.is_bulletproof", Op: OpEq, Value: true}}},
			Weight:   15,
			Reason:   "Source ASN flagged as bulletproof hosting",
		},
		{
			ID:       "login-anomaly",
			Category: CategoryIdentity,
			When:     Predicate{All: []Cond{{Fact: "context.login_anomaly", Op: OpEq, Value: true}}},
			Weight:   20,
			Reason:   "Login anomaly detected",
		},
		{
			ID:       "impossible-travel",
			Category: CategoryIdentity,
			When:     Predicate{All: []Cond{{Fact: "context.impossible_travel", Op: OpEq, Value: true}}},
			Weight:   15,
			Reason:   "Impossible travel between sign-in locations",
		},
		{
			ID:       "mfa-disabled",
			Category: CategoryIdentity,
			When:     Predicate{All: []Cond{{Fact: "context.mfa_enabled", Op: OpEq, Value: false}}},
			Weight:   10,
			Reason:   "MFA not enabled for account",
		},
		{
			ID:       "prior-incidents",
			Category: CategoryHistory,
			When:     Predicate{All: []Cond{{Fact: "context.prior_incidents", Op: OpGte, Value: 2}}},
			Weight:   8,
			Reason:   "Entity linked to prior incidents",
			Fact:     "context.prior_incidents",
		},
	}
}

func defaultTechniqueRules() []TechniqueRule {
	return []TechniqueRule{
		{
			ID:        "valid-accounts",
			Technique: "T1078",
			Name:      "Valid Accounts",
			Tactic:    "Credential Access",
			When:      Predicate{All: []Cond{{Fact: "context.login_anomaly", Op: OpEq, Value: true}}},
			Base:      0.55,
			Evidence:  Evidence{Text: "Login anomaly detected", Fact: "context.login_anomaly"},
			Boosts: []Boost{
				{
					When:     Predicate{All: []Cond{{Fact: "context.impossible_travel", Op: OpEq, Value: true}}},
					Add:      0.10,
					Evidence: Evidence{Text: "Impossible travel signal present", Fact: "context.impossible_travel"},
				},
				{
					When:     Predicate{All: []Cond{{Fact: "context.mfa_enabled", Op: OpEq, Value: false}}},
					Add:      0.10,
					Evidence: Evidence{Text: "MFA not enabled", Fact: "context.mfa_enabled"},
				},
				{
					When:     Predicate{All: []Cond{{Fact: "asn.type", Op: OpEq, Value: "hosting"}}},
					Add:      0.05,
					Evidence: Evidence{Text: "Source IP appears to be from a hosting ASN", Fact: "asn.type"},
				},
				{
					When:     Predicate{All: []Cond{{Fact: "context.prior_incidents", Op: OpGte, Value: 2}}},
					Add:      0.05,
					Evidence: Evidence{Text: "Entity linked to prior incidents", Fact: "context.prior_incidents"},
				},
			},
		},
		{
			ID:        "external-remote-services",
			Technique: "T1133",
			Name:      "External Remote Services",
			Tactic:    "Initial Access",
			When:      Predicate{All: []Cond{{Fact: "context.login_anomaly", Op: OpEq, Value: true}}},
			Base:      0.45,
			Evidence:  Evidence{Text: "Anomalous authentication pattern suggests an external access path"},
			Boosts: []Boost{
				{
					When:     Predicate{All: []Cond{{Fact: "asn.type", Op: OpEq, Value: "hosting"}}},
					Add:      0.10,
					Evidence: Evidence{Text: "Login source is a hosting provider ASN", Fact: "asn.type"},
				},
				{
					When:     Predicate{All: []Cond{{Fact: "context.impossible_travel", Op: OpEq, Value: true}}},
					Add:      0.05,
					Evidence: Evidence{Text: "Impossible travel increases likelihood of remote access misuse"},
				},
			},
		},
		{
			ID:        "c2-application-layer",
			Technique: "T1071",
			Name:      "Application Layer Protocol",
			Tactic:    "Command and Control",
			When: Predicate{Any: []Cond{
				{Fact: "abuseipdb.confidence", Op: OpGte, Value: 80},
				{Fact: "virustotal.malicious_ratio", Op: OpGte, Value: 0.10},
			}},
			Base:     0.50,
			Evidence: Evidence{Text: "Strong IP/domain reputation indicators", Fact: "abuseipdb.confidence"},
			Boosts: []Boost{
				{
					When:     Predicate{All: []Cond{{Fact: "asn.type", Op: OpEq, Value: "hosting"}}},
					Add:      0.05,
					Evidence: Evidence{Text: "Infrastructure characteristic: hosting ASN"},
				},
				{
					When:     Predicate{All: []Cond{{Fact: "asn.is_bulletproof", Op: OpEq, Value: true}}},
					Add:      0.10,
					Evidence: Evidence{Text: "Infrastructure characteristic: bulletproof hosting", Fact: "asn.is_bulletproof"},
				},
			},
		},
		{
			ID:        "phishing-new-domain",
			Technique: "T1566",
			Name:      "Phishing",
			Tactic:    "Initial Access",
			When:      Predicate{All: []Cond{{Fact: "whois.domain_age_days", Op: OpLte, Value: 30}}},
			Base:      0.40,
			Evidence:  Evidence{Text: "Domain is newly registered", Fact: "whois.domain_age_days"},
			Boosts: []Boost{
				{
					When:     Predicate{All: []Cond{{Fact: "virustotal.malicious_ratio", Op: OpGte, Value: 0.03}}},
					Add:      0.10,
					Evidence: Evidence{Text: "VirusTotal indicates suspicious or malicious verdicts", Fact: "virustotal.malicious_ratio"},
				},
			},
		},
	}
}

// DefaultPolicy returns the built-in policy bands: containment actions are
// gated behind approval for high and critical decisions, medium decisions
// get notification actions, and everything else keeps the baseline
// monitor/investigate posture. A decision no band matches falls through to
// default deny.
func DefaultPolicy() PolicySet {
	return PolicySet{
		Actions: []string{"monitor", "investigate", "notify_user", "contain", "reset_credentials"},
		Bands: []PolicyBand{
			{
				Name:     "containment",
				Priority: 100,
				Rules: []PolicyRule{
					{
						ID:     "high-risk-containment",
						When:   PolicyCond{Levels: []string{"high", "critical"}},
						Effect: PolicyEffect{Allow: []string{"monitor", "investigate", "contain", "reset_credentials"}, RequireApproval: true},
						Reason: "High-risk decision allows containment pending approval",
					},
					{
						ID:     "account-compromise-gate",
						When:   PolicyCond{Levels: []string{"high", "critical"}, TechniquesAny: []string{"T1078"}, EntityTypes: []string{"user"}},
						Effect: PolicyEffect{Deny: []string{"reset_credentials"}, RequireApproval: true},
						Reason: "Account-compromise hypothesis on a user entity requires manual credential handling",
					},
				},
			},
			{
				Name:     "elevated",
				Priority: 50,
				Rules: []PolicyRule{
					{
						ID:     "medium-risk-notify",
						When:   PolicyCond{Levels: []string{"medium"}},
						Effect: PolicyEffect{Allow: []string{"monitor", "investigate", "notify_user"}},
						Reason: "Medium-risk decision allows user notification",
					},
				},
			},
			{
				Name:     "baseline",
				Priority: 10,
				Rules: []PolicyRule{
					{
						ID:     "baseline-visibility",
						When:   PolicyCond{},
						Effect: PolicyEffect{Allow: []string{"monitor", "investigate"}},
						Reason: "Baseline visibility actions are always permitted",
					},
				},
			},
		},
	}
}
