package incident

import (
	"encoding/json"
	"testing"
)

func TestKnownSeverity(t *testing.T) {
	t.Parallel()

	for _, s := range []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		if !KnownSeverity(s) {
			t.Errorf("KnownSeverity(%q) = false, want true", s)
		}
	}
	for _, s := range []Severity{"", "urgent", "HIGH", "Low"} {
		if KnownSeverity(s) {
			t.Errorf("KnownSeverity(%q) = true, want false", s)
		}
	}
}

func TestSignalSet_UnmarshalKeepsArbitraryGroups(t *testing.T) {
	t.Parallel()

	raw := `{
		"virustotal": {"malicious": 7, "total": 70},
		"context": {"geo": {"country": "RO"}, "login_anomaly": true},
		"custom_feed": {"score": 0.4}
	}`

	var s SignalSet
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	vt, ok := s.Context["virustotal"].(map[string]any)
	if !ok {
		t.Fatalf("virustotal group = %T, want map", s.Context["virustotal"])
	}
	if vt["malicious"] != float64(7) {
		t.Errorf("virustotal.malicious = %v, want 7", vt["malicious"])
	}
	if _, ok := s.Context["custom_feed"]; !ok {
		t.Error("unknown group custom_feed was dropped")
	}
	geo := s.Context["context"].(map[string]any)["geo"].(map[string]any)
	if geo["country"] != "RO" {
		t.Errorf("nested geo.country = %v, want RO", geo["country"])
	}
}

func TestSignalSet_MarshalEmpty(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(SignalSet{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != "{}" {
		t.Errorf("empty signal set = %s, want {}", out)
	}
}

func TestIncident_JSONFieldNames(t *testing.T) {
	t.Parallel()

	raw := `{
		"incident_id": "inc-1",
		"source": "siem",
		"title": "Suspicious login burst",
		"severity": "high",
		"timestamp": "2026-08-29T10:00:00Z",
		"entities": [{"type": "user", "value": "jdoe"}],
		"tags": ["auth"],
		"environment": "production"
	}`

	var inc Incident
	if err := json.Unmarshal([]byte(raw), &inc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if inc.IncidentID != "inc-1" || inc.Source != "siem" {
		t.Errorf("identity fields = %q/%q", inc.IncidentID, inc.Source)
	}
	if inc.Severity != SeverityHigh {
		t.Errorf("severity = %q, want high", inc.Severity)
	}
	if len(inc.Entities) != 1 || inc.Entities[0].Type != "user" {
		t.Errorf("entities = %+v", inc.Entities)
	}
	if inc.Environment != "production" {
		t.Errorf("environment = %q", inc.Environment)
	}
}
