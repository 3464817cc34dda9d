package triage

import (
	"errors"
	"sort"
	"testing"

	"github.com/linnemanlabs/warden/internal/incident"
)

func validIncident() *incident.Incident {
	return &incident.Incident{
		IncidentID: "inc-100",
		Source:     "siem",
		Title:      "Suspicious login burst",
		Severity:   incident.SeverityHigh,
		Timestamp:  "2026-08-29T10:00:00Z",
		Entities: []incident.Entity{
			{Type: "user", Value: "jdoe"},
			{Type: "ip", Value: "203.0.113.7"},
			{Type: "ip", Value: "203.0.113.8"},
		},
		Tags:        []string{"auth", "cloud"},
		Environment: "production",
	}
}

func TestNormalize_RequiredFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*incident.Incident)
		field  string
	}{
		{"missing id", func(i *incident.Incident) { i.IncidentID = "" }, "incident_id"},
		{"missing source", func(i *incident.Incident) { i.Source = "" }, "source"},
		{"missing title", func(i *incident.Incident) { i.Title = "" }, "title"},
		{"missing severity", func(i *incident.Incident) { i.Severity = "" }, "severity"},
		{"unknown severity", func(i *incident.Incident) { i.Severity = "urgent" }, "severity"},
		{"missing timestamp", func(i *incident.Incident) { i.Timestamp = "" }, "timestamp"},
		{"bad timestamp", func(i *incident.Incident) { i.Timestamp = "yesterday" }, "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			inc := validIncident()
			tt.mutate(inc)

			_, err := Normalize(inc, nil)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestNormalize_NilIncident(t *testing.T) {
	t.Parallel()

	_, err := Normalize(nil, nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
}

func TestNormalize_IncidentFacts(t *testing.T) {
	t.Parallel()

	facts, err := Normalize(validIncident(), nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if v, _ := facts.Get("incident.severity"); v.Str != "high" {
		t.Errorf("incident.severity = %q, want %q", v.Str, "high")
	}
	if v, _ := facts.Get("incident.source"); v.Str != "siem" {
		t.Errorf("incident.source = %q, want %q", v.Str, "siem")
	}
	if v, _ := facts.Get("incident.environment"); v.Str != "production" {
		t.Errorf("incident.environment = %q, want %q", v.Str, "production")
	}
	if v, _ := facts.Get("entity.count"); v.Num != 3 {
		t.Errorf("entity.count = %v, want 3", v.Num)
	}
	if v, _ := facts.Get("entity.user.count"); v.Num != 1 {
		t.Errorf("entity.user.count = %v, want 1", v.Num)
	}
	if v, _ := facts.Get("entity.ip.count"); v.Num != 2 {
		t.Errorf("entity.ip.count = %v, want 2", v.Num)
	}

	v, ok := facts.Get("entity.ip.values")
	if !ok || v.Kind != KindList {
		t.Fatalf("entity.ip.values missing or wrong kind")
	}
	if !sort.StringsAreSorted(v.List) {
		t.Errorf("entity.ip.values not sorted: %v", v.List)
	}
}

func TestNormalize_FlattensNestedSignals(t *testing.T) {
	t.Parallel()

	sig := &incident.SignalSet{Context: map[string]any{
		"virustotal": map[string]any{
			"malicious": float64(8),
			"total":     float64(70),
		},
		"context": map[string]any{
			"login_anomaly": true,
			"geo": map[string]any{
				"country": "NL",
			},
		},
		"notes": []any{"a", "b"},
	}}

	facts, err := Normalize(validIncident(), sig)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if v, ok := facts.Get("context.login_anomaly"); !ok || !v.Bool {
		t.Error("context.login_anomaly missing or false")
	}
	if v, ok := facts.Get("context.geo.country"); !ok || v.Str != "NL" {
		t.Error("context.geo.country missing or wrong")
	}
	if v, ok := facts.Get("notes"); !ok || v.Kind != KindList || len(v.List) != 2 {
		t.Error("list signal not flattened to value set")
	}
}

func TestNormalize_DerivesVTRatio(t *testing.T) {
	t.Parallel()

	sig := &incident.SignalSet{Context: map[string]any{
		"virustotal": map[string]any{
			"malicious": float64(7),
			"total":     float64(70),
		},
	}}

	facts, err := Normalize(validIncident(), sig)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	v, ok := facts.Get("virustotal.malicious_ratio")
	if !ok {
		t.Fatal("virustotal.malicious_ratio not derived")
	}
	if v.Num != 0.1 {
		t.Errorf("ratio = %v, want 0.1", v.Num)
	}
}

func TestNormalize_ExplicitRatioWins(t *testing.T) {
	t.Parallel()

	sig := &incident.SignalSet{Context: map[string]any{
		"virustotal": map[string]any{
			"malicious":       float64(7),
			"total":           float64(70),
			"malicious_ratio": float64(0.5),
		},
	}}

	facts, err := Normalize(validIncident(), sig)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if v, _ := facts.Get("virustotal.malicious_ratio"); v.Num != 0.5 {
		t.Errorf("ratio = %v, want explicit 0.5", v.Num)
	}
}

func TestFactSet_KeysSorted(t *testing.T) {
	t.Parallel()

	facts := FactSet{
		"zeta":  StringValue("z"),
		"alpha": StringValue("a"),
		"mid":   StringValue("m"),
	}
	keys := facts.Keys()
	if !sort.StringsAreSorted(keys) {
		t.Errorf("Keys() = %v, want sorted", keys)
	}
	if len(keys) != 3 {
		t.Errorf("len = %d, want 3", len(keys))
	}
}

func TestValue_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		v    Value
		want string
	}{
		{BoolValue(true), "true"},
		{NumberValue(0.1), "0.1"},
		{NumberValue(42), "42"},
		{StringValue("hosting"), "hosting"},
		{ListValue([]string{"b", "a"}), "a,b"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
