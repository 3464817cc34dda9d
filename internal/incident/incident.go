// Package incident defines the wire types for a submitted security incident
// and its accompanying enrichment signals.
package incident

import "encoding/json"

// Severity is the analyst-reported severity of an incident.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// KnownSeverity reports whether s is one of the accepted severity values.
func KnownSeverity(s Severity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Entity is a single observable attached to an incident (a user, an IP,
// a domain, a host, ...).
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Incident is the structured record of a raw security alert submitted for
// triage. It is treated as immutable once submitted.
type Incident struct {
	IncidentID  string   `json:"incident_id"`
	Source      string   `json:"source"`
	Title       string   `json:"title"`
	Severity    Severity `json:"severity"`
	Timestamp   string   `json:"timestamp"`
	Entities    []Entity `json:"entities,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Environment string   `json:"environment,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// SignalSet carries contextual enrichment for an incident: reputation
// lookups ("virustotal", "abuseipdb"), infrastructure data ("whois", "asn"),
// and behavioral context ("context"). Groups may be nested; the normalizer
// flattens them to dotted-path fact keys. Absent keys mean "unknown",
// never false or zero. No keys are required and unknown groups are passed
// through as facts.
type SignalSet struct {
	Context map[string]any
}

// UnmarshalJSON decodes the raw signal object as-is. The whole object is the
// context map; there is no fixed schema to enforce here.
func (s *SignalSet) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &s.Context)
}

// MarshalJSON renders the signal object back out unchanged.
func (s SignalSet) MarshalJSON() ([]byte, error) {
	if s.Context == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.Context)
}
