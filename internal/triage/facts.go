package triage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/linnemanlabs/warden/internal/incident"
)

// Kind discriminates the typed values a FactSet can hold.
type Kind int

const (
	KindBool Kind = iota
	KindNumber
	KindString
	KindList
)

// Value is a single typed fact value.
type Value struct {
	Kind Kind
	Bool bool
	Num  float64
	Str  string
	List []string
}

// BoolValue wraps a boolean fact.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// NumberValue wraps a numeric fact.
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// StringValue wraps a categorical fact.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// ListValue wraps a flattened value-set fact. The list is sorted on
// construction so downstream iteration is reproducible.
func ListValue(items []string) Value {
	cp := append([]string(nil), items...)
	sort.Strings(cp)
	return Value{Kind: KindList, List: cp}
}

// String renders the value for reason and evidence text.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindList:
		return strings.Join(v.List, ",")
	default:
		return v.Str
	}
}

// FactSet is the flat, normalized key-value view of an incident plus its
// signals. All rule evaluators consume only this.
type FactSet map[string]Value

// Get looks up a fact by its dotted-path key.
func (f FactSet) Get(key string) (Value, bool) {
	v, ok := f[key]
	return v, ok
}

// Keys returns all fact keys in sorted order, so any iteration over the
// set is deterministic.
func (f FactSet) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Normalize validates the incident and flattens incident plus signals into
// a FactSet. It performs no I/O. A missing or malformed required field
// returns a *ValidationError naming the field; nothing is scored in that
// case.
func Normalize(inc *incident.Incident, sig *incident.SignalSet) (FactSet, error) {
	if inc == nil {
		return nil, &ValidationError{Field: "incident", Msg: "missing"}
	}
	if inc.IncidentID == "" {
		return nil, &ValidationError{Field: "incident_id", Msg: "required"}
	}
	if inc.Source == "" {
		return nil, &ValidationError{Field: "source", Msg: "required"}
	}
	if inc.Title == "" {
		return nil, &ValidationError{Field: "title", Msg: "required"}
	}
	if inc.Severity == "" {
		return nil, &ValidationError{Field: "severity", Msg: "required"}
	}
	if !incident.KnownSeverity(inc.Severity) {
		return nil, &ValidationError{Field: "severity", Msg: fmt.Sprintf("unknown value %q", inc.Severity)}
	}
	if inc.Timestamp == "" {
		return nil, &ValidationError{Field: "timestamp", Msg: "required"}
	}
	if _, err := time.Parse(time.RFC3339, inc.Timestamp); err != nil {
		return nil, &ValidationError{Field: "timestamp", Msg: fmt.Sprintf("not a valid RFC3339 instant: %q", inc.Timestamp)}
	}

	facts := FactSet{
		"incident.severity": StringValue(string(inc.Severity)),
		"incident.source":   StringValue(inc.Source),
	}
	if inc.Environment != "" {
		facts["incident.environment"] = StringValue(inc.Environment)
	}
	if len(inc.Tags) > 0 {
		facts["incident.tags"] = ListValue(inc.Tags)
	}

	flattenEntities(facts, inc.Entities)

	if sig != nil {
		flattenSignals(facts, "", sig.Context)
	}
	deriveFacts(facts)

	return facts, nil
}

// flattenEntities reduces the ordered entity list to counts-by-type and a
// flattened value set per type.
func flattenEntities(facts FactSet, entities []incident.Entity) {
	facts["entity.count"] = NumberValue(float64(len(entities)))

	byType := map[string][]string{}
	for _, e := range entities {
		if e.Type == "" {
			continue
		}
		byType[e.Type] = append(byType[e.Type], e.Value)
	}
	for typ, values := range byType {
		facts["entity."+typ+".count"] = NumberValue(float64(len(values)))
		facts["entity."+typ+".values"] = ListValue(values)
	}
}

// flattenSignals walks the signal map and emits dotted-path facts for every
// scalar leaf. Lists of scalars become value-set facts; anything else is
// dropped silently (it cannot be expressed as a fact and no rule could
// match it).
func flattenSignals(facts FactSet, prefix string, m map[string]any) {
	for key, raw := range m {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		switch v := raw.(type) {
		case bool:
			facts[path] = BoolValue(v)
		case float64:
			facts[path] = NumberValue(v)
		case int:
			facts[path] = NumberValue(float64(v))
		case int64:
			facts[path] = NumberValue(float64(v))
		case string:
			facts[path] = StringValue(v)
		case []any:
			items := make([]string, 0, len(v))
			for _, item := range v {
				switch iv := item.(type) {
				case string:
					items = append(items, iv)
				case bool:
					items = append(items, strconv.FormatBool(iv))
				case float64:
					items = append(items, strconv.FormatFloat(iv, 'f', -1, 64))
				}
			}
			facts[path] = ListValue(items)
		case []string:
			facts[path] = ListValue(v)
		case map[string]any:
			flattenSignals(facts, path, v)
		}
	}
}

// deriveFacts computes facts that rules expect but feeds commonly omit.
// Currently just the VirusTotal malicious ratio from raw counts.
func deriveFacts(facts FactSet) {
	if _, ok := facts["virustotal.malicious_ratio"]; ok {
		return
	}
	mal, okM := facts["virustotal.malicious"]
	total, okT := facts["virustotal.total"]
	if !okM || !okT || mal.Kind != KindNumber || total.Kind != KindNumber || total.Num <= 0 {
		return
	}
	ratio := mal.Num / total.Num
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	facts["virustotal.malicious_ratio"] = NumberValue(ratio)
}
