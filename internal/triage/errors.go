package triage

import "fmt"

// ValidationError reports a malformed or missing required incident field.
// The pipeline surfaces it before any scoring happens.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid incident: field %q: %s", e.Field, e.Msg)
}

// ConfigurationError reports a malformed ruleset at load or validation time.
// It is fatal at startup and on reload the previous snapshot stays active.
type ConfigurationError struct {
	Detail string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ruleset configuration: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("ruleset configuration: %s", e.Detail)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// EvaluationError reports a rule predicate that faulted during evaluation,
// typically a type mismatch between an operator and a fact value. The
// offending rule is skipped and evaluation continues; the fault never
// changes score or policy semantics.
type EvaluationError struct {
	RuleID string
	Stage  string // "scoring", "technique" or "policy"
	Err    error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s rule %q: %v", e.Stage, e.RuleID, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }
