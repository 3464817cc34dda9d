package triage

import "fmt"

// Op is a comparison operator in the rule predicate language. Predicates are
// data, not code: a rule can only combine these operators over fact paths
// and literals, which keeps evaluation bounded and testable in isolation.
type Op string

const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpExists   Op = "exists"
	OpAbsent   Op = "absent"
	OpIn       Op = "in"       // fact string is one of the literal list
	OpContains Op = "contains" // fact list contains the literal string
)

// KnownOp reports whether op is part of the predicate language.
func KnownOp(op Op) bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpExists, OpAbsent, OpIn, OpContains:
		return true
	}
	return false
}

// Cond is a single (fact path, operator, literal) condition.
type Cond struct {
	Fact  string   `yaml:"fact" json:"fact"`
	Op    Op       `yaml:"op" json:"op"`
	Value any      `yaml:"value,omitempty" json:"value,omitempty"`
	OneOf []string `yaml:"one_of,omitempty" json:"one_of,omitempty"` // literal list for OpIn
}

// Predicate combines conditions. All conditions in All must hold and, when
// Any is non-empty, at least one of those must hold. An empty predicate
// matches every fact set.
type Predicate struct {
	All []Cond `yaml:"all,omitempty" json:"all,omitempty"`
	Any []Cond `yaml:"any,omitempty" json:"any,omitempty"`
}

// Eval evaluates the predicate against a fact set. A fact that is absent is
// "unknown": every condition except OpAbsent evaluates false against it,
// without error. A type mismatch between operator and fact value is an
// evaluation fault, returned so the caller can skip and report the rule.
func (p Predicate) Eval(facts FactSet) (bool, error) {
	for _, c := range p.All {
		ok, err := c.eval(facts)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	if len(p.Any) == 0 {
		return true, nil
	}
	for _, c := range p.Any {
		ok, err := c.eval(facts)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// validate checks every condition uses a known operator and carries the
// literal shape that operator needs.
func (p Predicate) validate() error {
	for _, c := range append(append([]Cond{}, p.All...), p.Any...) {
		if c.Fact == "" {
			return fmt.Errorf("condition with empty fact path")
		}
		if !KnownOp(c.Op) {
			return fmt.Errorf("condition on %q: unknown operator %q", c.Fact, c.Op)
		}
		switch c.Op {
		case OpExists, OpAbsent:
			// no literal
		case OpIn:
			if len(c.OneOf) == 0 {
				return fmt.Errorf("condition on %q: op in requires one_of", c.Fact)
			}
		default:
			if c.Value == nil {
				return fmt.Errorf("condition on %q: op %s requires value", c.Fact, c.Op)
			}
		}
	}
	return nil
}

func (c Cond) eval(facts FactSet) (bool, error) {
	v, ok := facts.Get(c.Fact)

	switch c.Op {
	case OpExists:
		return ok, nil
	case OpAbsent:
		return !ok, nil
	}
	if !ok {
		// unknown fact: no comparison fires, and it is not an error
		return false, nil
	}

	switch c.Op {
	case OpEq, OpNe:
		eq, err := c.equals(v)
		if err != nil {
			return false, err
		}
		if c.Op == OpNe {
			return !eq, nil
		}
		return eq, nil
	case OpGt, OpGte, OpLt, OpLte:
		if v.Kind != KindNumber {
			return false, fmt.Errorf("op %s on non-numeric fact %s", c.Op, c.Fact)
		}
		lit, err := numberLiteral(c.Value)
		if err != nil {
			return false, fmt.Errorf("op %s on %s: %w", c.Op, c.Fact, err)
		}
		switch c.Op {
		case OpGt:
			return v.Num > lit, nil
		case OpGte:
			return v.Num >= lit, nil
		case OpLt:
			return v.Num < lit, nil
		default:
			return v.Num <= lit, nil
		}
	case OpIn:
		if v.Kind != KindString {
			return false, fmt.Errorf("op in on non-string fact %s", c.Fact)
		}
		for _, item := range c.OneOf {
			if v.Str == item {
				return true, nil
			}
		}
		return false, nil
	case OpContains:
		if v.Kind != KindList {
			return false, fmt.Errorf("op contains on non-list fact %s", c.Fact)
		}
		lit, ok := c.Value.(string)
		if !ok {
			return false, fmt.Errorf("op contains on %s: literal must be a string", c.Fact)
		}
		for _, item := range v.List {
			if item == lit {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("unknown operator %q", c.Op)
}

func (c Cond) equals(v Value) (bool, error) {
	switch v.Kind {
	case KindBool:
		lit, ok := c.Value.(bool)
		if !ok {
			return false, fmt.Errorf("eq on boolean fact %s: literal must be a bool", c.Fact)
		}
		return v.Bool == lit, nil
	case KindNumber:
		lit, err := numberLiteral(c.Value)
		if err != nil {
			return false, fmt.Errorf("eq on numeric fact %s: %w", c.Fact, err)
		}
		return v.Num == lit, nil
	case KindString:
		lit, ok := c.Value.(string)
		if !ok {
			return false, fmt.Errorf("eq on string fact %s: literal must be a string", c.Fact)
		}
		return v.Str == lit, nil
	default:
		return false, fmt.Errorf("eq on list fact %s is not supported, use contains", c.Fact)
	}
}

func numberLiteral(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("literal %v (%T) is not numeric", v, v)
}
