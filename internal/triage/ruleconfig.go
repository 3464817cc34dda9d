package triage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the declarative rules file. Every section is optional;
// an omitted section keeps the built-in default, so a deployment can ship
// only a policy section and inherit the stock scoring and technique rules.
// YAML is the canonical format, and since JSON is a YAML subset a .json
// policy file loads the same way.
type fileConfig struct {
	Version        string           `yaml:"version"`
	Thresholds     *Thresholds      `yaml:"thresholds"`
	Confidence     *ConfidenceModel `yaml:"confidence"`
	TechniqueFloor *float64         `yaml:"technique_floor"`
	Scoring        []ScoreRule      `yaml:"scoring"`
	Techniques     []TechniqueRule  `yaml:"techniques"`
	Policy         *PolicySet       `yaml:"policy"`
}

// LoadRulesFile reads and validates a ruleset snapshot from path, layered
// over the built-in defaults. Any problem is a *ConfigurationError: a
// malformed rules file is fatal at startup and must never be silently
// ignored.
func LoadRulesFile(path string) (*Ruleset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Detail: fmt.Sprintf("read rules file %s", path), Err: err}
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, &ConfigurationError{Detail: fmt.Sprintf("parse rules file %s", path), Err: err}
	}

	rs := DefaultRuleset()
	if fc.Version != "" {
		rs.Version = fc.Version
	} else {
		rs.Version = fmt.Sprintf("file:%s", path)
	}
	if fc.Thresholds != nil {
		rs.Thresholds = *fc.Thresholds
	}
	if fc.Confidence != nil {
		rs.Confidence = *fc.Confidence
	}
	if fc.TechniqueFloor != nil {
		rs.TechniqueFloor = *fc.TechniqueFloor
	}
	if fc.Scoring != nil {
		rs.ScoreRules = fc.Scoring
	}
	if fc.Techniques != nil {
		rs.TechniqueRules = fc.Techniques
	}
	if fc.Policy != nil {
		rs.Policy = *fc.Policy
	}

	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

// LoadRuleset resolves the startup snapshot: the rules file when one is
// configured, the built-in defaults otherwise. A missing configuration
// source is not an error; a configured path that fails to load is.
func LoadRuleset(path string) (*Ruleset, error) {
	if path == "" {
		rs := DefaultRuleset()
		if err := rs.Validate(); err != nil {
			return nil, err
		}
		return rs, nil
	}
	return LoadRulesFile(path)
}
