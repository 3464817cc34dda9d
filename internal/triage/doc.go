// Package triage implements the deterministic incident triage pipeline:
// signal normalization, weighted risk scoring, adversary technique
// inference and policy gating, assembled into one immutable decision.
package triage
