package triage

import (
	"fmt"
	"strings"

	"github.com/linnemanlabs/warden/internal/incident"
)

// Summary is the deterministic analyst brief derived from a finished
// decision. It reads the decision and never feeds anything back into it.
type Summary struct {
	Headline string   `json:"headline"`
	Lines    []string `json:"summary"`
	NextStep string   `json:"recommended_next_step"`
}

// Summarize builds the brief for one decision.
func Summarize(inc *incident.Incident, d *Decision) *Summary {
	lines := []string{
		fmt.Sprintf("Incident %q reported with severity %s.", inc.Title, inc.Severity),
		fmt.Sprintf("Risk score assessed at %d (%s), confidence %.2f.", d.Score, d.Level, d.Confidence),
	}

	if len(d.Reasons) > 0 {
		top := make([]string, 0, 3)
		for _, r := range d.Reasons {
			top = append(top, r.Text)
			if len(top) == 3 {
				break
			}
		}
		lines = append(lines, "Primary risk drivers: "+strings.Join(top, "; "))
	}

	if len(d.Mitre) > 0 {
		lines = append(lines, fmt.Sprintf("Leading technique hypothesis: %s %s (%.2f).",
			d.Mitre[0].Technique, d.Mitre[0].Name, d.Mitre[0].Confidence))
	}

	if len(d.Policy.Restricted) > 0 {
		lines = append(lines, "Policy restrictions applied: "+strings.Join(d.Policy.Restricted, ", "))
	}
	if d.Policy.RequiresApproval {
		lines = append(lines, "Human approval required before containment actions.")
	}

	return &Summary{
		Headline: inc.Title,
		Lines:    lines,
		NextStep: nextStep(d.Policy),
	}
}

func nextStep(p PolicyOutcome) string {
	if p.RequiresApproval {
		return "Escalate to SOC lead for approval."
	}
	if len(p.Allowed) > 0 {
		return "Proceed with: " + strings.Join(p.Allowed, ", ") + "."
	}
	return "Continue monitoring."
}
