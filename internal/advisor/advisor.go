// Package advisor produces AI advisory commentary for finished triage
// decisions. The advisory output never changes a decision: score, level
// and policy outcome are fixed before the advisor runs, and any failure
// here degrades to a deterministic offline brief instead of an error.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/warden/internal/triage"
)

// Provider is a single-shot completion backend.
type Provider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

const (
	defaultMaxCallsPerMinute = 10
	defaultMaxPromptBytes    = 12000
	maxCompletionBytes       = 64 * 1024
)

const systemPrompt = "You are a careful SOC analyst. Follow the schema exactly."

// Options tune the advisory cost and safety controls.
type Options struct {
	// Offline forces the deterministic fallback, no network calls.
	Offline bool

	// MaxCallsPerMinute caps provider calls per process. 0 uses the default.
	MaxCallsPerMinute int

	// MaxPromptBytes caps prompt size before a call is attempted. 0 uses the default.
	MaxPromptBytes int
}

// Advisor implements triage.Advisor over a completion provider.
type Advisor struct {
	provider  Provider
	limiter   *rate.Limiter
	offline   bool
	maxPrompt int
	logger    log.Logger
}

// New creates an advisor. provider may be nil, which forces offline mode.
func New(provider Provider, opts Options, logger log.Logger) *Advisor {
	if logger == nil {
		logger = log.Nop()
	}
	perMin := opts.MaxCallsPerMinute
	if perMin <= 0 {
		perMin = defaultMaxCallsPerMinute
	}
	maxPrompt := opts.MaxPromptBytes
	if maxPrompt <= 0 {
		maxPrompt = defaultMaxPromptBytes
	}
	return &Advisor{
		provider:  provider,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
		offline:   opts.Offline || provider == nil,
		maxPrompt: maxPrompt,
		logger:    logger,
	}
}

// Advise produces advice for one decision. The live path can fail in many
// ways (rate limit, oversized prompt, provider error, malformed output);
// every failure falls back to the offline brief so callers always get a
// usable attachment.
func (a *Advisor) Advise(ctx context.Context, d *triage.Decision) (*triage.Advice, error) {
	if a.offline {
		return offlineFallback(d, "live advisory disabled"), nil
	}

	prompt, err := buildPrompt(d, a.maxPrompt)
	if err != nil {
		a.logger.Warn(ctx, "advisory prompt rejected, using offline fallback", "error", err)
		return offlineFallback(d, err.Error()), nil
	}

	if !a.limiter.Allow() {
		a.logger.Warn(ctx, "advisory rate limit exceeded, using offline fallback",
			"incident_id", d.IncidentID)
		return offlineFallback(d, "advisory rate limit exceeded"), nil
	}

	raw, err := a.provider.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		a.logger.Error(ctx, err, "advisory call failed, using offline fallback",
			"incident_id", d.IncidentID, "model", a.provider.Model())
		return offlineFallback(d, "provider call failed"), nil
	}

	advice, err := parseAdvice(raw)
	if err != nil {
		a.logger.Error(ctx, err, "advisory output rejected, using offline fallback",
			"incident_id", d.IncidentID, "model", a.provider.Model())
		return offlineFallback(d, "provider output failed validation"), nil
	}

	advice.Model = a.provider.Model()
	return advice, nil
}

// buildPrompt renders the deterministic context and the strict output
// contract the model must follow.
func buildPrompt(d *triage.Decision, maxBytes int) (string, error) {
	contextJSON, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal decision: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a SOC triage assistant. Produce an ADVISORY triage response.\n")
	b.WriteString("Rules:\n")
	b.WriteString("1) Output MUST be valid JSON only. No markdown. No extra keys.\n")
	b.WriteString("2) Do not claim actions were executed.\n")
	b.WriteString("3) If evidence is missing, state assumptions and missing_data.\n")
	b.WriteString("4) Keep recommendations actionable and safe.\n")
	b.WriteString("5) Confidence is 0-100 (integer).\n\n")
	b.WriteString("Return JSON matching this exact shape:\n")
	b.WriteString(`{
  "observations": ["..."],
  "assessment": "...",
  "mitre_mapping": [{"tactic":"...","technique_id":"Txxxx","name":"...","confidence":0.0,"evidence":["..."]}],
  "recommendations": [{"type":"query|verification|containment|monitoring","description":"..."}],
  "confidence": 0,
  "assumptions": ["..."],
  "missing_data": ["..."]
}` + "\n\n")
	b.WriteString("Here is the deterministic context (JSON):\n")
	b.Write(contextJSON)

	prompt := b.String()
	if len(prompt) > maxBytes {
		return "", fmt.Errorf("prompt exceeds limit (%d bytes > %d)", len(prompt), maxBytes)
	}
	return prompt, nil
}

var recommendationTypes = map[string]bool{
	"query":        true,
	"verification": true,
	"containment":  true,
	"monitoring":   true,
}

// parseAdvice decodes and validates provider output. Unknown keys and
// out-of-range values are rejected rather than silently accepted.
func parseAdvice(raw string) (*triage.Advice, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > maxCompletionBytes {
		return nil, fmt.Errorf("completion too large (%d bytes)", len(raw))
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()

	var advice triage.Advice
	if err := dec.Decode(&advice); err != nil {
		return nil, fmt.Errorf("decode advice: %w", err)
	}

	if len(advice.Observations) == 0 {
		return nil, fmt.Errorf("observations: must not be empty")
	}
	if strings.TrimSpace(advice.Assessment) == "" {
		return nil, fmt.Errorf("assessment: must not be empty")
	}
	if advice.Confidence < 0 || advice.Confidence > 100 {
		return nil, fmt.Errorf("confidence: %d out of range [0,100]", advice.Confidence)
	}
	for i, m := range advice.MitreMapping {
		if m.Confidence < 0 || m.Confidence > 1 {
			return nil, fmt.Errorf("mitre_mapping[%d].confidence: %v out of range [0,1]", i, m.Confidence)
		}
	}
	for i, r := range advice.Recommendations {
		if !recommendationTypes[r.Type] {
			return nil, fmt.Errorf("recommendations[%d].type: unknown type %q", i, r.Type)
		}
		if strings.TrimSpace(r.Description) == "" {
			return nil, fmt.Errorf("recommendations[%d].description: must not be empty", i)
		}
	}

	advice.Offline = false
	advice.Model = ""
	return &advice, nil
}

// offlineFallback is the deterministic advisory brief used whenever the
// live path is unavailable. It restates the decision without inventing
// anything new.
func offlineFallback(d *triage.Decision, reason string) *triage.Advice {
	obs := []string{
		fmt.Sprintf("Deterministic score=%d level=%s.", d.Score, d.Level),
		"MITRE hypotheses were generated from bounded rules (not AI).",
	}

	if len(d.Reasons) > 0 {
		top := make([]string, 0, 3)
		for _, r := range d.Reasons {
			top = append(top, r.Text)
			if len(top) == 3 {
				break
			}
		}
		obs = append(obs, "Top scoring reasons: "+strings.Join(top, "; "))
	}

	if len(d.Mitre) > 0 {
		lines := make([]string, 0, 3)
		for _, m := range d.Mitre {
			lines = append(lines, fmt.Sprintf("%s (%.2f)", m.Technique, m.Confidence))
			if len(lines) == 3 {
				break
			}
		}
		obs = append(obs, "Top MITRE candidates: "+strings.Join(lines, ", "))
	}

	mapping := d.Mitre
	if len(mapping) > 5 {
		mapping = mapping[:5]
	}

	return &triage.Advice{
		Observations: obs,
		Assessment: "Offline mode: advisory summary generated without an LLM. " +
			"Enable live mode to generate richer narrative and recommended queries.",
		MitreMapping: append([]triage.TechniqueMatch(nil), mapping...),
		Recommendations: []triage.Recommendation{
			{Type: "verification", Description: "Confirm the entities (IP/user/domain) exist in logs and match the incident timeline."},
			{Type: "monitoring", Description: "Monitor for repeated authentication failures, impossible travel, and new device sign-ins."},
			{Type: "containment", Description: "If confidence remains high after verification: reset credentials and enforce MFA for impacted accounts."},
		},
		Confidence:  d.Score,
		Assumptions: []string{"Live LLM reasoning is disabled: " + reason + "."},
		MissingData: []string{"Raw authentication event details (source IP, user agent, device ID, geo), and correlated alerts across hosts/users."},
		Offline:     true,
	}
}
