package triage

import (
	"time"

	"github.com/linnemanlabs/warden/internal/incident"
)

// AdviceStatus tracks where the optional advisory run for a record is in
// its lifecycle. The deterministic decision is always complete at submit
// time; only the advice arrives later.
type AdviceStatus string

const (
	// AdviceSkipped means no advisor is configured
	AdviceSkipped AdviceStatus = "skipped"

	// AdvicePending means the advisory run was dispatched, not yet finished
	AdvicePending AdviceStatus = "pending"

	// AdviceComplete means advice is attached
	AdviceComplete AdviceStatus = "complete"

	// AdviceFailed means the advisory run errored; the decision stands
	AdviceFailed AdviceStatus = "failed"
)

// Record is the stored outcome of one triage submission: the submitted
// incident, its immutable decision, the deterministic summary, and the
// advisory attachment once available.
type Record struct {
	ID           string            `json:"id"`
	Incident     incident.Incident `json:"incident"`
	Decision     *Decision         `json:"decision"`
	Summary      *Summary          `json:"summary"`
	AdviceStatus AdviceStatus      `json:"advice_status"`
	Advice       *Advice           `json:"advice,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	CompletedAt  time.Time         `json:"completed_at,omitempty"`
	Duration     float64           `json:"advice_duration_seconds,omitempty"`
}
