// Package slack sends triage decision notifications to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/warden/internal/triage"
)

const (
	maxReasonLines = 5
	httpTimeout    = 10 * time.Second
)

// Notifier sends triage records to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Send posts a triage record to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, rec *triage.Record) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(rec)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(rec *triage.Record) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(rec),
			{"type": "divider"},
			fieldsBlock(rec),
			{"type": "divider"},
			reasonsBlock(rec),
			{"type": "divider"},
			contextBlock(rec),
		},
	}
}

func headerBlock(rec *triage.Record) map[string]any {
	d := rec.Decision
	text := fmt.Sprintf("%s Triage Decision: %s", levelEmoji(d.Level), rec.Incident.Title)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(rec *triage.Record) map[string]any {
	d := rec.Decision
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Level:* %s", d.Level),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Score:* %d", d.Score),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Confidence:* %.2f", d.Confidence),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Severity:* %s", rec.Incident.Severity),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Approval required:* %v", d.Policy.RequiresApproval),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Restricted:* %s", orNone(d.Policy.Restricted)),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func reasonsBlock(rec *triage.Record) map[string]any {
	d := rec.Decision

	var lines []string
	for _, r := range d.Reasons {
		lines = append(lines, "• "+r.Text)
		if len(lines) == maxReasonLines {
			break
		}
	}
	for _, m := range d.Mitre {
		lines = append(lines, fmt.Sprintf("• %s %s (%.2f)", m.Technique, m.Name, m.Confidence))
		break
	}

	text := strings.Join(lines, "\n")
	if text == "" {
		text = "_No scoring rules fired._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Risk drivers*\n\n%s", text),
		},
	}
}

func contextBlock(rec *triage.Record) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("warden • triage %s • %s", rec.ID,
				rec.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func levelEmoji(level string) string {
	switch level {
	case "critical":
		return "\U0001f534" // red circle
	case "high":
		return "\U0001f7e0" // orange circle
	case "medium":
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
