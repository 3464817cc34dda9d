package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/warden/internal/incident"
	"github.com/linnemanlabs/warden/internal/triage"
)

func sampleRecord() *triage.Record {
	return &triage.Record{
		ID: "01HTEST000000000000000000",
		Incident: incident.Incident{
			IncidentID: "inc-1", Source: "siem", Title: "Suspicious login burst",
			Severity: incident.SeverityHigh, Timestamp: "2026-08-29T10:00:00Z",
		},
		Decision: &triage.Decision{
			IncidentID: "inc-1",
			Score:      53,
			Level:      "high",
			Confidence: 0.95,
			Reasons: []triage.Reason{
				{Text: "Login anomaly detected", Weight: 20},
				{Text: "MFA not enabled for account", Weight: 10},
			},
			Mitre: []triage.TechniqueMatch{
				{Technique: "T1078", Name: "Valid Accounts", Confidence: 0.70},
			},
			Policy: triage.PolicyOutcome{
				Allowed:          []string{"monitor", "investigate", "contain"},
				Restricted:       []string{"reset_credentials"},
				RequiresApproval: true,
			},
		},
		AdviceStatus: triage.AdviceSkipped,
		CreatedAt:    time.Date(2026, 8, 29, 10, 0, 5, 0, time.UTC),
	}
}

func TestSend_PostsBlockKitMessage(t *testing.T) {
	t.Parallel()

	var (
		gotBody        []byte
		gotContentType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	if err := n.Send(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("content type = %q, want application/json", gotContentType)
	}

	var msg struct {
		Blocks []map[string]any `json:"blocks"`
	}
	if err := json.Unmarshal(gotBody, &msg); err != nil {
		t.Fatalf("unmarshal webhook payload: %v", err)
	}
	if len(msg.Blocks) != 7 {
		t.Fatalf("blocks = %d, want 7", len(msg.Blocks))
	}
	if msg.Blocks[0]["type"] != "header" {
		t.Errorf("first block type = %v, want header", msg.Blocks[0]["type"])
	}

	body := string(gotBody)
	for _, want := range []string{
		"Triage Decision: Suspicious login burst",
		"*Score:* 53",
		"*Level:* high",
		"*Restricted:* reset_credentials",
		"Login anomaly detected",
		"T1078 Valid Accounts (0.70)",
		"triage 01HTEST000000000000000000",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("payload missing %q", want)
		}
	}
}

func TestSend_EmptyURLIsNoop(t *testing.T) {
	t.Parallel()

	n := New("")
	if err := n.Send(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("Send with empty URL: %v", err)
	}
}

func TestSend_Non2xxIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := New(srv.URL)
	err := n.Send(context.Background(), sampleRecord())
	if err == nil {
		t.Fatal("Send: expected error on 400 response")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error %q does not mention status", err)
	}
}

func TestReasonsBlock_EmptyDecision(t *testing.T) {
	t.Parallel()

	rec := sampleRecord()
	rec.Decision.Reasons = nil
	rec.Decision.Mitre = nil

	block := reasonsBlock(rec)
	text := block["text"].(map[string]any)["text"].(string)
	if !strings.Contains(text, "No scoring rules fired") {
		t.Errorf("empty decision text = %q", text)
	}
}

func TestLevelEmoji(t *testing.T) {
	t.Parallel()

	if levelEmoji("critical") == levelEmoji("low") {
		t.Error("critical and low share an emoji")
	}
	if levelEmoji("unknown") != levelEmoji("low") {
		t.Error("unknown level should use the default emoji")
	}
}
