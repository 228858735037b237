package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/repos"
)

// PrivacyResult describes whether a piece of feedback can leave the machine
// boundary. Findings name the categories spotted, never the spotted text.
type PrivacyResult struct {
	Safe     bool
	Findings []string
}

type PrivacyScreen interface {
	Screen(ctx context.Context, sessionID *uuid.UUID, text string) (*PrivacyResult, error)
}

// Deterministic pre-screen patterns. These catch the identifier shapes that
// must never reach a third-party API regardless of what the model thinks.
var (
	reEmailAddr    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	rePhoneNumber  = regexp.MustCompile(`\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]\d{4}`)
	reRecordNumber = regexp.MustCompile(`(?i)\b(?:mrn|phn|chart|record)\s*#?\s*\d+|\b\d{6,}\b`)
	reRoomNumber   = regexp.MustCompile(`(?i)\b(?:room|rm|bed)\s*#?\s*\d+[a-z]?\b`)
	reCalendarDate = regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?\b|\b\d{1,2}/\d{1,2}/\d{2,4}\b|\b\d{4}-\d{2}-\d{2}\b`)
)

type patternCheck struct {
	finding string
	re      *regexp.Regexp
}

var privacyPatterns = []patternCheck{
	{"email address", reEmailAddr},
	{"phone number", rePhoneNumber},
	{"medical record or chart number", reRecordNumber},
	{"room or bed number", reRoomNumber},
	{"specific calendar date", reCalendarDate},
}

type privacyScreen struct {
	log     *logger.Logger
	ai      OpenAIClient
	callLog repos.AICallLogRepo
}

func NewPrivacyScreen(log *logger.Logger, ai OpenAIClient, callLog repos.AICallLogRepo) PrivacyScreen {
	return &privacyScreen{
		log:     log.With("service", "PrivacyScreen"),
		ai:      ai,
		callLog: callLog,
	}
}

// PrescreenFindings runs only the deterministic patterns.
func PrescreenFindings(text string) []string {
	var findings []string
	for _, p := range privacyPatterns {
		if p.re.MatchString(text) {
			findings = append(findings, p.finding)
		}
	}
	return findings
}

var privacySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"safe": map[string]any{"type": "boolean"},
		"findings": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required":             []string{"safe", "findings"},
	"additionalProperties": false,
}

const privacySystemPrompt = `You are a privacy compliance checker for healthcare feedback.

Identify any personally identifiable information (PII) including:
- Patient names, initials, or descriptions that could identify them
- Student names or initials
- Facility names or specific locations
- Specific dates (beyond "this week" or "recently")
- Medical record numbers
- Room numbers or specific unit identifiers

Set safe=true only when no PII is detected. Findings must name the category
of information found (for example "patient name"), never repeat the text itself.`

// Screen flags text that contains identifying details. The deterministic
// pattern pass decides on its own; the model pass only runs on text the
// patterns cleared, and a model failure clears the text rather than blocking
// the session.
func (ps *privacyScreen) Screen(ctx context.Context, sessionID *uuid.UUID, text string) (*PrivacyResult, error) {
	if findings := PrescreenFindings(text); len(findings) > 0 {
		ps.log.Debug("Privacy pre-screen flagged text", "session_id", sessionID, "findings", strings.Join(findings, ", "))
		return &PrivacyResult{Safe: false, Findings: findings}, nil
	}

	if ps.ai == nil {
		return &PrivacyResult{Safe: true}, nil
	}

	started := time.Now()
	out, err := ps.ai.GenerateJSON(ctx, privacySystemPrompt,
		fmt.Sprintf("Check this text for PII:\n\n%s", text),
		"privacy_check", privacySchema)
	recordAICall(ctx, ps.log, ps.callLog, sessionID, "privacy_check", ps.ai.Model(), started, out, err)
	if err != nil {
		ps.log.Warn("Privacy model check failed; passing pre-screened text", "session_id", sessionID, "error", err)
		return &PrivacyResult{Safe: true}, nil
	}

	res := &PrivacyResult{Safe: true}
	if safe, ok := out["safe"].(bool); ok {
		res.Safe = safe
	}
	if rawFindings, ok := out["findings"].([]any); ok {
		for _, f := range rawFindings {
			if s, ok := f.(string); ok && strings.TrimSpace(s) != "" {
				res.Findings = append(res.Findings, s)
			}
		}
	}
	if !res.Safe && len(res.Findings) == 0 {
		res.Findings = []string{"identifying information"}
	}
	return res, nil
}
