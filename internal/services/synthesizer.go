package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/repos"
)

// Synthesis is the distilled output for one standard: what the preceptor
// said, and one actionable next step for the student.
type Synthesis struct {
	Summary    string
	Suggestion string
}

type Synthesizer interface {
	Synthesize(ctx context.Context, sessionID *uuid.UUID, standardName string, feedback string) (*Synthesis, error)
}

type synthesizer struct {
	log     *logger.Logger
	ai      OpenAIClient
	callLog repos.AICallLogRepo
}

func NewSynthesizer(log *logger.Logger, ai OpenAIClient, callLog repos.AICallLogRepo) Synthesizer {
	return &synthesizer{
		log:     log.With("service", "Synthesizer"),
		ai:      ai,
		callLog: callLog,
	}
}

var synthesisSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary":    map[string]any{"type": "string"},
		"suggestion": map[string]any{"type": "string"},
	},
	"required":             []string{"summary", "suggestion"},
	"additionalProperties": false,
}

const synthesisSystemPrompt = `You are a clinical education expert creating structured feedback summaries.

Based on the preceptor's feedback, generate:
1. A summary: Concise, professional summary (2-3 sentences) of the feedback
2. A suggestion: One specific, actionable recommendation for the student's development

Guidelines:
- Use professional nursing language
- Be constructive and specific
- If feedback is entirely positive, frame suggestion as "continue" or "expand"
- Focus on behaviors and skills, not personal attributes`

func (sn *synthesizer) Synthesize(ctx context.Context, sessionID *uuid.UUID, standardName string, feedback string) (*Synthesis, error) {
	if sn.ai == nil {
		return nil, &CapabilityError{Op: "synthesize", Err: fmt.Errorf("no model client configured")}
	}

	user := fmt.Sprintf("Standard: %s\n\nPreceptor's Feedback:\n%s\n\nGenerate the summary and suggestion.",
		standardName, feedback)

	started := time.Now()
	out, err := sn.ai.GenerateJSON(ctx, synthesisSystemPrompt, user, "feedback_synthesis", synthesisSchema)
	recordAICall(ctx, sn.log, sn.callLog, sessionID, "synthesis", sn.ai.Model(), started, out, err)
	if err != nil {
		return nil, &CapabilityError{Op: "synthesize", Err: err}
	}

	summary, _ := out["summary"].(string)
	suggestion, _ := out["suggestion"].(string)
	summary = strings.TrimSpace(summary)
	suggestion = strings.TrimSpace(suggestion)

	if summary == "" {
		return nil, &CapabilityError{Op: "synthesize", Err: fmt.Errorf("empty summary")}
	}
	if suggestion == "" {
		suggestion = "Continue building on the strengths noted above and look for opportunities to expand them in more complex situations."
	}

	return &Synthesis{Summary: summary, Suggestion: suggestion}, nil
}
