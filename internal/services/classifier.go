package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/repos"
	"github.com/preceptorly/feedback-backend/internal/types"
)

// QualityEvaluation is the classifier's judgement of the feedback gathered so
// far for one standard.
type QualityEvaluation struct {
	Quality   types.FeedbackQuality
	KeyPoints []string
	Reasoning string
}

type QualityClassifier interface {
	Classify(ctx context.Context, sessionID *uuid.UUID, standardName string, feedback string) (*QualityEvaluation, error)
}

type qualityClassifier struct {
	log     *logger.Logger
	ai      OpenAIClient
	callLog repos.AICallLogRepo
}

func NewQualityClassifier(log *logger.Logger, ai OpenAIClient, callLog repos.AICallLogRepo) QualityClassifier {
	return &qualityClassifier{
		log:     log.With("service", "QualityClassifier"),
		ai:      ai,
		callLog: callLog,
	}
}

var classifySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"quality": map[string]any{
			"type": "string",
			"enum": []string{
				string(types.QualityVague),
				string(types.QualitySpecificNoExample),
				string(types.QualitySpecificWithExample),
			},
		},
		"key_points": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"reasoning": map[string]any{"type": "string"},
	},
	"required":             []string{"quality", "key_points", "reasoning"},
	"additionalProperties": false,
}

const classifySystemPrompt = `You are an expert evaluator of clinical feedback quality.

Your task is to analyze preceptor feedback and determine:
1. Is it SPECIFIC (detailed, not vague like "good" or "needs work")?
2. Does it include a CONCRETE EXAMPLE or clinical situation?

Extract key points and classify the overall quality as:
- vague: General statements without detail
- specific_no_example: Detailed but missing concrete example
- specific_with_example: Detailed with concrete clinical example`

func (qc *qualityClassifier) Classify(ctx context.Context, sessionID *uuid.UUID, standardName string, feedback string) (*QualityEvaluation, error) {
	if qc.ai == nil {
		return nil, &CapabilityError{Op: "classify", Err: fmt.Errorf("no model client configured")}
	}

	user := fmt.Sprintf("Evaluate this feedback from a nursing preceptor:\n\nFeedback: %s\n\nStandard being evaluated: %s",
		feedback, standardName)

	started := time.Now()
	out, err := qc.ai.GenerateJSON(ctx, classifySystemPrompt, user, "feedback_evaluation", classifySchema)
	recordAICall(ctx, qc.log, qc.callLog, sessionID, "quality_classification", qc.ai.Model(), started, out, err)
	if err != nil {
		return nil, &CapabilityError{Op: "classify", Err: err}
	}

	eval := &QualityEvaluation{}
	rawQuality, _ := out["quality"].(string)
	switch types.FeedbackQuality(strings.TrimSpace(rawQuality)) {
	case types.QualityVague:
		eval.Quality = types.QualityVague
	case types.QualitySpecificNoExample:
		eval.Quality = types.QualitySpecificNoExample
	case types.QualitySpecificWithExample:
		eval.Quality = types.QualitySpecificWithExample
	default:
		return nil, &CapabilityError{Op: "classify", Err: fmt.Errorf("unknown quality %q", rawQuality)}
	}

	if rawPoints, ok := out["key_points"].([]any); ok {
		for _, p := range rawPoints {
			if s, ok := p.(string); ok && strings.TrimSpace(s) != "" {
				eval.KeyPoints = append(eval.KeyPoints, strings.TrimSpace(s))
			}
		}
	}
	if reasoning, ok := out["reasoning"].(string); ok {
		eval.Reasoning = strings.TrimSpace(reasoning)
	}
	return eval, nil
}
