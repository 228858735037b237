package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/types"
)

type fakeOpenAI struct {
	out  map[string]any
	err  error
	last struct {
		system     string
		user       string
		schemaName string
	}
}

func (f *fakeOpenAI) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	f.last.system = system
	f.last.user = user
	f.last.schemaName = schemaName
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func (f *fakeOpenAI) Model() string { return "test-model" }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestClassifierParsesModelOutput(t *testing.T) {
	ai := &fakeOpenAI{out: map[string]any{
		"quality":    "specific_with_example",
		"key_points": []any{"clear charting", " escalated early ", ""},
		"reasoning":  "includes a concrete situation",
	}}
	qc := NewQualityClassifier(testLogger(t), ai, nil)

	eval, err := qc.Classify(context.Background(), nil, "Knowledge-Based Practice", "some feedback")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if eval.Quality != types.QualitySpecificWithExample {
		t.Fatalf("quality = %s", eval.Quality)
	}
	if len(eval.KeyPoints) != 2 || eval.KeyPoints[1] != "escalated early" {
		t.Fatalf("key points = %v", eval.KeyPoints)
	}
	if ai.last.schemaName != "feedback_evaluation" {
		t.Fatalf("schema name = %q", ai.last.schemaName)
	}
}

func TestClassifierRejectsUnknownQuality(t *testing.T) {
	ai := &fakeOpenAI{out: map[string]any{
		"quality":    "excellent",
		"key_points": []any{},
		"reasoning":  "",
	}}
	qc := NewQualityClassifier(testLogger(t), ai, nil)

	_, err := qc.Classify(context.Background(), nil, "Ethical Practice", "some feedback")
	var capErr *CapabilityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapabilityError, got %v", err)
	}
}

func TestClassifierWrapsTransportError(t *testing.T) {
	ai := &fakeOpenAI{err: fmt.Errorf("connection refused")}
	qc := NewQualityClassifier(testLogger(t), ai, nil)

	_, err := qc.Classify(context.Background(), nil, "Ethical Practice", "some feedback")
	var capErr *CapabilityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapabilityError, got %v", err)
	}
	if capErr.Op != "classify" {
		t.Fatalf("op = %q", capErr.Op)
	}
}

func TestSynthesizerFallsBackToContinueSuggestion(t *testing.T) {
	ai := &fakeOpenAI{out: map[string]any{
		"summary":    "Consistently communicates clearly with the care team.",
		"suggestion": "",
	}}
	sn := NewSynthesizer(testLogger(t), ai, nil)

	out, err := sn.Synthesize(context.Background(), nil, "Client-Focused Provision of Service", "positive feedback")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if out.Suggestion == "" {
		t.Fatalf("empty suggestion not replaced")
	}
}

func TestSynthesizerRejectsEmptySummary(t *testing.T) {
	ai := &fakeOpenAI{out: map[string]any{
		"summary":    "  ",
		"suggestion": "keep going",
	}}
	sn := NewSynthesizer(testLogger(t), ai, nil)

	if _, err := sn.Synthesize(context.Background(), nil, "Ethical Practice", "feedback"); err == nil {
		t.Fatalf("expected error for empty summary")
	}
}

func TestPrivacyScreenModelPassAndFailOpen(t *testing.T) {
	t.Run("model_flags", func(t *testing.T) {
		ai := &fakeOpenAI{out: map[string]any{
			"safe":     false,
			"findings": []any{"patient name"},
		}}
		ps := NewPrivacyScreen(testLogger(t), ai, nil)
		res, err := ps.Screen(context.Background(), nil, "the student helped a long-term patient")
		if err != nil {
			t.Fatalf("Screen: %v", err)
		}
		if res.Safe || len(res.Findings) != 1 {
			t.Fatalf("result = %+v", res)
		}
	})

	t.Run("model_failure_passes_prescreened_text", func(t *testing.T) {
		ai := &fakeOpenAI{err: fmt.Errorf("timeout")}
		ps := NewPrivacyScreen(testLogger(t), ai, nil)
		res, err := ps.Screen(context.Background(), nil, "clean feedback text")
		if err != nil {
			t.Fatalf("Screen: %v", err)
		}
		if !res.Safe {
			t.Fatalf("model failure should not block pre-screened text")
		}
	})

	t.Run("prescreen_skips_model", func(t *testing.T) {
		ai := &fakeOpenAI{out: map[string]any{"safe": true, "findings": []any{}}}
		ps := NewPrivacyScreen(testLogger(t), ai, nil)
		res, err := ps.Screen(context.Background(), nil, "contact me at nurse@example.com")
		if err != nil {
			t.Fatalf("Screen: %v", err)
		}
		if res.Safe {
			t.Fatalf("pre-screen finding ignored")
		}
		if ai.last.schemaName != "" {
			t.Fatalf("model was called for pre-screen flagged text")
		}
	})
}
