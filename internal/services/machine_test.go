package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/standards"
	"github.com/preceptorly/feedback-backend/internal/types"
)

type fakePrivacy struct {
	flagged  bool
	findings []string
	err      error
}

func (f *fakePrivacy) Screen(ctx context.Context, sessionID *uuid.UUID, text string) (*PrivacyResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.flagged {
		return &PrivacyResult{Safe: false, Findings: f.findings}, nil
	}
	return &PrivacyResult{Safe: true}, nil
}

type fakeClassifier struct {
	quality   types.FeedbackQuality
	keyPoints []string
	err       error
	calls     int
	lastInput string
}

func (f *fakeClassifier) Classify(ctx context.Context, sessionID *uuid.UUID, standardName string, feedback string) (*QualityEvaluation, error) {
	f.calls++
	f.lastInput = feedback
	if f.err != nil {
		return nil, f.err
	}
	return &QualityEvaluation{Quality: f.quality, KeyPoints: f.keyPoints}, nil
}

type fakeSynth struct {
	summary    string
	suggestion string
	err        error
	calls      int
}

func (f *fakeSynth) Synthesize(ctx context.Context, sessionID *uuid.UUID, standardName string, feedback string) (*Synthesis, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Synthesis{Summary: f.summary, Suggestion: f.suggestion}, nil
}

func testMachine(t *testing.T, privacy PrivacyScreen, classifier QualityClassifier, synth Synthesizer) (*FeedbackSessionMachine, *standards.Catalog) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	catalog, err := standards.Load()
	if err != nil {
		t.Fatalf("standards.Load: %v", err)
	}
	m, err := NewFeedbackSessionMachine(log, catalog, privacy, classifier, synth)
	if err != nil {
		t.Fatalf("NewFeedbackSessionMachine: %v", err)
	}
	return m, catalog
}

func newTestSession() *types.FeedbackSession {
	return &types.FeedbackSession{
		ID:          uuid.New(),
		PreceptorID: uuid.New(),
		State:       types.SessionStateInitialized,
	}
}

func TestStartMovesToCollecting(t *testing.T) {
	m, catalog := testMachine(t, &fakePrivacy{}, &fakeClassifier{quality: types.QualityVague}, &fakeSynth{})
	session := newTestSession()

	msg, err := m.Start(session)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if session.State != types.SessionStateCollectingFeedback {
		t.Fatalf("state = %s, want collecting_feedback", session.State)
	}
	if session.StandardIndex != 0 {
		t.Fatalf("standard index = %d, want 0", session.StandardIndex)
	}
	first, _ := catalog.ByIndex(0)
	if !strings.Contains(msg, first.FullName) {
		t.Fatalf("opening message does not introduce %q:\n%s", first.FullName, msg)
	}
	if len(session.Turns) != 1 || session.Turns[0].Role != types.TurnRoleAssistant {
		t.Fatalf("expected one assistant turn, got %d turns", len(session.Turns))
	}

	if _, err := m.Start(session); err == nil {
		t.Fatalf("second Start should fail")
	}
}

func TestFullSessionHappyPath(t *testing.T) {
	classifier := &fakeClassifier{quality: types.QualitySpecificWithExample, keyPoints: []string{"strong charting"}}
	synth := &fakeSynth{summary: "Documented thoroughly.", suggestion: "Keep verifying orders aloud."}
	m, catalog := testMachine(t, &fakePrivacy{}, classifier, synth)

	session := newTestSession()
	if _, err := m.Start(session); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < catalog.Len(); i++ {
		out, err := m.HandleMessage(context.Background(), session, fmt.Sprintf("detailed feedback with example %d", i))
		if err != nil {
			t.Fatalf("feedback %d: %v", i, err)
		}
		if session.State != types.SessionStateConfirmingStandard {
			t.Fatalf("after feedback %d state = %s, want confirming_standard", i, session.State)
		}
		if !strings.Contains(out.Reply, "Documented thoroughly.") {
			t.Fatalf("confirmation reply missing summary: %s", out.Reply)
		}

		out, err = m.HandleMessage(context.Background(), session, "yes, that's right")
		if err != nil {
			t.Fatalf("confirm %d: %v", i, err)
		}
		if i < catalog.Len()-1 {
			if session.State != types.SessionStateCollectingFeedback {
				t.Fatalf("after confirm %d state = %s, want collecting_feedback", i, session.State)
			}
			if session.StandardIndex != i+1 {
				t.Fatalf("after confirm %d index = %d, want %d", i, session.StandardIndex, i+1)
			}
		} else {
			if session.State != types.SessionStateCompleted {
				t.Fatalf("final state = %s, want completed", session.State)
			}
			if !out.JustCompleted {
				t.Fatalf("final confirm should report completion")
			}
			if session.CompletedAt == nil {
				t.Fatalf("CompletedAt not set")
			}
		}
	}

	if got := session.StandardsCompleted(); got != catalog.Len() {
		t.Fatalf("standards completed = %d, want %d", got, catalog.Len())
	}

	// Email capture after completion.
	out, err := m.HandleMessage(context.Background(), session, "send it to preceptor@health.ca please")
	if err != nil {
		t.Fatalf("email message: %v", err)
	}
	if !out.EmailCaptured {
		t.Fatalf("email not captured")
	}
	if session.ContactEmail == nil || *session.ContactEmail != "preceptor@health.ca" {
		t.Fatalf("contact email = %v", session.ContactEmail)
	}
}

func TestVagueFeedbackProbesAndAccumulates(t *testing.T) {
	classifier := &fakeClassifier{quality: types.QualityVague}
	m, catalog := testMachine(t, &fakePrivacy{}, classifier, &fakeSynth{summary: "s", suggestion: "a"})

	session := newTestSession()
	if _, err := m.Start(session); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := m.HandleMessage(context.Background(), session, "good overall"); err != nil {
		t.Fatalf("first message: %v", err)
	}
	if session.State != types.SessionStateCollectingFeedback {
		t.Fatalf("state = %s, want collecting_feedback", session.State)
	}

	classifier.quality = types.QualitySpecificNoExample
	if _, err := m.HandleMessage(context.Background(), session, "solid med administration routine"); err != nil {
		t.Fatalf("second message: %v", err)
	}

	first, _ := catalog.ByIndex(0)
	record := session.RecordForStandard(first.ID)
	if record == nil {
		t.Fatalf("no record for first standard")
	}
	fragments := record.FragmentList()
	if len(fragments) != 2 {
		t.Fatalf("fragments = %d, want 2", len(fragments))
	}
	// The second classification must see both fragments.
	if !strings.Contains(classifier.lastInput, "good overall") || !strings.Contains(classifier.lastInput, "solid med administration routine") {
		t.Fatalf("classifier did not see accumulated feedback: %q", classifier.lastInput)
	}
	if record.LatestQuality == nil || *record.LatestQuality != types.QualitySpecificNoExample {
		t.Fatalf("latest quality = %v", record.LatestQuality)
	}
}

func TestRevisionClearsSynthesisKeepsFragments(t *testing.T) {
	classifier := &fakeClassifier{quality: types.QualitySpecificWithExample}
	synth := &fakeSynth{summary: "first summary", suggestion: "first suggestion"}
	m, catalog := testMachine(t, &fakePrivacy{}, classifier, synth)

	session := newTestSession()
	if _, err := m.Start(session); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := m.HandleMessage(context.Background(), session, "detailed feedback with an example"); err != nil {
		t.Fatalf("feedback: %v", err)
	}

	out, err := m.HandleMessage(context.Background(), session, "actually that's not accurate")
	if err != nil {
		t.Fatalf("revise: %v", err)
	}
	if session.State != types.SessionStateCollectingFeedback {
		t.Fatalf("state after revise = %s", session.State)
	}
	if session.StandardIndex != 0 {
		t.Fatalf("revise moved the cursor to %d", session.StandardIndex)
	}
	if !strings.Contains(out.Reply, "capture instead") {
		t.Fatalf("unexpected revise reply: %s", out.Reply)
	}

	first, _ := catalog.ByIndex(0)
	record := session.RecordForStandard(first.ID)
	if record.Summary != nil || record.Suggestion != nil || record.Confirmed {
		t.Fatalf("revision did not clear synthesis: %+v", record)
	}
	if len(record.FragmentList()) != 1 {
		t.Fatalf("revision dropped fragments: %v", record.FragmentList())
	}

	// Second pass replaces the synthesis and confirms.
	synth.summary = "second summary"
	if _, err := m.HandleMessage(context.Background(), session, "updated feedback with an example"); err != nil {
		t.Fatalf("second feedback: %v", err)
	}
	if session.State != types.SessionStateConfirmingStandard {
		t.Fatalf("state = %s, want confirming_standard", session.State)
	}
	if record := session.RecordForStandard(first.ID); record.Summary == nil || *record.Summary != "second summary" {
		t.Fatalf("summary not replaced: %v", record.Summary)
	}
	if _, err := m.HandleMessage(context.Background(), session, "yes"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if session.StandardIndex != 1 {
		t.Fatalf("index after confirm = %d, want 1", session.StandardIndex)
	}
}

func TestPrivacyFlaggedMessageLeavesRecordUntouched(t *testing.T) {
	privacy := &fakePrivacy{flagged: true, findings: []string{"patient name"}}
	classifier := &fakeClassifier{quality: types.QualitySpecificWithExample}
	m, catalog := testMachine(t, privacy, classifier, &fakeSynth{summary: "s", suggestion: "a"})

	session := newTestSession()
	if _, err := m.Start(session); err != nil {
		t.Fatalf("Start: %v", err)
	}
	turnsBefore := len(session.Turns)

	out, err := m.HandleMessage(context.Background(), session, "Mrs. Henderson in room 4 was impressed")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if !strings.Contains(out.Reply, "personally identifiable information") {
		t.Fatalf("expected privacy warning, got: %s", out.Reply)
	}
	if classifier.calls != 0 {
		t.Fatalf("classifier ran on flagged text")
	}
	if session.State != types.SessionStateCollectingFeedback {
		t.Fatalf("state changed to %s", session.State)
	}

	first, _ := catalog.ByIndex(0)
	if record := session.RecordForStandard(first.ID); record != nil && len(record.FragmentList()) != 0 {
		t.Fatalf("flagged text stored as fragment")
	}
	// The exchange itself is still on the record.
	if len(session.Turns) != turnsBefore+2 {
		t.Fatalf("turns = %d, want %d", len(session.Turns), turnsBefore+2)
	}
}

func TestClassifierFailureLeavesSessionUnchanged(t *testing.T) {
	classifier := &fakeClassifier{err: &CapabilityError{Op: "classify", Err: fmt.Errorf("model down")}}
	m, catalog := testMachine(t, &fakePrivacy{}, classifier, &fakeSynth{summary: "s", suggestion: "a"})

	session := newTestSession()
	if _, err := m.Start(session); err != nil {
		t.Fatalf("Start: %v", err)
	}

	out, err := m.HandleMessage(context.Background(), session, "detailed feedback")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if !strings.Contains(out.Reply, "trouble processing") {
		t.Fatalf("expected retry prompt, got: %s", out.Reply)
	}

	first, _ := catalog.ByIndex(0)
	if record := session.RecordForStandard(first.ID); record != nil && len(record.FragmentList()) != 0 {
		t.Fatalf("fragment stored despite classifier failure")
	}

	// Resend works once the capability recovers.
	classifier.err = nil
	classifier.quality = types.QualityVague
	if _, err := m.HandleMessage(context.Background(), session, "detailed feedback"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if record := session.RecordForStandard(first.ID); len(record.FragmentList()) != 1 {
		t.Fatalf("resend did not store fragment")
	}
}

func TestSynthesisFailureDoesNotAdvanceState(t *testing.T) {
	classifier := &fakeClassifier{quality: types.QualitySpecificWithExample}
	synth := &fakeSynth{err: &CapabilityError{Op: "synthesize", Err: fmt.Errorf("model down")}}
	m, _ := testMachine(t, &fakePrivacy{}, classifier, synth)

	session := newTestSession()
	if _, err := m.Start(session); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, err := m.HandleMessage(context.Background(), session, "great feedback with example")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if session.State != types.SessionStateCollectingFeedback {
		t.Fatalf("state advanced to %s despite synthesis failure", session.State)
	}
	if !strings.Contains(out.Reply, "trouble processing") {
		t.Fatalf("expected retry prompt, got: %s", out.Reply)
	}
}

func TestEmptyInputRejectedWithoutMutation(t *testing.T) {
	m, _ := testMachine(t, &fakePrivacy{}, &fakeClassifier{quality: types.QualityVague}, &fakeSynth{})

	session := newTestSession()
	if _, err := m.Start(session); err != nil {
		t.Fatalf("Start: %v", err)
	}
	turnsBefore := len(session.Turns)

	_, err := m.HandleMessage(context.Background(), session, "   \n\t ")
	if err == nil {
		t.Fatalf("expected error for empty input")
	}
	if !IsInvalidInput(err) {
		t.Fatalf("error is not InvalidInputError: %v", err)
	}
	if len(session.Turns) != turnsBefore {
		t.Fatalf("empty input appended turns")
	}
}

func TestMessageBeforeStartRejected(t *testing.T) {
	m, _ := testMachine(t, &fakePrivacy{}, &fakeClassifier{quality: types.QualityVague}, &fakeSynth{})
	session := newTestSession()

	if _, err := m.HandleMessage(context.Background(), session, "hello"); err == nil {
		t.Fatalf("expected error for message before Start")
	}
}

func TestPostCompletionEmailReprompts(t *testing.T) {
	classifier := &fakeClassifier{quality: types.QualitySpecificWithExample}
	m, catalog := testMachine(t, &fakePrivacy{}, classifier, &fakeSynth{summary: "s", suggestion: "a"})

	session := newTestSession()
	if _, err := m.Start(session); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < catalog.Len(); i++ {
		if _, err := m.HandleMessage(context.Background(), session, "feedback with example"); err != nil {
			t.Fatalf("feedback %d: %v", i, err)
		}
		if _, err := m.HandleMessage(context.Background(), session, "yes"); err != nil {
			t.Fatalf("confirm %d: %v", i, err)
		}
	}
	if session.State != types.SessionStateCompleted {
		t.Fatalf("state = %s, want completed", session.State)
	}

	out, err := m.HandleMessage(context.Background(), session, "what happens now?")
	if err != nil {
		t.Fatalf("post-completion message: %v", err)
	}
	if !strings.Contains(out.Reply, "email address") {
		t.Fatalf("expected email re-prompt, got: %s", out.Reply)
	}

	// Second address-free message gets a plain acknowledgment.
	out, err = m.HandleMessage(context.Background(), session, "ok thanks")
	if err != nil {
		t.Fatalf("second post-completion message: %v", err)
	}
	if strings.Contains(out.Reply, "email address") {
		t.Fatalf("re-prompted twice: %s", out.Reply)
	}

	// An address still gets captured afterwards.
	out, err = m.HandleMessage(context.Background(), session, "oh right, jane.doe@hospital.org.")
	if err != nil {
		t.Fatalf("email message: %v", err)
	}
	if !out.EmailCaptured || session.ContactEmail == nil || *session.ContactEmail != "jane.doe@hospital.org" {
		t.Fatalf("email not captured: %+v", session.ContactEmail)
	}
}

func TestTurnSequenceIsMonotonic(t *testing.T) {
	classifier := &fakeClassifier{quality: types.QualityVague}
	m, _ := testMachine(t, &fakePrivacy{}, classifier, &fakeSynth{})

	session := newTestSession()
	if _, err := m.Start(session); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := m.HandleMessage(context.Background(), session, fmt.Sprintf("more detail %d", i)); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}
	for i := 1; i < len(session.Turns); i++ {
		if session.Turns[i].Seq <= session.Turns[i-1].Seq {
			t.Fatalf("turn seq not increasing at %d: %d then %d", i, session.Turns[i-1].Seq, session.Turns[i].Seq)
		}
	}
}
