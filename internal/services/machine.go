package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/standards"
	"github.com/preceptorly/feedback-backend/internal/types"
)

// TurnOutcome is what one handled message produced: the assistant reply plus
// the signals the caller needs to publish progress and trigger the report.
type TurnOutcome struct {
	Reply         string
	State         types.SessionState
	StandardIndex int
	JustCompleted bool
	EmailCaptured bool
}

// FeedbackSessionMachine drives one session through the collect/probe/
// confirm loop across the standards catalog. It mutates only the session
// aggregate passed in; persistence belongs to the caller.
type FeedbackSessionMachine struct {
	log        *logger.Logger
	catalog    *standards.Catalog
	privacy    PrivacyScreen
	classifier QualityClassifier
	synth      Synthesizer
}

func NewFeedbackSessionMachine(
	log *logger.Logger,
	catalog *standards.Catalog,
	privacy PrivacyScreen,
	classifier QualityClassifier,
	synth Synthesizer,
) (*FeedbackSessionMachine, error) {
	if catalog == nil || catalog.Len() == 0 {
		return nil, &ConfigurationError{Detail: "standards catalog required"}
	}
	if privacy == nil {
		return nil, &ConfigurationError{Detail: "privacy screen required"}
	}
	if classifier == nil {
		return nil, &ConfigurationError{Detail: "quality classifier required"}
	}
	if synth == nil {
		return nil, &ConfigurationError{Detail: "synthesizer required"}
	}
	return &FeedbackSessionMachine{
		log:        log.With("service", "FeedbackSessionMachine"),
		catalog:    catalog,
		privacy:    privacy,
		classifier: classifier,
		synth:      synth,
	}, nil
}

// Start moves a fresh session into collection and returns the opening
// message: the welcome plus the first standard's introduction.
func (m *FeedbackSessionMachine) Start(session *types.FeedbackSession) (string, error) {
	if session.State != types.SessionStateInitialized {
		return "", &InvalidTransitionError{SessionID: session.ID, State: string(session.State)}
	}

	session.State = types.SessionStateCollectingFeedback
	session.StandardIndex = 0

	first, _ := m.catalog.ByIndex(0)
	msg := welcomeMessage(m.catalog.Len()) + "\n\n" + standardIntroMessage(first, 1, m.catalog.Len())
	appendTurn(session, types.TurnRoleAssistant, msg)
	return msg, nil
}

// HandleMessage processes one preceptor message. Empty input is rejected
// before any mutation; every accepted message appends exactly one user turn
// and one assistant turn, even when the reply is a privacy warning or a
// retry prompt.
func (m *FeedbackSessionMachine) HandleMessage(ctx context.Context, session *types.FeedbackSession, text string) (*TurnOutcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &InvalidInputError{Detail: "message text is empty"}
	}
	if session.State == types.SessionStateInitialized {
		return nil, &InvalidTransitionError{SessionID: session.ID, State: string(session.State)}
	}

	outcome := &TurnOutcome{}

	// Feedback must clear the privacy screen before any capability sees it
	// in an evaluation role. Post-completion messages skip the screen: the
	// email capture step exists to receive an address.
	if session.State != types.SessionStateCompleted {
		res, err := m.privacy.Screen(ctx, &session.ID, text)
		if err != nil {
			m.log.Warn("Privacy screen failed", "session_id", session.ID, "error", err)
			m.recordExchange(session, text, capabilityRetryMessage(), outcome)
			return outcome, nil
		}
		if !res.Safe {
			m.recordExchange(session, text, privacyWarningMessage(res.Findings), outcome)
			return outcome, nil
		}
	}

	var reply string
	switch session.State {
	case types.SessionStateCollectingFeedback:
		reply = m.handleCollection(ctx, session, text)
	case types.SessionStateConfirmingStandard:
		reply = m.handleConfirmation(session, text, outcome)
	case types.SessionStateCompleted:
		reply = m.handlePostCompletion(session, text, outcome)
	default:
		return nil, &InvalidTransitionError{SessionID: session.ID, State: string(session.State)}
	}

	m.recordExchange(session, text, reply, outcome)
	return outcome, nil
}

// handleCollection classifies the accumulated feedback with the new fragment
// included, then synthesizes when the quality is good enough. Capability
// calls run before any mutation so a failed call leaves the session exactly
// as it was and the preceptor can resend.
func (m *FeedbackSessionMachine) handleCollection(ctx context.Context, session *types.FeedbackSession, text string) string {
	std, _ := m.catalog.ByIndex(session.StandardIndex)
	record := ensureRecord(session, std.ID)

	combined := joinFragments(append(record.FragmentList(), text))

	eval, err := m.classifier.Classify(ctx, &session.ID, std.FullName, combined)
	if err != nil {
		m.log.Warn("Quality classification failed", "session_id", session.ID, "standard_id", std.ID, "error", err)
		return capabilityRetryMessage()
	}

	if eval.Quality == types.QualitySpecificWithExample {
		synthesis, synthErr := m.synth.Synthesize(ctx, &session.ID, std.FullName, combined)
		if synthErr != nil {
			m.log.Warn("Synthesis failed", "session_id", session.ID, "standard_id", std.ID, "error", synthErr)
			return capabilityRetryMessage()
		}

		record.AppendFragment(text)
		quality := eval.Quality
		record.LatestQuality = &quality
		record.SetKeyPoints(eval.KeyPoints)
		record.Summary = &synthesis.Summary
		record.Suggestion = &synthesis.Suggestion
		record.Confirmed = false
		session.State = types.SessionStateConfirmingStandard
		return confirmationMessage(std, synthesis.Summary, synthesis.Suggestion)
	}

	record.AppendFragment(text)
	quality := eval.Quality
	record.LatestQuality = &quality
	record.SetKeyPoints(eval.KeyPoints)
	return probeMessage(std, eval.Quality)
}

func (m *FeedbackSessionMachine) handleConfirmation(session *types.FeedbackSession, text string, outcome *TurnOutcome) string {
	std, _ := m.catalog.ByIndex(session.StandardIndex)
	record := ensureRecord(session, std.ID)

	switch classifyConfirmIntent(text) {
	case IntentRevise:
		// Fragments and key points survive a revision; the synthesis and
		// confirmation are what gets redone.
		record.Summary = nil
		record.Suggestion = nil
		record.Confirmed = false
		session.State = types.SessionStateCollectingFeedback
		return reviseAckMessage()

	case IntentConfirm:
		record.Confirmed = true
		session.StandardIndex++
		if session.StandardIndex >= m.catalog.Len() {
			now := time.Now().UTC()
			session.State = types.SessionStateCompleted
			session.CompletedAt = &now
			outcome.JustCompleted = true
			return emailRequestMessage()
		}
		session.State = types.SessionStateCollectingFeedback
		next, _ := m.catalog.ByIndex(session.StandardIndex)
		return nextStandardMessage(next, session.StandardIndex+1, m.catalog.Len())

	default:
		return ambiguousConfirmMessage()
	}
}

func (m *FeedbackSessionMachine) handlePostCompletion(session *types.FeedbackSession, text string, outcome *TurnOutcome) string {
	if session.ContactEmail == nil {
		if email := extractEmail(text); email != "" {
			session.ContactEmail = &email
			outcome.EmailCaptured = true
			return emailThanksMessage(email)
		}
		if session.EmailPrompts == 0 {
			session.EmailPrompts++
			return emailRepromptMessage()
		}
	}
	return postCompletionAckMessage()
}

func (m *FeedbackSessionMachine) recordExchange(session *types.FeedbackSession, userText, reply string, outcome *TurnOutcome) {
	appendTurn(session, types.TurnRoleUser, userText)
	appendTurn(session, types.TurnRoleAssistant, reply)
	outcome.Reply = reply
	outcome.State = session.State
	outcome.StandardIndex = session.StandardIndex
}

func appendTurn(session *types.FeedbackSession, role types.TurnRole, text string) {
	seq := 0
	for i := range session.Turns {
		if session.Turns[i].Seq >= seq {
			seq = session.Turns[i].Seq + 1
		}
	}
	session.Turns = append(session.Turns, types.Turn{
		ID:        uuid.New(),
		SessionID: session.ID,
		Seq:       seq,
		Role:      role,
		Text:      text,
	})
}

func ensureRecord(session *types.FeedbackSession, standardID int) *types.StandardRecord {
	if r := session.RecordForStandard(standardID); r != nil {
		return r
	}
	session.Records = append(session.Records, types.StandardRecord{
		ID:         uuid.New(),
		SessionID:  session.ID,
		StandardID: standardID,
	})
	return &session.Records[len(session.Records)-1]
}

func joinFragments(fragments []string) string {
	return strings.Join(fragments, "\n\n")
}

func extractEmail(text string) string {
	match := reEmailAddr.FindString(text)
	if match == "" {
		return ""
	}
	return strings.Trim(match, ".,;:")
}

// IsInvalidInput reports whether err is the machine refusing the message
// rather than failing on it.
func IsInvalidInput(err error) bool {
	var iie *InvalidInputError
	return errors.As(err, &iie)
}
