package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/repos"
	"github.com/preceptorly/feedback-backend/internal/standards"
	"github.com/preceptorly/feedback-backend/internal/types"
)

// StateSummary is the read-model returned to the API: where the session is
// without the full turn history.
type StateSummary struct {
	SessionID          uuid.UUID          `json:"session_id"`
	State              types.SessionState `json:"state"`
	StandardIndex      int                `json:"standard_index"`
	StandardsCompleted int                `json:"standards_completed"`
	StandardsTotal     int                `json:"standards_total"`
	CurrentStandard    string             `json:"current_standard,omitempty"`
	ContactEmail       *string            `json:"contact_email,omitempty"`
	StartedAt          time.Time          `json:"started_at"`
	CompletedAt        *time.Time         `json:"completed_at,omitempty"`
}

type StartResult struct {
	SessionID uuid.UUID `json:"session_id"`
	Message   string    `json:"message"`
}

type MessageResult struct {
	Reply         string             `json:"reply"`
	State         types.SessionState `json:"state"`
	StandardIndex int                `json:"standard_index"`
}

type SessionService interface {
	StartSession(ctx context.Context, preceptorID uuid.UUID) (*StartResult, error)
	HandleMessage(ctx context.Context, preceptorID, sessionID uuid.UUID, text string) (*MessageResult, error)
	GetSession(ctx context.Context, preceptorID, sessionID uuid.UUID) (*types.FeedbackSession, *StateSummary, error)
	ListSessions(ctx context.Context, preceptorID uuid.UUID) ([]*types.FeedbackSession, error)
	GetReport(ctx context.Context, preceptorID, sessionID uuid.UUID) (*types.FinalReport, error)
}

type sessionService struct {
	log      *logger.Logger
	catalog  *standards.Catalog
	machine  *FeedbackSessionMachine
	sessions repos.SessionRepo
	reports  *ReportAssembler
	mailer   ReportMailer
	notifier SessionNotifier

	// One in-flight message per session. Guards the load-mutate-save cycle
	// against concurrent posts to the same session.
	locks sync.Map
}

func NewSessionService(
	log *logger.Logger,
	catalog *standards.Catalog,
	machine *FeedbackSessionMachine,
	sessions repos.SessionRepo,
	reports *ReportAssembler,
	mailer ReportMailer,
	notifier SessionNotifier,
) (SessionService, error) {
	if catalog == nil || machine == nil || sessions == nil || reports == nil {
		return nil, &ConfigurationError{Detail: "catalog, machine, session repo and report assembler are required"}
	}
	return &sessionService{
		log:      log.With("service", "SessionService"),
		catalog:  catalog,
		machine:  machine,
		sessions: sessions,
		reports:  reports,
		mailer:   mailer,
		notifier: notifier,
	}, nil
}

func (ss *sessionService) lockSession(sessionID uuid.UUID) func() {
	muAny, _ := ss.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (ss *sessionService) StartSession(ctx context.Context, preceptorID uuid.UUID) (*StartResult, error) {
	session := &types.FeedbackSession{
		ID:          uuid.New(),
		PreceptorID: preceptorID,
		State:       types.SessionStateInitialized,
		StartedAt:   time.Now().UTC(),
	}

	msg, err := ss.machine.Start(session)
	if err != nil {
		return nil, err
	}
	if _, err := ss.sessions.Create(ctx, nil, session); err != nil {
		return nil, err
	}

	ss.notifier.SessionStarted(preceptorID, session)
	ss.log.Info("Session started", "session_id", session.ID, "preceptor_id", preceptorID)

	return &StartResult{SessionID: session.ID, Message: msg}, nil
}

func (ss *sessionService) HandleMessage(ctx context.Context, preceptorID, sessionID uuid.UUID, text string) (*MessageResult, error) {
	unlock := ss.lockSession(sessionID)
	defer unlock()

	session, err := ss.loadOwned(ctx, preceptorID, sessionID)
	if err != nil {
		return nil, err
	}

	outcome, err := ss.machine.HandleMessage(ctx, session, text)
	if err != nil {
		if IsInvalidInput(err) {
			// Nothing mutated: re-prompt without recording a turn.
			return &MessageResult{
				Reply:         emptyInputPromptMessage(),
				State:         session.State,
				StandardIndex: session.StandardIndex,
			}, nil
		}
		return nil, err
	}

	if err := ss.sessions.Save(ctx, nil, session); err != nil {
		return nil, err
	}

	ss.notifier.SessionProgress(preceptorID, session, session.StandardsCompleted(), ss.catalog.Len())

	if outcome.EmailCaptured {
		ss.deliverReport(ctx, session)
	}

	return &MessageResult{
		Reply:         outcome.Reply,
		State:         outcome.State,
		StandardIndex: outcome.StandardIndex,
	}, nil
}

// deliverReport assembles (and persists) the final report, then mails it in
// the background. Failures are logged, not surfaced: the conversation already
// thanked the preceptor and the report can be re-fetched over the API.
func (ss *sessionService) deliverReport(ctx context.Context, session *types.FeedbackSession) {
	report, err := ss.reports.Assemble(ctx, session)
	if err != nil {
		ss.log.Error("Report assembly failed", "session_id", session.ID, "error", err)
		return
	}

	ss.notifier.ReportReady(session.PreceptorID, session.ID)

	if ss.mailer == nil {
		return
	}
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := ss.mailer.SendReport(sendCtx, report); err != nil {
			ss.log.Error("Report email delivery failed", "session_id", session.ID, "error", err)
		}
	}()
}

func (ss *sessionService) GetSession(ctx context.Context, preceptorID, sessionID uuid.UUID) (*types.FeedbackSession, *StateSummary, error) {
	session, err := ss.loadOwned(ctx, preceptorID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return session, ss.summarize(session), nil
}

func (ss *sessionService) ListSessions(ctx context.Context, preceptorID uuid.UUID) ([]*types.FeedbackSession, error) {
	return ss.sessions.ListByPreceptorID(ctx, nil, preceptorID)
}

func (ss *sessionService) GetReport(ctx context.Context, preceptorID, sessionID uuid.UUID) (*types.FinalReport, error) {
	session, err := ss.loadOwned(ctx, preceptorID, sessionID)
	if err != nil {
		return nil, err
	}
	return ss.reports.Assemble(ctx, session)
}

func (ss *sessionService) loadOwned(ctx context.Context, preceptorID, sessionID uuid.UUID) (*types.FeedbackSession, error) {
	session, err := ss.sessions.GetByID(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.PreceptorID != preceptorID {
		return nil, ErrNotSessionOwner
	}
	return session, nil
}

func (ss *sessionService) summarize(session *types.FeedbackSession) *StateSummary {
	summary := &StateSummary{
		SessionID:          session.ID,
		State:              session.State,
		StandardIndex:      session.StandardIndex,
		StandardsCompleted: session.StandardsCompleted(),
		StandardsTotal:     ss.catalog.Len(),
		ContactEmail:       session.ContactEmail,
		StartedAt:          session.StartedAt,
		CompletedAt:        session.CompletedAt,
	}
	if std, ok := ss.catalog.ByIndex(session.StandardIndex); ok {
		summary.CurrentStandard = std.FullName
	}
	return summary
}
