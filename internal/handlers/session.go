package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/requestdata"
	"github.com/preceptorly/feedback-backend/internal/services"
)

type SessionHandler struct {
	log            *logger.Logger
	sessionService services.SessionService
	reports        *services.ReportAssembler
}

func NewSessionHandler(log *logger.Logger, sessionService services.SessionService, reports *services.ReportAssembler) *SessionHandler {
	return &SessionHandler{
		log:            log.With("handler", "SessionHandler"),
		sessionService: sessionService,
		reports:        reports,
	}
}

func (sh *SessionHandler) StartSession(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.PreceptorID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("not authenticated"))
		return
	}
	result, err := sh.sessionService.StartSession(c.Request.Context(), rd.PreceptorID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "start_failed", err)
		return
	}
	RespondOK(c, result)
}

func (sh *SessionHandler) PostMessage(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.PreceptorID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("not authenticated"))
		return
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_session_id", err)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_body", errors.New("invalid request body"))
		return
	}

	result, err := sh.sessionService.HandleMessage(c.Request.Context(), rd.PreceptorID, sessionID, req.Text)
	if err != nil {
		sh.respondSessionError(c, err)
		return
	}
	RespondOK(c, result)
}

func (sh *SessionHandler) GetSession(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.PreceptorID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("not authenticated"))
		return
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_session_id", err)
		return
	}

	session, summary, err := sh.sessionService.GetSession(c.Request.Context(), rd.PreceptorID, sessionID)
	if err != nil {
		sh.respondSessionError(c, err)
		return
	}
	RespondOK(c, gin.H{"summary": summary, "turns": session.Turns})
}

func (sh *SessionHandler) ListSessions(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.PreceptorID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("not authenticated"))
		return
	}
	sessions, err := sh.sessionService.ListSessions(c.Request.Context(), rd.PreceptorID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"sessions": sessions})
}

// GetReport serves the final report, rendered as JSON by default or CSV when
// ?format=csv is given.
func (sh *SessionHandler) GetReport(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.PreceptorID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("not authenticated"))
		return
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_session_id", err)
		return
	}

	report, err := sh.sessionService.GetReport(c.Request.Context(), rd.PreceptorID, sessionID)
	if err != nil {
		sh.respondSessionError(c, err)
		return
	}

	switch strings.ToLower(strings.TrimSpace(c.Query("format"))) {
	case "", "json":
		body, rErr := sh.reports.RenderJSON(report)
		if rErr != nil {
			RespondError(c, http.StatusInternalServerError, "render_failed", rErr)
			return
		}
		c.Data(http.StatusOK, "application/json", body)
	case "csv":
		body, rErr := sh.reports.RenderCSV(report)
		if rErr != nil {
			RespondError(c, http.StatusInternalServerError, "render_failed", rErr)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="feedback-report.csv"`)
		c.Data(http.StatusOK, "text/csv", body)
	default:
		RespondError(c, http.StatusBadRequest, "bad_format", errors.New("format must be json or csv"))
	}
}

func (sh *SessionHandler) respondSessionError(c *gin.Context, err error) {
	var incomplete *services.IncompleteSessionError
	var transition *services.InvalidTransitionError
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, services.ErrNotSessionOwner):
		RespondError(c, http.StatusForbidden, "forbidden", err)
	case errors.As(err, &incomplete):
		RespondError(c, http.StatusConflict, "session_incomplete", err)
	case errors.As(err, &transition):
		RespondError(c, http.StatusConflict, "invalid_state", err)
	default:
		sh.log.Error("Session request failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
