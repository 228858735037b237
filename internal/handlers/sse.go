package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/requestdata"
	"github.com/preceptorly/feedback-backend/internal/sse"
)

type SSEHandler struct {
	Log *logger.Logger
	Hub *sse.SSEHub

	mu      sync.RWMutex
	clients map[uuid.UUID]*sse.SSEClient // key: preceptor ID
}

func NewSSEHandler(log *logger.Logger, hub *sse.SSEHub) *SSEHandler {
	return &SSEHandler{
		Log:     log,
		Hub:     hub,
		clients: make(map[uuid.UUID]*sse.SSEClient),
	}
}

func (h *SSEHandler) SSEStream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.PreceptorID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	preceptorID := rd.PreceptorID
	h.Log.Info("SSEStream open", "preceptor_id", preceptorID.String())

	h.mu.Lock()
	// One stream per preceptor: close and replace any existing connection.
	if existing, ok := h.clients[preceptorID]; ok {
		h.Hub.CloseClient(existing)
		delete(h.clients, preceptorID)
	}
	client := h.Hub.NewSSEClient(preceptorID)
	client.Logger = h.Log.With("SSEClientID", client.ID)
	h.clients[preceptorID] = client
	h.mu.Unlock()

	// Every stream gets the preceptor's own channel; session progress and
	// report-ready events are published there.
	h.Hub.AddChannel(client, preceptorID.String())

	h.Hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	delete(h.clients, preceptorID)
	h.mu.Unlock()
	h.Hub.CloseClient(client)
}

func (h *SSEHandler) SSESubscribe(c *gin.Context) {
	client, ok := h.activeClient(c)
	if !ok {
		return
	}
	var req struct {
		Channel string `json:"channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel"})
		return
	}
	h.Hub.AddChannel(client, req.Channel)
	c.JSON(http.StatusOK, gin.H{"message": "subscribed", "channel": req.Channel})
}

func (h *SSEHandler) SSEUnsubscribe(c *gin.Context) {
	client, ok := h.activeClient(c)
	if !ok {
		return
	}
	var req struct {
		Channel string `json:"channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel"})
		return
	}
	h.Hub.RemoveChannel(client, req.Channel)
	c.JSON(http.StatusOK, gin.H{"message": "unsubscribed", "channel": req.Channel})
}

func (h *SSEHandler) activeClient(c *gin.Context) (*sse.SSEClient, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.PreceptorID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return nil, false
	}
	h.mu.RLock()
	client, exists := h.clients[rd.PreceptorID]
	h.mu.RUnlock()
	if !exists {
		c.JSON(http.StatusConflict, gin.H{"error": "no active SSE connection"})
		return nil, false
	}
	return client, true
}
