package handlers

import (
	"context"
	"net/http"

	"policydesk-backend/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Answerer produces answers and opens sessions
type Answerer interface {
	Ask(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	NewSession(ctx context.Context) (*models.ChatSession, error)
}

// ChatHandler handles HTTP requests for the chat endpoints
type ChatHandler struct {
	answerer Answerer
	logger   *zap.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(answerer Answerer, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		answerer: answerer,
		logger:   logger.With(zap.String("component", "chat-handler")),
	}
}

// ChatRequest represents the request body of POST /api/chat
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	resp, err := h.answerer.Ask(c.Request.Context(), models.ChatRequest{
		Message:   req.Message,
		SessionID: req.SessionID,
	})
	if err != nil {
		h.logger.Warn("chat request failed", zap.String("session_id", req.SessionID), zap.Error(err))
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, resp)
}

// NewSession handles POST /api/new-session
func (h *ChatHandler) NewSession(c *gin.Context) {
	session, err := h.answerer.NewSession(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "SESSION_ERROR", "세션을 생성하지 못했습니다.")
		return
	}

	respondOK(c, http.StatusCreated, gin.H{
		"session_id": session.ID,
	})
}
