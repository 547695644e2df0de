package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/secondbrainhq/secondbrain/internal/config"
	"github.com/secondbrainhq/secondbrain/internal/http/middlewares"
)

// Asker answers a question grounded in the user's pages.
type Asker interface {
	Ask(ctx context.Context, userID, question string) (string, error)
}

// NoteAssistant derives artifacts from one note's content. Both operations
// are total functions and never surface errors.
type NoteAssistant interface {
	Summarize(ctx context.Context, content string) string
	GenerateTags(ctx context.Context, content string) []string
}

type AssistHandler struct {
	asker     Asker
	assistant NoteAssistant
}

func NewAssistHandler(asker Asker, assistant NoteAssistant) *AssistHandler {
	return &AssistHandler{
		asker:     asker,
		assistant: assistant,
	}
}

type ChatRequest struct {
	Question string `json:"question" binding:"required"`
}

type ContentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *AssistHandler) Chat(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	var req ChatRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		RespondBadRequest(ctx, "Question is required", nil)
		return
	}

	cctx, cancel := config.WithTimeout(20 * time.Second)
	defer cancel()

	answer, err := h.asker.Ask(cctx, userID, req.Question)

	if err != nil {
		RespondInternal(ctx, "Could not answer question")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"answer": answer})
}

// Summarize and Tags validate the input here; blank content never reaches
// the gateway.

func (h *AssistHandler) Summarize(ctx *gin.Context) {
	var req ContentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		RespondBadRequest(ctx, "Content is required", nil)
		return
	}

	cctx, cancel := config.WithTimeout(20 * time.Second)
	defer cancel()

	summary := h.assistant.Summarize(cctx, req.Content)

	ctx.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h *AssistHandler) Tags(ctx *gin.Context) {
	var req ContentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		RespondBadRequest(ctx, "Content is required", nil)
		return
	}

	cctx, cancel := config.WithTimeout(20 * time.Second)
	defer cancel()

	tags := h.assistant.GenerateTags(cctx, req.Content)

	ctx.JSON(http.StatusOK, gin.H{"tags": tags})
}
