package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/secondbrainhq/secondbrain/internal/config"
	"github.com/secondbrainhq/secondbrain/internal/domain/knowledge"
	"github.com/secondbrainhq/secondbrain/internal/http/middlewares"
)

type PagesService interface {
	CreatePage(ctx context.Context, userID string, req knowledge.CreatePageRequest) (knowledge.Page, error)
	GetPage(ctx context.Context, id, userID string) (knowledge.Page, error)
	UpdatePage(ctx context.Context, id, userID string, req knowledge.UpdatePageRequest) (knowledge.Page, error)
	DeletePage(ctx context.Context, id, userID string) error
}

type PagesHandler struct {
	svc PagesService
}

func NewPagesHandler(svc PagesService) *PagesHandler {
	return &PagesHandler{svc: svc}
}

// Create saves a page. The save-path summary may call out to the AI
// gateway, hence the generous timeout; the gateway itself degrades rather
// than failing the save.
func (h *PagesHandler) Create(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	var req knowledge.CreatePageRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(20 * time.Second)
	defer cancel()

	page, err := h.svc.CreatePage(cctx, userID, req)

	if err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			RespondNotFound(ctx, "Notebook not found")
			return
		}

		RespondInternal(ctx, "Could not create page")
		return
	}

	ctx.JSON(http.StatusCreated, page)
}

func (h *PagesHandler) GetByID(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	page, err := h.svc.GetPage(cctx, ctx.Param("id"), userID)

	if err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			RespondNotFound(ctx, "Page not found")
			return
		}

		RespondInternal(ctx, "Could not fetch page")
		return
	}

	ctx.JSON(http.StatusOK, page)
}

func (h *PagesHandler) Update(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	var req knowledge.UpdatePageRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(20 * time.Second)
	defer cancel()

	page, err := h.svc.UpdatePage(cctx, ctx.Param("id"), userID, req)

	if err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			RespondNotFound(ctx, "Page not found")
			return
		}

		RespondInternal(ctx, "Could not update page")
		return
	}

	ctx.JSON(http.StatusOK, page)
}

func (h *PagesHandler) Delete(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.svc.DeletePage(cctx, ctx.Param("id"), userID)

	if err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			RespondNotFound(ctx, "Page not found")
			return
		}

		RespondInternal(ctx, "Could not delete page")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Page deleted successfully"})
}
