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

type NotebooksService interface {
	CreateNotebook(ctx context.Context, userID, title string) (knowledge.Notebook, error)
	ListNotebooks(ctx context.Context, userID string) ([]knowledge.Notebook, error)
	GetNotebook(ctx context.Context, id, userID string) (knowledge.Notebook, error)
	RenameNotebook(ctx context.Context, id, userID, title string) (knowledge.Notebook, error)
	DeleteNotebook(ctx context.Context, id, userID string) error
	SearchNotebooks(ctx context.Context, userID, query string) ([]knowledge.Notebook, error)
}

type NotebooksHandler struct {
	svc NotebooksService
}

func NewNotebooksHandler(svc NotebooksService) *NotebooksHandler {
	return &NotebooksHandler{svc: svc}
}

func (h *NotebooksHandler) Create(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	var req knowledge.CreateNotebookRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	nb, err := h.svc.CreateNotebook(cctx, userID, req.Title)

	if err != nil {
		RespondInternal(ctx, "Could not create notebook")
		return
	}

	ctx.JSON(http.StatusCreated, nb)
}

func (h *NotebooksHandler) List(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	notebooks, err := h.svc.ListNotebooks(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not list notebooks")
		return
	}

	ctx.JSON(http.StatusOK, notebooks)
}

func (h *NotebooksHandler) GetByID(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	nb, err := h.svc.GetNotebook(cctx, ctx.Param("id"), userID)

	if err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			RespondNotFound(ctx, "Notebook not found")
			return
		}

		RespondInternal(ctx, "Could not fetch notebook")
		return
	}

	ctx.JSON(http.StatusOK, nb)
}

func (h *NotebooksHandler) Update(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	var req knowledge.UpdateNotebookRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	nb, err := h.svc.RenameNotebook(cctx, ctx.Param("id"), userID, req.Title)

	if err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			RespondNotFound(ctx, "Notebook not found")
			return
		}

		RespondInternal(ctx, "Could not update notebook")
		return
	}

	ctx.JSON(http.StatusOK, nb)
}

func (h *NotebooksHandler) Delete(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	err := h.svc.DeleteNotebook(cctx, ctx.Param("id"), userID)

	if err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			RespondNotFound(ctx, "Notebook not found")
			return
		}

		RespondInternal(ctx, "Could not delete notebook")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Deleted successfully"})
}

func (h *NotebooksHandler) Search(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	notebooks, err := h.svc.SearchNotebooks(cctx, userID, ctx.Query("q"))

	if err != nil {
		RespondInternal(ctx, "Could not search notebooks")
		return
	}

	ctx.JSON(http.StatusOK, notebooks)
}
