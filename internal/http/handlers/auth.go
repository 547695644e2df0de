package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/secondbrainhq/secondbrain/internal/config"
	"github.com/secondbrainhq/secondbrain/internal/domain/user"
	"github.com/secondbrainhq/secondbrain/internal/http/middlewares"
	"github.com/secondbrainhq/secondbrain/internal/repo/postgres"
	"github.com/secondbrainhq/secondbrain/internal/security"
)

type UserStore interface {
	Create(ctx context.Context, email, password, name string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	UpdateName(ctx context.Context, id, name string) (user.User, error)
}

type TokenIssuer interface {
	Issue(userID string) (token string, expiresAt time.Time, err error)
}

type AuthHandler struct {
	users  UserStore
	tokens TokenIssuer
	cfg    config.Config
}

func NewAuthHandler(users UserStore, tokens TokenIssuer, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:  users,
		tokens: tokens,
		cfg:    cfg,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"omitempty,max=120"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateMeRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)

	if name == "" {
		// default the display name to the mailbox part of the address
		name, _, _ = strings.Cut(req.Email, "@")
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.Create(cctx, req.Email, req.Password, name)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email already registered.")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	if !h.startSession(ctx, u.ID) {
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": u.Identity()})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		// same message whether the email or the password was wrong
		RespondUnauthorized(ctx, "Email or password is incorrect.")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnauthorized(ctx, "Email or password is incorrect.")
		return
	}

	if !h.startSession(ctx, foundUser.ID) {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": foundUser.Identity()})
}

// Logout clears the cookie. Tokens are stateless so there is nothing to
// revoke server-side; an already-issued token stays valid until expiry.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	middlewares.ClearSessionCookie(ctx)

	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": identity})
}

func (h *AuthHandler) UpdateMe(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	var req UpdateMeRequest

	if !BindJSON(ctx, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)

	if name == "" {
		RespondBadRequest(ctx, "Name is required", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.UpdateName(cctx, identity.ID, name)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not update profile")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u.Identity()})
}

// startSession issues a token and sets the session cookie. Returns false
// after writing an error response.
func (h *AuthHandler) startSession(ctx *gin.Context, userID string) bool {
	token, _, err := h.tokens.Issue(userID)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return false
	}

	middlewares.SetSessionCookie(ctx, token, h.cfg.SessionTTL())

	return true
}
