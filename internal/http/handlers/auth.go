package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/security"
)

type UserReader interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, u user.User) error
}

type TokenIssuer interface {
	GenerateAccessToken(userID, username, role string) (string, error)
}

type AuthHandler struct {
	users  UserReader
	writer UserWriter
	jwt    TokenIssuer
}

func NewAuthHandler(users UserReader, writer UserWriter, jwt TokenIssuer) *AuthHandler {
	return &AuthHandler{
		users:  users,
		writer: writer,
		jwt:    jwt,
	}
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	found, err := h.users.GetByUsername(cctx, req.Username)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid username, password, or role")
		return
	}

	// role is part of the credential triple here: the dashboards are
	// role-specific and the UI sends which one it is logging into
	if found.Role != req.Role {
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid username, password, or role")
		return
	}

	if err := security.CheckPassword(found.PasswordHash, req.Password); err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid username, password, or role")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(found.ID, found.Username, found.Role)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":     true,
		"user":        found.Stripped(),
		"accessToken": accessToken,
	})
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u := user.NewFromRegisterRequest(req, hash)

	if err := h.writer.Create(cctx, u); err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			RespondError(ctx, http.StatusBadRequest, "username_taken", "Username already exists", nil)
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(u.ID, u.Username, u.Role)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"message":     "Registration successful",
		"user":        u.Stripped(),
		"accessToken": accessToken,
	})
}
