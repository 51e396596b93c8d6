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

type UsersRepository interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, u user.User) error
	Delete(ctx context.Context, id string) (int, error)
}

// TaskReferenceChecker guards user deletion: a user still referenced by any
// task cannot be removed.
type TaskReferenceChecker interface {
	ReferencesUser(ctx context.Context, userID string) (bool, error)
}

type UsersHandler struct {
	repo  UsersRepository
	tasks TaskReferenceChecker
}

func NewUsersHandler(repo UsersRepository, tasks TaskReferenceChecker) *UsersHandler {
	return &UsersHandler{repo: repo, tasks: tasks}
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	users, err := h.repo.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	out := make([]user.Public, 0, len(users))

	for _, u := range users {
		out = append(out, u.Stripped())
	}

	RespondJSONWithETag(ctx, http.StatusOK, out)
}

func (h *UsersHandler) CreateUser(ctx *gin.Context) {
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

	if err := h.repo.Create(cctx, u); err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			RespondError(ctx, http.StatusBadRequest, "username_taken", "Username already exists", nil)
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, u.Stripped())
}

// DeleteUser refuses to remove a user any task still references, so the
// task collection never holds dangling assignee or creator ids.
func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if _, err := h.repo.GetByID(cctx, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not delete user")
		return
	}

	referenced, err := h.tasks.ReferencesUser(cctx, id)

	if err != nil {
		RespondInternal(ctx, "Could not delete user")
		return
	}

	if referenced {
		RespondConflict(ctx, "user_referenced", "User is still referenced by one or more tasks")
		return
	}

	removed, err := h.repo.Delete(cctx, id)

	if err != nil {
		RespondInternal(ctx, "Could not delete user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"removed": removed})
}
