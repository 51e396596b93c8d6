package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/http/middlewares"
)

type SettingsRepository interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdateSettings(ctx context.Context, id string, s user.Settings) (user.User, error)
}

type SettingsHandler struct {
	repo SettingsRepository
}

func NewSettingsHandler(repo SettingsRepository) *SettingsHandler {
	return &SettingsHandler{repo: repo}
}

func (h *SettingsHandler) GetSettings(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not fetch settings")
		return
	}

	if u.Settings == nil {
		defaults := user.DefaultSettings()
		ctx.JSON(http.StatusOK, defaults)
		return
	}

	ctx.JSON(http.StatusOK, u.Settings)
}

// UpdateSettings requires the caller to own the settings (or be an admin);
// the original UI never checked this, the API does.
func (h *SettingsHandler) UpdateSettings(ctx *gin.Context) {
	id := ctx.Param("id")

	callerID, _ := middlewares.UserIDFromContext(ctx)
	role, _ := middlewares.RoleFromContext(ctx)

	if callerID != id && role != user.RoleAdmin {
		RespondForbidden(ctx, "Settings can only be changed by their owner")
		return
	}

	var req user.Settings

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.repo.UpdateSettings(cctx, id, req)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not update settings")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Settings updated successfully",
		"settings": u.Settings,
	})
}
