package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/domain/group"
	"github.com/taskhive/taskhive/internal/http/middlewares"
)

type GroupsRepository interface {
	List(ctx context.Context) ([]group.Group, error)
	GetByID(ctx context.Context, id string) (group.Group, error)
	Create(ctx context.Context, g group.Group) error
	Update(ctx context.Context, g group.Group) error
	Delete(ctx context.Context, id string) (int, error)
}

type GroupsHandler struct {
	repo GroupsRepository
}

func NewGroupsHandler(repo GroupsRepository) *GroupsHandler {
	return &GroupsHandler{repo: repo}
}

func (h *GroupsHandler) ListGroups(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	groups, err := h.repo.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list groups")
		return
	}

	ctx.JSON(http.StatusOK, groups)
}

func (h *GroupsHandler) CreateGroup(ctx *gin.Context) {
	var req group.CreateGroupRequest

	if !BindJSON(ctx, &req) {
		return
	}

	callerID, _ := middlewares.UserIDFromContext(ctx)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	g := group.NewFromCreateRequest(req, callerID)

	if err := h.repo.Create(cctx, g); err != nil {
		RespondInternal(ctx, "Could not create group")
		return
	}

	ctx.JSON(http.StatusCreated, g)
}

func (h *GroupsHandler) UpdateGroup(ctx *gin.Context) {
	id := ctx.Param("id")

	var req group.UpdateGroupRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	g, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, group.ErrNotFound) {
			RespondNotFound(ctx, "Group not found")
			return
		}
		RespondInternal(ctx, "Could not update group")
		return
	}

	if req.Name != nil {
		g.Name = *req.Name
	}
	if len(req.Members) > 0 {
		g.Members = req.Members
	}

	if err := h.repo.Update(cctx, g); err != nil {
		RespondInternal(ctx, "Could not update group")
		return
	}

	ctx.JSON(http.StatusOK, g)
}

func (h *GroupsHandler) DeleteGroup(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	removed, err := h.repo.Delete(cctx, id)

	if err != nil {
		RespondInternal(ctx, "Could not delete group")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"removed": removed})
}
