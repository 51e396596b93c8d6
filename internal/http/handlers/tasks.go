package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/domain/task"
	"github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/http/middlewares"
	"github.com/taskhive/taskhive/internal/hub"
	"github.com/taskhive/taskhive/internal/lifecycle"
)

type TasksRepository interface {
	List(ctx context.Context) ([]task.Task, error)
	GetByID(ctx context.Context, id string) (task.Task, error)
	Create(ctx context.Context, t task.Task) error
	Update(ctx context.Context, t task.Task) error
	PatchFields(ctx context.Context, id string, fields map[string]any) (task.Task, error)
	Delete(ctx context.Context, id string) (int, error)
}

// Publisher is the slice of the notification hub the gateway needs.
type Publisher interface {
	Publish(recipientID, eventType string, payload any) int
	PublishAll(recipientIDs []string, eventType string, payload any)
}

type TasksHandler struct {
	repo       TasksRepository
	publisher  Publisher
	uploadsDir string
}

func NewTasksHandler(repo TasksRepository, publisher Publisher, uploadsDir string) *TasksHandler {
	return &TasksHandler{
		repo:       repo,
		publisher:  publisher,
		uploadsDir: uploadsDir,
	}
}

func actorFrom(ctx *gin.Context) lifecycle.Actor {
	id, _ := middlewares.UserIDFromContext(ctx)
	role, _ := middlewares.RoleFromContext(ctx)

	return lifecycle.Actor{ID: id, Role: role}
}

func (h *TasksHandler) ListTasks(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	tasks, err := h.repo.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list tasks")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, tasks)
}

func (h *TasksHandler) GetTaskByID(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	t, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}
		RespondInternal(ctx, "Could not fetch task")
		return
	}

	ctx.JSON(http.StatusOK, t)
}

// CreateTask always starts the task at pending: any client-supplied status
// is ignored by the factory.
func (h *TasksHandler) CreateTask(ctx *gin.Context) {
	var req task.CreateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	actor := actorFrom(ctx)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	t := task.NewFromCreateRequest(req, actor.ID)

	if err := h.repo.Create(cctx, t); err != nil {
		RespondInternal(ctx, "Could not create task")
		return
	}

	h.publisher.PublishAll(t.AssignedTo, hub.EventTaskUpdate, t)

	ctx.JSON(http.StatusCreated, t)
}

// UpdateTask is a merge-update. A supplied status field is routed through
// the lifecycle engine with the caller as actor; everything else overlays
// the stored record field by field. The id and createdBy are immutable.
func (h *TasksHandler) UpdateTask(ctx *gin.Context) {
	id := ctx.Param("id")

	var req task.UpdateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	actor := actorFrom(ctx)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	t, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}
		RespondInternal(ctx, "Could not update task")
		return
	}

	if !actor.IsAdmin() && actor.ID != t.CreatedBy && !t.IsAssignee(actor.ID) {
		RespondForbidden(ctx, "Only the creator, an assignee, or an admin may update a task")
		return
	}

	merged := mergeTask(t, req)

	if req.Status != nil {
		merged, err = lifecycle.Apply(merged, actor, *req.Status, lifecycle.Change{
			ProofImage:      req.ProofImage,
			SubmissionNote:  req.SubmissionNote,
			RejectionReason: req.RejectionReason,
		})

		if err != nil {
			respondLifecycleError(ctx, err)
			return
		}
	} else {
		// non-status merges still set the transition-scoped fields
		if req.ProofImage != nil {
			merged.ProofImage = *req.ProofImage
		}
		if req.SubmissionNote != nil {
			merged.SubmissionNote = *req.SubmissionNote
		}
		merged.UpdatedAt = time.Now().UTC()
	}

	if err := h.repo.Update(cctx, merged); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}
		RespondInternal(ctx, "Could not update task")
		return
	}

	h.publisher.PublishAll(merged.Recipients(), hub.EventTaskUpdate, merged)

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task updated successfully",
		"task":    merged,
	})
}

func mergeTask(t task.Task, req task.UpdateTaskRequest) task.Task {
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if len(req.AssignedTo) > 0 {
		t.AssignedTo = req.AssignedTo
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	if req.Deadline != nil {
		t.Deadline = req.Deadline
	}

	return t
}

func respondLifecycleError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		RespondError(ctx, http.StatusBadRequest, "invalid_transition", "Task status cannot change that way", nil)
	case errors.Is(err, lifecycle.ErrReasonRequired):
		RespondError(ctx, http.StatusBadRequest, "reason_required", "Rejection requires a non-empty reason", nil)
	case errors.Is(err, lifecycle.ErrForbidden):
		RespondForbidden(ctx, "You may not perform this transition")
	default:
		RespondInternal(ctx, "Could not update task")
	}
}

func (h *TasksHandler) DeleteTask(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	t, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}
		RespondInternal(ctx, "Could not delete task")
		return
	}

	removed, err := h.repo.Delete(cctx, id)

	if err != nil {
		RespondInternal(ctx, "Could not delete task")
		return
	}

	// last notice so open dashboards drop the task
	h.publisher.PublishAll(t.Recipients(), hub.EventTaskUpdate, t)

	ctx.JSON(http.StatusOK, gin.H{"removed": removed})
}

// UploadProof stores the multipart "proof" file and patches the task's
// proof reference. The status stays unchanged; submission happens through
// the task update with status=submitted.
func (h *TasksHandler) UploadProof(ctx *gin.Context) {
	id := ctx.Param("id")

	file, err := ctx.FormFile("proof")

	if err != nil {
		RespondBadRequest(ctx, "No file uploaded", nil)
		return
	}

	actor := actorFrom(ctx)

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	t, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}
		RespondInternal(ctx, "Could not store proof")
		return
	}

	if !t.IsAssignee(actor.ID) && actor.Role != user.RoleAdmin {
		RespondForbidden(ctx, "Only an assignee may attach proof")
		return
	}

	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filepath.Base(file.Filename))

	if err := ctx.SaveUploadedFile(file, filepath.Join(h.uploadsDir, name)); err != nil {
		RespondInternal(ctx, "Could not store proof")
		return
	}

	proofImage := "/uploads/" + name

	if _, err := h.repo.PatchFields(cctx, id, map[string]any{
		"proofImage": proofImage,
		"updatedAt":  time.Now().UTC(),
	}); err != nil {
		RespondInternal(ctx, "Could not store proof")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"proofImage": proofImage})
}
