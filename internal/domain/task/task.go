package task

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	AssignedTo      []string   `json:"assignedTo"`
	CreatedBy       string     `json:"createdBy"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	ProofImage      string     `json:"proofImage,omitempty"`
	SubmissionNote  string     `json:"submissionNote,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

var ErrNotFound = errors.New("task not found")

type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required,min=3,max=160"`
	Description string     `json:"description" binding:"omitempty,max=2000"`
	AssignedTo  []string   `json:"assignedTo" binding:"required,min=1,dive,required"`
	Priority    string     `json:"priority" binding:"required,oneof=low medium high"`
	Deadline    *time.Time `json:"deadline" binding:"omitempty"`
	// Client-supplied status is ignored: every new task starts pending.
	Status string `json:"status" binding:"-"`
}

// UpdateTaskRequest is a merge-update: nil fields are left untouched.
type UpdateTaskRequest struct {
	Title           *string    `json:"title" binding:"omitempty,min=3,max=160"`
	Description     *string    `json:"description" binding:"omitempty,max=2000"`
	AssignedTo      []string   `json:"assignedTo" binding:"omitempty,min=1,dive,required"`
	Priority        *string    `json:"priority" binding:"omitempty,oneof=low medium high"`
	Deadline        *time.Time `json:"deadline" binding:"omitempty"`
	Status          *string    `json:"status" binding:"omitempty,oneof=pending submitted approved rejected"`
	ProofImage      *string    `json:"proofImage" binding:"omitempty"`
	SubmissionNote  *string    `json:"submissionNote" binding:"omitempty,max=2000"`
	RejectionReason *string    `json:"rejectionReason" binding:"omitempty,max=2000"`
}

func NewFromCreateRequest(req CreateTaskRequest, createdBy string) Task {
	now := time.Now().UTC()

	return Task{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		CreatedBy:   createdBy,
		Status:      StatusPending,
		Priority:    req.Priority,
		Deadline:    req.Deadline,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsAssignee reports whether userID is in the task's assignedTo set.
func (t Task) IsAssignee(userID string) bool {
	for _, id := range t.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}

// Recipients is the notification audience for a task change:
// assignedTo union the creator, deduplicated.
func (t Task) Recipients() []string {
	seen := make(map[string]struct{}, len(t.AssignedTo)+1)
	out := make([]string, 0, len(t.AssignedTo)+1)

	for _, id := range append([]string{}, t.AssignedTo...) {
		if _, ok := seen[id]; !ok && id != "" {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}

	if t.CreatedBy != "" {
		if _, ok := seen[t.CreatedBy]; !ok {
			out = append(out, t.CreatedBy)
		}
	}

	return out
}
