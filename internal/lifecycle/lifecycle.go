package lifecycle

import (
	"errors"
	"time"

	"github.com/taskhive/taskhive/internal/domain/task"
	"github.com/taskhive/taskhive/internal/domain/user"
)

var (
	ErrInvalidTransition = errors.New("invalid task status transition")
	ErrForbidden         = errors.New("actor may not perform this transition")
	ErrReasonRequired    = errors.New("rejection requires a non-empty reason")
)

// Actor is the authenticated caller attempting a transition.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == user.RoleAdmin
}

// Change carries the transition-scoped fields a caller may set alongside a
// status move.
type Change struct {
	ProofImage      *string
	SubmissionNote  *string
	RejectionReason *string
}

// allowed is the status state machine. approved is hard-terminal; rejected
// loops back to submitted via resubmission.
var allowed = map[string][]string{
	task.StatusPending:   {task.StatusSubmitted},
	task.StatusRejected:  {task.StatusSubmitted},
	task.StatusSubmitted: {task.StatusApproved, task.StatusRejected},
	task.StatusApproved:  {},
}

func transitionExists(from, to string) bool {
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransition is the single policy point consulted for every status move:
// submission (and resubmission) is assignee-only, approval and rejection are
// admin-only.
func CanTransition(t task.Task, actor Actor, from, to string) bool {
	if !transitionExists(from, to) {
		return false
	}

	switch to {
	case task.StatusSubmitted:
		return t.IsAssignee(actor.ID)
	case task.StatusApproved, task.StatusRejected:
		return actor.IsAdmin()
	}

	return false
}

// Apply validates the requested transition and returns the updated task.
// The state table is checked before the actor policy so that an impossible
// move (a second approve, say) reads as ErrInvalidTransition even for an
// admin.
func Apply(t task.Task, actor Actor, to string, change Change) (task.Task, error) {
	from := t.Status

	if !transitionExists(from, to) {
		return task.Task{}, ErrInvalidTransition
	}

	if !CanTransition(t, actor, from, to) {
		return task.Task{}, ErrForbidden
	}

	switch to {
	case task.StatusSubmitted:
		if change.ProofImage != nil {
			t.ProofImage = *change.ProofImage
		}
		if change.SubmissionNote != nil {
			t.SubmissionNote = *change.SubmissionNote
		}
		// a resubmission supersedes the previous rejection
		t.RejectionReason = ""

	case task.StatusRejected:
		if change.RejectionReason == nil || *change.RejectionReason == "" {
			return task.Task{}, ErrReasonRequired
		}
		t.RejectionReason = *change.RejectionReason
	}

	t.Status = to
	t.UpdatedAt = time.Now().UTC()

	return t, nil
}
