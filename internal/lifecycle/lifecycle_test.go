package lifecycle_test

import (
	"errors"
	"testing"

	"github.com/taskhive/taskhive/internal/domain/task"
	"github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/lifecycle"
)

var (
	admin     = lifecycle.Actor{ID: "u-admin", Role: user.RoleAdmin}
	assignee  = lifecycle.Actor{ID: "u-emp", Role: user.RoleEmployee}
	bystander = lifecycle.Actor{ID: "u-other", Role: user.RoleEmployee}
)

func taskWithStatus(status string) task.Task {
	return task.Task{
		ID:         "t1",
		Title:      "ship it",
		Status:     status,
		AssignedTo: []string{assignee.ID},
		CreatedBy:  admin.ID,
	}
}

func strPtr(s string) *string { return &s }

func TestApplyTransitionTable(t *testing.T) {
	reason := strPtr("incomplete")

	cases := []struct {
		name    string
		from    string
		to      string
		actor   lifecycle.Actor
		change  lifecycle.Change
		wantErr error
	}{
		{name: "assignee submits pending", from: task.StatusPending, to: task.StatusSubmitted, actor: assignee},
		{name: "assignee resubmits rejected", from: task.StatusRejected, to: task.StatusSubmitted, actor: assignee},
		{name: "admin approves submitted", from: task.StatusSubmitted, to: task.StatusApproved, actor: admin},
		{name: "admin rejects submitted", from: task.StatusSubmitted, to: task.StatusRejected, actor: admin, change: lifecycle.Change{RejectionReason: reason}},

		{name: "pending cannot jump to approved", from: task.StatusPending, to: task.StatusApproved, actor: admin, wantErr: lifecycle.ErrInvalidTransition},
		{name: "pending cannot jump to rejected", from: task.StatusPending, to: task.StatusRejected, actor: admin, wantErr: lifecycle.ErrInvalidTransition},
		{name: "approved is terminal", from: task.StatusApproved, to: task.StatusSubmitted, actor: assignee, wantErr: lifecycle.ErrInvalidTransition},
		{name: "second approve is invalid even for admin", from: task.StatusApproved, to: task.StatusApproved, actor: admin, wantErr: lifecycle.ErrInvalidTransition},
		{name: "same-status move is invalid", from: task.StatusSubmitted, to: task.StatusSubmitted, actor: assignee, wantErr: lifecycle.ErrInvalidTransition},

		{name: "admin may not submit for the assignee", from: task.StatusPending, to: task.StatusSubmitted, actor: admin, wantErr: lifecycle.ErrForbidden},
		{name: "bystander may not submit", from: task.StatusPending, to: task.StatusSubmitted, actor: bystander, wantErr: lifecycle.ErrForbidden},
		{name: "assignee may not approve", from: task.StatusSubmitted, to: task.StatusApproved, actor: assignee, wantErr: lifecycle.ErrForbidden},
		{name: "assignee may not reject", from: task.StatusSubmitted, to: task.StatusRejected, actor: assignee, change: lifecycle.Change{RejectionReason: reason}, wantErr: lifecycle.ErrForbidden},

		{name: "reject without reason", from: task.StatusSubmitted, to: task.StatusRejected, actor: admin, wantErr: lifecycle.ErrReasonRequired},
		{name: "reject with empty reason", from: task.StatusSubmitted, to: task.StatusRejected, actor: admin, change: lifecycle.Change{RejectionReason: strPtr("")}, wantErr: lifecycle.ErrReasonRequired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := lifecycle.Apply(taskWithStatus(tc.from), tc.actor, tc.to, tc.change)

			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got.Status != tc.to {
				t.Fatalf("status not applied: got %q want %q", got.Status, tc.to)
			}

			if got.UpdatedAt.IsZero() {
				t.Fatal("UpdatedAt not refreshed")
			}
		})
	}
}

func TestApplySubmitCarriesProofAndNote(t *testing.T) {
	change := lifecycle.Change{
		ProofImage:     strPtr("/uploads/1-proof.png"),
		SubmissionNote: strPtr("done, see attachment"),
	}

	got, err := lifecycle.Apply(taskWithStatus(task.StatusPending), assignee, task.StatusSubmitted, change)

	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if got.ProofImage != "/uploads/1-proof.png" || got.SubmissionNote != "done, see attachment" {
		t.Fatalf("submission fields not carried: %+v", got)
	}
}

func TestApplyResubmissionClearsRejectionReason(t *testing.T) {
	tk := taskWithStatus(task.StatusRejected)
	tk.RejectionReason = "missing proof"

	got, err := lifecycle.Apply(tk, assignee, task.StatusSubmitted, lifecycle.Change{})

	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if got.RejectionReason != "" {
		t.Fatalf("stale rejection reason survived resubmission: %q", got.RejectionReason)
	}
}

func TestApplyRejectRecordsReason(t *testing.T) {
	got, err := lifecycle.Apply(taskWithStatus(task.StatusSubmitted), admin, task.StatusRejected, lifecycle.Change{RejectionReason: strPtr("not enough detail")})

	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if got.RejectionReason != "not enough detail" {
		t.Fatalf("reason not recorded: %+v", got)
	}
}

func TestCanTransitionUnknownTarget(t *testing.T) {
	if lifecycle.CanTransition(taskWithStatus(task.StatusPending), admin, task.StatusPending, "archived") {
		t.Fatal("unknown target status must not be allowed")
	}
}
