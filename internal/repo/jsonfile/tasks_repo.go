package jsonfile

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/taskhive/taskhive/internal/domain/task"
	"github.com/taskhive/taskhive/internal/store"
)

type TasksRepo struct {
	col *store.Collection
}

func NewTasksRepo(st *store.Store) (*TasksRepo, error) {
	col, err := st.Collection("tasks")

	if err != nil {
		return nil, err
	}

	return &TasksRepo{col: col}, nil
}

func (r *TasksRepo) List(ctx context.Context) ([]task.Task, error) {
	docs := r.col.List()

	out := make([]task.Task, 0, len(docs))

	for _, doc := range docs {
		var t task.Task
		if err := json.Unmarshal(doc, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	return out, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, id string) (task.Task, error) {
	doc, err := r.col.Get(id)

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, err
	}

	var t task.Task

	if err := json.Unmarshal(doc, &t); err != nil {
		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) Create(ctx context.Context, t task.Task) error {
	return r.col.Append(t)
}

// Update replaces the full task record stored under t.ID.
func (r *TasksRepo) Update(ctx context.Context, t task.Task) error {
	err := r.col.Replace(t.ID, t)

	if errors.Is(err, store.ErrNotFound) {
		return task.ErrNotFound
	}

	return err
}

// PatchFields overlays raw fields onto the stored record; used for writes
// that touch a single field, like attaching a proof reference.
func (r *TasksRepo) PatchFields(ctx context.Context, id string, fields map[string]any) (task.Task, error) {
	doc, err := r.col.Patch(id, fields)

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, err
	}

	var t task.Task

	if err := json.Unmarshal(doc, &t); err != nil {
		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) Delete(ctx context.Context, id string) (int, error) {
	return r.col.Remove(id)
}

// ReferencesUser reports whether any task still points at the user, either
// as an assignee or as the creator. Guards user deletion.
func (r *TasksRepo) ReferencesUser(ctx context.Context, userID string) (bool, error) {
	tasks, err := r.List(ctx)

	if err != nil {
		return false, err
	}

	for _, t := range tasks {
		if t.CreatedBy == userID || t.IsAssignee(userID) {
			return true, nil
		}
	}

	return false, nil
}
