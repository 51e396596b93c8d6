package jsonfile

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/taskhive/taskhive/internal/domain/group"
	"github.com/taskhive/taskhive/internal/store"
)

type GroupsRepo struct {
	col *store.Collection
}

func NewGroupsRepo(st *store.Store) (*GroupsRepo, error) {
	col, err := st.Collection("groups")

	if err != nil {
		return nil, err
	}

	return &GroupsRepo{col: col}, nil
}

func (r *GroupsRepo) List(ctx context.Context) ([]group.Group, error) {
	docs := r.col.List()

	out := make([]group.Group, 0, len(docs))

	for _, doc := range docs {
		var g group.Group
		if err := json.Unmarshal(doc, &g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}

	return out, nil
}

func (r *GroupsRepo) GetByID(ctx context.Context, id string) (group.Group, error) {
	doc, err := r.col.Get(id)

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return group.Group{}, group.ErrNotFound
		}
		return group.Group{}, err
	}

	var g group.Group

	if err := json.Unmarshal(doc, &g); err != nil {
		return group.Group{}, err
	}

	return g, nil
}

func (r *GroupsRepo) Create(ctx context.Context, g group.Group) error {
	return r.col.Append(g)
}

func (r *GroupsRepo) Update(ctx context.Context, g group.Group) error {
	err := r.col.Replace(g.ID, g)

	if errors.Is(err, store.ErrNotFound) {
		return group.ErrNotFound
	}

	return err
}

func (r *GroupsRepo) Delete(ctx context.Context, id string) (int, error) {
	return r.col.Remove(id)
}
