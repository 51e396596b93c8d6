package jsonfile

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/store"
)

type UsersRepo struct {
	col *store.Collection
}

func NewUsersRepo(st *store.Store) (*UsersRepo, error) {
	col, err := st.Collection("users")

	if err != nil {
		return nil, err
	}

	return &UsersRepo{col: col}, nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	docs := r.col.List()

	out := make([]user.User, 0, len(docs))

	for _, doc := range docs {
		var u user.User
		if err := json.Unmarshal(doc, &u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}

	return out, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	doc, err := r.col.Get(id)

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	var u user.User

	if err := json.Unmarshal(doc, &u); err != nil {
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	users, err := r.List(ctx)

	if err != nil {
		return user.User{}, err
	}

	for _, u := range users {
		if u.Username == username {
			return u, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

// Create appends a new user; a taken username maps to user.ErrUsernameTaken.
func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	if _, err := r.GetByUsername(ctx, u.Username); err == nil {
		return user.ErrUsernameTaken
	} else if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	return r.col.Append(u)
}

// UpdateSettings overlays the settings object onto the stored user.
func (r *UsersRepo) UpdateSettings(ctx context.Context, id string, s user.Settings) (user.User, error) {
	doc, err := r.col.Patch(id, map[string]any{"settings": s})

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	var u user.User

	if err := json.Unmarshal(doc, &u); err != nil {
		return user.User{}, err
	}

	return u, nil
}

// Delete removes the user; deleting an absent id is a no-op.
func (r *UsersRepo) Delete(ctx context.Context, id string) (int, error) {
	return r.col.Remove(id)
}

func (r *UsersRepo) Count(ctx context.Context) int {
	return r.col.Len()
}
