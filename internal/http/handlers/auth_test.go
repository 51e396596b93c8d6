package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/http/handlers"
	"github.com/taskhive/taskhive/internal/security"
)

// Fakes for the handlers.UserReader, handlers.UserWriter and
// handlers.TokenIssuer interfaces.

type fakeUsersStore struct {
	getByUsernameFn func(ctx context.Context, username string) (user.User, error)
	createFn        func(ctx context.Context, u user.User) error
}

func (f *fakeUsersStore) GetByUsername(ctx context.Context, username string) (user.User, error) {
	if f.getByUsernameFn != nil {
		return f.getByUsernameFn(ctx, username)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersStore) Create(ctx context.Context, u user.User) error {
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}
	return nil
}

type fakeIssuer struct {
	err error
}

func (f *fakeIssuer) GenerateAccessToken(userID, username, role string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-for-" + userID, nil
}

func authRouter(path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.POST(path, h)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, url, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, url, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestLoginHandler(t *testing.T) {
	hash, err := security.HashPassword("employee123")

	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	stored := user.User{
		ID:           "u-emp",
		Username:     "employee1",
		PasswordHash: hash,
		Name:         "Employee One",
		Role:         user.RoleEmployee,
	}

	tests := []struct {
		name           string
		body           string
		storeSetup     func(*fakeUsersStore)
		wantStatusCode int
	}{
		{
			name: "success",
			body: `{"username": "employee1", "password": "employee123", "role": "employee"}`,
			storeSetup: func(f *fakeUsersStore) {
				f.getByUsernameFn = func(ctx context.Context, username string) (user.User, error) {
					return stored, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "unknown_username",
			body:           `{"username": "ghost", "password": "employee123", "role": "employee"}`,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name: "wrong_password",
			body: `{"username": "employee1", "password": "nope", "role": "employee"}`,
			storeSetup: func(f *fakeUsersStore) {
				f.getByUsernameFn = func(ctx context.Context, username string) (user.User, error) {
					return stored, nil
				}
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			// role is part of the credential triple
			name: "wrong_role",
			body: `{"username": "employee1", "password": "employee123", "role": "admin"}`,
			storeSetup: func(f *fakeUsersStore) {
				f.getByUsernameFn = func(ctx context.Context, username string) (user.User, error) {
					return stored, nil
				}
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "validation_error_missing_role",
			body:           `{"username": "employee1", "password": "employee123"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUsersStore{}

			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := handlers.NewAuthHandler(store, store, &fakeIssuer{})
			r := authRouter("/auth/login", h.Login)

			w := postJSON(t, r, "/auth/login", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusOK {
				var resp struct {
					Success     bool        `json:"success"`
					AccessToken string      `json:"accessToken"`
					User        user.Public `json:"user"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if !resp.Success || resp.AccessToken == "" {
					t.Fatalf("incomplete login response: %s", w.Body.String())
				}
				if resp.User.ID != stored.ID {
					t.Fatalf("wrong user in response: %+v", resp.User)
				}
			}

			// the password hash must never appear in a response
			if bytes.Contains(w.Body.Bytes(), []byte(hash)) {
				t.Fatalf("password hash leaked: %s", w.Body.String())
			}
		})
	}
}

func TestRegisterHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		storeSetup     func(*fakeUsersStore)
		wantStatusCode int
		wantErrCode    string
	}{
		{
			name:           "success",
			body:           `{"username": "newbie", "password": "secret1", "name": "New Person", "role": "employee"}`,
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "duplicate_username",
			body: `{"username": "employee1", "password": "secret1", "name": "Imposter", "role": "employee"}`,
			storeSetup: func(f *fakeUsersStore) {
				f.createFn = func(ctx context.Context, u user.User) error {
					return user.ErrUsernameTaken
				}
			},
			wantStatusCode: http.StatusBadRequest,
			wantErrCode:    "username_taken",
		},
		{
			name:           "validation_error_short_password",
			body:           `{"username": "newbie", "password": "abc", "name": "New Person", "role": "employee"}`,
			wantStatusCode: http.StatusBadRequest,
			wantErrCode:    "invalid_request",
		},
		{
			name:           "validation_error_bad_role",
			body:           `{"username": "newbie", "password": "secret1", "name": "New Person", "role": "superuser"}`,
			wantStatusCode: http.StatusBadRequest,
			wantErrCode:    "invalid_request",
		},
		{
			name: "store_error",
			body: `{"username": "newbie", "password": "secret1", "name": "New Person", "role": "employee"}`,
			storeSetup: func(f *fakeUsersStore) {
				f.createFn = func(ctx context.Context, u user.User) error {
					return errors.New("disk full")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUsersStore{}

			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := handlers.NewAuthHandler(store, store, &fakeIssuer{})
			r := authRouter("/auth/register", h.Register)

			w := postJSON(t, r, "/auth/register", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantErrCode != "" {
				var resp struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal error response: %v", err)
				}
				if resp.Error.Code != tt.wantErrCode {
					t.Fatalf("got error code %q, want %q", resp.Error.Code, tt.wantErrCode)
				}
			}
		})
	}
}

func TestRegisterHandlerStoresHashedPassword(t *testing.T) {
	var created user.User

	store := &fakeUsersStore{
		createFn: func(ctx context.Context, u user.User) error {
			created = u
			return nil
		},
	}

	h := handlers.NewAuthHandler(store, store, &fakeIssuer{})
	r := authRouter("/auth/register", h.Register)

	w := postJSON(t, r, "/auth/register", `{"username": "newbie", "password": "secret1", "name": "New Person", "role": "employee"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if created.PasswordHash == "secret1" || created.PasswordHash == "" {
		t.Fatalf("password must be stored hashed, got %q", created.PasswordHash)
	}

	if err := security.CheckPassword(created.PasswordHash, "secret1"); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}
