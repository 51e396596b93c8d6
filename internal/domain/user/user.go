package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password"` // stored in the collection file, stripped from API output
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	Settings     *Settings `json:"settings,omitempty"`
}

// Settings is the fixed four-boolean preferences object. Pointers so a PUT
// can be rejected when any field is missing rather than silently defaulted.
type Settings struct {
	EmailNotifications *bool `json:"emailNotifications" binding:"required"`
	TaskReminders      *bool `json:"taskReminders" binding:"required"`
	ChatNotifications  *bool `json:"chatNotifications" binding:"required"`
	DarkMode           *bool `json:"darkMode" binding:"required"`
}

// DefaultSettings mirrors what the UI assumes when a user never saved any.
func DefaultSettings() Settings {
	t := true
	f := false
	return Settings{
		EmailNotifications: &t,
		TaskReminders:      &t,
		ChatNotifications:  &t,
		DarkMode:           &f,
	}
}

// Public is the wire shape of a user with the credential secret stripped.
type Public struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	Settings  *Settings `json:"settings,omitempty"`
}

func (u User) Stripped() Public {
	return Public{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		Settings:  u.Settings,
	}
}

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=40"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required,min=2,max=80"`
	Role     string `json:"role" binding:"required,oneof=admin employee"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=admin employee"`
}

func NewFromRegisterRequest(req RegisterRequest, passwordHash string) User {
	return User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		Name:         req.Name,
		Role:         req.Role,
		CreatedAt:    time.Now().UTC(),
	}
}
