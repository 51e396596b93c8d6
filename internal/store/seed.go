package store

import (
	"log/slog"

	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/security"
)

// EnsureSeedUsers creates the first-run admin and employee accounts when the
// users collection is empty, so a fresh deployment is immediately usable.
func EnsureSeedUsers(st *Store, cfg config.Config, log *slog.Logger) error {
	users, err := st.Collection("users")

	if err != nil {
		return err
	}

	if users.Len() > 0 {
		return nil
	}

	seeds := []struct {
		username string
		name     string
		role     string
		password string
	}{
		{username: "admin", name: "Admin User", role: user.RoleAdmin, password: cfg.SeedAdminPassword},
		{username: "employee1", name: "Employee One", role: user.RoleEmployee, password: cfg.SeedEmployeePassword},
	}

	for _, s := range seeds {
		hash, err := security.HashPassword(s.password)

		if err != nil {
			return err
		}

		u := user.NewFromRegisterRequest(user.RegisterRequest{
			Username: s.username,
			Password: s.password,
			Name:     s.name,
			Role:     s.role,
		}, hash)

		if err := users.Append(u); err != nil {
			return err
		}

		log.Info("seeded user", "username", s.username, "role", s.role)
	}

	return nil
}
