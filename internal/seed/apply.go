package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/authcore/internal/logger"
	"github.com/dtroode/authcore/internal/model"
	"github.com/dtroode/authcore/internal/service"
)

// Report counts what an Apply run changed.
type Report struct {
	UsersCreated  int
	RolesAssigned int
}

// Applier writes a Document through the stores. Users are created directly
// with hashed passwords; the password policy does not apply to seeds.
type Applier struct {
	roles  model.RoleStore
	users  model.UserStore
	hasher model.PasswordHasher
	logger *logger.Logger
}

func NewApplier(roles model.RoleStore, users model.UserStore, hasher model.PasswordHasher, logger *logger.Logger) *Applier {
	return &Applier{roles: roles, users: users, hasher: hasher, logger: logger}
}

// Apply makes the store match doc. Role permission sets are replaced;
// user roles are only ever added, so assignments made since the last run
// survive.
func (a *Applier) Apply(ctx context.Context, doc *Document) (Report, error) {
	var report Report

	for _, name := range doc.Permissions {
		if _, err := a.roles.EnsurePermission(ctx, name); err != nil {
			return report, fmt.Errorf("failed to ensure permission %q: %w", name, err)
		}
	}

	for _, role := range doc.Roles {
		if _, err := a.roles.EnsureRole(ctx, role.Name); err != nil {
			return report, fmt.Errorf("failed to ensure role %q: %w", role.Name, err)
		}
		perms := doc.RolePermissions(role)
		if err := a.roles.SetRolePermissions(ctx, role.Name, perms); err != nil {
			return report, fmt.Errorf("failed to set permissions of role %q: %w", role.Name, err)
		}
		a.logger.Debug("Seed: role permissions set", "role", role.Name, "permissions", len(perms))
	}

	for _, u := range doc.Users {
		created, assigned, err := a.applyUser(ctx, u)
		if err != nil {
			return report, fmt.Errorf("failed to seed user %q: %w", u.Email, err)
		}
		if created {
			report.UsersCreated++
		}
		report.RolesAssigned += assigned
	}

	a.logger.Info("Seed: applied",
		"users_created", report.UsersCreated,
		"roles_assigned", report.RolesAssigned)

	return report, nil
}

func (a *Applier) applyUser(ctx context.Context, u User) (bool, int, error) {
	email := service.NormalizeEmail(u.Email)

	created := false
	user, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		hash, err := a.hasher.Hash(u.Password)
		if err != nil {
			return false, 0, err
		}
		user, err = a.users.Create(ctx, model.User{Email: email, PasswordHash: hash})
		if err != nil {
			return false, 0, err
		}
		created = true
		a.logger.Info("Seed: user created", "email", email)
	} else if err != nil {
		return false, 0, err
	}

	current, err := a.roles.UserRoles(ctx, user.ID)
	if err != nil {
		return created, 0, err
	}

	have := make(map[string]struct{}, len(current))
	for _, r := range current {
		have[r] = struct{}{}
	}
	merged := append([]string(nil), current...)
	for _, r := range u.Roles {
		if _, ok := have[r]; !ok {
			have[r] = struct{}{}
			merged = append(merged, r)
		}
	}

	added := len(merged) - len(current)
	if added == 0 {
		return created, 0, nil
	}
	if err := a.roles.SetUserRoles(ctx, user.ID, merged); err != nil {
		return created, 0, err
	}
	return created, added, nil
}
