package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"slices"

	"github.com/google/uuid"

	"github.com/dtroode/authcore/internal/logger"
	"github.com/dtroode/authcore/internal/model"
)

const maxListLimit = 100

// PasswordPolicy validates new passwords.
type PasswordPolicy interface {
	Validate(plaintext string) error
}

// Users administers accounts and their role assignments.
type Users struct {
	userStore model.UserStore
	roleStore model.RoleStore
	hasher    model.PasswordHasher
	policy    PasswordPolicy
	logger    *logger.Logger
}

func NewUsers(
	userStore model.UserStore,
	roleStore model.RoleStore,
	hasher model.PasswordHasher,
	policy PasswordPolicy,
	logger *logger.Logger,
) *Users {
	return &Users{
		userStore: userStore,
		roleStore: roleStore,
		hasher:    hasher,
		policy:    policy,
		logger:    logger,
	}
}

// Register creates a user with a hashed password and the given roles.
func (u *Users) Register(ctx context.Context, email, password string, roles ...string) (model.User, error) {
	email, err := validEmail(email)
	if err != nil {
		return model.User{}, err
	}
	hash, err := u.hashPassword(password)
	if err != nil {
		return model.User{}, err
	}

	user, err := u.userStore.Create(ctx, model.User{Email: email, PasswordHash: hash})
	if errors.Is(err, model.ErrAlreadyExists) {
		u.logger.Info("Users service: email already registered", "email", email)
		return model.User{}, err
	}
	if err != nil {
		u.logger.Error("Users service: failed to create user",
			"email", email,
			"error", err.Error())
		return model.User{}, unavailable("create user", err)
	}

	if len(roles) > 0 {
		if err := u.roleStore.SetUserRoles(ctx, user.ID, roles); err != nil {
			if delErr := u.userStore.Delete(ctx, user.ID); delErr != nil {
				u.logger.Error("Users service: failed to remove partially created user",
					"user_id", user.ID,
					"error", delErr.Error())
			}
			if errors.Is(err, model.ErrInvalidInput) {
				return model.User{}, err
			}
			return model.User{}, unavailable("assign roles", err)
		}
		user.Roles = distinctSorted(roles)
	}

	u.logger.Info("Users service: user registered", "user_id", user.ID)
	return user, nil
}

// Get returns the user with its role names.
func (u *Users) Get(ctx context.Context, id uuid.UUID) (model.User, error) {
	user, err := u.userStore.GetByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, unavailable("get user", err)
	}

	roles, err := u.roleStore.UserRoles(ctx, id)
	if err != nil {
		return model.User{}, unavailable("list user roles", err)
	}
	user.Roles = roles

	return user, nil
}

// List pages through users ordered by creation time.
func (u *Users) List(ctx context.Context, offset, limit int) ([]model.User, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	users, err := u.userStore.List(ctx, offset, limit)
	if err != nil {
		return nil, unavailable("list users", err)
	}
	return users, nil
}

// SetRoles replaces the role set of a user. The new permissions apply on the
// next resolution.
func (u *Users) SetRoles(ctx context.Context, id uuid.UUID, roles []string) (model.User, error) {
	user, err := u.userStore.GetByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, unavailable("get user", err)
	}

	if err := u.roleStore.SetUserRoles(ctx, id, roles); err != nil {
		if errors.Is(err, model.ErrInvalidInput) {
			return model.User{}, err
		}
		return model.User{}, unavailable("set user roles", err)
	}

	u.logger.Info("Users service: roles replaced",
		"user_id", id,
		"roles", roles)

	return u.Get(ctx, user.ID)
}

// Update applies a partial change. Email and password pass the same checks as
// on registration. The profile is written before the roles; when the role
// list is rejected the previous profile is restored.
func (u *Users) Update(ctx context.Context, id uuid.UUID, update model.UserUpdate) (model.User, error) {
	var email, hash string
	var err error
	if update.Email != nil {
		if email, err = validEmail(*update.Email); err != nil {
			return model.User{}, err
		}
	}
	if update.Password != nil {
		if hash, err = u.hashPassword(*update.Password); err != nil {
			return model.User{}, err
		}
	}

	current, err := u.userStore.GetByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, unavailable("get user", err)
	}

	next := current
	if update.Email != nil {
		next.Email = email
	}
	if update.Password != nil {
		next.PasswordHash = hash
	}
	profileChanged := next.Email != current.Email || next.PasswordHash != current.PasswordHash

	if profileChanged {
		if err := u.writeProfile(ctx, next); err != nil {
			return model.User{}, err
		}
	}

	if update.Roles != nil {
		if err := u.roleStore.SetUserRoles(ctx, id, update.Roles); err != nil {
			if profileChanged {
				if _, restoreErr := u.userStore.Update(ctx, current); restoreErr != nil {
					u.logger.Error("Users service: failed to restore profile",
						"user_id", id,
						"error", restoreErr.Error())
				}
			}
			if errors.Is(err, model.ErrInvalidInput) {
				return model.User{}, err
			}
			return model.User{}, unavailable("set user roles", err)
		}
	}

	u.logger.Info("Users service: user updated",
		"user_id", id,
		"email_changed", next.Email != current.Email,
		"password_changed", update.Password != nil,
		"roles_replaced", update.Roles != nil)

	return u.Get(ctx, id)
}

func (u *Users) writeProfile(ctx context.Context, user model.User) error {
	_, err := u.userStore.Update(ctx, user)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrAlreadyExists):
		u.logger.Info("Users service: email already registered", "user_id", user.ID)
		return err
	case errors.Is(err, model.ErrNotFound):
		return model.ErrUserNotFound
	default:
		u.logger.Error("Users service: failed to update user",
			"user_id", user.ID,
			"error", err.Error())
		return unavailable("update user", err)
	}
}

// Delete removes a user. Its refresh tokens go with it.
func (u *Users) Delete(ctx context.Context, id uuid.UUID) error {
	err := u.userStore.Delete(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrUserNotFound
	}
	if err != nil {
		return unavailable("delete user", err)
	}

	u.logger.Info("Users service: user deleted", "user_id", id)
	return nil
}

func validEmail(email string) (string, error) {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: malformed email", model.ErrInvalidInput)
	}
	return email, nil
}

func (u *Users) hashPassword(password string) (string, error) {
	if err := u.policy.Validate(password); err != nil {
		return "", err
	}
	hash, err := u.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// distinctSorted returns names sorted and without duplicates, the order the
// role store reports them in.
func distinctSorted(names []string) []string {
	out := slices.Clone(names)
	slices.Sort(out)
	return slices.Compact(out)
}
