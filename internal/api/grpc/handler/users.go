package handler

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/authcore/internal/logger"
	"github.com/dtroode/authcore/internal/model"
)

const defaultPageSize = 50

// UserService administers accounts.
type UserService interface {
	Register(ctx context.Context, email, password string, roles ...string) (model.User, error)
	Get(ctx context.Context, id uuid.UUID) (model.User, error)
	List(ctx context.Context, offset, limit int) ([]model.User, error)
	SetRoles(ctx context.Context, id uuid.UUID, roles []string) (model.User, error)
	Update(ctx context.Context, id uuid.UUID, update model.UserUpdate) (model.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

var _ UsersServer = (*Users)(nil)

// Users handles authcore.v1.Users. Permissions are enforced by the
// authorize interceptor before any method runs.
type Users struct {
	userService UserService
	logger      *logger.Logger
}

func NewUsers(userService UserService, logger *logger.Logger) *Users {
	return &Users{userService: userService, logger: logger}
}

func (h *Users) CreateUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email, err := requiredString(req, "email")
	if err != nil {
		return nil, err
	}
	password, err := requiredString(req, "password")
	if err != nil {
		return nil, err
	}
	roles, err := stringList(req, "roles")
	if err != nil {
		return nil, err
	}

	user, err := h.userService.Register(ctx, email, password, roles...)
	if err != nil {
		return nil, handleError(err)
	}

	h.logger.Info("Users handler: user created", "user_id", user.ID)
	return userToStruct(user)
}

func (h *Users) GetUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredUUID(req, "id")
	if err != nil {
		return nil, err
	}

	user, err := h.userService.Get(ctx, id)
	if err != nil {
		return nil, handleError(err)
	}
	return userToStruct(user)
}

// ListUsers pages with {offset, limit}. Roles are not included.
func (h *Users) ListUsers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	offset, err := optionalInt(req, "offset", 0)
	if err != nil {
		return nil, err
	}
	limit, err := optionalInt(req, "limit", defaultPageSize)
	if err != nil {
		return nil, err
	}

	users, err := h.userService.List(ctx, offset, limit)
	if err != nil {
		return nil, handleError(err)
	}

	items := make([]interface{}, len(users))
	for i, u := range users {
		fields := userFields(u)
		delete(fields, "roles")
		items[i] = fields
	}
	return newStruct(map[string]interface{}{"users": items})
}

func (h *Users) SetUserRoles(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredUUID(req, "id")
	if err != nil {
		return nil, err
	}
	roles, err := stringList(req, "roles")
	if err != nil {
		return nil, err
	}

	user, err := h.userService.SetRoles(ctx, id, roles)
	if err != nil {
		return nil, handleError(err)
	}
	return userToStruct(user)
}

// UpdateUser changes any of {email, password, roles} of user {id}. Absent
// fields are left unchanged.
func (h *Users) UpdateUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredUUID(req, "id")
	if err != nil {
		return nil, err
	}
	email, err := optionalString(req, "email")
	if err != nil {
		return nil, err
	}
	password, err := optionalString(req, "password")
	if err != nil {
		return nil, err
	}
	roles, err := optionalStringList(req, "roles")
	if err != nil {
		return nil, err
	}

	user, err := h.userService.Update(ctx, id, model.UserUpdate{Email: email, Password: password, Roles: roles})
	if err != nil {
		return nil, handleError(err)
	}

	h.logger.Info("Users handler: user updated", "user_id", user.ID)
	return userToStruct(user)
}

func (h *Users) DeleteUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredUUID(req, "id")
	if err != nil {
		return nil, err
	}

	if err := h.userService.Delete(ctx, id); err != nil {
		return nil, handleError(err)
	}

	h.logger.Info("Users handler: user deleted", "user_id", id)
	return ack(), nil
}
