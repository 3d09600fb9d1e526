package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/authcore/internal/model"
)

type UserStore struct{ mock.Mock }

func NewUserStore(t testingT) *UserStore {
	m := &UserStore{}
	m.Mock.Test(t)
	register(t, m)
	return m
}

func (m *UserStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserStore) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserStore) Create(ctx context.Context, user model.User) (model.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserStore) List(ctx context.Context, offset, limit int) ([]model.User, error) {
	args := m.Called(ctx, offset, limit)
	users, _ := args.Get(0).([]model.User)
	return users, args.Error(1)
}

func (m *UserStore) Update(ctx context.Context, user model.User) (model.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type RoleStore struct{ mock.Mock }

func NewRoleStore(t testingT) *RoleStore {
	m := &RoleStore{}
	m.Mock.Test(t)
	register(t, m)
	return m
}

func (m *RoleStore) UserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *RoleStore) EnsurePermission(ctx context.Context, name string) (model.Permission, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(model.Permission), args.Error(1)
}

func (m *RoleStore) EnsureRole(ctx context.Context, name string) (model.Role, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(model.Role), args.Error(1)
}

func (m *RoleStore) SetRolePermissions(ctx context.Context, role string, permissions []string) error {
	return m.Called(ctx, role, permissions).Error(0)
}

func (m *RoleStore) SetUserRoles(ctx context.Context, userID uuid.UUID, roles []string) error {
	return m.Called(ctx, userID, roles).Error(0)
}

func (m *RoleStore) UserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

type RefreshTokenStore struct{ mock.Mock }

func NewRefreshTokenStore(t testingT) *RefreshTokenStore {
	m := &RefreshTokenStore{}
	m.Mock.Test(t)
	register(t, m)
	return m
}

func (m *RefreshTokenStore) Record(ctx context.Context, token model.RefreshToken) (model.RefreshToken, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(model.RefreshToken), args.Error(1)
}

func (m *RefreshTokenStore) FindByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(model.RefreshToken), args.Error(1)
}

func (m *RefreshTokenStore) Revoke(ctx context.Context, token model.RefreshToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *RefreshTokenStore) Rotate(ctx context.Context, oldHash string, next model.RefreshToken) (model.RefreshToken, error) {
	args := m.Called(ctx, oldHash, next)
	return args.Get(0).(model.RefreshToken), args.Error(1)
}

func (m *RefreshTokenStore) RevokeAllByUser(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *RefreshTokenStore) ListExpired(ctx context.Context, before time.Time, limit int) ([]model.RefreshToken, error) {
	args := m.Called(ctx, before, limit)
	tokens, _ := args.Get(0).([]model.RefreshToken)
	return tokens, args.Error(1)
}

func (m *RefreshTokenStore) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}
