package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/authcore/internal/model"
)

type AuthService struct{ mock.Mock }

func NewAuthService(t testingT) *AuthService {
	m := &AuthService{}
	m.Mock.Test(t)
	register(t, m)
	return m
}

func (m *AuthService) Login(ctx context.Context, email, password string) (model.TokenPair, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(model.TokenPair), args.Error(1)
}

func (m *AuthService) Authenticate(ctx context.Context, accessToken string) (model.User, error) {
	args := m.Called(ctx, accessToken)
	return args.Get(0).(model.User), args.Error(1)
}

type TokenService struct{ mock.Mock }

func NewTokenService(t testingT) *TokenService {
	m := &TokenService{}
	m.Mock.Test(t)
	register(t, m)
	return m
}

func (m *TokenService) Refresh(ctx context.Context, presented string) (model.TokenPair, error) {
	args := m.Called(ctx, presented)
	return args.Get(0).(model.TokenPair), args.Error(1)
}

func (m *TokenService) Logout(ctx context.Context, presented string) error {
	return m.Called(ctx, presented).Error(0)
}

func (m *TokenService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

type PermissionService struct{ mock.Mock }

func NewPermissionService(t testingT) *PermissionService {
	m := &PermissionService{}
	m.Mock.Test(t)
	register(t, m)
	return m
}

func (m *PermissionService) EffectivePermissions(ctx context.Context, userID uuid.UUID) (model.PermissionSet, error) {
	args := m.Called(ctx, userID)
	set, _ := args.Get(0).(model.PermissionSet)
	return set, args.Error(1)
}

func (m *PermissionService) Authorize(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	args := m.Called(ctx, userID, permission)
	return args.Bool(0), args.Error(1)
}

type UserService struct{ mock.Mock }

func NewUserService(t testingT) *UserService {
	m := &UserService{}
	m.Mock.Test(t)
	register(t, m)
	return m
}

func (m *UserService) Register(ctx context.Context, email, password string, roles ...string) (model.User, error) {
	args := m.Called(ctx, email, password, roles)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserService) Get(ctx context.Context, id uuid.UUID) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserService) List(ctx context.Context, offset, limit int) ([]model.User, error) {
	args := m.Called(ctx, offset, limit)
	users, _ := args.Get(0).([]model.User)
	return users, args.Error(1)
}

func (m *UserService) SetRoles(ctx context.Context, id uuid.UUID, roles []string) (model.User, error) {
	args := m.Called(ctx, id, roles)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserService) Update(ctx context.Context, id uuid.UUID, update model.UserUpdate) (model.User, error) {
	args := m.Called(ctx, id, update)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}
