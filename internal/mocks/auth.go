package mocks

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/authcore/internal/model"
)

type TokenCodec struct{ mock.Mock }

func NewTokenCodec(t testingT) *TokenCodec {
	m := &TokenCodec{}
	m.Mock.Test(t)
	register(t, m)
	return m
}

func (m *TokenCodec) Mint(subject string, typ model.TokenType, ttl time.Duration) (string, model.Claims, error) {
	args := m.Called(subject, typ, ttl)
	return args.String(0), args.Get(1).(model.Claims), args.Error(2)
}

func (m *TokenCodec) Verify(token string, expected model.TokenType) (model.Claims, error) {
	args := m.Called(token, expected)
	return args.Get(0).(model.Claims), args.Error(1)
}

type PasswordHasher struct{ mock.Mock }

func NewPasswordHasher(t testingT) *PasswordHasher {
	m := &PasswordHasher{}
	m.Mock.Test(t)
	register(t, m)
	return m
}

func (m *PasswordHasher) Hash(plaintext string) (string, error) {
	args := m.Called(plaintext)
	return args.String(0), args.Error(1)
}

func (m *PasswordHasher) Verify(plaintext, encoded string) bool {
	return m.Called(plaintext, encoded).Bool(0)
}

type LoginLimiter struct{ mock.Mock }

func NewLoginLimiter(t testingT) *LoginLimiter {
	m := &LoginLimiter{}
	m.Mock.Test(t)
	register(t, m)
	return m
}

func (m *LoginLimiter) Check(ctx context.Context, identifier string) error {
	return m.Called(ctx, identifier).Error(0)
}

func (m *LoginLimiter) Fail(ctx context.Context, identifier string) error {
	return m.Called(ctx, identifier).Error(0)
}

func (m *LoginLimiter) Reset(ctx context.Context, identifier string) error {
	return m.Called(ctx, identifier).Error(0)
}

type Storage struct{ mock.Mock }

func NewStorage(t testingT) *Storage {
	m := &Storage{}
	m.Mock.Test(t)
	register(t, m)
	return m
}

func (m *Storage) Upload(ctx context.Context, key string, reader io.Reader) error {
	return m.Called(ctx, key, reader).Error(0)
}

func (m *Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *Storage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

type ContextManager struct{ mock.Mock }

func NewContextManager(t testingT) *ContextManager {
	m := &ContextManager{}
	m.Mock.Test(t)
	register(t, m)
	return m
}

func (m *ContextManager) SetUserIDToContext(ctx context.Context, userID uuid.UUID) context.Context {
	return m.Called(ctx, userID).Get(0).(context.Context)
}

func (m *ContextManager) GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	args := m.Called(ctx)
	return args.Get(0).(uuid.UUID), args.Bool(1)
}
