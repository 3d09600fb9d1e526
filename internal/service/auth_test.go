package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/authcore/internal/limiter"
	"github.com/dtroode/authcore/internal/mocks"
	"github.com/dtroode/authcore/internal/model"
	"github.com/dtroode/authcore/internal/password"
	"github.com/dtroode/authcore/internal/testutil"
	"github.com/dtroode/authcore/internal/token"
)

type authFixture struct {
	auth    *Auth
	users   *mocks.UserStore
	ledger  *memLedger
	limiter *mocks.LoginLimiter
	alice   model.User
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()

	hasher := password.NewHasher(testParams)
	hash, err := hasher.Hash("SuperSecret1")
	require.NoError(t, err)

	codec := newTestCodec(t, testNow)
	ledger := newMemLedger()
	users := mocks.NewUserStore(t)
	lim := mocks.NewLoginLimiter(t)
	tokens := NewTokenService(codec, ledger, DefaultSessionConfig, nil, testutil.MakeNoopLogger())

	a, err := NewAuth(users, hasher, codec, tokens, lim, nil, testutil.MakeNoopLogger())
	require.NoError(t, err)

	return authFixture{
		auth:    a,
		users:   users,
		ledger:  ledger,
		limiter: lim,
		alice:   model.User{ID: uuid.New(), Email: "alice@example.com", PasswordHash: hash},
	}
}

func TestAuth_Login_Success(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	f.limiter.On("Check", mock.Anything, "alice@example.com").Return(nil).Once()
	f.limiter.On("Reset", mock.Anything, "alice@example.com").Return(nil).Once()
	f.users.On("GetByEmail", mock.Anything, "alice@example.com").Return(f.alice, nil).Once()

	pair, err := f.auth.Login(ctx, "  Alice@Example.com ", "SuperSecret1")
	require.NoError(t, err)
	assert.Equal(t, model.BearerTokenType, pair.TokenType)
	assert.NotEmpty(t, pair.AccessToken)

	rt, err := f.ledger.FindByHash(ctx, token.Hash(pair.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, rt.UserID)
	assert.False(t, rt.Revoked)
	assert.WithinDuration(t, testNow.Add(7*24*time.Hour), rt.ExpiresAt, time.Second)
}

func TestAuth_Login_FailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	f.limiter.On("Check", mock.Anything, mock.Anything).Return(nil)
	f.limiter.On("Fail", mock.Anything, mock.Anything).Return(nil).Twice()
	f.users.On("GetByEmail", mock.Anything, "alice@example.com").Return(f.alice, nil).Once()
	f.users.On("GetByEmail", mock.Anything, "nobody@example.com").Return(model.User{}, model.ErrNotFound).Once()

	_, wrongPassword := f.auth.Login(ctx, "alice@example.com", "WrongSecret1")
	_, unknownEmail := f.auth.Login(ctx, "nobody@example.com", "SuperSecret1")

	require.ErrorIs(t, wrongPassword, model.ErrInvalidCredentials)
	require.ErrorIs(t, unknownEmail, model.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuth_Login_Throttled(t *testing.T) {
	f := newAuthFixture(t)
	f.limiter.On("Check", mock.Anything, "alice@example.com").Return(model.ErrTooManyAttempts).Once()

	_, err := f.auth.Login(context.Background(), "alice@example.com", "SuperSecret1")
	require.ErrorIs(t, err, model.ErrTooManyAttempts)
	f.users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestAuth_Login_Unavailable(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f authFixture)
	}{
		{
			name: "limiter down",
			setup: func(f authFixture) {
				f.limiter.On("Check", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()
			},
		},
		{
			name: "user store down",
			setup: func(f authFixture) {
				f.limiter.On("Check", mock.Anything, mock.Anything).Return(nil).Once()
				f.users.On("GetByEmail", mock.Anything, mock.Anything).Return(model.User{}, errors.New("pg down")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			tt.setup(f)

			_, err := f.auth.Login(context.Background(), "alice@example.com", "SuperSecret1")
			require.ErrorIs(t, err, model.ErrUnavailable)
			assert.NotErrorIs(t, err, model.ErrInvalidCredentials)
		})
	}
}

func TestAuth_Login_NoopLimiter(t *testing.T) {
	hasher := password.NewHasher(testParams)
	hash, err := hasher.Hash("SuperSecret1")
	require.NoError(t, err)

	codec := newTestCodec(t, testNow)
	users := mocks.NewUserStore(t)
	user := model.User{ID: uuid.New(), Email: "bob@example.com", PasswordHash: hash}
	users.On("GetByEmail", mock.Anything, "bob@example.com").Return(user, nil).Once()

	tokens := NewTokenService(codec, newMemLedger(), DefaultSessionConfig, nil, testutil.MakeNoopLogger())
	a, err := NewAuth(users, hasher, codec, tokens, limiter.Noop{}, nil, testutil.MakeNoopLogger())
	require.NoError(t, err)

	_, err = a.Login(context.Background(), "bob@example.com", "SuperSecret1")
	require.NoError(t, err)
}

func TestAuth_Authenticate(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	codec := newTestCodec(t, testNow)

	access, _, err := codec.Mint(f.alice.ID.String(), model.TokenTypeAccess, time.Hour)
	require.NoError(t, err)
	refresh, _, err := codec.Mint(f.alice.ID.String(), model.TokenTypeRefresh, time.Hour)
	require.NoError(t, err)
	ghost := uuid.New()
	ghostAccess, _, err := codec.Mint(ghost.String(), model.TokenTypeAccess, time.Hour)
	require.NoError(t, err)
	broken := uuid.New()
	brokenAccess, _, err := codec.Mint(broken.String(), model.TokenTypeAccess, time.Hour)
	require.NoError(t, err)

	f.users.On("GetByID", mock.Anything, f.alice.ID).Return(f.alice, nil).Once()
	f.users.On("GetByID", mock.Anything, ghost).Return(model.User{}, model.ErrNotFound).Once()
	f.users.On("GetByID", mock.Anything, broken).Return(model.User{}, errors.New("pg down")).Once()

	user, err := f.auth.Authenticate(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, user.ID)

	_, err = f.auth.Authenticate(ctx, refresh)
	require.ErrorIs(t, err, model.ErrInvalidToken)

	_, err = f.auth.Authenticate(ctx, "garbage")
	require.ErrorIs(t, err, model.ErrInvalidToken)

	_, err = f.auth.Authenticate(ctx, ghostAccess)
	require.ErrorIs(t, err, model.ErrUserNotFound)

	_, err = f.auth.Authenticate(ctx, brokenAccess)
	require.ErrorIs(t, err, model.ErrUnavailable)
}

func TestAuth_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	f.limiter.On("Check", mock.Anything, mock.Anything).Return(nil)
	f.limiter.On("Reset", mock.Anything, mock.Anything).Return(nil)
	f.users.On("GetByEmail", mock.Anything, "alice@example.com").Return(f.alice, nil)
	f.users.On("GetByID", mock.Anything, f.alice.ID).Return(f.alice, nil)

	pair, err := f.auth.Login(ctx, "alice@example.com", "SuperSecret1")
	require.NoError(t, err)

	user, err := f.auth.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	rotated, err := f.auth.tokenService.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	_, err = f.auth.tokenService.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, model.ErrTokenRevoked)

	require.NoError(t, f.auth.tokenService.Logout(ctx, rotated.RefreshToken))
	_, err = f.auth.tokenService.Refresh(ctx, rotated.RefreshToken)
	require.ErrorIs(t, err, model.ErrTokenRevoked)

	// access tokens stay valid until expiry
	_, err = f.auth.Authenticate(ctx, rotated.AccessToken)
	require.NoError(t, err)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  ALICE@example.COM\t"))
}
