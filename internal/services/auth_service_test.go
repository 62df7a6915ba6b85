package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/applejunice/Applehome/internal/audit"
	"github.com/applejunice/Applehome/internal/config"
	"github.com/applejunice/Applehome/internal/models"
)

func newTestAuthService(f *fixture, limiter *LoginLimiter) (*AuthService, *TokenService) {
	tokens := NewTokenService(config.JWTConfig{SecretKey: "test-secret", ExpiryHours: 24})
	auditor := audit.NewAuditLogger(zap.NewNop(), nil)
	return NewAuthService(f.credentials, tokens, limiter, auditor, zap.NewNop()), tokens
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("holder", func(t *testing.T) {
		f := newFixture(t)
		alice := f.register(t, "alice", "100")
		auth, tokens := newTestAuthService(f, nil)

		resp, err := auth.Login(ctx, LoginRequest{Username: "alice", Password: "password123"})
		require.NoError(t, err)
		require.NotNil(t, resp.Account)
		assert.Equal(t, alice.ID, resp.Account.ID)
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), resp.ExpiresAt, 5*time.Second)

		p, err := tokens.Verify(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, models.RoleHolder, p.Role)
		assert.Equal(t, alice.ID, p.SubjectID)
	})

	t.Run("admin", func(t *testing.T) {
		f := newFixture(t)
		auth, tokens := newTestAuthService(f, nil)

		resp, err := auth.Login(ctx, LoginRequest{Username: "admin", Password: "admin-secret"})
		require.NoError(t, err)
		assert.Nil(t, resp.Account)
		assert.True(t, resp.Principal.IsAdmin())

		p, err := tokens.Verify(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, models.AdminSubjectID, p.SubjectID)
	})

	t.Run("bad credentials", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "alice", "100")
		auth, _ := newTestAuthService(f, nil)

		_, err := auth.Login(ctx, LoginRequest{Username: "alice", Password: "wrong-password"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newFixture(t)
		auth, _ := newTestAuthService(f, nil)

		_, err := auth.Login(ctx, LoginRequest{Username: "alice"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("failures are counted and throttled", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "alice", "100")
		db, mock := redismock.NewClientMock()
		auth, _ := newTestAuthService(f, NewLoginLimiter(db, 2, time.Minute, zap.NewNop()))

		mock.ExpectGet("login_failures:alice").RedisNil()
		mock.ExpectIncr("login_failures:alice").SetVal(1)
		mock.ExpectExpire("login_failures:alice", time.Minute).SetVal(true)
		_, err := auth.Login(ctx, LoginRequest{Username: "alice", Password: "wrong-password"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		mock.ExpectGet("login_failures:alice").SetVal("2")
		_, err = auth.Login(ctx, LoginRequest{Username: "alice", Password: "password123"})
		assert.ErrorIs(t, err, ErrTooManyAttempts)

		mock.ExpectGet("login_failures:alice").SetVal("1")
		mock.ExpectDel("login_failures:alice").SetVal(1)
		_, err = auth.Login(ctx, LoginRequest{Username: "alice", Password: "password123"})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
