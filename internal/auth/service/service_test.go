package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/cbam/internal/auth/domain"
	"github.com/smallbiznis/cbam/internal/auth/repository"
	"github.com/smallbiznis/cbam/internal/clock"
	"github.com/smallbiznis/cbam/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "correct-horse-battery"

func newTestService(t *testing.T) *Service {
	t.Helper()
	return newTestServiceWithClock(t, nil)
}

func newTestServiceWithClock(t *testing.T, clk clock.Clock) *Service {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&authdomain.User{}, &authdomain.Session{}))

	repo, sessionRepo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{Log: zap.NewNop(), Repo: repo, SessionRepo: sessionRepo, GenID: node, Clock: clk}).(*Service)
}

func signUp(t *testing.T, svc *Service, email string) *authdomain.LoginResult {
	t.Helper()
	res, err := svc.SignUp(context.Background(), authdomain.SignUpRequest{Email: email, Password: testPassword})
	require.NoError(t, err)
	return res
}

func TestSignUpCreatesUserAndSession(t *testing.T) {
	svc := newTestService(t)

	res := signUp(t, svc, "  Alice@Example.com ")
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.Equal(t, "alice", res.User.DisplayName)
	assert.NotEmpty(t, res.RawToken)
	assert.NotEqual(t, res.RawToken, res.Session.SessionTokenHash)
	assert.WithinDuration(t, time.Now().Add(sessionTTL), res.ExpiresAt, time.Minute)

	id, err := svc.Authenticate(context.Background(), res.RawToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.User.ID)
}

func TestSignUpValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, authdomain.SignUpRequest{Email: "not-an-email", Password: testPassword})
	assert.ErrorIs(t, err, authdomain.ErrInvalidEmail)

	_, err = svc.SignUp(ctx, authdomain.SignUpRequest{Email: "bob@example.com", Password: "short-pass"})
	assert.ErrorIs(t, err, authdomain.ErrWeakPassword)

	signUp(t, svc, "bob@example.com")
	_, err = svc.SignUp(ctx, authdomain.SignUpRequest{Email: "BOB@example.com", Password: testPassword})
	assert.ErrorIs(t, err, authdomain.ErrUserExists)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t)
	signUp(t, svc, "alice@example.com")

	_, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password-123",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "nobody@example.com",
		Password: testPassword,
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	signUp(t, svc, "alice@example.com")

	res, err := svc.Login(ctx, authdomain.LoginRequest{Email: "alice@example.com", Password: testPassword})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.RawToken))
	require.NoError(t, svc.Logout(ctx, res.RawToken))

	_, err = svc.Authenticate(ctx, res.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionRevoked)

	assert.ErrorIs(t, svc.Logout(ctx, "unknown"), authdomain.ErrInvalidSession)
}

func TestAuthenticateExpired(t *testing.T) {
	svc := newTestService(t)
	res := signUp(t, svc, "alice@example.com")

	svc.now = func() time.Time { return time.Now().UTC().Add(sessionTTL + time.Hour) }
	_, err := svc.Authenticate(context.Background(), res.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionExpired)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	res := signUp(t, svc, "alice@example.com")

	next, err := svc.Refresh(ctx, res.RawToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.RawToken, next.RawToken)

	_, err = svc.Authenticate(ctx, res.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionRevoked)
	_, err = svc.Refresh(ctx, res.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionRevoked)

	id, err := svc.Authenticate(ctx, next.RawToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.User.ID)
}

func TestUpdateProfile(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	res := signUp(t, svc, "alice@example.com")

	company := "Acme Steel"
	user, err := svc.UpdateProfile(ctx, res.User.ID, authdomain.UpdateProfileRequest{CompanyName: &company})
	require.NoError(t, err)
	assert.Equal(t, "Acme Steel", user.CompanyName)
	assert.Equal(t, "alice", user.DisplayName)

	_, err = svc.UpdateProfile(ctx, snowflake.ID(42), authdomain.UpdateProfileRequest{CompanyName: &company})
	assert.ErrorIs(t, err, authdomain.ErrUserNotFound)
}

func TestPurgeStaleSessions(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestServiceWithClock(t, clk)
	ctx := context.Background()

	first := signUp(t, svc, "alice@example.com")
	require.NoError(t, svc.Logout(ctx, first.RawToken))
	clk.Advance(time.Hour)
	second, err := svc.Login(ctx, authdomain.LoginRequest{Email: "alice@example.com", Password: testPassword})
	require.NoError(t, err)

	purged, err := svc.PurgeStaleSessions(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = svc.Authenticate(ctx, second.RawToken)
	require.NoError(t, err)

	clk.Advance(sessionTTL)
	purged, err = svc.PurgeStaleSessions(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = svc.Authenticate(ctx, second.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrInvalidSession)
}

func TestPurgeStaleSessionsWalksBatches(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestServiceWithClock(t, clk)
	ctx := context.Background()

	signUp(t, svc, "a@example.com")
	signUp(t, svc, "b@example.com")
	signUp(t, svc, "c@example.com")
	clk.Advance(sessionTTL + time.Minute)

	purged, err := svc.PurgeStaleSessions(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), purged)

	purged, err = svc.PurgeStaleSessions(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, purged)
}
