package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/cbam/internal/auth/domain"
	"github.com/smallbiznis/cbam/internal/auth/repository"
	authservice "github.com/smallbiznis/cbam/internal/auth/service"
	"github.com/smallbiznis/cbam/internal/clock"
	"github.com/smallbiznis/cbam/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "correct-horse-battery"

func newTestProvider(t *testing.T, tokens TokenStore) (*AuthProvider, *clock.FakeClock) {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&authdomain.User{}, &authdomain.Session{}))

	repo, sessionRepo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	auth := authservice.New(authservice.Params{
		Log:         zap.NewNop(),
		Repo:        repo,
		SessionRepo: sessionRepo,
		GenID:       node,
		Clock:       clk,
	})
	return NewAuthProvider(auth, tokens, clk, zap.NewNop()), clk
}

func record(p Provider) *[]Event {
	var events []Event
	p.Subscribe(func(ev Event) { events = append(events, ev) })
	return &events
}

func TestAuthProviderSignInFlow(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, NewMemoryTokenStore())
	events := record(p)

	sess, err := p.SignUp(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", sess.Email)
	assert.Equal(t, authdomain.DefaultCompanyName, sess.User.CompanyName)

	current, err := p.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, current.UserID)

	require.NoError(t, p.SignOut(ctx))
	current, err = p.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = p.SignIn(ctx, "alice@example.com", "wrong-password-here")
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)

	_, err = p.SignIn(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)

	require.Len(t, *events, 3)
	assert.Equal(t, EventSignedIn, (*events)[0].Type)
	assert.Equal(t, EventSignedOut, (*events)[1].Type)
	assert.Nil(t, (*events)[1].Session)
	assert.Equal(t, EventSignedIn, (*events)[2].Type)
	assert.Less(t, (*events)[0].Seq, (*events)[2].Seq)
}

func TestAuthProviderRefreshesNearExpiry(t *testing.T) {
	ctx := context.Background()
	tokens := NewMemoryTokenStore()
	p, clk := newTestProvider(t, tokens)

	sess, err := p.SignUp(ctx, "bob@example.com", testPassword)
	require.NoError(t, err)
	events := record(p)

	clk.Advance(6*24*time.Hour + time.Hour)
	current, err := p.CurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.NotEqual(t, sess.Token, current.Token)
	assert.True(t, current.ExpiresAt.After(sess.ExpiresAt))

	stored, err := tokens.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, current.Token, stored.Value)

	require.Len(t, *events, 1)
	assert.Equal(t, EventTokenRefreshed, (*events)[0].Type)
}

func TestAuthProviderDiscardsExpiredToken(t *testing.T) {
	ctx := context.Background()
	tokens := NewMemoryTokenStore()
	p, clk := newTestProvider(t, tokens)

	_, err := p.SignUp(ctx, "carol@example.com", testPassword)
	require.NoError(t, err)

	clk.Advance(8 * 24 * time.Hour)
	current, err := p.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = tokens.Load(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestAuthProviderUpdateProfile(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, NewMemoryTokenStore())

	_, err := p.UpdateProfile(ctx, authdomain.UpdateProfileRequest{})
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = p.SignUp(ctx, "dave@example.com", testPassword)
	require.NoError(t, err)
	events := record(p)

	company := "Dave Steelworks"
	sess, err := p.UpdateProfile(ctx, authdomain.UpdateProfileRequest{CompanyName: &company})
	require.NoError(t, err)
	assert.Equal(t, company, sess.User.CompanyName)
	require.Len(t, *events, 1)
	assert.Equal(t, EventUserUpdated, (*events)[0].Type)
}

func TestManagerOverAuthProvider(t *testing.T) {
	ctx := context.Background()
	tokens := NewFileTokenStore(filepath.Join(t.TempDir(), "session.json"))
	p, _ := newTestProvider(t, tokens)

	_, err := p.SignUp(ctx, "erin@example.com", testPassword)
	require.NoError(t, err)

	m := NewManager(p, zap.NewNop())
	require.NoError(t, m.Start(ctx))
	sess, err := m.GetCurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "erin@example.com", sess.Email)

	require.NoError(t, m.SignOut(ctx))
	sess, err = m.GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestFileTokenStore(t *testing.T) {
	ctx := context.Background()
	s := NewFileTokenStore(filepath.Join(t.TempDir(), "nested", "session.json"))

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoToken)

	tok := Token{Value: "abc", ExpiresAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	require.NoError(t, s.Save(ctx, tok))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, tok.ExpiresAt.Equal(got.ExpiresAt))
	assert.Equal(t, "abc", got.Value)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
}
