package session

import (
	"context"
	"errors"
	"sync"
	"time"

	authdomain "github.com/smallbiznis/cbam/internal/auth/domain"
	"github.com/smallbiznis/cbam/internal/clock"
	"go.uber.org/zap"
)

// refreshWindow is how close to expiry a token gets rotated on read.
const refreshWindow = 24 * time.Hour

// AuthProvider implements Provider on top of the local account service for a
// single user whose token lives in a TokenStore.
type AuthProvider struct {
	log    *zap.Logger
	auth   authdomain.Service
	tokens TokenStore
	clock  clock.Clock

	mu     sync.Mutex
	seq    uint64
	nextID uint64
	subs   map[uint64]func(Event)
}

func NewAuthProvider(auth authdomain.Service, tokens TokenStore, clk clock.Clock, log *zap.Logger) *AuthProvider {
	if log == nil {
		log = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System()
	}
	return &AuthProvider{
		log:    log.Named("session.provider"),
		auth:   auth,
		tokens: tokens,
		clock:  clk,
		subs:   make(map[uint64]func(Event)),
	}
}

func (p *AuthProvider) SignUp(ctx context.Context, email, password string) (*UserSession, error) {
	res, err := p.auth.SignUp(ctx, authdomain.SignUpRequest{
		Email:     email,
		Password:  password,
		UserAgent: "cbam-cli",
	})
	if err != nil {
		return nil, err
	}
	return p.signedIn(ctx, res)
}

func (p *AuthProvider) SignIn(ctx context.Context, email, password string) (*UserSession, error) {
	res, err := p.auth.Login(ctx, authdomain.LoginRequest{
		Email:     email,
		Password:  password,
		UserAgent: "cbam-cli",
	})
	if err != nil {
		return nil, err
	}
	return p.signedIn(ctx, res)
}

func (p *AuthProvider) signedIn(ctx context.Context, res *authdomain.LoginResult) (*UserSession, error) {
	if err := p.tokens.Save(ctx, Token{Value: res.RawToken, ExpiresAt: res.ExpiresAt}); err != nil {
		return nil, err
	}
	sess := fromLogin(res)
	p.emit(EventSignedIn, sess)
	return sess.clone(), nil
}

// SignOut revokes the stored token. Signing out while signed out succeeds.
func (p *AuthProvider) SignOut(ctx context.Context) error {
	tok, err := p.tokens.Load(ctx)
	if err != nil && !errors.Is(err, ErrNoToken) {
		return err
	}
	if err == nil {
		if err := p.auth.Logout(ctx, tok.Value); err != nil && !isRejectedToken(err) {
			return err
		}
	}
	if err := p.tokens.Clear(ctx); err != nil {
		return err
	}
	p.emit(EventSignedOut, nil)
	return nil
}

// CurrentSession validates the stored token. A token the service rejects is
// discarded and reported as no session; any other failure is returned.
func (p *AuthProvider) CurrentSession(ctx context.Context) (*UserSession, error) {
	tok, err := p.tokens.Load(ctx)
	if errors.Is(err, ErrNoToken) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	identity, err := p.auth.Authenticate(ctx, tok.Value)
	if err != nil {
		if isRejectedToken(err) {
			p.log.Info("discarding rejected session token", zap.Error(err))
			return nil, p.tokens.Clear(ctx)
		}
		return nil, err
	}

	sess := &UserSession{
		UserID:    identity.User.ID.String(),
		Email:     identity.User.Email,
		Token:     tok.Value,
		ExpiresAt: identity.Session.ExpiresAt,
		User:      identity.User.Profile(),
	}
	if sess.ExpiresAt.Sub(p.clock.Now()) > refreshWindow {
		return sess, nil
	}

	res, err := p.auth.Refresh(ctx, tok.Value)
	if err != nil {
		p.log.Warn("session refresh failed", zap.Error(err))
		return sess, nil
	}
	if err := p.tokens.Save(ctx, Token{Value: res.RawToken, ExpiresAt: res.ExpiresAt}); err != nil {
		return nil, err
	}
	refreshed := fromLogin(res)
	p.emit(EventTokenRefreshed, refreshed)
	return refreshed.clone(), nil
}

func (p *AuthProvider) CurrentUser(ctx context.Context) (*authdomain.Profile, error) {
	sess, err := p.CurrentSession(ctx)
	if err != nil || sess == nil {
		return nil, err
	}
	user := sess.User
	return &user, nil
}

// UpdateProfile changes the signed-in user's profile and emits USER_UPDATED.
func (p *AuthProvider) UpdateProfile(ctx context.Context, req authdomain.UpdateProfileRequest) (*UserSession, error) {
	tok, err := p.tokens.Load(ctx)
	if errors.Is(err, ErrNoToken) {
		return nil, ErrNotSignedIn
	}
	if err != nil {
		return nil, err
	}
	identity, err := p.auth.Authenticate(ctx, tok.Value)
	if err != nil {
		if isRejectedToken(err) {
			return nil, ErrNotSignedIn
		}
		return nil, err
	}
	user, err := p.auth.UpdateProfile(ctx, identity.User.ID, req)
	if err != nil {
		return nil, err
	}

	sess := &UserSession{
		UserID:    user.ID.String(),
		Email:     user.Email,
		Token:     tok.Value,
		ExpiresAt: identity.Session.ExpiresAt,
		User:      user.Profile(),
	}
	p.emit(EventUserUpdated, sess)
	return sess.clone(), nil
}

func (p *AuthProvider) Subscribe(handler func(Event)) (cancel func()) {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.subs[id] = handler
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *AuthProvider) emit(typ EventType, sess *UserSession) {
	p.mu.Lock()
	p.seq++
	ev := Event{Type: typ, Session: sess, Seq: p.seq}
	subs := make([]func(Event), 0, len(p.subs))
	for _, h := range p.subs {
		subs = append(subs, h)
	}
	p.mu.Unlock()

	for _, h := range subs {
		h(Event{Type: ev.Type, Session: ev.Session.clone(), Seq: ev.Seq})
	}
}

func fromLogin(res *authdomain.LoginResult) *UserSession {
	return &UserSession{
		UserID:    res.User.ID.String(),
		Email:     res.User.Email,
		Token:     res.RawToken,
		ExpiresAt: res.ExpiresAt,
		User:      res.User.Profile(),
	}
}

func isRejectedToken(err error) bool {
	return errors.Is(err, authdomain.ErrInvalidSession) ||
		errors.Is(err, authdomain.ErrSessionExpired) ||
		errors.Is(err, authdomain.ErrSessionRevoked) ||
		errors.Is(err, authdomain.ErrUserNotFound)
}
