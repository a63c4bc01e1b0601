package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/session"
)

// refreshMargin is how long before expiry the refresher renews the token.
const refreshMargin = 5 * time.Minute

type sessionUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type sessionResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        sessionUser `json:"user"`
}

// Auth implements session.AuthProvider against the /auth endpoints. The token lives in memory only.
type Auth struct {
	api    *HTTP
	logger *zap.Logger

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	user      *session.User
	listeners map[int]func(session.Event)
	nextID    int
}

// NewAuth creates an auth client and makes api send its token.
func NewAuth(api *HTTP, logger *zap.Logger) *Auth {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Auth{api: api, logger: logger, listeners: make(map[int]func(session.Event))}
	api.SetTokenSource(a.Token)
	return a
}

// Token returns the current access token or "".
func (a *Auth) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// ExpiresAt returns when the current token expires.
func (a *Auth) ExpiresAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.expiresAt
}

// SignUp creates an account and starts a session.
func (a *Auth) SignUp(ctx context.Context, email, password, fullName string) (*session.User, error) {
	var resp sessionResponse
	body := map[string]string{"email": email, "password": password, "full_name": fullName}
	if err := a.api.do(ctx, http.MethodPost, "/auth/signup", body, &resp); err != nil {
		return nil, err
	}
	return a.start(resp), nil
}

// SignIn starts a session.
func (a *Auth) SignIn(ctx context.Context, email, password string) (*session.User, error) {
	var resp sessionResponse
	body := map[string]string{"email": email, "password": password}
	if err := a.api.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return a.start(resp), nil
}

// SignOut revokes the token remotely and forgets it locally. The local session ends even when the call fails.
func (a *Auth) SignOut(ctx context.Context) error {
	if a.Token() == "" {
		return nil
	}
	err := a.api.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	a.clear()
	a.emit(session.Event{Kind: session.SignedOut})
	return err
}

// CurrentUser validates the in-memory token. It returns nil when there is no usable session.
func (a *Auth) CurrentUser(ctx context.Context) (*session.User, error) {
	if a.Token() == "" {
		return nil, nil
	}
	var resp sessionResponse
	if err := a.api.do(ctx, http.MethodGet, "/auth/session", nil, &resp); err != nil {
		if errors.Is(err, apperror.ErrUnauthenticated) {
			a.clear()
			return nil, nil
		}
		return nil, err
	}
	u := &session.User{ID: resp.User.ID, Email: resp.User.Email}
	a.mu.Lock()
	a.user = u
	a.mu.Unlock()
	return u, nil
}

// Refresh exchanges the current token for a new one and emits TokenRefreshed.
func (a *Auth) Refresh(ctx context.Context) error {
	if a.Token() == "" {
		return nil
	}
	var resp sessionResponse
	if err := a.api.do(ctx, http.MethodPost, "/auth/refresh", nil, &resp); err != nil {
		if errors.Is(err, apperror.ErrUnauthenticated) {
			a.clear()
			a.emit(session.Event{Kind: session.SignedOut})
		}
		return err
	}
	u := a.store(resp)
	a.emit(session.Event{Kind: session.TokenRefreshed, User: u})
	return nil
}

// RunRefresher renews the token shortly before it expires until ctx is done.
func (a *Auth) RunRefresher(ctx context.Context, check time.Duration) {
	ticker := time.NewTicker(check)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			exp := a.ExpiresAt()
			if a.Token() == "" || exp.IsZero() || time.Until(exp) > refreshMargin {
				continue
			}
			if err := a.Refresh(ctx); err != nil {
				a.logger.Warn("token refresh failed", zap.Error(err))
			}
		}
	}
}

// OnSessionChange registers fn for session events. Events are delivered synchronously.
func (a *Auth) OnSessionChange(fn func(session.Event)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *Auth) start(resp sessionResponse) *session.User {
	u := a.store(resp)
	a.emit(session.Event{Kind: session.SignedIn, User: u})
	return u
}

func (a *Auth) store(resp sessionResponse) *session.User {
	u := &session.User{ID: resp.User.ID, Email: resp.User.Email}
	a.mu.Lock()
	a.token = resp.AccessToken
	a.expiresAt = resp.ExpiresAt
	a.user = u
	a.mu.Unlock()
	return u
}

func (a *Auth) clear() {
	a.mu.Lock()
	a.token = ""
	a.expiresAt = time.Time{}
	a.user = nil
	a.mu.Unlock()
}

func (a *Auth) emit(ev session.Event) {
	a.mu.RLock()
	fns := make([]func(session.Event), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}
