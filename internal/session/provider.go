// Package session tracks who is signed in, with their profile and role, for the
// lifetime of the application.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/models"
)

// Status is the session state.
type Status int

const (
	StatusLoading Status = iota
	StatusAnonymous
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "loading"
	}
}

// User is the authenticated identity.
type User struct {
	ID    uuid.UUID
	Email string
}

// State is a snapshot of the session.
type State struct {
	Status  Status
	User    *User
	Profile *models.Profile
	Role    models.Role
}

// EventKind names an auth provider notification.
type EventKind string

const (
	SignedIn       EventKind = "signed_in"
	SignedOut      EventKind = "signed_out"
	TokenRefreshed EventKind = "token_refreshed"
)

// Event is an auth provider notification. User is nil for SignedOut.
type Event struct {
	Kind EventKind
	User *User
}

// AuthProvider is the external authentication service.
type AuthProvider interface {
	SignUp(ctx context.Context, email, password, fullName string) (*User, error)
	SignIn(ctx context.Context, email, password string) (*User, error)
	SignOut(ctx context.Context) error
	// CurrentUser returns nil without error when there is no session.
	CurrentUser(ctx context.Context) (*User, error)
	OnSessionChange(fn func(Event)) (unsubscribe func())
}

// ProfileStore reads and provisions the profile and role of a user.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	CreateProfile(ctx context.Context, fullName string) (*models.Profile, error)
	GetRole(ctx context.Context, userID uuid.UUID) (models.Role, error)
}

// Provider owns the session state. It starts in StatusLoading.
type Provider struct {
	auth     AuthProvider
	profiles ProfileStore
	logger   *zap.Logger

	mu        sync.RWMutex
	state     State
	seq       uint64
	listeners map[int]func(State)
	nextID    int
	ctx       context.Context
	cancel    context.CancelFunc
	unsub     func()
}

// NewProvider creates a provider. Call Start before use.
func NewProvider(auth AuthProvider, profiles ProfileStore, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Provider{
		auth:      auth,
		profiles:  profiles,
		logger:    logger,
		state:     State{Status: StatusLoading},
		listeners: make(map[int]func(State)),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start subscribes to session changes first, then resolves the current session.
func (p *Provider) Start(ctx context.Context) error {
	unsub := p.auth.OnSessionChange(p.handle)
	p.mu.Lock()
	p.unsub = unsub
	p.mu.Unlock()

	user, err := p.auth.CurrentUser(ctx)
	if err != nil {
		p.logger.Warn("resolve current session failed", zap.Error(err))
		p.setAnonymous()
		return classify(err)
	}
	if user == nil {
		p.setAnonymous()
		return nil
	}
	p.resolve(ctx, user)
	return nil
}

// Close stops listening to the auth provider and drops subscribers.
func (p *Provider) Close() {
	p.mu.Lock()
	unsub := p.unsub
	p.unsub = nil
	p.listeners = make(map[int]func(State))
	p.mu.Unlock()
	p.cancel()
	if unsub != nil {
		unsub()
	}
}

// State returns the current snapshot.
func (p *Provider) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// UserID returns the signed-in user's ID or uuid.Nil.
func (p *Provider) UserID() uuid.UUID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state.Status != StatusAuthenticated || p.state.User == nil {
		return uuid.Nil
	}
	return p.state.User.ID
}

// IsAdmin reports whether the effective role is admin.
func (p *Provider) IsAdmin() bool {
	return p.State().Role == models.RoleAdmin
}

// IsClubAdmin reports whether the effective role is club_admin.
func (p *Provider) IsClubAdmin() bool {
	return p.State().Role == models.RoleClubAdmin
}

// Subscribe registers fn for every state change. It returns an unsubscribe func.
func (p *Provider) Subscribe(fn func(State)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// SignIn signs in with email and password.
func (p *Provider) SignIn(ctx context.Context, email, password string) error {
	user, err := p.auth.SignIn(ctx, email, password)
	if err != nil {
		return classify(err)
	}
	p.ensureResolved(ctx, user)
	return nil
}

// SignUp creates an account and signs in. The profile is created here when the backend did not create one.
func (p *Provider) SignUp(ctx context.Context, email, password, fullName string) error {
	user, err := p.auth.SignUp(ctx, email, password, fullName)
	if err != nil {
		return classify(err)
	}
	if _, err := p.profiles.GetProfile(ctx, user.ID); errors.Is(err, apperror.ErrNotFound) {
		if _, err := p.profiles.CreateProfile(ctx, fullName); err != nil {
			p.logger.Warn("provision profile failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		}
		p.resolve(ctx, user)
		return nil
	}
	p.ensureResolved(ctx, user)
	return nil
}

// SignOut ends the session. The local state becomes anonymous even when the remote call fails.
func (p *Provider) SignOut(ctx context.Context) error {
	err := p.auth.SignOut(ctx)
	p.setAnonymous()
	if err != nil {
		return classify(err)
	}
	return nil
}

// RefreshProfile refetches the profile and role of the signed-in user.
func (p *Provider) RefreshProfile(ctx context.Context) {
	st := p.State()
	if st.Status != StatusAuthenticated || st.User == nil {
		return
	}
	p.resolve(ctx, st.User)
}

// handle reacts to auth provider notifications.
func (p *Provider) handle(ev Event) {
	switch ev.Kind {
	case SignedIn:
		if ev.User != nil {
			p.resolve(p.ctx, ev.User)
		}
	case SignedOut:
		p.setAnonymous()
	case TokenRefreshed:
		// same user; profile and role are unchanged
		if ev.User == nil {
			return
		}
		p.mu.Lock()
		if p.state.User != nil && p.state.User.ID == ev.User.ID {
			u := *ev.User
			p.state.User = &u
		}
		p.mu.Unlock()
	}
}

// ensureResolved resolves user unless a notification already did.
func (p *Provider) ensureResolved(ctx context.Context, user *User) {
	st := p.State()
	if st.Status == StatusAuthenticated && st.User != nil && st.User.ID == user.ID {
		return
	}
	p.resolve(ctx, user)
}

// resolve enters loading, fetches profile and role concurrently, then commits unless a newer
// transition happened in the meantime.
func (p *Provider) resolve(ctx context.Context, user *User) {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	u := *user
	p.state = State{Status: StatusLoading, User: &u}
	p.mu.Unlock()
	p.notify()

	var (
		profile *models.Profile
		role    = models.RoleNone
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pr, err := p.profiles.GetProfile(gctx, u.ID)
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			p.logger.Warn("fetch profile failed", zap.Error(err), zap.String("user_id", u.ID.String()))
			return nil
		}
		profile = pr
		return nil
	})
	g.Go(func() error {
		r, err := p.profiles.GetRole(gctx, u.ID)
		if err != nil {
			p.logger.Warn("fetch role failed", zap.Error(err), zap.String("user_id", u.ID.String()))
			return nil
		}
		role = r
		return nil
	})
	_ = g.Wait()

	p.mu.Lock()
	if p.seq != seq {
		p.mu.Unlock()
		return
	}
	p.state = State{Status: StatusAuthenticated, User: &u, Profile: profile, Role: role}
	p.mu.Unlock()
	p.notify()
}

func (p *Provider) setAnonymous() {
	p.mu.Lock()
	p.seq++
	changed := p.state.Status != StatusAnonymous
	p.state = State{Status: StatusAnonymous, Role: models.RoleNone}
	p.mu.Unlock()
	if changed {
		p.notify()
	}
}

func (p *Provider) notify() {
	p.mu.RLock()
	st := p.state
	fns := make([]func(State), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.RUnlock()
	for _, fn := range fns {
		fn(st)
	}
}
