// Package app wires the session, the query hooks and the pages into one interactive application.
package app

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eventflow/eventflow/config"
	"github.com/eventflow/eventflow/internal/client"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/internal/queries"
	"github.com/eventflow/eventflow/internal/query"
	"github.com/eventflow/eventflow/internal/session"
)

const (
	fetchTimeout    = 20 * time.Second
	refreshInterval = time.Minute
)

// Store is everything the application reads and writes remotely.
type Store interface {
	queries.Store
	session.ProfileStore
}

// AvatarUploader uploads a profile picture.
type AvatarUploader interface {
	UploadAvatar(ctx context.Context, filename string, r io.Reader) (*models.Profile, error)
}

// Runner is a background loop owned by the application.
type Runner interface {
	Run(ctx context.Context)
}

// Deps are the collaborators of an App.
type Deps struct {
	Store Store
	Auth  session.AuthProvider
	// Optional.
	Avatars AvatarUploader
	// Feed builds the realtime change feed around apply. Optional.
	Feed func(apply func(models.Change)) (Runner, error)
	// Refresher keeps the session token alive. Optional.
	Refresher Runner
}

// Options tune an App.
type Options struct {
	StaleTime time.Duration
	// LiveRender re-renders the current page when a remote change arrives.
	LiveRender bool
}

// App is the single-actor application. Pages are written to out.
type App struct {
	deps    Deps
	opts    Options
	logger  *zap.Logger
	cache   *query.Cache
	session *session.Provider
	hooks   *queries.Hooks

	outMu sync.Mutex
	out   io.Writer

	mu      sync.Mutex
	current string
	pending string
	from    string
	lastSt  session.Status

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	unsub  []func()
}

// New builds the application. Nothing runs until Start.
func New(deps Deps, opts Options, out io.Writer, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := query.New(
		query.WithStaleTime(opts.StaleTime),
		query.WithFetchTimeout(fetchTimeout),
		query.WithLogger(logger.Named("query")),
	)
	provider := session.NewProvider(deps.Auth, deps.Store, logger.Named("session"))
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		deps:    deps,
		opts:    opts,
		logger:  logger,
		cache:   cache,
		session: provider,
		out:     out,
		current: "/",
		lastSt:  session.StatusLoading,
		ctx:     ctx,
		cancel:  cancel,
	}
	a.hooks = queries.New(deps.Store, cache, provider.UserID)
	return a
}

// Dial builds an application talking to the API described by cfg.
func Dial(cfg config.ClientConfig, out io.Writer, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := url.Parse(cfg.APIBaseURL); err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	api := client.NewHTTP(cfg.APIBaseURL, nil, logger.Named("http"))
	auth := client.NewAuth(api, logger.Named("auth"))
	store := client.NewStore(api)

	deps := Deps{
		Store:     store,
		Auth:      auth,
		Avatars:   store,
		Refresher: refresher{auth: auth},
	}
	if cfg.Realtime {
		deps.Feed = func(apply func(models.Change)) (Runner, error) {
			return client.NewFeed(cfg.APIBaseURL, auth.Token, apply, logger.Named("feed"))
		}
	}
	return New(deps, Options{StaleTime: cfg.StaleTime, LiveRender: true}, out, logger), nil
}

type refresher struct {
	auth *client.Auth
}

func (r refresher) Run(ctx context.Context) { r.auth.RunRefresher(ctx, refreshInterval) }

// Start resolves the session and starts the background loops.
func (a *App) Start(ctx context.Context) error {
	a.unsub = append(a.unsub, a.session.Subscribe(a.onSession))

	if a.deps.Feed != nil {
		feed, err := a.deps.Feed(a.applyChange)
		if err != nil {
			return err
		}
		a.goRun(feed)
	}
	if a.deps.Refresher != nil {
		a.goRun(a.deps.Refresher)
	}

	if err := a.session.Start(ctx); err != nil {
		a.logger.Warn("session start failed", zap.Error(err))
	}
	return nil
}

// Close stops the background loops and the session provider.
func (a *App) Close() {
	a.cancel()
	for _, fn := range a.unsub {
		fn()
	}
	a.session.Close()
	a.wg.Wait()
}

// Session returns the session provider.
func (a *App) Session() *session.Provider { return a.session }

// Hooks returns the query hooks.
func (a *App) Hooks() *queries.Hooks { return a.hooks }

// Current returns the path of the page on screen.
func (a *App) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *App) goRun(r Runner) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		r.Run(a.ctx)
	}()
}

// onSession reacts to session transitions: it finishes a navigation that waited for the session
// and drops cached data when the user signs out.
func (a *App) onSession(st session.State) {
	a.mu.Lock()
	prev := a.lastSt
	a.lastSt = st.Status
	pending := a.pending
	if st.Status != session.StatusLoading {
		a.pending = ""
	}
	current := a.current
	a.mu.Unlock()

	if st.Status == session.StatusAnonymous && prev != session.StatusAnonymous {
		a.cache.Clear()
	}
	if st.Status == session.StatusLoading {
		return
	}
	switch {
	case pending != "":
		a.Navigate(a.ctx, pending)
	case st.Status == session.StatusAnonymous && prev == session.StatusAuthenticated && isProtected(current):
		a.Navigate(a.ctx, current)
	}
}

// applyChange feeds a remote change into the cache and optionally re-renders.
func (a *App) applyChange(ch models.Change) {
	a.hooks.ApplyChange(ch)
	if !a.opts.LiveRender {
		return
	}
	current := a.Current()
	if !isLive(current) {
		return
	}
	a.logger.Debug("live update", zap.String("kind", string(ch.Kind)), zap.String("page", current))
	a.render(a.ctx, current, true)
}
