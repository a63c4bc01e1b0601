package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/guard"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/internal/queries"
	"github.com/eventflow/eventflow/internal/query"
	"github.com/eventflow/eventflow/internal/session"
	"github.com/eventflow/eventflow/internal/view"
)

// Navigate opens path, following guard redirects, and renders the resulting page.
func (a *App) Navigate(ctx context.Context, path string) {
	m := guard.Resolve(path)
	d := m.Check(guardInput(a.session.State()))

	switch d.Outcome {
	case guard.Wait:
		a.mu.Lock()
		a.pending = path
		a.mu.Unlock()
		a.write(func(w io.Writer) { view.Loading(w) })
	case guard.Redirect:
		if d.To == guard.LoginPath {
			a.mu.Lock()
			a.from = d.From
			a.mu.Unlock()
		}
		a.logger.Debug("navigation redirected", zap.String("from", path), zap.String("to", d.To))
		a.Navigate(ctx, d.To)
	default:
		a.mu.Lock()
		a.current = path
		a.mu.Unlock()
		a.render(ctx, path, false)
	}
}

// Refresh re-renders the current page.
func (a *App) Refresh(ctx context.Context) {
	a.Navigate(ctx, a.Current())
}

func guardInput(st session.State) guard.Input {
	return guard.Input{
		Loading:       st.Status == session.StatusLoading,
		Authenticated: st.Status == session.StatusAuthenticated,
		Role:          st.Role,
	}
}

func isProtected(path string) bool {
	return guard.Resolve(path).Route.Protected
}

// isLive reports whether the page at path shows remote data.
func isLive(path string) bool {
	switch guard.Resolve(path).Route.Page {
	case guard.PageEvents, guard.PageEventDetail, guard.PageCalendar, guard.PageDashboard, guard.PageAdmin:
		return true
	}
	return false
}

// render fetches what the page needs and writes it. Data errors are shown inline.
func (a *App) render(ctx context.Context, path string, live bool) {
	m := guard.Resolve(path)
	st := a.session.State()

	var page func(w io.Writer)
	switch m.Route.Page {
	case guard.PageHome:
		page = func(w io.Writer) { view.Home(w, st) }
	case guard.PageEvents:
		category := m.Query.Get("category")
		res := a.hooks.Events(ctx, category)
		if res.Status == query.Error {
			page = dataError(res.Err)
			break
		}
		search := m.Query.Get("q")
		page = func(w io.Writer) { view.Events(w, category, search, res.Data) }
	case guard.PageEventDetail:
		page = a.eventDetail(ctx, m.Params["id"], st)
	case guard.PageCalendar:
		res := a.hooks.Events(ctx, models.CategoryAll)
		if res.Status == query.Error {
			page = dataError(res.Err)
			break
		}
		page = func(w io.Writer) { view.Calendar(w, res.Data) }
	case guard.PageDashboard:
		res := a.hooks.MyRegistrations(ctx)
		if res.Status == query.Error {
			page = dataError(res.Err)
			break
		}
		page = func(w io.Writer) { view.Dashboard(w, st, res.Data) }
	case guard.PageAdmin:
		page = a.admin(ctx, st)
	case guard.PageLogin:
		a.mu.Lock()
		from := a.from
		a.mu.Unlock()
		page = func(w io.Writer) { view.Login(w, from) }
	default:
		page = func(w io.Writer) { view.NotFound(w, m.Path) }
	}

	a.write(func(w io.Writer) {
		if live {
			fmt.Fprintln(w, "\n-- updated --")
		}
		page(w)
	})
}

func (a *App) eventDetail(ctx context.Context, rawID string, st session.State) func(io.Writer) {
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		return view.EventNotFound
	}
	res := a.hooks.Event(ctx, eventID)
	if res.Status == query.Error {
		return dataError(res.Err)
	}
	signedIn := st.Status == session.StatusAuthenticated
	registered := false
	if signedIn && res.Data != nil {
		reg := a.hooks.IsRegistered(ctx, eventID)
		if reg.Status == query.Error {
			a.logger.Warn("registration check failed", zap.Error(reg.Err))
		}
		registered = reg.Data
	}
	return func(w io.Writer) { view.EventDetail(w, res.Data, signedIn, registered) }
}

// admin loads clubs, events and every attendee list. Attendee lists are fetched concurrently.
func (a *App) admin(ctx context.Context, st session.State) func(io.Writer) {
	clubs := a.hooks.Clubs(ctx)
	if clubs.Status == query.Error {
		return dataError(clubs.Err)
	}
	events := a.hooks.Events(ctx, models.CategoryAll)
	if events.Status == query.Error {
		return dataError(events.Err)
	}

	rows := make([]view.AdminEvent, len(events.Data))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, e := range events.Data {
		rows[i].Event = e
		if !canManage(st, e) {
			continue
		}
		g.Go(func() error {
			res := a.hooks.EventRegistrations(gctx, e.ID)
			if res.Status == query.Error {
				return res.Err
			}
			rows[i].Attendees = res.Data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return dataError(err)
	}
	return func(w io.Writer) { view.Admin(w, st, clubs.Data, rows) }
}

// canManage reports whether the viewer may see an event's attendees.
func canManage(st session.State, e models.EventWithDetails) bool {
	if st.Role == models.RoleAdmin {
		return true
	}
	return st.User != nil && e.CreatedBy == st.User.ID
}

func dataError(err error) func(io.Writer) {
	return func(w io.Writer) { fmt.Fprintf(w, "error: %s\n", errorMessage(err)) }
}

// errorMessage turns an error into one line for the user.
func errorMessage(err error) string {
	var authErr *session.AuthError
	switch {
	case errors.As(err, &authErr):
		return authErr.Message
	case errors.Is(err, apperror.ErrUnavailable):
		return "cannot reach the server, try again"
	case errors.Is(err, queries.ErrSignedOut):
		return "sign in required: login <email> <password>"
	case errors.Is(err, apperror.ErrUnauthenticated):
		return "your session has expired, please sign in again"
	}
	return strings.TrimSpace(err.Error())
}

func (a *App) write(fn func(w io.Writer)) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fn(a.out)
}
