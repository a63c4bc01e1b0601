package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/guard"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/internal/queries"
	"github.com/eventflow/eventflow/internal/query"
	"github.com/eventflow/eventflow/internal/session"
)

// ErrQuit is returned by Exec when the user asks to leave.
var ErrQuit = errors.New("quit")

type command struct {
	usage string
	help  string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"open":         {"open <path>", `navigate, e.g. open "/events?category=Technical&q=hack"`, (*App).cmdOpen},
		"refresh":      {"refresh", "reload the current page", (*App).cmdRefresh},
		"login":        {"login <email> <password>", "sign in", (*App).cmdLogin},
		"signup":       {"signup <email> <password> [full name]", "create an account", (*App).cmdSignup},
		"logout":       {"logout", "sign out", (*App).cmdLogout},
		"whoami":       {"whoami", "show the session", (*App).cmdWhoami},
		"profile":      {"profile [name=..] [phone=..]", "show or edit your profile", (*App).cmdProfile},
		"avatar":       {"avatar <image file>", "upload a profile picture", (*App).cmdAvatar},
		"register":     {"register <event-id>", "register for an event", (*App).cmdRegister},
		"cancel":       {"cancel <event-id>", "cancel your registration", (*App).cmdCancel},
		"create-club":  {"create-club name=.. [description=..] [email=..] [phone=..] [instagram=..]", "create a club", (*App).cmdCreateClub},
		"update-club":  {"update-club <club-id> key=value..", "edit a club", (*App).cmdUpdateClub},
		"create-event": {"create-event title=.. club=<id|name> date=YYYY-MM-DD time=HH:MM venue=.. category=.. seats=N [emoji=..] [description=..]", "create an event", (*App).cmdCreateEvent},
		"update-event": {"update-event <event-id> key=value..", "edit an event, e.g. status=closed", (*App).cmdUpdateEvent},
		"delete-event": {"delete-event <event-id>", "delete an event", (*App).cmdDeleteEvent},
		"help":         {"help", "list commands", (*App).cmdHelp},
		"quit":         {"quit", "leave", func(*App, context.Context, []string) error { return ErrQuit }},
	}
	commands["exit"] = commands["quit"]
}

// Exec runs one command line. Failures are printed; only ErrQuit is returned.
func (a *App) Exec(ctx context.Context, line string) error {
	args, err := splitArgs(strings.TrimSpace(line))
	if err != nil {
		a.printf("error: %v\n", err)
		return nil
	}
	if len(args) == 0 {
		return nil
	}
	cmd, ok := commands[strings.ToLower(args[0])]
	if !ok {
		a.printf("unknown command %q, type help\n", args[0])
		return nil
	}
	if err := cmd.run(a, ctx, args[1:]); err != nil {
		if errors.Is(err, ErrQuit) {
			return ErrQuit
		}
		var usage usageError
		if errors.As(err, &usage) {
			a.printf("usage: %s\n", cmd.usage)
			return nil
		}
		a.printf("error: %s\n", errorMessage(err))
	}
	return nil
}

type usageError struct{}

func (usageError) Error() string { return "usage" }

func (a *App) printf(format string, args ...any) {
	a.write(func(w io.Writer) { fmt.Fprintf(w, format, args...) })
}

func (a *App) cmdOpen(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError{}
	}
	a.Navigate(ctx, args[0])
	return nil
}

func (a *App) cmdRefresh(ctx context.Context, _ []string) error {
	a.Refresh(ctx)
	return nil
}

func (a *App) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError{}
	}
	if err := a.session.SignIn(ctx, args[0], args[1]); err != nil {
		return err
	}
	a.afterSignIn(ctx)
	return nil
}

func (a *App) cmdSignup(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError{}
	}
	if err := a.session.SignUp(ctx, args[0], args[1], strings.Join(args[2:], " ")); err != nil {
		return err
	}
	a.afterSignIn(ctx)
	return nil
}

// afterSignIn greets the user and returns to the page that asked for a session.
func (a *App) afterSignIn(ctx context.Context) {
	st := a.session.State()
	name := ""
	if st.Profile != nil {
		name = st.Profile.DisplayName()
	} else if st.User != nil {
		name = st.User.Email
	}
	a.printf("Signed in as %s.\n", name)

	a.mu.Lock()
	target := a.from
	a.from = ""
	a.mu.Unlock()
	if target == "" {
		target = guard.DashboardPath
	}
	a.Navigate(ctx, target)
}

func (a *App) cmdLogout(ctx context.Context, _ []string) error {
	if a.session.State().Status != session.StatusAuthenticated {
		a.printf("Not signed in.\n")
		return nil
	}
	err := a.session.SignOut(ctx)
	a.printf("Signed out.\n")
	return err
}

func (a *App) cmdWhoami(_ context.Context, _ []string) error {
	st := a.session.State()
	switch st.Status {
	case session.StatusLoading:
		a.printf("session: loading\n")
	case session.StatusAnonymous:
		a.printf("session: anonymous\n")
	default:
		name := "-"
		if st.Profile != nil {
			name = st.Profile.DisplayName()
		}
		a.printf("session: %s\nuser: %s (%s)\nname: %s\nrole: %s\n", st.Status, st.User.Email, st.User.ID, name, st.Role)
	}
	return nil
}

func (a *App) cmdProfile(ctx context.Context, args []string) error {
	if a.session.State().Status != session.StatusAuthenticated {
		return queries.ErrSignedOut
	}
	if len(args) == 0 {
		st := a.session.State()
		if st.Profile == nil {
			a.printf("No profile yet. Set one: profile name=\"Your Name\"\n")
			return nil
		}
		p := st.Profile
		a.printf("name: %s\nemail: %s\nphone: %s\navatar: %s\n", p.DisplayName(), p.Email, deref(p.Phone), deref(p.AvatarURL))
		return nil
	}
	kv, err := fields(args)
	if err != nil {
		return err
	}
	var upd models.ProfileUpdate
	for k, v := range kv {
		switch k {
		case "name", "full_name":
			upd.FullName = ptr(v)
		case "phone":
			upd.Phone = ptr(v)
		default:
			return fmt.Errorf("unknown profile field %q", k)
		}
	}
	if _, err := a.hooks.UpdateProfile(ctx, upd); err != nil {
		return err
	}
	a.session.RefreshProfile(ctx)
	a.printf("Profile updated.\n")
	return nil
}

func (a *App) cmdAvatar(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError{}
	}
	if a.deps.Avatars == nil {
		return errors.New("avatar upload is not available")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = query.Mutate(ctx, a.cache, func(ctx context.Context) (*models.Profile, error) {
		return a.deps.Avatars.UploadAvatar(ctx, args[0], f)
	}, queries.InvalidatedBy(queries.MutationUpdateProfile, queries.Vars{UserID: a.session.UserID()})...)
	if err != nil {
		return err
	}
	a.session.RefreshProfile(ctx)
	a.printf("Avatar updated.\n")
	return nil
}

func (a *App) cmdRegister(ctx context.Context, args []string) error {
	eventID, err := eventArg(args)
	if err != nil {
		return err
	}
	if _, err := a.hooks.Register(ctx, eventID); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return errors.New("you are already registered for this event")
		}
		return err
	}
	a.printf("Registered.\n")
	a.refreshIfLive(ctx)
	return nil
}

func (a *App) cmdCancel(ctx context.Context, args []string) error {
	eventID, err := eventArg(args)
	if err != nil {
		return err
	}
	if err := a.hooks.CancelRegistration(ctx, eventID); err != nil {
		return err
	}
	a.printf("Registration cancelled.\n")
	a.refreshIfLive(ctx)
	return nil
}

func (a *App) cmdCreateClub(ctx context.Context, args []string) error {
	in, err := clubInput(args)
	if err != nil {
		return err
	}
	if in.Name == nil || *in.Name == "" {
		return usageError{}
	}
	club, err := a.hooks.CreateClub(ctx, in)
	if err != nil {
		return err
	}
	a.printf("Club created: %s (%s)\n", club.Name, club.ID)
	return nil
}

func (a *App) cmdUpdateClub(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError{}
	}
	clubID, err := uuid.Parse(args[0])
	if err != nil {
		return apperror.ValidationFailed("club", "invalid club id")
	}
	in, err := clubInput(args[1:])
	if err != nil {
		return err
	}
	club, err := a.hooks.UpdateClub(ctx, clubID, in)
	if err != nil {
		return err
	}
	a.printf("Club updated: %s\n", club.Name)
	a.refreshIfLive(ctx)
	return nil
}

func (a *App) cmdCreateEvent(ctx context.Context, args []string) error {
	in, err := a.eventInput(ctx, args)
	if err != nil {
		return err
	}
	ev, err := a.hooks.CreateEvent(ctx, in)
	if err != nil {
		return err
	}
	a.printf("Event created: %s (%s)\n", ev.Title, ev.ID)
	a.refreshIfLive(ctx)
	return nil
}

func (a *App) cmdUpdateEvent(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError{}
	}
	eventID, err := uuid.Parse(args[0])
	if err != nil {
		return apperror.ValidationFailed("event", "invalid event id")
	}
	in, err := a.eventInput(ctx, args[1:])
	if err != nil {
		return err
	}
	ev, err := a.hooks.UpdateEvent(ctx, eventID, in)
	if err != nil {
		return err
	}
	a.printf("Event updated: %s [%s]\n", ev.Title, ev.Status)
	a.refreshIfLive(ctx)
	return nil
}

func (a *App) cmdDeleteEvent(ctx context.Context, args []string) error {
	eventID, err := eventArg(args)
	if err != nil {
		return err
	}
	if err := a.hooks.DeleteEvent(ctx, eventID); err != nil {
		return err
	}
	a.printf("Event deleted.\n")
	a.refreshIfLive(ctx)
	return nil
}

func (a *App) cmdHelp(_ context.Context, _ []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		if name != "exit" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	a.write(func(w io.Writer) {
		for _, name := range names {
			c := commands[name]
			fmt.Fprintf(w, "  %-40s %s\n", c.usage, c.help)
		}
	})
	return nil
}

func (a *App) refreshIfLive(ctx context.Context) {
	if isLive(a.Current()) {
		a.Refresh(ctx)
	}
}

func eventArg(args []string) (uuid.UUID, error) {
	if len(args) != 1 {
		return uuid.Nil, usageError{}
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, apperror.ValidationFailed("event", "invalid event id")
	}
	return id, nil
}

func clubInput(args []string) (models.ClubInput, error) {
	kv, err := fields(args)
	if err != nil {
		return models.ClubInput{}, err
	}
	var in models.ClubInput
	for k, v := range kv {
		switch k {
		case "name":
			in.Name = ptr(v)
		case "description":
			in.Description = ptr(v)
		case "email", "contact_email":
			in.ContactEmail = ptr(v)
		case "phone", "contact_phone":
			in.ContactPhone = ptr(v)
		case "instagram", "instagram_handle":
			in.InstagramHandle = ptr(v)
		case "logo", "logo_url":
			in.LogoURL = ptr(v)
		default:
			return in, fmt.Errorf("unknown club field %q", k)
		}
	}
	return in, nil
}

// eventInput parses event fields. club accepts an id or a club name.
func (a *App) eventInput(ctx context.Context, args []string) (models.EventInput, error) {
	kv, err := fields(args)
	if err != nil {
		return models.EventInput{}, err
	}
	var in models.EventInput
	for k, v := range kv {
		switch k {
		case "title":
			in.Title = ptr(v)
		case "description":
			in.Description = ptr(v)
		case "club", "club_id":
			id, err := a.clubID(ctx, v)
			if err != nil {
				return in, err
			}
			in.ClubID = &id
		case "date", "event_date":
			in.EventDate = ptr(v)
		case "time", "event_time":
			in.EventTime = ptr(v)
		case "venue":
			in.Venue = ptr(v)
		case "category":
			in.Category = ptr(v)
		case "seats", "total_seats":
			n, err := strconv.Atoi(v)
			if err != nil {
				return in, apperror.ValidationFailed("total_seats", "seats must be a number")
			}
			in.TotalSeats = &n
		case "emoji", "image_emoji":
			in.ImageEmoji = ptr(v)
		case "status":
			s := models.EventStatus(strings.ToLower(v))
			in.Status = &s
		default:
			return in, fmt.Errorf("unknown event field %q", k)
		}
	}
	return in, nil
}

func (a *App) clubID(ctx context.Context, v string) (uuid.UUID, error) {
	if id, err := uuid.Parse(v); err == nil {
		return id, nil
	}
	res := a.hooks.Clubs(ctx)
	if res.Status == query.Error {
		return uuid.Nil, res.Err
	}
	for _, c := range res.Data {
		if strings.EqualFold(c.Name, v) {
			return c.ID, nil
		}
	}
	return uuid.Nil, apperror.NotFound("club " + strconv.Quote(v))
}

func ptr[T any](v T) *T { return &v }

func deref(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
