package view

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/internal/session"
)

const barWidth = 20

// RenderCard writes one event card.
func RenderCard(w io.Writer, c EventCard) {
	fmt.Fprintf(w, "%s %s  [%s]\n", c.Emoji, c.Title, c.Badge)
	fmt.Fprintf(w, "   Organized by: %s\n", c.ClubName)
	fmt.Fprintf(w, "   %s %s  @ %s\n", c.Date, c.Time, c.Venue)
	fmt.Fprintf(w, "   %d / %d filled %s %.0f%%\n", c.Filled, c.Total, Bar(c.FillPct, barWidth), c.FillPct)
	if len(c.Contact) > 0 {
		fmt.Fprintf(w, "   Contact: %s\n", strings.Join(c.Contact, ", "))
	}
	fmt.Fprintf(w, "   -> %s\n", c.action())
}

// Home renders the landing page.
func Home(w io.Writer, st session.State) {
	fmt.Fprintln(w, "== EventFlow ==")
	fmt.Fprintln(w, "Discover, register for and manage campus events.")
	if st.Status == session.StatusAuthenticated && st.User != nil {
		fmt.Fprintf(w, "Signed in as %s. Try: open /events, open /dashboard\n", displayName(st))
		return
	}
	fmt.Fprintln(w, "Try: open /events, login <email> <password>, signup <email> <password> [name]")
}

// Events renders the event listing for category, narrowed by the search text.
func Events(w io.Writer, category, search string, events []models.EventWithDetails) {
	if category == "" {
		category = models.CategoryAll
	}
	fmt.Fprintf(w, "== Events (%s) ==\n", category)
	fmt.Fprintf(w, "Categories: %s\n", strings.Join(Categories, " | "))
	if search != "" {
		fmt.Fprintf(w, "Search: %q\n", search)
		events = Search(events, search)
	}
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}
	for _, e := range events {
		RenderCard(w, NewEventCard(e))
	}
}

// EventDetail renders a single event. registered reports the viewer's active registration.
func EventDetail(w io.Writer, e *models.EventWithDetails, signedIn, registered bool) {
	if e == nil {
		EventNotFound(w)
		return
	}
	c := NewEventCard(*e)
	fmt.Fprintf(w, "== %s %s ==\n", c.Emoji, c.Title)
	fmt.Fprintf(w, "Status: %s   Category: %s\n", c.Badge, e.Category)
	fmt.Fprintf(w, "Club: %s\n", c.ClubName)
	fmt.Fprintf(w, "When: %s at %s\n", c.Date, c.Time)
	fmt.Fprintf(w, "Where: %s\n", c.Venue)
	if e.Description != nil && *e.Description != "" {
		fmt.Fprintf(w, "\n%s\n\n", *e.Description)
	}
	fmt.Fprintf(w, "Seats: %d / %d registered %s %.0f%%\n", c.Filled, c.Total, Bar(c.FillPct, barWidth), c.FillPct)
	if len(c.Contact) > 0 {
		fmt.Fprintf(w, "Contact: %s\n", strings.Join(c.Contact, ", "))
	}
	switch {
	case !signedIn:
		fmt.Fprintln(w, "Sign in to register: login <email> <password>")
	case registered:
		fmt.Fprintf(w, "You are registered. cancel %s\n", c.ID)
	case c.CanAct:
		fmt.Fprintf(w, "register %s\n", c.ID)
	default:
		fmt.Fprintln(w, "Registration unavailable.")
	}
}

// EventNotFound is the in-page not-found state of the detail page.
func EventNotFound(w io.Writer) {
	fmt.Fprintln(w, "Event not found.")
	fmt.Fprintln(w, "Browse all events: open /events")
}

// Calendar lists events grouped by date.
func Calendar(w io.Writer, events []models.EventWithDetails) {
	fmt.Fprintln(w, "== Calendar ==")
	if len(events) == 0 {
		fmt.Fprintln(w, "No events scheduled.")
		return
	}
	last := ""
	for _, e := range events {
		if e.EventDate != last {
			fmt.Fprintf(w, "%s\n", FormatDate(e.EventDate))
			last = e.EventDate
		}
		fmt.Fprintf(w, "  %s  %s (%s)\n", FormatTime(e.EventTime), e.Title, e.ClubName)
	}
}

// Dashboard renders the student dashboard.
func Dashboard(w io.Writer, st session.State, regs []models.RegistrationWithEvent) {
	fmt.Fprintln(w, "== Dashboard ==")
	fmt.Fprintf(w, "Welcome, %s\n", displayName(st))
	if st.Profile != nil {
		phone := "-"
		if st.Profile.Phone != nil && *st.Profile.Phone != "" {
			phone = *st.Profile.Phone
		}
		fmt.Fprintf(w, "Email: %s   Phone: %s\n", st.Profile.Email, phone)
	}
	if st.Role.CanManageEvents() {
		fmt.Fprintln(w, "Manage events: open /admin")
	}
	fmt.Fprintf(w, "\nMy registrations (%d)\n", len(regs))
	if len(regs) == 0 {
		fmt.Fprintln(w, "  none yet. Browse: open /events")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  EVENT\tDATE\tSTATUS\tID")
	for _, r := range regs {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", r.Event.Title, FormatDate(r.Event.EventDate), r.Status, r.EventID)
	}
	_ = tw.Flush()
}

// AdminEvent pairs an event with its attendee list for the admin page.
type AdminEvent struct {
	Event     models.EventWithDetails
	Attendees []models.RegistrationWithProfile
}

// Admin renders the club management page.
func Admin(w io.Writer, st session.State, clubs []models.Club, events []AdminEvent) {
	fmt.Fprintln(w, "== Admin ==")
	fmt.Fprintf(w, "Role: %s\n", st.Role)
	registrations := 0
	for _, ae := range events {
		registrations += ae.Event.FilledSeats
	}
	fmt.Fprintf(w, "Total Events: %d   Total Registrations: %d\n", len(events), registrations)
	fmt.Fprintf(w, "\nClubs (%d)\n", len(clubs))
	for _, c := range clubs {
		fmt.Fprintf(w, "  %s  %s\n", c.ID, c.Name)
	}
	fmt.Fprintf(w, "\nEvents (%d)\n", len(events))
	for _, ae := range events {
		e := ae.Event
		fmt.Fprintf(w, "  %s  %s  %s  %d/%d  [%s]\n", e.ID, e.Title, FormatDate(e.EventDate), e.FilledSeats, e.TotalSeats, BadgeLabel(e.Status))
		for _, a := range ae.Attendees {
			name := a.UserID.String()
			if a.Profile != nil {
				name = a.Profile.DisplayName()
			}
			fmt.Fprintf(w, "      - %s (%s)\n", name, a.Status)
		}
	}
	fmt.Fprintln(w, "\nCommands: create-club, create-event, update-event, delete-event")
}

// Login renders the sign-in page. from is the page to return to after signing in.
func Login(w io.Writer, from string) {
	fmt.Fprintln(w, "== Sign in ==")
	if from != "" {
		fmt.Fprintf(w, "Sign in to continue to %s\n", from)
	}
	fmt.Fprintln(w, "login <email> <password>")
	fmt.Fprintln(w, "signup <email> <password> [full name]")
}

// NotFound renders the catch-all page.
func NotFound(w io.Writer, path string) {
	fmt.Fprintf(w, "404: %s does not exist.\n", path)
	fmt.Fprintln(w, "Return home: open /")
}

// Loading is shown while the session resolves.
func Loading(w io.Writer) {
	fmt.Fprintln(w, "Loading...")
}

func displayName(st session.State) string {
	if st.Profile != nil {
		return st.Profile.DisplayName()
	}
	if st.User != nil {
		return st.User.Email
	}
	return "guest"
}
