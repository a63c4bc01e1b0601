package view

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/internal/session"
)

func event(status models.EventStatus, filled, total int) models.EventWithDetails {
	return models.EventWithDetails{
		Event: models.Event{
			ID:         uuid.New(),
			Title:      "Hack Night",
			EventDate:  "2025-03-05",
			EventTime:  "18:30:00",
			Venue:      "Hall B",
			Category:   "Technical",
			TotalSeats: total,
			Status:     status,
		},
		ClubName:    "Coding Club",
		FilledSeats: filled,
	}
}

func TestNewEventCard_Open(t *testing.T) {
	c := NewEventCard(event(models.EventOpen, 120, 150))
	assert.InDelta(t, 80.0, c.FillPct, 0.001)
	assert.True(t, c.CanAct)
	assert.Equal(t, "Registration Open", c.Badge)
	assert.Equal(t, "📅", c.Emoji)
	assert.Equal(t, "Mar 5, 2025", c.Date)
	assert.Equal(t, "6:30 PM", c.Time)
}

func TestNewEventCard_Closed(t *testing.T) {
	c := NewEventCard(event(models.EventClosed, 120, 150))
	assert.False(t, c.CanAct)
	assert.Equal(t, "Closed", c.Badge)
	assert.Equal(t, 120, c.Filled)
	assert.InDelta(t, 80.0, c.FillPct, 0.001)

	c = NewEventCard(event(models.EventCancelled, 0, 10))
	assert.False(t, c.CanAct)
	assert.Equal(t, "Cancelled", c.Badge)
}

func TestFillPercent(t *testing.T) {
	assert.Equal(t, 0.0, FillPercent(5, 0))
	assert.Equal(t, 100.0, FillPercent(200, 150))
	assert.Equal(t, 50.0, FillPercent(1, 2))
}

func TestBar(t *testing.T) {
	assert.Equal(t, "[#####.....]", Bar(50, 10))
	assert.Equal(t, "[##########]", Bar(100, 10))
	assert.Equal(t, "[..........]", Bar(0, 10))
}

func TestRenderCard(t *testing.T) {
	e := event(models.EventOpen, 120, 150)
	email := "club@campus.edu"
	e.ClubEmail = &email

	var buf bytes.Buffer
	RenderCard(&buf, NewEventCard(e))
	out := buf.String()
	assert.Contains(t, out, "Hack Night  [Registration Open]")
	assert.Contains(t, out, "120 / 150 filled")
	assert.Contains(t, out, "80%")
	assert.Contains(t, out, "mail club@campus.edu")
	assert.Contains(t, out, "open /events/"+e.ID.String())
}

func TestEventDetail_NotFound(t *testing.T) {
	var buf bytes.Buffer
	EventDetail(&buf, nil, true, false)
	assert.Contains(t, buf.String(), "Event not found")
	assert.Contains(t, buf.String(), "open /events")
}

func TestEventDetail_Actions(t *testing.T) {
	e := event(models.EventOpen, 1, 10)

	var buf bytes.Buffer
	EventDetail(&buf, &e, true, false)
	assert.Contains(t, buf.String(), "register "+e.ID.String())

	buf.Reset()
	EventDetail(&buf, &e, true, true)
	assert.Contains(t, buf.String(), "cancel "+e.ID.String())

	buf.Reset()
	EventDetail(&buf, &e, false, false)
	assert.Contains(t, buf.String(), "Sign in to register")

	closed := event(models.EventClosed, 1, 10)
	buf.Reset()
	EventDetail(&buf, &closed, true, false)
	assert.Contains(t, buf.String(), "Registration unavailable")
}

func TestAdmin_Totals(t *testing.T) {
	var buf bytes.Buffer
	events := []AdminEvent{
		{Event: event(models.EventOpen, 120, 150)},
		{Event: event(models.EventClosed, 30, 30)},
	}
	Admin(&buf, session.State{Role: models.RoleClubAdmin}, nil, events)
	assert.Contains(t, buf.String(), "Role: club_admin")
	assert.Contains(t, buf.String(), "Total Events: 2   Total Registrations: 150")
}

func TestSearch(t *testing.T) {
	events := []models.EventWithDetails{
		{Event: models.Event{Title: "Hack Night"}, ClubName: "Coding Club"},
		{Event: models.Event{Title: "Poetry Slam"}, ClubName: "Literary Society"},
	}

	got := Search(events, "HACK")
	if assert.Len(t, got, 1) {
		assert.Equal(t, "Hack Night", got[0].Title)
	}
	got = Search(events, "society")
	if assert.Len(t, got, 1) {
		assert.Equal(t, "Poetry Slam", got[0].Title)
	}
	assert.Len(t, Search(events, "  "), 2)
	assert.Empty(t, Search(events, "chess"))
}

func TestEvents_SearchText(t *testing.T) {
	events := []models.EventWithDetails{
		{Event: models.Event{ID: uuid.New(), Title: "Hack Night", Status: models.EventOpen, TotalSeats: 10}, ClubName: "Coding Club"},
		{Event: models.Event{ID: uuid.New(), Title: "Poetry Slam", Status: models.EventOpen, TotalSeats: 10}, ClubName: "Literary Society"},
	}
	var buf bytes.Buffer
	Events(&buf, "", "slam", events)
	out := buf.String()
	assert.Contains(t, out, "== Events (All) ==")
	assert.Contains(t, out, `Search: "slam"`)
	assert.Contains(t, out, "Poetry Slam")
	assert.NotContains(t, out, "Hack Night")

	buf.Reset()
	Events(&buf, "Workshop", "chess", events)
	assert.Contains(t, buf.String(), "No events found.")
}
