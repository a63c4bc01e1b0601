// Package view renders pages as plain text.
package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/eventflow/eventflow/internal/models"
)

// Categories offered by the events page filter.
var Categories = []string{models.CategoryAll, "Technical", "Workshop", "Cultural", "Business", "Creative"}

const defaultEmoji = "📅"

// EventCard is the display model of an event in a listing.
type EventCard struct {
	ID       string
	Emoji    string
	Title    string
	ClubName string
	Date     string
	Time     string
	Venue    string
	Filled   int
	Total    int
	FillPct  float64
	Badge    string
	CanAct   bool
	Contact  []string
	Status   models.EventStatus
	Category string
}

// FillPercent returns filled/total*100 capped at 100. An event without seats is 0.
func FillPercent(filled, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(filled) / float64(total) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// BadgeLabel is the status badge text.
func BadgeLabel(s models.EventStatus) string {
	switch s {
	case models.EventOpen:
		return "Registration Open"
	case models.EventClosed:
		return "Closed"
	default:
		return "Cancelled"
	}
}

// NewEventCard builds the card for e.
func NewEventCard(e models.EventWithDetails) EventCard {
	emoji := defaultEmoji
	if e.ImageEmoji != nil && *e.ImageEmoji != "" {
		emoji = *e.ImageEmoji
	}
	card := EventCard{
		ID:       e.ID.String(),
		Emoji:    emoji,
		Title:    e.Title,
		ClubName: e.ClubName,
		Date:     FormatDate(e.EventDate),
		Time:     FormatTime(e.EventTime),
		Venue:    e.Venue,
		Filled:   e.FilledSeats,
		Total:    e.TotalSeats,
		FillPct:  FillPercent(e.FilledSeats, e.TotalSeats),
		Badge:    BadgeLabel(e.Status),
		CanAct:   e.Status == models.EventOpen,
		Status:   e.Status,
		Category: e.Category,
	}
	if e.ClubEmail != nil && *e.ClubEmail != "" {
		card.Contact = append(card.Contact, "mail "+*e.ClubEmail)
	}
	if e.ClubPhone != nil && *e.ClubPhone != "" {
		card.Contact = append(card.Contact, "tel "+*e.ClubPhone)
	}
	if e.ClubInstagram != nil && *e.ClubInstagram != "" {
		card.Contact = append(card.Contact, "instagram "+*e.ClubInstagram)
	}
	return card
}

// FormatDate turns 2025-03-05 into "Mar 5, 2025". Unparseable input is returned as is.
func FormatDate(d string) string {
	t, err := time.Parse(time.DateOnly, d)
	if err != nil {
		return d
	}
	return t.Format("Jan 2, 2006")
}

// FormatTime turns 14:30 or 14:30:00 into "2:30 PM". Unparseable input is returned as is.
func FormatTime(s string) string {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("3:04 PM")
		}
	}
	return s
}

// Bar draws a width-wide progress bar for pct.
func Bar(pct float64, width int) string {
	n := int(pct / 100 * float64(width))
	if n > width {
		n = width
	}
	b := make([]rune, width)
	for i := range b {
		if i < n {
			b[i] = '#'
		} else {
			b[i] = '.'
		}
	}
	return "[" + string(b) + "]"
}

func (c EventCard) action() string {
	if c.CanAct {
		return fmt.Sprintf("open /events/%s", c.ID)
	}
	return "unavailable"
}

// Search keeps the events whose title or club name contains text, ignoring case.
func Search(events []models.EventWithDetails, text string) []models.EventWithDetails {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return events
	}
	var out []models.EventWithDetails
	for _, e := range events {
		if strings.Contains(strings.ToLower(e.Title), needle) || strings.Contains(strings.ToLower(e.ClubName), needle) {
			out = append(out, e)
		}
	}
	return out
}
