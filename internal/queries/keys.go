package queries

import (
	"github.com/google/uuid"

	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/internal/query"
)

// Entity names used in cache keys.
const (
	EntityClubs              = "clubs"
	EntityClub               = "club"
	EntityEvents             = "events"
	EntityEvent              = "event"
	EntityMyRegistrations    = "my-registrations"
	EntityEventRegistrations = "event-registrations"
	EntityIsRegistered       = "is-registered"
)

func id(v uuid.UUID) string {
	if v == uuid.Nil {
		return ""
	}
	return v.String()
}

// ClubsKey is the key of the club list.
func ClubsKey() query.Key { return query.NewKey(EntityClubs) }

// ClubKey is the key of one club; a nil id yields the prefix of all club keys.
func ClubKey(clubID uuid.UUID) query.Key { return keyWith(EntityClub, clubID) }

// EventsKey is the key of the event list for a category. "" and "All" share one entry.
func EventsKey(category string) query.Key {
	if category == "" {
		category = models.CategoryAll
	}
	return query.NewKey(EntityEvents, category)
}

// EventKey is the key of one event; a nil id yields the prefix of all event keys.
func EventKey(eventID uuid.UUID) query.Key { return keyWith(EntityEvent, eventID) }

// MyRegistrationsKey is the key of a user's registrations; a nil id yields the prefix for all users.
func MyRegistrationsKey(userID uuid.UUID) query.Key { return keyWith(EntityMyRegistrations, userID) }

// EventRegistrationsKey is the key of an event's attendee list; a nil id yields the prefix for all events.
func EventRegistrationsKey(eventID uuid.UUID) query.Key {
	return keyWith(EntityEventRegistrations, eventID)
}

// IsRegisteredKey is the key of the registration check for (event, user). A nil user yields the
// prefix for every user of that event.
func IsRegisteredKey(eventID, userID uuid.UUID) query.Key {
	if userID == uuid.Nil {
		return keyWith(EntityIsRegistered, eventID)
	}
	return query.NewKey(EntityIsRegistered, id(eventID), id(userID))
}

func keyWith(entity string, v uuid.UUID) query.Key {
	if v == uuid.Nil {
		return query.NewKey(entity)
	}
	return query.NewKey(entity, v.String())
}
