package queries

import (
	"github.com/google/uuid"

	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/internal/query"
)

// Mutation names a write operation.
type Mutation string

const (
	MutationCreateClub         Mutation = "create_club"
	MutationUpdateClub         Mutation = "update_club"
	MutationCreateEvent        Mutation = "create_event"
	MutationUpdateEvent        Mutation = "update_event"
	MutationDeleteEvent        Mutation = "delete_event"
	MutationRegister           Mutation = "register"
	MutationCancelRegistration Mutation = "cancel_registration"
	MutationUpdateProfile      Mutation = "update_profile"
)

// Vars identifies the rows a mutation touched.
type Vars struct {
	ClubID  uuid.UUID
	EventID uuid.UUID
	UserID  uuid.UUID
}

// InvalidatedBy lists every cache key a successful mutation can make stale.
// Each entry is explicit; a missing key here is a stale read somewhere else.
func InvalidatedBy(m Mutation, v Vars) []query.Key {
	switch m {
	case MutationCreateClub:
		return []query.Key{ClubsKey()}
	case MutationUpdateClub:
		// events embed the club's contact fields
		return []query.Key{ClubsKey(), ClubKey(v.ClubID), query.NewKey(EntityEvents), EventKey(uuid.Nil)}
	case MutationCreateEvent:
		return []query.Key{query.NewKey(EntityEvents)}
	case MutationUpdateEvent:
		return []query.Key{
			query.NewKey(EntityEvents),
			EventKey(v.EventID),
			MyRegistrationsKey(uuid.Nil),
			EventRegistrationsKey(v.EventID),
		}
	case MutationDeleteEvent:
		return []query.Key{
			query.NewKey(EntityEvents),
			EventKey(v.EventID),
			MyRegistrationsKey(uuid.Nil),
			IsRegisteredKey(v.EventID, uuid.Nil),
			EventRegistrationsKey(v.EventID),
		}
	case MutationRegister, MutationCancelRegistration:
		return []query.Key{
			IsRegisteredKey(v.EventID, v.UserID),
			MyRegistrationsKey(v.UserID),
			query.NewKey(EntityEvents),
			EventKey(v.EventID),
			EventRegistrationsKey(v.EventID),
		}
	case MutationUpdateProfile:
		return []query.Key{EventRegistrationsKey(uuid.Nil)}
	}
	return nil
}

// ChangeKeys maps a remote change notification onto the same invalidation table.
// A registration change from another user only touches the shared keys plus that user's own.
func ChangeKeys(ch models.Change) []query.Key {
	switch ch.Kind {
	case models.ChangeEventUpdated:
		if ch.EventID == uuid.Nil {
			return InvalidatedBy(MutationCreateEvent, Vars{})
		}
		return InvalidatedBy(MutationUpdateEvent, Vars{EventID: ch.EventID})
	case models.ChangeEventDeleted:
		return InvalidatedBy(MutationDeleteEvent, Vars{EventID: ch.EventID})
	case models.ChangeClubUpdated:
		return InvalidatedBy(MutationUpdateClub, Vars{ClubID: ch.ClubID})
	case models.ChangeRegistrationUpdated:
		keys := []query.Key{query.NewKey(EntityEvents), EventKey(ch.EventID), EventRegistrationsKey(ch.EventID)}
		if ch.UserID != uuid.Nil {
			keys = append(keys, IsRegisteredKey(ch.EventID, ch.UserID), MyRegistrationsKey(ch.UserID))
		}
		return keys
	}
	return nil
}
