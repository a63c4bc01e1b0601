// Package queries holds the typed reads and writes the application uses, each bound to its
// cache key and to the keys it invalidates.
package queries

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/internal/query"
)

// ErrSignedOut is returned by writes that need a signed-in user.
var ErrSignedOut = errors.New("sign in required")

// Store is the remote data store. The backend identifies the caller from its session token.
type Store interface {
	ListClubs(ctx context.Context) ([]models.Club, error)
	GetClub(ctx context.Context, id uuid.UUID) (*models.Club, error)
	CreateClub(ctx context.Context, in models.ClubInput) (*models.Club, error)
	UpdateClub(ctx context.Context, id uuid.UUID, in models.ClubInput) (*models.Club, error)

	ListEvents(ctx context.Context, filter models.EventFilter) ([]models.EventWithDetails, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*models.EventWithDetails, error)
	CreateEvent(ctx context.Context, in models.EventInput) (*models.EventWithDetails, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, in models.EventInput) (*models.EventWithDetails, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error

	MyRegistrations(ctx context.Context) ([]models.RegistrationWithEvent, error)
	EventRegistrations(ctx context.Context, eventID uuid.UUID) ([]models.RegistrationWithProfile, error)
	ActiveRegistration(ctx context.Context, eventID uuid.UUID) (*models.Registration, error)
	Register(ctx context.Context, eventID uuid.UUID) (*models.Registration, error)
	CancelRegistration(ctx context.Context, eventID uuid.UUID) error

	UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.Profile, error)
}

// Hooks binds the store to a cache and to the current user.
type Hooks struct {
	store Store
	cache *query.Cache
	user  func() uuid.UUID
}

// New creates hooks. currentUser returns uuid.Nil when nobody is signed in.
func New(store Store, cache *query.Cache, currentUser func() uuid.UUID) *Hooks {
	if currentUser == nil {
		currentUser = func() uuid.UUID { return uuid.Nil }
	}
	return &Hooks{store: store, cache: cache, user: currentUser}
}

// Cache returns the underlying cache.
func (h *Hooks) Cache() *query.Cache { return h.cache }

// Clubs reads all clubs.
func (h *Hooks) Clubs(ctx context.Context) query.Result[[]models.Club] {
	return query.Run(ctx, h.cache, query.Query[[]models.Club]{
		Key:   ClubsKey(),
		Fetch: h.store.ListClubs,
	})
}

// Club reads one club. A nil id disables the read.
func (h *Hooks) Club(ctx context.Context, clubID uuid.UUID) query.Result[*models.Club] {
	return query.Run(ctx, h.cache, query.Query[*models.Club]{
		Key:      ClubKey(clubID),
		Disabled: clubID == uuid.Nil,
		Fetch: func(ctx context.Context) (*models.Club, error) {
			return h.store.GetClub(ctx, clubID)
		},
	})
}

// Events reads the events of a category sorted by date. "" and "All" return every event.
func (h *Hooks) Events(ctx context.Context, category string) query.Result[[]models.EventWithDetails] {
	return query.Run(ctx, h.cache, query.Query[[]models.EventWithDetails]{
		Key: EventsKey(category),
		Fetch: func(ctx context.Context) ([]models.EventWithDetails, error) {
			return h.store.ListEvents(ctx, models.EventFilter{Category: category})
		},
	})
}

// Event reads one event. A missing event is a success with nil data; a nil id disables the read.
func (h *Hooks) Event(ctx context.Context, eventID uuid.UUID) query.Result[*models.EventWithDetails] {
	return query.Run(ctx, h.cache, query.Query[*models.EventWithDetails]{
		Key:      EventKey(eventID),
		Disabled: eventID == uuid.Nil,
		Fetch: func(ctx context.Context) (*models.EventWithDetails, error) {
			ev, err := h.store.GetEvent(ctx, eventID)
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, nil
			}
			return ev, err
		},
	})
}

// MyRegistrations reads the signed-in user's registrations. Disabled when signed out.
func (h *Hooks) MyRegistrations(ctx context.Context) query.Result[[]models.RegistrationWithEvent] {
	userID := h.user()
	return query.Run(ctx, h.cache, query.Query[[]models.RegistrationWithEvent]{
		Key:      MyRegistrationsKey(userID),
		Disabled: userID == uuid.Nil,
		Fetch:    h.store.MyRegistrations,
	})
}

// EventRegistrations reads an event's attendee list. A nil id disables the read.
func (h *Hooks) EventRegistrations(ctx context.Context, eventID uuid.UUID) query.Result[[]models.RegistrationWithProfile] {
	return query.Run(ctx, h.cache, query.Query[[]models.RegistrationWithProfile]{
		Key:      EventRegistrationsKey(eventID),
		Disabled: eventID == uuid.Nil,
		Fetch: func(ctx context.Context) ([]models.RegistrationWithProfile, error) {
			return h.store.EventRegistrations(ctx, eventID)
		},
	})
}

// IsRegistered reports whether the signed-in user holds an active registration for the event.
// The answer is advisory; the store decides when registering.
func (h *Hooks) IsRegistered(ctx context.Context, eventID uuid.UUID) query.Result[bool] {
	userID := h.user()
	return query.Run(ctx, h.cache, query.Query[bool]{
		Key:      IsRegisteredKey(eventID, userID),
		Disabled: eventID == uuid.Nil || userID == uuid.Nil,
		Fetch: func(ctx context.Context) (bool, error) {
			reg, err := h.store.ActiveRegistration(ctx, eventID)
			if err != nil {
				return false, err
			}
			return reg != nil, nil
		},
	})
}

// CreateClub creates a club.
func (h *Hooks) CreateClub(ctx context.Context, in models.ClubInput) (*models.Club, error) {
	return query.Mutate(ctx, h.cache, func(ctx context.Context) (*models.Club, error) {
		return h.store.CreateClub(ctx, in)
	}, InvalidatedBy(MutationCreateClub, Vars{})...)
}

// UpdateClub updates a club.
func (h *Hooks) UpdateClub(ctx context.Context, clubID uuid.UUID, in models.ClubInput) (*models.Club, error) {
	return query.Mutate(ctx, h.cache, func(ctx context.Context) (*models.Club, error) {
		return h.store.UpdateClub(ctx, clubID, in)
	}, InvalidatedBy(MutationUpdateClub, Vars{ClubID: clubID})...)
}

// CreateEvent creates an event.
func (h *Hooks) CreateEvent(ctx context.Context, in models.EventInput) (*models.EventWithDetails, error) {
	return query.Mutate(ctx, h.cache, func(ctx context.Context) (*models.EventWithDetails, error) {
		return h.store.CreateEvent(ctx, in)
	}, InvalidatedBy(MutationCreateEvent, Vars{})...)
}

// UpdateEvent updates an event.
func (h *Hooks) UpdateEvent(ctx context.Context, eventID uuid.UUID, in models.EventInput) (*models.EventWithDetails, error) {
	return query.Mutate(ctx, h.cache, func(ctx context.Context) (*models.EventWithDetails, error) {
		return h.store.UpdateEvent(ctx, eventID, in)
	}, InvalidatedBy(MutationUpdateEvent, Vars{EventID: eventID})...)
}

// DeleteEvent deletes an event.
func (h *Hooks) DeleteEvent(ctx context.Context, eventID uuid.UUID) error {
	_, err := query.Mutate(ctx, h.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.store.DeleteEvent(ctx, eventID)
	}, InvalidatedBy(MutationDeleteEvent, Vars{EventID: eventID})...)
	return err
}

// Register registers the signed-in user for an event.
func (h *Hooks) Register(ctx context.Context, eventID uuid.UUID) (*models.Registration, error) {
	userID := h.user()
	if userID == uuid.Nil {
		return nil, ErrSignedOut
	}
	return query.Mutate(ctx, h.cache, func(ctx context.Context) (*models.Registration, error) {
		return h.store.Register(ctx, eventID)
	}, InvalidatedBy(MutationRegister, Vars{EventID: eventID, UserID: userID})...)
}

// CancelRegistration cancels the signed-in user's registration for an event.
func (h *Hooks) CancelRegistration(ctx context.Context, eventID uuid.UUID) error {
	userID := h.user()
	if userID == uuid.Nil {
		return ErrSignedOut
	}
	_, err := query.Mutate(ctx, h.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.store.CancelRegistration(ctx, eventID)
	}, InvalidatedBy(MutationCancelRegistration, Vars{EventID: eventID, UserID: userID})...)
	return err
}

// UpdateProfile changes the signed-in user's name or phone.
func (h *Hooks) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.Profile, error) {
	return query.Mutate(ctx, h.cache, func(ctx context.Context) (*models.Profile, error) {
		return h.store.UpdateProfile(ctx, upd)
	}, InvalidatedBy(MutationUpdateProfile, Vars{UserID: h.user()})...)
}

// ApplyChange invalidates what a remote change notification affects.
func (h *Hooks) ApplyChange(ch models.Change) {
	if keys := ChangeKeys(ch); len(keys) > 0 {
		h.cache.Invalidate(keys...)
	}
}
