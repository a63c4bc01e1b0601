package queries

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/models"
)

// memStore is an in-memory store with per-method call counters. It plays the backend for one user.
type memStore struct {
	mu     sync.Mutex
	user   uuid.UUID
	clubs  map[uuid.UUID]models.Club
	events map[uuid.UUID]models.Event
	regs   []models.Registration
	calls  map[string]int

	// getEventGate, when set, blocks GetEvent until closed.
	getEventGate chan struct{}
	failWrites   error
}

func newMemStore(user uuid.UUID) *memStore {
	return &memStore{
		user:   user,
		clubs:  map[uuid.UUID]models.Club{},
		events: map[uuid.UUID]models.Event{},
		calls:  map[string]int{},
	}
}

func (s *memStore) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *memStore) hit(name string) {
	s.calls[name]++
}

func (s *memStore) addEvent(category, date string, seats int, status models.EventStatus) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := models.Event{ID: uuid.New(), Title: category + " " + date, Category: category, EventDate: date,
		EventTime: "10:00:00", TotalSeats: seats, Status: status}
	s.events[e.ID] = e
	return e.ID
}

func (s *memStore) details(e models.Event) models.EventWithDetails {
	filled := 0
	for _, r := range s.regs {
		if r.EventID == e.ID && r.Status == models.RegistrationRegistered {
			filled++
		}
	}
	return models.EventWithDetails{Event: e, ClubName: s.clubs[e.ClubID].Name, FilledSeats: filled}
}

func (s *memStore) ListClubs(context.Context) ([]models.Club, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("ListClubs")
	out := []models.Club{}
	for _, c := range s.clubs {
		out = append(out, c)
	}
	return out, nil
}

func (s *memStore) GetClub(_ context.Context, id uuid.UUID) (*models.Club, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("GetClub")
	c, ok := s.clubs[id]
	if !ok {
		return nil, apperror.NotFound("club")
	}
	return &c, nil
}

func (s *memStore) CreateClub(_ context.Context, in models.ClubInput) (*models.Club, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("CreateClub")
	if s.failWrites != nil {
		return nil, s.failWrites
	}
	c := models.Club{ID: uuid.New(), Name: *in.Name}
	s.clubs[c.ID] = c
	return &c, nil
}

func (s *memStore) UpdateClub(_ context.Context, id uuid.UUID, in models.ClubInput) (*models.Club, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("UpdateClub")
	c := s.clubs[id]
	if in.Name != nil {
		c.Name = *in.Name
	}
	s.clubs[id] = c
	return &c, nil
}

func (s *memStore) ListEvents(_ context.Context, f models.EventFilter) ([]models.EventWithDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("ListEvents")
	out := []models.EventWithDetails{}
	for _, e := range s.events {
		if cat := f.CategoryFilter(); cat != "" && e.Category != cat {
			continue
		}
		out = append(out, s.details(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventDate < out[j].EventDate })
	return out, nil
}

func (s *memStore) GetEvent(_ context.Context, id uuid.UUID) (*models.EventWithDetails, error) {
	s.mu.Lock()
	s.hit("GetEvent")
	gate := s.getEventGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, apperror.NotFound("event")
	}
	d := s.details(e)
	return &d, nil
}

func (s *memStore) CreateEvent(_ context.Context, in models.EventInput) (*models.EventWithDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("CreateEvent")
	e := models.Event{ID: uuid.New(), Title: *in.Title, Category: *in.Category, Status: models.EventOpen}
	s.events[e.ID] = e
	d := s.details(e)
	return &d, nil
}

func (s *memStore) UpdateEvent(_ context.Context, id uuid.UUID, in models.EventInput) (*models.EventWithDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("UpdateEvent")
	if s.failWrites != nil {
		return nil, s.failWrites
	}
	e, ok := s.events[id]
	if !ok {
		return nil, apperror.NotFound("event")
	}
	if in.Status != nil {
		e.Status = *in.Status
	}
	if in.Title != nil {
		e.Title = *in.Title
	}
	s.events[id] = e
	d := s.details(e)
	return &d, nil
}

func (s *memStore) DeleteEvent(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("DeleteEvent")
	if _, ok := s.events[id]; !ok {
		return apperror.NotFound("event")
	}
	delete(s.events, id)
	kept := s.regs[:0]
	for _, r := range s.regs {
		if r.EventID != id {
			kept = append(kept, r)
		}
	}
	s.regs = kept
	return nil
}

func (s *memStore) MyRegistrations(context.Context) ([]models.RegistrationWithEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("MyRegistrations")
	out := []models.RegistrationWithEvent{}
	for _, r := range s.regs {
		if r.UserID == s.user && r.Status != models.RegistrationCancelled {
			out = append(out, models.RegistrationWithEvent{Registration: r, Event: s.details(s.events[r.EventID])})
		}
	}
	return out, nil
}

func (s *memStore) EventRegistrations(_ context.Context, eventID uuid.UUID) ([]models.RegistrationWithProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("EventRegistrations")
	out := []models.RegistrationWithProfile{}
	for _, r := range s.regs {
		if r.EventID == eventID && r.Status != models.RegistrationCancelled {
			out = append(out, models.RegistrationWithProfile{Registration: r})
		}
	}
	return out, nil
}

func (s *memStore) ActiveRegistration(_ context.Context, eventID uuid.UUID) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("ActiveRegistration")
	for _, r := range s.regs {
		if r.EventID == eventID && r.UserID == s.user && r.Status == models.RegistrationRegistered {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) Register(_ context.Context, eventID uuid.UUID) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("Register")
	e, ok := s.events[eventID]
	if !ok {
		return nil, apperror.NotFound("event")
	}
	for _, r := range s.regs {
		if r.EventID == eventID && r.UserID == s.user && r.Status == models.RegistrationRegistered {
			return nil, apperror.Conflict("already registered for this event")
		}
	}
	if e.Status != models.EventOpen || s.details(e).FilledSeats >= e.TotalSeats {
		return nil, apperror.NotEligible("event is not accepting registrations")
	}
	r := models.Registration{ID: uuid.New(), EventID: eventID, UserID: s.user,
		Status: models.RegistrationRegistered, RegisteredAt: time.Now()}
	s.regs = append(s.regs, r)
	return &r, nil
}

func (s *memStore) CancelRegistration(_ context.Context, eventID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("CancelRegistration")
	for i, r := range s.regs {
		if r.EventID == eventID && r.UserID == s.user && r.Status == models.RegistrationRegistered {
			s.regs[i].Status = models.RegistrationCancelled
			return nil
		}
	}
	return apperror.NotFound("registration")
}

func (s *memStore) UpdateProfile(_ context.Context, upd models.ProfileUpdate) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hit("UpdateProfile")
	return &models.Profile{UserID: s.user, FullName: upd.FullName, Phone: upd.Phone}, nil
}
