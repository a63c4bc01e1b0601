package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/internal/session"
)

type account struct {
	user     session.User
	password string
}

// backend is an in-memory stand-in for the API. It implements Store and session.AuthProvider.
type backend struct {
	mu         sync.Mutex
	accounts   map[string]*account
	current    *session.User
	listeners  map[int]func(session.Event)
	nextID     int
	clubs      map[uuid.UUID]*models.Club
	events     map[uuid.UUID]*models.Event
	regs       []*models.Registration
	profiles   map[uuid.UUID]*models.Profile
	roles      map[uuid.UUID]models.Role
	listCalls  int
	eventCalls int
}

func newBackend() *backend {
	return &backend{
		accounts:  map[string]*account{},
		listeners: map[int]func(session.Event){},
		clubs:     map[uuid.UUID]*models.Club{},
		events:    map[uuid.UUID]*models.Event{},
		profiles:  map[uuid.UUID]*models.Profile{},
		roles:     map[uuid.UUID]models.Role{},
	}
}

func (b *backend) addUser(email, password, name string, role models.Role) uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.New()
	b.accounts[email] = &account{user: session.User{ID: id, Email: email}, password: password}
	b.profiles[id] = &models.Profile{UserID: id, Email: email, FullName: &name}
	b.roles[id] = role
	return id
}

func (b *backend) addClub(name string) uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.New()
	b.clubs[id] = &models.Club{ID: id, Name: name}
	return id
}

func (b *backend) addEvent(title string, clubID uuid.UUID, date string, seats int, status models.EventStatus, createdBy uuid.UUID) uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.New()
	b.events[id] = &models.Event{
		ID: id, Title: title, ClubID: clubID, EventDate: date, EventTime: "10:00:00",
		Venue: "Main Hall", Category: "Technical", TotalSeats: seats, Status: status, CreatedBy: createdBy,
	}
	return id
}

func (b *backend) emit(ev session.Event) {
	b.mu.Lock()
	fns := make([]func(session.Event), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (b *backend) SignUp(_ context.Context, email, password, fullName string) (*session.User, error) {
	if len(password) < 6 {
		return nil, apperror.ValidationFailed("password", "password should be at least 6 characters")
	}
	b.mu.Lock()
	if _, ok := b.accounts[email]; ok {
		b.mu.Unlock()
		return nil, apperror.Conflict("email already registered")
	}
	u := session.User{ID: uuid.New(), Email: email}
	b.accounts[email] = &account{user: u, password: password}
	b.profiles[u.ID] = &models.Profile{UserID: u.ID, Email: email, FullName: &fullName}
	b.roles[u.ID] = models.RoleStudent
	b.current = &u
	b.mu.Unlock()
	b.emit(session.Event{Kind: session.SignedIn, User: &u})
	return &u, nil
}

func (b *backend) SignIn(_ context.Context, email, password string) (*session.User, error) {
	b.mu.Lock()
	acc, ok := b.accounts[email]
	if !ok || acc.password != password {
		b.mu.Unlock()
		return nil, &apperror.AppError{Err: apperror.ErrUnauthenticated, Message: "invalid login credentials"}
	}
	u := acc.user
	b.current = &u
	b.mu.Unlock()
	b.emit(session.Event{Kind: session.SignedIn, User: &u})
	return &u, nil
}

func (b *backend) SignOut(context.Context) error {
	b.mu.Lock()
	b.current = nil
	b.mu.Unlock()
	b.emit(session.Event{Kind: session.SignedOut})
	return nil
}

func (b *backend) CurrentUser(context.Context) (*session.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, nil
}

func (b *backend) OnSessionChange(fn func(session.Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

func (b *backend) caller() (uuid.UUID, error) {
	if b.current == nil {
		return uuid.Nil, apperror.ErrUnauthenticated
	}
	return b.current.ID, nil
}

func (b *backend) details(e *models.Event) models.EventWithDetails {
	d := models.EventWithDetails{Event: *e}
	if c, ok := b.clubs[e.ClubID]; ok {
		d.ClubName = c.Name
		d.ClubEmail = c.ContactEmail
	}
	for _, r := range b.regs {
		if r.EventID == e.ID && r.Status == models.RegistrationRegistered {
			d.FilledSeats++
		}
	}
	return d
}

func (b *backend) ListClubs(context.Context) ([]models.Club, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Club, 0, len(b.clubs))
	for _, c := range b.clubs {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *backend) GetClub(_ context.Context, id uuid.UUID) (*models.Club, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.clubs[id]
	if !ok {
		return nil, apperror.NotFound("club")
	}
	cp := *c
	return &cp, nil
}

func (b *backend) CreateClub(_ context.Context, in models.ClubInput) (*models.Club, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	uid, err := b.caller()
	if err != nil {
		return nil, err
	}
	c := &models.Club{ID: uuid.New(), Name: *in.Name, Description: in.Description, ContactEmail: in.ContactEmail, CreatedBy: &uid}
	b.clubs[c.ID] = c
	cp := *c
	return &cp, nil
}

func (b *backend) UpdateClub(_ context.Context, id uuid.UUID, in models.ClubInput) (*models.Club, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.clubs[id]
	if !ok {
		return nil, apperror.NotFound("club")
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.ContactEmail != nil {
		c.ContactEmail = in.ContactEmail
	}
	cp := *c
	return &cp, nil
}

func (b *backend) ListEvents(_ context.Context, f models.EventFilter) ([]models.EventWithDetails, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	var out []models.EventWithDetails
	for _, e := range b.events {
		if c := f.CategoryFilter(); c != "" && e.Category != c {
			continue
		}
		out = append(out, b.details(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventDate < out[j].EventDate })
	return out, nil
}

func (b *backend) GetEvent(_ context.Context, id uuid.UUID) (*models.EventWithDetails, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.eventCalls++
	e, ok := b.events[id]
	if !ok {
		return nil, apperror.NotFound("event")
	}
	d := b.details(e)
	return &d, nil
}

func (b *backend) CreateEvent(_ context.Context, in models.EventInput) (*models.EventWithDetails, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	uid, err := b.caller()
	if err != nil {
		return nil, err
	}
	if b.roles[uid] != models.RoleAdmin && b.roles[uid] != models.RoleClubAdmin {
		return nil, apperror.Forbidden("insufficient role")
	}
	e := &models.Event{
		ID: uuid.New(), Title: *in.Title, ClubID: *in.ClubID, EventDate: *in.EventDate, EventTime: *in.EventTime,
		Venue: *in.Venue, Category: *in.Category, TotalSeats: *in.TotalSeats, Status: models.EventOpen, CreatedBy: uid,
	}
	b.events[e.ID] = e
	d := b.details(e)
	return &d, nil
}

func (b *backend) UpdateEvent(_ context.Context, id uuid.UUID, in models.EventInput) (*models.EventWithDetails, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.events[id]
	if !ok {
		return nil, apperror.NotFound("event")
	}
	if in.Status != nil {
		e.Status = *in.Status
	}
	if in.Title != nil {
		e.Title = *in.Title
	}
	d := b.details(e)
	return &d, nil
}

func (b *backend) DeleteEvent(_ context.Context, id uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.events[id]; !ok {
		return apperror.NotFound("event")
	}
	delete(b.events, id)
	return nil
}

func (b *backend) MyRegistrations(context.Context) ([]models.RegistrationWithEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	uid, err := b.caller()
	if err != nil {
		return nil, err
	}
	var out []models.RegistrationWithEvent
	for _, r := range b.regs {
		if r.UserID == uid && r.Status != models.RegistrationCancelled {
			out = append(out, models.RegistrationWithEvent{Registration: *r, Event: b.details(b.events[r.EventID])})
		}
	}
	return out, nil
}

func (b *backend) EventRegistrations(_ context.Context, eventID uuid.UUID) ([]models.RegistrationWithProfile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.RegistrationWithProfile
	for _, r := range b.regs {
		if r.EventID == eventID {
			out = append(out, models.RegistrationWithProfile{Registration: *r, Profile: b.profiles[r.UserID]})
		}
	}
	return out, nil
}

func (b *backend) active(eventID, uid uuid.UUID) *models.Registration {
	for _, r := range b.regs {
		if r.EventID == eventID && r.UserID == uid && r.Status == models.RegistrationRegistered {
			return r
		}
	}
	return nil
}

func (b *backend) ActiveRegistration(_ context.Context, eventID uuid.UUID) (*models.Registration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	uid, err := b.caller()
	if err != nil {
		return nil, err
	}
	if r := b.active(eventID, uid); r != nil {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (b *backend) Register(_ context.Context, eventID uuid.UUID) (*models.Registration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	uid, err := b.caller()
	if err != nil {
		return nil, err
	}
	e, ok := b.events[eventID]
	if !ok {
		return nil, apperror.NotFound("event")
	}
	if b.active(eventID, uid) != nil {
		return nil, apperror.Conflict("already registered for this event")
	}
	if e.Status != models.EventOpen {
		return nil, apperror.NotEligible("event is " + string(e.Status))
	}
	if b.details(e).FilledSeats >= e.TotalSeats {
		return nil, apperror.NotEligible("event is full")
	}
	r := &models.Registration{ID: uuid.New(), EventID: eventID, UserID: uid, Status: models.RegistrationRegistered, RegisteredAt: time.Now()}
	b.regs = append(b.regs, r)
	cp := *r
	return &cp, nil
}

func (b *backend) CancelRegistration(_ context.Context, eventID uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	uid, err := b.caller()
	if err != nil {
		return err
	}
	r := b.active(eventID, uid)
	if r == nil {
		return apperror.NotFound("registration")
	}
	r.Status = models.RegistrationCancelled
	return nil
}

func (b *backend) UpdateProfile(_ context.Context, upd models.ProfileUpdate) (*models.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	uid, err := b.caller()
	if err != nil {
		return nil, err
	}
	p := b.profiles[uid]
	if upd.FullName != nil {
		p.FullName = upd.FullName
	}
	if upd.Phone != nil {
		p.Phone = upd.Phone
	}
	cp := *p
	return &cp, nil
}

func (b *backend) GetProfile(_ context.Context, userID uuid.UUID) (*models.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.profiles[userID]
	if !ok {
		return nil, apperror.NotFound("profile")
	}
	cp := *p
	return &cp, nil
}

func (b *backend) CreateProfile(_ context.Context, fullName string) (*models.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	uid, err := b.caller()
	if err != nil {
		return nil, err
	}
	p := &models.Profile{UserID: uid, FullName: &fullName}
	b.profiles[uid] = p
	cp := *p
	return &cp, nil
}

func (b *backend) GetRole(_ context.Context, userID uuid.UUID) (models.Role, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.roles[userID], nil
}
