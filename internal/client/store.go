package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/eventflow/eventflow/internal/models"
)

// Store implements the remote store used by the query hooks and the session provider.
type Store struct {
	api *HTTP
}

// NewStore creates a store over api.
func NewStore(api *HTTP) *Store {
	return &Store{api: api}
}

func (s *Store) ListClubs(ctx context.Context) ([]models.Club, error) {
	var out []models.Club
	if err := s.api.do(ctx, http.MethodGet, "/clubs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetClub(ctx context.Context, id uuid.UUID) (*models.Club, error) {
	var out models.Club
	if err := s.api.do(ctx, http.MethodGet, "/clubs/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) CreateClub(ctx context.Context, in models.ClubInput) (*models.Club, error) {
	var out models.Club
	if err := s.api.do(ctx, http.MethodPost, "/clubs", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) UpdateClub(ctx context.Context, id uuid.UUID, in models.ClubInput) (*models.Club, error) {
	var out models.Club
	if err := s.api.do(ctx, http.MethodPatch, "/clubs/"+id.String(), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEvents sends the category filter as is; the API treats "All" as no filter.
func (s *Store) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.EventWithDetails, error) {
	q := url.Values{}
	if c := filter.CategoryFilter(); c != "" {
		q.Set("category", c)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	path := "/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []models.EventWithDetails
	if err := s.api.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (*models.EventWithDetails, error) {
	var out models.EventWithDetails
	if err := s.api.do(ctx, http.MethodGet, "/events/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) CreateEvent(ctx context.Context, in models.EventInput) (*models.EventWithDetails, error) {
	var out models.EventWithDetails
	if err := s.api.do(ctx, http.MethodPost, "/events", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) UpdateEvent(ctx context.Context, id uuid.UUID, in models.EventInput) (*models.EventWithDetails, error) {
	var out models.EventWithDetails
	if err := s.api.do(ctx, http.MethodPatch, "/events/"+id.String(), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	return s.api.do(ctx, http.MethodDelete, "/events/"+id.String(), nil, nil)
}

func (s *Store) MyRegistrations(ctx context.Context) ([]models.RegistrationWithEvent, error) {
	var out []models.RegistrationWithEvent
	if err := s.api.do(ctx, http.MethodGet, "/registrations/me", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) EventRegistrations(ctx context.Context, eventID uuid.UUID) ([]models.RegistrationWithProfile, error) {
	var out []models.RegistrationWithProfile
	if err := s.api.do(ctx, http.MethodGet, "/events/"+eventID.String()+"/registrations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveRegistration returns nil when the caller holds no active registration.
func (s *Store) ActiveRegistration(ctx context.Context, eventID uuid.UUID) (*models.Registration, error) {
	var out *models.Registration
	if err := s.api.do(ctx, http.MethodGet, "/events/"+eventID.String()+"/registration", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Register(ctx context.Context, eventID uuid.UUID) (*models.Registration, error) {
	var out models.Registration
	if err := s.api.do(ctx, http.MethodPost, "/events/"+eventID.String()+"/register", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) CancelRegistration(ctx context.Context, eventID uuid.UUID) error {
	return s.api.do(ctx, http.MethodDelete, "/events/"+eventID.String()+"/register", nil, nil)
}

func (s *Store) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.Profile, error) {
	var out models.Profile
	if err := s.api.do(ctx, http.MethodPatch, "/profiles/me", upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var out models.Profile
	if err := s.api.do(ctx, http.MethodGet, "/profiles/"+userID.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProfile provisions the caller's own profile.
func (s *Store) CreateProfile(ctx context.Context, fullName string) (*models.Profile, error) {
	var out models.Profile
	if err := s.api.do(ctx, http.MethodPost, "/profiles", map[string]string{"full_name": fullName}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRole returns the effective role; a user without a role row gets RoleNone.
func (s *Store) GetRole(ctx context.Context, userID uuid.UUID) (models.Role, error) {
	var out struct {
		Role string `json:"role"`
	}
	if err := s.api.do(ctx, http.MethodGet, "/roles/"+userID.String(), nil, &out); err != nil {
		return models.RoleNone, err
	}
	return models.ParseRole(out.Role), nil
}
