package registrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/auth"
	"github.com/eventflow/eventflow/internal/models"
)

// memStore keeps registrations in memory with the same eligibility rules as the SQL store.
type memStore struct {
	events map[uuid.UUID]*models.EventWithDetails
	regs   []models.Registration
}

func (s *memStore) filled(eventID uuid.UUID) int {
	n := 0
	for _, r := range s.regs {
		if r.EventID == eventID && r.Status == models.RegistrationRegistered {
			n++
		}
	}
	return n
}

func (s *memStore) Register(_ context.Context, eventID, userID uuid.UUID) (*models.Registration, error) {
	ev, ok := s.events[eventID]
	if !ok {
		return nil, apperror.NotFound("event")
	}
	for _, r := range s.regs {
		if r.EventID == eventID && r.UserID == userID && r.Status == models.RegistrationRegistered {
			return nil, apperror.Conflict("already registered for this event")
		}
	}
	if ev.Status != models.EventOpen {
		return nil, apperror.NotEligible("event is " + string(ev.Status))
	}
	if s.filled(eventID) >= ev.TotalSeats {
		return nil, apperror.NotEligible("event is full")
	}
	reg := models.Registration{ID: uuid.New(), EventID: eventID, UserID: userID,
		Status: models.RegistrationRegistered, RegisteredAt: time.Now()}
	s.regs = append(s.regs, reg)
	return &reg, nil
}

func (s *memStore) Cancel(_ context.Context, eventID, userID uuid.UUID) error {
	for i, r := range s.regs {
		if r.EventID == eventID && r.UserID == userID && r.Status == models.RegistrationRegistered {
			s.regs[i].Status = models.RegistrationCancelled
			return nil
		}
	}
	return apperror.NotFound("registration")
}

func (s *memStore) Active(_ context.Context, eventID, userID uuid.UUID) (*models.Registration, error) {
	for _, r := range s.regs {
		if r.EventID == eventID && r.UserID == userID && r.Status == models.RegistrationRegistered {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) Mine(_ context.Context, userID uuid.UUID) ([]models.RegistrationWithEvent, error) {
	out := []models.RegistrationWithEvent{}
	for _, r := range s.regs {
		if r.UserID == userID && r.Status != models.RegistrationCancelled {
			ev := *s.events[r.EventID]
			ev.FilledSeats = s.filled(r.EventID)
			out = append(out, models.RegistrationWithEvent{Registration: r, Event: ev})
		}
	}
	return out, nil
}

func (s *memStore) ByEvent(_ context.Context, eventID uuid.UUID) ([]models.RegistrationWithProfile, error) {
	out := []models.RegistrationWithProfile{}
	for _, r := range s.regs {
		if r.EventID == eventID && r.Status != models.RegistrationCancelled {
			out = append(out, models.RegistrationWithProfile{Registration: r})
		}
	}
	return out, nil
}

type countingPublisher struct{ n int }

func (p *countingPublisher) Publish(context.Context, models.Change) error {
	p.n++
	return nil
}

func setup(t *testing.T, seats int, status models.EventStatus) (*gin.Engine, *memStore, *countingPublisher, uuid.UUID, uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	eventID, userID := uuid.New(), uuid.New()
	store := &memStore{events: map[uuid.UUID]*models.EventWithDetails{
		eventID: {Event: models.Event{ID: eventID, TotalSeats: seats, Status: status}},
	}}
	pub := &countingPublisher{}
	h := NewHandler(store, pub, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(auth.ContextUserID, userID); c.Next() })
	r.GET("/registrations/me", h.Mine)
	r.GET("/events/:id/registration", h.Active)
	r.GET("/events/:id/registrations", h.ByEvent)
	r.POST("/events/:id/register", h.Register)
	r.DELETE("/events/:id/register", h.Cancel)
	return r, store, pub, eventID, userID
}

func call(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRegisterCancelRoundTrip(t *testing.T) {
	r, store, pub, eventID, _ := setup(t, 2, models.EventOpen)
	base := "/events/" + eventID.String()

	require.Equal(t, http.StatusCreated, call(r, http.MethodPost, base+"/register").Code)
	assert.Equal(t, 1, store.filled(eventID))

	var active struct {
		Data *models.Registration `json:"data"`
	}
	require.NoError(t, json.Unmarshal(call(r, http.MethodGet, base+"/registration").Body.Bytes(), &active))
	require.NotNil(t, active.Data)

	var mine struct {
		Data []models.RegistrationWithEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(call(r, http.MethodGet, "/registrations/me").Body.Bytes(), &mine))
	require.Len(t, mine.Data, 1)
	assert.Equal(t, eventID, mine.Data[0].Event.ID)

	assert.Equal(t, http.StatusConflict, call(r, http.MethodPost, base+"/register").Code)

	require.Equal(t, http.StatusNoContent, call(r, http.MethodDelete, base+"/register").Code)
	assert.Equal(t, 0, store.filled(eventID))
	require.NoError(t, json.Unmarshal(call(r, http.MethodGet, base+"/registration").Body.Bytes(), &active))
	assert.Nil(t, active.Data)
	require.NoError(t, json.Unmarshal(call(r, http.MethodGet, "/registrations/me").Body.Bytes(), &mine))
	assert.Empty(t, mine.Data)

	assert.Equal(t, http.StatusNotFound, call(r, http.MethodDelete, base+"/register").Code)
	assert.Equal(t, 2, pub.n)
}

func TestRegister_NotEligible(t *testing.T) {
	r, _, pub, eventID, _ := setup(t, 5, models.EventClosed)
	w := call(r, http.MethodPost, "/events/"+eventID.String()+"/register")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "event is closed")

	r, _, _, eventID, _ = setup(t, 0, models.EventOpen)
	w = call(r, http.MethodPost, "/events/"+eventID.String()+"/register")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "event is full")
	assert.Zero(t, pub.n)
}

func TestRegister_UnknownEvent(t *testing.T) {
	r, _, _, _, _ := setup(t, 5, models.EventOpen)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodPost, "/events/"+uuid.NewString()+"/register").Code)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, "/events/x/register").Code)
}
