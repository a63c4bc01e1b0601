package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventflow/eventflow/internal/apperror"
)

type fakeStore struct {
	summary Summary
	gotClub *uuid.UUID
	events  map[uuid.UUID]EventSummary
}

func (f *fakeStore) Summary(_ context.Context, clubID *uuid.UUID) (*Summary, error) {
	f.gotClub = clubID
	s := f.summary
	return &s, nil
}

func (f *fakeStore) EventSummary(_ context.Context, eventID uuid.UUID) (*EventSummary, error) {
	s, ok := f.events[eventID]
	if !ok {
		return nil, apperror.NotFound("event")
	}
	return &s, nil
}

func setup(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, nil)
	r := gin.New()
	r.GET("/stats", h.Summary)
	r.GET("/events/:id/stats", h.GetByEvent)
	return r
}

func get(t *testing.T, r *gin.Engine, path string, out any) int {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && w.Code == http.StatusOK {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return w.Code
}

func TestSummary(t *testing.T) {
	store := &fakeStore{summary: Summary{TotalEvents: 3, OpenEvents: 2, TotalRegistrations: 120, TotalSeats: 150}}
	r := setup(store)

	var s Summary
	require.Equal(t, http.StatusOK, get(t, r, "/stats", &s))
	assert.Equal(t, 3, s.TotalEvents)
	assert.InDelta(t, 80.0, s.FillPercent, 0.001)
	assert.Nil(t, store.gotClub)

	clubID := uuid.New()
	require.Equal(t, http.StatusOK, get(t, r, "/stats?club_id="+clubID.String(), &s))
	require.NotNil(t, store.gotClub)
	assert.Equal(t, clubID, *store.gotClub)

	assert.Equal(t, http.StatusBadRequest, get(t, r, "/stats?club_id=nope", nil))
}

func TestGetByEvent(t *testing.T) {
	eventID := uuid.New()
	store := &fakeStore{events: map[uuid.UUID]EventSummary{
		eventID: {EventID: eventID, TotalSeats: 10, Registered: 6, Attended: 2, Cancelled: 1},
	}}
	r := setup(store)

	var s EventSummary
	require.Equal(t, http.StatusOK, get(t, r, "/events/"+eventID.String()+"/stats", &s))
	assert.Equal(t, 4, s.SeatsLeft)
	assert.InDelta(t, 60.0, s.FillPercent, 0.001)
	require.NotNil(t, s.AttendanceRate)
	assert.InDelta(t, 0.25, *s.AttendanceRate, 0.001)

	assert.Equal(t, http.StatusNotFound, get(t, r, "/events/"+uuid.NewString()+"/stats", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/events/x/stats", nil))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, percent(5, 0))
	assert.Equal(t, 100.0, percent(200, 150))
}
