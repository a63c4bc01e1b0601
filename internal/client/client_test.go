package client

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 300, "data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}

// fakeAPI serves the auth, profile and event endpoints from memory.
type fakeAPI struct {
	mu        sync.Mutex
	userID    uuid.UUID
	token     string
	lastQuery string
	lastAuth  string
	profile   *models.Profile
	role      string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{userID: uuid.New(), token: "tok-1", role: "student"}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret1" {
			writeError(w, http.StatusUnauthorized, "invalid login credentials")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": f.token,
			"expires_at":   time.Now().Add(time.Hour),
			"user":         map[string]any{"id": f.userID, "email": body["email"]},
		})
	})
	mux.HandleFunc("POST /auth/signup", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body["password"]) < 6 {
			writeError(w, http.StatusBadRequest, "password should be at least 6 characters")
			return
		}
		writeError(w, http.StatusConflict, "email already registered")
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.token = "tok-2"
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "tok-2",
			"expires_at":   time.Now().Add(2 * time.Hour),
			"user":         map[string]any{"id": f.userID, "email": "ana@campus.edu"},
		})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /auth/session", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"id": f.userID, "email": "ana@campus.edu"}})
	})
	mux.HandleFunc("GET /profiles/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.profile == nil {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeJSON(w, http.StatusOK, f.profile)
	})
	mux.HandleFunc("GET /roles/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"user_id": r.PathValue("id"), "role": f.role})
	})
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lastQuery = r.URL.RawQuery
		f.lastAuth = r.Header.Get("Authorization")
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, []models.EventWithDetails{{Event: models.Event{Title: "Hack Night", Category: "Technical"}}})
	})
	mux.HandleFunc("GET /events/{id}/registration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, nil)
	})
	mux.HandleFunc("POST /events/{id}/register", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnprocessableEntity, "registration not possible: event is full")
	})
	mux.HandleFunc("DELETE /events/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /profiles/me/avatar", func(w http.ResponseWriter, r *http.Request) {
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "not multipart")
			return
		}
		part, err := multipart.NewReader(r.Body, params["boundary"]).NextPart()
		if err != nil || part.FormName() != "file" {
			writeError(w, http.StatusBadRequest, "file required")
			return
		}
		url := "https://media.example/" + part.FileName() + "?type=" + part.Header.Get("Content-Type")
		writeJSON(w, http.StatusOK, models.Profile{UserID: f.userID, AvatarURL: &url})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func TestAPIError_Unwrap(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, apperror.ErrUnauthenticated},
		{http.StatusNotFound, apperror.ErrNotFound},
		{http.StatusConflict, apperror.ErrConflict},
		{http.StatusBadRequest, apperror.ErrValidation},
		{http.StatusForbidden, apperror.ErrForbidden},
		{http.StatusUnprocessableEntity, apperror.ErrNotEligible},
		{http.StatusServiceUnavailable, apperror.ErrUnavailable},
	}
	for _, tt := range tests {
		err := error(&APIError{Status: tt.status, Message: "x"})
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
	assert.Nil(t, (&APIError{Status: http.StatusInternalServerError}).Unwrap())
}

func TestAuth_SignInCarriesToken(t *testing.T) {
	fake, srv := newFakeAPI(t)
	api := NewHTTP(srv.URL, nil, nil)
	auth := NewAuth(api, nil)
	store := NewStore(api)

	var events []session.Event
	auth.OnSessionChange(func(ev session.Event) { events = append(events, ev) })

	u, err := auth.SignIn(context.Background(), "ana@campus.edu", "secret1")
	require.NoError(t, err)
	assert.Equal(t, fake.userID, u.ID)
	require.Len(t, events, 1)
	assert.Equal(t, session.SignedIn, events[0].Kind)

	_, err = store.ListEvents(context.Background(), models.EventFilter{Category: "Technical", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", fake.lastAuth)
	assert.Equal(t, "category=Technical&limit=5", fake.lastQuery)

	_, err = store.ListEvents(context.Background(), models.EventFilter{Category: models.CategoryAll})
	require.NoError(t, err)
	assert.Equal(t, "", fake.lastQuery)

	cur, err := auth.CurrentUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cur)

	require.NoError(t, auth.Refresh(context.Background()))
	assert.Equal(t, "tok-2", auth.Token())
	assert.Equal(t, session.TokenRefreshed, events[len(events)-1].Kind)

	require.NoError(t, auth.SignOut(context.Background()))
	assert.Empty(t, auth.Token())
	assert.Equal(t, session.SignedOut, events[len(events)-1].Kind)
}

func TestAuth_WrongPassword(t *testing.T) {
	_, srv := newFakeAPI(t)
	auth := NewAuth(NewHTTP(srv.URL, nil, nil), nil)

	_, err := auth.SignIn(context.Background(), "ana@campus.edu", "nope")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid login credentials", apiErr.Message)
	assert.Empty(t, auth.Token())
}

func TestAuth_CurrentUserDropsRejectedToken(t *testing.T) {
	_, srv := newFakeAPI(t)
	auth := NewAuth(NewHTTP(srv.URL, nil, nil), nil)

	u, err := auth.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, u)

	auth.store(sessionResponse{AccessToken: "stale"})
	u, err = auth.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.Empty(t, auth.Token())
}

func TestStore_ErrorsAndEmptyBodies(t *testing.T) {
	_, srv := newFakeAPI(t)
	store := NewStore(NewHTTP(srv.URL, nil, nil))
	ctx := context.Background()

	reg, err := store.ActiveRegistration(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, reg)

	_, err = store.Register(ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotEligible)
	assert.Contains(t, err.Error(), "event is full")

	require.NoError(t, store.DeleteEvent(ctx, uuid.New()))

	_, err = store.GetProfile(ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	role, err := store.GetRole(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, role)
}

func TestStore_UploadAvatar(t *testing.T) {
	_, srv := newFakeAPI(t)
	store := NewStore(NewHTTP(srv.URL, nil, nil))

	png := "\x89PNG\r\n\x1a\n" + strings.Repeat("\x00", 16)
	p, err := store.UploadAvatar(context.Background(), "/tmp/me.png", strings.NewReader(png))
	require.NoError(t, err)
	require.NotNil(t, p.AvatarURL)
	assert.Equal(t, "https://media.example/me.png?type=image/png", *p.AvatarURL)
}

func TestHTTP_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	store := NewStore(NewHTTP(url, nil, nil))
	_, err := store.ListClubs(context.Background())
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
}

func TestSessionProvider_OverHTTP(t *testing.T) {
	fake, srv := newFakeAPI(t)
	name := "Ana"
	fake.profile = &models.Profile{UserID: fake.userID, FullName: &name, Email: "ana@campus.edu"}
	fake.role = "club_admin"

	api := NewHTTP(srv.URL, nil, nil)
	provider := session.NewProvider(NewAuth(api, nil), NewStore(api), nil)
	t.Cleanup(provider.Close)
	require.NoError(t, provider.Start(context.Background()))
	assert.Equal(t, session.StatusAnonymous, provider.State().Status)

	err := provider.SignUp(context.Background(), "ana@campus.edu", "123", "")
	var authErr *session.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, session.KindWeakPassword, authErr.Kind)

	err = provider.SignUp(context.Background(), "ana@campus.edu", "secret1", "")
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, session.KindDuplicateEmail, authErr.Kind)

	err = provider.SignIn(context.Background(), "ana@campus.edu", "wrong")
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, session.KindInvalidCredentials, authErr.Kind)

	require.NoError(t, provider.SignIn(context.Background(), "ana@campus.edu", "secret1"))
	st := provider.State()
	assert.Equal(t, session.StatusAuthenticated, st.Status)
	assert.Equal(t, "Ana", st.Profile.DisplayName())
	assert.True(t, provider.IsClubAdmin())
}

func TestFeed_DeliversChanges(t *testing.T) {
	eventID := uuid.New()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" || r.URL.Query().Get("token") != "tok-1" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := json.Marshal(models.Change{Kind: models.ChangeEventUpdated, EventID: eventID})
		_ = conn.WriteJSON(map[string]any{"event": "noise"})
		_ = conn.WriteJSON(map[string]any{"event": "change", "data": json.RawMessage(data)})
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)

	got := make(chan models.Change, 1)
	feed, err := NewFeed(srv.URL, func() string { return "tok-1" }, func(ch models.Change) { got <- ch }, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(feed.wsURL, "ws://"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		feed.Run(ctx)
		close(done)
	}()

	select {
	case ch := <-got:
		assert.Equal(t, models.ChangeEventUpdated, ch.Kind)
		assert.Equal(t, eventID, ch.EventID)
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not stop")
	}
}
