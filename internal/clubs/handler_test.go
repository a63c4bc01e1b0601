package clubs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/auth"
	"github.com/eventflow/eventflow/internal/middleware"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/internal/realtime"
)

type memClubs struct {
	clubs map[uuid.UUID]models.Club
}

func (m *memClubs) List(context.Context) ([]models.Club, error) {
	out := []models.Club{}
	for _, c := range m.clubs {
		out = append(out, c)
	}
	return out, nil
}

func (m *memClubs) GetByID(_ context.Context, id uuid.UUID) (*models.Club, error) {
	c, ok := m.clubs[id]
	if !ok {
		return nil, apperror.NotFound("club")
	}
	return &c, nil
}

func (m *memClubs) Create(_ context.Context, in models.ClubInput, createdBy uuid.UUID) (*models.Club, error) {
	c := models.Club{ID: uuid.New(), Name: *in.Name, CreatedBy: &createdBy, CreatedAt: time.Now()}
	m.clubs[c.ID] = c
	return &c, nil
}

func (m *memClubs) Update(_ context.Context, id uuid.UUID, in models.ClubInput) (*models.Club, error) {
	c, ok := m.clubs[id]
	if !ok {
		return nil, apperror.NotFound("club")
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	m.clubs[id] = c
	return &c, nil
}

type kinds []models.ChangeKind

func (k *kinds) Publish(_ context.Context, ch models.Change) error {
	*k = append(*k, ch.Kind)
	return nil
}

func router(store Store, pub realtime.Publisher, userID uuid.UUID, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, nil, pub, nil)
	r := gin.New()
	r.GET("/clubs", h.List)
	r.GET("/clubs/:id", h.Get)
	api := r.Group("", func(c *gin.Context) {
		c.Set(auth.ContextUserID, userID)
		c.Set(middleware.ContextUserRole, role)
		c.Next()
	})
	api.POST("/clubs", h.Create)
	api.PATCH("/clubs/:id", h.Update)
	api.POST("/clubs/:id/logo/upload-url", h.LogoUploadURL)
	return r
}

func send(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestClubLifecycle(t *testing.T) {
	owner := uuid.New()
	store := &memClubs{clubs: map[uuid.UUID]models.Club{}}
	var published kinds
	r := router(store, &published, owner, models.RoleClubAdmin)

	for _, body := range []string{`{}`, `{"name":""}`, `{"name":"Robotics","contact_email":"robotics"}`} {
		assert.Equal(t, http.StatusBadRequest, send(r, http.MethodPost, "/clubs", body).Code, body)
	}
	require.Equal(t, http.StatusCreated, send(r, http.MethodPost, "/clubs", `{"name":"Robotics"}`).Code)
	require.Len(t, store.clubs, 1)

	var id uuid.UUID
	for k := range store.clubs {
		id = k
	}
	assert.Equal(t, http.StatusOK, send(r, http.MethodPatch, "/clubs/"+id.String(), `{"name":"Robotics Society"}`).Code)
	assert.Equal(t, "Robotics Society", store.clubs[id].Name)
	assert.Equal(t, kinds{models.ChangeClubUpdated, models.ChangeClubUpdated}, published)

	other := router(store, nil, uuid.New(), models.RoleClubAdmin)
	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodPatch, "/clubs/"+id.String(), `{"contact_email":"nope"}`).Code)

	assert.Equal(t, http.StatusForbidden, send(other, http.MethodPatch, "/clubs/"+id.String(), `{"name":"x"}`).Code)

	admin := router(store, nil, uuid.New(), models.RoleAdmin)
	assert.Equal(t, http.StatusOK, send(admin, http.MethodPatch, "/clubs/"+id.String(), `{"name":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, send(admin, http.MethodGet, "/clubs/"+uuid.NewString(), "").Code)
}

func TestLogoUploadURL_NoMedia(t *testing.T) {
	r := router(&memClubs{clubs: map[uuid.UUID]models.Club{}}, nil, uuid.New(), models.RoleAdmin)
	w := send(r, http.MethodPost, "/clubs/"+uuid.NewString()+"/logo/upload-url", `{"content_type":"image/png"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
