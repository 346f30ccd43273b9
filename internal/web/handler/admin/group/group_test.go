package group

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/authz"
	"github.com/ippel-tech/ippel-rnc/internal/config"
	"github.com/ippel-tech/ippel-rnc/internal/db/models"
	websess "github.com/ippel-tech/ippel-rnc/internal/web/session"
)

// testStorage is a minimal in-memory implementation of storage.Storage for tests.
type testStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ storage.Storage = (*testStorage)(nil)

func (s *testStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.data[key]
	out := make([]byte, len(v))
	copy(out, v)

	return out, nil
}

func (s *testStorage) Set(key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(val))
	copy(buf, val)
	s.data[key] = buf

	return nil
}

func (s *testStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)

	return nil
}

func (s *testStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]byte)

	return nil
}

func (s *testStorage) Close() error { return nil }

func newTestSetup(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	websess.Init(&testStorage{data: make(map[string][]byte)})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.User{}, &models.Group{}, &models.GroupPermission{}, &models.FieldLock{})
	require.NoError(t, err, "failed to migrate test database")

	app := fiber.New()
	authService := authz.NewService(db, 128, time.Minute)

	var s Service
	s.Init(app, &config.Config{}, db, authService)

	return app, db
}

func loginAdmin(t *testing.T, db *gorm.DB) string {
	t.Helper()

	u := models.User{Username: "admin", Active: true, Role: models.RoleAdmin}
	require.NoError(t, db.Create(&u).Error)

	sessionID := websess.GenerateSessionID()
	require.NoError(t, (&websess.Data{User: u}).Write(sessionID, time.Minute))

	return sessionID
}

func performJSON(t *testing.T, app *fiber.App, method, target, sessionID, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: websess.CookieName, Value: sessionID})
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err, "app.Test failed")

	return resp
}

func TestCreateAndList(t *testing.T) {
	app, db := newTestSetup(t)
	admin := loginAdmin(t, db)

	resp := performJSON(t, app, http.MethodPost, Path, admin,
		`{"name":"Qualidade","description":"Equipe de qualidade"}`)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotZero(t, created.ID)

	// member counts come from the users table
	u := models.User{Username: "ana", Active: true, Role: models.RoleUser, GroupID: &created.ID}
	require.NoError(t, db.Create(&u).Error)

	resp = performJSON(t, app, http.MethodGet, Path, admin, "")
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []struct {
		ID      uint   `json:"id"`
		Name    string `json:"name"`
		Members int64  `json:"members"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, "Qualidade", items[0].Name)
	assert.Equal(t, int64(1), items[0].Members)
}

func TestCreateDuplicateName(t *testing.T) {
	app, db := newTestSetup(t)
	admin := loginAdmin(t, db)

	resp := performJSON(t, app, http.MethodPost, Path, admin, `{"name":"Qualidade"}`)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = performJSON(t, app, http.MethodPost, Path, admin, `{"name":"Qualidade"}`)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUpdate(t *testing.T) {
	app, db := newTestSetup(t)
	admin := loginAdmin(t, db)

	g := models.Group{Name: "Qualidade"}
	require.NoError(t, db.Create(&g).Error)

	resp := performJSON(t, app, http.MethodPut, Path+"/1", admin,
		`{"name":"Engenharia","description":"Equipe de engenharia"}`)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.Group
	require.NoError(t, db.First(&got, g.ID).Error)
	assert.Equal(t, "Engenharia", got.Name)
	assert.Equal(t, "Equipe de engenharia", got.Description)

	resp = performJSON(t, app, http.MethodPut, Path+"/99", admin, `{"name":"Outro"}`)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDelete(t *testing.T) {
	app, db := newTestSetup(t)
	admin := loginAdmin(t, db)

	g := models.Group{Name: "Qualidade"}
	require.NoError(t, db.Create(&g).Error)

	resp := performJSON(t, app, http.MethodDelete, Path+"/1", admin, "")
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.Group{}).Count(&count).Error)
	assert.Zero(t, count)

	// a second delete finds nothing
	resp = performJSON(t, app, http.MethodDelete, Path+"/1", admin, "")
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInvalidID(t *testing.T) {
	app, db := newTestSetup(t)
	admin := loginAdmin(t, db)

	for _, target := range []string{Path + "/abc", Path + "/0"} {
		resp := performJSON(t, app, http.MethodDelete, target, admin, "")
		defer resp.Body.Close() //nolint:errcheck

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
	}
}

func TestAdminGate(t *testing.T) {
	app, db := newTestSetup(t)

	groupID := uint(1)
	u := models.User{Username: "davi", Active: true, Role: models.RoleUser, GroupID: &groupID}
	require.NoError(t, db.Create(&u).Error)

	sessionID := websess.GenerateSessionID()
	require.NoError(t, (&websess.Data{User: u}).Write(sessionID, time.Minute))

	resp := performJSON(t, app, http.MethodGet, Path, sessionID, "")
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = performJSON(t, app, http.MethodGet, Path, "", "")
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
