package notification

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
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

	"github.com/ippel-tech/ippel-rnc/internal/config"
	notifctl "github.com/ippel-tech/ippel-rnc/internal/db/controller/notification"
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

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.Notification{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

// newTestHandler wires the handler into a fresh app with a fresh session store.
func newTestHandler(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	websess.Init(&testStorage{data: make(map[string][]byte)})

	db := newTestDB(t)
	app := fiber.New()

	var s Service
	s.Init(app, &config.Config{}, db, nil)

	return app, db
}

// loginAs writes a session for the user and returns the cookie value.
func loginAs(t *testing.T, userID uint64) string {
	t.Helper()

	sessionID := websess.GenerateSessionID()
	data := &websess.Data{User: models.User{ID: userID, Username: "ana", Active: true}}
	require.NoError(t, data.Write(sessionID, time.Minute))

	return sessionID
}

func performRequest(t *testing.T, app *fiber.App, method, target, sessionID, body string) *http.Response {
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

func seedNotification(t *testing.T, db *gorm.DB, recipientID uint64) uint64 {
	t.Helper()

	n := models.Notification{
		ChangeRecordID:        1,
		ReportID:              10,
		RecipientID:           recipientID,
		Title:                 "Nova RNC registrada",
		Message:               "Ana registrou a RNC RNC-TESTE123.",
		ChangeType:            models.ChangeCreated,
		IsPersistent:          true,
		MaxAttempts:           10,
		RepeatIntervalMinutes: 5,
		NextEligibleTime:      time.Now().Add(-time.Minute),
	}
	require.NoError(t, db.Create(&n).Error)

	return n.ID
}

func TestPending(t *testing.T) {
	app, db := newTestHandler(t)
	sessionID := loginAs(t, 1)

	seedNotification(t, db, 1)
	seedNotification(t, db, 2) // other user's row stays hidden

	resp := performRequest(t, app, http.MethodGet, RoutePending, sessionID, "")
	defer resp.Body.Close() //nolint:errcheck

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []pendingItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, uint64(10), items[0].RNCID)
	assert.Equal(t, "Nova RNC registrada", items[0].Title)
	assert.Equal(t, "created", items[0].ChangeType)

	// delivery counted as one surfacing attempt
	var row models.Notification
	require.NoError(t, db.First(&row, items[0].ID).Error)
	assert.Equal(t, 1, row.AttemptsMade)
	assert.True(t, row.NextEligibleTime.After(time.Now()))
}

func TestPendingEmpty(t *testing.T) {
	app, _ := newTestHandler(t)
	sessionID := loginAs(t, 1)

	resp := performRequest(t, app, http.MethodGet, RoutePending, sessionID, "")
	defer resp.Body.Close() //nolint:errcheck

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))
}

func TestPendingUnauthorized(t *testing.T) {
	app, _ := newTestHandler(t)

	resp := performRequest(t, app, http.MethodGet, RoutePending, "", "")
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRespond(t *testing.T) {
	app, db := newTestHandler(t)
	sessionID := loginAs(t, 1)
	id := seedNotification(t, db, 1)

	resp := performRequest(t, app, http.MethodPost,
		Path+"/"+itoa(id)+"/respond", sessionID, `{"response":"tratado"}`)
	defer resp.Body.Close() //nolint:errcheck

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var row models.Notification
	require.NoError(t, db.First(&row, id).Error)
	require.NotNil(t, row.RespondedAt)
	assert.Equal(t, "tratado", row.ResponseText)

	// a second respond misses the already resolved row
	resp = performRequest(t, app, http.MethodPost,
		Path+"/"+itoa(id)+"/respond", sessionID, `{"response":"de novo"}`)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRespondForeignNotificationReads404(t *testing.T) {
	app, db := newTestHandler(t)
	sessionID := loginAs(t, 1)
	id := seedNotification(t, db, 2)

	// someone else's notification is indistinguishable from a missing one
	resp := performRequest(t, app, http.MethodPost,
		Path+"/"+itoa(id)+"/respond", sessionID, `{"response":"alheio"}`)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// and the row is untouched
	var row models.Notification
	require.NoError(t, db.First(&row, id).Error)
	assert.Nil(t, row.RespondedAt)
}

func TestDismiss(t *testing.T) {
	app, db := newTestHandler(t)
	sessionID := loginAs(t, 1)
	id := seedNotification(t, db, 1)

	resp := performRequest(t, app, http.MethodPost,
		Path+"/"+itoa(id)+"/dismiss", sessionID, "")
	defer resp.Body.Close() //nolint:errcheck

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var row models.Notification
	require.NoError(t, db.First(&row, id).Error)
	require.NotNil(t, row.DismissedAt)

	// the dismissed row stops surfacing
	rows, err := notifctl.Pending(db, 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestInvalidID(t *testing.T) {
	app, _ := newTestHandler(t)
	sessionID := loginAs(t, 1)

	for _, target := range []string{
		Path + "/abc/respond",
		Path + "/0/dismiss",
	} {
		resp := performRequest(t, app, http.MethodPost, target, sessionID, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
		_ = resp.Body.Close() //nolint:errcheck
	}
}

func itoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}
